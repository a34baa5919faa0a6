// Package api provides the HTTP client for connecting to the alarmscope backend
package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client handles API communication with the alarmscope backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string    `json:"status"`
	HasSnapshot   bool      `json:"has_snapshot"`
	UptimeSeconds int       `json:"uptime_seconds"`
	ImportID      string    `json:"import_id"`
	ImportedAt    time.Time `json:"imported_at"`
}

// Stats represents the backend overview for the dashboard
type Stats struct {
	Healthy       bool
	HealthStatus  string
	StatusReason  string
	HasSnapshot   bool
	ImportID      string
	ImportedAt    time.Time
	Uptime        string
	UptimeSeconds int
	ImportsTotal  int64
	RowsTotal     int64
	RulesCurrent  int64
	UsersCurrent  int64
}

// Point is one entry in a trend series
type Point struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RuleTrend is one rule in a trend response
type RuleTrend struct {
	ID                 string  `json:"id"`
	RuleName           string  `json:"ruleName"`
	Severity           string  `json:"severity"`
	TriggerCount       int     `json:"triggerCount"`
	AffectedUsersCount int     `json:"affectedUsersCount"`
	RangeTotal         int     `json:"rangeTotal"`
	Series             []Point `json:"series"`
}

// UserTrend is one user in a trend response
type UserTrend struct {
	Name         string  `json:"name"`
	Team         string  `json:"team"`
	TriggerCount int     `json:"triggerCount"`
	RuleCount    int     `json:"ruleCount"`
	RangeTotal   int     `json:"rangeTotal"`
	Series       []Point `json:"series"`
}

// TrendResponse wraps the trend endpoints' payload
type TrendResponse struct {
	Success  bool        `json:"success"`
	ImportID string      `json:"importId"`
	Rules    []RuleTrend `json:"rules"`
	Users    []UserTrend `json:"users"`
	Error    string      `json:"error"`
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetHealth fetches health status
func (c *Client) GetHealth() (*HealthResponse, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &health, nil
}

// GetRuleTrends fetches the top rules by trigger count
func (c *Client) GetRuleTrends(limit int) (*TrendResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	return c.getTrends(fmt.Sprintf("/v1/trends/rules?limit=%d", limit))
}

// GetUserTrends fetches the top users by trigger count
func (c *Client) GetUserTrends(limit int) (*TrendResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	return c.getTrends(fmt.Sprintf("/v1/trends/users?limit=%d", limit))
}

func (c *Client) getTrends(path string) (*TrendResponse, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	var trends TrendResponse
	if err := json.NewDecoder(resp.Body).Decode(&trends); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		trends.Error = "no import yet"
		return &trends, nil
	}
	if resp.StatusCode != http.StatusOK && trends.Error == "" {
		trends.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}

	return &trends, nil
}

// parsePrometheusMetrics parses Prometheus-format metrics
func (c *Client) parsePrometheusMetrics(body string) map[string]float64 {
	metrics := make(map[string]float64)
	scanner := bufio.NewScanner(strings.NewReader(body))

	for scanner.Scan() {
		line := scanner.Text()
		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		// Parse metric line: metric_name value
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			if val, err := strconv.ParseFloat(parts[1], 64); err == nil {
				metrics[parts[0]] = val
			}
		}
	}
	return metrics
}

// GetStats fetches combined stats for the overview scene
func (c *Client) GetStats() (*Stats, error) {
	health, healthErr := c.GetHealth()

	stats := &Stats{
		Healthy:      false,
		HealthStatus: "unknown",
		StatusReason: "Unable to connect to backend",
	}

	if healthErr != nil {
		stats.StatusReason = healthErr.Error()
		return stats, nil
	}

	stats.HealthStatus = health.Status
	stats.Healthy = health.Status == "healthy"
	stats.HasSnapshot = health.HasSnapshot
	stats.ImportID = health.ImportID
	stats.ImportedAt = health.ImportedAt
	stats.UptimeSeconds = health.UptimeSeconds
	stats.Uptime = formatUptime(float64(health.UptimeSeconds))

	if stats.Healthy {
		stats.StatusReason = "All systems operational"
		if !health.HasSnapshot {
			stats.StatusReason = "Waiting for first import"
		}
	}

	// Pull counters from the Prometheus endpoint
	resp, err := c.httpClient.Get(c.baseURL + "/metrics")
	if err == nil {
		defer resp.Body.Close()
		buf := new(strings.Builder)
		buf.Grow(4096)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			buf.WriteString(scanner.Text())
			buf.WriteString("\n")
		}
		metrics := c.parsePrometheusMetrics(buf.String())

		if imports, ok := metrics["alarmscope_imports_total"]; ok {
			stats.ImportsTotal = int64(imports)
		}
		if rows, ok := metrics["alarmscope_rows_total"]; ok {
			stats.RowsTotal = int64(rows)
		}
		if rules, ok := metrics["alarmscope_rules_current"]; ok {
			stats.RulesCurrent = int64(rules)
		}
		if users, ok := metrics["alarmscope_users_current"]; ok {
			stats.UsersCurrent = int64(users)
		}
	}

	return stats, nil
}

func formatUptime(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
