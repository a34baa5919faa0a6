// Package fetch pulls already-tabular alarm records from an upstream
// alarm management API. Records arrive as key/value objects and enter
// the pipeline through the decoder bypass, so a fetched record and its
// CSV rendering aggregate identically.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
)

// AlarmRecord is one alarm row as the upstream API delivers it. Field
// names match the upstream export columns.
type AlarmRecord struct {
	UserName            string `json:"UserName"`
	AlarmDetail         string `json:"AlarmDetail" validate:"required"`
	SystemDate          string `json:"SystemDate" validate:"omitempty,alarmdate"`
	Company             string `json:"Company"`
	ActivityDescription string `json:"ActivityDescription"`
	Severity            string `json:"Severity"`
}

// Config holds upstream API client settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client fetches alarm records from the upstream API.
type Client struct {
	config   Config
	client   *http.Client
	validate *validator.Validate
	logger   *slog.Logger
}

// NewClient creates an upstream API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	v := validator.New()
	// A date column may hold anything the exporters emit; only reject
	// values the pipeline cannot parse at all.
	v.RegisterValidation("alarmdate", func(fl validator.FieldLevel) bool {
		return pipeline.ParseDate(fl.Field().String()) != nil
	})

	return &Client{
		config:   cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		validate: v,
		logger:   logger,
	}
}

// FetchAlarms retrieves all alarm records. Records failing validation
// are dropped with a warning rather than failing the sync; one bad row
// must not block an import.
func (c *Client) FetchAlarms(ctx context.Context) ([]AlarmRecord, error) {
	url := c.config.BaseURL + "/api/alarms"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch: unexpected status %d: %s", resp.StatusCode, body)
	}

	var records []AlarmRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("fetch: failed to decode response: %w", err)
	}

	valid := make([]AlarmRecord, 0, len(records))
	for i, rec := range records {
		if err := c.validate.Struct(rec); err != nil {
			c.logger.Warn("dropping invalid alarm record",
				"index", i,
				"error", err,
			)
			continue
		}
		valid = append(valid, rec)
	}

	c.logger.Info("fetched alarm records",
		"total", len(records),
		"valid", len(valid),
	)

	return valid, nil
}

// ToRecords converts fetched records into the pipeline's map form.
func ToRecords(records []AlarmRecord) []map[string]string {
	out := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		out = append(out, map[string]string{
			"UserName":            rec.UserName,
			"AlarmDetail":         rec.AlarmDetail,
			"SystemDate":          rec.SystemDate,
			"Company":             rec.Company,
			"ActivityDescription": rec.ActivityDescription,
			"Severity":            rec.Severity,
		})
	}
	return out
}
