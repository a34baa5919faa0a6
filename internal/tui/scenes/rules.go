package scenes

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mervekesknn/db-protection-insight/internal/tui/api"
	"github.com/mervekesknn/db-protection-insight/internal/tui/styles"
)

// RulesScene displays rules ranked by trigger count
type RulesScene struct {
	client     *api.Client
	rules      []api.RuleTrend
	importID   string
	err        string
	width      int
	height     int
	cursor     int
	offset     int
	loading    bool
	maxRows    int
	lastUpdate time.Time
}

// rulesMsg carries updated rules
type rulesMsg struct {
	rules    []api.RuleTrend
	importID string
	err      string
}

// NewRulesScene creates a new rules scene
func NewRulesScene(client *api.Client) *RulesScene {
	return &RulesScene{
		client:  client,
		loading: true,
		maxRows: 10,
	}
}

// Init initializes the rules scene
func (s *RulesScene) Init() tea.Cmd {
	return s.fetchRules()
}

// fetchRules fetches rule trends from the API
func (s *RulesScene) fetchRules() tea.Cmd {
	return func() tea.Msg {
		resp, err := s.client.GetRuleTrends(100)
		if err != nil {
			return rulesMsg{err: err.Error()}
		}
		if resp.Error != "" {
			return rulesMsg{err: resp.Error}
		}
		return rulesMsg{rules: resp.Rules, importID: resp.ImportID}
	}
}

// TickCmd returns a command that ticks every interval
func (s *RulesScene) TickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "rules", Time: t}
	})
}

// Update handles messages for the rules scene
func (s *RulesScene) Update(msg tea.Msg) (*RulesScene, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.maxRows = max(5, s.height-12)
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
				if s.cursor < s.offset {
					s.offset = s.cursor
				}
			}
		case "down", "j":
			if s.cursor < len(s.rules)-1 {
				s.cursor++
				if s.cursor >= s.offset+s.maxRows {
					s.offset = s.cursor - s.maxRows + 1
				}
			}
		case "pgup":
			s.cursor = max(0, s.cursor-s.maxRows)
			s.offset = max(0, s.offset-s.maxRows)
		case "pgdown":
			s.cursor = min(len(s.rules)-1, s.cursor+s.maxRows)
			s.offset = min(max(0, len(s.rules)-s.maxRows), s.offset+s.maxRows)
		case "r":
			// Manual refresh
			s.loading = true
			return s, s.fetchRules()
		}
		return s, nil

	case rulesMsg:
		s.loading = false
		s.rules = msg.rules
		s.importID = msg.importID
		s.err = msg.err
		s.lastUpdate = time.Now()
		if s.cursor >= len(s.rules) {
			s.cursor = max(0, len(s.rules)-1)
		}
		return s, nil

	case TickMsg:
		if msg.Scene == "rules" {
			return s, s.fetchRules()
		}
		return s, nil
	}

	return s, nil
}

// View renders the rules list
func (s *RulesScene) View() string {
	var b strings.Builder

	title := styles.Title.Render("  Alarm Rules")
	b.WriteString(title)
	b.WriteString("\n\n")

	if s.loading && len(s.rules) == 0 {
		b.WriteString(styles.Muted.Render("  Loading rules..."))
		return b.String()
	}

	if s.err != "" {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %s", s.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.Muted.Render("  Rules appear after the first import (POST /v1/alarms/import)."))
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("  Press [r] to retry."))
		return b.String()
	}

	if len(s.rules) == 0 {
		b.WriteString(styles.Muted.Render("  No rules found."))
		return b.String()
	}

	countText := fmt.Sprintf("  %d rules from import %s", len(s.rules), truncate(s.importID, 12))
	b.WriteString(styles.Subtitle.Render(countText))
	if s.loading {
		b.WriteString(styles.Muted.Render("  (refreshing...)"))
	}
	b.WriteString("\n\n")

	header := fmt.Sprintf("  %-40s %-10s %10s %8s  %s",
		"Rule", "Severity", "Triggers", "Users", "Trend")
	b.WriteString(styles.TableHeader.Render(header))
	b.WriteString("\n")

	endIdx := min(s.offset+s.maxRows, len(s.rules))
	for i, rule := range s.rules[s.offset:endIdx] {
		idx := s.offset + i
		b.WriteString(s.renderRuleRow(rule, idx == s.cursor))
		b.WriteString("\n")
	}

	if len(s.rules) > s.maxRows {
		scrollInfo := fmt.Sprintf("\n  %d-%d of %d (↑↓ to scroll, [r] refresh)",
			s.offset+1, endIdx, len(s.rules))
		b.WriteString(styles.Muted.Render(scrollInfo))
	} else {
		b.WriteString(styles.Muted.Render("\n  [r] Refresh"))
	}

	if !s.lastUpdate.IsZero() {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  |  Updated: %s", s.lastUpdate.Format("15:04:05"))))
	}

	return b.String()
}

func (s *RulesScene) renderRuleRow(rule api.RuleTrend, selected bool) string {
	name := truncate(rule.RuleName, 40)
	severity := formatSeverity(rule.Severity)
	spark := sparkline(rule.Series, 12)

	row := fmt.Sprintf("  %-40s %s %10d %8d  %s",
		name, severity, rule.TriggerCount, rule.AffectedUsersCount, spark)

	if selected {
		return lipgloss.NewStyle().
			Background(styles.Primary).
			Foreground(styles.White).
			Render(row)
	}

	return row
}

// formatSeverity renders a severity label with the matching color
func formatSeverity(sev string) string {
	width := 10
	var style lipgloss.Style

	switch sev {
	case "High":
		style = styles.StatusError
	case "Medium":
		style = styles.StatusWarning
	default:
		style = styles.StatusOK
	}

	padded := fmt.Sprintf("%-*s", width, strings.ToUpper(sev))
	return style.Render(padded)
}

// sparkline renders the tail of a daily series as block characters
func sparkline(series []api.Point, width int) string {
	if len(series) == 0 {
		return ""
	}
	if len(series) > width {
		series = series[len(series)-width:]
	}

	peak := 0
	for _, p := range series {
		if p.Count > peak {
			peak = p.Count
		}
	}
	if peak == 0 {
		return ""
	}

	blocks := []rune("▁▂▃▄▅▆▇█")
	var b strings.Builder
	for _, p := range series {
		idx := p.Count * (len(blocks) - 1) / peak
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
