// Package scenes provides TUI scenes for alarmscope
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

// OverviewScene displays backend status and import metrics
type OverviewScene struct {
	client     *api.Client
	stats      *api.Stats
	err        error
	width      int
	height     int
	lastUpdate time.Time
	loading    bool
}

// statsMsg carries updated stats
type statsMsg struct {
	stats *api.Stats
	err   error
}

// TickMsg is sent on each tick - exported for use by parent model
type TickMsg struct {
	Scene string
	Time  time.Time
}

// NewOverviewScene creates a new overview scene
func NewOverviewScene(client *api.Client) *OverviewScene {
	return &OverviewScene{
		client:  client,
		loading: true,
		stats: &api.Stats{
			Healthy: false,
		},
	}
}

// Init initializes the overview scene - fetches initial data
func (o *OverviewScene) Init() tea.Cmd {
	return o.fetchStats()
}

// fetchStats fetches stats from the API
func (o *OverviewScene) fetchStats() tea.Cmd {
	return func() tea.Msg {
		stats, err := o.client.GetStats()
		return statsMsg{stats: stats, err: err}
	}
}

// TickCmd returns a command that ticks every interval.
// Returned by the parent model only when this scene is active.
func (o *OverviewScene) TickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "overview", Time: t}
	})
}

// Update handles messages for the overview
func (o *OverviewScene) Update(msg tea.Msg) (*OverviewScene, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.width = msg.Width
		o.height = msg.Height
		return o, nil

	case statsMsg:
		o.loading = false
		o.stats = msg.stats
		o.err = msg.err
		o.lastUpdate = time.Now()
		return o, nil

	case TickMsg:
		// Only respond to our own ticks
		if msg.Scene == "overview" {
			return o, o.fetchStats()
		}
		return o, nil
	}

	return o, nil
}

// View renders the overview
func (o *OverviewScene) View() string {
	var b strings.Builder

	title := styles.Title.Render("  Alarmscope Overview")
	b.WriteString(title)
	b.WriteString("\n\n")

	if o.loading {
		b.WriteString(styles.Muted.Render("Loading..."))
		return b.String()
	}

	if o.err != nil {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %v", o.err)))
		b.WriteString("\n")
	}

	var statusText string
	if o.stats.Healthy {
		statusText = styles.StatusOK.Render("● HEALTHY")
	} else {
		statusText = styles.StatusError.Render("● UNREACHABLE")
	}
	b.WriteString(fmt.Sprintf("  Status: %s  %s\n\n", statusText, styles.Muted.Render(o.stats.StatusReason)))

	cards := []string{
		o.renderMetricCard("Imports", formatNumber(o.stats.ImportsTotal)),
		o.renderMetricCard("Rows", formatNumber(o.stats.RowsTotal)),
		o.renderMetricCard("Rules", formatNumber(o.stats.RulesCurrent)),
		o.renderMetricCard("Users", formatNumber(o.stats.UsersCurrent)),
		o.renderMetricCard("Uptime", o.stats.Uptime),
	}

	cardRow := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	b.WriteString(cardRow)
	b.WriteString("\n\n")

	b.WriteString(styles.Subtitle.Render("  Current Import"))
	b.WriteString("\n")
	if o.stats.HasSnapshot {
		b.WriteString(fmt.Sprintf("  ID: %s\n", o.stats.ImportID))
		b.WriteString(fmt.Sprintf("  Imported: %s\n", o.stats.ImportedAt.Format("2006-01-02 15:04:05")))
	} else {
		b.WriteString(styles.Muted.Render("  No import yet. Upload an export via POST /v1/alarms/import."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if !o.lastUpdate.IsZero() {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  Last updated: %s", o.lastUpdate.Format("15:04:05"))))
	}

	return b.String()
}

func (o *OverviewScene) renderMetricCard(label, value string) string {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.MutedColor).
		Padding(0, 2).
		Width(16).
		Align(lipgloss.Center)

	content := fmt.Sprintf("%s\n%s",
		styles.MetricValue.Render(value),
		styles.MetricLabel.Render(label),
	)

	return card.Render(content)
}

func formatNumber(n int64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}
