// Package tui provides a terminal user interface for alarmscope
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mervekesknn/db-protection-insight/internal/tui/api"
	"github.com/mervekesknn/db-protection-insight/internal/tui/scenes"
	"github.com/mervekesknn/db-protection-insight/internal/tui/styles"
)

// Scene represents the current view
type Scene int

const (
	SceneOverview Scene = iota
	SceneRules
	SceneUsers
)

// Model is the main TUI model
type Model struct {
	client *api.Client

	// Current scene
	scene Scene

	// Scene models - only the active one receives updates
	overview *scenes.OverviewScene
	rules    *scenes.RulesScene
	users    *scenes.UsersScene

	// Window dimensions
	width  int
	height int

	// Whether we're quitting
	quitting bool
}

// New creates a new TUI model
func New(baseURL string) *Model {
	client := api.NewClient(baseURL)

	return &Model{
		client:   client,
		scene:    SceneOverview,
		overview: scenes.NewOverviewScene(client),
		rules:    scenes.NewRulesScene(client),
		users:    scenes.NewUsersScene(client),
	}
}

// Init initializes the TUI
func (m *Model) Init() tea.Cmd {
	// Only initialize the current scene's data fetch
	// This prevents multiple tickers from running at startup
	return tea.Batch(
		m.overview.Init(),
		m.getActiveSceneTickCmd(),
	)
}

// getActiveSceneTickCmd returns the tick command for the active scene only
func (m *Model) getActiveSceneTickCmd() tea.Cmd {
	switch m.scene {
	case SceneOverview:
		return m.overview.TickCmd()
	case SceneRules:
		return m.rules.TickCmd()
	case SceneUsers:
		return m.users.TickCmd()
	default:
		return nil
	}
}

// Update handles all messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		// Tab switching - number keys
		case "1":
			if m.scene != SceneOverview {
				m.scene = SceneOverview
				cmds = append(cmds, m.overview.Init(), m.overview.TickCmd())
			}
			return m, tea.Batch(cmds...)

		case "2":
			if m.scene != SceneRules {
				m.scene = SceneRules
				cmds = append(cmds, m.rules.Init(), m.rules.TickCmd())
			}
			return m, tea.Batch(cmds...)

		case "3":
			if m.scene != SceneUsers {
				m.scene = SceneUsers
				cmds = append(cmds, m.users.Init(), m.users.TickCmd())
			}
			return m, tea.Batch(cmds...)

		// Tab key cycles through scenes
		case "tab":
			m.scene = (m.scene + 1) % 3 // 3 scenes
			cmds = append(cmds, m.getActiveSceneTickCmd())
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Pass to all scenes so they can adjust
		m.overview, _ = m.overview.Update(msg)
		m.rules, _ = m.rules.Update(msg)
		m.users, _ = m.users.Update(msg)
		return m, nil

	case scenes.TickMsg:
		// Only forward tick to the active scene
		var cmd tea.Cmd
		switch m.scene {
		case SceneOverview:
			m.overview, cmd = m.overview.Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			cmds = append(cmds, m.overview.TickCmd())
		case SceneRules:
			m.rules, cmd = m.rules.Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			cmds = append(cmds, m.rules.TickCmd())
		case SceneUsers:
			m.users, cmd = m.users.Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			cmds = append(cmds, m.users.TickCmd())
		}
		return m, tea.Batch(cmds...)
	}

	// Forward other messages to active scene only
	var cmd tea.Cmd
	switch m.scene {
	case SceneOverview:
		m.overview, cmd = m.overview.Update(msg)
	case SceneRules:
		m.rules, cmd = m.rules.Update(msg)
	case SceneUsers:
		m.users, cmd = m.users.Update(msg)
	}

	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the current view
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Header with tabs
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Scene content
	switch m.scene {
	case SceneOverview:
		b.WriteString(m.overview.View())
	case SceneRules:
		b.WriteString(m.rules.View())
	case SceneUsers:
		b.WriteString(m.users.View())
	}

	// Footer with help
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderHeader() string {
	tabs := []struct {
		name  string
		key   string
		scene Scene
	}{
		{"Overview", "1", SceneOverview},
		{"Rules", "2", SceneRules},
		{"Users", "3", SceneUsers},
	}

	var tabViews []string
	for _, tab := range tabs {
		label := fmt.Sprintf(" %s %s ", tab.key, tab.name)
		if tab.scene == m.scene {
			tabViews = append(tabViews, styles.TabActive.Render(label))
		} else {
			tabViews = append(tabViews, styles.TabInactive.Render(label))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabViews...)

	header := lipgloss.NewStyle().
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.MutedColor).
		Width(m.width).
		Render(tabBar)

	return header
}

func (m *Model) renderFooter() string {
	help := " [1-3] Switch tabs  [Tab] Next tab  [↑↓/jk] Navigate  [r] Refresh  [q] Quit "
	return styles.Help.Render(help)
}

// Run starts the TUI application
func Run(baseURL string) error {
	m := New(baseURL)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
