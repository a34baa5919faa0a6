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

// UsersScene displays users ranked by trigger count
type UsersScene struct {
	client     *api.Client
	users      []api.UserTrend
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

// usersMsg carries updated users
type usersMsg struct {
	users    []api.UserTrend
	importID string
	err      string
}

// NewUsersScene creates a new users scene
func NewUsersScene(client *api.Client) *UsersScene {
	return &UsersScene{
		client:  client,
		loading: true,
		maxRows: 10,
	}
}

// Init initializes the users scene
func (s *UsersScene) Init() tea.Cmd {
	return s.fetchUsers()
}

// fetchUsers fetches user trends from the API
func (s *UsersScene) fetchUsers() tea.Cmd {
	return func() tea.Msg {
		resp, err := s.client.GetUserTrends(100)
		if err != nil {
			return usersMsg{err: err.Error()}
		}
		if resp.Error != "" {
			return usersMsg{err: resp.Error}
		}
		return usersMsg{users: resp.Users, importID: resp.ImportID}
	}
}

// TickCmd returns a command that ticks every interval
func (s *UsersScene) TickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "users", Time: t}
	})
}

// Update handles messages for the users scene
func (s *UsersScene) Update(msg tea.Msg) (*UsersScene, tea.Cmd) {
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
			if s.cursor < len(s.users)-1 {
				s.cursor++
				if s.cursor >= s.offset+s.maxRows {
					s.offset = s.cursor - s.maxRows + 1
				}
			}
		case "pgup":
			s.cursor = max(0, s.cursor-s.maxRows)
			s.offset = max(0, s.offset-s.maxRows)
		case "pgdown":
			s.cursor = min(len(s.users)-1, s.cursor+s.maxRows)
			s.offset = min(max(0, len(s.users)-s.maxRows), s.offset+s.maxRows)
		case "r":
			s.loading = true
			return s, s.fetchUsers()
		}
		return s, nil

	case usersMsg:
		s.loading = false
		s.users = msg.users
		s.importID = msg.importID
		s.err = msg.err
		s.lastUpdate = time.Now()
		if s.cursor >= len(s.users) {
			s.cursor = max(0, len(s.users)-1)
		}
		return s, nil

	case TickMsg:
		if msg.Scene == "users" {
			return s, s.fetchUsers()
		}
		return s, nil
	}

	return s, nil
}

// View renders the users list
func (s *UsersScene) View() string {
	var b strings.Builder

	title := styles.Title.Render("  Affected Users")
	b.WriteString(title)
	b.WriteString("\n\n")

	if s.loading && len(s.users) == 0 {
		b.WriteString(styles.Muted.Render("  Loading users..."))
		return b.String()
	}

	if s.err != "" {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %s", s.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.Muted.Render("  Users appear after the first import (POST /v1/alarms/import)."))
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("  Press [r] to retry."))
		return b.String()
	}

	if len(s.users) == 0 {
		b.WriteString(styles.Muted.Render("  No users found."))
		return b.String()
	}

	countText := fmt.Sprintf("  %d users from import %s", len(s.users), truncate(s.importID, 12))
	b.WriteString(styles.Subtitle.Render(countText))
	if s.loading {
		b.WriteString(styles.Muted.Render("  (refreshing...)"))
	}
	b.WriteString("\n\n")

	header := fmt.Sprintf("  %-30s %-20s %10s %8s  %s",
		"User", "Team", "Triggers", "Rules", "Trend")
	b.WriteString(styles.TableHeader.Render(header))
	b.WriteString("\n")

	endIdx := min(s.offset+s.maxRows, len(s.users))
	for i, user := range s.users[s.offset:endIdx] {
		idx := s.offset + i
		b.WriteString(s.renderUserRow(user, idx == s.cursor))
		b.WriteString("\n")
	}

	if len(s.users) > s.maxRows {
		scrollInfo := fmt.Sprintf("\n  %d-%d of %d (↑↓ to scroll, [r] refresh)",
			s.offset+1, endIdx, len(s.users))
		b.WriteString(styles.Muted.Render(scrollInfo))
	} else {
		b.WriteString(styles.Muted.Render("\n  [r] Refresh"))
	}

	if !s.lastUpdate.IsZero() {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  |  Updated: %s", s.lastUpdate.Format("15:04:05"))))
	}

	return b.String()
}

func (s *UsersScene) renderUserRow(user api.UserTrend, selected bool) string {
	name := truncate(user.Name, 30)
	team := truncate(user.Team, 20)
	spark := sparkline(user.Series, 12)

	row := fmt.Sprintf("  %-30s %-20s %10d %8d  %s",
		name, team, user.TriggerCount, user.RuleCount, spark)

	if selected {
		return lipgloss.NewStyle().
			Background(styles.Primary).
			Foreground(styles.White).
			Render(row)
	}

	return row
}
