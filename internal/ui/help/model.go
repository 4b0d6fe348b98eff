package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/maillist/internal/keys"
	"github.com/nhle/maillist/internal/theme"
)

// commands documents the command palette.
var commands = [][2]string{
	{"folder <name>", "open a folder by name or path"},
	{"search <text>", "search the current folder, empty clears"},
	{"open <uid>", "select a message by uid"},
	{"sync", "check for new mail now"},
	{"setup", "edit the account settings"},
	{"quit", "exit"},
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = max(m.width-4, 0)
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Width(16)
	descStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	rows := make([]string, 0, len(commands))
	for _, c := range commands {
		rows = append(rows, nameStyle.Render(":"+c[0])+" "+descStyle.Render(c[1]))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		helpText,
		"",
		titleStyle.Render("Commands"),
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 1)).
		Height(max(m.height-4, 1)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-4, 0)
}
