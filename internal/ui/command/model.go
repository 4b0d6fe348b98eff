package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/maillist/internal/theme"
)

// Command names understood by the palette.
const (
	Folder = "folder"
	Search = "search"
	Open   = "open"
	Sync   = "sync"
	Setup  = "setup"
	Quit   = "quit"
)

// aliases maps shorthand to command names.
var aliases = map[string]string{
	"f":       Folder,
	"cd":      Folder,
	"s":       Search,
	"find":    Search,
	"o":       Open,
	"refresh": Sync,
	"config":  Setup,
	"q":       Quit,
	"exit":    Quit,
}

// needsArg lists the commands that take an argument.
var needsArg = map[string]bool{
	Folder: true,
	Open:   true,
}

// CommandMsg is emitted when the user executes a valid command.
type CommandMsg struct {
	Name string
	Arg  string
}

// CancelMsg is emitted when the user leaves the palette without a command.
type CancelMsg struct{}

// Parse splits a palette line into a command and its argument. A search
// with no argument clears the search.
func Parse(line string) (CommandMsg, error) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ":"))
	if line == "" {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	name, arg, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)
	if full, ok := aliases[name]; ok {
		name = full
	}

	switch name {
	case Folder, Search, Open, Sync, Setup, Quit:
	default:
		return CommandMsg{}, fmt.Errorf("unknown command %q", name)
	}
	if needsArg[name] && arg == "" {
		return CommandMsg{}, fmt.Errorf("%s needs an argument", name)
	}
	return CommandMsg{Name: name, Arg: arg}, nil
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "folder <name> | search <text> | open <uid> | sync | setup | quit"
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = max(width-6, 1)

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			parsed, err := Parse(m.input.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.input.Reset()
			m.err = nil
			return m, func() tea.Msg {
				return parsed
			}

		case "esc":
			m.input.Reset()
			m.err = nil
			return m, func() tea.Msg {
				return CancelMsg{}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != nil {
		parts = append(parts, "", theme.ErrorTitleStyle.Render(m.err.Error()))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 1)).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-6, 1)
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
