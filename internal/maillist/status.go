package maillist

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/maillist/internal/theme"
)

// Status texts shown in the list header.
const (
	StatusSearching  = "Searching ..."
	StatusMatches    = "Matches in this folder"
	StatusOnline     = "Online"
	StatusOffline    = "Offline mode"
	StatusLastUpdate = "Last update: "
)

// Status is the one-line status display above the list.
type Status struct {
	text      string
	at        time.Time
	searching bool
	online    bool
	spinner   spinner.Model
}

// NewStatus creates an empty status line.
func NewStatus() *Status {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return &Status{spinner: sp}
}

// Update sets the status text and an optional timestamp.
func (s *Status) Update(text string, at time.Time) {
	s.text = text
	s.at = at
}

// SetSearching toggles the searching indicator. Turning it on returns the
// spinner's first tick.
func (s *Status) SetSearching(searching bool) tea.Cmd {
	wasSearching := s.searching
	s.searching = searching
	if searching && !wasSearching {
		return s.spinner.Tick
	}
	return nil
}

// SetOnline records connectivity for styling.
func (s *Status) SetOnline(online bool) { s.online = online }

// Text returns the current status text.
func (s *Status) Text() string { return s.text }

// At returns the timestamp given with the text, if any.
func (s *Status) At() time.Time { return s.at }

// Searching reports whether the searching indicator is on.
func (s *Status) Searching() bool { return s.searching }

// Tick advances the spinner while searching.
func (s *Status) Tick(msg spinner.TickMsg) tea.Cmd {
	if !s.searching {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// View renders the status line.
func (s *Status) View() string {
	text := s.text
	if !s.at.IsZero() {
		text += s.at.Format("15:04:05")
	}
	out := theme.StatusTextStyle(s.online).Render(text)
	if s.searching {
		out = lipgloss.JoinHorizontal(lipgloss.Left, s.spinner.View(), out)
	}
	return out
}
