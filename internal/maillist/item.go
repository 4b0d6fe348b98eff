package maillist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/theme"
)

// messageItem wraps a message so it can be used in a bubbles/list. The
// pointer is shared with the folder so fetched bodies show up on the next
// render.
type messageItem struct {
	msg *model.Message
}

// FilterValue returns the string used for fuzzy filtering.
func (i messageItem) FilterValue() string { return i.msg.Subject }

// rowDelegate renders one message per row of height lines.
type rowDelegate struct {
	height int
	now    func() time.Time
}

// Height returns the number of lines each item takes.
func (d rowDelegate) Height() int { return d.height }

// Spacing returns the number of blank lines between items.
func (d rowDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a message row: sender and date, then subject and snippet.
func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(messageItem)
	if !ok {
		return
	}
	msg := it.msg
	width := max(m.Width()-3, 20)

	marker := " "
	if msg.Unread {
		marker = theme.UnreadDotStyle.Render("●")
	}
	flag := " "
	if msg.Flagged {
		flag = theme.FlagStyle.Render("⚑")
	}

	date := FormatDate(msg.SentAt, d.now())
	sender := truncate(msg.Sender().DisplayName(), width-len(date)-5)
	if msg.Unread {
		sender = theme.UnreadStyle.Render(sender)
	}
	gap := max(width-lipgloss.Width(sender)-len(date)-4, 1)
	first := fmt.Sprintf("%s%s %s%s%s", marker, flag, sender, strings.Repeat(" ", gap), theme.DimmedStyle.Render(date))

	lines := []string{first}
	if d.height > 1 {
		subject := msg.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		second := "   " + truncate(subject, width-3)
		if snippet := msg.Snippet(0); snippet != "" && len([]rune(subject)) < width-8 {
			rest := width - 3 - len([]rune(subject)) - 3
			second += theme.DimmedStyle.Render(" · " + truncate(snippet, rest))
		}
		lines = append(lines, second)
	}
	for len(lines) < d.height {
		lines = append(lines, "")
	}

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	fmt.Fprint(w, style.Render(strings.Join(lines, "\n")))
}

// FormatDate shows the clock time for messages from today and the date
// otherwise.
func FormatDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("3:04 PM")
	}
	return t.Format("Jan 2, 2006")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
