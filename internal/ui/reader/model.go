package reader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"

	"github.com/nhle/maillist/internal/keys"
	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// FlagMsg asks the parent to toggle the flag on the shown message.
type FlagMsg struct {
	Message *model.Message
}

// Model is the message reader pane.
type Model struct {
	msg      *model.Message
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int

	// rendered is the state the viewport content was built from.
	rendered renderState
}

type renderState struct {
	msg       *model.Message
	hasBody   bool
	decrypted bool
	flagged   bool
}

// New creates a new reader model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, max(height-2, 0))
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the reader.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the reader.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Flag):
			if m.msg != nil {
				target := m.msg
				return m, func() tea.Msg {
					return FlagMsg{Message: target}
				}
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the reader.
func (m Model) View() string {
	if m.msg == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No message selected")
	}

	return m.viewport.View()
}

// Message returns the shown message, or nil.
func (m *Model) Message() *model.Message {
	return m.msg
}

// SetMessage shows msg from the top. A nil msg clears the pane.
func (m *Model) SetMessage(msg *model.Message) {
	m.msg = msg
	m.render()
	m.viewport.GotoTop()
}

// Sync re-renders the content if the shown message changed since it was
// last rendered, e.g. because its body arrived or was decrypted. The
// scroll position is kept.
func (m *Model) Sync() {
	if m.msg == nil || m.state() == m.rendered {
		return
	}
	m.render()
}

// SetSize updates the reader dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 0)
	if m.msg != nil {
		m.render()
	}
}

func (m *Model) state() renderState {
	if m.msg == nil {
		return renderState{}
	}
	return renderState{
		msg:       m.msg,
		hasBody:   m.msg.HasBody(),
		decrypted: m.msg.Decrypted,
		flagged:   m.msg.Flagged,
	}
}

func (m *Model) render() {
	m.rendered = m.state()
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the full message content string for the viewport.
func (m *Model) renderContent() string {
	if m.msg == nil {
		return ""
	}

	msg := m.msg
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	if msg.Flagged {
		subject = theme.FlagStyle.Render("⚑") + " " + subject
	}
	sections = append(sections, titleStyle.Render(subject))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	from := msg.Sender()
	if from.Address != "" {
		sender := from.Address
		if from.Name != "" {
			sender = fmt.Sprintf("%s <%s>", from.Name, from.Address)
		}
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("From:"),
			valStyle.Render(sender),
		))
	}
	if to := msg.Recipients(); to != "" {
		sections = append(sections, fmt.Sprintf(
			"%s    %s",
			metaStyle.Render("To:"),
			valStyle.Render(to),
		))
	}
	if !msg.SentAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Date:"),
			valStyle.Render(msg.SentAt.Local().Format("Mon, 2 Jan 2006 15:04")),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	sections = append(sections, lipgloss.NewStyle().
		Width(max(m.width-2, 1)).
		Render(bodyText(msg)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

var noticeStyle = lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

// bodyText picks the readable content of msg.
func bodyText(msg *model.Message) string {
	switch {
	case msg.Body != nil && !msg.Body.Encrypted:
		if msg.Body.Text != "" {
			return msg.Body.Text
		}
		if msg.Body.HTML != "" {
			return htmlToText(msg.Body.HTML)
		}
		return noticeStyle.Render("Empty message")
	case msg.Decrypted:
		if msg.Plaintext == "" {
			return noticeStyle.Render("Empty message")
		}
		return msg.Plaintext
	case msg.Body == nil:
		return noticeStyle.Render("Loading message...")
	default:
		return noticeStyle.Render("This message is encrypted.")
	}
}

// htmlToText flattens an HTML body to its text, one paragraph per block
// element.
func htmlToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				skip++
			case "br":
				b.WriteByte('\n')
			case "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "blockquote":
				b.WriteString("\n\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
