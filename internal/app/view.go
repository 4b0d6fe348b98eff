package app

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/theme"
)

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.title(), m.connectivity())
	tabs := m.layout.RenderTabs(m.folderValues(), m.activePath())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	content := m.renderContent()
	if m.errDialog != nil {
		content = m.layout.Center(m.renderError())
	} else {
		content = m.layout.Overlay(content, m.center.View(m.layout.Width/2))
	}

	return m.layout.RenderWithFrame(header, tabs, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewReader:
		return m.reader.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSetup:
		return m.setupView.View()
	default:
		return ""
	}
}

func (m Model) renderError() string {
	title := theme.ErrorTitleStyle.Render("Error")
	body := lipgloss.NewStyle().
		Width(max(min(m.layout.Width-10, 70), 20)).
		Render(errorText(m.errDialog))
	hint := theme.HelpStyle.Render("esc to dismiss")
	return theme.ErrorDialogStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", hint),
	)
}

func (m Model) title() string {
	title := "maillist"
	if m.cfg.Account.Name != "" {
		title += " · " + m.cfg.Account.Name
	}
	if f := m.list.Folder(); f != nil {
		if n := unreadCount(f); n > 0 {
			title += fmt.Sprintf(" [%d unread]", n)
		}
	}
	return title
}

func (m Model) connectivity() string {
	online := true
	if m.poller != nil {
		online = m.poller.Status().Online
	}
	if online {
		return theme.StatusTextStyle(true).Render("● online")
	}
	return theme.StatusTextStyle(false).Render("○ offline")
}

func (m Model) folderValues() []model.Folder {
	out := make([]model.Folder, 0, len(m.folders))
	for _, f := range m.folders {
		out = append(out, *f)
	}
	return out
}

func (m Model) activePath() string {
	if f := m.list.Folder(); f != nil {
		return f.Path
	}
	return ""
}

func unreadCount(f *model.Folder) int {
	n := 0
	for _, msg := range f.Messages {
		if msg.Unread {
			n++
		}
	}
	return n
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.errDialog != nil {
		return "esc dismiss"
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewReader:
		return "esc back | f flag | j/k scroll | n notification | ? help"
	case ViewSetup:
		return "enter next | shift+tab previous | esc cancel"
	default:
		if m.list.Searching() {
			return "enter keep results | esc clear search"
		}
		return "q quit | ? help | / search | enter open | tab folder | f flag | r refresh | : command"
	}
}
