package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	TabsHeight      int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// The header, folder tabs and status bar are one line each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		TabsHeight:      1,
		StatusBarHeight: 1,
	}
}

// ContentTop returns the first terminal row of the content area.
func (l Layout) ContentTop() int {
	return l.HeaderHeight + l.TabsHeight
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, folder tabs and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.TabsHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the top header bar with a title and status text.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderTabs renders the folder bar, highlighting the active folder.
func (l Layout) RenderTabs(folders []model.Folder, active string) string {
	tabs := make([]string, 0, len(folders))
	for _, f := range folders {
		style := theme.FolderStyle(string(f.Type))
		if f.Path == active {
			style = style.Underline(true).Reverse(true)
		}
		tabs = append(tabs, style.Render(f.Name))
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return lipgloss.NewStyle().MaxWidth(l.Width).Render(bar)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, folder tabs, content area and status bar.
func (l Layout) RenderWithFrame(
	header string,
	tabs string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		tabs,
		content,
		statusBar,
	)
}

// Overlay replaces the bottom lines of content with box, right aligned.
// Content is padded to the content height first.
func (l Layout) Overlay(content, box string) string {
	if box == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	for len(lines) < l.ContentHeight() {
		lines = append(lines, "")
	}
	boxLines := strings.Split(box, "\n")
	if len(boxLines) > len(lines) {
		boxLines = boxLines[len(boxLines)-len(lines):]
	}

	start := len(lines) - len(boxLines)
	for i, bl := range boxLines {
		lines[start+i] = lipgloss.PlaceHorizontal(l.Width, lipgloss.Right, bl)
	}
	return strings.Join(lines, "\n")
}

// Center places box in the middle of the content area.
func (l Layout) Center(box string) string {
	return lipgloss.Place(l.Width, l.ContentHeight(), lipgloss.Center, lipgloss.Center, box)
}
