package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// UnreadStyle marks the sender line of unread messages.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// DimmedStyle is used for secondary row text such as snippets and dates.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// FlagStyle renders the flag marker.
var FlagStyle = lipgloss.NewStyle().
	Foreground(ColorOrange)

// UnreadDotStyle renders the unread marker.
var UnreadDotStyle = lipgloss.NewStyle().
	Foreground(ColorBlue)

// SearchBarStyle frames the search input above the list.
var SearchBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Padding(0, 1)

// ToastStyle frames an in-terminal notification.
var ToastStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBlue)

// ToastTitleStyle is the title line of a notification.
var ToastTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// ErrorDialogStyle frames the error dialog.
var ErrorDialogStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorRed)

// ErrorTitleStyle is the title of the error dialog.
var ErrorTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// StatusTextStyle returns the style for the status line text given the
// connectivity state.
func StatusTextStyle(online bool) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1)
	if online {
		return base.Foreground(ColorGreen)
	}
	return base.Foreground(ColorYellow)
}

// FolderStyle returns a color-coded style for a folder type label.
func FolderStyle(folderType string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch folderType {
	case "Inbox":
		return base.Foreground(ColorBlue)
	case "Sent", "Drafts":
		return base.Foreground(ColorGreen)
	case "Flagged":
		return base.Foreground(ColorOrange)
	case "Trash", "Junk":
		return base.Foreground(ColorRed)
	case "Archive":
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}
