package maillist

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
)

// RouteChangedMsg asks the app to change the open-message route. An empty
// UID closes the open message.
type RouteChangedMsg struct {
	UID string
}

// Navigate returns the command that routes to uid.
func Navigate(uid uint32) tea.Cmd {
	id := strconv.FormatUint(uint64(uid), 10)
	return func() tea.Msg { return RouteChangedMsg{UID: id} }
}

// ClearRoute returns the command that closes the open message.
func ClearRoute() tea.Cmd {
	return func() tea.Msg { return RouteChangedMsg{} }
}

// ErrorMsg carries a failure for the app's error dialog.
type ErrorMsg struct {
	Err error
}

func reportError(err error) tea.Cmd {
	return func() tea.Msg { return ErrorMsg{Err: err} }
}
