package maillist

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// OnQueryChanged reacts to a change of the search text. An empty query
// restores the paged view at once; anything else is applied after the
// search debounce, and only the last query typed within it is applied.
func (m *Model) OnQueryChanged(text string) tea.Cmd {
	m.search.Cancel()

	if text == "" {
		m.query = ""
		m.applied = ""
		m.window.ClearFilter()
		m.syncList()
		m.status.SetSearching(false)
		m.status.Update(m.idleStatus(), time.Time{})
		return m.ScanVisible()
	}

	m.query = text
	spin := m.status.SetSearching(true)
	m.status.Update(StatusSearching, time.Time{})
	fire := m.search.Schedule(func(seq uint64) tea.Msg {
		return searchFiredMsg{seq: seq, query: text}
	})
	return tea.Batch(spin, fire)
}

func (m *Model) onSearchFired(msg searchFiredMsg) tea.Cmd {
	if !m.search.Fire(msg.seq) {
		return nil
	}
	m.applied = msg.query
	if m.filter != nil {
		m.window.SetFiltered(m.filter(m.window.Collection(), msg.query))
	}
	m.syncList()
	m.list.ResetSelected()
	m.status.SetSearching(false)
	m.status.Update(StatusMatches, time.Time{})
	return m.ScanVisible()
}

func (m *Model) idleStatus() string {
	if m.online {
		return StatusOnline
	}
	return StatusOffline
}
