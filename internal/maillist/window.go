package maillist

import (
	"sort"

	"github.com/nhle/maillist/internal/model"
)

// Default paging sizes.
const (
	DefaultInitDisplayLen   = 50
	DefaultScrollDisplayLen = 10
)

// DisplayWindow is the bounded, ordered slice of a folder's messages that
// is rendered. It is either a page prefix of the collection or a filtered
// subset, never both.
type DisplayWindow struct {
	initLen   int
	scrollLen int

	all      []*model.Message
	items    []*model.Message
	filtered bool
	pagedLen int
}

// NewDisplayWindow creates an empty window. Non-positive sizes fall back
// to the defaults.
func NewDisplayWindow(initLen, scrollLen int) *DisplayWindow {
	if initLen <= 0 {
		initLen = DefaultInitDisplayLen
	}
	if scrollLen <= 0 {
		scrollLen = DefaultScrollDisplayLen
	}
	return &DisplayWindow{initLen: initLen, scrollLen: scrollLen}
}

// Initialize sorts messages by uid descending and windows the first page.
// Any filter is dropped.
func (w *DisplayWindow) Initialize(messages []*model.Message) {
	w.all = sortedByUID(messages)
	w.filtered = false
	w.page(w.initLen)
}

// Extend appends the next page. It does nothing when the window already
// covers the collection or a filter is active, and reports whether the
// window grew.
func (w *DisplayWindow) Extend() bool {
	if w.filtered || len(w.items) >= len(w.all) {
		return false
	}
	w.page(len(w.items) + w.scrollLen)
	return true
}

// ApplyFilter replaces the window with every message matching keep.
func (w *DisplayWindow) ApplyFilter(keep func(*model.Message) bool) {
	var matches []*model.Message
	for _, m := range w.all {
		if keep(m) {
			matches = append(matches, m)
		}
	}
	w.SetFiltered(matches)
}

// SetFiltered replaces the window with matches, which must be drawn from
// the collection. Unknown and duplicate messages are dropped.
func (w *DisplayWindow) SetFiltered(matches []*model.Message) {
	if !w.filtered {
		w.pagedLen = len(w.items)
	}
	member := make(map[*model.Message]bool, len(w.all))
	for _, m := range w.all {
		member[m] = true
	}
	items := make([]*model.Message, 0, len(matches))
	for _, m := range matches {
		if member[m] {
			items = append(items, m)
			delete(member, m)
		}
	}
	w.items = items
	w.filtered = true
}

// ClearFilter restores the paged view from the collection head with the
// page length in effect before filtering.
func (w *DisplayWindow) ClearFilter() {
	if !w.filtered {
		return
	}
	w.filtered = false
	w.page(w.pagedLen)
}

// Refresh re-derives the window after the collection changed. The page
// length is kept (at least the initial length); an active filter is
// re-run through refilter.
func (w *DisplayWindow) Refresh(messages []*model.Message, refilter func([]*model.Message) []*model.Message) {
	w.all = sortedByUID(messages)
	if w.filtered && refilter != nil {
		w.SetFiltered(refilter(w.all))
		w.pagedLen = max(w.pagedLen, w.initLen)
		return
	}
	w.filtered = false
	w.page(max(len(w.items), w.initLen))
}

// Reset empties the window and forgets the collection.
func (w *DisplayWindow) Reset() {
	w.all = nil
	w.items = nil
	w.filtered = false
	w.pagedLen = 0
}

// Items returns the windowed messages. The slice must not be modified.
func (w *DisplayWindow) Items() []*model.Message { return w.items }

// Len returns the window length.
func (w *DisplayWindow) Len() int { return len(w.items) }

// Total returns the collection length.
func (w *DisplayWindow) Total() int { return len(w.all) }

// Filtered reports whether the window shows a filtered subset.
func (w *DisplayWindow) Filtered() bool { return w.filtered }

// Collection returns the sorted collection backing the window.
func (w *DisplayWindow) Collection() []*model.Message { return w.all }

func (w *DisplayWindow) page(n int) {
	n = min(max(n, 0), len(w.all))
	w.items = w.all[:n:n]
}

// sortedByUID returns a copy of messages sorted by uid descending, keeping
// the relative order of equal uids. Nil entries are dropped.
func sortedByUID(messages []*model.Message) []*model.Message {
	out := make([]*model.Message, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UID > out[j].UID
	})
	return out
}
