package maillist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/maillist/internal/model"
)

// messages builds n messages with uids 1..n in ascending order.
func messages(n int) []*model.Message {
	out := make([]*model.Message, n)
	for i := range out {
		out[i] = &model.Message{UID: uint32(i + 1), Subject: "subject"}
	}
	return out
}

func windowUIDs(w *DisplayWindow) []uint32 {
	out := []uint32{}
	for _, m := range w.Items() {
		out = append(out, m.UID)
	}
	return out
}

func TestDisplayWindow_InitializeAndExtend(t *testing.T) {
	for _, n := range []int{0, 1, 49, 50, 51, 60, 75, 200} {
		w := NewDisplayWindow(0, 0)
		w.Initialize(messages(n))
		require.Equal(t, min(n, 50), w.Len(), "n=%d", n)

		items := w.Items()
		for i := 1; i < len(items); i++ {
			assert.Greater(t, items[i-1].UID, items[i].UID)
		}

		want := min(n, 50)
		for want < n {
			assert.True(t, w.Extend())
			want = min(n, want+10)
			require.Equal(t, want, w.Len(), "n=%d", n)
		}
		assert.False(t, w.Extend(), "extend past the collection is a no-op")
		assert.Equal(t, n, w.Len())
	}
}

func TestDisplayWindow_InitializeIsStable(t *testing.T) {
	a := &model.Message{UID: 5, Subject: "a"}
	b := &model.Message{UID: 5, Subject: "b"}
	c := &model.Message{UID: 9, Subject: "c"}

	w := NewDisplayWindow(10, 10)
	w.Initialize([]*model.Message{a, b, nil, c})
	assert.Equal(t, []*model.Message{c, a, b}, w.Items())
}

func TestDisplayWindow_NilCollection(t *testing.T) {
	w := NewDisplayWindow(0, 0)
	w.Initialize(nil)
	assert.Equal(t, 0, w.Len())
	assert.False(t, w.Extend())
	w.ClearFilter()
	assert.Equal(t, 0, w.Len())
}

func TestDisplayWindow_FilterRoundTrip(t *testing.T) {
	w := NewDisplayWindow(50, 10)
	msgs := messages(120)
	w.Initialize(msgs)
	w.Extend()
	w.Extend()
	before := windowUIDs(w)
	require.Len(t, before, 70)

	w.ApplyFilter(func(m *model.Message) bool { return m.UID%7 == 0 })
	assert.True(t, w.Filtered())
	assert.Len(t, w.Items(), 17, "filter is independent of paging")
	assert.False(t, w.Extend(), "extend is a no-op while filtered")

	w.ClearFilter()
	assert.False(t, w.Filtered())
	assert.Equal(t, before, windowUIDs(w))
}

func TestDisplayWindow_SetFilteredDropsForeignAndDuplicates(t *testing.T) {
	w := NewDisplayWindow(50, 10)
	msgs := messages(3)
	w.Initialize(msgs)

	foreign := &model.Message{UID: 2}
	w.SetFiltered([]*model.Message{msgs[1], msgs[1], foreign, msgs[0]})
	assert.Equal(t, []uint32{2, 1}, windowUIDs(w))
}

func TestDisplayWindow_RefreshKeepsPageLength(t *testing.T) {
	w := NewDisplayWindow(50, 10)
	msgs := messages(100)
	w.Initialize(msgs)
	w.Extend()
	require.Equal(t, 60, w.Len())

	msgs = append(msgs, &model.Message{UID: 101})
	w.Refresh(msgs, nil)
	assert.Equal(t, 60, w.Len())
	assert.Equal(t, uint32(101), w.Items()[0].UID)
}

func TestDisplayWindow_RefreshRerunsFilter(t *testing.T) {
	w := NewDisplayWindow(50, 10)
	msgs := messages(10)
	w.Initialize(msgs)

	onlyNew := func(all []*model.Message) []*model.Message {
		var out []*model.Message
		for _, m := range all {
			if strings.HasPrefix(m.Subject, "new") {
				out = append(out, m)
			}
		}
		return out
	}
	w.SetFiltered(onlyNew(w.Collection()))
	assert.Equal(t, 0, w.Len())

	msgs = append(msgs, &model.Message{UID: 11, Subject: "new mail"})
	w.Refresh(msgs, onlyNew)
	assert.True(t, w.Filtered())
	assert.Equal(t, []uint32{11}, windowUIDs(w))

	w.ClearFilter()
	assert.Equal(t, 11, w.Len())
}

func TestDisplayWindow_Reset(t *testing.T) {
	w := NewDisplayWindow(50, 10)
	w.Initialize(messages(5))
	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 0, w.Total())
}
