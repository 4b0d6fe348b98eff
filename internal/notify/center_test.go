package notify_test

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/maillist/internal/notify"
	"github.com/nhle/maillist/tests/testutil"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestCenter_CreateAndClose(t *testing.T) {
	c := notify.New()

	h1 := c.Create(notify.Notification{Title: "one"})
	h2 := c.Create(notify.Notification{Title: "two"})
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, []notify.Handle{h1, h2}, c.Open())

	c.Close(h1)
	assert.Equal(t, []notify.Handle{h2}, c.Open())

	c.Close(h1)
	c.Close("unknown")
	assert.Equal(t, []notify.Handle{h2}, c.Open())
}

func TestCenter_Expire(t *testing.T) {
	clk := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := notify.New(notify.WithClock(clk.now))

	short := c.Create(notify.Notification{Title: "short", Timeout: time.Second})
	long := c.Create(notify.Notification{Title: "long"})

	clk.t = clk.t.Add(2 * time.Second)
	c.Expire()
	assert.Equal(t, []notify.Handle{long}, c.Open())

	c.Close(short)
	assert.Equal(t, []notify.Handle{long}, c.Open())

	clk.t = clk.t.Add(notify.DefaultTimeout)
	cmd := c.Update(tea.Msg(nil))
	assert.Nil(t, cmd, "only ticks are handled")
	c.Expire()
	assert.Empty(t, c.Open())
}

func TestCenter_Click(t *testing.T) {
	c := notify.New()
	type opened struct{}

	clicks := 0
	h := c.Create(notify.Notification{
		Title: "mail",
		OnClick: func() tea.Cmd {
			clicks++
			return func() tea.Msg { return opened{} }
		},
	})

	cmd := c.Click(h)
	require.NotNil(t, cmd)
	assert.Equal(t, opened{}, cmd())
	assert.Equal(t, 1, clicks)
	assert.Empty(t, c.Open())

	assert.Nil(t, c.Click(h), "a closed notification cannot be clicked")
	assert.Equal(t, 1, clicks)
}

func TestCenter_PanickingClickIsContained(t *testing.T) {
	c := notify.New()
	bad := c.Create(notify.Notification{
		Title:   "bad",
		OnClick: func() tea.Cmd { panic("boom") },
	})
	good := c.Create(notify.Notification{
		Title:   "good",
		OnClick: func() tea.Cmd { return tea.Quit },
	})

	assert.NotPanics(t, func() { assert.Nil(t, c.Click(bad)) })
	assert.NotNil(t, c.ClickLatest())
	assert.NotContains(t, c.Open(), good)
}

func TestCenter_View(t *testing.T) {
	c := notify.New()
	assert.Empty(t, c.View(80))

	c.Create(notify.Notification{Title: "3 new messages", Body: "a\nb\nc\nd\ne"})
	view := c.View(80)
	assert.Contains(t, view, "3 new messages")
	assert.Contains(t, view, "and 2 more")
}

func TestCenter_RecordsLog(t *testing.T) {
	st := testutil.NewTestStore(t)
	c := notify.New(notify.WithRecorder(st))

	open := c.Create(notify.Notification{Title: "open", Folder: "INBOX", UIDs: []uint32{4}})
	closed := c.Create(notify.Notification{Title: "closed", Folder: "INBOX", UIDs: []uint32{5, 6}})
	c.Close(closed)
	c.Shutdown()

	notes, err := st.GetOpenNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, string(open), notes[0].ID)
	assert.Equal(t, []uint32{4}, notes[0].UIDs)
}
