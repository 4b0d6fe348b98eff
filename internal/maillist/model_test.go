package maillist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/maillist/internal/keys"
	"github.com/nhle/maillist/internal/mail"
	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/notify"
)

type markCall struct {
	folder string
	uid    uint32
	value  bool
}

type fakeMail struct {
	mu        sync.Mutex
	folders   map[string][]*model.Message
	openErr   error
	opens     []string
	bodyErr   error
	bodyCalls []uint32
	marks     []markCall
	flags     []markCall
}

func (f *fakeMail) OpenFolder(_ context.Context, folder *model.Folder) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, folder.Path)
	return f.folders[folder.Path], f.openErr
}

func (f *fakeMail) GetBody(_ context.Context, _ *model.Folder, uid uint32) (*model.Body, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodyCalls = append(f.bodyCalls, uid)
	if f.bodyErr != nil {
		return nil, f.bodyErr
	}
	return &model.Body{Text: fmt.Sprintf("body %d", uid)}, nil
}

func (f *fakeMail) MarkMessage(_ context.Context, folder *model.Folder, uid uint32, unread bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, markCall{folder.Path, uid, unread})
	return nil
}

func (f *fakeMail) FlagMessage(_ context.Context, folder *model.Folder, uid uint32, flagged bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags = append(f.flags, markCall{folder.Path, uid, flagged})
	return nil
}

type fakeKeys struct {
	mu         sync.Mutex
	refreshErr error
	decryptErr error
	refreshed  []string
	decrypted  int
}

func (f *fakeKeys) RefreshKeyForUserID(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, userID)
	return f.refreshErr
}

func (f *fakeKeys) DecryptBody(_ context.Context, body *model.Body) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrypted++
	if f.decryptErr != nil {
		return "", f.decryptErr
	}
	return "plain: " + body.Text, nil
}

type fakeNotifier struct {
	created []notify.Notification
	handles []notify.Handle
	closed  []notify.Handle
}

func (f *fakeNotifier) Create(n notify.Notification) notify.Handle {
	h := notify.Handle("h" + strconv.Itoa(len(f.created)+1))
	f.created = append(f.created, n)
	f.handles = append(f.handles, h)
	return h
}

func (f *fakeNotifier) Close(h notify.Handle) {
	f.closed = append(f.closed, h)
}

type filterCall struct {
	query string
	n     int
}

type harness struct {
	m        *Model
	mail     *fakeMail
	keys     *fakeKeys
	notifier *fakeNotifier
	filters  []filterCall
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		mail:     &fakeMail{folders: map[string][]*model.Message{}},
		keys:     &fakeKeys{},
		notifier: &fakeNotifier{},
	}
	if opts.SearchDebounce == 0 {
		opts.SearchDebounce = 5 * time.Millisecond
	}
	if opts.ScrollDebounce == 0 {
		opts.ScrollDebounce = 5 * time.Millisecond
	}
	filter := func(msgs []*model.Message, q string) []*model.Message {
		h.filters = append(h.filters, filterCall{query: q, n: len(msgs)})
		var out []*model.Message
		for _, m := range msgs {
			if strings.Contains(strings.ToLower(m.Subject), strings.ToLower(q)) {
				out = append(out, m)
			}
		}
		return out
	}
	m := New(h.mail, h.keys, filter, h.notifier, keys.DefaultKeyMap(), opts)
	h.m = &m
	// 10 rows of height 2 below the two header lines.
	h.m.SetSize(80, 22, 0)
	return h
}

// drive runs cmd and every command it produces, feeding results back
// into the model. Route changes and errors are returned.
func (h *harness) drive(cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case RouteChangedMsg, ErrorMsg:
			out = append(out, msg)
		default:
			var next tea.Cmd
			*h.m, next = h.m.Update(msg)
			queue = append(queue, next)
		}
	}
	return out
}

// send delivers msg to the model and drives the resulting command.
func (h *harness) send(msg tea.Msg) []tea.Msg {
	var cmd tea.Cmd
	*h.m, cmd = h.m.Update(msg)
	return h.drive(cmd)
}

func (h *harness) key(k tea.KeyType) []tea.Msg {
	return h.send(tea.KeyMsg{Type: k})
}

func (h *harness) runes(r rune) []tea.Msg {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func newInbox() *model.Folder {
	return &model.Folder{Path: "INBOX", Name: "INBOX", Type: model.FolderTypeInbox}
}

func generate(n int, prefix string) []*model.Message {
	out := make([]*model.Message, n)
	for i := range out {
		uid := uint32(i + 1)
		out[i] = &model.Message{
			UID:     uid,
			Subject: fmt.Sprintf("%s %d", prefix, uid),
			From:    []model.Address{{Name: "Sender", Address: fmt.Sprintf("s%d@example.com", uid)}},
		}
	}
	return out
}

func errorsIn(msgs []tea.Msg) []error {
	var out []error
	for _, m := range msgs {
		if e, ok := m.(ErrorMsg); ok {
			out = append(out, e.Err)
		}
	}
	return out
}

func TestModel_OpenFolderWindowsAndFetchesVisibleBodies(t *testing.T) {
	h := newHarness(t, Options{})
	inbox := newInbox()
	h.mail.folders["INBOX"] = generate(120, "mail")

	out := h.drive(h.m.SetFolder(inbox))
	assert.Contains(t, out, tea.Msg(RouteChangedMsg{}))
	assert.Empty(t, errorsIn(out))

	require.Equal(t, 50, h.m.Window().Len())
	assert.Equal(t, uint32(120), h.m.Window().Items()[0].UID)
	assert.Equal(t, Range{Start: 0, End: 10}, h.m.VisibleRange())

	want := []uint32{120, 119, 118, 117, 116, 115, 114, 113, 112, 111}
	assert.Equal(t, want, h.mail.bodyCalls, "bodies requested in row order")
	assert.Equal(t, "body 120", inbox.Find(120).Body.Text)
	assert.Nil(t, inbox.Find(110).Body)

	// A second scan over fetched rows requests nothing.
	h.drive(h.m.ScanVisible())
	assert.Len(t, h.mail.bodyCalls, 10)
}

func TestModel_NotLaidOutSkipsScan(t *testing.T) {
	h := newHarness(t, Options{})
	h.m.SetSize(0, 0, 0)
	h.mail.folders["INBOX"] = generate(20, "mail")

	h.drive(h.m.SetFolder(newInbox()))
	assert.Equal(t, 20, h.m.Window().Len())
	assert.Empty(t, h.mail.bodyCalls)

	h.drive(h.m.SetSize(80, 22, 0))
	assert.Len(t, h.mail.bodyCalls, 10, "resize rescans immediately")
}

func TestModel_ScrollIsDebouncedAndExtendsOnLastPage(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(100, "mail")
	h.drive(h.m.SetFolder(newInbox()))
	require.Len(t, h.mail.bodyCalls, 10)

	h.key(tea.KeyPgDown)
	assert.Equal(t, Range{Start: 10, End: 20}, h.m.VisibleRange())
	assert.Len(t, h.mail.bodyCalls, 20)
	assert.Equal(t, uint32(101), h.mail.bodyCalls[19])

	h.key(tea.KeyPgDown)
	h.key(tea.KeyPgDown)
	assert.Equal(t, 50, h.m.Window().Len())

	h.key(tea.KeyPgDown)
	assert.Equal(t, 60, h.m.Window().Len(), "reaching the last page extends the window")
}

func TestModel_ScrollDebounceCoalesces(t *testing.T) {
	h := newHarness(t, Options{ScrollDebounce: time.Hour})
	h.mail.folders["INBOX"] = generate(100, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	for i := 0; i < 2; i++ {
		*h.m, _ = h.m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	}
	assert.True(t, h.m.scroll.Pending())

	*h.m, _ = h.m.Update(scrollFiredMsg{seq: 1})
	assert.Len(t, h.mail.bodyCalls, 10, "superseded scroll scan must not run")

	h.drive(func() tea.Msg { return scrollFiredMsg{seq: 2} })
	assert.Len(t, h.mail.bodyCalls, 20)
	assert.Equal(t, Range{Start: 20, End: 30}, h.m.VisibleRange())
}

func TestModel_SearchAppliesOnlyLastQuery(t *testing.T) {
	h := newHarness(t, Options{})
	msgs := generate(80, "mail")
	msgs[4].Subject = "abc report"
	msgs[70].Subject = "ABC notes"
	h.mail.folders["INBOX"] = msgs
	h.drive(h.m.SetFolder(newInbox()))

	c1 := h.m.OnQueryChanged("a")
	assert.Equal(t, StatusSearching, h.m.Status().Text())
	assert.True(t, h.m.Status().Searching())
	c2 := h.m.OnQueryChanged("ab")
	c3 := h.m.OnQueryChanged("abc")

	h.drive(c1)
	h.drive(c2)
	assert.Empty(t, h.filters)
	h.drive(c3)

	require.Len(t, h.filters, 1)
	assert.Equal(t, "abc", h.filters[0].query)
	assert.Equal(t, 80, h.filters[0].n, "search covers the whole folder")
	assert.Equal(t, []uint32{71, 5}, windowUIDs(h.m.Window()))
	assert.Equal(t, StatusMatches, h.m.Status().Text())
	assert.False(t, h.m.Status().Searching())

	h.drive(h.m.OnQueryChanged(""))
	assert.Equal(t, 50, h.m.Window().Len())
	assert.False(t, h.m.Window().Filtered())
	assert.Equal(t, StatusOnline, h.m.Status().Text())
	assert.False(t, h.m.Status().Searching())
}

func TestModel_ClearingQueryCancelsPendingSearch(t *testing.T) {
	h := newHarness(t, Options{SearchDebounce: time.Hour})
	h.mail.folders["INBOX"] = generate(10, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	_ = h.m.OnQueryChanged("mail")
	h.drive(h.m.OnQueryChanged(""))

	*h.m, _ = h.m.Update(searchFiredMsg{seq: 1, query: "mail"})
	assert.Empty(t, h.filters)
	assert.False(t, h.m.Window().Filtered())
}

func TestModel_FilterRoundTripRestoresPagedView(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(100, "mail")
	h.drive(h.m.SetFolder(newInbox()))
	for i := 0; i < 4; i++ {
		h.key(tea.KeyPgDown)
	}
	before := windowUIDs(h.m.Window())
	require.Len(t, before, 60)

	h.drive(h.m.OnQueryChanged("mail 9"))
	assert.True(t, h.m.Window().Filtered())
	h.drive(h.m.OnQueryChanged(""))
	assert.Equal(t, before, windowUIDs(h.m.Window()))
}

func TestModel_SelectionParsesIDs(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(5, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	h.drive(h.m.OnExternalIDChange(" 3 "))
	require.NotNil(t, h.m.Selected())
	assert.Equal(t, uint32(3), h.m.Selected().UID)

	h.drive(h.m.OnExternalIDChange("999"))
	assert.Nil(t, h.m.Selected())

	h.drive(h.m.OnExternalIDChange("2"))
	h.drive(h.m.OnExternalIDChange("not-a-uid"))
	assert.Nil(t, h.m.Selected())

	h.drive(h.m.OnExternalIDChange("2"))
	h.drive(h.m.OnExternalIDChange(""))
	assert.Nil(t, h.m.Selected())
}

func TestModel_SelectingUnreadInboxMessageClosesNotifications(t *testing.T) {
	h := newHarness(t, Options{})
	msgs := generate(5, "mail")
	msgs[2].Unread = true
	h.mail.folders["INBOX"] = msgs
	inbox := newInbox()
	h.drive(h.m.SetFolder(inbox))

	h.drive(h.m.OnIncomingMessages("INBOX", []*model.Message{
		{UID: 6, Unread: true, Subject: "six"},
	}))
	h.drive(h.m.OnIncomingMessages("INBOX", []*model.Message{
		{UID: 7, Unread: true, Subject: "seven"},
	}))
	require.Len(t, h.m.Tracker().Pending(), 2)

	out := h.drive(h.m.OnExternalIDChange("3"))
	assert.Empty(t, errorsIn(out))

	msg := inbox.Find(3)
	assert.False(t, msg.Unread)
	assert.Equal(t, []string{"s3@example.com"}, h.keys.refreshed)
	assert.Equal(t, 1, h.keys.decrypted)
	assert.Equal(t, "plain: body 3", msg.Plaintext)
	assert.True(t, msg.Decrypted)
	assert.Equal(t, []markCall{{"INBOX", 3, false}}, h.mail.marks)
	assert.Empty(t, h.m.Tracker().Pending())
	assert.Equal(t, []notify.Handle{"h1", "h2"}, h.notifier.closed)
}

func TestModel_SelectingUnreadOutsideInboxKeepsNotifications(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(3, "mail")
	sent := generate(3, "sent")
	sent[0].Unread = true
	h.mail.folders["Archive"] = sent

	archive := &model.Folder{Path: "Archive", Name: "Archive", Type: model.FolderTypeArchive}
	h.drive(h.m.SetFolder(archive))
	h.drive(h.m.OnIncomingMessages("INBOX", []*model.Message{{UID: 9, Unread: true, Subject: "new"}}))
	require.Len(t, h.m.Tracker().Pending(), 1)

	h.drive(h.m.OnExternalIDChange("1"))
	assert.False(t, archive.Find(1).Unread)
	assert.Equal(t, []markCall{{"Archive", 1, false}}, h.mail.marks)
	assert.Len(t, h.m.Tracker().Pending(), 1)
	assert.Empty(t, h.notifier.closed)
}

func TestModel_SelectionFailuresDoNotBlockReadState(t *testing.T) {
	h := newHarness(t, Options{})
	msgs := generate(3, "mail")
	msgs[0].Unread = true
	h.mail.folders["INBOX"] = msgs
	h.keys.refreshErr = errors.New("key server down")
	h.keys.decryptErr = errors.New("bad key")
	inbox := newInbox()
	h.drive(h.m.SetFolder(inbox))

	out := h.drive(h.m.OnExternalIDChange("1"))
	errs := errorsIn(out)
	require.Len(t, errs, 2)
	assert.EqualError(t, errs[0], "key server down")
	assert.EqualError(t, errs[1], "bad key")

	require.NotNil(t, h.m.Selected())
	assert.Equal(t, uint32(1), h.m.Selected().UID)
	assert.False(t, inbox.Find(1).Unread)
	assert.Len(t, h.mail.marks, 1)
}

func TestModel_ReadMessageIsNotMarkedAgain(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(3, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	h.drive(h.m.OnExternalIDChange("2"))
	assert.Empty(t, h.mail.marks)
	assert.Equal(t, 1, h.keys.decrypted)
}

func TestModel_DevModeShortCircuits(t *testing.T) {
	h := newHarness(t, Options{Dev: true, Now: func() time.Time {
		return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	}})
	msgs := generate(3, "mail")
	msgs[0].Unread = true
	h.mail.folders["INBOX"] = msgs
	inbox := newInbox()

	cmd := h.m.SetFolder(inbox)
	assert.Equal(t, 3, h.m.Window().Len(), "dev folders load synchronously")
	assert.Equal(t, StatusLastUpdate, h.m.Status().Text())
	assert.False(t, h.m.Status().At().IsZero())
	h.drive(cmd)

	assert.Nil(t, h.m.OnExternalIDChange("1"))
	assert.Equal(t, uint32(1), h.m.Selected().UID)
	assert.True(t, inbox.Find(1).Unread)
	assert.Empty(t, h.keys.refreshed)
}

func TestModel_StaleFolderResultsAreDiscarded(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["A"] = generate(30, "a")
	h.mail.folders["B"] = generate(5, "b")
	a := &model.Folder{Path: "A", Name: "A"}
	b := &model.Folder{Path: "B", Name: "B"}

	staleOpen := h.m.SetFolder(a)
	h.drive(h.m.SetFolder(b))
	require.Equal(t, 5, h.m.Window().Len())

	h.drive(staleOpen)
	assert.Nil(t, a.Messages, "stale open must not touch folder A")
	assert.Equal(t, 5, h.m.Window().Len())
	assert.Equal(t, "b 5", h.m.Window().Items()[0].Subject)
}

func TestModel_StaleBodyIsDiscarded(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["A"] = generate(3, "a")
	h.mail.folders["B"] = generate(3, "b")
	a := &model.Folder{Path: "A", Name: "A"}
	b := &model.Folder{Path: "B", Name: "B"}

	h.drive(h.m.SetFolder(a))
	a.Find(3).Body = nil
	fetch := h.m.fetchBody(3)

	h.drive(h.m.SetFolder(b))
	b.Find(3).Body = nil

	h.drive(fetch)
	assert.Nil(t, a.Find(3).Body)
	assert.Nil(t, b.Find(3).Body)
}

func TestModel_FolderChangeClearsState(t *testing.T) {
	h := newHarness(t, Options{SearchDebounce: time.Hour})
	h.mail.folders["INBOX"] = generate(10, "mail")
	h.drive(h.m.SetFolder(newInbox()))
	h.drive(h.m.OnExternalIDChange("2"))
	_ = h.m.OnQueryChanged("mail")
	h.drive(h.m.OnIncomingMessages("INBOX", []*model.Message{{UID: 11, Unread: true}}))

	cmd := h.m.SetFolder(&model.Folder{Path: "Archive"})
	assert.Nil(t, h.m.Selected())
	assert.Empty(t, h.m.Query())
	assert.Equal(t, 0, h.m.Window().Len())
	assert.Empty(t, h.m.Tracker().Pending())

	out := h.drive(cmd)
	assert.Contains(t, out, tea.Msg(RouteChangedMsg{}))
	assert.Empty(t, h.filters, "pending search was cancelled")
}

func TestModel_OfflineErrorsAreSuppressed(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(4, "cached")
	h.mail.openErr = fmt.Errorf("opening INBOX: %w", mail.ErrOffline)
	h.mail.bodyErr = &mail.Error{Code: mail.CodeOffline, Op: "fetch"}

	out := h.drive(h.m.SetFolder(newInbox()))
	assert.Empty(t, errorsIn(out))
	assert.Equal(t, 4, h.m.Window().Len(), "cached messages are shown offline")
	assert.Len(t, h.mail.bodyCalls, 4)

	h.mail.bodyErr = nil
	h.drive(h.m.ScanVisible())
	assert.Len(t, h.mail.bodyCalls, 8, "failed fetches are retried on the next scan")
}

func TestModel_OtherErrorsReachTheDialog(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.openErr = errors.New("NO such mailbox")

	out := h.drive(h.m.SetFolder(newInbox()))
	errs := errorsIn(out)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "NO such mailbox")
	assert.Equal(t, 0, h.m.Window().Len())
}

func TestModel_SelectedBodyIsDecryptedOnArrival(t *testing.T) {
	h := newHarness(t, Options{})
	h.m.SetSize(0, 0, 0)
	h.mail.folders["INBOX"] = generate(3, "mail")
	inbox := newInbox()
	h.drive(h.m.SetFolder(inbox))
	require.Nil(t, inbox.Find(2).Body)

	h.drive(h.m.OnExternalIDChange("2"))
	assert.Equal(t, []uint32{2}, h.mail.bodyCalls)
	assert.Equal(t, "plain: body 2", inbox.Find(2).Plaintext)
}

func TestModel_IncomingMessagesMergeAndNotify(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(3, "mail")
	inbox := newInbox()
	h.drive(h.m.SetFolder(inbox))

	h.drive(h.m.OnIncomingMessages("INBOX", []*model.Message{
		{UID: 3, Unread: true, Subject: "duplicate"},
		{UID: 4, Unread: true, Subject: "four", From: []model.Address{{Address: "x@example.com"}}},
		{UID: 5, Unread: false, Subject: "five"},
	}))

	assert.Len(t, inbox.Messages, 5)
	assert.Equal(t, uint32(5), h.m.Window().Items()[0].UID)
	require.Len(t, h.notifier.created, 1)
	n := h.notifier.created[0]
	assert.Equal(t, "x@example.com", n.Title)
	assert.Equal(t, "four", n.Body)
	assert.Equal(t, []uint32{4}, n.UIDs)
	assert.Equal(t, DefaultNotificationTimeout, n.Timeout)
	assert.Contains(t, h.mail.bodyCalls, uint32(4), "arrivals on screen are fetched")
}

func TestModel_IncomingDuringSearchKeepsFilter(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(10, "mail")
	h.drive(h.m.SetFolder(newInbox()))
	h.drive(h.m.OnQueryChanged("invoice"))
	require.Equal(t, 0, h.m.Window().Len())

	h.drive(h.m.OnIncomingMessages("INBOX", []*model.Message{{UID: 11, Subject: "Invoice 42"}}))
	assert.True(t, h.m.Window().Filtered())
	assert.Equal(t, []uint32{11}, windowUIDs(h.m.Window()))
}

func TestModel_SetOnline(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(3, "mail")
	inbox := newInbox()
	h.drive(h.m.SetFolder(inbox))
	h.drive(h.m.OnExternalIDChange("2"))
	selected := h.m.Selected()

	h.drive(h.m.SetOnline(false))
	assert.Equal(t, StatusOffline, h.m.Status().Text())

	h.mail.folders["INBOX"] = append(generate(3, "mail"), &model.Message{UID: 4, Subject: "mail 4"})
	h.drive(h.m.SetOnline(true))
	assert.Equal(t, StatusOnline, h.m.Status().Text())
	assert.Equal(t, []string{"INBOX", "INBOX"}, h.mail.opens)
	assert.Equal(t, 4, h.m.Window().Len())
	assert.Same(t, selected, h.m.Selected(), "reload keeps message identity")
	assert.Same(t, selected, inbox.Find(2))
}

func TestModel_Flag(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(3, "mail")
	inbox := newInbox()
	h.drive(h.m.SetFolder(inbox))

	h.drive(h.m.Flag(inbox.Find(1), true))
	assert.True(t, inbox.Find(1).Flagged)
	assert.Equal(t, []markCall{{"INBOX", 1, true}}, h.mail.flags)

	assert.Nil(t, h.m.Flag(&model.Message{UID: 1}, true), "foreign messages are ignored")

	h.runes('f')
	require.Len(t, h.mail.flags, 2)
	assert.Equal(t, markCall{"INBOX", 3, true}, h.mail.flags[1])
}

func TestModel_EnterNavigates(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(3, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	out := h.key(tea.KeyEnter)
	assert.Equal(t, []tea.Msg{RouteChangedMsg{UID: "3"}}, out)
}

func TestModel_TypingSearches(t *testing.T) {
	h := newHarness(t, Options{})
	h.mail.folders["INBOX"] = generate(20, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	h.runes('/')
	require.True(t, h.m.Searching())
	h.runes('1')
	assert.Equal(t, "1", h.m.Query())
	assert.Equal(t, []uint32{19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 1}, windowUIDs(h.m.Window()))

	h.key(tea.KeyEsc)
	assert.False(t, h.m.Searching())
	assert.Empty(t, h.m.Query())
	assert.Equal(t, 20, h.m.Window().Len())
}

func TestModel_View(t *testing.T) {
	h := newHarness(t, Options{})
	assert.Contains(t, h.m.View(), "No folder selected.")

	h.mail.folders["INBOX"] = generate(3, "mail")
	h.drive(h.m.SetFolder(newInbox()))
	view := h.m.View()
	assert.Contains(t, view, "INBOX")
	assert.Contains(t, view, "mail 3")
}

func TestModel_IncomingWhileSearchPendingKeepsAppliedQuery(t *testing.T) {
	h := newHarness(t, Options{SearchDebounce: time.Hour})
	h.mail.folders["INBOX"] = generate(10, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	_ = h.m.OnQueryChanged("mail 1")
	*h.m, _ = h.m.Update(searchFiredMsg{seq: 1, query: "mail 1"})
	require.Equal(t, []uint32{10, 1}, windowUIDs(h.m.Window()))

	_ = h.m.OnQueryChanged("mail 10")
	_ = h.m.OnIncomingMessages("INBOX", []*model.Message{{UID: 11, Subject: "mail 11"}})

	assert.Equal(t, []filterCall{{query: "mail 1", n: 10}, {query: "mail 1", n: 11}}, h.filters)
	assert.Equal(t, []uint32{11, 10, 1}, windowUIDs(h.m.Window()))
	assert.Equal(t, StatusSearching, h.m.Status().Text())
	assert.True(t, h.m.Status().Searching())

	*h.m, _ = h.m.Update(searchFiredMsg{seq: 2, query: "mail 10"})
	assert.Equal(t, []uint32{10}, windowUIDs(h.m.Window()))
	assert.Equal(t, StatusMatches, h.m.Status().Text())
}

func TestModel_FirstOpenDropsDuplicateAndNilMessages(t *testing.T) {
	h := newHarness(t, Options{})
	inbox := newInbox()
	h.mail.folders["INBOX"] = []*model.Message{
		{UID: 2, Subject: "two"},
		{UID: 1, Subject: "one"},
		nil,
		{UID: 2, Subject: "two again"},
	}

	out := h.drive(h.m.SetFolder(inbox))
	assert.Empty(t, errorsIn(out))
	assert.Equal(t, []uint32{2, 1}, windowUIDs(h.m.Window()))
	require.Len(t, inbox.Messages, 2)
	assert.Equal(t, "two", inbox.Find(2).Subject)
}

func TestModel_ReloadWithoutFilterFunc(t *testing.T) {
	h := newHarness(t, Options{SearchDebounce: time.Hour})
	h.m.filter = nil
	h.mail.folders["INBOX"] = generate(5, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	_ = h.m.OnQueryChanged("mail")
	*h.m, _ = h.m.Update(searchFiredMsg{seq: 1, query: "mail"})

	assert.NotPanics(t, func() { h.drive(h.m.Reload()) })
	assert.Equal(t, 5, h.m.Window().Len())
}

func TestModel_WhitespaceQueryIsASearch(t *testing.T) {
	h := newHarness(t, Options{SearchDebounce: time.Hour})
	h.mail.folders["INBOX"] = generate(5, "mail")
	h.drive(h.m.SetFolder(newInbox()))

	_ = h.m.OnQueryChanged("  ")
	assert.Equal(t, "  ", h.m.Query())
	assert.Equal(t, StatusSearching, h.m.Status().Text())
	assert.True(t, h.m.Status().Searching())
	assert.True(t, h.m.search.Pending())
}
