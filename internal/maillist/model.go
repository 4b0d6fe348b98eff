// Package maillist is the message list: a paged display window over the
// active folder, body fetches for the rows on screen, debounced search,
// selection side effects and new-mail notifications.
package maillist

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nhle/maillist/internal/keys"
	"github.com/nhle/maillist/internal/mail"
	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/theme"
)

// Default delays.
const (
	DefaultSearchDebounce = 500 * time.Millisecond
	DefaultScrollDebounce = 300 * time.Millisecond
)

// headerLines is the status line plus the search bar above the rows.
const headerLines = 2

// Options configures a Model. Zero values take the defaults.
type Options struct {
	InitDisplayLen      int
	ScrollDisplayLen    int
	SearchDebounce      time.Duration
	ScrollDebounce      time.Duration
	RowHeight           int
	NotificationTimeout time.Duration

	// Dev loads folders synchronously and skips selection side effects.
	Dev bool

	Now    func() time.Time
	Logger zerolog.Logger
}

// Async results. Each carries the folder generation it was issued under.
type (
	folderOpenedMsg struct {
		gen      uint64
		messages []*model.Message
		err      error
	}
	bodyFetchedMsg struct {
		gen  uint64
		uid  uint32
		body *model.Body
		err  error
	}
	keyRefreshedMsg struct {
		gen uint64
		uid uint32
		err error
	}
	decryptedMsg struct {
		gen       uint64
		uid       uint32
		plaintext string
		err       error
	}
	actionDoneMsg struct {
		op  string
		err error
	}
	searchFiredMsg struct {
		seq   uint64
		query string
	}
	scrollFiredMsg struct {
		seq uint64
	}
)

// Model is the message list component.
type Model struct {
	svc      MailService
	keys     KeyService
	filter   FilterFunc
	keymap   *keys.KeyMap
	opts     Options
	now      func() time.Time
	log      zerolog.Logger
	rowH     int
	window   *DisplayWindow
	tracker  *NotificationTracker
	status   *Status
	search   *debouncer
	scroll   *debouncer
	inflight map[uint32]bool

	folder   *model.Folder
	gen      uint64
	selected *model.Message
	query    string
	applied  string
	online   bool

	list       list.Model
	input      textinput.Model
	searchMode bool
	width      int
	height     int
	top        int
}

// New creates the message list.
func New(
	svc MailService,
	ks KeyService,
	filter FilterFunc,
	notifier Notifier,
	km *keys.KeyMap,
	opts Options,
) Model {
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = DefaultSearchDebounce
	}
	if opts.ScrollDebounce <= 0 {
		opts.ScrollDebounce = DefaultScrollDebounce
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = 2
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	l := list.New(nil, rowDelegate{height: opts.RowHeight, now: now}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetShowHelp(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	si := textinput.New()
	si.Placeholder = "search this folder..."
	si.Prompt = "/ "
	si.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		svc:      svc,
		keys:     ks,
		filter:   filter,
		keymap:   km,
		opts:     opts,
		now:      now,
		log:      opts.Logger,
		rowH:     opts.RowHeight,
		window:   NewDisplayWindow(opts.InitDisplayLen, opts.ScrollDisplayLen),
		tracker:  NewNotificationTracker(notifier, opts.NotificationTimeout),
		status:   NewStatus(),
		search:   newDebouncer(opts.SearchDebounce),
		scroll:   newDebouncer(opts.ScrollDebounce),
		inflight: make(map[uint32]bool),
		online:   true,
		list:     l,
		input:    si,
	}
}

// Folder returns the active folder.
func (m *Model) Folder() *model.Folder { return m.folder }

// Selected returns the open message, or nil.
func (m *Model) Selected() *model.Message { return m.selected }

// Window returns the display window.
func (m *Model) Window() *DisplayWindow { return m.window }

// Status returns the status line.
func (m *Model) Status() *Status { return m.status }

// Tracker returns the notification tracker.
func (m *Model) Tracker() *NotificationTracker { return m.tracker }

// Query returns the current search text.
func (m *Model) Query() string { return m.query }

// Searching reports whether the search input has focus.
func (m *Model) Searching() bool { return m.searchMode }

// SetFolder makes folder the active folder. Selection, search and window
// are cleared before the folder is loaded, and results still in flight
// for the previous folder are discarded when they arrive.
func (m *Model) SetFolder(folder *model.Folder) tea.Cmd {
	m.search.Cancel()
	m.scroll.Cancel()
	m.query = ""
	m.applied = ""
	m.input.Reset()
	m.input.Blur()
	m.searchMode = false
	m.selected = nil
	m.window.Reset()
	m.tracker.Reset()
	m.inflight = make(map[uint32]bool)
	m.gen++
	m.folder = folder
	m.status.SetSearching(false)
	m.syncList()
	m.list.ResetSelected()

	if folder == nil {
		return ClearRoute()
	}

	if m.opts.Dev {
		msgs, err := m.svc.OpenFolder(context.Background(), folder)
		m.status.Update(StatusLastUpdate, m.now())
		m.applyMessages(msgs)
		return tea.Batch(ClearRoute(), m.ScanVisible(), m.handleErr("opening folder", err))
	}

	return tea.Batch(ClearRoute(), m.openFolder())
}

// Reload reopens the active folder, keeping selection and window.
func (m *Model) Reload() tea.Cmd {
	if m.folder == nil {
		return nil
	}
	if m.opts.Dev {
		m.status.Update(StatusLastUpdate, m.now())
		return nil
	}
	return m.openFolder()
}

// SetOnline reacts to connectivity changes. Coming back online reloads
// the active folder.
func (m *Model) SetOnline(online bool) tea.Cmd {
	m.online = online
	m.status.SetOnline(online)
	if !online {
		m.status.Update(StatusOffline, time.Time{})
		return nil
	}
	m.status.Update(StatusOnline, time.Time{})
	return m.Reload()
}

// OnIncomingMessages merges new arrivals for folderPath into the active
// folder when it is that folder, and notifies about the unread ones.
func (m *Model) OnIncomingMessages(folderPath string, msgs []*model.Message) tea.Cmd {
	arrived := msgs
	var cmd tea.Cmd
	if m.folder != nil && m.folder.Path == folderPath {
		arrived = m.folder.Merge(msgs)
		if len(arrived) > 0 {
			m.window.Refresh(m.folder.Messages, m.refilter())
			m.syncList()
			cmd = m.ScanVisible()
		}
	}
	m.tracker.OnIncomingMessages(&model.Folder{Path: folderPath}, arrived)
	return cmd
}

// Flag sets the flagged state of a message in the active folder.
func (m *Model) Flag(msg *model.Message, flagged bool) tea.Cmd {
	if msg == nil || !m.folder.Contains(msg) {
		return nil
	}
	msg.Flagged = flagged
	svc, folder, uid := m.svc, m.folder, msg.UID
	return func() tea.Msg {
		err := svc.FlagMessage(context.Background(), folder, uid, flagged)
		return actionDoneMsg{op: "flagging message", err: err}
	}
}

// SetSize lays the list out at screen row top with the given size and
// rescans the visible rows.
func (m *Model) SetSize(width, height, top int) tea.Cmd {
	m.width = width
	m.height = height
	m.top = top
	m.list.SetSize(width, max(height-headerLines, 0))
	m.input.Width = max(width-4, 10)
	return m.ScanVisible()
}

// SetQuery replaces the search text, as if typed.
func (m *Model) SetQuery(q string) tea.Cmd {
	m.input.SetValue(q)
	return m.OnQueryChanged(q)
}

// Init returns nil; loading starts with SetFolder.
func (m Model) Init() tea.Cmd { return nil }

// Update handles messages for the list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case folderOpenedMsg:
		return m, m.onFolderOpened(msg)

	case bodyFetchedMsg:
		return m, m.onBodyFetched(msg)

	case keyRefreshedMsg:
		return m, m.onKeyRefreshed(msg)

	case decryptedMsg:
		return m, m.onDecrypted(msg)

	case actionDoneMsg:
		return m, m.handleErr(msg.op, msg.err)

	case searchFiredMsg:
		return m, m.onSearchFired(msg)

	case scrollFiredMsg:
		if !m.scroll.Fire(msg.seq) {
			return m, nil
		}
		return m, m.ScanVisible()

	case spinner.TickMsg:
		return m, m.status.Tick(msg)

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleSearchKeys processes key input while the search bar has focus.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.input.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.input.Blur()
		m.input.Reset()
		return m, m.OnQueryChanged("")
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		return m, tea.Batch(cmd, m.OnQueryChanged(after))
	}
	return m, cmd
}

// handleNormalKeys processes key input while the list has focus.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Select):
		it, ok := m.list.SelectedItem().(messageItem)
		if !ok {
			return m, nil
		}
		return m, Navigate(it.msg.UID)

	case key.Matches(msg, m.keymap.Search):
		m.searchMode = true
		return m, m.input.Focus()

	case key.Matches(msg, m.keymap.Flag):
		it, ok := m.list.SelectedItem().(messageItem)
		if !ok {
			return m, nil
		}
		return m, m.Flag(it.msg, !it.msg.Flagged)
	}

	page := m.list.Paginator.Page
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, tea.Batch(cmd, m.afterScroll(page))
}

// afterScroll extends the window when the last page is reached and
// schedules a rescan when the page changed.
func (m *Model) afterScroll(prevPage int) tea.Cmd {
	if m.list.Paginator.OnLastPage() && m.window.Extend() {
		m.syncList()
		return m.ScanVisible()
	}
	if m.list.Paginator.Page == prevPage {
		return nil
	}
	return m.scroll.Schedule(func(seq uint64) tea.Msg { return scrollFiredMsg{seq: seq} })
}

// VisibleRange returns the window indices currently on screen.
func (m *Model) VisibleRange() Range {
	n := m.window.Len()
	if m.height <= headerLines || n == 0 {
		return Range{}
	}
	perPage := max(m.list.Paginator.PerPage, 1)
	start, _ := m.list.Paginator.GetSliceBounds(n)
	top := m.top + headerLines
	viewport := Rect{Top: top, Bottom: top + perPage*m.rowH}
	return Scan(viewport, RowRects(top, m.rowH, start*m.rowH, n), n)
}

// ScanVisible requests bodies for the rows on screen, in row order.
// Rows with a body or a fetch in flight are skipped.
func (m *Model) ScanVisible() tea.Cmd {
	r := m.VisibleRange()
	if r.Empty() {
		return nil
	}
	items := m.window.Items()
	var cmds []tea.Cmd
	for i := r.Start; i < r.End; i++ {
		msg := items[i]
		if msg.Body != nil || m.inflight[msg.UID] {
			continue
		}
		m.inflight[msg.UID] = true
		cmds = append(cmds, m.fetchBody(msg.UID))
	}
	return tea.Batch(cmds...)
}

func (m *Model) openFolder() tea.Cmd {
	svc, folder, gen := m.svc, m.folder, m.gen
	return func() tea.Msg {
		msgs, err := svc.OpenFolder(context.Background(), folder)
		return folderOpenedMsg{gen: gen, messages: msgs, err: err}
	}
}

func (m *Model) fetchBody(uid uint32) tea.Cmd {
	svc, folder, gen := m.svc, m.folder, m.gen
	return func() tea.Msg {
		body, err := svc.GetBody(context.Background(), folder, uid)
		return bodyFetchedMsg{gen: gen, uid: uid, body: body, err: err}
	}
}

func (m *Model) onFolderOpened(msg folderOpenedMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	if msg.err == nil || msg.messages != nil {
		m.applyMessages(msg.messages)
	}
	if msg.err == nil && m.online && m.query == "" {
		m.status.Update(StatusOnline, time.Time{})
	}
	return tea.Batch(m.ScanVisible(), m.handleErr("opening folder", msg.err))
}

// applyMessages installs a freshly loaded collection, keeping the
// existing message values (and their bodies) for uids already known.
func (m *Model) applyMessages(msgs []*model.Message) {
	m.folder.Messages = reconcile(m.folder.Messages, msgs)
	if m.selected != nil && !m.folder.Contains(m.selected) {
		m.selected = nil
	}

	if m.window.Total() == 0 && !m.window.Filtered() {
		m.window.Initialize(m.folder.Messages)
	} else {
		m.window.Refresh(m.folder.Messages, m.refilter())
	}
	if m.applied != "" && !m.window.Filtered() && m.filter != nil {
		m.window.SetFiltered(m.filter(m.window.Collection(), m.applied))
	}
	m.syncList()
}

func (m *Model) onBodyFetched(msg bodyFetchedMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	delete(m.inflight, msg.uid)
	if msg.err != nil {
		return m.handleErr("fetching message body", msg.err)
	}

	message := m.folder.Find(msg.uid)
	if message == nil || msg.body == nil {
		return nil
	}
	message.Body = msg.body
	if message == m.selected {
		return m.decrypt(message)
	}
	return nil
}

func (m *Model) decrypt(message *model.Message) tea.Cmd {
	if message.Body == nil {
		if m.inflight[message.UID] {
			return nil
		}
		m.inflight[message.UID] = true
		return m.fetchBody(message.UID)
	}
	if m.keys == nil {
		return nil
	}
	ks, gen, uid, body := m.keys, m.gen, message.UID, message.Body
	return func() tea.Msg {
		text, err := ks.DecryptBody(context.Background(), body)
		return decryptedMsg{gen: gen, uid: uid, plaintext: text, err: err}
	}
}

func (m *Model) onDecrypted(msg decryptedMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	if msg.err != nil {
		return m.handleErr("decrypting message", msg.err)
	}
	if message := m.folder.Find(msg.uid); message != nil {
		message.Plaintext = msg.plaintext
		message.Decrypted = true
	}
	return nil
}

// handleErr routes err to the error dialog. Offline errors are expected
// and only logged.
func (m *Model) handleErr(op string, err error) tea.Cmd {
	if err == nil {
		return nil
	}
	if mail.IsOffline(err) {
		m.log.Debug().Err(err).Str("op", op).Msg("offline")
		return nil
	}
	m.log.Error().Err(err).Str("op", op).Msg("mail list operation failed")
	return reportError(err)
}

// refilter re-runs the query the window currently shows over a refreshed
// collection. A query still waiting on the debounce is left to fire.
func (m *Model) refilter() func([]*model.Message) []*model.Message {
	if m.applied == "" || m.filter == nil {
		return nil
	}
	q, filter := m.applied, m.filter
	return func(all []*model.Message) []*model.Message { return filter(all, q) }
}

// syncList hands the window to the list widget.
func (m *Model) syncList() {
	items := m.window.Items()
	listItems := make([]list.Item, len(items))
	for i, msg := range items {
		listItems[i] = messageItem{msg: msg}
	}
	m.list.SetItems(listItems)
}

// reconcile merges fresh into old by uid. Known messages keep their
// identity and body and take the fresh flags and headers.
func reconcile(old, fresh []*model.Message) []*model.Message {
	byUID := make(map[uint32]*model.Message, len(old))
	for _, m := range old {
		byUID[m.UID] = m
	}
	out := make([]*model.Message, 0, len(fresh))
	seen := make(map[uint32]bool, len(fresh))
	for _, f := range fresh {
		if f == nil || seen[f.UID] {
			continue
		}
		seen[f.UID] = true
		o, ok := byUID[f.UID]
		if !ok {
			out = append(out, f)
			continue
		}
		o.MessageID = f.MessageID
		o.From = f.From
		o.To = f.To
		o.Subject = f.Subject
		o.Unread = f.Unread
		o.Flagged = f.Flagged
		o.SentAt = f.SentAt
		if o.Body == nil {
			o.Body = f.Body
		}
		out = append(out, o)
	}
	return out
}

// View renders the status line, the search bar and the rows.
func (m Model) View() string {
	header := m.status.View()
	if m.folder != nil {
		label := theme.FolderStyle(string(m.folder.Type)).Render(m.folder.Name)
		header = lipgloss.JoinHorizontal(lipgloss.Left, label, header)
	}

	search := theme.SearchBarStyle.Render(m.input.View())
	if !m.searchMode && m.query == "" {
		search = theme.HelpStyle.Render("  / to search")
	}

	var body string
	if m.window.Len() == 0 {
		body = m.renderEmptyState()
	} else {
		body = m.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, search, body)
}

// renderEmptyState shows guidance text when there is nothing to list.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-headerLines, 1)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.folder == nil:
		return style.Render("No folder selected.")
	case m.query != "":
		return style.Render("No matches in this folder.")
	default:
		return style.Render("No messages.")
	}
}
