package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/maillist/internal/keys"
	"github.com/nhle/maillist/internal/mail"
	"github.com/nhle/maillist/internal/maillist"
	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/notify"
	appsync "github.com/nhle/maillist/internal/sync"
	"github.com/nhle/maillist/internal/ui"
	"github.com/nhle/maillist/internal/ui/command"
	helpview "github.com/nhle/maillist/internal/ui/help"
	"github.com/nhle/maillist/internal/ui/reader"
	"github.com/nhle/maillist/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewReader
	ViewHelp
	ViewCommand
	ViewSetup
)

// FolderService lists folders and serves the message list.
type FolderService interface {
	maillist.MailService
	ListFolders(ctx context.Context) ([]model.Folder, error)
}

// foldersLoadedMsg carries the folder list.
type foldersLoadedMsg struct {
	folders []model.Folder
	err     error
}

// Deps are the collaborators of the root model.
type Deps struct {
	Mail   FolderService
	Keys   maillist.KeyService
	Filter maillist.FilterFunc
	Center *notify.Center

	// Poller is optional; without it no new mail is picked up.
	Poller *appsync.Poller

	Config     *model.AppConfig
	ConfigPath string
	Secrets    setup.Secrets
}

// Options control startup behavior.
type Options struct {
	// Dev short-circuits selection side effects and loads synchronously.
	Dev bool

	// Folder is the path of the folder to open first; empty means the inbox.
	Folder string

	// Route is the uid of a message to open once the first folder loads.
	Route string

	Logger zerolog.Logger
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and the wiring between the message list and its surroundings.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	svc    FolderService
	center *notify.Center
	poller *appsync.Poller
	cfg    *model.AppConfig
	log    zerolog.Logger

	list        maillist.Model
	reader      reader.Model
	helpView    helpview.Model
	commandView command.Model
	setupView   setup.Model

	folders      []*model.Folder
	startFolder  string
	route        string
	pendingRoute string
	routeCleared bool
	errDialog    error
	ticking      bool
	ready        bool
}

// New creates the root application model.
func New(d Deps, opts Options) Model {
	km := keys.DefaultKeyMap()
	cfg := d.Config
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	center := d.Center
	if center == nil {
		center = notify.New()
	}

	listOpts := maillist.Options{
		InitDisplayLen:      cfg.Display.InitDisplayLen,
		ScrollDisplayLen:    cfg.Display.ScrollDisplayLen,
		SearchDebounce:      cfg.Display.SearchDebounce(),
		ScrollDebounce:      cfg.Display.ScrollDebounce(),
		RowHeight:           cfg.Display.RowHeight,
		NotificationTimeout: cfg.Notifications.Timeout(),
		Dev:                 opts.Dev,
		Logger:              opts.Logger,
	}

	var notifier maillist.Notifier = center
	if !cfg.Notifications.Enabled {
		notifier = nil
	}

	m := Model{
		currentView: ViewList,
		keys:        km,
		svc:         d.Mail,
		center:      center,
		poller:      d.Poller,
		cfg:         cfg,
		log:         opts.Logger,
		list:        maillist.New(d.Mail, d.Keys, d.Filter, notifier, km, listOpts),
		reader:      reader.New(km, 80, 24),
		helpView:    helpview.New(km, 80, 24),
		commandView: command.New(80, 24),
		setupView:   setup.New(*cfg, d.ConfigPath, d.Secrets, 80, 24),
		startFolder: opts.Folder,
		// The initial route waits for the first folder to load.
		pendingRoute: strings.TrimSpace(opts.Route),
	}

	if !opts.Dev && !cfg.Account.Configured() {
		m.currentView = ViewSetup
		m.setupView.Start()
	}
	return m
}

// Init loads the folders and starts polling. Without an account outside
// dev mode it shows the setup form instead.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewSetup {
		return m.setupView.Init()
	}
	cmds := []tea.Cmd{m.loadFolders()}
	if m.poller != nil {
		cmds = append(cmds, m.poller.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd := m.center.Update(msg); cmd != nil {
		if len(m.center.Open()) == 0 {
			m.ticking = false
			return m, nil
		}
		return m, cmd
	}

	m, cmd := m.update(msg)
	tick := m.ensureTicking()
	return m, tea.Batch(cmd, tick)
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.Width, m.layout.ContentHeight()
		m.reader.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.setupView.SetSize(w, h)
		cmd := m.list.SetSize(w, h, m.layout.ContentTop())
		if m.currentView == ViewSetup {
			var setupCmd tea.Cmd
			m.setupView, setupCmd = m.setupView.Update(msg)
			return m, tea.Batch(cmd, setupCmd)
		}
		return m, cmd

	case foldersLoadedMsg:
		return m.onFoldersLoaded(msg)

	case maillist.RouteChangedMsg:
		return m.onRouteChanged(msg.UID)

	case maillist.ErrorMsg:
		m.log.Error().Err(msg.Err).Msg("list error")
		m.errDialog = msg.Err
		return m, nil

	case appsync.IncomingMessagesMsg:
		cmd := m.list.OnIncomingMessages(msg.Folder, msg.Messages)
		m.reader.Sync()
		return m, tea.Batch(cmd, m.waitForPoll())

	case appsync.ConnectivityMsg:
		cmd := m.list.SetOnline(msg.Online)
		return m, tea.Batch(cmd, m.waitForPoll())

	case appsync.SyncErrorMsg:
		if msg.Auth {
			m.errDialog = msg.Err
		}
		return m, m.waitForPoll()

	case reader.BackMsg:
		return m, maillist.ClearRoute()

	case reader.FlagMsg:
		cmd := m.list.Flag(msg.Message, !msg.Message.Flagged)
		m.reader.Sync()
		return m, cmd

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case setup.SavedMsg:
		m.cfg = msg.Config
		m.setupView.SetConfig(*msg.Config)
		m.currentView = ViewList
		m.center.Create(notify.Notification{
			Title: "Settings saved",
			Body:  "Restart maillist to connect with the new account.",
		})
		return m, nil

	case setup.FailedMsg:
		m.currentView = ViewList
		m.errDialog = msg.Err
		return m, nil

	case setup.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Everything else belongs to the list or the active sub-view.
	var listCmd, viewCmd tea.Cmd
	m.list, listCmd = m.list.Update(msg)
	m.reader.Sync()
	routeCmd := m.applyPendingRoute()

	switch m.currentView {
	case ViewSetup:
		m.setupView, viewCmd = m.setupView.Update(msg)
	case ViewCommand:
		m.commandView, viewCmd = m.commandView.Update(msg)
	}
	return m, tea.Batch(listCmd, viewCmd, routeCmd)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	if m.errDialog != nil {
		switch msg.String() {
		case "esc", "enter", "q", " ":
			m.errDialog = nil
		}
		return m, nil
	}

	switch m.currentView {
	case ViewSetup:
		var cmd tea.Cmd
		m.setupView, cmd = m.setupView.Update(msg)
		return m, cmd

	case ViewCommand:
		var cmd tea.Cmd
		m.commandView, cmd = m.commandView.Update(msg)
		return m, cmd

	case ViewHelp:
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
		}
		return m, nil
	}

	// Typing into the search bar takes every key.
	if m.currentView == ViewList && m.list.Searching() {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus()

	case key.Matches(msg, m.keys.OpenNotification):
		return m, m.center.ClickLatest()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewReader {
			return m, maillist.ClearRoute()
		}
		return m, m.quit()
	}

	if m.currentView == ViewReader {
		var cmd tea.Cmd
		m.reader, cmd = m.reader.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.NextFolder):
		return m, m.cycleFolder(1)
	case key.Matches(msg, m.keys.PrevFolder):
		return m, m.cycleFolder(-1)
	}
	return m.updateList(msg)
}

func (m Model) updateList(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) loadFolders() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		folders, err := svc.ListFolders(context.Background())
		return foldersLoadedMsg{folders: folders, err: err}
	}
}

func (m Model) onFoldersLoaded(msg foldersLoadedMsg) (Model, tea.Cmd) {
	var errCmd tea.Cmd
	if msg.err != nil {
		if !mail.IsOffline(msg.err) {
			m.errDialog = fmt.Errorf("listing folders: %w", msg.err)
		} else {
			errCmd = m.list.SetOnline(false)
		}
	}

	m.folders = make([]*model.Folder, 0, len(msg.folders))
	for i := range msg.folders {
		f := msg.folders[i]
		m.folders = append(m.folders, &f)
	}
	if len(m.folders) == 0 {
		return m, errCmd
	}

	start := m.findFolder(m.startFolder)
	if start == nil {
		start = m.inbox()
	}
	return m, tea.Batch(errCmd, m.switchFolder(start))
}

// onRouteChanged applies a route write: the list resolves the id to a
// selection and the reader follows it.
func (m Model) onRouteChanged(uid string) (Model, tea.Cmd) {
	m.route = uid
	m.routeCleared = uid == ""
	cmd := m.list.OnExternalIDChange(uid)

	sel := m.list.Selected()
	if sel != nil {
		if m.currentView != ViewReader {
			m.previousView = m.currentView
		}
		m.currentView = ViewReader
		m.reader.SetMessage(sel)
		return m, cmd
	}

	m.reader.SetMessage(nil)
	if m.currentView == ViewReader {
		m.currentView = ViewList
	}
	// A folder switch clears the route; the startup route follows it.
	return m, tea.Batch(cmd, m.applyPendingRoute())
}

// applyPendingRoute opens the startup route once the active folder has
// messages and the route clear from switching to it has been seen.
func (m *Model) applyPendingRoute() tea.Cmd {
	if m.pendingRoute == "" || !m.routeCleared {
		return nil
	}
	f := m.list.Folder()
	if f == nil || f.Messages == nil {
		return nil
	}
	uid := m.pendingRoute
	m.pendingRoute = ""
	return func() tea.Msg { return maillist.RouteChangedMsg{UID: uid} }
}

func (m *Model) switchFolder(f *model.Folder) tea.Cmd {
	if f == nil || f == m.list.Folder() {
		return nil
	}
	m.log.Debug().Str("folder", f.Path).Msg("switch folder")
	m.routeCleared = false
	return m.list.SetFolder(f)
}

func (m *Model) cycleFolder(delta int) tea.Cmd {
	if len(m.folders) == 0 {
		return nil
	}
	cur := -1
	for i, f := range m.folders {
		if f == m.list.Folder() {
			cur = i
			break
		}
	}
	next := (cur + delta + len(m.folders)) % len(m.folders)
	return m.switchFolder(m.folders[next])
}

// findFolder matches a folder by path or display name, ignoring case.
func (m Model) findFolder(name string) *model.Folder {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, f := range m.folders {
		if strings.EqualFold(f.Path, name) || strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func (m Model) inbox() *model.Folder {
	for _, f := range m.folders {
		if f.IsInbox() {
			return f
		}
	}
	return m.folders[0]
}

// executeCommand runs a command from the palette.
func (m Model) executeCommand(c command.CommandMsg) (Model, tea.Cmd) {
	switch c.Name {
	case command.Folder:
		f := m.findFolder(c.Arg)
		if f == nil {
			m.errDialog = fmt.Errorf("no folder named %q", c.Arg)
			return m, nil
		}
		return m, m.switchFolder(f)

	case command.Search:
		m.currentView = ViewList
		return m, tea.Batch(maillist.ClearRoute(), m.list.SetQuery(c.Arg))

	case command.Open:
		uid := c.Arg
		return m, func() tea.Msg { return maillist.RouteChangedMsg{UID: uid} }

	case command.Sync:
		return m, m.refresh()

	case command.Setup:
		m.previousView = m.currentView
		m.currentView = ViewSetup
		return m, m.setupView.Start()

	case command.Quit:
		return m, m.quit()
	}
	return m, nil
}

func (m *Model) refresh() tea.Cmd {
	if m.poller != nil {
		m.poller.Refresh()
	}
	return m.list.Reload()
}

func (m *Model) quit() tea.Cmd {
	if m.poller != nil {
		m.poller.Stop()
	}
	return tea.Quit
}

func (m Model) waitForPoll() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	return m.poller.WaitForNextResult()
}

// ensureTicking starts the expiry tick while notifications are shown.
func (m *Model) ensureTicking() tea.Cmd {
	if m.ticking || len(m.center.Open()) == 0 {
		return nil
	}
	m.ticking = true
	return m.center.Tick()
}

// Route returns the uid of the open message, or "".
func (m Model) Route() string { return m.route }

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState { return m.currentView }

// Err returns the error shown in the dialog, if any.
func (m Model) Err() error { return m.errDialog }

// errorText renders err for the dialog.
func errorText(err error) string {
	var authErr *mail.AuthError
	if errors.As(err, &authErr) {
		return authErr.Error() + "\n\nUse :setup to update the account."
	}
	return err.Error()
}
