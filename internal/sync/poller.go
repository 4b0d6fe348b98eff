package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/maillist/internal/mail"
	"github.com/nhle/maillist/internal/model"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus is a snapshot of the poller's state.
type SyncStatus struct {
	State    SyncState
	Online   bool
	LastSync time.Time
	Error    error
}

// IncomingMessagesMsg is a tea.Msg carrying messages that arrived in a folder
// since the previous poll.
type IncomingMessagesMsg struct {
	Folder   string
	Messages []*model.Message
}

// ConnectivityMsg is sent when the server becomes reachable or unreachable.
type ConnectivityMsg struct {
	Online bool
}

// SyncErrorMsg is sent when a poll fails for a reason other than being
// offline.
type SyncErrorMsg struct {
	Err  error
	Auth bool
}

// Fetcher returns messages newer than the ones already known for a folder.
type Fetcher interface {
	FetchNew(ctx context.Context, folder *model.Folder) ([]*model.Message, error)
}

const (
	// fetchTimeout is the maximum time allowed for a single poll.
	fetchTimeout = 30 * time.Second

	defaultInterval = 60 * time.Second
)

// Poller polls a single folder for arrivals in the background.
type Poller struct {
	fetcher   Fetcher
	folder    model.Folder
	interval  time.Duration
	log       zerolog.Logger
	resultCh  chan tea.Msg
	triggerCh chan struct{}
	stopCh    chan struct{}
	done      chan struct{}

	mu      gosync.Mutex
	running bool
	status  SyncStatus
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the time between polls.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger used for poll failures.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) { p.log = l }
}

// New creates a Poller for the given folder.
func New(f Fetcher, folder model.Folder, opts ...Option) *Poller {
	p := &Poller{
		fetcher:   f,
		folder:    folder,
		interval:  defaultInterval,
		log:       zerolog.Nop(),
		resultCh:  make(chan tea.Msg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		status:    SyncStatus{Online: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to its results.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	<-p.done
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A poll is already queued.
	}
	return nil
}

// Status returns the current sync status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll performs a single fetch and reports arrivals and connectivity
// changes on the result channel.
func (p *Poller) poll() {
	p.setState(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	folder := p.folder
	msgs, err := p.fetcher.FetchNew(ctx, &folder)

	if err != nil {
		if mail.IsOffline(err) {
			p.setState(SyncIdle, nil)
			if p.setOnline(false) {
				p.send(ConnectivityMsg{Online: false})
			}
			return
		}

		p.setState(SyncError, err)
		p.log.Warn().Err(err).Str("folder", p.folder.Path).Msg("poll failed")
		p.send(SyncErrorMsg{Err: err, Auth: mail.IsAuthError(err)})
		return
	}

	p.setState(SyncIdle, nil)
	if p.setOnline(true) {
		p.send(ConnectivityMsg{Online: true})
	}
	if len(msgs) > 0 {
		p.log.Debug().Int("count", len(msgs)).Str("folder", p.folder.Path).Msg("new messages")
		p.send(IncomingMessagesMsg{Folder: p.folder.Path, Messages: msgs})
	}
}

func (p *Poller) setState(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// setOnline records connectivity and reports whether it changed.
func (p *Poller) setOnline(online bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status.Online == online {
		return false
	}
	p.status.Online = online
	return true
}

// send delivers a message on the result channel unless the poller stops
// first.
func (p *Poller) send(msg tea.Msg) {
	select {
	case p.resultCh <- msg:
	case <-p.stopCh:
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.done:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// Call it after handling a result to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
