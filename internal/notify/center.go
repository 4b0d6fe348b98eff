// Package notify shows in-terminal notifications ("toasts") and keeps a
// log of them in the local store.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/theme"
)

// DefaultTimeout is how long a notification stays up without a timeout
// of its own.
const DefaultTimeout = 5 * time.Second

const tickInterval = 500 * time.Millisecond

// Handle identifies a notification created by a Center.
type Handle string

// Notification describes a notification to show.
type Notification struct {
	Title string
	Body  string

	// Folder and UIDs record which messages the notification is about.
	Folder string
	UIDs   []uint32

	// Timeout is the auto-expiry; zero means DefaultTimeout.
	Timeout time.Duration

	// OnClick runs when the user activates the notification.
	OnClick func() tea.Cmd
}

// Recorder persists the notification log.
type Recorder interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	CloseNotification(ctx context.Context, id string, at time.Time) error
}

type toast struct {
	handle  Handle
	n       Notification
	expires time.Time
}

// tickMsg drives expiry.
type tickMsg time.Time

// Center owns the open notifications. All methods must be called from the
// bubbletea update loop.
type Center struct {
	toasts   []toast
	recorder Recorder
	writes   chan func(context.Context)
	done     chan struct{}
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Center.
type Option func(*Center)

// WithRecorder logs notifications through r.
func WithRecorder(r Recorder) Option {
	return func(c *Center) { c.recorder = r }
}

// WithLogger sets the center logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Center) { c.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// New creates a Center. With a recorder, a background writer persists the
// log in order until Shutdown.
func New(opts ...Option) *Center {
	c := &Center{
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.recorder != nil {
		c.writes = make(chan func(context.Context), 64)
		c.done = make(chan struct{})
		go c.drain()
	}
	return c
}

// Create shows n and returns its handle.
func (c *Center) Create(n Notification) Handle {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := c.now()
	h := Handle(uuid.NewString())
	c.toasts = append(c.toasts, toast{handle: h, n: n, expires: now.Add(timeout)})

	c.record(func(ctx context.Context) error {
		return c.recorder.CreateNotification(ctx, model.Notification{
			ID:        string(h),
			Folder:    n.Folder,
			UIDs:      n.UIDs,
			Title:     n.Title,
			Body:      n.Body,
			CreatedAt: now,
		})
	})
	return h
}

// Close removes the notification. Closing an unknown, expired or already
// closed handle does nothing.
func (c *Center) Close(h Handle) {
	if _, ok := c.remove(h); ok {
		c.recordClose(h)
	}
}

// Click activates the notification: it is closed and its OnClick runs. A
// panicking handler is logged and does not affect other notifications.
func (c *Center) Click(h Handle) tea.Cmd {
	t, ok := c.remove(h)
	if !ok {
		return nil
	}
	c.recordClose(h)
	if t.n.OnClick == nil {
		return nil
	}
	return c.safeClick(t)
}

// ClickLatest activates the newest notification.
func (c *Center) ClickLatest() tea.Cmd {
	if len(c.toasts) == 0 {
		return nil
	}
	return c.Click(c.toasts[len(c.toasts)-1].handle)
}

// Open returns the handles of the shown notifications, oldest first.
func (c *Center) Open() []Handle {
	out := make([]Handle, 0, len(c.toasts))
	for _, t := range c.toasts {
		out = append(out, t.handle)
	}
	return out
}

// Tick returns the command that drives expiry.
func (c *Center) Tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update expires notifications on tick and schedules the next tick.
func (c *Center) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tickMsg); !ok {
		return nil
	}
	c.Expire()
	return c.Tick()
}

// Expire drops every notification past its timeout.
func (c *Center) Expire() {
	now := c.now()
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if now.Before(t.expires) {
			kept = append(kept, t)
			continue
		}
		c.recordClose(t.handle)
	}
	c.toasts = kept
}

// View renders the open notifications stacked, newest last.
func (c *Center) View(width int) string {
	if len(c.toasts) == 0 {
		return ""
	}
	if width <= 0 {
		width = 40
	}
	boxWidth := min(width, 48)

	views := make([]string, 0, len(c.toasts))
	for _, t := range c.toasts {
		body := strings.TrimSpace(t.n.Body)
		lines := strings.Split(body, "\n")
		if len(lines) > 3 {
			lines = append(lines[:3], fmt.Sprintf("… and %d more", len(lines)-3))
		}
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.ToastTitleStyle.Render(t.n.Title),
			strings.Join(lines, "\n"),
		)
		views = append(views, theme.ToastStyle.Width(boxWidth-2).Render(content))
	}
	return lipgloss.JoinVertical(lipgloss.Right, views...)
}

// Shutdown stops the background writer after pending writes finish.
func (c *Center) Shutdown() {
	if c.writes == nil {
		return
	}
	close(c.writes)
	<-c.done
	c.writes = nil
}

func (c *Center) remove(h Handle) (toast, bool) {
	for i, t := range c.toasts {
		if t.handle == h {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return t, true
		}
	}
	return toast{}, false
}

func (c *Center) safeClick(t toast) (cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("notification", string(t.handle)).
				Interface("panic", r).
				Msg("notification click handler panicked")
			cmd = nil
		}
	}()
	return t.n.OnClick()
}

func (c *Center) recordClose(h Handle) {
	at := c.now()
	c.record(func(ctx context.Context) error {
		return c.recorder.CloseNotification(ctx, string(h), at)
	})
}

// record queues a write. When the queue is full the write is dropped.
func (c *Center) record(write func(context.Context) error) {
	if c.writes == nil {
		return
	}
	fn := func(ctx context.Context) {
		if err := write(ctx); err != nil {
			c.log.Warn().Err(err).Msg("recording notification")
		}
	}
	select {
	case c.writes <- fn:
	default:
		c.log.Warn().Msg("notification log queue full, dropping write")
	}
}

func (c *Center) drain() {
	defer close(c.done)
	for fn := range c.writes {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		fn(ctx)
		cancel()
	}
}
