package maillist

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/notify"
)

// DefaultNotificationTimeout is the auto-expiry of new-mail notifications.
const DefaultNotificationTimeout = 5 * time.Second

// NotificationTracker creates notifications for unread arrivals and keeps
// the handles that have not been clicked or closed yet.
type NotificationTracker struct {
	notifier Notifier
	timeout  time.Duration
	pending  []notify.Handle
}

// NewNotificationTracker creates a tracker. A nil notifier disables
// notifications.
func NewNotificationTracker(n Notifier, timeout time.Duration) *NotificationTracker {
	if timeout <= 0 {
		timeout = DefaultNotificationTimeout
	}
	return &NotificationTracker{notifier: n, timeout: timeout}
}

// OnIncomingMessages notifies about the unread messages among msgs.
// Clicking the notification forgets its handle and navigates to the
// first unread message.
func (t *NotificationTracker) OnIncomingMessages(folder *model.Folder, msgs []*model.Message) {
	if t.notifier == nil {
		return
	}

	var unread []*model.Message
	for _, m := range msgs {
		if m != nil && m.Unread {
			unread = append(unread, m)
		}
	}
	if len(unread) == 0 {
		return
	}

	title, body := summarize(unread)
	uids := make([]uint32, len(unread))
	for i, m := range unread {
		uids[i] = m.UID
	}
	first := unread[0].UID

	var path string
	if folder != nil {
		path = folder.Path
	}

	var h notify.Handle
	h = t.notifier.Create(notify.Notification{
		Title:   title,
		Body:    body,
		Folder:  path,
		UIDs:    uids,
		Timeout: t.timeout,
		OnClick: func() tea.Cmd {
			t.forget(h)
			return Navigate(first)
		},
	})
	t.pending = append(t.pending, h)
}

// CloseAll closes and forgets every pending handle.
func (t *NotificationTracker) CloseAll() {
	for len(t.pending) > 0 {
		h := t.pending[0]
		t.pending = t.pending[1:]
		t.notifier.Close(h)
	}
	t.pending = nil
}

// Reset forgets every pending handle without closing it.
func (t *NotificationTracker) Reset() { t.pending = nil }

// Pending returns the pending handles, oldest first.
func (t *NotificationTracker) Pending() []notify.Handle {
	return append([]notify.Handle(nil), t.pending...)
}

func (t *NotificationTracker) forget(h notify.Handle) {
	for i, p := range t.pending {
		if p == h {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

// summarize builds the title and body for a batch of unread messages.
func summarize(unread []*model.Message) (title, body string) {
	if len(unread) == 1 {
		return unread[0].Sender().DisplayName(), unread[0].Subject
	}
	subjects := make([]string, len(unread))
	for i, m := range unread {
		subjects[i] = m.Subject
	}
	return fmt.Sprintf("%d new messages", len(unread)), strings.Join(subjects, "\n")
}
