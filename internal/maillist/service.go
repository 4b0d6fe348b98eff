package maillist

import (
	"context"

	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/notify"
)

// MailService is the mail backend the list drives. Offline failures are
// reported as errors matching mail.ErrOffline; OpenFolder may return
// cached messages together with such an error.
type MailService interface {
	OpenFolder(ctx context.Context, folder *model.Folder) ([]*model.Message, error)
	GetBody(ctx context.Context, folder *model.Folder, uid uint32) (*model.Body, error)
	MarkMessage(ctx context.Context, folder *model.Folder, uid uint32, unread bool) error
	FlagMessage(ctx context.Context, folder *model.Folder, uid uint32, flagged bool) error
}

// KeyService refreshes sender keys and decrypts bodies.
type KeyService interface {
	RefreshKeyForUserID(ctx context.Context, userID string) error
	DecryptBody(ctx context.Context, body *model.Body) (string, error)
}

// FilterFunc returns the messages matching query.
type FilterFunc func(messages []*model.Message, query string) []*model.Message

// Notifier shows notifications. Closing an expired or closed handle must
// be a no-op.
type Notifier interface {
	Create(n notify.Notification) notify.Handle
	Close(h notify.Handle)
}
