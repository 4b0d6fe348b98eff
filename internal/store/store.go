package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/maillist/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for the local mail cache and
// the notification log.
type Store interface {
	// === Folders ===

	UpsertFolders(ctx context.Context, folders []model.Folder) error
	GetFolders(ctx context.Context) ([]model.Folder, error)

	// === Messages ===

	UpsertMessages(ctx context.Context, folder string, msgs []*model.Message) error
	GetMessages(ctx context.Context, folder string, limit int) ([]*model.Message, error)
	SetUnread(ctx context.Context, folder string, uid uint32, unread bool) error
	SetFlagged(ctx context.Context, folder string, uid uint32, flagged bool) error
	MaxUID(ctx context.Context, folder string) (uint32, error)

	// === Bodies ===

	SaveBody(ctx context.Context, folder string, uid uint32, body *model.Body) error
	GetBody(ctx context.Context, folder string, uid uint32) (*model.Body, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	CloseNotification(ctx context.Context, id string, at time.Time) error
	GetOpenNotifications(ctx context.Context) ([]model.Notification, error)
}
