package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/maillist/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertFolders inserts or replaces folder rows.
func (s *SQLiteStore) UpsertFolders(ctx context.Context, folders []model.Folder) error {
	if len(folders) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range folders {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO folders (path, name, type, updated_at)
			VALUES (?, ?, ?, ?)`,
			f.Path, f.Name, string(f.Type), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting folder %s: %w", f.Path, err)
		}
	}

	return tx.Commit()
}

type folderRow struct {
	Path      string    `db:"path"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GetFolders returns all cached folders, inbox first.
func (s *SQLiteStore) GetFolders(ctx context.Context) ([]model.Folder, error) {
	var rows []folderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT path, name, type, updated_at FROM folders
		ORDER BY CASE type WHEN 'Inbox' THEN 0 ELSE 1 END, path`)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}

	folders := make([]model.Folder, 0, len(rows))
	for _, r := range rows {
		folders = append(folders, model.Folder{
			Path: r.Path,
			Name: r.Name,
			Type: model.FolderType(r.Type),
		})
	}
	return folders, nil
}

// UpsertMessages inserts or replaces message summaries for a folder.
// Bodies are stored separately and survive summary updates.
func (s *SQLiteStore) UpsertMessages(
	ctx context.Context,
	folder string,
	msgs []*model.Message,
) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO messages (
			folder, uid, message_id, subject,
			from_addrs, to_addrs, unread, flagged,
			sent_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range msgs {
		from, err := json.Marshal(m.From)
		if err != nil {
			return fmt.Errorf("marshaling from for uid %d: %w", m.UID, err)
		}
		to, err := json.Marshal(m.To)
		if err != nil {
			return fmt.Errorf("marshaling to for uid %d: %w", m.UID, err)
		}

		_, err = stmt.ExecContext(ctx,
			folder, m.UID, m.MessageID, m.Subject,
			string(from), string(to), boolToInt(m.Unread), boolToInt(m.Flagged),
			m.SentAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("upserting message %s/%d: %w", folder, m.UID, err)
		}
	}

	return tx.Commit()
}

type messageRow struct {
	UID       uint32    `db:"uid"`
	MessageID string    `db:"message_id"`
	Subject   string    `db:"subject"`
	From      string    `db:"from_addrs"`
	To        string    `db:"to_addrs"`
	Unread    int       `db:"unread"`
	Flagged   int       `db:"flagged"`
	SentAt    time.Time `db:"sent_at"`
}

// GetMessages returns the newest cached summaries of a folder, uid
// descending. A non-positive limit returns everything.
func (s *SQLiteStore) GetMessages(
	ctx context.Context,
	folder string,
	limit int,
) ([]*model.Message, error) {
	query := `
		SELECT uid, message_id, subject, from_addrs, to_addrs, unread, flagged, sent_at
		FROM messages WHERE folder = ? ORDER BY uid DESC`
	args := []interface{}{folder}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying messages for %s: %w", folder, err)
	}

	msgs := make([]*model.Message, 0, len(rows))
	for _, r := range rows {
		m := &model.Message{
			UID:       r.UID,
			MessageID: r.MessageID,
			Subject:   r.Subject,
			Unread:    r.Unread != 0,
			Flagged:   r.Flagged != 0,
			SentAt:    r.SentAt,
		}
		if err := json.Unmarshal([]byte(r.From), &m.From); err != nil {
			return nil, fmt.Errorf("unmarshaling from for uid %d: %w", r.UID, err)
		}
		if err := json.Unmarshal([]byte(r.To), &m.To); err != nil {
			return nil, fmt.Errorf("unmarshaling to for uid %d: %w", r.UID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// SetUnread updates the cached read state of a message.
func (s *SQLiteStore) SetUnread(ctx context.Context, folder string, uid uint32, unread bool) error {
	return s.setFlag(ctx, "unread", folder, uid, unread)
}

// SetFlagged updates the cached flagged state of a message.
func (s *SQLiteStore) SetFlagged(ctx context.Context, folder string, uid uint32, flagged bool) error {
	return s.setFlag(ctx, "flagged", folder, uid, flagged)
}

// setFlag updates one boolean column; column is never user input.
func (s *SQLiteStore) setFlag(
	ctx context.Context,
	column, folder string,
	uid uint32,
	value bool,
) error {
	query := fmt.Sprintf("UPDATE messages SET %s = ? WHERE folder = ? AND uid = ?", column)
	res, err := s.db.ExecContext(ctx, query, boolToInt(value), folder, uid)
	if err != nil {
		return fmt.Errorf("updating %s for %s/%d: %w", column, folder, uid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating %s for %s/%d: %w", column, folder, uid, ErrNotFound)
	}
	return nil
}

// MaxUID returns the highest cached uid of a folder, or 0.
func (s *SQLiteStore) MaxUID(ctx context.Context, folder string) (uint32, error) {
	var uid uint32
	err := s.db.GetContext(ctx, &uid,
		"SELECT COALESCE(MAX(uid), 0) FROM messages WHERE folder = ?", folder)
	if err != nil {
		return 0, fmt.Errorf("reading max uid for %s: %w", folder, err)
	}
	return uid, nil
}

// SaveBody stores a fetched body.
func (s *SQLiteStore) SaveBody(
	ctx context.Context,
	folder string,
	uid uint32,
	body *model.Body,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bodies (folder, uid, text_body, html_body, encrypted, ciphertext)
		VALUES (?, ?, ?, ?, ?, ?)`,
		folder, uid, body.Text, body.HTML, boolToInt(body.Encrypted), body.Ciphertext,
	)
	if err != nil {
		return fmt.Errorf("saving body %s/%d: %w", folder, uid, err)
	}
	return nil
}

type bodyRow struct {
	Text       string `db:"text_body"`
	HTML       string `db:"html_body"`
	Encrypted  int    `db:"encrypted"`
	Ciphertext []byte `db:"ciphertext"`
}

// GetBody returns a cached body or ErrNotFound.
func (s *SQLiteStore) GetBody(
	ctx context.Context,
	folder string,
	uid uint32,
) (*model.Body, error) {
	var r bodyRow
	err := s.db.GetContext(ctx, &r, `
		SELECT text_body, html_body, encrypted, ciphertext
		FROM bodies WHERE folder = ? AND uid = ?`, folder, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting body %s/%d: %w", folder, uid, err)
	}
	return &model.Body{
		Text:       r.Text,
		HTML:       r.HTML,
		Encrypted:  r.Encrypted != 0,
		Ciphertext: r.Ciphertext,
	}, nil
}

// CreateNotification inserts a new notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	uids, err := json.Marshal(n.UIDs)
	if err != nil {
		return fmt.Errorf("marshaling notification uids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, folder, uids, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Folder, string(uids), n.Title, n.Body, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification %s: %w", n.ID, err)
	}
	return nil
}

// CloseNotification records when a notification went away. Closing an
// already closed notification keeps the first timestamp.
func (s *SQLiteStore) CloseNotification(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET closed_at = ? WHERE id = ? AND closed_at IS NULL",
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("closing notification %s: %w", id, err)
	}
	return nil
}

type notificationRow struct {
	ID        string       `db:"id"`
	Folder    string       `db:"folder"`
	UIDs      string       `db:"uids"`
	Title     string       `db:"title"`
	Body      string       `db:"body"`
	CreatedAt time.Time    `db:"created_at"`
	ClosedAt  sql.NullTime `db:"closed_at"`
}

// GetOpenNotifications returns notifications that were never closed,
// oldest first.
func (s *SQLiteStore) GetOpenNotifications(ctx context.Context) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, folder, uids, title, body, created_at, closed_at
		FROM notifications WHERE closed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying open notifications: %w", err)
	}

	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n := model.Notification{
			ID:        r.ID,
			Folder:    r.Folder,
			Title:     r.Title,
			Body:      r.Body,
			CreatedAt: r.CreatedAt,
		}
		if err := json.Unmarshal([]byte(r.UIDs), &n.UIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling notification uids: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
