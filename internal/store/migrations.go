package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
	path        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL DEFAULT 'Other',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	folder      TEXT NOT NULL,
	uid         INTEGER NOT NULL,
	message_id  TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	from_addrs  TEXT NOT NULL DEFAULT '[]',
	to_addrs    TEXT NOT NULL DEFAULT '[]',
	unread      INTEGER NOT NULL DEFAULT 1,
	flagged     INTEGER NOT NULL DEFAULT 0,
	sent_at     DATETIME NOT NULL,
	fetched_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (folder, uid)
);

CREATE TABLE IF NOT EXISTS bodies (
	folder      TEXT NOT NULL,
	uid         INTEGER NOT NULL,
	text_body   TEXT NOT NULL DEFAULT '',
	html_body   TEXT NOT NULL DEFAULT '',
	encrypted   INTEGER NOT NULL DEFAULT 0,
	ciphertext  BLOB,
	PRIMARY KEY (folder, uid)
);

CREATE INDEX IF NOT EXISTS idx_messages_folder_uid ON messages(folder, uid DESC);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	folder      TEXT NOT NULL,
	uids        TEXT NOT NULL DEFAULT '[]',
	title       TEXT NOT NULL,
	body        TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	closed_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_notifications_closed ON notifications(closed_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
