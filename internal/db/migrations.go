package db

import "database/sql"

func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// clicked_at is a unix timestamp so day bucketing can happen in any timezone.
const schema = `
CREATE TABLE IF NOT EXISTS links (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    workspace     TEXT    NOT NULL,
    slug          TEXT    NOT NULL,
    domain        TEXT    NOT NULL,
    destination   TEXT    NOT NULL,
    name          TEXT    NOT NULL DEFAULT '',
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    INTEGER NOT NULL,
    UNIQUE(slug, domain)
);

CREATE INDEX IF NOT EXISTS idx_links_workspace ON links(workspace) WHERE is_active = 1;

CREATE TABLE IF NOT EXISTS clicks (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    link_id     INTEGER NOT NULL,
    clicked_at  INTEGER NOT NULL,
    user_agent  TEXT    NOT NULL DEFAULT '',
    country     TEXT    NOT NULL DEFAULT '',
    is_bot      INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (link_id) REFERENCES links(id)
);

CREATE INDEX IF NOT EXISTS idx_clicks_link_time ON clicks(link_id, clicked_at);
`
