// Package ledger keeps a local SQLite history of pipeline runs: which asset
// was resolved when, how far it got, and where the file went. It records
// outcomes only; nothing in it is read back by the pipeline.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snapetech/assetfetch/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id     TEXT    NOT NULL,
	name         TEXT    NOT NULL DEFAULT '',
	file_path    TEXT    NOT NULL DEFAULT '',
	bytes        INTEGER NOT NULL DEFAULT 0,
	creator_id   TEXT    NOT NULL DEFAULT '',
	creator_kind TEXT    NOT NULL DEFAULT '',
	place_id     TEXT    NOT NULL DEFAULT '',
	mirror_url   TEXT    NOT NULL DEFAULT '',
	stage        TEXT    NOT NULL,
	outcome      TEXT    NOT NULL,
	error        TEXT    NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS downloads_asset_id ON downloads(asset_id);
`

// Entry is one recorded run.
type Entry struct {
	ID          int64
	AssetID     string
	Name        string
	FilePath    string
	Bytes       int64
	CreatorID   string
	CreatorKind string
	PlaceID     string
	MirrorURL   string
	Stage       string
	Outcome     string
	Error       string
	CreatedAt   time.Time
}

// Ledger implements pipeline.Recorder.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// One writer; the pipeline is sequential anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// Record appends r.
func (l *Ledger) Record(ctx context.Context, r pipeline.Result) error {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	// The run may have been canceled; the row is still worth keeping.
	ctx = context.WithoutCancel(ctx)
	_, err := l.db.ExecContext(ctx, `INSERT INTO downloads
		(asset_id, name, file_path, bytes, creator_id, creator_kind, place_id, mirror_url, stage, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AssetID, r.Name, r.FilePath, r.Bytes, r.Creator.ID, string(r.Creator.Kind), r.PlaceID, r.MirrorURL,
		string(r.Stage), string(r.Outcome()), errText, l.now().Unix())
	if err != nil {
		return fmt.Errorf("ledger insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. assetID filters when non-empty.
func (l *Ledger) Recent(ctx context.Context, assetID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id, asset_id, name, file_path, bytes, creator_id, creator_kind, place_id, mirror_url, stage, outcome, error, created_at
		FROM downloads`
	args := []any{}
	if assetID != "" {
		q += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger query: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.AssetID, &e.Name, &e.FilePath, &e.Bytes, &e.CreatorID, &e.CreatorKind,
			&e.PlaceID, &e.MirrorURL, &e.Stage, &e.Outcome, &e.Error, &ts); err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
