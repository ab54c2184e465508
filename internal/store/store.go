package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "modernc.org/sqlite"

	"waybacktweets/internal/record"
)

// DB persists assembled tweet records so repeated runs against the same
// account resume instead of refetching. Records are keyed by source and
// canonical URL; a conflicting insert is a no-op, matching the pipeline's
// first-wins dedup discipline.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS tweet_records (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  source TEXT NOT NULL,
	  canonical_url TEXT NOT NULL,
	  archived_timestamp TEXT NOT NULL,
	  fields TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  UNIQUE(source, canonical_url)
	);
	CREATE INDEX IF NOT EXISTS idx_tr_ts ON tweet_records(archived_timestamp);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// PutRecord stores one assembled record. Reports whether the row was new.
func (d *DB) PutRecord(ctx context.Context, rec record.TweetRecord) (bool, error) {
	fields, err := json.Marshal(rec.Fields())
	if err != nil {
		return false, err
	}
	res, err := d.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO tweet_records(source, canonical_url, archived_timestamp, fields, created_at) VALUES(?,?,?,?,?)`,
		string(rec.Source), rec.CanonicalURL, rec.Timestamp, string(fields), time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountRecords returns the number of stored records for a source; an empty
// source counts everything.
func (d *DB) CountRecords(ctx context.Context, source string) (int, error) {
	var n int
	var err error
	if source == "" {
		err = d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweet_records`).Scan(&n)
	} else {
		err = d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweet_records WHERE source=?`, source).Scan(&n)
	}
	return n, err
}

// ExportJSONL writes stored records as JSON lines, optionally filtered to a
// field allow-list, ordered by archive timestamp.
func (d *DB) ExportJSONL(ctx context.Context, w io.Writer, source string, fields []string) (int, error) {
	var rows *sql.Rows
	var err error
	if source == "" {
		rows, err = d.sql.QueryContext(ctx, `SELECT fields FROM tweet_records ORDER BY archived_timestamp`)
	} else {
		rows, err = d.sql.QueryContext(ctx, `SELECT fields FROM tweet_records WHERE source=? ORDER BY archived_timestamp`, source)
	}
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	allow := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allow[f] = struct{}{}
	}
	n := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return n, err
		}
		line := raw
		if len(allow) > 0 {
			var all map[string]any
			if err := json.Unmarshal([]byte(raw), &all); err != nil {
				return n, err
			}
			sel := make(map[string]any, len(allow))
			for k, v := range all {
				if _, ok := allow[k]; ok {
					sel[k] = v
				}
			}
			b, err := json.Marshal(sel)
			if err != nil {
				return n, err
			}
			line = string(b)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

// SaveCursor stores an opaque resume value under key.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns the stored value for key, or empty when absent.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return v, nil
}
