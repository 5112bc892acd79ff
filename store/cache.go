package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/spektr-org/tally/engine"
)

// Cache is a SQLite copy of the remote history plus rows logged locally
// that the remote has not accepted yet.
// Thread-safety: all methods are safe for concurrent use.
type Cache struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// PendingRow is a locally logged row waiting to be pushed.
type PendingRow struct {
	ID  string
	Row engine.Row
}

// OpenCache opens or creates the cache database at path.
// ":memory:" gives a private in-memory cache.
func OpenCache(path string) (*Cache, error) {
	connStr := path
	if path == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	c := &Cache{db: db, now: time.Now}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return c, nil
}

func (c *Cache) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stat_rows (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL,
		pending INTEGER NOT NULL DEFAULT 0,
		stored_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stat_rows_pending ON stat_rows(pending);

	CREATE TABLE IF NOT EXISTS cache_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// Rows returns the snapshot followed by pending rows, in stored order.
func (c *Cache) Rows(ctx context.Context) ([]engine.Row, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res, err := c.db.QueryContext(ctx, `SELECT data FROM stat_rows ORDER BY pending, seq`)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer res.Close()

	var rows []engine.Row
	for res.Next() {
		var data string
		if err := res.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var row engine.Row
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, res.Err()
}

// ReplaceSnapshot swaps the cached copy of the remote history for rows.
// Pending rows are kept.
func (c *Cache) ReplaceSnapshot(ctx context.Context, rows []engine.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stat_rows WHERE pending = 0`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stat_rows (id, data, pending, stored_at) VALUES (?, ?, 0, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := c.now().UTC()
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), string(data), now); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_meta (key, value) VALUES ('last_sync', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		now.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record sync time: %w", err)
	}
	return tx.Commit()
}

// Record stores a logged row as pending and returns its new id.
func (c *Cache) Record(ctx context.Context, row engine.Row) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	id := uuid.NewString()
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO stat_rows (id, data, pending, stored_at) VALUES (?, ?, 1, ?)`,
		id, string(data), c.now().UTC()); err != nil {
		return "", fmt.Errorf("insert pending row: %w", err)
	}
	return id, nil
}

// Pending lists rows not yet accepted by the remote, oldest first.
func (c *Cache) Pending(ctx context.Context) ([]PendingRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res, err := c.db.QueryContext(ctx, `SELECT id, data FROM stat_rows WHERE pending = 1 ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer res.Close()

	var out []PendingRow
	for res.Next() {
		var p PendingRow
		var data string
		if err := res.Scan(&p.ID, &data); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &p.Row); err != nil {
			return nil, fmt.Errorf("decode pending: %w", err)
		}
		out = append(out, p)
	}
	return out, res.Err()
}

// MarkSynced moves pending rows into the snapshot.
func (c *Cache) MarkSynced(ctx context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if _, err := c.db.ExecContext(ctx, `UPDATE stat_rows SET pending = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("mark %s synced: %w", id, err)
		}
	}
	return nil
}

// LastSync returns when the snapshot was last replaced. ok is false if never.
func (c *Cache) LastSync(ctx context.Context) (time.Time, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE key = 'last_sync'`).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last sync: %w", err)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last sync: %w", err)
	}
	return t, true, nil
}
