package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/helpers"
)

// ============================================================================
// FALLBACK - remote -> cache -> empty
// ============================================================================
// Rows never fails. A successful remote read refreshes the cache; a failed
// one is answered from the cache; a failed cache read is answered with no
// rows. Logged rows land in the cache first and are pushed when possible.
// ============================================================================

// Fallback chains a remote history with a local cache.
// Either side may be nil.
type Fallback struct {
	Remote *Remote
	Cache  *Cache
	Logger *log.Logger
}

// NewFallback builds the chain. A nil logger uses log.Default().
func NewFallback(remote *Remote, cache *Cache, logger *log.Logger) *Fallback {
	if logger == nil {
		logger = log.Default()
	}
	return &Fallback{Remote: remote, Cache: cache, Logger: logger.WithPrefix("store")}
}

// Rows implements engine.RowSource.
func (f *Fallback) Rows(ctx context.Context) ([]engine.Row, error) {
	if f.Remote != nil && f.Remote.Available() {
		rows, err := f.Remote.Rows(ctx)
		if err == nil {
			f.Logger.Debug("fetched remote history", "rows", len(rows))
			return f.withPending(ctx, f.refresh(ctx, rows)), nil
		}
		f.Logger.Warn("remote history unavailable, using cache", "err", err)
	}

	if f.Cache != nil {
		rows, err := f.Cache.Rows(ctx)
		if err == nil {
			return rows, nil
		}
		f.Logger.Warn("cache unreadable, answering from empty history", "err", err)
	}
	return nil, nil
}

// refresh stores a fresh remote snapshot and returns it.
func (f *Fallback) refresh(ctx context.Context, rows []engine.Row) []engine.Row {
	if f.Cache == nil {
		return rows
	}
	if err := f.Cache.ReplaceSnapshot(ctx, rows); err != nil {
		f.Logger.Warn("cache refresh failed", "err", err)
	}
	return rows
}

// withPending appends locally logged rows the remote has not seen.
func (f *Fallback) withPending(ctx context.Context, rows []engine.Row) []engine.Row {
	if f.Cache == nil {
		return rows
	}
	pending, err := f.Cache.Pending(ctx)
	if err != nil {
		f.Logger.Warn("pending rows unreadable", "err", err)
		return rows
	}
	for _, p := range pending {
		rows = append(rows, p.Row)
	}
	return rows
}

// Record implements engine.Recorder. The row is cached as pending, then
// pushed; a failed push leaves it for the next Sync.
func (f *Fallback) Record(ctx context.Context, row engine.Row) (string, error) {
	if f.Cache == nil {
		if f.Remote == nil || !f.Remote.Available() {
			return "", fmt.Errorf("store: nowhere to record rows")
		}
		return f.Remote.Record(ctx, row)
	}

	id, err := f.Cache.Record(ctx, row)
	if err != nil {
		return "", err
	}
	if f.Remote == nil || !f.Remote.Available() {
		return id, nil
	}
	if _, err := f.Remote.Record(ctx, row); err != nil {
		f.Logger.Warn("push failed, row kept as pending", "id", id, "err", err)
		return id, nil
	}
	if err := f.Cache.MarkSynced(ctx, id); err != nil {
		f.Logger.Warn("could not mark row synced", "id", id, "err", err)
	}
	return id, nil
}

// SyncResult reports what Sync moved.
type SyncResult struct {
	Pushed  int `json:"pushed"`
	Pending int `json:"pending"`
	Pulled  int `json:"pulled"`
}

// Sync pushes pending rows, then pulls a fresh snapshot into the cache.
// Unlike Rows, Sync reports failures.
func (f *Fallback) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	if f.Remote == nil || !f.Remote.Available() {
		return res, fmt.Errorf("store: sync needs a remote endpoint")
	}
	if f.Cache == nil {
		return res, fmt.Errorf("store: sync needs a cache")
	}

	pending, err := f.Cache.Pending(ctx)
	if err != nil {
		return res, err
	}
	for _, p := range pending {
		if _, err := f.Remote.Record(ctx, p.Row); err != nil {
			f.Logger.Warn("push failed", "id", p.ID, "err", err)
			res.Pending++
			continue
		}
		if err := f.Cache.MarkSynced(ctx, p.ID); err != nil {
			return res, err
		}
		res.Pushed++
	}

	rows, err := f.Remote.Rows(ctx)
	if err != nil {
		return res, fmt.Errorf("pull remote history: %w", err)
	}
	if err := f.Cache.ReplaceSnapshot(ctx, rows); err != nil {
		return res, err
	}
	res.Pulled = len(rows)
	f.Logger.Info("sync complete", "pushed", res.Pushed, "pending", res.Pending, "pulled", res.Pulled)
	return res, nil
}

// ============================================================================
// FILE - CSV or JSON export on disk
// ============================================================================

// File reads history from an exported file on every call.
type File struct {
	Path string
}

// Rows implements engine.RowSource.
func (f File) Rows(ctx context.Context) ([]engine.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		data, err := readFile(f.Path)
		if err != nil {
			return nil, err
		}
		rows, err := decodeRows(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Path, err)
		}
		return rows, nil
	}
	return helpers.LoadRowsCSV(f.Path)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
