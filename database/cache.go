package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
	loadSql "github.com/siherrmann/cinegraph/sql"
)

// CacheDBHandlerFunctions defines the interface for cache database operations.
type CacheDBHandlerFunctions interface {
	Get(ctx context.Context, key string) (*model.CacheEntry, error)
	Put(ctx context.Context, entry *model.CacheEntry) error
	Delete(ctx context.Context, key string) error
	EvictOldest(ctx context.Context, prefix string, fraction float64) (int, error)
	Clear(ctx context.Context, prefix string) (int, error)
	Stats(ctx context.Context, prefix string) (model.CacheStats, error)
}

// CacheDBHandler stores resolution cache entries in PostgreSQL
type CacheDBHandler struct {
	db       *helper.Database
	maxBytes int64
}

// NewCacheDBHandler creates a new cache database handler.
// It loads the cache SQL functions and creates the table.
// A maxBytes of zero or less disables the quota.
// If force is true, it will reload the SQL functions even if they already exist.
func NewCacheDBHandler(db *helper.Database, maxBytes int64, force bool) (*CacheDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	cacheDbHandler := &CacheDBHandler{
		db:       db,
		maxBytes: maxBytes,
	}

	err := loadSql.LoadCacheSql(cacheDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load cache sql", err)
	}

	err = cacheDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized CacheDBHandler")

	return cacheDbHandler, nil
}

// CreateTable creates the 'cache_entries' table in the database.
// If the table already exists, it does not create it again.
func (h *CacheDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_cache();`)
	if err != nil {
		log.Panicf("error initializing cache table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table cache_entries")

	return nil
}

// Get retrieves an entry by its namespaced key, it returns model.ErrCacheMiss for unknown keys
func (h *CacheDBHandler) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_cache_entry($1)`,
		key,
	)

	err := row.Scan(
		&entry.Key,
		&entry.Value,
		&entry.InsertedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCacheMiss
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entry, nil
}

// Put inserts or replaces an entry.
// It returns model.ErrQuotaExceeded if the table would grow beyond the quota.
func (h *CacheDBHandler) Put(ctx context.Context, entry *model.CacheEntry) error {
	var key string
	var size int64
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_cache_entry($1, $2, $3, $4)`,
		entry.Key,
		string(entry.Value),
		entry.InsertedAt,
		h.maxBytes,
	)

	err := row.Scan(
		&key,
		&size,
		&entry.InsertedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "disk_full" {
			return model.ErrQuotaExceeded
		}
		return helper.NewError("scan", err)
	}

	return nil
}

// Delete deletes an entry by key
func (h *CacheDBHandler) Delete(ctx context.Context, key string) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_cache_entry($1)`,
		key,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// EvictOldest deletes ceil(count*fraction) entries with the prefix, oldest first
func (h *CacheDBHandler) EvictOldest(ctx context.Context, prefix string, fraction float64) (int, error) {
	var evicted int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT evict_oldest_cache_entries($1, $2)`,
		prefix,
		fraction,
	).Scan(&evicted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return evicted, nil
}

// Clear deletes every entry with the prefix
func (h *CacheDBHandler) Clear(ctx context.Context, prefix string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT clear_cache_entries($1)`,
		prefix,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// Stats counts the entries with the prefix and their size
func (h *CacheDBHandler) Stats(ctx context.Context, prefix string) (model.CacheStats, error) {
	stats := model.CacheStats{}
	var oldest sql.NullTime
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_cache_stats($1)`,
		prefix,
	).Scan(
		&stats.Entries,
		&stats.SizeBytes,
		&oldest,
	)
	if err != nil {
		return stats, helper.NewError("scan", err)
	}
	if oldest.Valid {
		stats.Oldest = &oldest.Time
	}
	return stats, nil
}
