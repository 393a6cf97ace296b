package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

// BadgerConfig configures a BadgerStore
type BadgerConfig struct {
	// Path is the database directory, ignored when InMemory is set
	Path     string
	InMemory bool
	// MaxBytes of zero or less disables the quota
	MaxBytes int64
	// GCInterval of zero disables value log garbage collection
	GCInterval time.Duration
	Logger     *slog.Logger
}

// BadgerStore is a Store on an embedded BadgerDB.
// Values are stored as an 8 byte big endian insertion time followed by the payload.
type BadgerStore struct {
	db       *badger.DB
	mu       sync.Mutex
	used     int64
	sizes    map[string]int64
	maxBytes int64
	logger   *slog.Logger
	stopGC   chan struct{}
	gcDone   chan struct{}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadgerStore opens the store and sums up the size of the existing entries
func OpenBadgerStore(config BadgerConfig) (*BadgerStore, error) {
	logger := helper.LoggerOrDefault(config.Logger)

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.Path == "" {
			return nil, helper.NewError("badger configuration", errors.New("path is required for a persistent cache"))
		}
		if err := os.MkdirAll(config.Path, 0750); err != nil {
			return nil, helper.NewError("create cache directory", err)
		}
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, helper.NewError("open badger", err)
	}

	s := &BadgerStore{
		db:       db,
		sizes:    map[string]int64{},
		maxBytes: config.MaxBytes,
		logger:   logger,
	}

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			size := int64(len(item.Key())) + item.ValueSize() - 8
			s.sizes[string(item.KeyCopy(nil))] = size
			s.used += size
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, helper.NewError("scan badger", err)
	}

	if config.GCInterval > 0 && !config.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(config.GCInterval)
	}

	return s, nil
}

// Close stops the garbage collection and closes the database
func (s *BadgerStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
		s.stopGC = nil
	}
	return s.db.Close()
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("Badger value log GC failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *BadgerStore) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{Key: key}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		insertedAt, value, err := decodeBadgerValue(raw)
		if err != nil {
			return err
		}
		entry.InsertedAt = insertedAt
		entry.Value = value
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.ErrCacheMiss
	}
	if err != nil {
		return nil, helper.NewError("badger get", err)
	}
	return entry, nil
}

func (s *BadgerStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := entry.Size()
	used := s.used + size - s.sizes[entry.Key]
	if s.maxBytes > 0 && used > s.maxBytes {
		return model.ErrQuotaExceeded
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(entry.Key), encodeBadgerValue(entry.InsertedAt, entry.Value))
	})
	if err != nil {
		return helper.NewError("badger put", err)
	}

	s.sizes[entry.Key] = size
	s.used = used
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked([]string{key})
}

func (s *BadgerStore) EvictOldest(ctx context.Context, prefix string, fraction float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	insertedAt := map[string]int64{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(raw []byte) error {
				t, _, err := decodeBadgerValue(raw)
				if err != nil {
					// Undecodable entries are evicted first
					insertedAt[string(item.KeyCopy(nil))] = 0
					return nil
				}
				insertedAt[string(item.KeyCopy(nil))] = t.UnixNano()
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, helper.NewError("badger scan", err)
	}

	keys := make([]string, 0, len(insertedAt))
	for key := range insertedAt {
		keys = append(keys, key)
	}
	sortOldestFirst(keys, func(key string) int64 { return insertedAt[key] })

	evict := evictCount(len(keys), fraction)
	if err := s.deleteLocked(keys[:evict]); err != nil {
		return 0, err
	}
	return evict, nil
}

func (s *BadgerStore) Clear(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.sizes {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := s.deleteLocked(keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *BadgerStore) Stats(ctx context.Context, prefix string) (model.CacheStats, error) {
	stats := model.CacheStats{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			stats.Entries++
			stats.SizeBytes += int64(len(item.Key())) + item.ValueSize() - 8
			err := item.Value(func(raw []byte) error {
				t, _, err := decodeBadgerValue(raw)
				if err == nil && (stats.Oldest == nil || t.Before(*stats.Oldest)) {
					stats.Oldest = &t
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, helper.NewError("badger stats", err)
	}
	return stats, nil
}

func (s *BadgerStore) deleteLocked(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete([]byte(key)); err != nil {
			return helper.NewError("badger delete", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return helper.NewError("badger flush", err)
	}

	for _, key := range keys {
		s.used -= s.sizes[key]
		delete(s.sizes, key)
	}
	return nil
}

func encodeBadgerValue(insertedAt time.Time, value []byte) []byte {
	raw := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(raw, uint64(insertedAt.UnixNano()))
	copy(raw[8:], value)
	return raw
}

func decodeBadgerValue(raw []byte) (time.Time, []byte, error) {
	if len(raw) < 8 {
		return time.Time{}, nil, fmt.Errorf("cache value too short: %d bytes", len(raw))
	}
	insertedAt := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
	return insertedAt, append([]byte(nil), raw[8:]...), nil
}
