package cinegraph

import (
	"context"
	"sync"
	"time"

	"github.com/siherrmann/cinegraph/model"
)

// SnapshotStore keeps graphs under a key
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, key string, graph *model.Graph, etag string) (*model.Snapshot, error)
	SelectSnapshot(ctx context.Context, key string) (*model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, key string) error
}

// MemorySnapshots is a SnapshotStore for a single process
type MemorySnapshots struct {
	mu        sync.RWMutex
	snapshots map[string]*model.Snapshot
}

// NewMemorySnapshots creates an empty snapshot store
func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{snapshots: map[string]*model.Snapshot{}}
}

func (m *MemorySnapshots) SaveSnapshot(ctx context.Context, key string, graph *model.Graph, etag string) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := &model.Snapshot{Key: key, Graph: graph, ETag: etag, SavedAt: time.Now().UTC()}
	m.snapshots[key] = snapshot
	return snapshot, nil
}

func (m *MemorySnapshots) SelectSnapshot(ctx context.Context, key string) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[key], nil
}

func (m *MemorySnapshots) DeleteSnapshot(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, key)
	return nil
}

// MemoryScores keeps high scores for a single process
type MemoryScores struct {
	mu     sync.RWMutex
	scores map[model.GameMode]*model.HighScore
}

// NewMemoryScores creates an empty score store
func NewMemoryScores() *MemoryScores {
	return &MemoryScores{scores: map[model.GameMode]*model.HighScore{}}
}

// SaveHighScore only ever raises the stored score
func (m *MemoryScores) SaveHighScore(ctx context.Context, mode model.GameMode, score int) (*model.HighScore, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.scores[mode]
	if ok && current.Score >= score {
		return current, false, nil
	}
	if !ok && score <= 0 {
		return &model.HighScore{Mode: mode}, false, nil
	}
	high := &model.HighScore{Mode: mode, Score: score, UpdatedAt: time.Now().UTC()}
	m.scores[mode] = high
	return high, true, nil
}

func (m *MemoryScores) SelectHighScore(ctx context.Context, mode model.GameMode) (*model.HighScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scores[mode], nil
}

func (m *MemoryScores) DeleteHighScore(ctx context.Context, mode model.GameMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scores, mode)
	return nil
}
