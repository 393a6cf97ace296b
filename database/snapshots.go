package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
	loadSql "github.com/siherrmann/cinegraph/sql"
)

// SnapshotsDBHandlerFunctions defines the interface for graph snapshot database operations.
type SnapshotsDBHandlerFunctions interface {
	SaveSnapshot(ctx context.Context, key string, graph *model.Graph, etag string) (*model.Snapshot, error)
	SelectSnapshot(ctx context.Context, key string) (*model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, key string) error
}

// SnapshotsDBHandler mirrors materialized graphs in PostgreSQL
type SnapshotsDBHandler struct {
	db *helper.Database
}

// NewSnapshotsDBHandler creates a new snapshots database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSnapshotsDBHandler(db *helper.Database, force bool) (*SnapshotsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	snapshotsDbHandler := &SnapshotsDBHandler{
		db: db,
	}

	err := loadSql.LoadSnapshotsSql(snapshotsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load snapshots sql", err)
	}

	err = snapshotsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SnapshotsDBHandler")

	return snapshotsDbHandler, nil
}

// CreateTable creates the 'graph_snapshots' table in the database.
func (h *SnapshotsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_snapshots();`)
	if err != nil {
		log.Panicf("error initializing graph_snapshots table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table graph_snapshots")

	return nil
}

// SaveSnapshot replaces the graph stored under key
func (h *SnapshotsDBHandler) SaveSnapshot(ctx context.Context, key string, graph *model.Graph, etag string) (*model.Snapshot, error) {
	if graph == nil {
		return nil, helper.NewError("graph validation", fmt.Errorf("graph is nil"))
	}

	snapshot := &model.Snapshot{Graph: graph}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_graph_snapshot($1, $2, $3)`,
		key,
		graph,
		etag,
	)

	err := row.Scan(
		&snapshot.Key,
		&snapshot.ETag,
		&snapshot.SavedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return snapshot, nil
}

// SelectSnapshot retrieves the graph stored under key, it returns nil if there is none
func (h *SnapshotsDBHandler) SelectSnapshot(ctx context.Context, key string) (*model.Snapshot, error) {
	snapshot := &model.Snapshot{Graph: &model.Graph{}}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_graph_snapshot($1)`,
		key,
	)

	err := row.Scan(
		&snapshot.Key,
		snapshot.Graph,
		&snapshot.ETag,
		&snapshot.SavedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return snapshot, nil
}

// DeleteSnapshot deletes the graph stored under key
func (h *SnapshotsDBHandler) DeleteSnapshot(ctx context.Context, key string) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_graph_snapshot($1)`,
		key,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
