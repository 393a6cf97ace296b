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

// ScoresDBHandlerFunctions defines the interface for high score database operations.
type ScoresDBHandlerFunctions interface {
	SaveHighScore(ctx context.Context, mode model.GameMode, score int) (*model.HighScore, bool, error)
	SelectHighScore(ctx context.Context, mode model.GameMode) (*model.HighScore, error)
	SelectAllHighScores(ctx context.Context) ([]*model.HighScore, error)
	DeleteHighScore(ctx context.Context, mode model.GameMode) error
}

// ScoresDBHandler handles high score database operations
type ScoresDBHandler struct {
	db *helper.Database
}

// NewScoresDBHandler creates a new scores database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewScoresDBHandler(db *helper.Database, force bool) (*ScoresDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	scoresDbHandler := &ScoresDBHandler{
		db: db,
	}

	err := loadSql.Init(scoresDbHandler.db.Instance)
	if err != nil {
		return nil, helper.NewError("init sql", err)
	}

	err = loadSql.LoadScoresSql(scoresDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load scores sql", err)
	}

	err = scoresDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ScoresDBHandler")

	return scoresDbHandler, nil
}

// CreateTable creates the 'high_scores' table and its update trigger.
func (h *ScoresDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_scores();`)
	if err != nil {
		log.Panicf("error initializing high_scores table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table high_scores")

	return nil
}

// SaveHighScore stores score if it beats the current record of the mode.
// It returns the record after the call and whether score became the new record.
func (h *ScoresDBHandler) SaveHighScore(ctx context.Context, mode model.GameMode, score int) (*model.HighScore, bool, error) {
	highScore := &model.HighScore{}
	var isNewRecord bool
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_high_score($1, $2)`,
		string(mode),
		score,
	)

	err := row.Scan(
		&highScore.Mode,
		&highScore.Score,
		&highScore.UpdatedAt,
		&isNewRecord,
	)
	if err != nil {
		return nil, false, helper.NewError("scan", err)
	}

	return highScore, isNewRecord, nil
}

// SelectHighScore retrieves the record of a mode, it returns nil if none was set yet
func (h *ScoresDBHandler) SelectHighScore(ctx context.Context, mode model.GameMode) (*model.HighScore, error) {
	highScore := &model.HighScore{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_high_score($1)`,
		string(mode),
	)

	err := row.Scan(
		&highScore.Mode,
		&highScore.Score,
		&highScore.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return highScore, nil
}

// DeleteHighScore removes the record of a mode, the next saved score becomes the record
func (h *ScoresDBHandler) DeleteHighScore(ctx context.Context, mode model.GameMode) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_high_score($1)`,
		string(mode),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectAllHighScores retrieves the records of every mode ordered by mode
func (h *ScoresDBHandler) SelectAllHighScores(ctx context.Context) ([]*model.HighScore, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_all_high_scores()`,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var highScores []*model.HighScore
	for rows.Next() {
		highScore := &model.HighScore{}
		err := rows.Scan(
			&highScore.Mode,
			&highScore.Score,
			&highScore.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		highScores = append(highScores, highScore)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return highScores, nil
}
