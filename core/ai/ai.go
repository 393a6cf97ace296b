package ai

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

// hintCandidates bounds the neighbor query behind Hints
const hintCandidates = 20

// Responder plays the AI opponent of the solo mode
type Responder struct {
	oracle oracle.Oracle
	config model.Config
	logger *slog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewResponder creates a responder. A nil r seeds a random source from the clock.
func NewResponder(o oracle.Oracle, config model.Config, r *rand.Rand, logger *slog.Logger) *Responder {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Responder{
		oracle: o,
		config: config,
		logger: helper.LoggerOrDefault(logger),
		rand:   r,
	}
}

// Respond picks a random notable co-actor of last that is not excluded.
// It returns nil without error when no such actor exists, which means the
// human player won. Oracle failures are returned and must not count as a win.
func (r *Responder) Respond(ctx context.Context, last model.Entity, excluded []string) (*model.Move, error) {
	rows, err := r.oracle.Neighbors(ctx, last.ID, without(excluded, last.ID), r.config.AINotability, r.config.AICandidates)
	if err != nil {
		return nil, helper.NewError("ai neighbors", err)
	}

	rows = filter(rows, last.ID, excluded)
	if len(rows) == 0 {
		r.logger.Info("AI found no co-actor", slog.String("actor_id", last.ID))
		return nil, nil
	}

	r.mu.Lock()
	chosen := rows[r.rand.Intn(len(rows))]
	r.mu.Unlock()

	r.logger.Debug("AI plays", slog.String("actor_id", chosen.Actor.ID), slog.String("film_id", chosen.Film.ID))
	return &model.Move{Actor: chosen.Actor.Entity(), Film: chosen.Film.Film()}, nil
}

// Hints returns up to HintCount random distinct notable co-actors of last
func (r *Responder) Hints(ctx context.Context, last model.Entity, excluded []string) ([]model.Hint, error) {
	rows, err := r.oracle.Neighbors(ctx, last.ID, without(excluded, last.ID), r.config.HintNotability, hintCandidates)
	if err != nil {
		return nil, helper.NewError("hint neighbors", err)
	}

	rows = filter(rows, last.ID, excluded)

	r.mu.Lock()
	order := r.rand.Perm(len(rows))
	r.mu.Unlock()

	hints := []model.Hint{}
	seen := map[string]bool{}
	for _, i := range order {
		if len(hints) == r.config.HintCount {
			break
		}
		row := rows[i]
		if seen[row.Actor.ID] {
			continue
		}
		seen[row.Actor.ID] = true
		hints = append(hints, model.Hint{Actor: row.Actor.Entity(), Film: row.Film.Film()})
	}

	return hints, nil
}

// filter drops rows the oracle should already have excluded
func filter(rows []oracle.NeighborRow, last string, excluded []string) []oracle.NeighborRow {
	skip := map[string]bool{last: true}
	for _, id := range excluded {
		skip[id] = true
	}

	kept := []oracle.NeighborRow{}
	for _, row := range rows {
		if !skip[row.Actor.ID] {
			kept = append(kept, row)
		}
	}
	return kept
}

func without(ids []string, id string) []string {
	result := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			result = append(result, v)
		}
	}
	return result
}
