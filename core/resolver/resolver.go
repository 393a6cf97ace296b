package resolver

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/siherrmann/cinegraph/core/corrector"
	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

// Resolver turns free text into a confirmed actor entity
type Resolver struct {
	oracle      oracle.Oracle
	corrector   corrector.Corrector
	searchLimit int
	logger      *slog.Logger
}

// New creates a resolver, a nil corrector disables name correction
func New(o oracle.Oracle, c corrector.Corrector, searchLimit int, logger *slog.Logger) *Resolver {
	if c == nil {
		c = corrector.Noop{}
	}
	if searchLimit <= 0 {
		searchLimit = model.DefaultConfig().SearchLimit
	}
	return &Resolver{
		oracle:      o,
		corrector:   c,
		searchLimit: searchLimit,
		logger:      helper.LoggerOrDefault(logger),
	}
}

// Resolve looks name up directly and retries once with a corrected spelling.
// The corrector is only consulted when the knowledge graph answered but had no actor.
func (r *Resolver) Resolve(ctx context.Context, name string) model.Resolution {
	name = helper.CleanString(name)
	if name == "" {
		return model.NotFound(name)
	}

	entity, err := r.lookup(ctx, name)
	if err != nil {
		r.logger.Error("Error resolving actor", slog.String("name", name), slog.String("error", err.Error()))
		return model.OracleError(name, err)
	}
	if entity != nil {
		return model.Found(*entity, name)
	}

	suggestion := helper.CleanString(r.corrector.Correct(ctx, name))
	if suggestion == "" || strings.EqualFold(suggestion, name) {
		return model.NotFound(name)
	}
	r.logger.Info("Retrying with corrected name", slog.String("name", name), slog.String("suggestion", suggestion))

	entity, err = r.lookup(ctx, suggestion)
	if err != nil {
		r.logger.Error("Error resolving corrected actor", slog.String("name", suggestion), slog.String("error", err.Error()))
		return model.OracleError(suggestion, err)
	}
	if entity != nil {
		return model.Found(*entity, suggestion)
	}
	return model.NotFound(suggestion)
}

// lookup returns the first confirmed actor among the ordered candidates or nil
func (r *Resolver) lookup(ctx context.Context, name string) (*model.Entity, error) {
	hits, err := r.oracle.SearchEntities(ctx, name, r.searchLimit)
	if err != nil {
		return nil, helper.NewError("search", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	popularity, err := r.oracle.Popularity(ctx, ids)
	if err != nil {
		return nil, helper.NewError("popularity", err)
	}

	OrderCandidates(hits, name, popularity)

	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		isActor, err := r.oracle.IsActor(ctx, hit.ID)
		if err != nil {
			return nil, helper.NewError("is actor", err)
		}
		if !isActor {
			continue
		}

		entity := &model.Entity{
			ID:          hit.ID,
			Label:       hit.Label,
			Description: hit.Description,
			Popularity:  popularity[hit.ID],
		}
		image, err := r.oracle.ActorImage(ctx, hit.ID)
		if err != nil {
			r.logger.Warn("Error fetching actor image", slog.String("actor_id", hit.ID), slog.String("error", err.Error()))
		} else {
			entity.ImageURL = image
		}
		return entity, nil
	}

	return nil, nil
}

// OrderCandidates sorts exact label matches first, then by popularity descending.
// Ties keep the order of the knowledge graph.
func OrderCandidates(hits []oracle.SearchHit, name string, popularity map[string]int) {
	sort.SliceStable(hits, func(i, j int) bool {
		exactI, exactJ := hits[i].Label == name, hits[j].Label == name
		if exactI != exactJ {
			return exactI
		}
		return popularity[hits[i].ID] > popularity[hits[j].ID]
	})
}
