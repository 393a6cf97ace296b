package walk

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/siherrmann/cinegraph/core/links"
	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

// Generator builds solvable challenges from bounded random walks over the actor graph
type Generator struct {
	oracle oracle.Oracle
	finder *links.Finder
	config model.Config
	pool   []model.Entity
	logger *slog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// Option configures a Generator
type Option func(*Generator)

// WithRand sets the random source, tests use a fixed seed
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rand = r }
}

// WithStartPool replaces the popular actor query with a static pool of start actors
func WithStartPool(pool []model.Entity) Option {
	return func(g *Generator) { g.pool = pool }
}

// NewGenerator creates a generator. Pass an *oracle.Cached, a walk
// repeats the same film and cast lookups many times.
func NewGenerator(o oracle.Oracle, config model.Config, logger *slog.Logger, opts ...Option) *Generator {
	logger = helper.LoggerOrDefault(logger)
	g := &Generator{
		oracle: o,
		finder: links.New(o, logger),
		config: config,
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rand.Intn(n)
}

func (g *Generator) shuffled(n int) []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rand.Perm(n)
}

// GenerateChallenge picks a start and an end actor connected by a random walk.
// With both ends given no walk is made and the path stays empty.
func (g *Generator) GenerateChallenge(ctx context.Context, opts model.ChallengeOptions) (*model.Challenge, error) {
	if opts.MinLength == 0 {
		opts.MinLength = g.config.MinPathLength
	}
	if opts.MaxLength == 0 {
		opts.MaxLength = g.config.MaxPathLength
	}
	if opts.MinLength < 1 || opts.MaxLength < opts.MinLength {
		return nil, helper.NewError("challenge options", fmt.Errorf("invalid length range [%d, %d]", opts.MinLength, opts.MaxLength))
	}

	if opts.Start != nil && opts.End != nil {
		return &model.Challenge{Start: *opts.Start, End: *opts.End, Path: []model.WalkStep{}}, nil
	}

	attempts := max(g.config.MaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := opts.MinLength + g.intn(opts.MaxLength-opts.MinLength+1)

		var origin model.Entity
		switch {
		case opts.End != nil:
			origin = *opts.End
		case opts.Start != nil:
			origin = *opts.Start
		default:
			start, err := g.pickStart(ctx)
			if err != nil {
				return nil, err
			}
			origin = start
		}

		path, err := g.walk(ctx, origin, target, opts.MinLength)
		if err != nil {
			return nil, helper.NewError("random walk", err)
		}
		if path == nil {
			g.logger.Debug("Walk aborted", slog.Int("attempt", attempt), slog.String("origin", origin.ID), slog.Int("target", target))
			continue
		}

		if opts.End != nil {
			path = model.ReversePath(path)
			return &model.Challenge{Start: path[0].From, End: *opts.End, Path: path}, nil
		}
		return &model.Challenge{Start: origin, End: path[len(path)-1].To, Path: path}, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", model.ErrGenerationExhausted, attempts)
}

// pickStart draws a start actor from the static pool or the popular actors
func (g *Generator) pickStart(ctx context.Context) (model.Entity, error) {
	if len(g.pool) > 0 {
		return g.pool[g.intn(len(g.pool))], nil
	}

	actors, err := g.oracle.PopularActors(ctx, g.config.StartNotability, g.config.StartPoolSize)
	if err != nil {
		return model.Entity{}, helper.NewError("popular actors", err)
	}
	if len(actors) == 0 {
		return model.Entity{}, fmt.Errorf("%w: no popular actors to start from", model.ErrGenerationExhausted)
	}
	return actors[g.intn(len(actors))].Entity(), nil
}

// walk makes up to target random steps from origin. At a dead end the path is
// kept when it already has minLength steps, otherwise nil is returned.
func (g *Generator) walk(ctx context.Context, origin model.Entity, target int, minLength int) ([]model.WalkStep, error) {
	visited := map[string]bool{origin.ID: true}
	current := origin
	path := []model.WalkStep{}

	for len(path) < target {
		step, err := g.step(ctx, current, visited)
		if err != nil {
			return nil, err
		}
		if step == nil {
			if len(path) >= minLength {
				return path, nil
			}
			return nil, nil
		}

		path = append(path, *step)
		visited[step.To.ID] = true
		current = step.To
	}

	return path, nil
}

// step moves from current through a random film to a random unvisited co-actor.
// Films are tried in random order and nil is returned when none leads anywhere.
func (g *Generator) step(ctx context.Context, current model.Entity, visited map[string]bool) (*model.WalkStep, error) {
	films, err := g.oracle.ActorFilms(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	for _, i := range g.shuffled(len(films)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cast, err := g.oracle.FilmCast(ctx, films[i].ID)
		if err != nil {
			return nil, err
		}

		candidates := []oracle.CastRow{}
		for _, actor := range cast {
			if actor.ID != current.ID && !visited[actor.ID] {
				candidates = append(candidates, actor)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		return &model.WalkStep{
			From: current,
			Via:  films[i].Film(),
			To:   candidates[g.intn(len(candidates))].Entity(),
		}, nil
	}

	return nil, nil
}

// GeneratePathFromPosition searches a path from one actor to another of at most
// maxLength steps. Lengths are tried from maxLength down to 1 with a fixed number
// of walks each, and every walk closes as soon as it reaches a co-actor of to.
func (g *Generator) GeneratePathFromPosition(ctx context.Context, from model.Entity, to model.Entity, maxLength int) ([]model.WalkStep, error) {
	if from.ID == to.ID {
		return []model.WalkStep{}, nil
	}

	walks := max(g.config.WalksPerLength, 1)
	for length := maxLength; length >= 1; length-- {
		for i := 0; i < walks; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			path, err := g.walkTowards(ctx, from, to, length)
			if err != nil {
				return nil, helper.NewError("path walk", err)
			}
			if path != nil {
				return path, nil
			}
		}
	}

	return nil, fmt.Errorf("%w from %s to %s within %d steps", model.ErrNoPath, from.ID, to.ID, maxLength)
}

func (g *Generator) walkTowards(ctx context.Context, from model.Entity, to model.Entity, length int) ([]model.WalkStep, error) {
	visited := map[string]bool{from.ID: true, to.ID: true}
	current := from
	path := []model.WalkStep{}

	for hop := 0; hop < length; hop++ {
		link, err := g.finder.FindSharedEdge(ctx, current.ID, to.ID)
		if err != nil {
			return nil, err
		}
		if link != nil {
			return append(path, model.WalkStep{From: current, Via: link.Film(), To: to}), nil
		}
		if hop == length-1 {
			break
		}

		step, err := g.step(ctx, current, visited)
		if err != nil {
			return nil, err
		}
		if step == nil {
			return nil, nil
		}

		path = append(path, *step)
		visited[step.To.ID] = true
		current = step.To
	}

	return nil, nil
}
