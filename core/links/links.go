package links

import (
	"context"
	"log/slog"

	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

// Finder decides whether two actors share a film
type Finder struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// New creates a finder. Pass an *oracle.Cached to memoize the film lists.
func New(o oracle.Oracle, logger *slog.Logger) *Finder {
	return &Finder{oracle: o, logger: helper.LoggerOrDefault(logger)}
}

// FindSharedEdge returns the first film of a that b also appears in, or nil.
// Oracle failures are returned, a missing link is never guessed.
func (f *Finder) FindSharedEdge(ctx context.Context, a string, b string) (*model.ResolvedLink, error) {
	filmsA, err := f.oracle.ActorFilms(ctx, a)
	if err != nil {
		return nil, helper.NewError("films of first actor", err)
	}
	filmsB, err := f.oracle.ActorFilms(ctx, b)
	if err != nil {
		return nil, helper.NewError("films of second actor", err)
	}

	shared := Intersect(filmsA, filmsB)
	if len(shared) == 0 {
		f.logger.Debug("No shared film", slog.String("actor_a", a), slog.String("actor_b", b))
		return nil, nil
	}

	first := shared[0]
	info, err := f.oracle.FilmInfo(ctx, first.ID)
	if err != nil {
		return nil, helper.NewError("film info", err)
	}
	if info != nil {
		first = *info
	}

	return &model.ResolvedLink{
		FilmID:    first.ID,
		Title:     first.Title,
		PosterURL: first.PosterURL,
	}, nil
}

// SharedFilms returns every film both actors appear in, in the order of a
func (f *Finder) SharedFilms(ctx context.Context, a string, b string) ([]model.Film, error) {
	filmsA, err := f.oracle.ActorFilms(ctx, a)
	if err != nil {
		return nil, helper.NewError("films of first actor", err)
	}
	filmsB, err := f.oracle.ActorFilms(ctx, b)
	if err != nil {
		return nil, helper.NewError("films of second actor", err)
	}

	shared := Intersect(filmsA, filmsB)
	films := make([]model.Film, 0, len(shared))
	for _, film := range shared {
		films = append(films, film.Film())
	}
	return films, nil
}

// Intersect keeps the films of a that are also in b, preserving the order of a
func Intersect(a []oracle.FilmRow, b []oracle.FilmRow) []oracle.FilmRow {
	inB := make(map[string]bool, len(b))
	for _, film := range b {
		inB[film.ID] = true
	}

	shared := []oracle.FilmRow{}
	for _, film := range a {
		if inB[film.ID] {
			shared = append(shared, film)
			delete(inB, film.ID)
		}
	}
	return shared
}
