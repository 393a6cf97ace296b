package oracle

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/siherrmann/cinegraph/model"
)

// Oracle answers questions about actors and films from the knowledge graph.
// Every method returns an error wrapping model.ErrOracleUnavailable when the
// knowledge graph could not be reached.
type Oracle interface {
	// SearchEntities returns text search candidates in the order of the knowledge graph
	SearchEntities(ctx context.Context, text string, limit int) ([]SearchHit, error)
	// Popularity returns the sitelink count per id, unknown ids are missing
	Popularity(ctx context.Context, ids []string) (map[string]int, error)
	IsActor(ctx context.Context, id string) (bool, error)
	// ActorImage returns the image url of an actor or an empty string
	ActorImage(ctx context.Context, id string) (string, error)
	// ActorFilms returns the films and series an actor appears in
	ActorFilms(ctx context.Context, id string) ([]FilmRow, error)
	// FilmInfo returns the title and poster of a film or nil if it is unknown
	FilmInfo(ctx context.Context, id string) (*FilmRow, error)
	// FilmCast returns the actors of a film
	FilmCast(ctx context.Context, id string) ([]CastRow, error)
	// Neighbors returns co-actors of id above the notability threshold with a linking film
	Neighbors(ctx context.Context, id string, excluded []string, minSitelinks int, limit int) ([]NeighborRow, error)
	// PopularActors returns actors with an image above the notability threshold
	PopularActors(ctx context.Context, minSitelinks int, limit int) ([]CastRow, error)
	// GraphRows returns actor pairs sharing a film for the most notable hub actors
	GraphRows(ctx context.Context, hubCount int, minFilms int, limit int) ([]GraphRow, error)
}

// SearchHit is a text search candidate
type SearchHit struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// FilmRow is a film or series
type FilmRow struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url,omitempty"`
}

// Film converts the row to a model.Film
func (r FilmRow) Film() model.Film {
	return model.Film{ID: r.ID, Title: r.Title, PosterURL: r.PosterURL}
}

// CastRow is an actor
type CastRow struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	ImageURL  string `json:"image_url,omitempty"`
	Sitelinks int    `json:"sitelinks,omitempty"`
}

// Entity converts the row to a model.Entity
func (r CastRow) Entity() model.Entity {
	return model.Entity{ID: r.ID, Label: r.Label, ImageURL: r.ImageURL, Popularity: r.Sitelinks}
}

// NeighborRow is a co-actor together with one film linking it to the queried actor
type NeighborRow struct {
	Actor CastRow `json:"actor"`
	Film  FilmRow `json:"film"`
}

// GraphRow is one pair of actors sharing a film
type GraphRow struct {
	Actor1 CastRow `json:"actor1"`
	Actor2 CastRow `json:"actor2"`
	Film   FilmRow `json:"film"`
}

// ErrInvalidID is returned for ids that are not knowledge graph item ids
var ErrInvalidID = errors.New("invalid entity id")

var itemID = regexp.MustCompile(`^Q[1-9][0-9]*$`)

// ValidateID checks that id is an item id like Q42
func ValidateID(id string) error {
	if !itemID.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Error is a failed request to the knowledge graph.
// It matches both model.ErrOracleUnavailable and the underlying error.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: knowledge graph returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{model.ErrOracleUnavailable}
	}
	return []error{model.ErrOracleUnavailable, e.Err}
}
