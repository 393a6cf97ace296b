package oracle

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/siherrmann/cinegraph/core/cache"
)

// Cached memoizes the stable answers of an Oracle in a cache.
// Neighbors and GraphRows depend on the caller's game state or are too large
// for a cache quota and always go to the wrapped oracle.
type Cached struct {
	Oracle
	cache *cache.Cache
}

// NewCached wraps an oracle with a cache
func NewCached(o Oracle, c *cache.Cache) *Cached {
	return &Cached{Oracle: o, cache: c}
}

func (c *Cached) SearchEntities(ctx context.Context, text string, limit int) ([]SearchHit, error) {
	key := fmt.Sprintf("search:%d:%s", limit, text)
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]SearchHit, error) {
		return c.Oracle.SearchEntities(ctx, text, limit)
	})
}

func (c *Cached) Popularity(ctx context.Context, ids []string) (map[string]int, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	key := "popularity:" + strings.Join(sorted, ",")
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (map[string]int, error) {
		return c.Oracle.Popularity(ctx, sorted)
	})
}

func (c *Cached) IsActor(ctx context.Context, id string) (bool, error) {
	return cache.GetOrFetch(ctx, c.cache, "is_actor:"+id, func(ctx context.Context) (bool, error) {
		return c.Oracle.IsActor(ctx, id)
	})
}

func (c *Cached) ActorImage(ctx context.Context, id string) (string, error) {
	return cache.GetOrFetch(ctx, c.cache, "actor_image:"+id, func(ctx context.Context) (string, error) {
		return c.Oracle.ActorImage(ctx, id)
	})
}

func (c *Cached) ActorFilms(ctx context.Context, id string) ([]FilmRow, error) {
	return cache.GetOrFetch(ctx, c.cache, "actor_films:"+id, func(ctx context.Context) ([]FilmRow, error) {
		return c.Oracle.ActorFilms(ctx, id)
	})
}

func (c *Cached) FilmInfo(ctx context.Context, id string) (*FilmRow, error) {
	return cache.GetOrFetch(ctx, c.cache, "film_info:"+id, func(ctx context.Context) (*FilmRow, error) {
		return c.Oracle.FilmInfo(ctx, id)
	})
}

func (c *Cached) FilmCast(ctx context.Context, id string) ([]CastRow, error) {
	return cache.GetOrFetch(ctx, c.cache, "film_cast:"+id, func(ctx context.Context) ([]CastRow, error) {
		return c.Oracle.FilmCast(ctx, id)
	})
}

func (c *Cached) PopularActors(ctx context.Context, minSitelinks int, limit int) ([]CastRow, error) {
	key := fmt.Sprintf("popular_actors:%d:%d", minSitelinks, limit)
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]CastRow, error) {
		return c.Oracle.PopularActors(ctx, minSitelinks, limit)
	})
}
