package oracle

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Fake is an in memory Oracle over a hand built actor graph, used in tests
type Fake struct {
	mu        sync.Mutex
	actors    map[string]CastRow
	others    map[string]SearchHit
	films     map[string]FilmRow
	filmOrder []string
	casts     map[string][]string
	hits      map[string][]SearchHit
	calls     map[string]int
	block     chan struct{}
	// Err makes every call fail when set
	Err error
	// FailOps makes only the named operations fail with Err
	FailOps map[string]bool
}

// NewFake creates an empty fake oracle
func NewFake() *Fake {
	return &Fake{
		actors:  map[string]CastRow{},
		others:  map[string]SearchHit{},
		films:   map[string]FilmRow{},
		casts:   map[string][]string{},
		hits:    map[string][]SearchHit{},
		calls:   map[string]int{},
		FailOps: map[string]bool{},
	}
}

// AddActor adds an actor with a sitelink count
func (f *Fake) AddActor(id string, label string, sitelinks int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors[id] = CastRow{ID: id, Label: label, ImageURL: "https://img/" + id + ".jpg", Sitelinks: sitelinks}
	return f
}

// AddNonActor adds a searchable entity that is not an actor
func (f *Fake) AddNonActor(id string, label string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.others[id] = SearchHit{ID: id, Label: label}
	return f
}

// AddFilm adds a film with its cast in billing order
func (f *Fake) AddFilm(id string, title string, cast ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.films[id]; !ok {
		f.filmOrder = append(f.filmOrder, id)
	}
	f.films[id] = FilmRow{ID: id, Title: title, PosterURL: "https://img/" + id + ".jpg"}
	f.casts[id] = cast
	return f
}

// SetSearchHits fixes the candidates returned for a search text
func (f *Fake) SetSearchHits(text string, hits ...SearchHit) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[text] = hits
	return f
}

// Calls returns how often an operation was called
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// SetBlock makes every call wait until release is closed
func (f *Fake) SetBlock(release chan struct{}) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = release
	return f
}

func (f *Fake) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Err != nil && (len(f.FailOps) == 0 || f.FailOps[op]) {
		return &Error{Op: op, Err: f.Err}
	}
	return nil
}

func (f *Fake) SearchEntities(ctx context.Context, text string, limit int) ([]SearchHit, error) {
	if err := f.enter(ctx, "search"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if hits, ok := f.hits[text]; ok {
		return append([]SearchHit(nil), hits...), nil
	}

	needle := strings.ToLower(text)
	hits := []SearchHit{}
	for _, a := range f.actors {
		if strings.Contains(strings.ToLower(a.Label), needle) {
			hits = append(hits, SearchHit{ID: a.ID, Label: a.Label})
		}
	}
	for _, o := range f.others {
		if strings.Contains(strings.ToLower(o.Label), needle) {
			hits = append(hits, o)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *Fake) Popularity(ctx context.Context, ids []string) (map[string]int, error) {
	if err := f.enter(ctx, "popularity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	popularity := map[string]int{}
	for _, id := range ids {
		if a, ok := f.actors[id]; ok {
			popularity[id] = a.Sitelinks
		}
	}
	return popularity, nil
}

func (f *Fake) IsActor(ctx context.Context, id string) (bool, error) {
	if err := f.enter(ctx, "is_actor"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.actors[id]
	return ok, nil
}

func (f *Fake) ActorImage(ctx context.Context, id string) (string, error) {
	if err := f.enter(ctx, "actor_image"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.actors[id].ImageURL, nil
}

func (f *Fake) ActorFilms(ctx context.Context, id string) ([]FilmRow, error) {
	if err := f.enter(ctx, "actor_films"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.filmsOf(id), nil
}

func (f *Fake) FilmInfo(ctx context.Context, id string) (*FilmRow, error) {
	if err := f.enter(ctx, "film_info"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	film, ok := f.films[id]
	if !ok {
		return nil, nil
	}
	return &film, nil
}

func (f *Fake) FilmCast(ctx context.Context, id string) ([]CastRow, error) {
	if err := f.enter(ctx, "film_cast"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	cast := []CastRow{}
	for _, actorID := range f.casts[id] {
		if a, ok := f.actors[actorID]; ok {
			cast = append(cast, a)
		}
	}
	return cast, nil
}

func (f *Fake) Neighbors(ctx context.Context, id string, excluded []string, minSitelinks int, limit int) ([]NeighborRow, error) {
	if err := f.enter(ctx, "neighbors"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	skip := map[string]bool{id: true}
	for _, e := range excluded {
		skip[e] = true
	}

	neighbors := []NeighborRow{}
	for _, film := range f.filmsOf(id) {
		for _, actorID := range f.casts[film.ID] {
			a, ok := f.actors[actorID]
			if !ok || skip[actorID] || a.Sitelinks <= minSitelinks {
				continue
			}
			skip[actorID] = true
			neighbors = append(neighbors, NeighborRow{Actor: a, Film: film})
			if limit > 0 && len(neighbors) == limit {
				return neighbors, nil
			}
		}
	}
	return neighbors, nil
}

func (f *Fake) PopularActors(ctx context.Context, minSitelinks int, limit int) ([]CastRow, error) {
	if err := f.enter(ctx, "popular_actors"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	actors := []CastRow{}
	for _, a := range f.actors {
		if a.Sitelinks > minSitelinks {
			actors = append(actors, a)
		}
	}
	sort.Slice(actors, func(i, j int) bool { return actors[i].ID < actors[j].ID })
	if limit > 0 && len(actors) > limit {
		actors = actors[:limit]
	}
	return actors, nil
}

func (f *Fake) GraphRows(ctx context.Context, hubCount int, minFilms int, limit int) ([]GraphRow, error) {
	if err := f.enter(ctx, "graph_rows"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	hubs := []CastRow{}
	for _, a := range f.actors {
		if len(f.filmsOf(a.ID)) >= minFilms {
			hubs = append(hubs, a)
		}
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Sitelinks != hubs[j].Sitelinks {
			return hubs[i].Sitelinks > hubs[j].Sitelinks
		}
		return hubs[i].ID < hubs[j].ID
	})
	if len(hubs) > hubCount {
		hubs = hubs[:hubCount]
	}

	rows := []GraphRow{}
	for _, hub := range hubs {
		for _, film := range f.filmsOf(hub.ID) {
			for _, actorID := range f.casts[film.ID] {
				other, ok := f.actors[actorID]
				if !ok || actorID == hub.ID {
					continue
				}
				rows = append(rows, GraphRow{
					Actor1: CastRow{ID: hub.ID, Label: hub.Label},
					Actor2: CastRow{ID: other.ID, Label: other.Label},
					Film:   FilmRow{ID: film.ID, Title: film.Title},
				})
				if limit > 0 && len(rows) == limit {
					return rows, nil
				}
			}
		}
	}
	return rows, nil
}

func (f *Fake) filmsOf(id string) []FilmRow {
	films := []FilmRow{}
	for _, filmID := range f.filmOrder {
		for _, actorID := range f.casts[filmID] {
			if actorID == id {
				films = append(films, f.films[filmID])
				break
			}
		}
	}
	return films
}
