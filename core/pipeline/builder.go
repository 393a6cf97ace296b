package pipeline

import (
	"sort"

	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/model"
)

// Film count buckets of the graph metadata
const (
	Bucket1To2   = "1-2 films"
	Bucket3To5   = "3-5 films"
	Bucket6To10  = "6-10 films"
	Bucket11To20 = "11-20 films"
	BucketOver20 = "20+ films"
)

type actorBuild struct {
	id       string
	label    string
	movies   []string
	hasMovie map[string]bool
	coActors []string
	hasCo    map[string]bool
}

func (a *actorBuild) addMovie(id string) {
	if !a.hasMovie[id] {
		a.hasMovie[id] = true
		a.movies = append(a.movies, id)
	}
}

func (a *actorBuild) addCoActor(id string) {
	if !a.hasCo[id] {
		a.hasCo[id] = true
		a.coActors = append(a.coActors, id)
	}
}

// Build materializes a graph from actor pair rows. Film counts include every
// row, connections only join selected actors and carry every shared film once.
func (p *Pipeline) Build(rows []oracle.GraphRow, maxTotal int) *model.Graph {
	sanitize := p.Sanitizer
	if sanitize == nil {
		sanitize = func(s string) string { return s }
	}

	actors := map[string]*actorBuild{}
	order := []string{}
	actor := func(row oracle.CastRow) *actorBuild {
		a, ok := actors[row.ID]
		if !ok {
			a = &actorBuild{id: row.ID, label: sanitize(row.Label), hasMovie: map[string]bool{}, hasCo: map[string]bool{}}
			actors[row.ID] = a
			order = append(order, row.ID)
		}
		return a
	}

	valid := rows[:0:0]
	for _, row := range rows {
		if row.Actor1.ID == "" || row.Actor2.ID == "" || row.Actor1.ID == row.Actor2.ID || row.Film.ID == "" {
			continue
		}
		valid = append(valid, row)
		actor(row.Actor1).addMovie(row.Film.ID)
		actor(row.Actor2).addMovie(row.Film.ID)
	}

	counts := make([]ActorCount, 0, len(order))
	for _, id := range order {
		counts = append(counts, ActorCount{ID: id, Films: len(actors[id].movies)})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Films > counts[j].Films })
	selected := p.Selector(counts, maxTotal)

	connections := map[string]*model.Connection{}
	connectionOrder := []string{}
	connectionFilms := map[string]map[string]bool{}
	for _, row := range valid {
		a1, a2 := row.Actor1.ID, row.Actor2.ID
		if !selected[a1] || !selected[a2] {
			continue
		}
		actors[a1].addCoActor(a2)
		actors[a2].addCoActor(a1)

		key := a1 + "-" + a2
		if a2 < a1 {
			key = a2 + "-" + a1
		}
		c, ok := connections[key]
		if !ok {
			c = &model.Connection{Actor1: a1, Actor2: a2, Movies: []model.Film{}}
			connections[key] = c
			connectionOrder = append(connectionOrder, key)
			connectionFilms[key] = map[string]bool{}
		}
		if !connectionFilms[key][row.Film.ID] {
			connectionFilms[key][row.Film.ID] = true
			c.Movies = append(c.Movies, model.Film{ID: row.Film.ID, Title: sanitize(row.Film.Title), PosterURL: row.Film.PosterURL})
		}
	}

	graph := &model.Graph{Actors: []*model.GraphActor{}, Connections: []*model.Connection{}}
	for _, id := range order {
		if !selected[id] {
			continue
		}
		a := actors[id]
		graph.Actors = append(graph.Actors, &model.GraphActor{
			ID:         a.id,
			Label:      a.label,
			Movies:     a.movies,
			CoActors:   append([]string{}, a.coActors...),
			Degree:     len(a.coActors),
			MovieCount: len(a.movies),
		})
	}
	for _, key := range connectionOrder {
		graph.Connections = append(graph.Connections, connections[key])
	}

	graph.Metadata = model.GraphMetadata{
		ActorCount:      len(graph.Actors),
		ConnectionCount: len(graph.Connections),
		Distribution:    Distribution(graph.Actors),
	}
	if p.Now != nil {
		graph.Metadata.DownloadDate = p.Now().UTC()
	}
	return graph
}

// Distribution buckets actors by their film count
func Distribution(actors []*model.GraphActor) map[string]int {
	distribution := map[string]int{
		Bucket1To2:   0,
		Bucket3To5:   0,
		Bucket6To10:  0,
		Bucket11To20: 0,
		BucketOver20: 0,
	}
	for _, a := range actors {
		switch {
		case a.MovieCount <= 2:
			distribution[Bucket1To2]++
		case a.MovieCount <= 5:
			distribution[Bucket3To5]++
		case a.MovieCount <= 10:
			distribution[Bucket6To10]++
		case a.MovieCount <= 20:
			distribution[Bucket11To20]++
		default:
			distribution[BucketOver20]++
		}
	}
	return distribution
}
