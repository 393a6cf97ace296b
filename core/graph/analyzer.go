package graph

import (
	"fmt"
	"math"
	"sort"

	"github.com/siherrmann/cinegraph/model"
)

const (
	// DefaultTopHubs is used when no hub count is requested
	DefaultTopHubs = 20
	// MaxBridges is the number of bridge actors reported
	MaxBridges = 20
)

// TopHubs returns the n actors with the highest degree, ties by id
func TopHubs(g *model.Graph, n int) []model.HubActor {
	if n <= 0 {
		n = DefaultTopHubs
	}

	actors := append([]*model.GraphActor(nil), g.Actors...)
	sort.Slice(actors, func(i, j int) bool {
		if actors[i].Degree != actors[j].Degree {
			return actors[i].Degree > actors[j].Degree
		}
		return actors[i].ID < actors[j].ID
	})
	if len(actors) > n {
		actors = actors[:n]
	}

	hubs := make([]model.HubActor, 0, len(actors))
	for _, actor := range actors {
		hubs = append(hubs, model.HubActor{
			ID:         actor.ID,
			Label:      actor.Label,
			Degree:     actor.Degree,
			MovieCount: actor.MovieCount,
		})
	}
	return hubs
}

// BridgeScores scores every actor by the number of its co-actor pairs that are
// not co-actors of each other and returns the top MaxBridges, ties by id.
func BridgeScores(g *model.Graph) []model.BridgeActor {
	index := g.ActorIndex()
	adjacency := g.Adjacency()

	bridges := make([]model.BridgeActor, 0, len(g.Actors))
	for _, actor := range g.Actors {
		coActors := neighbors(index, actor.ID)
		score := 0
		for i := 0; i < len(coActors); i++ {
			for j := i + 1; j < len(coActors); j++ {
				if !adjacency[coActors[i]][coActors[j]] {
					score++
				}
			}
		}
		bridges = append(bridges, model.BridgeActor{
			ID:          actor.ID,
			Label:       actor.Label,
			Degree:      actor.Degree,
			BridgeScore: score,
		})
	}

	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].BridgeScore != bridges[j].BridgeScore {
			return bridges[i].BridgeScore > bridges[j].BridgeScore
		}
		return bridges[i].ID < bridges[j].ID
	})
	if len(bridges) > MaxBridges {
		bridges = bridges[:MaxBridges]
	}
	return bridges
}

// ShortestPath returns a shortest chain of co-actors from a to b with the
// films linking each actor to the previous one.
func ShortestPath(g *model.Graph, a string, b string) ([]model.PathStep, error) {
	index := g.ActorIndex()
	if _, ok := index[b]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrActorNotInGraph, b)
	}

	results, err := BFS(g, a, -1)
	if err != nil {
		return nil, err
	}

	var found *TraversalResult
	for _, result := range results {
		if result.ActorID == b {
			found = result
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w between %s and %s", model.ErrNoPath, a, b)
	}

	films := connectionFilms(g)
	steps := make([]model.PathStep, 0, len(found.Path))
	for i, id := range found.Path {
		step := model.PathStep{ActorID: id, Label: index[id].Label}
		if i > 0 {
			step.Via = films[pairKey(found.Path[i-1], id)]
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// EgoSubgraph returns the actors within depth hops of center with the
// connections between them. Co-actor lists and degrees are trimmed to the
// subgraph so it satisfies the same invariants as a downloaded graph.
func EgoSubgraph(g *model.Graph, center string, depth int) (*model.Graph, error) {
	if depth < 0 {
		depth = 0
	}

	results, err := BFS(g, center, depth)
	if err != nil {
		return nil, err
	}

	included := make(map[string]bool, len(results))
	for _, result := range results {
		included[result.ActorID] = true
	}

	sub := &model.Graph{Actors: []*model.GraphActor{}, Connections: []*model.Connection{}}
	for _, actor := range g.Actors {
		if !included[actor.ID] {
			continue
		}
		coActors := []string{}
		for _, id := range actor.CoActors {
			if included[id] {
				coActors = append(coActors, id)
			}
		}
		sub.Actors = append(sub.Actors, &model.GraphActor{
			ID:         actor.ID,
			Label:      actor.Label,
			Movies:     actor.Movies,
			CoActors:   coActors,
			Degree:     len(coActors),
			MovieCount: actor.MovieCount,
		})
	}
	for _, c := range g.Connections {
		if included[c.Actor1] && included[c.Actor2] {
			sub.Connections = append(sub.Connections, c)
		}
	}

	sub.Metadata = model.GraphMetadata{
		ActorCount:      len(sub.Actors),
		ConnectionCount: len(sub.Connections),
		CenterActor:     center,
		Depth:           depth,
	}
	return sub, nil
}

// ComputeStats summarizes the degree distribution and density of a graph
func ComputeStats(g *model.Graph) model.GraphStats {
	stats := model.GraphStats{
		ActorCount:      len(g.Actors),
		ConnectionCount: len(g.Connections),
	}
	if len(g.Actors) == 0 {
		return stats
	}

	total := 0
	stats.MinDegree = math.MaxInt
	for _, actor := range g.Actors {
		total += actor.Degree
		stats.MaxDegree = max(stats.MaxDegree, actor.Degree)
		stats.MinDegree = min(stats.MinDegree, actor.Degree)
	}
	stats.AverageDegree = math.Round(float64(total)/float64(len(g.Actors))*100) / 100

	if n := len(g.Actors); n > 1 {
		stats.Density = 2 * float64(len(g.Connections)) / float64(n*(n-1))
	}

	visited := map[string]bool{}
	for _, actor := range g.Actors {
		if visited[actor.ID] {
			continue
		}
		component, err := DFS(g, actor.ID, -1)
		if err != nil {
			continue
		}
		for _, result := range component {
			visited[result.ActorID] = true
		}
		stats.Components++
	}

	return stats
}

// Analyze runs the analysis selected by the request
func Analyze(g *model.Graph, request model.AnalysisRequest) (*model.Analysis, error) {
	analysis := &model.Analysis{Kind: request.Kind}

	switch request.Kind {
	case model.AnalysisHubs:
		analysis.Hubs = TopHubs(g, request.TopN)
	case model.AnalysisBridges:
		analysis.Bridges = BridgeScores(g)
	case model.AnalysisShortestPath:
		path, err := ShortestPath(g, request.From, request.To)
		if err != nil {
			return nil, err
		}
		analysis.Path = path
	case model.AnalysisSubgraph:
		depth := request.Depth
		if depth == 0 {
			depth = 1
		}
		sub, err := EgoSubgraph(g, request.Center, depth)
		if err != nil {
			return nil, err
		}
		analysis.Subgraph = sub
	case model.AnalysisStats:
		stats := ComputeStats(g)
		analysis.Stats = &stats
	default:
		return nil, fmt.Errorf("unknown analysis kind %q", request.Kind)
	}

	return analysis, nil
}

func pairKey(a string, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func connectionFilms(g *model.Graph) map[string][]model.Film {
	films := make(map[string][]model.Film, len(g.Connections))
	for _, c := range g.Connections {
		films[pairKey(c.Actor1, c.Actor2)] = c.Movies
	}
	return films
}
