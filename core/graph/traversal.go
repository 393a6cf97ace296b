package graph

import (
	"fmt"
	"sort"

	"github.com/siherrmann/cinegraph/model"
)

// TraversalResult contains an actor and its distance from the source
type TraversalResult struct {
	ActorID  string
	Distance int
	Path     []string // Path from source to this actor
}

// neighbors returns the sorted co-actors of id that exist in the graph
func neighbors(index map[string]*model.GraphActor, id string) []string {
	actor, ok := index[id]
	if !ok {
		return nil
	}

	result := make([]string, 0, len(actor.CoActors))
	for _, coActor := range actor.CoActors {
		if _, ok := index[coActor]; ok {
			result = append(result, coActor)
		}
	}
	sort.Strings(result)
	return result
}

// BFS performs breadth-first search from a source actor.
// Neighbors are visited in id order so the result is deterministic.
func BFS(g *model.Graph, sourceID string, maxHops int) ([]*TraversalResult, error) {
	index := g.ActorIndex()
	if _, ok := index[sourceID]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrActorNotInGraph, sourceID)
	}

	visited := map[string]bool{sourceID: true}
	queue := []TraversalResult{{
		ActorID:  sourceID,
		Distance: 0,
		Path:     []string{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if maxHops >= 0 && current.Distance >= maxHops {
			continue
		}

		for _, targetID := range neighbors(index, current.ActorID) {
			if visited[targetID] {
				continue
			}
			visited[targetID] = true

			newPath := make([]string, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				ActorID:  targetID,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source actor, a negative maxHops means unbounded
func DFS(g *model.Graph, sourceID string, maxHops int) ([]*TraversalResult, error) {
	index := g.ActorIndex()
	if _, ok := index[sourceID]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrActorNotInGraph, sourceID)
	}

	visited := make(map[string]bool)
	var results []*TraversalResult
	dfsRecursive(index, sourceID, 0, maxHops, []string{sourceID}, visited, &results)

	return results, nil
}

// dfsRecursive is the recursive helper for DFS
func dfsRecursive(
	index map[string]*model.GraphActor,
	current string,
	distance int,
	maxHops int,
	path []string,
	visited map[string]bool,
	results *[]*TraversalResult,
) {
	visited[current] = true

	pathCopy := make([]string, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		ActorID:  current,
		Distance: distance,
		Path:     pathCopy,
	})

	if maxHops >= 0 && distance >= maxHops {
		return
	}

	for _, targetID := range neighbors(index, current) {
		if visited[targetID] {
			continue
		}

		newPath := make([]string, len(path), len(path)+1)
		copy(newPath, path)
		newPath = append(newPath, targetID)

		dfsRecursive(index, targetID, distance+1, maxHops, newPath, visited, results)
	}
}

// GetNeighbors retrieves the immediate co-actors (1-hop) of an actor
func GetNeighbors(g *model.Graph, actorID string) ([]string, error) {
	results, err := BFS(g, actorID, 1)
	if err != nil {
		return nil, err
	}

	// Skip the source actor itself (first result)
	ids := make([]string, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		ids = append(ids, results[i].ActorID)
	}

	return ids, nil
}
