package pipeline

import (
	"math/rand"
	"sync"
)

// HubShare is the share of maxTotal kept by film count, the rest is sampled
const HubShare = 0.4

// HubSelector keeps the top HubShare of actors by film count and fills up to
// maxTotal with a random sample of the remaining actors
func HubSelector(r *rand.Rand) SelectFunc {
	var mu sync.Mutex

	return func(counts []ActorCount, maxTotal int) map[string]bool {
		selected := make(map[string]bool, min(maxTotal, len(counts)))

		top := min(int(float64(maxTotal)*HubShare), len(counts))
		for _, c := range counts[:top] {
			selected[c.ID] = true
		}

		rest := counts[top:]
		sample := min(maxTotal-top, len(rest))

		mu.Lock()
		order := r.Perm(len(rest))
		mu.Unlock()

		for _, i := range order[:sample] {
			selected[rest[i].ID] = true
		}
		return selected
	}
}

// TopSelector keeps the maxTotal actors with the most films
func TopSelector() SelectFunc {
	return func(counts []ActorCount, maxTotal int) map[string]bool {
		selected := map[string]bool{}
		for _, c := range counts[:min(maxTotal, len(counts))] {
			selected[c.ID] = true
		}
		return selected
	}
}
