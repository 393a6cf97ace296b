package model

import (
	"fmt"
)

// WalkStep is one hop of a challenge path: From and To share the film Via
type WalkStep struct {
	From Entity `json:"from"`
	Via  Film   `json:"via"`
	To   Entity `json:"to"`
}

// ChallengeOptions configures challenge generation.
// Start and End are optional, a nil value means the generator picks one.
type ChallengeOptions struct {
	MinLength int     `json:"min_length"`
	MaxLength int     `json:"max_length"`
	Start     *Entity `json:"start,omitempty"`
	End       *Entity `json:"end,omitempty"`
}

// Challenge is a start/end pair with an optional precomputed solution path
type Challenge struct {
	Start Entity     `json:"start"`
	End   Entity     `json:"end"`
	Path  []WalkStep `json:"path"`
}

// ChallengeHint is the hint shown to a player during a challenge.
// Path is set when the solution had to be recomputed from the player's position.
type ChallengeHint struct {
	Number  int        `json:"number"`
	Message string     `json:"message"`
	Film    *Film      `json:"film,omitempty"`
	Actor   *Entity    `json:"actor,omitempty"`
	Path    []WalkStep `json:"path,omitempty"`
}

// ValidatePath checks that the steps chain and never revisit an actor
func ValidatePath(steps []WalkStep) error {
	if len(steps) == 0 {
		return nil
	}

	seen := map[string]bool{steps[0].From.ID: true}
	for i, step := range steps {
		if i > 0 && steps[i-1].To.ID != step.From.ID {
			return fmt.Errorf("step %d starts at %s but previous step ended at %s", i, step.From.ID, steps[i-1].To.ID)
		}
		if seen[step.To.ID] {
			return fmt.Errorf("step %d revisits actor %s", i, step.To.ID)
		}
		seen[step.To.ID] = true
	}

	return nil
}

// ReversePath returns the path walked backwards.
// Films are undirected so every reversed step is still valid.
func ReversePath(steps []WalkStep) []WalkStep {
	reversed := make([]WalkStep, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		reversed = append(reversed, WalkStep{
			From: steps[i].To,
			Via:  steps[i].Via,
			To:   steps[i].From,
		})
	}
	return reversed
}
