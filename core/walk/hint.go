package walk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/cinegraph/model"
)

// Hinter gives progressive hints along the solution path of a challenge
type Hinter struct {
	generator  *Generator
	pathLength int
}

// NewHinter creates a hinter that recomputes paths of at most HintPathLength steps
func NewHinter(generator *Generator) *Hinter {
	return &Hinter{generator: generator, pathLength: max(generator.config.HintPathLength, 1)}
}

// Next returns hint number hintsUsed+1 for a player standing on current.
// Odd hints name the film of the next step, even hints name the next actor.
// When the player left the solution path a new path is computed from current
// and returned in the hint. Failures degrade to an encouragement.
func (h *Hinter) Next(ctx context.Context, challenge *model.Challenge, current model.Entity, hintsUsed int) model.ChallengeHint {
	number := hintsUsed + 1
	if challenge == nil || len(challenge.Path) == 0 {
		return model.ChallengeHint{
			Number:  number,
			Message: "Hints are only available when the game picked both actors",
		}
	}

	for _, step := range challenge.Path {
		if step.From.ID == current.ID {
			return reveal(number, step, "", nil)
		}
	}

	path, err := h.generator.GeneratePathFromPosition(ctx, current, challenge.End, h.pathLength)
	if err != nil {
		h.generator.logger.Debug("No hint path", slog.String("from", current.ID), slog.String("to", challenge.End.ID), slog.String("error", err.Error()))
		return model.ChallengeHint{
			Number:  number,
			Message: fmt.Sprintf("Keep exploring, there is a path to %s", challenge.End.Label),
		}
	}
	if len(path) == 0 {
		return model.ChallengeHint{
			Number:  number,
			Message: fmt.Sprintf("Keep going towards %s, you are on the right track", challenge.End.Label),
		}
	}

	return reveal(number, path[0], "New path found! ", path)
}

func reveal(number int, step model.WalkStep, prefix string, path []model.WalkStep) model.ChallengeHint {
	hint := model.ChallengeHint{Number: number, Path: path}
	if number%2 == 1 {
		film := step.Via
		hint.Film = &film
		hint.Message = fmt.Sprintf("%sLook for an actor who played in %q", prefix, film.Title)
	} else {
		actor := step.To
		hint.Actor = &actor
		hint.Message = fmt.Sprintf("The next actor is %s", actor.Label)
	}
	return hint
}
