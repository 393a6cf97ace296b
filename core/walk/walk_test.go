package walk

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds Q1 - F1 - Q2 - F2 - Q3 - F3 - Q4 - F4 - Q5
func chain() *oracle.Fake {
	return oracle.NewFake().
		AddActor("Q1", "Ann", 100).
		AddActor("Q2", "Ben", 100).
		AddActor("Q3", "Cid", 100).
		AddActor("Q4", "Dee", 100).
		AddActor("Q5", "Eve", 100).
		AddFilm("F1", "One", "Q1", "Q2").
		AddFilm("F2", "Two", "Q2", "Q3").
		AddFilm("F3", "Three", "Q3", "Q4").
		AddFilm("F4", "Four", "Q4", "Q5")
}

// ring builds eight actors where film Fi casts Qi, Qi+1 and Qi+2
func ring() *oracle.Fake {
	fake := oracle.NewFake()
	for i := 1; i <= 8; i++ {
		fake.AddActor(fmt.Sprintf("Q%d", i), fmt.Sprintf("Actor %d", i), 100)
	}
	for i := 1; i <= 8; i++ {
		fake.AddFilm(fmt.Sprintf("F%d", i), fmt.Sprintf("Film %d", i),
			fmt.Sprintf("Q%d", i), fmt.Sprintf("Q%d", i%8+1), fmt.Sprintf("Q%d", (i+1)%8+1))
	}
	return fake
}

func entity(id string) *model.Entity {
	return &model.Entity{ID: id}
}

func newGenerator(o oracle.Oracle, seed int64, opts ...Option) *Generator {
	opts = append([]Option{WithRand(rand.New(rand.NewSource(seed)))}, opts...)
	return NewGenerator(o, model.DefaultConfig(), nil, opts...)
}

func ids(path []model.WalkStep) []string {
	if len(path) == 0 {
		return nil
	}
	result := []string{path[0].From.ID}
	for _, step := range path {
		result = append(result, step.To.ID)
	}
	return result
}

func TestGenerateChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid call walks from start", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 3, MaxLength: 3, Start: entity("Q1")})
		require.NoError(t, err, "Expected GenerateChallenge to not return an error")
		assert.Equal(t, []string{"Q1", "Q2", "Q3", "Q4"}, ids(challenge.Path), "Expected the only simple walk of length 3")
		assert.Equal(t, "Q4", challenge.End.ID, "Expected the end to be the last actor of the walk")
		assert.Equal(t, "F3", challenge.Path[2].Via.ID, "Expected the linking film of the last step")
		assert.NoError(t, model.ValidatePath(challenge.Path), "Expected a valid path")
	})

	t.Run("Valid call walks backwards from end", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 2, MaxLength: 2, End: entity("Q5")})
		require.NoError(t, err, "Expected GenerateChallenge to not return an error")
		assert.Equal(t, []string{"Q3", "Q4", "Q5"}, ids(challenge.Path), "Expected the reversed walk")
		assert.Equal(t, "Q3", challenge.Start.ID, "Expected the start to be the first actor of the path")
		assert.Equal(t, "Q5", challenge.End.ID, "Expected the given end")
	})

	t.Run("Valid call with both ends skips the walk", func(t *testing.T) {
		fake := chain()
		g := newGenerator(fake, 1)

		challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{Start: entity("Q1"), End: entity("Q5")})
		require.NoError(t, err, "Expected GenerateChallenge to not return an error")
		assert.Empty(t, challenge.Path, "Expected no solution path")
		assert.Equal(t, 0, fake.Calls("actor_films"), "Expected no oracle call")
	})

	t.Run("Valid call accepts an early dead end", func(t *testing.T) {
		for seed := int64(1); seed <= 10; seed++ {
			g := newGenerator(chain(), seed)

			challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 2, MaxLength: 6, Start: entity("Q1")})
			require.NoError(t, err, "Expected GenerateChallenge to not return an error")
			assert.GreaterOrEqual(t, len(challenge.Path), 2, "Expected at least the min length")
			assert.LessOrEqual(t, len(challenge.Path), 4, "Expected the walk to stop at the dead end")
		}
	})

	t.Run("Valid call picks a popular start actor", func(t *testing.T) {
		fake := oracle.NewFake().
			AddActor("Q1", "Ann", 10).
			AddActor("Q2", "Ben", 10).
			AddActor("Q3", "Cid", 100).
			AddFilm("F1", "One", "Q1", "Q3").
			AddFilm("F2", "Two", "Q3", "Q2")
		g := newGenerator(fake, 3)

		challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 1, MaxLength: 1})
		require.NoError(t, err, "Expected GenerateChallenge to not return an error")
		assert.Equal(t, "Q3", challenge.Start.ID, "Expected the only actor above the notability threshold")
		assert.Len(t, challenge.Path, 1, "Expected one step")
		assert.Equal(t, "https://img/Q3.jpg", challenge.Start.ImageURL, "Expected the start image")
	})

	t.Run("Valid call picks from a static pool", func(t *testing.T) {
		fake := chain()
		g := newGenerator(fake, 5, WithStartPool([]model.Entity{{ID: "Q5", Label: "Eve"}}))

		challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 1, MaxLength: 1})
		require.NoError(t, err, "Expected GenerateChallenge to not return an error")
		assert.Equal(t, "Q5", challenge.Start.ID, "Expected the pool actor")
		assert.Equal(t, "Q4", challenge.End.ID, "Expected the only co-actor")
		assert.Equal(t, 0, fake.Calls("popular_actors"), "Expected no popular actor query")
	})

	t.Run("Valid call random walks are simple paths", func(t *testing.T) {
		successes := 0
		for seed := int64(1); seed <= 20; seed++ {
			g := newGenerator(ring(), seed)

			challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 2, MaxLength: 5, Start: entity("Q1")})
			if errors.Is(err, model.ErrGenerationExhausted) {
				continue
			}
			require.NoError(t, err, "Expected GenerateChallenge to not return an error")
			successes++

			assert.NoError(t, model.ValidatePath(challenge.Path), "Expected a valid path for seed %d", seed)
			assert.GreaterOrEqual(t, len(challenge.Path), 2, "Expected at least the min length")
			assert.LessOrEqual(t, len(challenge.Path), 5, "Expected at most the max length")
			assert.Equal(t, challenge.Start.ID, challenge.Path[0].From.ID, "Expected the path to begin at the start")
			assert.Equal(t, challenge.End.ID, challenge.Path[len(challenge.Path)-1].To.ID, "Expected the path to end at the end")
		}
		assert.Positive(t, successes, "Expected at least one challenge")
	})

	t.Run("Invalid call exhausts attempts", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		challenge, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 6, MaxLength: 6, Start: entity("Q1")})
		assert.ErrorIs(t, err, model.ErrGenerationExhausted, "Expected generation to be exhausted")
		assert.Nil(t, challenge, "Expected no challenge")
	})

	t.Run("Invalid call isolated start", func(t *testing.T) {
		fake := chain().AddActor("Q9", "Loner", 100)
		g := newGenerator(fake, 1)

		_, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 1, MaxLength: 2, Start: entity("Q9")})
		assert.ErrorIs(t, err, model.ErrGenerationExhausted, "Expected generation to be exhausted")
		assert.Equal(t, model.DefaultConfig().MaxAttempts, fake.Calls("actor_films"), "Expected one lookup per attempt")
	})

	t.Run("Invalid call length range", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		_, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 4, MaxLength: 2, Start: entity("Q1")})
		assert.Error(t, err, "Expected an error for an inverted range")
	})

	t.Run("Invalid call oracle failure", func(t *testing.T) {
		fake := chain()
		fake.Err = errors.New("down")
		g := newGenerator(fake, 1)

		_, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 1, MaxLength: 2})
		assert.ErrorIs(t, err, model.ErrOracleUnavailable, "Expected the oracle failure")
	})

	t.Run("Invalid call cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		g := newGenerator(chain(), 1)

		_, err := g.GenerateChallenge(cancelled, model.ChallengeOptions{MinLength: 1, MaxLength: 2, Start: entity("Q1")})
		assert.ErrorIs(t, err, context.Canceled, "Expected the cancellation")
	})
}

func TestGeneratePathFromPosition(t *testing.T) {
	ctx := context.Background()
	from := model.Entity{ID: "Q1", Label: "Ann"}
	to := model.Entity{ID: "Q4", Label: "Dee"}

	t.Run("Valid call closes the path at a co-actor of the target", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		path, err := g.GeneratePathFromPosition(ctx, from, to, 4)
		require.NoError(t, err, "Expected GeneratePathFromPosition to not return an error")
		assert.Equal(t, []string{"Q1", "Q2", "Q3", "Q4"}, ids(path), "Expected the chain")
		assert.Equal(t, "F3", path[2].Via.ID, "Expected the shared film to close the path")
		assert.Equal(t, "Dee", path[2].To.Label, "Expected the target entity")
	})

	t.Run("Valid call direct link", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		path, err := g.GeneratePathFromPosition(ctx, model.Entity{ID: "Q3"}, to, 4)
		require.NoError(t, err, "Expected GeneratePathFromPosition to not return an error")
		assert.Len(t, path, 1, "Expected a single step")
	})

	t.Run("Valid call same actor", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		path, err := g.GeneratePathFromPosition(ctx, to, to, 4)
		assert.NoError(t, err, "Expected no error")
		assert.Empty(t, path, "Expected an empty path")
	})

	t.Run("Invalid call target too far", func(t *testing.T) {
		g := newGenerator(chain(), 1)

		path, err := g.GeneratePathFromPosition(ctx, from, to, 2)
		assert.ErrorIs(t, err, model.ErrNoPath, "Expected no path within two steps")
		assert.Nil(t, path, "Expected no path")
	})
}

func TestHinterNext(t *testing.T) {
	ctx := context.Background()
	challenge := func(g *Generator) *model.Challenge {
		c, err := g.GenerateChallenge(ctx, model.ChallengeOptions{MinLength: 3, MaxLength: 3, Start: entity("Q1")})
		require.NoError(t, err, "Expected GenerateChallenge to not return an error")
		return c
	}

	t.Run("Valid call reveals film then actor on the solution path", func(t *testing.T) {
		g := newGenerator(chain(), 1)
		h := NewHinter(g)
		c := challenge(g)

		first := h.Next(ctx, c, model.Entity{ID: "Q2"}, 0)
		assert.Equal(t, 1, first.Number, "Expected the first hint")
		require.NotNil(t, first.Film, "Expected the film to be revealed")
		assert.Equal(t, "F2", first.Film.ID, "Expected the film of the next step")
		assert.Nil(t, first.Actor, "Expected the actor to stay hidden")
		assert.Nil(t, first.Path, "Expected the stored path to be kept")

		second := h.Next(ctx, c, model.Entity{ID: "Q2"}, 1)
		require.NotNil(t, second.Actor, "Expected the actor to be revealed")
		assert.Equal(t, "Q3", second.Actor.ID, "Expected the next actor")
	})

	t.Run("Valid call recomputes the path off the solution", func(t *testing.T) {
		g := newGenerator(chain(), 1)
		h := NewHinter(g)
		c := &model.Challenge{
			Start: model.Entity{ID: "Q1"},
			End:   model.Entity{ID: "Q3", Label: "Cid"},
			Path: []model.WalkStep{
				{From: model.Entity{ID: "Q1"}, Via: model.Film{ID: "F1"}, To: model.Entity{ID: "Q2"}},
				{From: model.Entity{ID: "Q2"}, Via: model.Film{ID: "F2"}, To: model.Entity{ID: "Q3"}},
			},
		}

		hint := h.Next(ctx, c, model.Entity{ID: "Q5"}, 2)
		assert.Equal(t, 3, hint.Number, "Expected the third hint")
		assert.Equal(t, []string{"Q5", "Q4", "Q3"}, ids(hint.Path), "Expected a new path from the player")
		require.NotNil(t, hint.Film, "Expected the film of the new first step")
		assert.Equal(t, "F4", hint.Film.ID, "Expected the film linking the player")
	})

	t.Run("Valid call degrades to encouragement", func(t *testing.T) {
		fake := chain()
		g := newGenerator(fake, 1)
		h := NewHinter(g)
		c := challenge(g)
		fake.Err = errors.New("down")

		hint := h.Next(ctx, c, model.Entity{ID: "Q5"}, 0)
		assert.Contains(t, hint.Message, c.End.Label, "Expected an encouragement naming the target")
		assert.Nil(t, hint.Film, "Expected no film")
		assert.Nil(t, hint.Actor, "Expected no actor")
	})

	t.Run("Invalid call without a solution path", func(t *testing.T) {
		h := NewHinter(newGenerator(chain(), 1))

		hint := h.Next(ctx, &model.Challenge{Start: *entity("Q1"), End: *entity("Q5")}, *entity("Q1"), 0)
		assert.Equal(t, 1, hint.Number, "Expected the hint to be counted")
		assert.Nil(t, hint.Film, "Expected no film")
	})
}
