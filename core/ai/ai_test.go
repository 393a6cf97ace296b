package ai

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFake() *oracle.Fake {
	return oracle.NewFake().
		AddActor("Q1", "Tom Hanks", 200).
		AddActor("Q2", "Robin Wright", 80).
		AddActor("Q3", "Gary Sinise", 35).
		AddActor("Q4", "Sally Field", 90).
		AddActor("Q5", "Extra", 5).
		AddActor("Q6", "Meg Ryan", 120).
		AddFilm("F1", "Forrest Gump", "Q1", "Q2", "Q3", "Q4", "Q5").
		AddFilm("F2", "Sleepless in Seattle", "Q1", "Q6")
}

func newResponder(o oracle.Oracle) *Responder {
	return NewResponder(o, model.DefaultConfig(), rand.New(rand.NewSource(7)), nil)
}

func TestRespond(t *testing.T) {
	ctx := context.Background()
	last := model.Entity{ID: "Q1", Label: "Tom Hanks"}

	t.Run("Valid call plays a notable co-actor", func(t *testing.T) {
		r := newResponder(newFake())

		for i := 0; i < 20; i++ {
			move, err := r.Respond(ctx, last, []string{"Q1"})
			require.NoError(t, err, "Expected Respond to not return an error")
			require.NotNil(t, move, "Expected a move")
			assert.Contains(t, []string{"Q2", "Q3", "Q4", "Q6"}, move.Actor.ID, "Expected a co-actor above 30 sitelinks")
			assert.NotEmpty(t, move.Film.Title, "Expected the linking film")
		}
	})

	t.Run("Valid call respects exclusions", func(t *testing.T) {
		r := newResponder(newFake())

		move, err := r.Respond(ctx, last, []string{"Q2", "Q3", "Q4"})
		require.NoError(t, err, "Expected Respond to not return an error")
		require.NotNil(t, move, "Expected a move")
		assert.Equal(t, "Q6", move.Actor.ID, "Expected the only remaining co-actor")
		assert.Equal(t, "F2", move.Film.ID, "Expected the shared film")
	})

	t.Run("Valid call no co-actor left is a human win", func(t *testing.T) {
		r := newResponder(newFake())

		move, err := r.Respond(ctx, last, []string{"Q2", "Q3", "Q4", "Q6"})
		assert.NoError(t, err, "Expected no error")
		assert.Nil(t, move, "Expected no move")
	})

	t.Run("Invalid call oracle failure is not a win", func(t *testing.T) {
		fake := newFake()
		fake.Err = errors.New("down")
		r := newResponder(fake)

		move, err := r.Respond(ctx, last, nil)
		assert.ErrorIs(t, err, model.ErrOracleUnavailable, "Expected the oracle failure")
		assert.Nil(t, move, "Expected no move")
	})
}

func TestHints(t *testing.T) {
	ctx := context.Background()
	last := model.Entity{ID: "Q1"}

	t.Run("Valid call returns distinct notable co-actors", func(t *testing.T) {
		r := newResponder(newFake())

		hints, err := r.Hints(ctx, last, nil)
		require.NoError(t, err, "Expected Hints to not return an error")
		assert.Len(t, hints, 3, "Expected three hints")

		seen := map[string]bool{}
		for _, hint := range hints {
			assert.False(t, seen[hint.Actor.ID], "Expected distinct actors")
			seen[hint.Actor.ID] = true
			assert.Contains(t, []string{"Q2", "Q4", "Q6"}, hint.Actor.ID, "Expected co-actors above 40 sitelinks")
		}
	})

	t.Run("Valid call fewer candidates than hints", func(t *testing.T) {
		r := newResponder(newFake())

		hints, err := r.Hints(ctx, last, []string{"Q2", "Q4"})
		require.NoError(t, err, "Expected Hints to not return an error")
		require.Len(t, hints, 1, "Expected one hint")
		assert.Equal(t, "Sleepless in Seattle", hints[0].Film.Title, "Expected the film title")
	})

	t.Run("Invalid call oracle failure", func(t *testing.T) {
		fake := newFake()
		fake.Err = errors.New("down")
		r := newResponder(fake)

		_, err := r.Hints(ctx, last, nil)
		assert.ErrorIs(t, err, model.ErrOracleUnavailable, "Expected the oracle failure")
	})
}
