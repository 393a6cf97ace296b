package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	session := NewSession(ModeVersus, "alice", "bob")

	assert.Equal(t, StatusActive, session.Status, "Expected a new session to be active")
	assert.False(t, session.IsOver(), "Expected a new session to not be over")
	assert.Nil(t, session.Last(), "Expected no last actor")
	assert.Equal(t, "alice", session.CurrentPlayer(), "Expected the first player to start")
	assert.Equal(t, map[string]int{"alice": 0, "bob": 0}, session.Scores, "Expected zero scores")

	session.Turn++
	assert.Equal(t, "bob", session.CurrentPlayer(), "Expected turns to alternate")

	session.Path = append(session.Path, PathEntry{Actor: Entity{ID: "Q1"}}, PathEntry{Actor: Entity{ID: "Q2"}})
	assert.Equal(t, "Q2", session.Last().ID, "Expected the most recent actor")
	assert.Equal(t, []string{"Q1", "Q2"}, session.UsedIDs(), "Expected ids in play order")
}

func TestSessionClone(t *testing.T) {
	t.Run("Valid call clone shares no mutable state", func(t *testing.T) {
		session := NewSession(ModeChallenge, "alice")
		session.Path = append(session.Path, PathEntry{Actor: Entity{ID: "Q1"}, Via: &Film{ID: "F1", Title: "One"}})
		session.Used["Q1"] = true
		session.Suggestions["alice"] = 1
		session.Challenge = &Challenge{Start: Entity{ID: "Q1"}, End: Entity{ID: "Q3"}, Path: []WalkStep{{From: Entity{ID: "Q1"}, To: Entity{ID: "Q3"}}}}

		clone := session.Clone()
		require.Equal(t, session, clone, "Expected the clone to equal the original")

		clone.Path = append(clone.Path, PathEntry{Actor: Entity{ID: "Q2"}})
		clone.Path[0].Via.Title = "Changed"
		clone.Used["Q2"] = true
		clone.Scores["alice"] = 5
		clone.Suggestions["alice"] = 3
		clone.Players[0] = "bob"
		clone.Challenge.Path = nil
		clone.Metadata["room"] = "r1"

		assert.Len(t, session.Path, 1, "Expected the original path to be unchanged")
		assert.Equal(t, "One", session.Path[0].Via.Title, "Expected the original film to be unchanged")
		assert.False(t, session.Used["Q2"], "Expected the original used set to be unchanged")
		assert.Equal(t, 0, session.Scores["alice"], "Expected the original scores to be unchanged")
		assert.Equal(t, 1, session.Suggestions["alice"], "Expected the original suggestions to be unchanged")
		assert.Equal(t, "alice", session.Players[0], "Expected the original players to be unchanged")
		assert.Len(t, session.Challenge.Path, 1, "Expected the original challenge to be unchanged")
		assert.NotContains(t, session.Metadata, "room", "Expected the original metadata to be unchanged")
	})
}

func TestResolution(t *testing.T) {
	found := Found(Entity{ID: "Q1", Label: "A"}, "A")
	assert.True(t, found.IsFound(), "Expected a found resolution")
	assert.False(t, NotFound("A").IsFound(), "Expected a not found resolution")
	assert.False(t, OracleError("A", ErrOracleUnavailable).IsFound(), "Expected an oracle error to not be found")
}
