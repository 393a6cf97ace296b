package model

import (
	"time"

	"github.com/google/uuid"
)

// GameMode is the kind of game a session plays
type GameMode string

const (
	ModeVersus    GameMode = "versus"
	ModeSolo      GameMode = "solo"
	ModeChallenge GameMode = "challenge"
)

// GameStatus is the lifecycle state of a session
type GameStatus string

const (
	StatusActive    GameStatus = "active"
	StatusWon       GameStatus = "won"
	StatusLost      GameStatus = "lost"
	StatusAbandoned GameStatus = "abandoned"
)

// PathEntry is one actor played in a session, Via is nil for the first actor
type PathEntry struct {
	Actor  Entity `json:"actor"`
	Via    *Film  `json:"via,omitempty"`
	Player string `json:"player"`
}

// Session is the caller owned state of one game
type Session struct {
	ID        uuid.UUID       `json:"id"`
	Mode      GameMode        `json:"mode"`
	Status    GameStatus      `json:"status"`
	Path      []PathEntry     `json:"path"`
	Used      map[string]bool `json:"used"`
	Mistakes  int             `json:"mistakes"`
	Scores    map[string]int  `json:"scores"`
	Players   []string        `json:"players"`
	Turn      int             `json:"turn"`
	Challenge *Challenge      `json:"challenge,omitempty"`
	HintsUsed int             `json:"hints_used"`
	// Suggestions counts the co-actor suggestions per player
	Suggestions map[string]int `json:"suggestions"`
	Metadata    Metadata       `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewSession returns an active session for the given players
func NewSession(mode GameMode, players ...string) *Session {
	now := time.Now()
	scores := make(map[string]int, len(players))
	for _, p := range players {
		scores[p] = 0
	}
	return &Session{
		ID:          uuid.New(),
		Mode:        mode,
		Status:      StatusActive,
		Path:        []PathEntry{},
		Used:        map[string]bool{},
		Scores:      scores,
		Players:     players,
		Suggestions: map[string]int{},
		Metadata:    Metadata{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a copy that shares no mutable state with s
func (s *Session) Clone() *Session {
	c := *s
	c.Path = make([]PathEntry, len(s.Path))
	for i, entry := range s.Path {
		c.Path[i] = entry
		if entry.Via != nil {
			via := *entry.Via
			c.Path[i].Via = &via
		}
	}
	c.Used = make(map[string]bool, len(s.Used))
	for k, v := range s.Used {
		c.Used[k] = v
	}
	c.Scores = make(map[string]int, len(s.Scores))
	for k, v := range s.Scores {
		c.Scores[k] = v
	}
	c.Suggestions = make(map[string]int, len(s.Suggestions))
	for k, v := range s.Suggestions {
		c.Suggestions[k] = v
	}
	c.Players = append([]string(nil), s.Players...)
	if s.Challenge != nil {
		challenge := *s.Challenge
		challenge.Path = append([]WalkStep(nil), s.Challenge.Path...)
		c.Challenge = &challenge
	}
	if s.Metadata != nil {
		c.Metadata = make(Metadata, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Last returns the most recently played actor or nil for an empty path
func (s *Session) Last() *Entity {
	if len(s.Path) == 0 {
		return nil
	}
	return &s.Path[len(s.Path)-1].Actor
}

// CurrentPlayer returns the player whose turn it is
func (s *Session) CurrentPlayer() string {
	if len(s.Players) == 0 {
		return ""
	}
	return s.Players[s.Turn%len(s.Players)]
}

// UsedIDs returns the ids of every actor played so far
func (s *Session) UsedIDs() []string {
	ids := make([]string, 0, len(s.Path))
	for _, entry := range s.Path {
		ids = append(ids, entry.Actor.ID)
	}
	return ids
}

// IsOver reports whether the session reached a terminal status
func (s *Session) IsOver() bool {
	return s.Status != StatusActive
}

// TurnOutcome classifies what happened to a submitted name
type TurnOutcome string

const (
	OutcomeAccepted  TurnOutcome = "accepted"
	OutcomeNotFound  TurnOutcome = "not_found"
	OutcomeDuplicate TurnOutcome = "duplicate"
	OutcomeNoLink    TurnOutcome = "no_link"
)

// TurnResult is returned for every submitted move
type TurnResult struct {
	Outcome  TurnOutcome   `json:"outcome"`
	Actor    *Entity       `json:"actor,omitempty"`
	Link     *ResolvedLink `json:"link,omitempty"`
	AIMove   *Move         `json:"ai_move,omitempty"`
	Mistakes int           `json:"mistakes"`
	Status   GameStatus    `json:"status"`
	// NewHighScore is set when a won or lost solo game beat the stored record
	NewHighScore bool `json:"new_high_score,omitempty"`
}

// HighScore is the best score reached in a game mode
type HighScore struct {
	Mode      GameMode  `json:"mode"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}
