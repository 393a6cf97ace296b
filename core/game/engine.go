package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/cinegraph/core/walk"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

// AIPlayer is the name recorded for moves of the AI opponent
const AIPlayer = "ai"

// MaxSuggestionRequests bounds the co-actor suggestions of each player in a solo or versus game
const MaxSuggestionRequests = 3

// Resolver turns a typed name into an actor
type Resolver interface {
	Resolve(ctx context.Context, name string) model.Resolution
}

// LinkFinder decides whether two actors share a film
type LinkFinder interface {
	FindSharedEdge(ctx context.Context, a string, b string) (*model.ResolvedLink, error)
}

// Opponent plays against a solo player and suggests co-actors
type Opponent interface {
	Respond(ctx context.Context, last model.Entity, excluded []string) (*model.Move, error)
	Hints(ctx context.Context, last model.Entity, excluded []string) ([]model.Hint, error)
}

// ScoreStore keeps the best score per game mode
type ScoreStore interface {
	SaveHighScore(ctx context.Context, mode model.GameMode, score int) (*model.HighScore, bool, error)
	SelectHighScore(ctx context.Context, mode model.GameMode) (*model.HighScore, error)
	DeleteHighScore(ctx context.Context, mode model.GameMode) error
}

// Engine applies the game rules to caller owned sessions.
// It never keeps a session, callers serialize moves per session.
type Engine struct {
	resolver  Resolver
	links     LinkFinder
	opponent  Opponent
	generator *walk.Generator
	hinter    *walk.Hinter
	scores    ScoreStore
	config    model.Config
	now       func() time.Time
	logger    *slog.Logger
}

// NewEngine creates a game engine
func NewEngine(resolver Resolver, links LinkFinder, opponent Opponent, generator *walk.Generator, config model.Config, logger *slog.Logger) *Engine {
	return &Engine{
		resolver:  resolver,
		links:     links,
		opponent:  opponent,
		generator: generator,
		hinter:    walk.NewHinter(generator),
		config:    config,
		now:       time.Now,
		logger:    helper.LoggerOrDefault(logger),
	}
}

// SetScoreStore enables high scores for finished solo games
func (e *Engine) SetScoreStore(store ScoreStore) {
	e.scores = store
}

// NewVersus starts a game of two or more humans taking turns
func (e *Engine) NewVersus(players ...string) *model.Session {
	if len(players) == 0 {
		players = []string{"player1", "player2"}
	}
	return model.NewSession(model.ModeVersus, players...)
}

// NewSolo starts a game of one player against the AI opponent
func (e *Engine) NewSolo(player string) *model.Session {
	if player == "" {
		player = "player"
	}
	return model.NewSession(model.ModeSolo, player)
}

// NewChallenge starts a game where the player has to connect two actors.
// The start actor is already played.
func (e *Engine) NewChallenge(ctx context.Context, player string, opts model.ChallengeOptions) (*model.Session, error) {
	challenge, err := e.generator.GenerateChallenge(ctx, opts)
	if err != nil {
		return nil, helper.NewError("generate challenge", err)
	}

	if player == "" {
		player = "player"
	}
	s := model.NewSession(model.ModeChallenge, player)
	s.Challenge = challenge
	s.Path = append(s.Path, model.PathEntry{Actor: challenge.Start})
	s.Used[challenge.Start.ID] = true
	return s, nil
}

// Submit plays a typed name for the current player.
// Unknown names, repeated actors and actors without a shared film with the
// previous actor count as mistakes. Oracle failures are returned as errors
// and never count against the player. In solo mode an accepted move is kept
// even if the AI opponent then fails, the error is returned with the result
// and AITurn retries the opponent.
func (e *Engine) Submit(ctx context.Context, s *model.Session, name string) (*model.TurnResult, error) {
	if s.IsOver() {
		return nil, model.ErrGameOver
	}

	resolution := e.resolver.Resolve(ctx, name)
	if resolution.Status == model.ResolutionOracleError {
		return nil, helper.NewError("resolve", resolution.Err)
	}
	if !resolution.IsFound() {
		return e.mistake(ctx, s, model.OutcomeNotFound, nil), nil
	}

	actor := *resolution.Entity
	if s.Used[actor.ID] {
		return e.mistake(ctx, s, model.OutcomeDuplicate, &actor), nil
	}

	var link *model.ResolvedLink
	if last := s.Last(); last != nil {
		l, err := e.links.FindSharedEdge(ctx, last.ID, actor.ID)
		if err != nil {
			return nil, helper.NewError("shared film", err)
		}
		if l == nil {
			return e.mistake(ctx, s, model.OutcomeNoLink, &actor), nil
		}
		link = l
	}

	player := s.CurrentPlayer()
	e.play(s, actor, link, player)
	s.Scores[player]++

	result := &model.TurnResult{Outcome: model.OutcomeAccepted, Actor: &actor, Link: link}

	switch s.Mode {
	case model.ModeVersus:
		s.Turn++
	case model.ModeChallenge:
		if actor.ID == s.Challenge.End.ID {
			s.Status = model.StatusWon
			e.logger.Info("Challenge solved", slog.String("session", s.ID.String()), slog.Int("steps", len(s.Path)-1))
		}
	case model.ModeSolo:
		move, err := e.AITurn(ctx, s)
		result.AIMove = move
		if err != nil {
			e.fill(s, result)
			return result, err
		}
		if move == nil {
			result.NewHighScore = e.finish(ctx, s, model.StatusWon)
		}
	}

	e.fill(s, result)
	return result, nil
}

// AITurn lets the AI opponent answer the last actor of a solo game.
// A nil move means the opponent found nothing and the player won.
func (e *Engine) AITurn(ctx context.Context, s *model.Session) (*model.Move, error) {
	if s.Mode != model.ModeSolo {
		return nil, model.ErrWrongMode
	}
	if s.IsOver() {
		return nil, model.ErrGameOver
	}
	last := s.Last()
	if last == nil {
		return nil, fmt.Errorf("%w: the player has to start", model.ErrWrongMode)
	}

	move, err := e.opponent.Respond(ctx, *last, s.UsedIDs())
	if err != nil {
		return nil, helper.NewError("ai respond", err)
	}
	if move == nil {
		return nil, nil
	}

	film := move.Film
	e.play(s, move.Actor, &model.ResolvedLink{FilmID: film.ID, Title: film.Title, PosterURL: film.PosterURL}, AIPlayer)
	return move, nil
}

// Hint returns the next challenge hint from the player's current actor.
// A recomputed solution path replaces the stored one.
func (e *Engine) Hint(ctx context.Context, s *model.Session) (model.ChallengeHint, error) {
	if s.Mode != model.ModeChallenge {
		return model.ChallengeHint{}, model.ErrWrongMode
	}
	if s.IsOver() {
		return model.ChallengeHint{}, model.ErrGameOver
	}

	hint := e.hinter.Next(ctx, s.Challenge, *s.Last(), s.HintsUsed)
	s.HintsUsed++
	if hint.Path != nil {
		s.Challenge.Path = hint.Path
	}
	s.UpdatedAt = e.now()
	return hint, nil
}

// Suggest returns co-actors of the last actor for the current player.
// Every player has its own budget, only successful requests with at least
// one suggestion are counted.
func (e *Engine) Suggest(ctx context.Context, s *model.Session) ([]model.Hint, error) {
	if s.Mode == model.ModeChallenge {
		return nil, model.ErrWrongMode
	}
	if s.IsOver() {
		return nil, model.ErrGameOver
	}
	player := s.CurrentPlayer()
	if s.Suggestions[player] >= MaxSuggestionRequests {
		return nil, model.ErrNoHintsLeft
	}
	last := s.Last()
	if last == nil {
		return []model.Hint{}, nil
	}

	hints, err := e.opponent.Hints(ctx, *last, s.UsedIDs())
	if err != nil {
		return nil, helper.NewError("suggest", err)
	}
	if len(hints) > 0 {
		if s.Suggestions == nil {
			s.Suggestions = map[string]int{}
		}
		s.Suggestions[player]++
		s.UpdatedAt = e.now()
	}
	return hints, nil
}

// Abandon ends the session. A solo score still counts for the high score.
func (e *Engine) Abandon(ctx context.Context, s *model.Session) (*model.TurnResult, error) {
	if s.IsOver() {
		return nil, model.ErrGameOver
	}
	result := &model.TurnResult{}
	result.NewHighScore = e.finish(ctx, s, model.StatusAbandoned)
	e.fill(s, result)
	return result, nil
}

// HighScore returns the stored best score of a mode, zero without a store
func (e *Engine) HighScore(ctx context.Context, mode model.GameMode) (int, error) {
	if e.scores == nil {
		return 0, nil
	}
	score, err := e.scores.SelectHighScore(ctx, mode)
	if err != nil {
		return 0, helper.NewError("select high score", err)
	}
	if score == nil {
		return 0, nil
	}
	return score.Score, nil
}

func (e *Engine) play(s *model.Session, actor model.Entity, link *model.ResolvedLink, player string) {
	entry := model.PathEntry{Actor: actor, Player: player}
	if link != nil {
		film := link.Film()
		entry.Via = &film
	}
	s.Path = append(s.Path, entry)
	s.Used[actor.ID] = true
	s.UpdatedAt = e.now()
}

func (e *Engine) mistake(ctx context.Context, s *model.Session, outcome model.TurnOutcome, actor *model.Entity) *model.TurnResult {
	s.Mistakes++
	s.UpdatedAt = e.now()

	result := &model.TurnResult{Outcome: outcome, Actor: actor}
	if s.Mistakes >= e.config.MaxMistakes {
		result.NewHighScore = e.finish(ctx, s, model.StatusLost)
	}
	e.fill(s, result)
	return result
}

// finish sets a terminal status and records a solo high score.
// Store failures are logged, the game result stands.
func (e *Engine) finish(ctx context.Context, s *model.Session, status model.GameStatus) bool {
	s.Status = status
	s.UpdatedAt = e.now()

	if s.Mode != model.ModeSolo || e.scores == nil {
		return false
	}

	score := s.Scores[s.CurrentPlayer()]
	_, isNew, err := e.scores.SaveHighScore(ctx, s.Mode, score)
	if err != nil {
		e.logger.Error("Error saving high score", slog.String("session", s.ID.String()), slog.String("error", err.Error()))
		return false
	}
	return isNew
}

func (e *Engine) fill(s *model.Session, result *model.TurnResult) {
	result.Mistakes = s.Mistakes
	result.Status = s.Status
}
