package model

import "errors"

var (
	// ErrOracleUnavailable marks transport or HTTP failures talking to the knowledge graph
	ErrOracleUnavailable = errors.New("knowledge graph unavailable")
	// ErrGenerationExhausted is returned when no challenge could be built within the attempt budget
	ErrGenerationExhausted = errors.New("challenge generation exhausted")
	// ErrNoPath is returned when no connecting path was found within the search ceiling
	ErrNoPath = errors.New("no connecting path found")
	// ErrActorNotInGraph is returned by graph analysis for unknown actor ids
	ErrActorNotInGraph = errors.New("actor not in graph")
	// ErrInvalidGraph is returned when a graph violates its structural invariants
	ErrInvalidGraph = errors.New("invalid graph")
	// ErrGameOver is returned for moves on a session that already ended
	ErrGameOver = errors.New("game is over")
	// ErrNoHintsLeft is returned when a session used up its hint requests
	ErrNoHintsLeft = errors.New("no hints left")
	// ErrWrongMode is returned for operations the session's game mode does not support
	ErrWrongMode = errors.New("operation not supported in this game mode")
)
