package model

// ResolutionStatus tags the outcome of resolving a name to an actor
type ResolutionStatus string

const (
	ResolutionFound       ResolutionStatus = "found"
	ResolutionNotFound    ResolutionStatus = "not_found"
	ResolutionOracleError ResolutionStatus = "oracle_error"
)

// Resolution is the tagged result of an entity lookup.
// Entity is only set for ResolutionFound, Err only for ResolutionOracleError.
type Resolution struct {
	Status ResolutionStatus `json:"status"`
	Entity *Entity          `json:"entity,omitempty"`
	// Query is the name that produced the result, the corrected one if a correction was used
	Query string `json:"query"`
	Err   error  `json:"-"`
}

// Found returns a resolution for a confirmed actor
func Found(entity Entity, query string) Resolution {
	return Resolution{Status: ResolutionFound, Entity: &entity, Query: query}
}

// NotFound returns a resolution for a name without a matching actor
func NotFound(query string) Resolution {
	return Resolution{Status: ResolutionNotFound, Query: query}
}

// OracleError returns a resolution for a lookup that failed on the knowledge graph
func OracleError(query string, err error) Resolution {
	return Resolution{Status: ResolutionOracleError, Query: query, Err: err}
}

// IsFound reports whether an actor was resolved
func (r Resolution) IsFound() bool {
	return r.Status == ResolutionFound && r.Entity != nil
}

// Move is an actor the AI opponent plays together with the film linking it
type Move struct {
	Actor Entity `json:"actor"`
	Film  Film   `json:"film"`
}

// Hint is a suggested next actor for a player
type Hint struct {
	Actor Entity `json:"actor"`
	Film  Film   `json:"film"`
}
