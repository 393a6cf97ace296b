package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/siherrmann/cinegraph/helper"
)

// GraphActor is an actor of a materialized graph
type GraphActor struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Movies     []string `json:"movies"`
	CoActors   []string `json:"coActors"`
	Degree     int      `json:"degree"`
	MovieCount int      `json:"movieCount"`
}

// Connection links two actors of a graph with every film they share
type Connection struct {
	Actor1 string `json:"actor1"`
	Actor2 string `json:"actor2"`
	Movies []Film `json:"movies"`
}

// GraphMetadata describes a materialized graph or a subgraph cut from it
type GraphMetadata struct {
	ActorCount      int            `json:"actorCount"`
	ConnectionCount int            `json:"connectionCount"`
	DownloadDate    time.Time      `json:"downloadDate,omitzero"`
	Distribution    map[string]int `json:"distribution,omitempty"`
	CenterActor     string         `json:"centerActor,omitempty"`
	Depth           int            `json:"depth,omitempty"`
}

// Graph is a read-mostly snapshot of a part of the actor graph.
// It is rebuilt wholesale on every download and never patched.
type Graph struct {
	Actors      []*GraphActor `json:"actors"`
	Connections []*Connection `json:"connections"`
	Metadata    GraphMetadata `json:"metadata"`
}

// ActorIndex maps actor ids to actors
func (g *Graph) ActorIndex() map[string]*GraphActor {
	index := make(map[string]*GraphActor, len(g.Actors))
	for _, actor := range g.Actors {
		index[actor.ID] = actor
	}
	return index
}

// Adjacency maps actor ids to the set of their co-actors
func (g *Graph) Adjacency() map[string]map[string]bool {
	adjacency := make(map[string]map[string]bool, len(g.Actors))
	for _, actor := range g.Actors {
		neighbors := make(map[string]bool, len(actor.CoActors))
		for _, id := range actor.CoActors {
			neighbors[id] = true
		}
		adjacency[actor.ID] = neighbors
	}
	return adjacency
}

// Validate checks the structural invariants of the graph:
// degree equals the co-actor count, connection endpoints exist
// and every connection is mirrored in both co-actor sets.
func (g *Graph) Validate() error {
	for i, actor := range g.Actors {
		if actor == nil {
			return fmt.Errorf("%w: actor %d is null", ErrInvalidGraph, i)
		}
	}
	for i, c := range g.Connections {
		if c == nil {
			return fmt.Errorf("%w: connection %d is null", ErrInvalidGraph, i)
		}
	}

	index := g.ActorIndex()
	adjacency := g.Adjacency()

	for _, actor := range g.Actors {
		if actor.Degree != len(adjacency[actor.ID]) {
			return fmt.Errorf("%w: actor %s has degree %d but %d co-actors", ErrInvalidGraph, actor.ID, actor.Degree, len(adjacency[actor.ID]))
		}
	}

	for _, c := range g.Connections {
		if index[c.Actor1] == nil || index[c.Actor2] == nil {
			return fmt.Errorf("%w: connection %s-%s references an unknown actor", ErrInvalidGraph, c.Actor1, c.Actor2)
		}
		if !adjacency[c.Actor1][c.Actor2] || !adjacency[c.Actor2][c.Actor1] {
			return fmt.Errorf("%w: connection %s-%s is not symmetric", ErrInvalidGraph, c.Actor1, c.Actor2)
		}
	}

	return nil
}

// Value implements the driver.Valuer interface for database storage
func (g Graph) Value() (driver.Value, error) {
	return json.Marshal(g)
}

// Scan implements the sql.Scanner interface for database retrieval
func (g *Graph) Scan(value interface{}) error {
	if value == nil {
		*g = Graph{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, g)
}

// Snapshot is a graph stored under a key together with its content hash
type Snapshot struct {
	Key     string    `json:"key"`
	Graph   *Graph    `json:"graph"`
	ETag    string    `json:"etag"`
	SavedAt time.Time `json:"saved_at"`
}
