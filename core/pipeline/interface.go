package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
)

// FetchFunc fetches the actor pairs of a download in one bulk request.
// Limit caps the number of rows.
type FetchFunc func(ctx context.Context, hubCount int, limit int) ([]oracle.GraphRow, error)

// SelectFunc picks the actors kept in the graph, counts are sorted by film count descending
type SelectFunc func(counts []ActorCount, maxTotal int) map[string]bool

// SanitizeFunc cleans labels and titles coming from the knowledge graph
type SanitizeFunc func(s string) string

// ActorCount is an actor seen in a download with the number of distinct films it appears in
type ActorCount struct {
	ID    string
	Films int
}

// Pipeline combines fetching, selection and sanitizing into a graph download
type Pipeline struct {
	Fetcher   FetchFunc
	Selector  SelectFunc
	Sanitizer SanitizeFunc // Optional, defaults to helper.CleanString
	Now       func() time.Time
}

// NewPipeline creates a new download pipeline
func NewPipeline(fetcher FetchFunc, selector SelectFunc) *Pipeline {
	return &Pipeline{
		Fetcher:   fetcher,
		Selector:  selector,
		Sanitizer: helper.CleanString,
		Now:       time.Now,
	}
}

// SetSanitizer sets the label sanitizing function
func (p *Pipeline) SetSanitizer(sanitizer SanitizeFunc) {
	p.Sanitizer = sanitizer
}

// SetClock sets the clock used for the download date
func (p *Pipeline) SetClock(now func() time.Time) {
	p.Now = now
}

// Download fetches up to maxTotal*5 actor pairs around hubCount hub actors and
// materializes a graph of at most maxTotal actors
func (p *Pipeline) Download(ctx context.Context, hubCount int, maxTotal int) (*model.Graph, error) {
	if hubCount <= 0 || maxTotal <= 0 {
		return nil, helper.NewError("download", fmt.Errorf("hub count %d and max total %d must be positive", hubCount, maxTotal))
	}

	rows, err := p.Fetcher(ctx, hubCount, maxTotal*5)
	if err != nil {
		return nil, helper.NewError("fetch graph rows", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.Build(rows, maxTotal), nil
}
