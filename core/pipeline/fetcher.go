package pipeline

import (
	"context"

	"github.com/siherrmann/cinegraph/core/oracle"
)

// OracleFetcher fetches the rows of hub actors with at least minFilms films
func OracleFetcher(o oracle.Oracle, minFilms int) FetchFunc {
	return func(ctx context.Context, hubCount int, limit int) ([]oracle.GraphRow, error) {
		return o.GraphRows(ctx, hubCount, minFilms, limit)
	}
}

// StaticFetcher returns the given rows, used to rebuild a graph from an earlier fetch
func StaticFetcher(rows []oracle.GraphRow) FetchFunc {
	return func(ctx context.Context, hubCount int, limit int) ([]oracle.GraphRow, error) {
		if limit > 0 && len(rows) > limit {
			return rows[:limit], nil
		}
		return rows, nil
	}
}
