package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(a1 string, a2 string, film string) oracle.GraphRow {
	return oracle.GraphRow{
		Actor1: oracle.CastRow{ID: a1, Label: "Actor " + a1},
		Actor2: oracle.CastRow{ID: a2, Label: "Actor " + a2},
		Film:   oracle.FilmRow{ID: film, Title: "Film " + film},
	}
}

func testRows() []oracle.GraphRow {
	return []oracle.GraphRow{
		row("Q1", "Q2", "F1"),
		row("Q1", "Q3", "F1"),
		row("Q1", "Q2", "F2"),
		row("Q2", "Q1", "F2"),
		row("Q1", "Q4", "F3"),
		row("Q2", "Q3", "F1"),
		row("Q1", "Q1", "F4"),
	}
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestPipeline(rows []oracle.GraphRow, selector SelectFunc) *Pipeline {
	p := NewPipeline(StaticFetcher(rows), selector)
	p.SetClock(func() time.Time { return fixedNow })
	return p
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline(StaticFetcher(nil), TopSelector())

	assert.NotNil(t, p.Fetcher, "Expected fetcher to be set")
	assert.NotNil(t, p.Selector, "Expected selector to be set")
	assert.NotNil(t, p.Sanitizer, "Expected the default sanitizer")
	assert.NotNil(t, p.Now, "Expected the default clock")
}

func TestDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid call builds a valid graph", func(t *testing.T) {
		p := newTestPipeline(testRows(), TopSelector())

		graph, err := p.Download(ctx, 10, 10)
		require.NoError(t, err, "Expected Download to not return an error")
		require.NoError(t, graph.Validate(), "Expected the graph invariants to hold")

		assert.Len(t, graph.Actors, 4, "Expected four actors")
		assert.Len(t, graph.Connections, 4, "Expected one connection per pair")

		index := graph.ActorIndex()
		assert.Equal(t, 3, index["Q1"].Degree, "Expected Q1 to have three co-actors")
		assert.Equal(t, []string{"F1", "F2", "F3"}, index["Q1"].Movies, "Expected distinct films in row order")
		assert.Equal(t, 3, index["Q1"].MovieCount, "Expected the self row to be ignored")

		for _, c := range graph.Connections {
			if (c.Actor1 == "Q1" && c.Actor2 == "Q2") || (c.Actor1 == "Q2" && c.Actor2 == "Q1") {
				assert.Equal(t, []model.Film{{ID: "F1", Title: "Film F1"}, {ID: "F2", Title: "Film F2"}}, c.Movies, "Expected every shared film once")
			}
		}

		assert.Equal(t, 4, graph.Metadata.ActorCount, "Expected the actor count")
		assert.Equal(t, 4, graph.Metadata.ConnectionCount, "Expected the connection count")
		assert.Equal(t, fixedNow, graph.Metadata.DownloadDate, "Expected the download date")
		assert.Equal(t, 3, graph.Metadata.Distribution[Bucket1To2], "Expected three actors with at most two films")
		assert.Equal(t, 1, graph.Metadata.Distribution[Bucket3To5], "Expected Q1 in the 3-5 bucket")
	})

	t.Run("Valid call keeps only selected actors", func(t *testing.T) {
		p := newTestPipeline(testRows(), TopSelector())

		graph, err := p.Download(ctx, 10, 2)
		require.NoError(t, err, "Expected Download to not return an error")
		require.NoError(t, graph.Validate(), "Expected the graph invariants to hold")

		assert.Len(t, graph.Actors, 2, "Expected the two actors with most films")
		require.Len(t, graph.Connections, 1, "Expected the connection between them")
		assert.Equal(t, []string{"Q2"}, graph.ActorIndex()["Q1"].CoActors, "Expected unselected co-actors dropped")
		assert.Equal(t, 3, graph.ActorIndex()["Q1"].MovieCount, "Expected film counts over every row")
	})

	t.Run("Valid call sanitizes labels", func(t *testing.T) {
		rows := []oracle.GraphRow{{
			Actor1: oracle.CastRow{ID: "Q1", Label: " Tom\nHanks\x00 "},
			Actor2: oracle.CastRow{ID: "Q2", Label: "Meg\u0085 Ryan"},
			Film:   oracle.FilmRow{ID: "F1", Title: "You've Got\tMail"},
		}}
		p := newTestPipeline(rows, TopSelector())

		graph, err := p.Download(ctx, 1, 2)
		require.NoError(t, err, "Expected Download to not return an error")
		index := graph.ActorIndex()
		assert.Equal(t, "TomHanks", index["Q1"].Label, "Expected control characters removed")
		assert.Equal(t, "Meg Ryan", index["Q2"].Label, "Expected C1 control characters removed")
		assert.Equal(t, "You've GotMail", graph.Connections[0].Movies[0].Title, "Expected the film title sanitized")
	})

	t.Run("Valid call requests five rows per actor", func(t *testing.T) {
		var gotHubs, gotLimit int
		p := NewPipeline(func(ctx context.Context, hubCount int, limit int) ([]oracle.GraphRow, error) {
			gotHubs, gotLimit = hubCount, limit
			return nil, nil
		}, TopSelector())

		graph, err := p.Download(ctx, 100, 200)
		require.NoError(t, err, "Expected Download to not return an error")
		assert.Equal(t, 100, gotHubs, "Expected the hub count")
		assert.Equal(t, 1000, gotLimit, "Expected maxTotal*5 rows")
		assert.Empty(t, graph.Actors, "Expected an empty graph")
	})

	t.Run("Valid call through the oracle", func(t *testing.T) {
		fake := oracle.NewFake()
		for i := 1; i <= 6; i++ {
			fake.AddActor(fmt.Sprintf("Q%d", i), fmt.Sprintf("Actor %d", i), 100-i)
		}
		for i := 1; i <= 5; i++ {
			fake.AddFilm(fmt.Sprintf("F%d", i), fmt.Sprintf("Film %d", i), "Q1", fmt.Sprintf("Q%d", i+1))
		}
		p := NewPipeline(OracleFetcher(fake, 5), HubSelector(rand.New(rand.NewSource(1))))

		graph, err := p.Download(ctx, 10, 10)
		require.NoError(t, err, "Expected Download to not return an error")
		require.NoError(t, graph.Validate(), "Expected the graph invariants to hold")
		assert.Len(t, graph.Actors, 6, "Expected the hub and its co-actors")
		assert.Equal(t, 5, graph.ActorIndex()["Q1"].Degree, "Expected the hub degree")
		assert.Equal(t, 1, fake.Calls("graph_rows"), "Expected one bulk query")
	})

	t.Run("Invalid call fetch failure", func(t *testing.T) {
		p := NewPipeline(func(ctx context.Context, hubCount int, limit int) ([]oracle.GraphRow, error) {
			return nil, &oracle.Error{Op: "graph_rows", Err: errors.New("timeout")}
		}, TopSelector())

		_, err := p.Download(ctx, 10, 10)
		assert.ErrorIs(t, err, model.ErrOracleUnavailable, "Expected the oracle failure")
	})

	t.Run("Invalid call bounds", func(t *testing.T) {
		p := newTestPipeline(testRows(), TopSelector())

		_, err := p.Download(ctx, 0, 10)
		assert.Error(t, err, "Expected an error for a zero hub count")
	})
}

func TestHubSelector(t *testing.T) {
	counts := []ActorCount{}
	for i := 0; i < 20; i++ {
		counts = append(counts, ActorCount{ID: fmt.Sprintf("Q%d", i+1), Films: 20 - i})
	}

	t.Run("Valid call keeps the top share and samples the rest", func(t *testing.T) {
		selected := HubSelector(rand.New(rand.NewSource(3)))(counts, 10)

		assert.Len(t, selected, 10, "Expected maxTotal actors")
		for i := 1; i <= 4; i++ {
			assert.True(t, selected[fmt.Sprintf("Q%d", i)], "Expected the top 40%% by film count")
		}
	})

	t.Run("Valid call fewer actors than maxTotal", func(t *testing.T) {
		selected := HubSelector(rand.New(rand.NewSource(3)))(counts[:3], 10)

		assert.Len(t, selected, 3, "Expected every actor")
	})
}

func TestDistribution(t *testing.T) {
	actors := []*model.GraphActor{}
	for _, n := range []int{1, 2, 3, 5, 6, 10, 11, 20, 21, 100} {
		actors = append(actors, &model.GraphActor{MovieCount: n})
	}

	distribution := Distribution(actors)

	assert.Equal(t, map[string]int{
		Bucket1To2:   2,
		Bucket3To5:   2,
		Bucket6To10:  2,
		Bucket11To20: 2,
		BucketOver20: 2,
	}, distribution, "Expected two actors per bucket")
}
