package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/siherrmann/cinegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultClientConfig()
	config.SparqlEndpoint = server.URL + "/sparql"
	config.SearchEndpoint = server.URL + "/w/api.php"
	config.RequestsPerSecond = 0
	return NewClient(config, nil)
}

func TestClientSearchEntities(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "wbsearchentities", r.URL.Query().Get("action"), "Expected a wbsearchentities request")
		assert.Equal(t, "tom hanks", r.URL.Query().Get("search"), "Expected the search text")
		assert.Equal(t, "10", r.URL.Query().Get("limit"), "Expected the limit")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"search":[{"id":"Q2263","label":"Tom Hanks\n","description":"American actor"},{"id":"Q99","label":"Tom Hanks (disambiguation)"}]}`))
	})

	hits, err := client.SearchEntities(context.Background(), "tom hanks", 10)
	require.NoError(t, err, "Expected SearchEntities to not return an error")
	require.Len(t, hits, 2, "Expected both candidates in order")
	assert.Equal(t, SearchHit{ID: "Q2263", Label: "Tom Hanks", Description: "American actor"}, hits[0], "Expected a cleaned label")
}

func TestClientIsActor(t *testing.T) {
	t.Run("Valid call with actor", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query().Get("query")
			assert.Contains(t, query, "ASK", "Expected an ASK query")
			assert.Contains(t, query, "wd:Q2263", "Expected the entity id in the query")
			assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"), "Expected the SPARQL accept header")
			w.Write([]byte(`{"head":{},"boolean":true}`))
		})

		isActor, err := client.IsActor(context.Background(), "Q2263")
		require.NoError(t, err, "Expected IsActor to not return an error")
		assert.True(t, isActor, "Expected the entity to be an actor")
	})

	t.Run("Invalid call with malformed id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("Expected no request for a malformed id")
		})

		_, err := client.IsActor(context.Background(), "Q1 } DROP")
		assert.ErrorIs(t, err, ErrInvalidID, "Expected ErrInvalidID")
	})
}

func TestClientActorFilms(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"bindings":[
			{"movie":{"type":"uri","value":"http://www.wikidata.org/entity/Q134773"},"movieLabel":{"type":"literal","value":"Forrest Gump"},"poster":{"type":"uri","value":"http://img/fg.jpg"}},
			{"movie":{"type":"uri","value":"http://www.wikidata.org/entity/Q109331"},"movieLabel":{"type":"literal","value":"Cast Away"}},
			{"movie":{"type":"uri","value":"http://www.wikidata.org/entity/Q134773"},"movieLabel":{"type":"literal","value":"Forrest Gump"}}
		]}}`))
	})

	films, err := client.ActorFilms(context.Background(), "Q2263")
	require.NoError(t, err, "Expected ActorFilms to not return an error")
	require.Len(t, films, 2, "Expected duplicate rows to collapse")
	assert.Equal(t, FilmRow{ID: "Q134773", Title: "Forrest Gump", PosterURL: "http://img/fg.jpg"}, films[0], "Expected the first film in oracle order")
	assert.Equal(t, "Q109331", films[1].ID, "Expected the second film")
}

func TestClientErrors(t *testing.T) {
	t.Run("Invalid call with server error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.ActorFilms(context.Background(), "Q1")
		require.Error(t, err, "Expected an error for status 429")
		assert.ErrorIs(t, err, model.ErrOracleUnavailable, "Expected ErrOracleUnavailable")

		var oracleErr *Error
		require.ErrorAs(t, err, &oracleErr, "Expected an *Error")
		assert.Equal(t, http.StatusTooManyRequests, oracleErr.StatusCode, "Expected the status code")
	})

	t.Run("Invalid call with broken body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":`))
		})

		_, err := client.FilmCast(context.Background(), "Q1")
		assert.ErrorIs(t, err, model.ErrOracleUnavailable, "Expected an undecodable answer to be an oracle failure")
	})

	t.Run("Invalid call with unreachable server", func(t *testing.T) {
		config := DefaultClientConfig()
		config.SparqlEndpoint = "http://127.0.0.1:1/sparql"
		client := NewClient(config, nil)

		_, err := client.IsActor(context.Background(), "Q1")
		assert.ErrorIs(t, err, model.ErrOracleUnavailable, "Expected a transport failure to be an oracle failure")
	})

	t.Run("Invalid call with cancelled context", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"boolean":true}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.IsActor(ctx, "Q1")
		assert.ErrorIs(t, err, context.Canceled, "Expected the context error")
	})
}

func TestClientNeighbors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		assert.Contains(t, query, "FILTER(?sitelinks > 30)", "Expected the notability filter")
		assert.Contains(t, query, "NOT IN (wd:Q5, wd:Q6)", "Expected the exclusion filter")
		assert.True(t, strings.HasSuffix(query, "LIMIT 30"), "Expected the limit")
		w.Write([]byte(`{"results":{"bindings":[
			{"coActor":{"value":"http://www.wikidata.org/entity/Q7"},"coActorLabel":{"value":"Robin Wright"},"movie":{"value":"http://www.wikidata.org/entity/Q134773"},"movieLabel":{"value":"Forrest Gump"},"sitelinks":{"value":"61"}}
		]}}`))
	})

	neighbors, err := client.Neighbors(context.Background(), "Q2263", []string{"Q5", "Q6"}, 30, 30)
	require.NoError(t, err, "Expected Neighbors to not return an error")
	require.Len(t, neighbors, 1, "Expected one neighbor")
	assert.Equal(t, "Q7", neighbors[0].Actor.ID, "Expected the co-actor id")
	assert.Equal(t, 61, neighbors[0].Actor.Sitelinks, "Expected the sitelinks")
	assert.Equal(t, "Forrest Gump", neighbors[0].Film.Title, "Expected the linking film")
}

func TestClientPopularityAndGraphRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if strings.Contains(query, "VALUES ?item") {
			w.Write([]byte(`{"results":{"bindings":[{"item":{"value":"http://www.wikidata.org/entity/Q1"},"sitelinks":{"value":"12"}}]}}`))
			return
		}
		assert.Contains(t, query, "HAVING (COUNT(DISTINCT ?m) >= 5)", "Expected the minimum film count")
		assert.Contains(t, query, "LIMIT 500", "Expected the row cap")
		w.Write([]byte(`{"results":{"bindings":[
			{"actor1":{"value":"http://www.wikidata.org/entity/Q1"},"actor1Label":{"value":"A\u0007"},"actor2":{"value":"http://www.wikidata.org/entity/Q2"},"actor2Label":{"value":" B "},"movie":{"value":"http://www.wikidata.org/entity/Q9"},"movieLabel":{"value":"F"}}
		]}}`))
	})

	popularity, err := client.Popularity(context.Background(), []string{"Q1", "Q2"})
	require.NoError(t, err, "Expected Popularity to not return an error")
	assert.Equal(t, map[string]int{"Q1": 12}, popularity, "Expected sitelinks of known ids only")

	rows, err := client.GraphRows(context.Background(), 100, 5, 500)
	require.NoError(t, err, "Expected GraphRows to not return an error")
	require.Len(t, rows, 1, "Expected one row")
	assert.Equal(t, "A", rows[0].Actor1.Label, "Expected control characters to be stripped")
	assert.Equal(t, "B", rows[0].Actor2.Label, "Expected labels to be trimmed")
}
