package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/siherrmann/cinegraph/helper"
	"golang.org/x/time/rate"
)

// ClientConfig configures the knowledge graph client
type ClientConfig struct {
	SparqlEndpoint    string
	SearchEndpoint    string
	Language          string
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// DefaultClientConfig returns the public Wikidata endpoints
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SparqlEndpoint:    "https://query.wikidata.org/sparql",
		SearchEndpoint:    "https://www.wikidata.org/w/api.php",
		Language:          "en",
		UserAgent:         "cinegraph/1.0 (https://github.com/siherrmann/cinegraph)",
		RequestsPerSecond: 5,
		Burst:             5,
		Timeout:           30 * time.Second,
	}
}

// Client talks to a SPARQL endpoint and a Wikibase search API.
// It is safe for concurrent use, all requests share one rate limiter.
type Client struct {
	config  ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a client, a nil logger uses slog.Default
func NewClient(config ClientConfig, logger *slog.Logger) *Client {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	if config.Language == "" {
		config.Language = "en"
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  helper.LoggerOrDefault(logger),
	}
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlBinding map[string]sparqlValue

func (b sparqlBinding) value(name string) string {
	return b[name].Value
}

func (b sparqlBinding) id(name string) string {
	return helper.LastPathSegment(b[name].Value)
}

func (b sparqlBinding) label(name string) string {
	return helper.CleanString(b[name].Value)
}

func (b sparqlBinding) number(name string) int {
	n, _ := strconv.Atoi(b[name].Value)
	return n
}

type sparqlResponse struct {
	Boolean *bool `json:"boolean,omitempty"`
	Results struct {
		Bindings []sparqlBinding `json:"bindings"`
	} `json:"results"`
}

type searchResponse struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
}

// do runs one rate limited GET and decodes the JSON answer into out
func (c *Client) do(ctx context.Context, op string, endpoint string, params url.Values, accept string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return helper.NewError(op, err)
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return helper.NewError(op, err)
	}
	request.Header.Set("Accept", accept)
	request.Header.Set("User-Agent", c.config.UserAgent)

	response, err := c.http.Do(request)
	if err != nil {
		requestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.logger.Warn("Knowledge graph request failed", slog.String("op", op), slog.String("error", err.Error()))
		return &Error{Op: op, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, response.Body)
		requestsTotal.WithLabelValues(op, strconv.Itoa(response.StatusCode)).Inc()
		c.logger.Warn("Knowledge graph returned an error status", slog.String("op", op), slog.Int("status", response.StatusCode))
		return &Error{Op: op, StatusCode: response.StatusCode}
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		requestsTotal.WithLabelValues(op, "decode_error").Inc()
		return &Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	requestsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

func (c *Client) sparql(ctx context.Context, op string, query string) (*sparqlResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")

	response := &sparqlResponse{}
	err := c.do(ctx, op, c.config.SparqlEndpoint, params, "application/sparql-results+json", response)
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) SearchEntities(ctx context.Context, text string, limit int) ([]SearchHit, error) {
	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", text)
	params.Set("language", c.config.Language)
	params.Set("format", "json")
	params.Set("type", "item")
	params.Set("limit", strconv.Itoa(limit))

	response := &searchResponse{}
	err := c.do(ctx, "search", c.config.SearchEndpoint, params, "application/json", response)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(response.Search))
	for _, s := range response.Search {
		hits = append(hits, SearchHit{
			ID:          s.ID,
			Label:       helper.CleanString(s.Label),
			Description: helper.CleanString(s.Description),
		})
	}
	return hits, nil
}

func (c *Client) Popularity(ctx context.Context, ids []string) (map[string]int, error) {
	popularity := map[string]int{}
	if len(ids) == 0 {
		return popularity, nil
	}
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return nil, err
		}
	}

	response, err := c.sparql(ctx, "popularity", PopularityQuery(ids))
	if err != nil {
		return nil, err
	}
	for _, b := range response.Results.Bindings {
		popularity[b.id("item")] = b.number("sitelinks")
	}
	return popularity, nil
}

func (c *Client) IsActor(ctx context.Context, id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}

	response, err := c.sparql(ctx, "is_actor", IsActorQuery(id))
	if err != nil {
		return false, err
	}
	return response.Boolean != nil && *response.Boolean, nil
}

func (c *Client) ActorImage(ctx context.Context, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}

	response, err := c.sparql(ctx, "actor_image", ImageQuery(id))
	if err != nil {
		return "", err
	}
	if len(response.Results.Bindings) == 0 {
		return "", nil
	}
	return response.Results.Bindings[0].value("image"), nil
}

func (c *Client) ActorFilms(ctx context.Context, id string) ([]FilmRow, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	response, err := c.sparql(ctx, "actor_films", ActorFilmsQuery(id, c.config.Language))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	films := []FilmRow{}
	for _, b := range response.Results.Bindings {
		film := filmRow(b)
		if seen[film.ID] {
			continue
		}
		seen[film.ID] = true
		films = append(films, film)
	}
	return films, nil
}

func (c *Client) FilmInfo(ctx context.Context, id string) (*FilmRow, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	response, err := c.sparql(ctx, "film_info", FilmInfoQuery(id, c.config.Language))
	if err != nil {
		return nil, err
	}
	if len(response.Results.Bindings) == 0 {
		return nil, nil
	}
	film := filmRow(response.Results.Bindings[0])
	film.ID = id
	return &film, nil
}

func (c *Client) FilmCast(ctx context.Context, id string) ([]CastRow, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	response, err := c.sparql(ctx, "film_cast", FilmCastQuery(id, c.config.Language))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	cast := []CastRow{}
	for _, b := range response.Results.Bindings {
		actor := CastRow{ID: b.id("actor"), Label: b.label("actorLabel"), ImageURL: b.value("image")}
		if seen[actor.ID] {
			continue
		}
		seen[actor.ID] = true
		cast = append(cast, actor)
	}
	return cast, nil
}

func (c *Client) Neighbors(ctx context.Context, id string, excluded []string, minSitelinks int, limit int) ([]NeighborRow, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	for _, e := range excluded {
		if err := ValidateID(e); err != nil {
			return nil, err
		}
	}

	response, err := c.sparql(ctx, "neighbors", NeighborsQuery(id, excluded, minSitelinks, limit, c.config.Language))
	if err != nil {
		return nil, err
	}

	neighbors := make([]NeighborRow, 0, len(response.Results.Bindings))
	for _, b := range response.Results.Bindings {
		neighbors = append(neighbors, NeighborRow{
			Actor: CastRow{
				ID:        b.id("coActor"),
				Label:     b.label("coActorLabel"),
				ImageURL:  b.value("image"),
				Sitelinks: b.number("sitelinks"),
			},
			Film: filmRow(b),
		})
	}
	return neighbors, nil
}

func (c *Client) PopularActors(ctx context.Context, minSitelinks int, limit int) ([]CastRow, error) {
	response, err := c.sparql(ctx, "popular_actors", PopularActorsQuery(minSitelinks, limit, c.config.Language))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	actors := []CastRow{}
	for _, b := range response.Results.Bindings {
		actor := CastRow{
			ID:        b.id("actor"),
			Label:     b.label("actorLabel"),
			ImageURL:  b.value("image"),
			Sitelinks: b.number("sitelinks"),
		}
		if seen[actor.ID] {
			continue
		}
		seen[actor.ID] = true
		actors = append(actors, actor)
	}
	return actors, nil
}

func (c *Client) GraphRows(ctx context.Context, hubCount int, minFilms int, limit int) ([]GraphRow, error) {
	response, err := c.sparql(ctx, "graph_rows", GraphQuery(hubCount, minFilms, limit, c.config.Language))
	if err != nil {
		return nil, err
	}

	rows := make([]GraphRow, 0, len(response.Results.Bindings))
	for _, b := range response.Results.Bindings {
		rows = append(rows, GraphRow{
			Actor1: CastRow{ID: b.id("actor1"), Label: b.label("actor1Label")},
			Actor2: CastRow{ID: b.id("actor2"), Label: b.label("actor2Label")},
			Film:   filmRow(b),
		})
	}
	return rows, nil
}

func filmRow(b sparqlBinding) FilmRow {
	return FilmRow{
		ID:        b.id("movie"),
		Title:     b.label("movieLabel"),
		PosterURL: b.value("poster"),
	}
}
