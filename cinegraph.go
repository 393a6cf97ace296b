package cinegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/siherrmann/cinegraph/core/ai"
	"github.com/siherrmann/cinegraph/core/cache"
	"github.com/siherrmann/cinegraph/core/corrector"
	"github.com/siherrmann/cinegraph/core/game"
	"github.com/siherrmann/cinegraph/core/graph"
	"github.com/siherrmann/cinegraph/core/links"
	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/core/pipeline"
	"github.com/siherrmann/cinegraph/core/resolver"
	"github.com/siherrmann/cinegraph/core/walk"
	"github.com/siherrmann/cinegraph/database"
	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
	loadSql "github.com/siherrmann/cinegraph/sql"
)

// GraphKey is the key the materialized graph is mirrored under
const GraphKey = "actorGraph"

// Options configures a Cinegraph, zero values use the defaults
type Options struct {
	Config       model.Config
	ClientConfig oracle.ClientConfig
	// Oracle replaces the knowledge graph client, it is still wrapped by the cache
	Oracle    oracle.Oracle
	Store     cache.Store
	Corrector corrector.Corrector
	Snapshots SnapshotStore
	Scores    game.ScoreStore
	// Seed fixes the random walks and AI picks, zero seeds from the clock
	Seed   int64
	Logger *slog.Logger
}

// Cinegraph provides a unified interface to the actor graph engine
type Cinegraph struct {
	Config    model.Config
	DB        *helper.Database
	Cache     *cache.Cache
	Oracle    oracle.Oracle // Cached knowledge graph oracle
	Resolver  *resolver.Resolver
	Links     *links.Finder
	Generator *walk.Generator
	Hinter    *walk.Hinter
	AI        *ai.Responder
	Pipeline  *pipeline.Pipeline
	Game      *game.Engine
	snapshots SnapshotStore
	scores    game.ScoreStore
	// Logging
	log *slog.Logger
}

// New creates a Cinegraph with in memory stores for everything not set in opts
func New(opts Options) (*Cinegraph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
		}))
	}

	config := opts.Config
	if config == (model.Config{}) {
		config = model.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate config", err)
	}

	store := opts.Store
	if store == nil {
		store = cache.NewMemoryStore(config.CacheQuotaBytes)
	}
	c := cache.New(store,
		cache.WithTTL(config.CacheTTL),
		cache.WithEvictionFraction(config.EvictionFraction),
		cache.WithLogger(logger),
	)

	base := opts.Oracle
	if base == nil {
		clientConfig := opts.ClientConfig
		if clientConfig == (oracle.ClientConfig{}) {
			clientConfig = oracle.DefaultClientConfig()
			clientConfig.RequestsPerSecond = config.RequestsPerSecond
			clientConfig.Burst = config.RequestBurst
			clientConfig.Timeout = config.RequestTimeout
		}
		base = oracle.NewClient(clientConfig, logger)
	}
	cached := oracle.NewCached(base, c)

	fix := opts.Corrector
	if fix == nil {
		fix = corrector.Noop{}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	snapshots := opts.Snapshots
	if snapshots == nil {
		snapshots = NewMemorySnapshots()
	}
	scores := opts.Scores
	if scores == nil {
		scores = NewMemoryScores()
	}

	finder := links.New(cached, logger)
	generator := walk.NewGenerator(cached, config, logger, walk.WithRand(rand.New(rand.NewSource(seed))))
	responder := ai.NewResponder(cached, config, rand.New(rand.NewSource(seed+1)), logger)
	res := resolver.New(cached, fix, config.SearchLimit, logger)

	engine := game.NewEngine(res, finder, responder, generator, config, logger)
	engine.SetScoreStore(scores)

	return &Cinegraph{
		Config:    config,
		Cache:     c,
		Oracle:    cached,
		Resolver:  res,
		Links:     finder,
		Generator: generator,
		Hinter:    walk.NewHinter(generator),
		AI:        responder,
		Pipeline:  pipeline.NewPipeline(pipeline.OracleFetcher(cached, config.MinHubFilms), pipeline.HubSelector(rand.New(rand.NewSource(seed+2)))),
		Game:      engine,
		snapshots: snapshots,
		scores:    scores,
		log:       logger,
	}, nil
}

// NewWithDatabase creates a Cinegraph that keeps its cache, graph snapshots and
// high scores in PostgreSQL
func NewWithDatabase(dbConfig *helper.DatabaseConfiguration, opts Options) (*Cinegraph, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
		}))
	}
	config := opts.Config
	if config == (model.Config{}) {
		config = model.DefaultConfig()
	}

	db := helper.NewDatabase("cinegraph", dbConfig, opts.Logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database", err)
	}

	// force=false to not reload if functions already exist
	cacheHandler, err := database.NewCacheDBHandler(db, config.CacheQuotaBytes, false)
	if err != nil {
		return nil, helper.NewError("create cache handler", err)
	}

	snapshots, err := database.NewSnapshotsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create snapshots handler", err)
	}

	scores, err := database.NewScoresDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create scores handler", err)
	}

	if opts.Store == nil {
		opts.Store = cacheHandler
	}
	opts.Snapshots = snapshots
	opts.Scores = scores

	cg, err := New(opts)
	if err != nil {
		return nil, err
	}
	cg.DB = db
	return cg, nil
}

// Close closes the database connection
func (c *Cinegraph) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// ResolveEntity turns a typed name into an actor
func (c *Cinegraph) ResolveEntity(ctx context.Context, name string) model.Resolution {
	return c.Resolver.Resolve(ctx, name)
}

// FindSharedEdge returns the first film two actors share or nil
func (c *Cinegraph) FindSharedEdge(ctx context.Context, a string, b string) (*model.ResolvedLink, error) {
	return c.Links.FindSharedEdge(ctx, a, b)
}

// GenerateChallenge builds a solvable challenge
func (c *Cinegraph) GenerateChallenge(ctx context.Context, opts model.ChallengeOptions) (*model.Challenge, error) {
	return c.Generator.GenerateChallenge(ctx, opts)
}

// GeneratePathFromPosition searches a path of at most maxLength steps between two actors
func (c *Cinegraph) GeneratePathFromPosition(ctx context.Context, from model.Entity, to model.Entity, maxLength int) ([]model.WalkStep, error) {
	return c.Generator.GeneratePathFromPosition(ctx, from, to, maxLength)
}

// AIRespond returns the AI opponent's answer to last or nil when it has none
func (c *Cinegraph) AIRespond(ctx context.Context, last model.Entity, excluded []string) (*model.Move, error) {
	return c.AI.Respond(ctx, last, excluded)
}

// GetHints suggests notable co-actors of last
func (c *Cinegraph) GetHints(ctx context.Context, last model.Entity, excluded []string) ([]model.Hint, error) {
	return c.AI.Hints(ctx, last, excluded)
}

// DownloadGraph materializes a graph of at most maxTotal actors around hubCount hubs.
// Zero values use HubCount and MaxGraphSize of the config.
func (c *Cinegraph) DownloadGraph(ctx context.Context, hubCount int, maxTotal int) (*model.Graph, error) {
	if hubCount <= 0 {
		hubCount = c.Config.HubCount
	}
	if maxTotal <= 0 {
		maxTotal = c.Config.MaxGraphSize
	}

	g, err := c.Pipeline.Download(ctx, hubCount, maxTotal)
	if err != nil {
		return nil, err
	}
	c.log.Info("Downloaded graph", slog.Int("actors", g.Metadata.ActorCount), slog.Int("connections", g.Metadata.ConnectionCount))
	return g, nil
}

// AnalyzeGraph runs one analysis on a graph
func (c *Cinegraph) AnalyzeGraph(g *model.Graph, request model.AnalysisRequest) (*model.Analysis, error) {
	return graph.Analyze(g, request)
}

// SaveGraph validates a graph and mirrors it under GraphKey, replacing the previous one
func (c *Cinegraph) SaveGraph(ctx context.Context, g *model.Graph) (*model.Snapshot, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	etag, err := GraphETag(g)
	if err != nil {
		return nil, helper.NewError("graph etag", err)
	}

	snapshot, err := c.snapshots.SaveSnapshot(ctx, GraphKey, g, etag)
	if err != nil {
		return nil, helper.NewError("save snapshot", err)
	}
	return snapshot, nil
}

// LoadGraph returns the mirrored graph or nil if none was saved
func (c *Cinegraph) LoadGraph(ctx context.Context) (*model.Snapshot, error) {
	snapshot, err := c.snapshots.SelectSnapshot(ctx, GraphKey)
	if err != nil {
		return nil, helper.NewError("select snapshot", err)
	}
	return snapshot, nil
}

// DeleteGraph removes the mirrored graph
func (c *Cinegraph) DeleteGraph(ctx context.Context) error {
	return c.snapshots.DeleteSnapshot(ctx, GraphKey)
}

// ExportGraph writes a graph as indented JSON
func (c *Cinegraph) ExportGraph(w io.Writer, g *model.Graph) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(g); err != nil {
		return helper.NewError("encode graph", err)
	}
	return nil
}

// ImportGraph reads a graph written by ExportGraph and checks its invariants
func (c *Cinegraph) ImportGraph(r io.Reader) (*model.Graph, error) {
	g := &model.Graph{}
	if err := json.NewDecoder(r).Decode(g); err != nil {
		return nil, helper.NewError("decode graph", fmt.Errorf("%w: %v", model.ErrInvalidGraph, err))
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ClearCache deletes every cached oracle answer
func (c *Cinegraph) ClearCache(ctx context.Context) (int, error) {
	return c.Cache.Clear(ctx)
}

// CacheStats reports the size and hit rate of the cache
func (c *Cinegraph) CacheStats(ctx context.Context) (model.CacheStats, error) {
	return c.Cache.Stats(ctx)
}

// HighScore returns the best score of a mode
func (c *Cinegraph) HighScore(ctx context.Context, mode model.GameMode) (int, error) {
	return c.Game.HighScore(ctx, mode)
}

// SaveHighScore stores score if it beats the record and reports whether it did
func (c *Cinegraph) SaveHighScore(ctx context.Context, mode model.GameMode, score int) (bool, error) {
	_, isNew, err := c.scores.SaveHighScore(ctx, mode, score)
	if err != nil {
		return false, helper.NewError("save high score", err)
	}
	return isNew, nil
}

// ResetHighScore forgets the record of a mode
func (c *Cinegraph) ResetHighScore(ctx context.Context, mode model.GameMode) error {
	err := c.scores.DeleteHighScore(ctx, mode)
	if err != nil {
		return helper.NewError("delete high score", err)
	}
	c.log.Info("High score reset", slog.String("mode", string(mode)))
	return nil
}

// GraphETag returns the xxhash of the graph's JSON encoding
func GraphETag(g *model.Graph) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
