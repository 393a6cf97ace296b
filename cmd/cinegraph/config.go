package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siherrmann/cinegraph/core/corrector"
	"github.com/siherrmann/cinegraph/core/oracle"
	"github.com/siherrmann/cinegraph/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	cacheMemory   = "memory"
	cacheBadger   = "badger"
	cachePostgres = "postgres"
)

type Config struct {
	bind    string
	port    int
	prefix  string
	profile bool
	tlsCert string
	tlsKey  string
	verbose bool
	version bool

	cacheBackend string
	cacheDir     string
	cacheQuota   int64
	cacheTTL     time.Duration

	sparqlEndpoint string
	searchEndpoint string
	language       string
	rate           float64
	burst          int
	requestTimeout time.Duration

	correctorURL   string
	correctorModel string
	correctorKey   string

	roomTimeout time.Duration
	seed        int64
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.cacheBackend {
	case cacheMemory, cachePostgres:
	case cacheBadger:
		if c.cacheDir == "" {
			return errors.New("--cache-dir is required for the badger cache")
		}
	default:
		return fmt.Errorf("invalid cache backend (must be memory, badger or postgres): %s", c.cacheBackend)
	}
	if c.rate <= 0 {
		return fmt.Errorf("invalid request rate (must be positive): %v", c.rate)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// engineConfig applies the flags on top of the default engine configuration
func (c *Config) engineConfig() model.Config {
	config := model.DefaultConfig()
	if c.cacheQuota > 0 {
		config.CacheQuotaBytes = c.cacheQuota
	}
	if c.cacheTTL > 0 {
		config.CacheTTL = c.cacheTTL
	}
	config.RequestsPerSecond = c.rate
	config.RequestBurst = max(c.burst, 1)
	if c.requestTimeout > 0 {
		config.RequestTimeout = c.requestTimeout
	}
	return config
}

func (c *Config) clientConfig() oracle.ClientConfig {
	config := oracle.DefaultClientConfig()
	if c.sparqlEndpoint != "" {
		config.SparqlEndpoint = c.sparqlEndpoint
	}
	if c.searchEndpoint != "" {
		config.SearchEndpoint = c.searchEndpoint
	}
	if c.language != "" {
		config.Language = c.language
	}
	config.RequestsPerSecond = c.rate
	config.Burst = max(c.burst, 1)
	if c.requestTimeout > 0 {
		config.Timeout = c.requestTimeout
	}
	return config
}

func (c *Config) correctorConfig() corrector.Config {
	config := corrector.DefaultConfig()
	config.BaseURL = c.correctorURL
	config.APIKey = c.correctorKey
	if c.correctorModel != "" {
		config.Model = c.correctorModel
	}
	return config
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CINEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cinegraph",
		Short:         "Serves the actor graph trivia engine over HTTP and websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := model.DefaultConfig()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CINEGRAPH_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CINEGRAPH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CINEGRAPH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CINEGRAPH_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CINEGRAPH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CINEGRAPH_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CINEGRAPH_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CINEGRAPH_VERSION)")

	fs.StringVar(&cfg.cacheBackend, "cache", cacheMemory, "cache backend: memory, badger or postgres (env: CINEGRAPH_CACHE)")
	fs.StringVar(&cfg.cacheDir, "cache-dir", "", "directory of the badger cache (env: CINEGRAPH_CACHE_DIR)")
	fs.Int64Var(&cfg.cacheQuota, "cache-quota", defaults.CacheQuotaBytes, "cache size limit in bytes (env: CINEGRAPH_CACHE_QUOTA)")
	fs.DurationVar(&cfg.cacheTTL, "cache-ttl", defaults.CacheTTL, "time before cached answers expire (env: CINEGRAPH_CACHE_TTL)")

	fs.StringVar(&cfg.sparqlEndpoint, "sparql-endpoint", "", "SPARQL endpoint of the knowledge graph (env: CINEGRAPH_SPARQL_ENDPOINT)")
	fs.StringVar(&cfg.searchEndpoint, "search-endpoint", "", "entity search API of the knowledge graph (env: CINEGRAPH_SEARCH_ENDPOINT)")
	fs.StringVar(&cfg.language, "language", "", "label language (env: CINEGRAPH_LANGUAGE)")
	fs.Float64Var(&cfg.rate, "rate", defaults.RequestsPerSecond, "knowledge graph requests per second (env: CINEGRAPH_RATE)")
	fs.IntVar(&cfg.burst, "burst", defaults.RequestBurst, "knowledge graph request burst (env: CINEGRAPH_BURST)")
	fs.DurationVar(&cfg.requestTimeout, "request-timeout", defaults.RequestTimeout, "timeout of a single knowledge graph request (env: CINEGRAPH_REQUEST_TIMEOUT)")

	fs.StringVar(&cfg.correctorURL, "corrector-url", "", "OpenAI compatible base URL for name correction, empty disables it (env: CINEGRAPH_CORRECTOR_URL)")
	fs.StringVar(&cfg.correctorModel, "corrector-model", "", "chat model used for name correction (env: CINEGRAPH_CORRECTOR_MODEL)")
	fs.StringVar(&cfg.correctorKey, "corrector-key", "", "API key of the correction service (env: CINEGRAPH_CORRECTOR_KEY)")

	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 60*time.Minute, "time before idle versus rooms are closed (env: CINEGRAPH_ROOM_TIMEOUT)")
	fs.Int64Var(&cfg.seed, "seed", 0, "random seed, 0 uses the clock (env: CINEGRAPH_SEED)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cinegraph v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
