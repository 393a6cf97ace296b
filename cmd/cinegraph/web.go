package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/siherrmann/cinegraph"
	"github.com/siherrmann/cinegraph/core/cache"
	"github.com/siherrmann/cinegraph/core/corrector"
	"github.com/siherrmann/cinegraph/helper"
)

const (
	timeout time.Duration = 10 * time.Second
	// Graph downloads and challenge generation run several knowledge graph queries
	apiTimeout time.Duration = 2 * time.Minute
)

type server struct {
	cfg   *Config
	cg    *cinegraph.Cinegraph
	rooms *roomManager
	log   *slog.Logger
}

func newLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	return helper.NewLogger(level)
}

// openEngine builds the engine with the configured cache backend.
// The returned close function releases the backend.
func openEngine(cfg *Config, logger *slog.Logger) (*cinegraph.Cinegraph, func() error, error) {
	opts := cinegraph.Options{
		Config:       cfg.engineConfig(),
		ClientConfig: cfg.clientConfig(),
		Corrector:    corrector.Noop{},
		Seed:         cfg.seed,
		Logger:       logger,
	}
	if cfg.correctorURL != "" {
		opts.Corrector = corrector.NewOpenAICorrector(cfg.correctorConfig(), logger)
	}

	switch cfg.cacheBackend {
	case cachePostgres:
		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, nil, err
		}
		cg, err := cinegraph.NewWithDatabase(dbConfig, opts)
		if err != nil {
			return nil, nil, err
		}
		return cg, cg.Close, nil
	case cacheBadger:
		store, err := cache.OpenBadgerStore(cache.BadgerConfig{
			Path:       cfg.cacheDir,
			MaxBytes:   opts.Config.CacheQuotaBytes,
			GCInterval: 10 * time.Minute,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		opts.Store = store
		cg, err := cinegraph.New(opts)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return cg, store.Close, nil
	default:
		cg, err := cinegraph.New(opts)
		if err != nil {
			return nil, nil, err
		}
		return cg, cg.Close, nil
	}
}

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func (s *server) serveVersion() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(s.cfg, w)
		w.WriteHeader(http.StatusOK)

		_, _ = w.Write([]byte("cinegraph v" + releaseVersion + "\n"))
	}
}

func (s *server) serveHealthCheck() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(s.cfg, w)

		if s.cg.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.cg.DB.Instance.PingContext(ctx); err != nil {
				s.log.Error("Health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("Database unreachable\n"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ok\n"))
	}
}

// logRequests wraps a handle with a debug log line per request
func (s *server) logRequests(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()
		next(w, r, p)
		s.log.Debug("Served request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", realIP(r)),
			slog.Duration("duration", time.Since(startTime).Round(time.Microsecond)),
		)
	}
}

func newRouter(s *server) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		s.log.Error("Panic serving request", slog.String("path", r.URL.Path), slog.Any("panic", i))
		writeJSON(s.cfg, w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}

	prefix := strings.TrimSuffix(s.cfg.prefix, "/")

	mux.GET(prefix+"/healthz", s.serveHealthCheck())
	mux.GET(prefix+"/version", s.serveVersion())
	mux.Handler(http.MethodGet, prefix+"/metrics", promhttp.Handler())

	if s.cfg.profile {
		registerProfileHandlers(prefix, mux)
	}

	registerAPI(s, prefix, mux)
	registerVersus(s, prefix, mux)

	return mux
}

// Serve runs the HTTP server until ctx is cancelled
func Serve(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logger := newLogger(cfg)
	logger.Info("Starting cinegraph", slog.String("version", releaseVersion), slog.String("cache", cfg.cacheBackend))

	cg, closeEngine, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeEngine(); err != nil {
			logger.Error("Error closing cache backend", slog.String("error", err.Error()))
		}
	}()

	s := &server{
		cfg:   cfg,
		cg:    cg,
		rooms: newRoomManager(cg.Game, cfg.roomTimeout, logger),
		log:   logger,
	}
	defer s.rooms.stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(s),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      apiTimeout + timeout,
	}

	go func() {
		var err error
		logger.Info("Listening", slog.String("url", cfg.scheme()+"://"+srv.Addr+cfg.prefix+"/"))
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
