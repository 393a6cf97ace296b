package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/siherrmann/cinegraph/model"
)

// maxBodyBytes bounds request bodies, imported graphs are the largest payload
const maxBodyBytes = 32 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type pathRequest struct {
	From      model.Entity `json:"from"`
	To        model.Entity `json:"to"`
	MaxLength int          `json:"max_length"`
}

type neighborRequest struct {
	Last     model.Entity `json:"last"`
	Excluded []string     `json:"excluded"`
}

type downloadRequest struct {
	HubCount int `json:"hub_count"`
	MaxTotal int `json:"max_total"`
}

type clearResponse struct {
	Cleared int `json:"cleared"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps engine errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrGenerationExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrNoPath), errors.Is(err, model.ErrActorNotInGraph):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidGraph):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrGameOver), errors.Is(err, model.ErrWrongMode), errors.Is(err, model.ErrNoHintsLeft):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", slog.String("path", r.URL.Path), slog.Int("status", status), slog.String("error", err.Error()))
	} else {
		s.log.Debug("Request rejected", slog.String("path", r.URL.Path), slog.Int("status", status), slog.String("error", err.Error()))
	}
	writeJSON(s.cfg, w, status, errorResponse{Error: err.Error()})
}

func (s *server) notFound(w http.ResponseWriter, message string) {
	writeJSON(s.cfg, w, http.StatusNotFound, errorResponse{Error: message})
}

func (s *server) badRequest(w http.ResponseWriter, message string) {
	writeJSON(s.cfg, w, http.StatusBadRequest, errorResponse{Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func (s *server) apiContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), apiTimeout)
}

func (s *server) serveResolve() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		name := r.URL.Query().Get("name")
		if name == "" {
			s.badRequest(w, "missing name")
			return
		}

		ctx, cancel := s.apiContext(r)
		defer cancel()

		resolution := s.cg.ResolveEntity(ctx, name)
		switch resolution.Status {
		case model.ResolutionOracleError:
			s.writeError(w, r, resolution.Err)
		case model.ResolutionNotFound:
			writeJSON(s.cfg, w, http.StatusNotFound, resolution)
		default:
			writeJSON(s.cfg, w, http.StatusOK, resolution)
		}
	}
}

func (s *server) serveLink() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
		if a == "" || b == "" {
			s.badRequest(w, "missing actor ids a and b")
			return
		}

		ctx, cancel := s.apiContext(r)
		defer cancel()

		link, err := s.cg.FindSharedEdge(ctx, a, b)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if link == nil {
			s.notFound(w, "no shared film")
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, link)
	}
}

func (s *server) serveChallenge() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		opts := model.ChallengeOptions{}
		if err := decodeBody(w, r, &opts); err != nil {
			s.badRequest(w, "invalid challenge options: "+err.Error())
			return
		}

		ctx, cancel := s.apiContext(r)
		defer cancel()

		challenge, err := s.cg.GenerateChallenge(ctx, opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, challenge)
	}
}

func (s *server) servePath() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req := pathRequest{}
		if err := decodeBody(w, r, &req); err != nil {
			s.badRequest(w, "invalid path request: "+err.Error())
			return
		}
		if req.From.ID == "" || req.To.ID == "" {
			s.badRequest(w, "missing from or to actor")
			return
		}
		if req.MaxLength <= 0 {
			req.MaxLength = s.cg.Config.HintPathLength
		}

		ctx, cancel := s.apiContext(r)
		defer cancel()

		path, err := s.cg.GeneratePathFromPosition(ctx, req.From, req.To, req.MaxLength)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, path)
	}
}

func (s *server) decodeNeighborRequest(w http.ResponseWriter, r *http.Request) (neighborRequest, bool) {
	req := neighborRequest{}
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, "invalid request: "+err.Error())
		return req, false
	}
	if req.Last.ID == "" {
		s.badRequest(w, "missing last actor")
		return req, false
	}
	return req, true
}

func (s *server) serveAIRespond() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req, ok := s.decodeNeighborRequest(w, r)
		if !ok {
			return
		}

		ctx, cancel := s.apiContext(r)
		defer cancel()

		move, err := s.cg.AIRespond(ctx, req.Last, req.Excluded)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if move == nil {
			s.notFound(w, "no valid move")
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, move)
	}
}

func (s *server) serveAIHints() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req, ok := s.decodeNeighborRequest(w, r)
		if !ok {
			return
		}

		ctx, cancel := s.apiContext(r)
		defer cancel()

		hints, err := s.cg.GetHints(ctx, req.Last, req.Excluded)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, hints)
	}
}

// serveDownload materializes a new graph and replaces the stored one
func (s *server) serveDownload() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req := downloadRequest{}
		if r.ContentLength != 0 {
			if err := decodeBody(w, r, &req); err != nil {
				s.badRequest(w, "invalid download request: "+err.Error())
				return
			}
		}

		ctx, cancel := s.apiContext(r)
		defer cancel()

		g, err := s.cg.DownloadGraph(ctx, req.HubCount, req.MaxTotal)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		snapshot, err := s.cg.SaveGraph(ctx, g)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		w.Header().Set("ETag", quoteETag(snapshot.ETag))
		writeJSON(s.cfg, w, http.StatusOK, snapshot.Graph)
	}
}

func (s *server) serveGraph() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		snapshot, err := s.cg.LoadGraph(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if snapshot == nil {
			s.notFound(w, "no graph downloaded")
			return
		}

		etag := quoteETag(snapshot.ETag)
		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Last-Modified", snapshot.SavedAt.UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(s.cfg, w)
		w.WriteHeader(http.StatusOK)
		if err := s.cg.ExportGraph(w, snapshot.Graph); err != nil {
			s.log.Error("Error writing graph", slog.String("error", err.Error()))
		}
	}
}

func (s *server) serveImport() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		g, err := s.cg.ImportGraph(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		snapshot, err := s.cg.SaveGraph(r.Context(), g)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		w.Header().Set("ETag", quoteETag(snapshot.ETag))
		writeJSON(s.cfg, w, http.StatusOK, snapshot.Graph.Metadata)
	}
}

func (s *server) serveDeleteGraph() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := s.cg.DeleteGraph(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *server) serveAnalyze() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req := model.AnalysisRequest{}
		if err := decodeBody(w, r, &req); err != nil {
			s.badRequest(w, "invalid analysis request: "+err.Error())
			return
		}

		snapshot, err := s.cg.LoadGraph(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if snapshot == nil {
			s.notFound(w, "no graph downloaded")
			return
		}

		analysis, err := s.cg.AnalyzeGraph(snapshot.Graph, req)
		if err != nil {
			if statusOf(err) == http.StatusInternalServerError {
				s.badRequest(w, err.Error())
				return
			}
			s.writeError(w, r, err)
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, analysis)
	}
}

func (s *server) serveCacheStats() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		stats, err := s.cg.CacheStats(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, stats)
	}
}

func (s *server) serveCacheClear() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		cleared, err := s.cg.ClearCache(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.log.Info("Cache cleared", slog.Int("entries", cleared))
		writeJSON(s.cfg, w, http.StatusOK, clearResponse{Cleared: cleared})
	}
}

// gameMode reads a known game mode from the route
func (s *server) gameMode(w http.ResponseWriter, p httprouter.Params) (model.GameMode, bool) {
	mode := model.GameMode(p.ByName("mode"))
	switch mode {
	case model.ModeSolo, model.ModeChallenge, model.ModeVersus:
		return mode, true
	}
	s.badRequest(w, "unknown game mode")
	return "", false
}

func (s *server) serveHighScore() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		mode, ok := s.gameMode(w, p)
		if !ok {
			return
		}

		score, err := s.cg.HighScore(r.Context(), mode)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(s.cfg, w, http.StatusOK, model.HighScore{Mode: mode, Score: score})
	}
}

func (s *server) serveResetHighScore() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		mode, ok := s.gameMode(w, p)
		if !ok {
			return
		}

		if err := s.cg.ResetHighScore(r.Context(), mode); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func quoteETag(etag string) string {
	return `"` + etag + `"`
}

func registerAPI(s *server, prefix string, mux *httprouter.Router) {
	api := prefix + "/api"

	mux.GET(api+"/resolve", s.logRequests(s.serveResolve()))
	mux.GET(api+"/link", s.logRequests(s.serveLink()))
	mux.POST(api+"/challenge", s.logRequests(s.serveChallenge()))
	mux.POST(api+"/path", s.logRequests(s.servePath()))
	mux.POST(api+"/ai/respond", s.logRequests(s.serveAIRespond()))
	mux.POST(api+"/ai/hints", s.logRequests(s.serveAIHints()))

	mux.POST(api+"/graph/download", s.logRequests(s.serveDownload()))
	mux.GET(api+"/graph", s.logRequests(s.serveGraph()))
	mux.PUT(api+"/graph", s.logRequests(s.serveImport()))
	mux.DELETE(api+"/graph", s.logRequests(s.serveDeleteGraph()))
	mux.POST(api+"/graph/analyze", s.logRequests(s.serveAnalyze()))

	mux.GET(api+"/cache", s.logRequests(s.serveCacheStats()))
	mux.DELETE(api+"/cache", s.logRequests(s.serveCacheClear()))

	mux.GET(api+"/highscore/:mode", s.logRequests(s.serveHighScore()))
	mux.DELETE(api+"/highscore/:mode", s.logRequests(s.serveResetHighScore()))
}
