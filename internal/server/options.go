package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/options"
)

const maxOptionLimit = 1000

type optionsResponse struct {
	Data []model.Option `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleOptions serves a registered loader as JSON:
//
//	GET /options/{loader}?q=<query>&limit=<n>&field=<name>
//
// Remaining query parameters are passed to the loader as Params.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "loader")
	if s.loaders == nil || !s.loaders.Has(name) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown loader " + strconv.Quote(name)})
		return
	}
	loader, err := s.loaders.Get(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	query := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = min(n, maxOptionLimit)
	}

	req := options.Request{
		EntityType: name,
		Field:      query.Get("field"),
		Query:      query.Get("q"),
		Params:     make(map[string]string, len(query)),
	}
	for key := range query {
		if key == "q" || key == "field" {
			continue
		}
		req.Params[key] = query.Get(key)
	}

	opts, err := loader.Load(r.Context(), req)
	s.metrics.action("options", err)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, r.Context().Err()) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Warn("option load failed", zap.String("loader", name), zap.Error(err))
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	if limit > 0 && len(opts) > limit {
		opts = opts[:limit]
	}
	if opts == nil {
		opts = []model.Option{}
	}

	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, optionsResponse{Data: opts})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
