package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// --- Cache ---

func (s *server) handleCacheEvict(w http.ResponseWriter, r *http.Request) {
	cep := chi.URLParam(r, "cep")
	if !validCEP(cep) {
		writeJSON(w, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "cep must be exactly 8 digits"))
		return
	}
	if s.deps.Cache == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse(http.StatusNotImplemented, "cache administration unavailable"))
		return
	}
	if err := s.deps.Cache.Delete(r.Context(), ceptracker.CacheKey(cep)); err != nil {
		writeError(w, r, err)
		return
	}
	slog.LogAttrs(r.Context(), slog.LevelInfo, "cache entry evicted", slog.String("cep", cep))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse(http.StatusNotImplemented, "cache administration unavailable"))
		return
	}
	if err := s.deps.Cache.Purge(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	slog.LogAttrs(r.Context(), slog.LevelInfo, "cache purged")
	w.WriteHeader(http.StatusNoContent)
}
