package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// --- Pagination helpers ---

type pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

type listResponse struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

func parsePagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return
}

// parseSinceUntil validates optional since/until RFC3339 query params.
// Writes 400 and returns false on invalid format.
func parseSinceUntil(w http.ResponseWriter, r *http.Request) (since, until string, ok bool) {
	q := r.URL.Query()
	since, until = q.Get("since"), q.Get("until")
	for _, p := range []struct{ name, val string }{{"since", since}, {"until", until}} {
		if p.val == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, p.val); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "invalid "+p.name+" format, use RFC3339"))
			return "", "", false
		}
	}
	return since, until, true
}

// parseSuccess reads the optional success=true|false filter.
func parseSuccess(w http.ResponseWriter, r *http.Request) (*bool, bool) {
	raw := r.URL.Query().Get("success")
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "invalid success filter, use true or false"))
		return nil, false
	}
	return &b, true
}

// --- Audit ---

func (s *server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	s.listAudit(w, r, "")
}

func (s *server) handleListAuditByCEP(w http.ResponseWriter, r *http.Request) {
	cep := chi.URLParam(r, "cep")
	if !validCEP(cep) {
		writeJSON(w, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "cep must be exactly 8 digits"))
		return
	}
	s.listAudit(w, r, cep)
}

func (s *server) listAudit(w http.ResponseWriter, r *http.Request, cep string) {
	offset, limit := parsePagination(r)
	since, until, ok := parseSinceUntil(w, r)
	if !ok {
		return
	}
	success, ok := parseSuccess(w, r)
	if !ok {
		return
	}

	entries, total, err := s.deps.Audit.List(r.Context(), ceptracker.AuditFilter{
		CEP:     cep,
		Success: success,
		Since:   since,
		Until:   until,
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []ceptracker.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Data:       entries,
		Pagination: pagination{Offset: offset, Limit: limit, Total: total},
	})
}

func (s *server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "invalid audit id"))
		return
	}
	entry, err := s.deps.Audit.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Audit.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
