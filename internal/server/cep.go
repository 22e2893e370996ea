package server

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	ceptracker "github.com/eugener/ceptracker/internal"
)

var validate = validator.New()

// cepRule accepts exactly eight ASCII digits.
const cepRule = "len=8,number"

// validCEP reports whether s is a normalized CEP.
func validCEP(s string) bool {
	return validate.Var(s, cepRule) == nil
}

// handleGetCEP resolves a CEP. Not-found answers 404 with an empty body;
// upstream failures answer 500 without internal detail.
func (s *server) handleGetCEP(w http.ResponseWriter, r *http.Request) {
	cep := chi.URLParam(r, "cep")
	if !validCEP(cep) {
		writeJSON(w, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "cep must be exactly 8 digits"))
		return
	}

	addr, err := s.deps.Resolver.Resolve(r.Context(), cep, callerMeta(r))
	if err != nil {
		if errors.Is(err, ceptracker.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}

// callerMeta extracts who is asking: the first X-Forwarded-For hop, else
// X-Real-IP, else the connection's remote host.
func callerMeta(r *http.Request) ceptracker.CallerMeta {
	return ceptracker.CallerMeta{
		SourceIP:  clientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: ceptracker.RequestIDFromContext(r.Context()),
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
