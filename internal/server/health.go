package server

import "net/http"

// Pre-allocated response bodies and header value for the probe endpoints.
var (
	okBody       = []byte("ok")
	notReadyBody = []byte("not ready")
	plainCT      = []string{"text/plain"}
)

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

// handleReadyz reports 503 while the audit store or a remote cache is
// unreachable.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header()["Content-Type"] = plainCT
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write(notReadyBody)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}
