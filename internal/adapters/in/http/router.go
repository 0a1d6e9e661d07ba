// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// RouterDeps collects what the read-only API needs.
type RouterDeps struct {
	Query   CredentialQuery
	Network string
}

// NewRouter mounts the health check and the credential lookups.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "network": deps.Network})
	})

	if deps.Query != nil {
		h := NewCredentialHandler(deps.Query)
		r.Route("/v1", func(r chi.Router) {
			r.Get("/credentials/{mint}", h.GetCredential)
			r.Get("/wallets/{address}/credentials", h.ListWallet)
		})
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
			"reqId":    middleware.GetReqID(r.Context()),
		}).Info("[http] request")
	})
}
