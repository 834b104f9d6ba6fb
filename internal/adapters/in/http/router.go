// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"splforge/internal/adapters/in/http/handlers"
	"splforge/internal/adapters/in/http/middleware"
	"splforge/internal/application/usecase"
)

// RouterDeps collects everything the record-keeping server needs.
type RouterDeps struct {
	RecordUC *usecase.RecordUsecase

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	AllowedOrigins []string
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS は外側: panic 時の 500 にもヘッダを付ける
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.Recover)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if deps.RecordUC != nil {
		h := handlers.NewTokenRecordHandler(deps.RecordUC)
		r.Post("/api/create-token", h.Create)
		r.Route("/api/tokens", func(r chi.Router) {
			r.Get("/", h.List)
			r.Get("/{mintAddress}", h.Get)
		})
	}

	return r
}
