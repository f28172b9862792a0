package http

import (
	"net/http"
	"time"

	"room-service/internal/order/api/http/handle"
	"room-service/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Order  *handle.OrderHandler
	Menu   *handle.MenuHandler
	Export *handle.ExportHandler
	Auth   *handle.AuthHandler
	Health *handle.HealthHandler
}

// NewRouter registers every route under /api. Health and login stay open,
// everything else needs the passphrase.
func NewRouter(h Handlers, mylog logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(mylog))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health.Check())
		r.Post("/login", h.Auth.Login())

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequirePassphrase)

			r.Get("/menu/{version}", h.Menu.Get())
			r.Post("/menu/{version}", h.Menu.Upload())

			r.Post("/orders", h.Order.Create())
			r.Get("/orders", h.Order.List())
			r.Get("/orders/{id}", h.Order.Get())
			r.Post("/orders/{id}/items", h.Order.AddItems())
			r.Put("/orders/{id}", h.Order.Update())
			r.Patch("/orders/{id}", h.Order.Update())

			r.Get("/export/csv", h.Export.CSV())
			r.Get("/export/xlsx", h.Export.XLSX())
		})
	})
	return r
}

func requestLogger(mylog logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			mylog.Action("http_request").Debug("Request served",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
