/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, also attached to logrus entries
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the HR frontend

  The export routes are additionally rate limited per client IP.

ROUTE GROUPS:
  /api/leave/*     Report export, preview and window
  /api/projects/*  Assignment list export and preview
  /api/exports     Export history
  /api/health      Health check
  /                Endpoint index

SECURITY NOTE:
  No authentication middleware. Deploy behind the intranet gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// ExportsPerMinute limits each export route per client IP. Zero
	// disables the limit.
	ExportsPerMinute int
	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Dataset-Status", "X-Export-Run"},
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/leave", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if opts.ExportsPerMinute > 0 {
					r.Use(httprate.LimitByIP(opts.ExportsPerMinute, time.Minute))
				}
				r.Get("/export", h.ExportLeave)
			})
			r.Get("/report", h.GetReport)
			r.Get("/window", h.GetWindow)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if opts.ExportsPerMinute > 0 {
					r.Use(httprate.LimitByIP(opts.ExportsPerMinute, time.Minute))
				}
				r.Get("/export", h.ExportProjects)
			})
			r.Get("/report", h.GetProjects)
		})

		r.Get("/exports", h.ListExports)
		r.Get("/health", h.Health)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Attendance Export</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Attendance Export API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/leave/export">/api/leave/export?month=YYYY-MM</a> - Download the workbook</li>
<li><a href="/api/leave/report">/api/leave/report?month=YYYY-MM</a> - JSON preview</li>
<li><a href="/api/leave/window">/api/leave/window?month=YYYY-MM</a> - Reporting window</li>
<li><a href="/api/projects/export">/api/projects/export?year=YYYY</a> - Download the assignment list</li>
<li><a href="/api/projects/report">/api/projects/report?year=YYYY</a> - Assignment list preview</li>
<li><a href="/api/exports">/api/exports</a> - Export history</li>
</ul>
</body>
</html>`))
	})

	return r
}

func requestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
