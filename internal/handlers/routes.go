package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"

	_ "github.com/courtvision/prediction-api/docs"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "courtvision_http_request_duration_seconds",
	Help:    "HTTP request latency by route",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// RouterOptions carries the pieces of the router that live outside the handler
type RouterOptions struct {
	AllowedOrigins []string
	Realtime       http.Handler
}

// Routes builds the chi router for the whole API
func (h *Handler) Routes(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
	if opts.Realtime != nil {
		r.Handle("/ws", opts.Realtime)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/docs/doc.json", h.SwaggerDoc)

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.ListPlayers)
			r.Post("/", h.CreatePlayer)
			r.Get("/top", h.TopPlayers)
			r.Get("/{id}", h.GetPlayer)
		})
		r.Route("/matches", func(r chi.Router) {
			r.Post("/", h.CreateMatch)
			r.Get("/upcoming", h.UpcomingMatches)
			r.Get("/{id}", h.GetMatch)
		})
		r.Get("/tournaments", h.ListTournaments)
		r.Route("/predictions", func(r chi.Router) {
			r.Get("/recent", h.RecentPredictions)
			r.Get("/match/{id}", h.GetMatchPrediction)
			r.Post("/analyze", h.AnalyzeMatch)
		})
		r.Get("/agents/status", h.AgentStatuses)
		r.Get("/agents/usage", h.AgentUsage)
		r.Get("/agents/usage/breakdown", h.AgentUsageBreakdown)
		r.Post("/sync/{kind}", h.TriggerSync)
		r.Post("/system/install", h.InstallDatabase)
	})

	return r
}

// SwaggerDoc serves the registered OpenAPI document
func (h *Handler) SwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		h.errorResponse(w, http.StatusInternalServerError, "API docs not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	})
}
