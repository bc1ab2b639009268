// Package server wires the HTTP surface of the canopy service.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/canopyhq/canopy/internal/api"
	"github.com/canopyhq/canopy/internal/api/dashboard"
	"github.com/canopyhq/canopy/internal/assistant"
	"github.com/canopyhq/canopy/internal/dataset"
	"github.com/canopyhq/canopy/internal/db"
	"github.com/canopyhq/canopy/internal/metrics"
	"github.com/canopyhq/canopy/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host         string
	Port         string
	DataDir      string // directory holding the precomputed dataset files
	DataURL      string // dataset origin; defaults to this server's own /data/
	AssistantURL string // base URL of the AI recommendation service
	WebDir       string // path to web/ directory for static files and templates
}

// Server is the canopy HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	cache    *dataset.Cache
	bus      *dataset.EventBus
	renderer *templates.Renderer
}

// New creates a new canopy server.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("canopy API", "1.0.0")
	humaConfig.Info.Description = "Data service for the city tree-planting dashboard: datasets, layer styles, statistics, location search, and AI recommendations."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	if cfg.DataURL == "" {
		// Fetch from our own static /data/ mount by default. Loads are
		// lazy, so the listener is up before the first fetch happens.
		cfg.DataURL = fmt.Sprintf("http://127.0.0.1:%s/data", cfg.Port)
	}

	bus := dataset.NewEventBus()
	cache := dataset.NewCache(dataset.Config{
		Registry: dataset.DefaultRegistry(),
		BaseURL:  strings.TrimSuffix(cfg.DataURL, "/"),
		Logger:   slog.Default(),
		Bus:      bus,
	})

	services := &api.Services{
		Cache:     cache,
		Assistant: assistant.New(cfg.AssistantURL, nil),
	}

	// Template renderer for dashboard SSE fragments
	var renderer *templates.Renderer
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			renderer = r
		}
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		cache:    cache,
		bus:      bus,
		renderer: renderer,
	}

	// DuckDB is optional; everything except /api/v1/query works without it.
	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "canopy"})
	if err == nil {
		s.db = conn
		if err := db.RegisterDatasetViews(conn, cfg.DataDir, cache.Registry()); err != nil {
			slog.Warn("dataset views not registered", "err", err)
		}
	}

	s.routes(services)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

// OpenAPI returns the generated OpenAPI description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) routes(services *api.Services) {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.NewAPIHandler(services).RegisterRoutes(s.humaAPI)
	api.NewInfoHandler(s.config.DataDir, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Dashboard SSE routes using Huma + Datastar SDK
	dashboard.NewChatHandler(services.Assistant).RegisterRoutes(s.humaAPI)
	dashboard.NewStatsHandler(s.cache, s.renderer).RegisterRoutes(s.humaAPI)
	dashboard.NewEventHandler(s.cache, s.bus, s.renderer).RegisterRoutes(s.humaAPI)

	// Raw dataset endpoints stay on the plain mux: payloads are large
	// GeoJSON documents streamed as-is, not schema-described bodies.
	s.mux.HandleFunc("/api/v1/datasets", s.handleEssentialBundle)
	s.mux.HandleFunc("/api/v1/datasets/", s.handleDataset)

	// Prometheus metrics
	s.mux.Handle("/metrics", metrics.Handler())

	// Static files: the dataset directory doubles as the data origin.
	if s.config.DataDir != "" {
		s.mux.Handle("/data/", http.StripPrefix("/data/", s.handleData(s.config.DataDir)))
	}
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("/dashboard", s.handleDashboard)
	s.mux.HandleFunc("/", s.handleRoot)
}

// handleEssentialBundle returns every essential dataset in one response,
// keyed the way the dashboard destructures them.
func (s *Server) handleEssentialBundle(w http.ResponseWriter, r *http.Request) {
	layers := s.cache.LoadEssential(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"topLocations": layers.TopLocations,
		"heatZones":    layers.HeatZones,
		"greenSpaces":  layers.GreenSpaces,
		"waterBodies":  layers.WaterBodies,
		"topDetail": map[string]interface{}{
			"header":  layers.TopDetail.Header,
			"records": layers.TopDetail.Records,
		},
	})
}

// handleDataset returns one dataset payload by identifier. Unknown
// identifiers are a 404; a known dataset that failed to load still returns
// an empty payload with a 200, per the cache contract.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/datasets/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if _, ok := s.cache.Registry().Get(id); !ok {
		http.NotFound(w, r)
		return
	}

	payload := s.cache.Get(r.Context(), id)
	w.Header().Set("Content-Type", "application/json")
	if payload.Table != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"header":  payload.Table.Header,
			"records": payload.Table.Records,
		})
		return
	}
	json.NewEncoder(w).Encode(payload.Collection)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "canopy",
		"status":  "running",
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "dashboard.html")
	http.ServeFile(w, r, templatePath)
}

// handleData serves the dataset files with the CORS headers the browser map
// client needs for range requests.
func (s *Server) handleData(dataDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(dataDir)).ServeHTTP(w, r)
	})
}
