// Package server assembles the HTTP surface: the Huma REST API, the
// Datastar live routes, parcel tile serving and the viewer page.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/bhupatram/tippan/internal/api"
	"github.com/bhupatram/tippan/internal/api/live"
	"github.com/bhupatram/tippan/internal/config"
	"github.com/bhupatram/tippan/internal/db"
	"github.com/bhupatram/tippan/internal/geocode"
	"github.com/bhupatram/tippan/internal/parcel"
	"github.com/bhupatram/tippan/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	WebDir     string // Path to web/ directory for static files and pages
	ConfigPath string // Optional YAML config file
	Log        zerolog.Logger
}

// Server is the tippan HTTP server.
type Server struct {
	config    Config
	viewerCfg *config.Config
	mux       *http.ServeMux
	humaAPI   huma.API
	db        *sql.DB
	services  *api.Services
	log       zerolog.Logger
}

// New creates a new tippan server.
func New(cfg Config) (*Server, error) {
	viewerCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("tippan API", "1.0.0")
	humaConfig.Info.Description = "Land survey document portal API: parcel tiles, drawn geometry snapshots and place search."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	parcels, err := parcel.NewService(cfg.DataDir, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("parcel service: %w", err)
	}

	s := &Server{
		config:    cfg,
		viewerCfg: viewerCfg,
		mux:       mux,
		humaAPI:   humaAPI,
		log:       cfg.Log,
	}

	// Snapshot storage: DuckDB when available, files otherwise.
	var kv store.KV
	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "tippan"})
	if err != nil {
		cfg.Log.Warn().Err(err).Msg("duckdb unavailable, using file snapshot store")
		kv = store.NewFileKV(filepath.Join(cfg.DataDir, "snapshots"))
	} else {
		s.db = conn
		kv = db.NewKV(conn)
	}

	var geocoder *geocode.Client
	if viewerCfg.Geocoder.Endpoint != "" {
		geocoder = geocode.New(viewerCfg.Geocoder.Endpoint,
			geocode.WithAPIKey(viewerCfg.Geocoder.APIKey),
			geocode.WithCountry(viewerCfg.Geocoder.Country),
			geocode.WithLimit(viewerCfg.Geocoder.Limit),
		)
	}

	s.services = &api.Services{
		Parcel:   parcels,
		Snapshot: store.NewSnapshot(kv, cfg.Log),
		Geocoder: geocoder,
		Notify: func(resource, action, id string) {
			live.DefaultBus.Publish(live.Event{Resource: resource, Action: action, ID: id})
		},
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	RequestLogger(s.log, s.mux).ServeHTTP(w, r)
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Live SSE routes: parcel upload progress, change notifications
	live.NewHandler(s.services.Parcel, live.DefaultBus).RegisterRoutes(s.humaAPI)

	// Parcel tile archive, range-served for PMTiles clients
	s.mux.Handle("/tiles/", http.StripPrefix("/tiles/",
		s.handleTiles(filepath.Dir(s.services.Parcel.CurrentPath()))))

	// Static files and pages
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		s.mux.HandleFunc("/viewer", s.handleViewer)
	}

	s.mux.HandleFunc("/api/v1/viewer-config", s.handleViewerConfig)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "tippan",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	pagePath := filepath.Join(s.config.WebDir, "templates", "viewer.html")
	http.ServeFile(w, r, pagePath)
}

// handleViewerConfig hands the browser viewer its startup settings: the
// base style, initial camera and the parcel tile URL.
func (s *Server) handleViewerConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"style":   s.viewerCfg.Map.StyleURL,
		"center":  []float64{s.viewerCfg.Map.CenterLon, s.viewerCfg.Map.CenterLat},
		"zoom":    s.viewerCfg.Map.Zoom,
		"tiles":   s.viewerCfg.Parcels.TileURL,
		"geocode": s.viewerCfg.Geocoder.Endpoint != "",
	})
}

// handleTiles serves the parcel archive with the CORS and Range headers
// PMTiles clients need for partial reads.
func (s *Server) handleTiles(tilesDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(tilesDir)).ServeHTTP(w, r)
	})
}
