// Package server exposes teams and users over HTTP through the
// transformation pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/NicolasHaas/godata/pkg/datastore"
	"github.com/NicolasHaas/godata/pkg/model"
	"github.com/NicolasHaas/godata/pkg/orm"
	"github.com/NicolasHaas/godata/pkg/rbac"
	"github.com/NicolasHaas/godata/pkg/transform"
)

// Config holds server configuration.
type Config struct {
	Addr           string   // HTTP bind address (e.g. ":9600")
	DBPath         string   // SQLite database path
	TypesFile      string   // YAML file with per-type options (optional)
	AllowedOrigins []string // CORS origins; empty allows none
	MaxPerPage     int      // upper bound for ?per_page

	// CLI-only actions (run and exit)
	ExportUsers bool // export all users as YAML and exit
}

// Dependencies holds external dependencies for the server.
// Server assumes ownership of Store and will Close() it on shutdown.
type Dependencies struct {
	Store *datastore.ProviderFactory
	// Clock overrides the timestamp source, tests pin it.
	Clock func() time.Time
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:       ":9600",
		DBPath:     "godata.db",
		MaxPerPage: 100,
	}
}

// Server serves the HTTP API.
type Server struct {
	transform.Transformations

	cfg     Config
	store   *datastore.ProviderFactory
	types   model.Types
	metrics *Metrics
	handler http.Handler

	httpSrv *http.Server
	ctx     context.Context
	cancel  context.CancelFunc
}

// New registers the record types, wires ban listeners and builds the HTTP
// handler.
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("server: missing store dependency")
	}

	var typeCfg TypeConfig
	if cfg.TypesFile != "" {
		var err error
		if typeCfg, err = LoadTypeConfig(cfg.TypesFile); err != nil {
			return nil, err
		}
	}

	var opts []orm.RegistryOption
	if deps.Clock != nil {
		opts = append(opts, orm.WithClock(deps.Clock))
	}
	reg := orm.NewRegistry(deps.Store.NonTx(), opts...)
	types := model.Register(reg, typeCfg.Types)
	if err := model.CheckSchema(context.Background(), types); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	rbac.GuardBans(types.Users)
	rbac.ExposePermissions(types.Users)

	metrics := NewMetrics("godata")
	metrics.Observe(types.Users)
	metrics.Observe(types.Teams)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Transformations: transform.Transformations{Transformer: transform.ModelTransformer{}},
		cfg:             cfg,
		store:           deps.Store,
		types:           types,
		metrics:         metrics,
		ctx:             ctx,
		cancel:          cancel,
	}
	s.handler = s.buildHandler()
	return s, nil
}

// Types returns the registered record types.
func (s *Server) Types() model.Types { return s.types }

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", headerRequestID},
		ExposedHeaders:   []string{headerRequestID},
		AllowCredentials: false,
	})

	return requestID(s.metrics.instrument(corsHandler.Handler(mux)))
}

func logRequestError(r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", RequestIDFrom(r.Context()),
		"err", err,
	)
}
