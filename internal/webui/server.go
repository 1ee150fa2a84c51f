// Package webui serves the browser front end: an upload page and a JSON API
// over pipeline sessions.
//
// Routes:
//
//	GET    /                                upload form
//	GET    /app.js                          page script
//	GET    /healthz                         liveness
//	GET    /api/meta                        operators, chart kinds, delimiters
//	POST   /api/sessions                    multipart "file" or form "url"
//	GET    /api/sessions/{id}               snapshot + column profile
//	DELETE /api/sessions/{id}
//	POST   /api/sessions/{id}/data          replace the table; kept on error
//	POST   /api/sessions/{id}/filters       add a predicate
//	DELETE /api/sessions/{id}/filters/{fid}
//	PUT    /api/sessions/{id}/chart         chart kind, axes, title, colors
//	GET    /api/sessions/{id}/view          series, legend and a page of rows
//	GET    /api/sessions/{id}/export.csv    filtered table
//	POST   /api/export/png?title=           rasterize a chart scene
//	GET    /api/sessions/{id}/ws            live view over a websocket
package webui

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/facebookgo/httpdown"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"csvviz/internal/datasource/httpds"
	"csvviz/internal/ingest"
	"csvviz/internal/logging"
	"csvviz/internal/pipeline"
)

// Defaults applied by NewServer to zero Config fields.
const (
	DefaultAddr        = ":8080"
	DefaultSessions    = 256
	DefaultStopTimeout = 10 * time.Second
	defaultJob         = "csvviz-web"
)

// Config controls server startup.
type Config struct {
	Addr string
	// Job labels metrics recorded by every session.
	Job string
	// Sessions bounds the in-memory session cache; the least recently used
	// session is evicted first.
	Sessions int
	// MaxUploadBytes caps uploads, downloads and PNG scenes.
	MaxUploadBytes int64
	// AllowURL lets clients load sources by URL.
	AllowURL bool
	// HTTP configures the client used for URL loads.
	HTTP httpds.Config
	// StopTimeout bounds graceful shutdown.
	StopTimeout time.Duration
}

// Server owns the routes and the session cache.
type Server struct {
	cfg      Config
	mux      *http.ServeMux
	tmpl     *template.Template
	sessions *lru.Cache[string, *pipeline.Session]
	client   *httpds.Client
	loads    singleflight.Group
}

// NewServer constructs a Server with routes and the embedded template.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Job == "" {
		cfg.Job = defaultJob
	}
	if cfg.Sessions <= 0 {
		cfg.Sessions = DefaultSessions
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = ingest.DefaultMaxBytes
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}

	cache, err := lru.New[string, *pipeline.Session](cfg.Sessions)
	if err != nil {
		return nil, fmt.Errorf("webui: session cache: %w", err)
	}
	tmpl, err := template.New("index").Parse(indexHTML)
	if err != nil {
		return nil, fmt.Errorf("webui: parse template: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		tmpl:     tmpl,
		sessions: cache,
		client:   httpds.NewClient(cfg.HTTP),
	}
	s.routes()
	return s, nil
}

// Config returns the effective configuration after defaults.
func (s *Server) Config() Config { return s.cfg }

// Handler returns the routes wrapped with request logging.
func (s *Server) Handler() http.Handler { return logRequests(s.mux) }

// ListenAndServe serves until ctx is done, then stops gracefully, letting
// in-flight requests finish within StopTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("webui: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	h := httpdown.HTTP{StopTimeout: s.cfg.StopTimeout, KillTimeout: s.cfg.StopTimeout}
	srv := h.Serve(hs, ln)
	logging.Logger().Info("webui: listening", "addr", ln.Addr().String())

	done := make(chan error, 1)
	go func() { done <- srv.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logging.Logger().Info("webui: stopping", "timeout", s.cfg.StopTimeout)
		if err := srv.Stop(); err != nil {
			return fmt.Errorf("webui: stop: %w", err)
		}
		return <-done
	}
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /app.js", s.handleScript)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/meta", s.handleMeta)

	s.mux.HandleFunc("POST /api/sessions", s.handleCreate)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGet)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/sessions/{id}/data", s.handleReload)
	s.mux.HandleFunc("POST /api/sessions/{id}/filters", s.handleAddFilter)
	s.mux.HandleFunc("DELETE /api/sessions/{id}/filters/{fid}", s.handleRemoveFilter)
	s.mux.HandleFunc("PUT /api/sessions/{id}/chart", s.handleChart)
	s.mux.HandleFunc("GET /api/sessions/{id}/view", s.handleView)
	s.mux.HandleFunc("GET /api/sessions/{id}/export.csv", s.handleExportCSV)
	s.mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleWS)

	s.mux.HandleFunc("POST /api/export/png", s.handleExportPNG)
}

var errNoSession = errors.New("webui: unknown session")

// session looks up the {id} path value, answering 404 when it is missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *pipeline.Session, bool) {
	id := r.PathValue("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errNoSession)
		return id, nil, false
	}
	return id, sess, true
}

func (s *Server) newSession() (string, *pipeline.Session) {
	id := uuid.NewString()
	sess := pipeline.NewSession(s.cfg.Job)
	if evicted := s.sessions.Add(id, sess); evicted {
		logging.Logger().Debug("webui: evicted least recently used session",
			"cap", s.cfg.Sessions)
	}
	return id, sess
}

// indexHTML is the upload and chart page.
//
//go:embed index.tmpl.html
var indexHTML string

// appJS drives the page through the JSON and websocket API.
//
//go:embed app.js
var appJS []byte
