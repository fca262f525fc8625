// Package server exposes the archive over HTTP.
//
// Routes:
//
//	GET    /health
//	GET    /metrics
//	GET    /api/config
//	PUT    /api/config/archive-root
//	GET    /api/people
//	POST   /api/people
//	GET    /api/people/{slug...}
//	PATCH  /api/people/{slug...}
//	POST   /api/import/recording
//	POST   /api/transcribe
//
// Person and recording routes answer 503 until an archive root is
// configured.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/estate/pkg/config"
	"github.com/entrhq/estate/pkg/identity"
	"github.com/entrhq/estate/pkg/logging"
	"github.com/entrhq/estate/pkg/metrics"
	"github.com/entrhq/estate/pkg/people"
	"github.com/entrhq/estate/pkg/recordings"
)

// ErrNotConfigured is reported while no archive root is set.
var ErrNotConfigured = errors.New("server: archive root not configured")

// PeopleService defines the record operations the API serves.
type PeopleService interface {
	Create(ctx context.Context, t identity.Tuple, bio string) (*people.Person, error)
	Get(ctx context.Context, slug string) (*people.Person, bool, error)
	List(ctx context.Context) ([]*people.Person, error)
	Update(ctx context.Context, slug string, fn func(*people.Person) error) (*people.Person, error)
}

// RecordingService defines the recording operations the API serves.
type RecordingService interface {
	Import(ctx context.Context, slug, filename, contentType string, r io.Reader) (*recordings.Result, error)
	Transcribe(ctx context.Context, slug, relPath string) (*recordings.Recording, error)
}

// ConfigService reads and changes the persisted configuration.
type ConfigService interface {
	Get() config.AppConfig
	SetArchiveRoot(root string, prepare func(root string) error) error
}

// Backend is the set of services bound to one archive root.
type Backend struct {
	People     PeopleService
	Recordings RecordingService
}

// OpenFunc builds the backend for an archive root.
type OpenFunc func(root string) (*Backend, error)

// Options configures a Server.
type Options struct {
	Config ConfigService
	// Open binds services to a root. It is called at construction for the
	// configured root and again whenever the root changes.
	Open OpenFunc
	// Prepare bootstraps and cleans a root before it is accepted.
	Prepare  func(root string) error
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// MaxUploadMemory is the part of a multipart upload kept in memory;
	// the rest is spooled to disk.
	MaxUploadMemory int64
	Timeout         time.Duration
}

// Server serves the archive API.
type Server struct {
	opts    Options
	logger  *logging.Logger
	router  chi.Router
	mu      sync.RWMutex
	backend *Backend
}

// New creates a Server and opens the configured archive root, if any.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxUploadMemory <= 0 {
		opts.MaxUploadMemory = 32 << 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	s := &Server{opts: opts, logger: opts.Logger}

	if root := opts.Config.Get().ArchiveRoot; root != "" && opts.Open != nil {
		b, err := opts.Open(root)
		if err != nil {
			return nil, err
		}
		s.backend = b
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestID)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(s.opts.Timeout))
		r.Get("/config", s.handleGetConfig)
		r.Put("/config/archive-root", s.handleSetArchiveRoot)

		r.Get("/people", s.handleListPeople)
		r.Post("/people", s.handleCreatePerson)
		r.Get("/people/*", s.handleGetPerson)
		r.Patch("/people/*", s.handleUpdatePerson)

		r.Post("/import/recording", s.handleImportRecording)
		r.Post("/transcribe", s.handleTranscribe)
	})
	return r
}

func (s *Server) current() (*Backend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return nil, ErrNotConfigured
	}
	return s.backend, nil
}

func (s *Server) swap(b *Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = b
}

// NewHTTPServer builds an HTTP server with sane defaults for this project.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
