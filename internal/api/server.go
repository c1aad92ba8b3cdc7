// Package api exposes runs, progression and the daily challenge over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/session"
	"github.com/jfapp/reactix/internal/store"
)

// Progress is the read side of player progression.
type Progress interface {
	Profile(ctx context.Context) (*store.Profile, error)
	History(ctx context.Context, mode string, page, perPage int) (*store.RunsList, error)
}

// Options configures a Server.
type Options struct {
	Sessions *session.Manager
	Progress Progress
	Game     game.Config
	Location *time.Location
	Clock    func() time.Time
	Logger   *log.Logger
}

// Server handles HTTP requests
type Server struct {
	sessions     *session.Manager
	progress     Progress
	game         game.Config
	loc          *time.Location
	clock        func() time.Time
	errorHandler *ErrorHandler
	logger       *log.Logger
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Server{
		sessions:     opts.Sessions,
		progress:     opts.Progress,
		game:         opts.Game,
		loc:          opts.Location,
		clock:        opts.Clock,
		errorHandler: NewErrorHandler(opts.Logger),
		logger:       opts.Logger,
		startTime:    time.Now(),
	}
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequest)
	r.Use(s.errorHandler.RecoveryHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/health", s.handleHealthCheck)
		r.Get("/version", s.handleVersion)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// The stream is long-lived and stays outside the request timeout.
		r.Get("/runs/{id}/stream", s.handleRunStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Post("/runs", s.handleStartRun)
			r.Get("/runs/{id}", s.handleGetRun)
			r.Post("/runs/{id}/tick", s.handleTick)
			r.Post("/runs/{id}/tap", s.handleTap)
			r.Post("/runs/{id}/swipe", s.handleSwipe)
			r.Post("/runs/{id}/boost", s.handleBoost)
			r.Post("/runs/{id}/revive", s.handleRevive)
			r.Post("/runs/{id}/finish", s.handleFinish)

			r.Get("/profile", s.handleProfile)
			r.Get("/history", s.handleHistory)
			r.Get("/daily", s.handleDaily)
		})
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

// decodeJSON reads a request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Printf("%s %s %d %dms request_id=%s",
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds(), middleware.GetReqID(r.Context()))
	})
}

func qInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
