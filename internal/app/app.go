// Package app wires the store, settlement, sessions and HTTP API into one
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jfapp/reactix/internal/api"
	"github.com/jfapp/reactix/internal/config"
	"github.com/jfapp/reactix/internal/leaderboard"
	"github.com/jfapp/reactix/internal/progress"
	"github.com/jfapp/reactix/internal/session"
	"github.com/jfapp/reactix/internal/store"
)

const (
	appConfigDirName  = "reactix"
	credentialsFile   = "credentials.json"
	readHeaderTimeout = 10 * time.Second
)

// App owns the database and the HTTP server.
type App struct {
	cfg    config.Config
	logger *log.Logger

	db       *store.SQLiteDB
	progress *progress.Service
	sessions *session.Manager
	handler  http.Handler

	httpServer *http.Server
	listener   net.Listener
}

// New opens the database and builds every component. It does not start
// listening; call Start.
func New(cfg config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		logger: log.New(os.Stdout, "[APP] ", log.LstdFlags|log.Lshortfile),
		db:     db,
	}

	var submitter progress.Submitter
	if lb := a.leaderboardClient(); lb != nil {
		submitter = lb
	}

	a.progress = progress.NewService(db, submitter, progress.Options{
		PlayerID: cfg.PlayerID,
		Location: loc,
	})
	a.sessions = session.NewManager(session.Options{
		Config:        cfg.Game,
		Location:      loc,
		Completer:     a.progress,
		TickInterval:  cfg.TickInterval,
		ReviveTimeout: cfg.ReviveTimeout,
		Retention:     cfg.RunRetention,
	})
	a.handler = api.NewServer(api.Options{
		Sessions: a.sessions,
		Progress: a.progress,
		Game:     cfg.Game,
		Location: loc,
	}).Routes()
	return a, nil
}

// leaderboardClient returns nil when no leaderboard is configured.
func (a *App) leaderboardClient() *leaderboard.Client {
	if a.cfg.LeaderboardURL == "" {
		a.logger.Printf("leaderboard disabled")
		return nil
	}
	a.logger.Printf("leaderboard at %s (player %s)", a.cfg.LeaderboardURL, a.cfg.PlayerID)
	return leaderboard.NewClient(leaderboard.Config{
		BaseURL:     a.cfg.LeaderboardURL,
		PlayerID:    a.cfg.PlayerID,
		Token:       a.cfg.LeaderboardToken,
		Credentials: Credentials(a.cfg),
	})
}

// Credentials returns the keyring-backed token store for cfg. Tokens fall
// back to a file under the user config dir when no keyring is available.
func Credentials(cfg config.Config) *leaderboard.CredentialStore {
	fallback := cfg.TokenFile
	if fallback == "" {
		fallback = filepath.Join(appDataDir(), credentialsFile)
	}
	return leaderboard.NewCredentialStore(cfg.KeyringService, fallback)
}

// Handler exposes the routed API.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Start begins serving in a goroutine. It returns once the socket is bound.
func (a *App) Start() error {
	if a.httpServer != nil {
		return errors.New("app: already started")
	}
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", a.cfg.Addr, err)
	}
	a.listener = ln
	a.httpServer = &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Printf("serve: %v", err)
		}
	}()
	a.logger.Printf("listening on %s", ln.Addr())
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (a *App) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.cfg.Addr
}

// Shutdown stops the HTTP server, halts background ticking and closes the
// database. Runs still in progress are dropped without settlement.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: http shutdown: %w", err))
		}
	}
	a.sessions.Close()
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app: close db: %w", err))
	}
	return errors.Join(errs...)
}

// appDataDir returns an OS-appropriate writable directory.
func appDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}
