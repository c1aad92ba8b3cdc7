package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/jfapp/reactix/internal/api"
	"github.com/jfapp/reactix/internal/config"
	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/leaderboard"
)

// fastConfig shrinks every window so background ticking ends a run quickly.
func fastConfig(t *testing.T) config.Config {
	t.Helper()
	g := game.DefaultConfig()
	g.InitialWindow = 30 * time.Millisecond
	g.MinWindow = 30 * time.Millisecond
	g.DontTapBase = 10 * time.Millisecond
	g.DontTapJitter = 10 * time.Millisecond
	return config.Config{
		Addr:           "127.0.0.1:0",
		DBPath:         filepath.Join(t.TempDir(), "reactix.db"),
		PlayerID:       "alice",
		TickInterval:   5 * time.Millisecond,
		ReviveTimeout:  time.Second,
		RunRetention:   time.Minute,
		KeyringService: "reactix-test",
		TokenFile:      filepath.Join(t.TempDir(), "credentials.json"),
		Game:           g,
	}
}

func startApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return a
}

func TestAppServesHealth(t *testing.T) {
	a := startApp(t, fastConfig(t))

	resp, err := http.Get("http://" + a.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body api.HealthCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != api.HealthStatusHealthy {
		t.Errorf("health = %+v", body)
	}
}

func TestAppStartTwice(t *testing.T) {
	a := startApp(t, fastConfig(t))
	if err := a.Start(); err == nil {
		t.Error("second Start should fail")
	}
}

func TestAppRunSubmitsToLeaderboard(t *testing.T) {
	var (
		mu     sync.Mutex
		got    []leaderboard.ScoreSubmission
		header string
	)
	lb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sub leaderboard.ScoreSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		mu.Lock()
		got = append(got, sub)
		header = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer lb.Close()

	cfg := fastConfig(t)
	cfg.LeaderboardURL = lb.URL
	cfg.LeaderboardToken = "static-token"
	a := startApp(t, cfg)
	base := "http://" + a.Addr() + "/api/v1"

	body, _ := json.Marshal(api.StartRunRequest{Mode: "classic"})
	resp, err := http.Post(base+"/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	var run api.RunResponse
	err = json.NewDecoder(resp.Body).Decode(&run)
	resp.Body.Close()
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("start run: status=%d err=%v", resp.StatusCode, err)
	}

	// Nobody taps, so the ticker ends the run on its own.
	deadline := time.Now().Add(5 * time.Second)
	for !run.Done {
		if time.Now().After(deadline) {
			t.Fatalf("run %s never finished: %+v", run.ID, run.State)
		}
		time.Sleep(20 * time.Millisecond)
		resp, err := http.Get(base + "/runs/" + run.ID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		run = api.RunResponse{}
		err = json.NewDecoder(resp.Body).Decode(&run)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode run: %v", err)
		}
	}

	if run.Outcome == nil || !run.Outcome.Submitted {
		t.Fatalf("outcome = %+v (%s)", run.Outcome, run.CompleteErr)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Board != "global" || got[0].PlayerID != "alice" {
		t.Errorf("submissions = %+v", got)
	}
	if header != "Bearer static-token" {
		t.Errorf("Authorization = %q", header)
	}
}

func TestAppBadDBPath(t *testing.T) {
	cfg := fastConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "missing", "dir", "reactix.db")
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unreachable database path")
	}
}

func TestCredentialsUsesTokenFile(t *testing.T) {
	keyring.MockInitWithError(errors.New("failed to connect to dbus session"))
	cfg := fastConfig(t)

	creds := Credentials(cfg)
	if err := creds.SetToken("alice", "from-file"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if _, err := os.Stat(cfg.TokenFile); err != nil {
		t.Fatalf("token file not written: %v", err)
	}
	tok, err := Credentials(cfg).Token("alice")
	if err != nil || tok != "from-file" {
		t.Errorf("Token = %q, %v", tok, err)
	}
}
