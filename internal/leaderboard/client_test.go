package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string, retries int) *Client {
	return NewClient(Config{
		BaseURL:        url,
		PlayerID:       "alice",
		Token:          "tok-123",
		MaxRetries:     retries,
		BaseRetryDelay: time.Millisecond,
		MaxRetryDelay:  5 * time.Millisecond,
	})
}

func TestSubmitSuccess(t *testing.T) {
	var got ScoreSubmission
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	if err := c.Submit(context.Background(), "daily", 42); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if path != "/v1/leaderboards/daily/scores" {
		t.Errorf("path = %s", path)
	}
	if auth != "Bearer tok-123" {
		t.Errorf("auth = %q", auth)
	}
	if got.PlayerID != "alice" || got.Score != 42 || got.Board != "daily" {
		t.Errorf("body = %+v", got)
	}
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	if err := c.Submit(context.Background(), "global", 7); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestSubmitMaxRetriesExceeded(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	err := c.Submit(context.Background(), "global", 7)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || !httpErr.IsRateLimited() {
		t.Fatalf("err = %v, want rate limited HTTPError", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestSubmitAuthErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	err := c.Submit(context.Background(), "global", 1)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if authErr.Message != "bad token" {
		t.Errorf("message = %q", authErr.Message)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSubmitClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, 3).Submit(context.Background(), "global", 1)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.IsRetryable() {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSubmitRequiresBoard(t *testing.T) {
	if err := newTestClient("http://127.0.0.1:1", 0).Submit(context.Background(), " ", 1); err == nil {
		t.Fatal("expected error for empty board")
	}
}

func TestSubmitContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, MaxRetries: 5, BaseRetryDelay: time.Second, MaxRetryDelay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.Submit(ctx, "global", 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

type staticTokens map[string]string

func (s staticTokens) Token(playerID string) (string, error) {
	tok, ok := s[playerID]
	if !ok {
		return "", ErrNoToken
	}
	return tok, nil
}

func TestSubmitUsesCredentials(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, PlayerID: "bob", Credentials: staticTokens{"bob": "from-store"}})
	if err := c.Submit(context.Background(), "global", 3); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if auth != "Bearer from-store" {
		t.Errorf("auth = %q", auth)
	}

	c = NewClient(Config{BaseURL: srv.URL, PlayerID: "carol", Credentials: staticTokens{}})
	if err := c.Submit(context.Background(), "global", 3); !errors.Is(err, ErrNoToken) {
		t.Errorf("missing token err = %v", err)
	}
}

func TestRetryDelay(t *testing.T) {
	c := NewClient(Config{BaseRetryDelay: 100 * time.Millisecond, MaxRetryDelay: 300 * time.Millisecond})
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{6, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := c.retryDelay(tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
