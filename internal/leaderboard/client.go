// Package leaderboard submits ranked run scores to a remote leaderboard
// service.
//
// Scores are posted as JSON to
//
//	<BaseURL>/v1/leaderboards/<board>/scores
//
// with the player's bearer token. Rate limits (429) and server errors (5xx)
// are retried with capped exponential backoff; authentication failures are
// returned immediately.
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies the bearer token for a player.
type TokenSource interface {
	Token(playerID string) (string, error)
}

// Config holds configuration for the leaderboard client.
type Config struct {
	// BaseURL is the leaderboard service root, e.g. "https://scores.example.com".
	BaseURL string

	// PlayerID identifies the submitting player.
	PlayerID string

	// Token is a static bearer token. When empty, Credentials is consulted.
	Token string

	// Credentials looks up the token per submission. Optional.
	Credentials TokenSource

	// MaxRetries is the maximum number of retry attempts for retryable errors.
	// Defaults to 3 if zero.
	MaxRetries int

	// BaseRetryDelay is the initial delay before the first retry.
	// Defaults to 500ms if zero.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff delay.
	// Defaults to 5 seconds if zero.
	MaxRetryDelay time.Duration

	// HTTPClient allows injecting a custom HTTP client.
	// Defaults to a client with 10s timeout.
	HTTPClient *http.Client
}

// Client submits scores to the leaderboard service.
type Client struct {
	config Config
	http   *http.Client
}

// ScoreSubmission is the request body for a score.
type ScoreSubmission struct {
	PlayerID    string    `json:"player_id"`
	Board       string    `json:"board"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewClient creates a new leaderboard client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 5 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config: cfg,
		http:   httpClient,
	}
}

// Submit posts score to board, retrying transient failures.
func (c *Client) Submit(ctx context.Context, board string, score int) error {
	if strings.TrimSpace(board) == "" {
		return fmt.Errorf("leaderboard: board is required")
	}
	token, err := c.token()
	if err != nil {
		return err
	}

	body := ScoreSubmission{
		PlayerID:    c.config.PlayerID,
		Board:       board,
		Score:       score,
		SubmittedAt: time.Now().UTC(),
	}
	path := fmt.Sprintf("v1/leaderboards/%s/scores", url.PathEscape(board))

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doRequest(ctx, path, token, body)
		if err == nil {
			return nil
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsRetryable() {
			continue
		}
		return err
	}

	return fmt.Errorf("leaderboard: max retries exceeded: %w", lastErr)
}

func (c *Client) token() (string, error) {
	if c.config.Token != "" {
		return c.config.Token, nil
	}
	if c.config.Credentials == nil {
		return "", nil
	}
	tok, err := c.config.Credentials.Token(c.config.PlayerID)
	if err != nil {
		return "", fmt.Errorf("leaderboard: load token: %w", err)
	}
	return tok, nil
}

// doRequest sends a single POST and maps the response status to an error.
func (c *Client) doRequest(ctx context.Context, path, token string, body any) error {
	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), path)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("leaderboard: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("leaderboard: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("leaderboard: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	default:
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
}

// retryDelay calculates the backoff delay for a given attempt number.
func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.config.BaseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}
