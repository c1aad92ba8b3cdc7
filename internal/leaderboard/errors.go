package leaderboard

import "fmt"

// HTTPError represents a non-2xx response from the leaderboard service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("leaderboard: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited returns true if the status indicates rate limiting.
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsRetryable returns true for rate limits (429) and server errors (5xx).
func (e *HTTPError) IsRetryable() bool {
	return e.IsRateLimited() || e.StatusCode >= 500
}

// AuthError indicates the player token was rejected.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("leaderboard: authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
}
