package leaderboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const keyToken = "leaderboard-token"

// ErrNoToken is returned when no token is stored for a player.
var ErrNoToken = errors.New("leaderboard: no token stored")

// CredentialStore keeps leaderboard tokens in the OS keychain, with an
// optional JSON file fallback for hosts without a keyring backend.
type CredentialStore struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewCredentialStore creates a keyring-backed token store.
func NewCredentialStore(serviceName, fallbackPath string) *CredentialStore {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = "reactix"
	}
	return &CredentialStore{
		service:      serviceName,
		fallbackPath: fallbackPath,
	}
}

func (k *CredentialStore) key(playerID string) string {
	return fmt.Sprintf("%s/%s", playerID, keyToken)
}

// SetToken stores the bearer token for playerID.
func (k *CredentialStore) SetToken(playerID, token string) error {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("leaderboard: player id is required")
	}

	err := keyring.Set(k.service, k.key(playerID), token)
	if err == nil {
		return nil
	}
	if !isKeyringUnavailable(err) {
		return fmt.Errorf("leaderboard: keyring set: %w", err)
	}
	return k.setFallback(playerID, token)
}

// Token returns the stored token for playerID, or ErrNoToken.
func (k *CredentialStore) Token(playerID string) (string, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return "", fmt.Errorf("leaderboard: player id is required")
	}

	val, err := keyring.Get(k.service, k.key(playerID))
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("leaderboard: keyring get: %w", err)
	}
	return k.getFallback(playerID)
}

// DeleteToken removes the token for playerID from keyring and fallback.
func (k *CredentialStore) DeleteToken(playerID string) error {
	err := keyring.Delete(k.service, k.key(playerID))
	ferr := k.deleteFallback(playerID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
		return fmt.Errorf("leaderboard: keyring delete: %w", err)
	}
	return ferr
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

// fallbackTokens is the on-disk form of the fallback file: player id to
// token.
type fallbackTokens map[string]string

func (k *CredentialStore) setFallback(playerID, token string) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return fmt.Errorf("leaderboard: keyring unavailable and no fallback path configured")
	}
	return k.withFallback(true, func(data fallbackTokens) {
		data[playerID] = token
	})
}

func (k *CredentialStore) getFallback(playerID string) (string, error) {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return "", ErrNoToken
	}
	var tok string
	err := k.withFallback(false, func(data fallbackTokens) {
		tok = data[playerID]
	})
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

func (k *CredentialStore) deleteFallback(playerID string) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return nil
	}
	return k.withFallback(true, func(data fallbackTokens) {
		delete(data, playerID)
	})
}

// withFallback loads the fallback file, hands it to fn and, when write is
// set, replaces the file atomically with the result.
func (k *CredentialStore) withFallback(write bool, fn func(fallbackTokens)) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	data := fallbackTokens{}
	raw, err := os.ReadFile(k.fallbackPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("leaderboard: read fallback tokens: %w", err)
	case len(raw) > 0:
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("leaderboard: decode fallback tokens: %w", err)
		}
	}

	fn(data)
	if !write {
		return nil
	}

	dir := filepath.Dir(k.fallbackPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("leaderboard: mkdir fallback dir: %w", err)
	}
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("leaderboard: encode fallback tokens: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("leaderboard: write fallback tokens: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("leaderboard: write fallback tokens: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("leaderboard: write fallback tokens: %w", err)
	}
	if err := os.Rename(tmp.Name(), k.fallbackPath); err != nil {
		return fmt.Errorf("leaderboard: replace fallback tokens: %w", err)
	}
	return nil
}
