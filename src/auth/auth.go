package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/zalando/go-keyring"
)

const (
	service = "interview-coder"
	account = "session"
)

// ErrNoSession means no credentials are stored.
var ErrNoSession = errors.New("no stored session")

// Session holds the tokens issued by the hosted identity provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Save persists the session in the OS keychain, replacing any previous one.
func Save(s Session) error {
	if s.AccessToken == "" {
		return errors.New("access token is empty")
	}
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := keyring.Set(service, account, string(blob)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load retrieves the stored session. Returns ErrNoSession when none exists.
func Load() (Session, error) {
	blob, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		// A corrupt entry is unrecoverable; drop it so the next sign-in
		// starts clean.
		log.Printf("auth: discarding corrupt stored session: %v", err)
		_ = keyring.Delete(service, account)
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Clear removes the stored session. Clearing an absent session is not an
// error.
func Clear() error {
	err := keyring.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
