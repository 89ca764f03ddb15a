package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/memcardhq/memcard/pkg/models"
)

// ErrAuthRequired is returned by any flow that needs a signed-in user
// when the session is missing or unusable. Callers send the user to
// sign in; no read or write is attempted.
var ErrAuthRequired = errors.New("authentication required: run 'memcard login'")

// Session is the authenticated identity, threaded explicitly through
// each flow entry point. Token and user id come from the record store's
// auth endpoint.
type Session struct {
	Token  string          `json:"token"`
	UserID string          `json:"user_id"`
	Email  string          `json:"email,omitempty"`
	Issued models.DateTime `json:"issued,omitempty"`
}

// Valid reports whether the session carries a usable identity.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.UserID != ""
}

// Require returns ErrAuthRequired unless the session is valid.
func (s *Session) Require() error {
	if !s.Valid() {
		return ErrAuthRequired
	}
	return nil
}

// Load reads a previously saved session. A missing file yields an
// empty (invalid) session, not an error.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Session{}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &s, nil
}

// Save persists the session for later invocations. The file is user
// readable only since it holds the auth token.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the saved session.
func Clear(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
