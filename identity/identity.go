// Package identity resolves the user identity sent as the bearer token on
// every backend request.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTTL is how long saved credentials stay valid.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrNoIdentity is returned when no user id is configured or saved.
	ErrNoIdentity = errors.New("no user id configured")
	// ErrExpired is returned when saved credentials are past their expiry.
	ErrExpired = errors.New("saved credentials expired")
)

// Session is the identity attached to backend requests. It is immutable
// after construction and passed explicitly to every client.
type Session struct {
	userID string
}

// NewSession creates a session for the given user id.
func NewSession(userID string) Session {
	return Session{userID: strings.TrimSpace(userID)}
}

// UserID returns the user id of the session.
func (s Session) UserID() string { return s.userID }

// Valid reports whether the session carries a user id.
func (s Session) Valid() bool { return s.userID != "" }

// AuthorizationHeader returns the value of the Authorization header.
func (s Session) AuthorizationHeader() string {
	return "Bearer " + s.userID
}

// Credentials is the on-disk form of a saved identity.
type Credentials struct {
	UserID    string    `yaml:"user_id"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// Save writes credentials for userID to path, valid for ttl from now.
func Save(path, userID string, ttl time.Duration, now time.Time) (*Credentials, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNoIdentity
	}
	creds := &Credentials{UserID: userID, ExpiresAt: now.Add(ttl).UTC()}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write credentials: %w", err)
	}
	return creds, nil
}

// LoadCredentials reads saved credentials. Expired credentials are returned
// together with ErrExpired.
func LoadCredentials(path string, now time.Time) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoIdentity
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if strings.TrimSpace(creds.UserID) == "" {
		return nil, ErrNoIdentity
	}
	if !creds.ExpiresAt.IsZero() && !now.Before(creds.ExpiresAt) {
		return &creds, ErrExpired
	}
	return &creds, nil
}

// Resolve returns the session to use. An explicit user id wins; otherwise
// unexpired credentials saved at credentialsPath are used.
func Resolve(explicitUserID, credentialsPath string, now time.Time) (Session, error) {
	if s := NewSession(explicitUserID); s.Valid() {
		return s, nil
	}
	if credentialsPath == "" {
		return Session{}, ErrNoIdentity
	}
	creds, err := LoadCredentials(credentialsPath, now)
	if err != nil {
		return Session{}, err
	}
	return NewSession(creds.UserID), nil
}
