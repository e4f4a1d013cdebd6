package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/mealdesk/mealdesk/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Session keys written by Login.
const (
	SessionKeyLoggedIn = "logged_in"
	SessionKeyUsername = "username"
)

// Provider checks the configured admin credential pair.
type Provider struct {
	username     []byte
	password     []byte
	passwordHash []byte
}

// New creates a credential provider from the auth config.
func New(cfg *config.AuthConfig) (*Provider, error) {
	if cfg == nil || cfg.Username == "" {
		return nil, errors.New("auth username is required")
	}
	p := &Provider{username: []byte(cfg.Username)}

	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid password hash: %w", err)
		}
		p.passwordHash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		p.password = []byte(cfg.Password)
	default:
		return nil, errors.New("auth password is required")
	}
	return p, nil
}

// Verify reports whether the pair matches the configured credentials.
// Both halves are always checked so the timing does not reveal which one failed.
func (p *Provider) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), p.username) == 1

	var passOK bool
	if p.passwordHash != nil {
		passOK = bcrypt.CompareHashAndPassword(p.passwordHash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), p.password) == 1
	}
	return userOK && passOK
}
