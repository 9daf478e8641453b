// Package auth validates HTTP Basic credentials against a fixed table of
// bcrypt password hashes.
package auth

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultRealm is advertised in the WWW-Authenticate challenge.
const DefaultRealm = "MoMo API"

// Gate checks Authorization headers. It is immutable after construction
// and safe for concurrent use.
type Gate struct {
	realm  string
	hashes map[string][]byte
	// dummy is compared against when the username is unknown so that both
	// failure paths cost one bcrypt comparison.
	dummy []byte
}

// NewGate builds a gate from username -> bcrypt hash.
func NewGate(realm string, users map[string]string) (*Gate, error) {
	if realm == "" {
		realm = DefaultRealm
	}

	g := &Gate{
		realm:  realm,
		hashes: make(map[string][]byte, len(users)),
	}
	for name, hash := range users {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("user %q: invalid bcrypt hash: %w", name, err)
		}
		g.hashes[name] = []byte(hash)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("momo-unknown-user"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	g.dummy = dummy

	return g, nil
}

// NewGateFromPasswords hashes plaintext passwords at the given cost.
// Intended for development defaults only.
func NewGateFromPasswords(realm string, passwords map[string]string, cost int) (*Gate, error) {
	users := make(map[string]string, len(passwords))
	for name, pw := range passwords {
		hash, err := HashPassword(pw, cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", name, err)
		}
		users[name] = hash
	}
	return NewGate(realm, users)
}

// HashPassword returns a bcrypt hash suitable for the auth.users config.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Realm returns the realm used in challenges.
func (g *Gate) Realm() string {
	return g.realm
}

// Challenge returns the WWW-Authenticate header value.
func (g *Gate) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", g.realm)
}

// Authenticate reports whether header carries valid Basic credentials and
// returns the username on success. Every failure mode is reported the same way.
func (g *Gate) Authenticate(header string) (string, bool) {
	username, password, ok := parseBasic(header)
	if !ok {
		return "", false
	}

	hash, known := g.hashes[username]
	if !known {
		_ = bcrypt.CompareHashAndPassword(g.dummy, []byte(password))
		return "", false
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return "", false
	}
	return username, true
}

func parseBasic(header string) (username, password string, ok bool) {
	scheme, encoded, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "basic") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}

	return strings.Cut(string(decoded), ":")
}
