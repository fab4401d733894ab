package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/puzzle"
)

// Identity is what the identity provider reports about the current player.
type Identity struct {
	UserID          string `json:"user_id,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsLoading       bool   `json:"is_loading"`
}

// Anonymous is the resolved identity of a signed-out player.
var Anonymous = Identity{}

// PendingIdentity is the identity source before it has resolved.
var PendingIdentity = Identity{IsLoading: true}

// PersistenceID returns the user id if the player is signed in and the id
// is in persistence-layer format. An identity-provider id in the UserID
// field yields ok=false so callers skip the progress query.
func (i Identity) PersistenceID() (string, bool) {
	if !i.IsAuthenticated || i.IsLoading {
		return "", false
	}
	id, err := puzzle.ParseID(i.UserID)
	if err != nil {
		return "", false
	}
	return id, true
}

// IdentityReader resolves the current identity.
type IdentityReader interface {
	Identity(ctx context.Context) (Identity, error)
}

// TokenSource returns the raw session token, or "" when signed out.
type TokenSource func() (string, error)

// Claims are the session-token claims. Subject is the identity-provider id;
// UID, when present, is the persistence-layer id it maps to.
type Claims struct {
	UID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// TokenIdentity reads identity from an HS256 session token.
type TokenIdentity struct {
	source TokenSource
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenIdentity creates a reader that verifies tokens from source.
func NewTokenIdentity(source TokenSource, secret, issuer string) *TokenIdentity {
	return &TokenIdentity{source: source, secret: []byte(secret), issuer: issuer, now: time.Now}
}

// WithClock makes expiry checks use c instead of the wall clock.
func (t *TokenIdentity) WithClock(c day.Clock) *TokenIdentity {
	t.now = c.Now
	return t
}

// Identity parses and verifies the current token. A missing, expired or
// forged token resolves to Anonymous, with the verification error returned
// for logging.
func (t *TokenIdentity) Identity(ctx context.Context) (Identity, error) {
	raw, err := t.source()
	if err != nil {
		return Anonymous, fmt.Errorf("read session token: %w", err)
	}
	if raw == "" {
		return Anonymous, nil
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Anonymous, fmt.Errorf("verify session token: %w", err)
	}

	userID := claims.UID
	if userID == "" {
		userID = claims.Subject
	}
	return Identity{UserID: userID, IsAuthenticated: true}, nil
}

// IssueToken signs a session token. subject is the identity-provider id and
// uid the persistence-layer id; uid may be empty.
func IssueToken(secret, issuer, subject, uid string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("issue token: empty signing secret")
	}
	claims := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// StaticIdentity is an IdentityReader that always reports the same identity.
type StaticIdentity struct {
	ID  Identity
	Err error
}

// Identity returns the fixed identity.
func (s StaticIdentity) Identity(context.Context) (Identity, error) {
	return s.ID, s.Err
}
