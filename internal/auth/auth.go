package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrSessionExpired     = errors.New("session expired")
)

// DefaultSessionTTL is the lifetime of an admin session.
const DefaultSessionTTL = 12 * time.Hour

const issuer = "dealership-admin"

// Claims is the token payload. The session id travels as the JWT ID.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Options configures an Authenticator.
type Options struct {
	Username     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

// Authenticator checks admin credentials and manages sessions.
type Authenticator struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	store    SessionStore
	now      func() time.Time
}

// New creates an Authenticator backed by store.
func New(opts Options, store SessionStore) *Authenticator {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	return &Authenticator{
		username: opts.Username,
		hash:     []byte(opts.PasswordHash),
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		store:    store,
		now:      time.Now,
	}
}

// Login checks credentials and issues a session and its signed token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil || a.username == "" {
		return nil, "", ErrInvalidCredentials
	}

	now := a.now().UTC().Truncate(time.Second)
	s := &Session{
		ID:        uuid.New().String(),
		Username:  a.username,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}

	token, err := a.sign(s)
	if err != nil {
		return nil, "", err
	}
	if err := a.store.Put(ctx, s); err != nil {
		return nil, "", err
	}
	return s, token, nil
}

// Verify checks the token signature and expiry, then the server-side record.
func (a *Authenticator) Verify(ctx context.Context, token string) (*Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	s, err := a.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if s.Expired(a.now()) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Logout revokes a session.
func (a *Authenticator) Logout(ctx context.Context, sessionID string) error {
	return a.store.Delete(ctx, sessionID)
}

func (a *Authenticator) sign(s *Session) (string, error) {
	claims := Claims{
		Username: s.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Issuer:    issuer,
			Subject:   s.Username,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
