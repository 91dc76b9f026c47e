package http

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CALLER IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMissingToken is returned when a transition arrives without a bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("bearer token expired")
)

// AuthConfig configures token verification.
type AuthConfig struct {
	PublicKey ed25519.PublicKey
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

// Authenticator verifies EdDSA bearer tokens. The token subject is the
// caller address handed to the ledger; the ledger itself decides what the
// caller may do.
type Authenticator struct {
	key      ed25519.PublicKey
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	if len(cfg.PublicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("auth: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(cfg.PublicKey))
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("auth: issuer and audience are required")
	}
	return &Authenticator{
		key:      cfg.PublicKey,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		now:      time.Now,
	}, nil
}

// Verify parses a compact token and returns its subject.
func (a *Authenticator) Verify(token string) (shared.Address, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
		jwt.WithTimeFunc(a.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	caller, err := shared.NewAddress(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	return caller, nil
}

// ParsePublicKey decodes a base64 (standard or URL alphabet) Ed25519 public key.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	raw, err := decodeKey(encoded)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// ParsePrivateKey decodes a base64 Ed25519 private key or 32-byte seed.
func ParsePrivateKey(encoded string) (ed25519.PrivateKey, error) {
	raw, err := decodeKey(encoded)
	if err != nil {
		return nil, err
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	}
	return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
}

func decodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(encoded); err == nil {
			return raw, nil
		}
	}
	return nil, errors.New("key is not valid base64")
}

// ══════════════════════════════════════════════════════════════════════════════
// TOKEN ISSUING
// ══════════════════════════════════════════════════════════════════════════════

// TokenSigner mints caller tokens for operators and tests.
type TokenSigner struct {
	key      ed25519.PrivateKey
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenSigner creates a TokenSigner.
func NewTokenSigner(key ed25519.PrivateKey, issuer, audience string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenSigner{key: key, issuer: issuer, audience: audience, ttl: ttl, now: time.Now}
}

// Sign returns a compact token whose subject is caller.
func (s *TokenSigner) Sign(caller shared.Address) (string, error) {
	if !caller.IsValid() {
		return "", fmt.Errorf("sign token: invalid subject %q", caller)
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   caller.String(),
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// authMiddleware attaches the verified caller to the request context. Reads
// are public, so a request without a token passes through anonymously; a
// token that is present but invalid is rejected outright.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			writeJSONError(w, r, http.StatusUnauthorized, "invalid_authorization", "Authorization header must use the Bearer scheme")
			return
		}
		if s.deps.Auth == nil {
			writeJSONError(w, r, http.StatusUnauthorized, "auth_disabled", "Token verification is not configured")
			return
		}

		caller, err := s.deps.Auth.Verify(token)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, ErrTokenExpired) {
				code = "token_expired"
			}
			logger.FromContext(r.Context()).Debug("token rejected", logger.Err(err))
			writeJSONError(w, r, http.StatusUnauthorized, code, "Bearer token rejected")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyCaller, caller)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(logger.Caller(caller.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerFrom returns the verified caller, if any.
func callerFrom(ctx context.Context) (shared.Address, bool) {
	caller, ok := ctx.Value(contextKeyCaller).(shared.Address)
	return caller, ok && caller != ""
}

// requireCaller writes 401 and returns false when the request is anonymous.
func requireCaller(w http.ResponseWriter, r *http.Request) (shared.Address, bool) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeJSONError(w, r, http.StatusUnauthorized, "missing_token", "A bearer token is required")
		return "", false
	}
	return caller, true
}
