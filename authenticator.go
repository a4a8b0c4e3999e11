package auth

import (
	"context"
	"reflect"
	"time"
)

// Auther combines the credential verifier and the session issuer/reader.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithTokenService overrides the token service, mostly for tests.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	s.tokenService = ts
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credential pair and issues a signed session token.
// The submitted password never reaches the log output.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	return s.login(ctx, email, password, 0)
}

// LoginWithTTL is Login with an explicit session duration for extended
// remember-me sessions.
func (s *Auther) LoginWithTTL(ctx context.Context, email, password string, ttl time.Duration) (string, error) {
	return s.login(ctx, email, password, ttl)
}

func (s *Auther) login(ctx context.Context, email, password string, ttl time.Duration) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "email", NormalizeEmail(email), "error", err)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrInvalidCredentials
	}

	token, err := s.tokenService.GenerateWithTTL(identity, ttl)
	if err != nil {
		s.logger.Error("Login token generation failed", "error", err)
		return "", err
	}

	return token, nil
}

// SessionFromToken validates and decodes a presented token.
func (s Auther) SessionFromToken(raw string) (AuthClaims, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}
	return claims, nil
}

// IdentityFromClaims re-reads the principal behind a decoded claim. Handlers
// that need fresh role information, rather than the role frozen in the
// token, go through here.
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	identity, err := s.provider.FindIdentityByEmail(ctx, claims.Email())
	if err != nil {
		s.logger.Error("IdentityFromClaims lookup failed", "error", err)
		return nil, err
	}

	return identity, nil
}

var _ Authenticator = (*Auther)(nil)
