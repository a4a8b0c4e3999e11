package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is the environment-supplied auth configuration. The signing
// secret has no default on purpose: starting without one is a fatal
// condition, not something to paper over at runtime.
type EnvConfig struct {
	SigningKey       string        `env:"AUTH_SIGNING_SECRET"`
	TokenTTL         time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
	ExtendedTokenTTL time.Duration `env:"AUTH_EXTENDED_TOKEN_TTL" envDefault:"720h"`
	Issuer           string        `env:"AUTH_ISSUER" envDefault:"akhbarkom"`
	Audience         []string      `env:"AUTH_AUDIENCE" envSeparator:","`
	ContextKey       string        `env:"AUTH_CONTEXT_KEY" envDefault:"session"`
	TokenLookup      string        `env:"AUTH_TOKEN_LOOKUP" envDefault:"cookie:session,header:Authorization"`
	AuthScheme       string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	SignInRoute      string        `env:"AUTH_SIGNIN_ROUTE" envDefault:"/login"`
	RejectedRouteKey string        `env:"AUTH_REJECTED_ROUTE_KEY" envDefault:"rejected_route"`
	RejectedRouteDef string        `env:"AUTH_REJECTED_ROUTE_DEFAULT" envDefault:"/"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	RedisAddr     string `env:"AUTH_REDIS_ADDR"`
	RedisPassword string `env:"AUTH_REDIS_PASSWORD"`
	RedisDB       int    `env:"AUTH_REDIS_DB" envDefault:"0"`
}

// NewConfigFromEnv parses and validates configuration from the environment.
func NewConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse auth environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces startup invariants.
func (c *EnvConfig) Validate() error {
	if c.SigningKey == "" {
		return errors.New("AUTH_SIGNING_SECRET is required", errors.CategoryBadInput).
			WithTextCode("MISSING_SIGNING_SECRET")
	}

	if c.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive", errors.CategoryBadInput)
	}

	return nil
}

func (c *EnvConfig) GetSigningKey() string      { return c.SigningKey }
func (c *EnvConfig) GetTokenTTL() time.Duration { return c.TokenTTL }
func (c *EnvConfig) GetExtendedTokenTTL() time.Duration {
	if c.ExtendedTokenTTL <= 0 {
		return c.TokenTTL
	}
	return c.ExtendedTokenTTL
}
func (c *EnvConfig) GetContextKey() string           { return c.ContextKey }
func (c *EnvConfig) GetTokenLookup() string          { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string           { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string               { return c.Issuer }
func (c *EnvConfig) GetAudience() []string           { return c.Audience }
func (c *EnvConfig) GetSignInRoute() string          { return c.SignInRoute }
func (c *EnvConfig) GetRejectedRouteKey() string     { return c.RejectedRouteKey }
func (c *EnvConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDef }

var _ Config = (*EnvConfig)(nil)
