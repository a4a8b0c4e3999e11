package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akhbarkom/go-auth"
	"github.com/goliatone/go-repository-bun"
)

// ExternalAuthenticator orchestrates provider sign-in flows. Resolution runs
// in a fixed order: existing linkage, then email attach, then account
// creation. A provider assertion can never mint an admin; new accounts start
// as plain users and a promoted account keeps whatever role the store holds.
type ExternalAuthenticator struct {
	providers    map[string]Provider
	stateManager StateManager
	users        auth.Users
	linked       auth.LinkedIdentities
	tokenService auth.TokenService
	logger       auth.Logger
	config       AuthConfig
}

// AuthConfig configures the external authenticator.
type AuthConfig struct {
	DefaultRedirectURL   string
	StateEncryptionKey   []byte
	StateHMACKey         []byte
	StateTTL             time.Duration
	AllowSignup          bool
	RequireEmailVerified bool
}

// AuthOption configures the external authenticator.
type AuthOption func(*ExternalAuthenticator)

// NewExternalAuthenticator creates the provider sign-in orchestrator.
func NewExternalAuthenticator(
	users auth.Users,
	linked auth.LinkedIdentities,
	tokenService auth.TokenService,
	config AuthConfig,
	opts ...AuthOption,
) *ExternalAuthenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	ea := &ExternalAuthenticator{
		providers:    make(map[string]Provider),
		users:        users,
		linked:       linked,
		tokenService: tokenService,
		config:       cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ea)
		}
	}

	if ea.stateManager == nil {
		ea.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	if ea.logger == nil {
		ea.logger = auth.NewDefaultLogger()
	}

	return ea
}

// WithProvider registers a provider.
func WithProvider(provider Provider) AuthOption {
	return func(ea *ExternalAuthenticator) {
		if provider == nil {
			return
		}
		ea.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) AuthOption {
	return func(ea *ExternalAuthenticator) {
		ea.stateManager = sm
	}
}

// WithLogger sets the logger.
func WithLogger(l auth.Logger) AuthOption {
	return func(ea *ExternalAuthenticator) {
		ea.logger = l
	}
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult contains the result of a completed provider sign-in.
type AuthResult struct {
	User        auth.Identity
	Token       string
	IsNewUser   bool
	Linked      bool
	Provider    string
	Profile     *Profile
	RedirectURL string
}

// BeginAuth starts the authorization code flow for a provider.
func (ea *ExternalAuthenticator) BeginAuth(ctx context.Context, providerName, redirectURL string) (*AuthRedirect, error) {
	provider, ok := ea.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if redirectURL == "" {
		redirectURL = ea.config.DefaultRedirectURL
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := computeCodeChallenge(codeVerifier)

	state := &OAuthState{
		Nonce:        generateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		RedirectURL:  redirectURL,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(ea.config.StateTTL).Unix(),
	}

	stateToken, err := ea.stateManager.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(codeChallenge, "S256"))

	return &AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the flow after the provider callback: it verifies
// the state, exchanges the code, validates the assertion, resolves the
// principal, records the linkage, and issues a session token.
func (ea *ExternalAuthenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken string) (*AuthResult, error) {
	state, err := ea.stateManager.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	provider, ok := ea.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrProfileFetchFailed, providerName, "user_info", err)
	}
	profile.Provider = providerName

	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if ea.config.RequireEmailVerified && !profile.EmailVerified {
		return nil, ErrEmailUnverified
	}

	user, isNew, wasLinked, err := ea.resolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	if _, err := ea.linked.Link(ctx, &auth.LinkedIdentity{
		UserID:    user.ID,
		Provider:  providerName,
		SubjectID: profile.SubjectID,
		Email:     auth.NormalizeEmail(profile.Email),
		Name:      profile.Name,
	}); err != nil {
		return nil, fmt.Errorf("failed to record provider linkage: %w", err)
	}

	if err := ea.users.TrackSuccessfulLogin(ctx, user); err != nil {
		ea.logger.Warn("provider login tracking failed", "email", user.Email, "error", err)
	}

	identity := auth.NewIdentityFromUser(user)

	jwtToken, err := ea.tokenService.Generate(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	ea.logger.Info(
		"provider sign-in completed",
		"provider", providerName,
		"email", user.Email,
		"is_new_user", isNew,
	)

	return &AuthResult{
		User:        identity,
		Token:       jwtToken,
		IsNewUser:   isNew,
		Linked:      wasLinked,
		Provider:    providerName,
		Profile:     profile,
		RedirectURL: state.RedirectURL,
	}, nil
}

// resolveUser finds or creates the principal behind a validated assertion.
func (ea *ExternalAuthenticator) resolveUser(ctx context.Context, profile *Profile) (user *auth.User, isNew, linked bool, err error) {
	existing, err := ea.linked.GetByProviderSubject(ctx, profile.Provider, profile.SubjectID)
	if err == nil && existing != nil {
		user, err := ea.users.GetByIdentifier(ctx, existing.UserID.String())
		if err != nil {
			return nil, false, false, fmt.Errorf("failed to load linked principal: %w", err)
		}
		return user, false, false, nil
	}
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, false, false, auth.WrapStoreError(err)
	}

	email := auth.NormalizeEmail(profile.Email)

	user, err = ea.users.GetByEmail(ctx, email)
	if err == nil && user != nil {
		// same email, new provider: attach to the existing account. The
		// role column is untouched.
		return user, false, true, nil
	}
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, false, false, auth.WrapStoreError(err)
	}

	if !ea.config.AllowSignup {
		return nil, false, false, ErrSignupNotAllowed
	}

	created, err := ea.users.Create(ctx, &auth.User{
		Email: email,
		Name:  profile.Name,
		Role:  auth.RoleUser,
	})
	if err != nil {
		return nil, false, false, auth.WrapStoreError(err)
	}

	return created, true, false, nil
}

// ListProviders returns all registered providers.
func (ea *ExternalAuthenticator) ListProviders() []ProviderInfo {
	var providers []ProviderInfo
	for name, p := range ea.providers {
		providers = append(providers, ProviderInfo{
			Name:    name,
			AuthURL: p.AuthCodeURL(""),
		})
	}
	return providers
}

// ProviderInfo describes an available provider.
type ProviderInfo struct {
	Name    string
	AuthURL string
}
