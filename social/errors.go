package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound = "PROVIDER_NOT_FOUND"
	TextCodeStateInvalid     = "STATE_INVALID"
	TextCodeStateExpired     = "STATE_EXPIRED"
	TextCodeExchangeFailed   = "CODE_EXCHANGE_FAILED"
	TextCodeAssertionInvalid = "PROVIDER_ASSERTION_INVALID"
	TextCodeEmailUnverified  = "EMAIL_UNVERIFIED"
	TextCodeLastCredential   = "LAST_CREDENTIAL"
	TextCodeProfileFetchFail = "PROFILE_FETCH_FAILED"
	TextCodeSignupNotAllowed = "SIGNUP_NOT_ALLOWED"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("identity provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is missing or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeStateInvalid).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state is past its TTL.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrExchangeFailed is returned when the code exchange with the provider fails.
var ErrExchangeFailed = errors.New("authorization code exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeExchangeFailed).
	WithCode(errors.CodeUnauthorized)

// ErrProfileFetchFailed is returned when fetching the provider profile fails.
var ErrProfileFetchFailed = errors.New("failed to fetch provider profile", errors.CategoryAuth).
	WithTextCode(TextCodeProfileFetchFail).
	WithCode(errors.CodeUnauthorized)

// ErrAssertionInvalid is returned when a provider assertion is missing the
// stable subject identifier or the email. Nothing downstream can key a
// principal without both.
var ErrAssertionInvalid = errors.New("provider assertion is incomplete", errors.CategoryAuth).
	WithTextCode(TextCodeAssertionInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrEmailUnverified is returned when the provider reports an unverified email.
var ErrEmailUnverified = errors.New("provider email is not verified", errors.CategoryAuth).
	WithTextCode(TextCodeEmailUnverified).
	WithCode(errors.CodeForbidden)

// ErrSignupNotAllowed is returned when sign-in would create an account and
// signup is disabled.
var ErrSignupNotAllowed = errors.New("signup via provider not allowed", errors.CategoryAuth).
	WithTextCode(TextCodeSignupNotAllowed).
	WithCode(errors.CodeForbidden)

// ErrLastCredential is returned when unlinking would leave the account with
// no way to authenticate.
var ErrLastCredential = errors.New("cannot remove the last sign-in method", errors.CategoryValidation).
	WithTextCode(TextCodeLastCredential).
	WithCode(errors.CodeBadRequest)
