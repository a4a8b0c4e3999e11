package auth

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to operators and API clients
const (
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeMalformedInput   = "MALFORMED_INPUT"
	TextCodeDuplicateAccount = "DUPLICATE_ACCOUNT"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodePartialGrant     = "PARTIAL_GRANT"
	TextCodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// ErrInvalidCredentials is the single failure returned for any unverifiable
// credential pair. Unknown email, passwordless account, and wrong password
// must stay indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedInput is returned when required fields are missing
var ErrMalformedInput = errors.New("missing required fields", errors.CategoryValidation).
	WithTextCode(TextCodeMalformedInput).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateAccount is returned when registration targets a taken email.
// Registration may reveal existence; login must not.
var ErrDuplicateAccount = errors.New("an account already exists for this email", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is a session token past its expiry
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is a session token that fails signature or shape checks
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrStoreUnavailable wraps unreachable-store failures; auth fails closed
var ErrStoreUnavailable = errors.New("identity store unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(errors.CodeInternal)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth)

// GrantStep identifies one leg of the multi-store admin grant sequence.
type GrantStep string

const (
	GrantStepEnsureUser  GrantStep = "ensure-user"
	GrantStepPromoteRole GrantStep = "promote-role"
	GrantStepAddEntry    GrantStep = "add-registry-entry"
)

// PartialGrantError reports an admin grant that failed after at least one
// store mutation succeeded. It carries the completed steps so an operator
// can finish or roll back by hand; it is never swallowed.
type PartialGrantError struct {
	Email     string
	Completed []GrantStep
	Failed    GrantStep
	Cause     error
}

func (e *PartialGrantError) Error() string {
	steps := make([]string, len(e.Completed))
	for i, s := range e.Completed {
		steps[i] = string(s)
	}
	return fmt.Sprintf(
		"admin grant for %s failed at %s (completed: %s): %v",
		e.Email, e.Failed, strings.Join(steps, ","), e.Cause,
	)
}

func (e *PartialGrantError) Unwrap() error {
	return e.Cause
}

// Rich returns the go-errors form with operator metadata attached.
func (e *PartialGrantError) Rich() *errors.Error {
	return errors.Wrap(e, errors.CategoryOperation, "admin grant partially applied").
		WithTextCode(TextCodePartialGrant).
		WithMetadata(map[string]any{
			"email":     e.Email,
			"completed": e.Completed,
			"failed":    e.Failed,
		})
}

// WrapStoreError folds low-level store failures into the taxonomy so raw
// storage errors never cross into the guard or HTTP layer.
func WrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
		WithTextCode(ErrStoreUnavailable.TextCode).
		WithCode(ErrStoreUnavailable.Code)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsInvalidCredentials reports whether err is the generic credential failure.
func IsInvalidCredentials(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeInvalidCreds
}
