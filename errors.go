package users

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside sanitized messages.
const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeSessionNotFound     = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError  = "SESSION_DECODE_ERROR"
	TextCodeInactiveAccount     = "INACTIVE_ACCOUNT"
	TextCodeNotEnoughPrivileges = "NOT_ENOUGH_PRIVILEGES"
	TextCodeEmailTaken          = "EMAIL_TAKEN"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeSelfDelete          = "SELF_DELETE_FORBIDDEN"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike; callers must never surface which of the two occurred.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrTokenExpired is returned when a token's validity window has passed.
var ErrTokenExpired = goerrors.New("authentication token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers bad encodings, bad signatures, and missing claims.
var ErrTokenMalformed = goerrors.New("authentication token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToFindSession is returned when a request carries no token at all.
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession is returned when a session token cannot be decoded.
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is returned when a token's subject no longer maps to a
// user, e.g. the account was deleted after the token was issued.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound)

// ErrInactiveAccount blocks deactivated accounts before any privilege check.
var ErrInactiveAccount = goerrors.New("inactive user account", goerrors.CategoryAuth).
	WithTextCode(TextCodeInactiveAccount)

// ErrNotEnoughPrivileges is the superuser gate failure.
var ErrNotEnoughPrivileges = goerrors.New("the user doesn't have enough privileges", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotEnoughPrivileges).
	WithCode(goerrors.CodeForbidden)

// ErrSelfDelete rejects superusers deleting their own account.
var ErrSelfDelete = goerrors.New("super users are not allowed to delete themselves", goerrors.CategoryAuthz).
	WithTextCode(TextCodeSelfDelete).
	WithCode(goerrors.CodeForbidden)

// ErrEmailTaken is returned when a unique email constraint would be violated.
var ErrEmailTaken = goerrors.New("a user with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// ErrorStatus maps a failure to the transport status the boundary should
// emit. It is the single translation point between the error taxonomy and
// HTTP status codes; handlers never pick status codes ad hoc.
func ErrorStatus(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return 500
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		// Login-time failures answer the credential form with a 400, token
		// failures are 401 challenges.
		switch richErr.TextCode {
		case TextCodeInvalidCreds, TextCodeInactiveAccount:
			return 400
		default:
			return 401
		}
	case goerrors.CategoryAuthz:
		return 403
	case goerrors.CategoryNotFound:
		return 404
	case goerrors.CategoryConflict:
		return 409
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return 400
	default:
		return 500
	}
}
