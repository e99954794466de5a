package goToken

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goToken/jwt"
)

var (
	// ErrSerialization is returned when a header or claim value has no JSON
	// representation. Nothing is signed.
	ErrSerialization = jwt.ErrSerialization
	// ErrHeaderConflict is returned when an explicit or loaded "alg" header
	// disagrees with the configured algorithm.
	ErrHeaderConflict = jwt.ErrHeaderConflict
	// ErrSigningKeyMissing is returned when issuing from a verify-only engine.
	ErrSigningKeyMissing = jwt.ErrSigningKeyMissing
	// ErrMalformedToken is returned for tokens that are not three decodable
	// segments. The concrete error is a *jwt.MalformedError.
	ErrMalformedToken = jwt.ErrMalformedToken
	// ErrAlgorithmNotAllowed is returned when the token was signed with a
	// different algorithm than the engine is configured for.
	ErrAlgorithmNotAllowed = jwt.ErrAlgorithmNotAllowed
	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = jwt.ErrInvalidSignature
	// ErrExpiredToken is wrapped by *ExpiredTokenError.
	ErrExpiredToken = jwt.ErrExpiredToken
	// ErrTokenNotYetValid is returned when nbf lies in the future.
	ErrTokenNotYetValid = jwt.ErrTokenNotYetValid

	// ErrWrongTokenType is wrapped by *WrongTokenTypeError.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrMissingClaim is returned (inside a *ClaimError) when the identity
	// claim is absent.
	ErrMissingClaim = errors.New("missing claim")
	// ErrInvalidIssuer is returned (inside a *ClaimError) when a decode issuer
	// is configured and the iss claim is missing or different.
	ErrInvalidIssuer = errors.New("invalid issuer")
	// ErrInvalidAudience is returned (inside a *ClaimError) when a decode
	// audience is configured and the aud claim is missing or does not match.
	ErrInvalidAudience = errors.New("invalid audience")
	// ErrFreshTokenRequired is returned when RequireFresh is set and the token
	// is not fresh.
	ErrFreshTokenRequired = errors.New("fresh token required")
	// ErrHookFailed wraps errors returned by registered loaders.
	ErrHookFailed = errors.New("token hook failed")
)

// ExpiredTokenError is returned by Decode for a verified token whose exp claim
// lies in the past. Token holds the decoded contents so handlers can inspect
// who the token belonged to.
type ExpiredTokenError struct {
	Token *DecodedToken
}

func (e *ExpiredTokenError) Error() string {
	return "token has expired"
}

func (e *ExpiredTokenError) Unwrap() error {
	return ErrExpiredToken
}

// WrongTokenTypeError is returned when a token of one kind is presented where
// another is expected.
type WrongTokenTypeError struct {
	Expected Kind
	Actual   Kind
}

func (e *WrongTokenTypeError) Error() string {
	return fmt.Sprintf("only %s tokens are allowed", e.Expected)
}

func (e *WrongTokenTypeError) Unwrap() error {
	return ErrWrongTokenType
}

// ClaimError reports a claim that failed the decode policy. Missing is set
// when the claim was absent rather than wrong.
type ClaimError struct {
	Claim   string
	Missing bool
	Err     error
}

func (e *ClaimError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingClaim):
		return "missing claim: " + e.Claim
	case e.Missing:
		return fmt.Sprintf("token is missing the %q claim", e.Claim)
	default:
		return e.Err.Error()
	}
}

func (e *ClaimError) Unwrap() error {
	return e.Err
}
