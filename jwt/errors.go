package jwt

import (
	"errors"
	"fmt"
)

var (
	// ErrSerialization is returned by Encode when a header or claim value has no
	// JSON representation. Nothing is signed when it is returned.
	ErrSerialization = errors.New("token value is not serializable")
	// ErrHeaderConflict is returned by Encode when a supplied "alg" header does
	// not match the configured algorithm.
	ErrHeaderConflict = errors.New("header conflicts with signing configuration")
	// ErrSigningKeyMissing is returned by Encode on a verify-only manager.
	ErrSigningKeyMissing = errors.New("signing key not configured")

	// ErrMalformedToken is returned when a token is not three decodable segments
	// holding JSON objects.
	ErrMalformedToken = errors.New("malformed token")
	// ErrAlgorithmNotAllowed is returned when the token's alg header differs
	// from the configured algorithm.
	ErrAlgorithmNotAllowed = errors.New("the specified alg value is not allowed")
	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = errors.New("signature verification failed")
	// ErrExpiredToken is returned when the exp claim lies in the past. Decode
	// still returns the token alongside it.
	ErrExpiredToken = errors.New("token has expired")
	// ErrTokenNotYetValid is returned when the nbf claim lies in the future.
	ErrTokenNotYetValid = errors.New("token is not valid yet")
)

// MalformedError describes why a token failed the structural checks. It
// unwraps to ErrMalformedToken.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed token: " + e.Reason
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedToken
}

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}
