package goToken

import (
	"time"

	"github.com/MrEthical07/goToken/internal/clock"
	"github.com/MrEthical07/goToken/value"
)

// Kind distinguishes access tokens from refresh tokens. It is the value of the
// type claim.
type Kind string

const (
	// KindAccess marks a short-lived token presented to protected endpoints.
	KindAccess Kind = "access"
	// KindRefresh marks a long-lived token exchanged for new access tokens.
	KindRefresh Kind = "refresh"
)

// Clock is the time source used for iat/nbf/exp and freshness checks.
type Clock = clock.Clock

// DecodedToken is a verified token together with the claims the engine
// interprets.
type DecodedToken struct {
	Raw string
	// Header is exactly the header that was signed.
	Header value.Map
	// Claims is exactly the payload that was signed.
	Claims value.Map

	Kind       Kind
	Identity   value.Value
	UserClaims value.Map
	JTI        string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	// Fresh reports whether the token satisfied freshness at decode time.
	Fresh bool
}

// Expired reports whether the token had expired at now.
func (t *DecodedToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
