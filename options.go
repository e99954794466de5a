package goToken

import "time"

// IssueOption customizes a single CreateAccessToken or CreateRefreshToken call.
type IssueOption func(*issueOptions)

type issueOptions struct {
	headers    map[string]any
	userClaims map[string]any

	fresh      bool
	freshFor   time.Duration
	freshTimed bool

	expiresIn  time.Duration
	expiresSet bool
	noExpiry   bool
}

// WithHeaders supplies explicit headers for the token. They take precedence
// over the structural defaults and over the headers loader. When a non-nil map
// is given (even an empty one) the headers loader is not invoked.
func WithHeaders(headers map[string]any) IssueOption {
	return func(o *issueOptions) {
		o.headers = headers
	}
}

// WithUserClaims supplies the user claims object directly. A non-nil map
// replaces the user claims loader output entirely.
func WithUserClaims(claims map[string]any) IssueOption {
	return func(o *issueOptions) {
		o.userClaims = claims
	}
}

// Fresh marks an access token as fresh (or explicitly not fresh).
// It has no effect on refresh tokens.
func Fresh(fresh bool) IssueOption {
	return func(o *issueOptions) {
		o.fresh = fresh
		o.freshTimed = false
	}
}

// FreshFor marks an access token as fresh until now+d. A negative d produces a
// token whose freshness has already lapsed.
func FreshFor(d time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.freshFor = d
		o.freshTimed = true
	}
}

// ExpiresIn overrides the configured TTL for this token. Negative values
// produce an already expired token.
func ExpiresIn(d time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.expiresIn = d
		o.expiresSet = true
		o.noExpiry = false
	}
}

// NoExpiry omits the exp claim.
func NoExpiry() IssueOption {
	return func(o *issueOptions) {
		o.noExpiry = true
		o.expiresSet = false
	}
}

// DecodeOption adjusts the policy applied by Decode.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	kind         Kind
	requireFresh bool
	allowExpired bool
}

// ExpectKind rejects tokens whose type claim is not k.
func ExpectKind(k Kind) DecodeOption {
	return func(o *decodeOptions) {
		o.kind = k
	}
}

// RequireFresh rejects tokens that are not fresh. Refresh tokens are never
// fresh.
func RequireFresh() DecodeOption {
	return func(o *decodeOptions) {
		o.requireFresh = true
	}
}

// AllowExpired returns expired tokens instead of failing with
// *ExpiredTokenError. The remaining policy checks still apply.
func AllowExpired() DecodeOption {
	return func(o *decodeOptions) {
		o.allowExpired = true
	}
}

func collectIssueOptions(opts []IssueOption) issueOptions {
	var o issueOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func collectDecodeOptions(opts []DecodeOption) decodeOptions {
	var o decodeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
