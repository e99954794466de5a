package goToken

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/value"
)

// Decode verifies raw and applies the decode policy.
//
// The checks run in this order and the first failure is returned: token
// structure, algorithm, signature, nbf, exp (as *ExpiredTokenError unless
// AllowExpired), issuer, audience, identity claim, ExpectKind, RequireFresh.
// A token without the type claim is treated as an access token.
func (e *Engine) Decode(ctx context.Context, raw string, opts ...DecodeOption) (*DecodedToken, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricDecodeLatency, time.Since(start)) }()

	o := collectDecodeOptions(opts)

	tok, err := e.manager.Decode(raw)
	expired := errors.Is(err, jwt.ErrExpiredToken)
	if err != nil && !expired {
		return nil, e.rejected(ctx, nil, err)
	}

	dt := e.newDecodedToken(tok)
	if expired && !o.allowExpired {
		return nil, e.rejected(ctx, dt, &ExpiredTokenError{Token: dt})
	}

	if err := e.checkPolicy(dt, o); err != nil {
		return nil, e.rejected(ctx, dt, err)
	}

	e.metrics.Inc(MetricDecodeSuccess)
	return dt, nil
}

// RawHeader decodes raw with the same verification and policy as Decode and
// returns its header mapping, exactly as signed.
func (e *Engine) RawHeader(ctx context.Context, raw string, opts ...DecodeOption) (value.Map, error) {
	dt, err := e.Decode(ctx, raw, opts...)
	if err != nil {
		return nil, err
	}
	return dt.Header.Clone(), nil
}

func (e *Engine) newDecodedToken(tok *jwt.Token) *DecodedToken {
	cc := e.config.Claims
	dt := &DecodedToken{
		Raw:        tok.Raw,
		Header:     tok.Header,
		Claims:     tok.Claims,
		Kind:       KindAccess,
		Identity:   tok.Claims[cc.IdentityClaim],
		UserClaims: value.Map{},
	}

	if kind, ok := tok.Claims[cc.TypeClaim].AsString(); ok {
		dt.Kind = Kind(kind)
	}
	if uc, ok := tok.Claims[cc.UserClaimsClaim].AsMap(); ok {
		dt.UserClaims = uc
	}
	dt.JTI, _ = tok.Claims["jti"].AsString()
	dt.IssuedAt = unixClaim(tok.Claims["iat"])
	dt.ExpiresAt = unixClaim(tok.Claims["exp"])
	dt.Fresh = isFresh(tok.Claims["fresh"], e.clock.Now())

	return dt
}

func (e *Engine) checkPolicy(dt *DecodedToken, o decodeOptions) error {
	if want := e.config.JWT.DecodeIssuer; want != "" {
		iss, present := dt.Claims["iss"]
		if !present {
			return &ClaimError{Claim: "iss", Missing: true, Err: ErrInvalidIssuer}
		}
		if s, _ := iss.AsString(); s != want {
			return &ClaimError{Claim: "iss", Err: ErrInvalidIssuer}
		}
	}

	if want := e.config.JWT.DecodeAudience; len(want) > 0 {
		aud, present := dt.Claims["aud"]
		if !present {
			return &ClaimError{Claim: "aud", Missing: true, Err: ErrInvalidAudience}
		}
		if !audienceMatches(aud, want) {
			return &ClaimError{Claim: "aud", Err: ErrInvalidAudience}
		}
	}

	identityClaim := e.config.Claims.IdentityClaim
	if _, present := dt.Claims[identityClaim]; !present {
		return &ClaimError{Claim: identityClaim, Missing: true, Err: ErrMissingClaim}
	}

	if o.kind != "" && dt.Kind != o.kind {
		return &WrongTokenTypeError{Expected: o.kind, Actual: dt.Kind}
	}

	if o.requireFresh && !dt.Fresh {
		return ErrFreshTokenRequired
	}

	return nil
}

func (e *Engine) rejected(ctx context.Context, dt *DecodedToken, err error) error {
	e.metrics.Inc(rejectionMetric(err))

	attrs := []slog.Attr{slog.String("error", err.Error())}
	event := AuditEvent{
		EventType: auditEventTokenRejected,
		Success:   false,
		Error:     err.Error(),
	}
	if dt != nil {
		event.Identity = identityLabel(dt.Identity.Interface())
		event.TokenKind = string(dt.Kind)
		event.JTI = dt.JTI
		attrs = append(attrs, slog.String("jti", dt.JTI))
	}

	e.logger.LogAttrs(ctx, slog.LevelWarn, "Rejected token", attrs...)
	e.emitAudit(ctx, event)
	return err
}

func rejectionMetric(err error) MetricID {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return MetricDecodeMalformed
	case errors.Is(err, ErrAlgorithmNotAllowed):
		return MetricDecodeAlgorithmRejected
	case errors.Is(err, ErrInvalidSignature):
		return MetricDecodeInvalidSignature
	case errors.Is(err, ErrExpiredToken):
		return MetricDecodeExpired
	case errors.Is(err, ErrTokenNotYetValid):
		return MetricDecodeNotYetValid
	case errors.Is(err, ErrWrongTokenType):
		return MetricDecodeWrongType
	case errors.Is(err, ErrFreshTokenRequired):
		return MetricDecodeFreshRequired
	default:
		return MetricDecodeClaimRejected
	}
}

// audienceMatches accepts a string or a list of strings and succeeds when any
// entry is one of want.
func audienceMatches(aud value.Value, want []string) bool {
	var got []string
	if s, ok := aud.AsString(); ok {
		got = []string{s}
	} else if list, ok := aud.AsList(); ok {
		for _, item := range list {
			if s, ok := item.AsString(); ok {
				got = append(got, s)
			}
		}
	}
	for _, g := range got {
		for _, w := range want {
			if g == w {
				return true
			}
		}
	}
	return false
}

// isFresh interprets the fresh claim: true, or a unix deadline not yet passed.
func isFresh(claim value.Value, now time.Time) bool {
	if b, ok := claim.AsBool(); ok {
		return b
	}
	if deadline, ok := claim.AsFloat64(); ok {
		return float64(now.Unix()) <= deadline
	}
	return false
}

func unixClaim(claim value.Value) time.Time {
	secs, ok := claim.AsFloat64()
	if !ok {
		return time.Time{}
	}
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*float64(time.Second)))
}
