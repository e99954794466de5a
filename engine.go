package goToken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/value"
	"github.com/google/uuid"
)

// Engine issues and verifies tokens.
//
// Engine methods are safe for concurrent use after Build. Hook registration
// through Hooks is meant to happen before the engine starts serving.
type Engine struct {
	config  Config
	manager *jwt.Manager
	hooks   *HookRegistry
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher
}

// Hooks returns the registry consulted on every issuance.
func (e *Engine) Hooks() *HookRegistry {
	return e.hooks
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Algorithm returns the configured signing algorithm.
func (e *Engine) Algorithm() string {
	return e.manager.Algorithm()
}

// CreateAccessToken signs an access token for identity.
//
// Headers are composed as structural defaults (alg, typ, kid), then the
// headers loader output, then the explicit WithHeaders map, later layers
// winning. The headers loader runs only when WithHeaders was not given a
// non-nil map. Every header and claim value must have a JSON representation;
// otherwise the error wraps ErrSerialization and no token is produced.
func (e *Engine) CreateAccessToken(ctx context.Context, identity any, opts ...IssueOption) (string, error) {
	return e.issue(ctx, KindAccess, identity, opts)
}

// CreateRefreshToken signs a refresh token for identity. It composes headers
// exactly as CreateAccessToken does. Refresh tokens never carry the fresh
// claim and carry user claims only with ClaimsInRefreshToken.
func (e *Engine) CreateRefreshToken(ctx context.Context, identity any, opts ...IssueOption) (string, error) {
	return e.issue(ctx, KindRefresh, identity, opts)
}

func (e *Engine) issue(ctx context.Context, kind Kind, identity any, opts []IssueOption) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	o := collectIssueOptions(opts)

	headers, err := e.composeHeaders(ctx, identity, o)
	if err != nil {
		return "", e.issueFailed(ctx, kind, "", err)
	}

	claims, jti, err := e.buildClaims(ctx, kind, identity, o)
	if err != nil {
		return "", e.issueFailed(ctx, kind, jti, err)
	}

	token, err := e.manager.Encode(headers, claims)
	if err != nil {
		return "", e.issueFailed(ctx, kind, jti, err)
	}

	if kind == KindAccess {
		e.metrics.Inc(MetricAccessIssued)
	} else {
		e.metrics.Inc(MetricRefreshIssued)
	}
	e.metrics.Observe(MetricIssueLatency, time.Since(start))

	label := identityLabel(claims[e.config.Claims.IdentityClaim])
	e.logger.LogAttrs(ctx, slog.LevelDebug, "Issued token",
		slog.String("token_kind", string(kind)),
		slog.String("jti", jti),
		slog.String("identity", label),
		slog.Int("header_count", len(headers)),
	)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventTokenIssued,
		Identity:  label,
		TokenKind: string(kind),
		JTI:       jti,
		Success:   true,
	})

	return token, nil
}

func (e *Engine) composeHeaders(ctx context.Context, identity any, o issueOptions) (map[string]any, error) {
	var loaded map[string]any
	if o.headers == nil {
		var err error
		loaded, err = e.hooks.Headers(ctx, identity)
		if err != nil {
			return nil, fmt.Errorf("%w: headers loader: %w", ErrHookFailed, err)
		}
	}
	return ComposeHeaders(e.manager.DefaultHeaders(), loaded, o.headers), nil
}

func (e *Engine) buildClaims(ctx context.Context, kind Kind, identity any, o issueOptions) (map[string]any, string, error) {
	cc := e.config.Claims
	now := e.clock.Now()
	jti := uuid.NewString()

	id, err := e.hooks.Identity(ctx, identity)
	if err != nil {
		return nil, jti, fmt.Errorf("%w: identity loader: %w", ErrHookFailed, err)
	}

	claims := map[string]any{
		"jti":            jti,
		"iat":            now.Unix(),
		"nbf":            now.Unix(),
		cc.IdentityClaim: id,
		cc.TypeClaim:     string(kind),
	}

	ttl := e.config.JWT.AccessTTL
	if kind == KindRefresh {
		ttl = e.config.JWT.RefreshTTL
	}
	switch {
	case o.noExpiry:
	case o.expiresSet:
		claims["exp"] = now.Add(o.expiresIn).Unix()
	case ttl > 0:
		claims["exp"] = now.Add(ttl).Unix()
	}

	if kind == KindAccess {
		if o.freshTimed {
			claims["fresh"] = now.Add(o.freshFor).Unix()
		} else {
			claims["fresh"] = o.fresh
		}
	}

	if kind == KindAccess || cc.ClaimsInRefreshToken {
		userClaims := o.userClaims
		if userClaims == nil {
			userClaims, err = e.hooks.UserClaims(ctx, identity)
			if err != nil {
				return nil, jti, fmt.Errorf("%w: user claims loader: %w", ErrHookFailed, err)
			}
		}
		if len(userClaims) > 0 {
			claims[cc.UserClaimsClaim] = userClaims
		}
	}

	if e.config.JWT.Issuer != "" {
		claims["iss"] = e.config.JWT.Issuer
	}
	switch aud := e.config.JWT.Audience; len(aud) {
	case 0:
	case 1:
		claims["aud"] = aud[0]
	default:
		claims["aud"] = cloneStrings(aud)
	}

	return claims, jti, nil
}

func (e *Engine) issueFailed(ctx context.Context, kind Kind, jti string, err error) error {
	e.metrics.Inc(MetricIssueFailure)
	switch {
	case errors.Is(err, ErrSerialization):
		e.metrics.Inc(MetricIssueSerialization)
	case errors.Is(err, ErrHookFailed):
		e.metrics.Inc(MetricHookFailure)
	}

	e.logger.LogAttrs(ctx, slog.LevelWarn, "Token issuance failed",
		slog.String("token_kind", string(kind)),
		slog.String("error", err.Error()),
	)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventTokenIssueFailed,
		TokenKind: string(kind),
		JTI:       jti,
		Success:   false,
		Error:     err.Error(),
	})
	return err
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.clock.Now().UTC()
	}
	e.audit.Emit(ctx, event)
}

// MetricsSnapshot returns the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// identityLabel renders an identity for logs and audit events without JSON
// quoting plain strings.
func identityLabel(identity any) string {
	v, err := value.Of(identity)
	if err != nil {
		return ""
	}
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}
