package goToken

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines a public type used by goToken APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT     JWTConfig     `koanf:"jwt"`
	Claims  ClaimsConfig  `koanf:"claims"`
	Audit   AuditConfig   `koanf:"audit"`
	Metrics MetricsConfig `koanf:"metrics"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls signing, lifetimes and the decode-side registered claim
// checks.
type JWTConfig struct {
	// Algorithm is a JWS algorithm name. HS256 by default.
	Algorithm string `koanf:"algorithm"`
	// SecretKey signs and verifies HMAC tokens.
	SecretKey []byte `koanf:"secret_key"`
	// PrivateKey and PublicKey are PEM encoded keys for the asymmetric
	// algorithms. PublicKey alone configures a verify-only engine.
	PrivateKey []byte `koanf:"private_key"`
	PublicKey  []byte `koanf:"public_key"`
	// KeyID is written to the kid header when set.
	KeyID string `koanf:"key_id"`
	// HeaderType is the typ header. "JWT" by default.
	HeaderType string `koanf:"header_type"`

	// AccessTTL and RefreshTTL set exp. Zero omits the exp claim.
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
	Leeway     time.Duration `koanf:"leeway"`

	// Issuer and Audience are written to iss and aud when set.
	Issuer   string   `koanf:"issuer"`
	Audience []string `koanf:"audience"`
	// DecodeIssuer and DecodeAudience, when set, are required on decode.
	DecodeIssuer   string   `koanf:"decode_issuer"`
	DecodeAudience []string `koanf:"decode_audience"`
}

/*
====================================
CLAIMS CONFIG
====================================
*/

// ClaimsConfig names the claims the engine writes and reads.
type ClaimsConfig struct {
	IdentityClaim   string `koanf:"identity_claim"`
	TypeClaim       string `koanf:"type_claim"`
	UserClaimsClaim string `koanf:"user_claims_claim"`
	// ClaimsInRefreshToken also writes user claims into refresh tokens.
	ClaimsInRefreshToken bool `koanf:"claims_in_refresh_token"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by goToken APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

// MetricsConfig defines a public type used by goToken APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"enable_latency_histograms"`
}

var supportedAlgorithms = map[string]bool{
	"HS256": true, "HS384": true, "HS512": true,
	"RS256": true, "RS384": true, "RS512": true,
	"PS256": true, "PS384": true, "PS512": true,
	"ES256": true, "ES384": true, "ES512": true,
	"EdDSA": true,
}

// claims the engine always manages itself; configured claim names may not
// collide with them.
var registeredClaims = []string{"jti", "iat", "nbf", "exp", "iss", "aud", "fresh"}

// DefaultConfig returns the baseline configuration. A secret or key must still
// be supplied before Build succeeds.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Algorithm:  "HS256",
			HeaderType: "JWT",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Claims: ClaimsConfig{
			IdentityClaim:   "identity",
			TypeClaim:       "type",
			UserClaimsClaim: "user_claims",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SecretKey = cloneBytes(cfg.JWT.SecretKey)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.JWT.Audience = cloneStrings(cfg.JWT.Audience)
	out.JWT.DecodeAudience = cloneStrings(cfg.JWT.DecodeAudience)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// IsHMAC reports whether the configured algorithm uses a shared secret.
func (c JWTConfig) IsHMAC() bool {
	return strings.HasPrefix(c.Algorithm, "HS")
}

// Validate checks c and returns the first problem found.
func (c *Config) Validate() error {
	// JWT
	if !supportedAlgorithms[c.JWT.Algorithm] {
		return fmt.Errorf("unsupported JWT algorithm %q", c.JWT.Algorithm)
	}
	if c.JWT.IsHMAC() {
		if len(c.JWT.SecretKey) == 0 {
			return fmt.Errorf("%s requires SecretKey", c.JWT.Algorithm)
		}
	} else if len(c.JWT.PrivateKey) == 0 && len(c.JWT.PublicKey) == 0 {
		return fmt.Errorf("%s requires PrivateKey or PublicKey", c.JWT.Algorithm)
	}
	if strings.TrimSpace(c.JWT.HeaderType) == "" {
		return errors.New("JWT HeaderType must not be empty")
	}
	if c.JWT.AccessTTL < 0 {
		return errors.New("JWT AccessTTL must be >= 0")
	}
	if c.JWT.RefreshTTL < 0 {
		return errors.New("JWT RefreshTTL must be >= 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 5*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 5m")
	}
	for _, aud := range c.JWT.Audience {
		if strings.TrimSpace(aud) == "" {
			return errors.New("JWT Audience entries must not be blank")
		}
	}
	for _, aud := range c.JWT.DecodeAudience {
		if strings.TrimSpace(aud) == "" {
			return errors.New("JWT DecodeAudience entries must not be blank")
		}
	}

	// Claims
	names := []struct{ field, name string }{
		{"IdentityClaim", c.Claims.IdentityClaim},
		{"TypeClaim", c.Claims.TypeClaim},
		{"UserClaimsClaim", c.Claims.UserClaimsClaim},
	}
	seen := make(map[string]string, len(names))
	for _, n := range names {
		if strings.TrimSpace(n.name) == "" {
			return fmt.Errorf("Claims %s must not be empty", n.field)
		}
		for _, reserved := range registeredClaims {
			if n.name == reserved {
				return fmt.Errorf("Claims %s must not use registered claim %q", n.field, n.name)
			}
		}
		if other, ok := seen[n.name]; ok {
			return fmt.Errorf("Claims %s and %s both use %q", other, n.field, n.name)
		}
		seen[n.name] = n.field
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

// LintWarning is a configuration that is valid but probably unintended.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports risky but valid settings. It never fails; Validate is the gate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if c.JWT.IsHMAC() && len(c.JWT.SecretKey) > 0 && len(c.JWT.SecretKey) < 32 {
		add("secret_short", "HMAC SecretKey is shorter than 32 bytes")
	}
	if c.JWT.Leeway > time.Minute {
		add("leeway_large", "JWT Leeway above 1m widens the replay window")
	}
	if c.JWT.AccessTTL == 0 {
		add("access_ttl_disabled", "access tokens are issued without exp")
	} else if c.JWT.AccessTTL > time.Hour {
		add("access_ttl_long", "JWT AccessTTL above 1h")
	}
	if c.JWT.RefreshTTL == 0 {
		add("refresh_ttl_disabled", "refresh tokens are issued without exp")
	}
	if len(c.JWT.Audience) > 0 && len(c.JWT.DecodeAudience) == 0 {
		add("audience_not_checked", "tokens carry aud but DecodeAudience is not set")
	}
	if c.JWT.Issuer != "" && c.JWT.DecodeIssuer == "" {
		add("issuer_not_checked", "tokens carry iss but DecodeIssuer is not set")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_may_block", "audit emit blocks issuance when the buffer is full")
	}

	return ws
}
