// Package config loads a goToken.Config from a YAML file, GOTOKEN_ environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	goToken "github.com/MrEthical07/goToken"
)

// Config is the on-disk shape of the engine configuration. Durations are Go
// duration strings and key material is referenced by path so the same struct
// can be driven from a file, the environment or flags.
type Config struct {
	JWT     JWTConfig     `koanf:"jwt"`
	Claims  ClaimsConfig  `koanf:"claims"`
	Audit   AuditConfig   `koanf:"audit"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type JWTConfig struct {
	Algorithm      string `koanf:"algorithm" usage:"JWS signing algorithm (HS256, RS256, ES256, EdDSA, ...)"`
	SecretKey      string `koanf:"secret_key" usage:"HMAC secret"`
	SecretFile     string `koanf:"secret_file" usage:"path to a file holding the HMAC secret"`
	PrivateKeyFile string `koanf:"private_key_file" usage:"path to a PEM private key"`
	PublicKeyFile  string `koanf:"public_key_file" usage:"path to a PEM public key"`
	KeyID          string `koanf:"key_id" usage:"kid header written on every token"`
	HeaderType     string `koanf:"header_type" usage:"typ header written on every token"`
	AccessTTL      string `koanf:"access_ttl" usage:"access token lifetime, 0 disables exp"`
	RefreshTTL     string `koanf:"refresh_ttl" usage:"refresh token lifetime, 0 disables exp"`
	Leeway         string `koanf:"leeway" usage:"clock skew allowed when checking exp and nbf"`
	Issuer         string `koanf:"issuer" usage:"iss claim written on issue"`
	Audience       string `koanf:"audience" usage:"comma separated aud claim written on issue"`
	DecodeIssuer   string `koanf:"decode_issuer" usage:"iss required on decode"`
	DecodeAudience string `koanf:"decode_audience" usage:"comma separated aud accepted on decode"`
}

type ClaimsConfig struct {
	IdentityClaim        string `koanf:"identity_claim" usage:"claim holding the token identity"`
	TypeClaim            string `koanf:"type_claim" usage:"claim holding access or refresh"`
	UserClaimsClaim      string `koanf:"user_claims_claim" usage:"claim holding application user claims"`
	ClaimsInRefreshToken bool   `koanf:"claims_in_refresh_token" usage:"also write user claims into refresh tokens"`
}

type AuditConfig struct {
	Enabled    bool `koanf:"enabled" usage:"emit token audit events"`
	BufferSize int  `koanf:"buffer_size" usage:"audit queue size"`
	DropIfFull bool `koanf:"drop_if_full" usage:"drop audit events instead of blocking when the queue is full"`
}

type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled" usage:"record issue and decode counters"`
	EnableLatencyHistograms bool `koanf:"enable_latency_histograms" usage:"record issue and decode latency histograms"`
}

// Default mirrors goToken.DefaultConfig.
func Default() Config {
	d := goToken.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			Algorithm:  d.JWT.Algorithm,
			HeaderType: d.JWT.HeaderType,
			AccessTTL:  d.JWT.AccessTTL.String(),
			RefreshTTL: d.JWT.RefreshTTL.String(),
			Leeway:     d.JWT.Leeway.String(),
		},
		Claims: ClaimsConfig{
			IdentityClaim:        d.Claims.IdentityClaim,
			TypeClaim:            d.Claims.TypeClaim,
			UserClaimsClaim:      d.Claims.UserClaimsClaim,
			ClaimsInRefreshToken: d.Claims.ClaimsInRefreshToken,
		},
		Audit: AuditConfig{
			Enabled:    d.Audit.Enabled,
			BufferSize: d.Audit.BufferSize,
			DropIfFull: d.Audit.DropIfFull,
		},
		Metrics: MetricsConfig{
			Enabled:                 d.Metrics.Enabled,
			EnableLatencyHistograms: d.Metrics.EnableLatencyHistograms,
		},
	}
}

// Engine converts c into a goToken.Config, reading any referenced key files.
// The result is not validated; Builder.Build does that.
func (c Config) Engine() (goToken.Config, error) {
	out := goToken.DefaultConfig()
	out.JWT.Algorithm = c.JWT.Algorithm
	out.JWT.KeyID = c.JWT.KeyID
	out.JWT.HeaderType = c.JWT.HeaderType
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = splitList(c.JWT.Audience)
	out.JWT.DecodeIssuer = c.JWT.DecodeIssuer
	out.JWT.DecodeAudience = splitList(c.JWT.DecodeAudience)

	var err error
	if out.JWT.AccessTTL, err = parseDuration("jwt.access_ttl", c.JWT.AccessTTL); err != nil {
		return goToken.Config{}, err
	}
	if out.JWT.RefreshTTL, err = parseDuration("jwt.refresh_ttl", c.JWT.RefreshTTL); err != nil {
		return goToken.Config{}, err
	}
	if out.JWT.Leeway, err = parseDuration("jwt.leeway", c.JWT.Leeway); err != nil {
		return goToken.Config{}, err
	}

	switch {
	case c.JWT.SecretKey != "" && c.JWT.SecretFile != "":
		return goToken.Config{}, fmt.Errorf("jwt.secret_key and jwt.secret_file are mutually exclusive")
	case c.JWT.SecretKey != "":
		out.JWT.SecretKey = []byte(c.JWT.SecretKey)
	case c.JWT.SecretFile != "":
		secret, err := readFile("jwt.secret_file", c.JWT.SecretFile)
		if err != nil {
			return goToken.Config{}, err
		}
		out.JWT.SecretKey = []byte(strings.TrimRight(string(secret), "\r\n"))
	}
	if c.JWT.PrivateKeyFile != "" {
		if out.JWT.PrivateKey, err = readFile("jwt.private_key_file", c.JWT.PrivateKeyFile); err != nil {
			return goToken.Config{}, err
		}
	}
	if c.JWT.PublicKeyFile != "" {
		if out.JWT.PublicKey, err = readFile("jwt.public_key_file", c.JWT.PublicKeyFile); err != nil {
			return goToken.Config{}, err
		}
	}

	out.Claims = goToken.ClaimsConfig{
		IdentityClaim:        c.Claims.IdentityClaim,
		TypeClaim:            c.Claims.TypeClaim,
		UserClaimsClaim:      c.Claims.UserClaimsClaim,
		ClaimsInRefreshToken: c.Claims.ClaimsInRefreshToken,
	}
	out.Audit = goToken.AuditConfig{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
		DropIfFull: c.Audit.DropIfFull,
	}
	out.Metrics = goToken.MetricsConfig{
		Enabled:                 c.Metrics.Enabled,
		EnableLatencyHistograms: c.Metrics.EnableLatencyHistograms,
	}
	return out, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func readFile(key, path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
