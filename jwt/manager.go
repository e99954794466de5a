package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goToken/value"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// Config defines how a Manager signs and verifies tokens.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	// Algorithm is a JWS algorithm name: HS256/384/512, RS256/384/512,
	// PS256/384/512, ES256/384/512 or EdDSA.
	Algorithm string
	// SecretKey is the shared secret for HMAC algorithms.
	SecretKey []byte
	// PrivateKey is a PEM encoded private key (or a raw 64 byte ed25519 key).
	// It may be empty for a verify-only manager.
	PrivateKey []byte
	// PublicKey is a PEM encoded public key (or a raw 32 byte ed25519 key).
	// When empty it is derived from PrivateKey.
	PublicKey []byte
	// KeyID is written to the kid header when set.
	KeyID string
	// HeaderType is written to the typ header. Defaults to "JWT".
	HeaderType string
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
	// Now overrides the verification clock.
	Now func() time.Time
}

// Token is a decoded token. Header and Claims are exactly the mappings that were
// signed.
type Token struct {
	Raw    string
	Header value.Map
	Claims value.Map
}

// Manager encodes and decodes signed tokens for one algorithm and key pair.
//
// Manager instances are safe for concurrent use.
type Manager struct {
	config    Config
	method    gjwt.SigningMethod
	signKey   any
	verifyKey any
}

// NewManager validates cfg and parses its keys.
func NewManager(cfg Config) (*Manager, error) {
	cfg.Algorithm = strings.TrimSpace(cfg.Algorithm)
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	if cfg.HeaderType == "" {
		cfg.HeaderType = "JWT"
	}
	if cfg.Leeway < 0 || cfg.Leeway > 5*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	method := gjwt.GetSigningMethod(cfg.Algorithm)
	if method == nil || method == gjwt.SigningMethodNone {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	m := &Manager{config: cfg, method: method}

	var err error
	switch method.(type) {
	case *gjwt.SigningMethodHMAC:
		if len(cfg.SecretKey) == 0 {
			return nil, fmt.Errorf("%s requires a secret key", cfg.Algorithm)
		}
		m.signKey = cfg.SecretKey
		m.verifyKey = cfg.SecretKey
	case *gjwt.SigningMethodRSA, *gjwt.SigningMethodRSAPSS:
		err = m.loadRSA()
	case *gjwt.SigningMethodECDSA:
		err = m.loadECDSA()
	case *gjwt.SigningMethodEd25519:
		err = m.loadEd25519()
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	if m.verifyKey == nil {
		return nil, fmt.Errorf("%s requires a public or private key", cfg.Algorithm)
	}

	return m, nil
}

// Algorithm returns the configured JWS algorithm name.
func (m *Manager) Algorithm() string {
	return m.method.Alg()
}

// CanSign reports whether the manager holds a signing key.
func (m *Manager) CanSign() bool {
	return m.signKey != nil
}

// DefaultHeaders returns the structural headers every token carries unless a
// caller overrides them: alg, typ and, when configured, kid.
func (m *Manager) DefaultHeaders() map[string]any {
	h := map[string]any{
		"alg": m.method.Alg(),
		"typ": m.config.HeaderType,
	}
	if m.config.KeyID != "" {
		h["kid"] = m.config.KeyID
	}
	return h
}

// Encode validates headers and claims and signs them.
//
// Every value in both mappings must have a JSON representation; otherwise
// Encode fails with ErrSerialization before anything is signed. If headers omit
// alg the configured algorithm is added; a different alg fails with
// ErrHeaderConflict.
func (m *Manager) Encode(headers, claims map[string]any) (string, error) {
	hdr, err := value.MapOf(headers)
	if err != nil {
		return "", fmt.Errorf("%w: header %w", ErrSerialization, err)
	}
	cl, err := value.MapOf(claims)
	if err != nil {
		return "", fmt.Errorf("%w: claims %w", ErrSerialization, err)
	}

	if alg, ok := hdr["alg"]; ok {
		if s, _ := alg.AsString(); s != m.method.Alg() {
			return "", fmt.Errorf("%w: alg header %s, configured %s", ErrHeaderConflict, alg, m.method.Alg())
		}
	} else {
		hdr["alg"] = value.String(m.method.Alg())
	}

	if m.signKey == nil {
		return "", ErrSigningKeyMissing
	}

	tok := &gjwt.Token{
		Header: make(map[string]any, len(hdr)),
		Claims: make(gjwt.MapClaims, len(cl)),
		Method: m.method,
	}
	for k, v := range hdr {
		tok.Header[k] = v
	}
	for k, v := range cl {
		tok.Claims.(gjwt.MapClaims)[k] = v
	}

	signed, err := tok.SignedString(m.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies raw and returns its header and claims.
//
// Checks run in order and the first failure wins: structure
// (ErrMalformedToken), algorithm (ErrAlgorithmNotAllowed), signature
// (ErrInvalidSignature), then exp/nbf (ErrExpiredToken, ErrTokenNotYetValid).
// On ErrExpiredToken the verified token is returned alongside the error.
func (m *Manager) Decode(raw string) (*Token, error) {
	tok, err := parseSegments(raw)
	if err != nil {
		return nil, err
	}

	alg, _ := tok.Header["alg"].AsString()
	if alg != m.method.Alg() {
		return nil, ErrAlgorithmNotAllowed
	}

	parser := gjwt.NewParser(
		gjwt.WithValidMethods([]string{m.method.Alg()}),
		gjwt.WithJSONNumber(),
		gjwt.WithLeeway(m.config.Leeway),
		gjwt.WithTimeFunc(m.config.Now),
	)
	_, err = parser.Parse(raw, func(*gjwt.Token) (any, error) {
		return m.verifyKey, nil
	})
	switch {
	case err == nil:
		return tok, nil
	case errors.Is(err, gjwt.ErrTokenMalformed):
		return nil, malformed("%v", err)
	case errors.Is(err, gjwt.ErrTokenSignatureInvalid), errors.Is(err, gjwt.ErrTokenUnverifiable):
		return nil, ErrInvalidSignature
	case errors.Is(err, gjwt.ErrTokenExpired):
		return tok, ErrExpiredToken
	case errors.Is(err, gjwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	default:
		return nil, malformed("%v", err)
	}
}

// UnverifiedHeader returns the header segment of raw without checking the
// signature. Only use it to pick keys or for diagnostics.
func UnverifiedHeader(raw string) (value.Map, error) {
	tok, err := parseSegments(raw)
	if err != nil {
		return nil, err
	}
	return tok.Header, nil
}

func parseSegments(raw string) (*Token, error) {
	parts := strings.Split(raw, ".")
	switch {
	case len(parts) < 3:
		return nil, malformed("not enough segments")
	case len(parts) > 3:
		return nil, malformed("too many segments")
	}

	segments := gjwt.NewParser()
	headerBytes, err := segments.DecodeSegment(parts[0])
	if err != nil {
		return nil, malformed("invalid header padding")
	}
	header, err := value.DecodeMap(headerBytes)
	if err != nil {
		return nil, malformed("invalid header string: %v", err)
	}
	claimBytes, err := segments.DecodeSegment(parts[1])
	if err != nil {
		return nil, malformed("invalid payload padding")
	}
	claims, err := value.DecodeMap(claimBytes)
	if err != nil {
		return nil, malformed("invalid payload string: %v", err)
	}
	if _, err := segments.DecodeSegment(parts[2]); err != nil {
		return nil, malformed("invalid crypto padding")
	}

	return &Token{Raw: raw, Header: header, Claims: claims}, nil
}

func (m *Manager) loadRSA() error {
	if len(m.config.PrivateKey) > 0 {
		key, err := gjwt.ParseRSAPrivateKeyFromPEM(m.config.PrivateKey)
		if err != nil {
			return errors.New("invalid rsa private key")
		}
		m.signKey = key
		m.verifyKey = &key.PublicKey
	}
	if len(m.config.PublicKey) > 0 {
		key, err := gjwt.ParseRSAPublicKeyFromPEM(m.config.PublicKey)
		if err != nil {
			return errors.New("invalid rsa public key")
		}
		if priv, ok := m.signKey.(*rsa.PrivateKey); ok && !priv.PublicKey.Equal(key) {
			return errors.New("rsa public key does not match private key")
		}
		m.verifyKey = key
	}
	return nil
}

func (m *Manager) loadECDSA() error {
	if len(m.config.PrivateKey) > 0 {
		key, err := gjwt.ParseECPrivateKeyFromPEM(m.config.PrivateKey)
		if err != nil {
			return errors.New("invalid ecdsa private key")
		}
		m.signKey = key
		m.verifyKey = &key.PublicKey
	}
	if len(m.config.PublicKey) > 0 {
		key, err := gjwt.ParseECPublicKeyFromPEM(m.config.PublicKey)
		if err != nil {
			return errors.New("invalid ecdsa public key")
		}
		if priv, ok := m.signKey.(*ecdsa.PrivateKey); ok && !priv.PublicKey.Equal(key) {
			return errors.New("ecdsa public key does not match private key")
		}
		m.verifyKey = key
	}
	return nil
}

func (m *Manager) loadEd25519() error {
	if len(m.config.PrivateKey) > 0 {
		key, err := parseEdPrivateKey(m.config.PrivateKey)
		if err != nil {
			return err
		}
		m.signKey = key
		m.verifyKey = key.Public()
	}
	if len(m.config.PublicKey) > 0 {
		key, err := parseEdPublicKey(m.config.PublicKey)
		if err != nil {
			return err
		}
		if priv, ok := m.signKey.(ed25519.PrivateKey); ok && !key.Equal(priv.Public()) {
			return errors.New("ed25519 public key does not match private key")
		}
		m.verifyKey = key
	}
	return nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := gjwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := gjwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
