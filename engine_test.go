package goToken

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/value"
)

func TestCreateAccessTokenDefaultHeadersOnly(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	for _, create := range []func(context.Context, any, ...IssueOption) (string, error){
		e.CreateAccessToken, e.CreateRefreshToken,
	} {
		raw, err := create(ctx, "test")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		hdr, err := e.RawHeader(ctx, raw)
		if err != nil {
			t.Fatalf("raw header: %v", err)
		}
		want := value.MustMap(map[string]any{"alg": "HS256", "typ": "JWT"})
		if !hdr.Equal(want) {
			t.Fatalf("expected structural defaults only, got %s", hdr)
		}
	}
}

func TestCreateTokenIncludesLoaderHeaders(t *testing.T) {
	e := newTestEngine(t, testConfig())
	e.Hooks().RegisterHeadersLoader(constHeaders(map[string]any{"foo": "bar"}))
	ctx := context.Background()

	access, err := e.CreateAccessToken(ctx, "test")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	refresh, err := e.CreateRefreshToken(ctx, "test")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}

	for _, raw := range []string{access, refresh} {
		tok, err := e.Decode(ctx, raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := headerString(t, tok, "foo"); got != "bar" {
			t.Fatalf("expected foo=bar, got %q", got)
		}
	}
}

func TestExplicitHeadersSuppressLoader(t *testing.T) {
	e := newTestEngine(t, testConfig())
	e.Hooks().RegisterHeadersLoader(constHeaders(map[string]any{"ping": "pong"}))
	ctx := context.Background()

	for _, create := range []func(context.Context, any, ...IssueOption) (string, error){
		e.CreateAccessToken, e.CreateRefreshToken,
	} {
		raw, err := create(ctx, "test", WithHeaders(map[string]any{"foo": "bar"}))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		tok, err := e.Decode(ctx, raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := headerString(t, tok, "foo"); got != "bar" {
			t.Fatalf("expected foo=bar, got %q", got)
		}
		if _, ok := tok.Header["ping"]; ok {
			t.Fatalf("loader header leaked into token with explicit headers: %s", tok.Header)
		}
	}
}

func TestExplicitEmptyHeadersStillSuppressLoader(t *testing.T) {
	e := newTestEngine(t, testConfig())
	calls := 0
	e.Hooks().RegisterHeadersLoader(func(context.Context, any) (map[string]any, error) {
		calls++
		return map[string]any{"ping": "pong"}, nil
	})
	ctx := context.Background()

	if _, err := e.CreateAccessToken(ctx, "test", WithHeaders(map[string]any{})); err != nil {
		t.Fatalf("create: %v", err)
	}
	if calls != 0 {
		t.Fatalf("loader called %d times despite explicit headers", calls)
	}

	if _, err := e.CreateAccessToken(ctx, "test", WithHeaders(nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if calls != 1 {
		t.Fatalf("nil headers should invoke the loader, calls=%d", calls)
	}
}

func TestExplicitHeadersOverrideDefaults(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	raw, err := e.CreateAccessToken(ctx, "test", WithHeaders(map[string]any{"typ": "at+jwt", "kid": "k9"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, err := e.Decode(ctx, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if headerString(t, tok, "typ") != "at+jwt" || headerString(t, tok, "kid") != "k9" {
		t.Fatalf("explicit headers did not override defaults: %s", tok.Header)
	}
}

func TestUnserializableLoaderHeadersFail(t *testing.T) {
	e := newTestEngine(t, testConfig(), func(b *Builder) { b.WithMetricsEnabled(true) })
	e.Hooks().RegisterHeadersLoader(constHeaders(map[string]any{"conn": opaqueConn{}}))
	ctx := context.Background()

	if _, err := e.CreateAccessToken(ctx, "test"); !errors.Is(err, ErrSerialization) {
		t.Fatalf("access: expected ErrSerialization, got %v", err)
	}
	tok, err := e.CreateRefreshToken(ctx, "test")
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("refresh: expected ErrSerialization, got %v", err)
	}
	if tok != "" {
		t.Fatal("no token material may be returned on serialization failure")
	}

	var ue *value.UnsupportedError
	if !errors.As(err, &ue) || ue.Path != "$.conn" {
		t.Fatalf("expected unsupported path $.conn, got %v", err)
	}

	snap := e.MetricsSnapshot()
	if snap.Counters[MetricIssueSerialization] != 2 || snap.Counters[MetricIssueFailure] != 2 {
		t.Fatalf("unexpected failure counters %v", snap.Counters)
	}
}

func TestUnserializableExplicitHeadersAndClaimsFail(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := e.CreateAccessToken(ctx, "test", WithHeaders(map[string]any{"f": func() {}})); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for explicit header, got %v", err)
	}
	if _, err := e.CreateAccessToken(ctx, opaqueConn{}); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for identity, got %v", err)
	}
	if _, err := e.CreateAccessToken(ctx, "test", WithUserClaims(map[string]any{"c": make(chan int)})); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for user claims, got %v", err)
	}
}

func TestInvalidUTF8HeadersFail(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	tok, err := e.CreateAccessToken(ctx, "id", WithHeaders(map[string]any{"x": "a\xffb"}))
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for invalid UTF-8 header, got %v", err)
	}
	if tok != "" {
		t.Fatal("no token material may be returned on serialization failure")
	}

	e.Hooks().RegisterHeadersLoader(constHeaders(map[string]any{"k\xfe": "v"}))
	if _, err := e.CreateRefreshToken(ctx, "id"); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for invalid UTF-8 header key, got %v", err)
	}
	if _, err := e.CreateAccessToken(ctx, "id\xff", WithHeaders(map[string]any{})); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for invalid UTF-8 identity, got %v", err)
	}
}

func TestConflictingAlgHeaderRejected(t *testing.T) {
	e := newTestEngine(t, testConfig())
	_, err := e.CreateAccessToken(context.Background(), "test", WithHeaders(map[string]any{"alg": "none"}))
	if !errors.Is(err, ErrHeaderConflict) {
		t.Fatalf("expected ErrHeaderConflict, got %v", err)
	}
}

func TestLoaderErrorsPropagate(t *testing.T) {
	boom := errors.New("redis down")
	e := newTestEngine(t, testConfig())
	e.Hooks().RegisterHeadersLoader(func(context.Context, any) (map[string]any, error) {
		return nil, boom
	})

	_, err := e.CreateAccessToken(context.Background(), "test")
	if !errors.Is(err, boom) || !errors.Is(err, ErrHookFailed) {
		t.Fatalf("expected wrapped loader error, got %v", err)
	}
}

func TestRegistrationAffectsLaterIssuanceOnly(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	before, err := e.CreateAccessToken(ctx, "test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	e.Hooks().RegisterHeadersLoader(constHeaders(map[string]any{"foo": "bar"}))

	hdr, err := e.RawHeader(ctx, before)
	if err != nil {
		t.Fatalf("raw header: %v", err)
	}
	if _, ok := hdr["foo"]; ok {
		t.Fatal("registration changed an already issued token")
	}
}

func TestRoundTripHeadersAndClaims(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	headers := map[string]any{
		"alg":    "HS256",
		"typ":    "JWT",
		"n":      12.5,
		"list":   []any{"a", 1, true, nil},
		"nested": map[string]any{"deep": map[string]any{"x": "y"}},
	}
	raw, err := e.CreateAccessToken(ctx, "test",
		WithHeaders(headers),
		WithUserClaims(map[string]any{"roles": []string{"admin"}}),
	)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tok, err := e.Decode(ctx, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !tok.Header.Equal(value.MustMap(headers)) {
		t.Fatalf("header round trip mismatch: %s", tok.Header)
	}

	unverified, err := jwt.UnverifiedHeader(raw)
	if err != nil {
		t.Fatalf("unverified header: %v", err)
	}
	if !unverified.Equal(tok.Header) {
		t.Fatal("decoded header differs from the signed header segment")
	}
	if got := tok.UserClaims.String(); got != `{"roles":["admin"]}` {
		t.Fatalf("unexpected user claims %s", got)
	}
}

func TestClaimsShape(t *testing.T) {
	clk := fixtureClock()
	cfg := testConfig()
	cfg.JWT.Issuer = "goToken-test"
	cfg.JWT.Audience = []string{"api"}
	e := newTestEngine(t, cfg, withClock(clk))
	ctx := context.Background()

	raw, err := e.CreateAccessToken(ctx, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, err := e.Decode(ctx, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	now := clk.Now().Unix()
	checks := map[string]any{
		"identity": "alice",
		"type":     "access",
		"fresh":    false,
		"iat":      now,
		"nbf":      now,
		"exp":      now + int64((15 * time.Minute).Seconds()),
		"iss":      "goToken-test",
		"aud":      "api",
	}
	for claim, want := range checks {
		w := value.MustMap(map[string]any{"v": want})["v"]
		if got := tok.Claims[claim]; !got.Equal(w) {
			t.Fatalf("claim %s = %s, want %s", claim, got, w)
		}
	}
	if tok.JTI == "" || len(tok.JTI) != 36 {
		t.Fatalf("expected uuid jti, got %q", tok.JTI)
	}
	if _, ok := tok.Claims["user_claims"]; ok {
		t.Fatal("empty user claims should be omitted")
	}
	if !tok.ExpiresAt.Equal(clk.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected ExpiresAt %v", tok.ExpiresAt)
	}
}

func TestRefreshTokenHasNoFreshClaim(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	raw, err := e.CreateRefreshToken(ctx, "alice", Fresh(true))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, err := e.Decode(ctx, raw, ExpectKind(KindRefresh))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := tok.Claims["fresh"]; ok {
		t.Fatal("refresh tokens must not carry fresh")
	}
	if tok.Fresh {
		t.Fatal("refresh tokens are never fresh")
	}
}

func TestUserClaimsLoaderAndOverride(t *testing.T) {
	e := newTestEngine(t, testConfig())
	e.Hooks().RegisterUserClaimsLoader(func(context.Context, any) (map[string]any, error) {
		return map[string]any{"default": "value"}, nil
	})
	ctx := context.Background()

	raw, err := e.CreateAccessToken(ctx, "u")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, _ := e.Decode(ctx, raw)
	if tok.UserClaims.String() != `{"default":"value"}` {
		t.Fatalf("loader claims missing: %s", tok.UserClaims)
	}

	raw, err = e.CreateAccessToken(ctx, "u", WithUserClaims(map[string]any{"foo": "bar"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, _ = e.Decode(ctx, raw)
	if tok.UserClaims.String() != `{"foo":"bar"}` {
		t.Fatalf("explicit user claims must replace loader output: %s", tok.UserClaims)
	}

	raw, err = e.CreateRefreshToken(ctx, "u")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	tok, _ = e.Decode(ctx, raw)
	if len(tok.UserClaims) != 0 {
		t.Fatalf("refresh token should not carry user claims: %s", tok.UserClaims)
	}
}

func TestUserClaimsInRefreshTokenWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Claims.ClaimsInRefreshToken = true
	cfg.Claims.UserClaimsClaim = "banana"
	e := newTestEngine(t, cfg)
	e.Hooks().RegisterUserClaimsLoader(func(context.Context, any) (map[string]any, error) {
		return map[string]any{"foo": "bar"}, nil
	})
	ctx := context.Background()

	raw, err := e.CreateRefreshToken(ctx, "u")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, err := e.Decode(ctx, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := tok.Claims["banana"].String(); got != `{"foo":"bar"}` {
		t.Fatalf("expected user claims under banana, got %s", got)
	}
}

func TestIdentityLoader(t *testing.T) {
	type user struct{ name string }

	e := newTestEngine(t, testConfig())
	e.Hooks().RegisterIdentityLoader(func(_ context.Context, identity any) (any, error) {
		return identity.(user).name, nil
	})
	e.Hooks().RegisterUserClaimsLoader(func(_ context.Context, identity any) (map[string]any, error) {
		return map[string]any{"username": identity.(user).name}, nil
	})
	ctx := context.Background()

	raw, err := e.CreateAccessToken(ctx, user{name: "username"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, err := e.Decode(ctx, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s, _ := tok.Identity.AsString(); s != "username" {
		t.Fatalf("unexpected identity %s", tok.Identity)
	}
	if tok.UserClaims.String() != `{"username":"username"}` {
		t.Fatalf("unexpected user claims %s", tok.UserClaims)
	}
}

func TestExpiryOptions(t *testing.T) {
	clk := fixtureClock()
	e := newTestEngine(t, testConfig(), withClock(clk))
	ctx := context.Background()

	raw, err := e.CreateAccessToken(ctx, "u", NoExpiry())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, err := e.Decode(ctx, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := tok.Claims["exp"]; ok || !tok.ExpiresAt.IsZero() {
		t.Fatal("NoExpiry must omit exp")
	}

	raw, err = e.CreateRefreshToken(ctx, "u", ExpiresIn(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok, err = e.Decode(ctx, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !tok.ExpiresAt.Equal(clk.Now().Add(time.Hour)) {
		t.Fatalf("unexpected exp %v", tok.ExpiresAt)
	}
}

func TestVerifyOnlyEngineCannotIssue(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	edConfig := func(private, public []byte) Config {
		cfg := DefaultConfig()
		cfg.JWT.Algorithm = "EdDSA"
		cfg.JWT.PrivateKey = private
		cfg.JWT.PublicKey = public
		return cfg
	}

	signer := newTestEngine(t, edConfig(priv, nil))
	verifier := newTestEngine(t, edConfig(nil, pub))
	stranger := newTestEngine(t, edConfig(nil, otherPub))
	ctx := context.Background()

	raw, err := signer.CreateAccessToken(ctx, "u")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := verifier.Decode(ctx, raw); err != nil {
		t.Fatalf("verify-only decode: %v", err)
	}
	if _, err := verifier.CreateAccessToken(ctx, "u"); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
	if _, err := stranger.Decode(ctx, raw); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature with foreign key, got %v", err)
	}
	if signer.Algorithm() != "EdDSA" {
		t.Fatalf("unexpected algorithm %s", signer.Algorithm())
	}
}
