package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goToken "github.com/MrEthical07/goToken"
	gjwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "middleware-secret-middleware-secret"

func newEngine(t *testing.T, mutate func(*goToken.Config)) *goToken.Engine {
	t.Helper()
	cfg := goToken.DefaultConfig()
	cfg.JWT.SecretKey = []byte(testSecret)
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := goToken.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

// protected replies {"foo": "bar"} without a token and {"foo": "baz"} plus the
// identity with one.
func protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := goToken.TokenFromContext(r.Context())
		if !ok {
			WriteJSON(w, http.StatusOK, map[string]string{"foo": "bar"})
			return
		}
		id, _ := tok.Identity.AsString()
		WriteJSON(w, http.StatusOK, map[string]string{"foo": "baz", "identity": id})
	})
}

func do(t *testing.T, h http.Handler, authorization string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func bearer(token string) string {
	return "Bearer " + token
}

type tokens struct {
	access, fresh, freshTimed, stale, refresh, expired string
}

func issueTokens(t *testing.T, e *goToken.Engine) tokens {
	t.Helper()
	ctx := context.Background()
	must := func(s string, err error) string {
		t.Helper()
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		return s
	}
	return tokens{
		access:     must(e.CreateAccessToken(ctx, "username")),
		fresh:      must(e.CreateAccessToken(ctx, "username", goToken.Fresh(true))),
		freshTimed: must(e.CreateAccessToken(ctx, "username", goToken.FreshFor(5*time.Minute))),
		stale:      must(e.CreateAccessToken(ctx, "username", goToken.FreshFor(-time.Minute))),
		refresh:    must(e.CreateRefreshToken(ctx, "username")),
		expired:    must(e.CreateAccessToken(ctx, "username", goToken.ExpiresIn(-time.Minute))),
	}
}

func TestRequired(t *testing.T) {
	e := newEngine(t, nil)
	tk := issueTokens(t, e)
	h := Required(e)(protected())

	for _, tok := range []string{tk.access, tk.fresh} {
		code, body := do(t, h, bearer(tok))
		if code != http.StatusOK || body["foo"] != "baz" || body["identity"] != "username" {
			t.Fatalf("expected access to pass, got %d %v", code, body)
		}
	}

	code, body := do(t, h, "")
	if code != http.StatusUnauthorized || body["msg"] != "Missing Authorization Header" {
		t.Fatalf("missing token: %d %v", code, body)
	}

	code, body = do(t, h, bearer(tk.refresh))
	if code != http.StatusUnprocessableEntity || body["msg"] != "Only access tokens are allowed" {
		t.Fatalf("refresh token: %d %v", code, body)
	}

	code, body = do(t, h, bearer(tk.expired))
	if code != http.StatusUnauthorized || body["msg"] != "Token has expired" {
		t.Fatalf("expired token: %d %v", code, body)
	}
}

func TestFreshRequired(t *testing.T) {
	e := newEngine(t, nil)
	tk := issueTokens(t, e)
	h := FreshRequired(e)(protected())

	for _, tok := range []string{tk.fresh, tk.freshTimed} {
		if code, body := do(t, h, bearer(tok)); code != http.StatusOK {
			t.Fatalf("expected fresh token to pass, got %d %v", code, body)
		}
	}
	for _, tok := range []string{tk.access, tk.stale} {
		code, body := do(t, h, bearer(tok))
		if code != http.StatusUnauthorized || body["msg"] != "Fresh token required" {
			t.Fatalf("non-fresh token: %d %v", code, body)
		}
	}

	code, body := do(t, h, bearer(tk.refresh))
	if code != http.StatusUnprocessableEntity || body["msg"] != "Only access tokens are allowed" {
		t.Fatalf("refresh token: %d %v", code, body)
	}
}

func TestRefreshRequired(t *testing.T) {
	e := newEngine(t, nil)
	tk := issueTokens(t, e)
	h := RefreshRequired(e)(protected())

	for _, tok := range []string{tk.access, tk.fresh} {
		code, body := do(t, h, bearer(tok))
		if code != http.StatusUnprocessableEntity || body["msg"] != "Only refresh tokens are allowed" {
			t.Fatalf("access token: %d %v", code, body)
		}
	}
	if code, _ := do(t, h, ""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", code)
	}
	if code, body := do(t, h, bearer(tk.refresh)); code != http.StatusOK || body["foo"] != "baz" {
		t.Fatalf("refresh token: %d %v", code, body)
	}
}

func TestOptional(t *testing.T) {
	e := newEngine(t, nil)
	tk := issueTokens(t, e)
	h := Optional(e)(protected())

	for _, tok := range []string{tk.access, tk.fresh} {
		if code, body := do(t, h, bearer(tok)); code != http.StatusOK || body["foo"] != "baz" {
			t.Fatalf("access token: %d %v", code, body)
		}
	}

	if code, body := do(t, h, ""); code != http.StatusOK || body["foo"] != "bar" {
		t.Fatalf("no token: %d %v", code, body)
	}

	code, body := do(t, h, bearer(tk.refresh))
	if code != http.StatusUnprocessableEntity || body["msg"] != "Only access tokens are allowed" {
		t.Fatalf("refresh token: %d %v", code, body)
	}

	code, body = do(t, h, bearer(tk.expired))
	if code != http.StatusUnauthorized || body["msg"] != "Token has expired" {
		t.Fatalf("expired token: %d %v", code, body)
	}
}

func TestInvalidTokenMessages(t *testing.T) {
	e := newEngine(t, func(c *goToken.Config) {
		c.JWT.DecodeIssuer = "my_issuer"
	})
	h := Required(e)(protected())

	sign := func(claims gjwt.MapClaims) string {
		raw, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return raw
	}

	cases := []struct {
		auth string
		want string
	}{
		{bearer("foobarbaz"), "Not enough segments"},
		{bearer("aaaaa.bbbbb.ccccc"), "Invalid header padding"},
		{bearer(sign(gjwt.MapClaims{"foo": "bar", "iss": "my_issuer"})), "Missing claim: identity"},
		{bearer(sign(gjwt.MapClaims{"identity": "me"})), `Token is missing the "iss" claim`},
		{bearer(sign(gjwt.MapClaims{"identity": "me", "iss": "different_issuer"})), "Invalid issuer"},
		{"Basic dXNlcjpwYXNz", "Bad Authorization header. Expected value '<scheme> <JWT>'"},
	}
	for _, tc := range cases {
		code, body := do(t, h, tc.auth)
		if code != http.StatusUnprocessableEntity || body["msg"] != tc.want {
			t.Fatalf("%s: expected 422 %q, got %d %v", tc.auth, tc.want, code, body)
		}
	}
}

func TestDifferentAlgorithmRejected(t *testing.T) {
	signer := newEngine(t, nil)
	raw, err := signer.CreateAccessToken(context.Background(), "username")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := newEngine(t, func(c *goToken.Config) { c.JWT.Algorithm = "HS512" })
	code, body := do(t, Required(verifier)(protected()), bearer(raw))
	if code != http.StatusUnprocessableEntity || body["msg"] != "The specified alg value is not allowed" {
		t.Fatalf("expected alg rejection, got %d %v", code, body)
	}
}

func TestCustomErrorHandler(t *testing.T) {
	e := newEngine(t, nil)
	tk := issueTokens(t, e)

	var seen error
	custom := WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		seen = err
		WriteJSON(w, http.StatusCreated, map[string]string{"msg": "foobar"})
	})
	h := FreshRequired(e, custom)(protected())

	code, body := do(t, h, bearer(tk.access))
	if code != http.StatusCreated || body["msg"] != "foobar" {
		t.Fatalf("custom handler not used: %d %v", code, body)
	}
	if !errors.Is(seen, goToken.ErrFreshTokenRequired) {
		t.Fatalf("handler got %v", seen)
	}

	code, _ = do(t, Required(e, custom)(protected()), bearer(tk.expired))
	var expired *goToken.ExpiredTokenError
	if code != http.StatusCreated || !errors.As(seen, &expired) {
		t.Fatalf("expired token did not reach handler: %d %v", code, seen)
	}
	if id, _ := expired.Token.Identity.AsString(); id != "username" || expired.Token.Kind != goToken.KindAccess {
		t.Fatalf("expired token payload: %+v", expired.Token)
	}
}

func TestCustomHeader(t *testing.T) {
	e := newEngine(t, nil)
	tk := issueTokens(t, e)
	h := Required(e, WithHeader("X-Token", ""))(protected())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Token", tk.access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected bare token in custom header to pass, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGuardPanicsWithoutEngine(t *testing.T) {
	constructors := map[string]func(*goToken.Engine, ...Option) func(http.Handler) http.Handler{
		"Required":        Required,
		"Optional":        Optional,
		"FreshRequired":   FreshRequired,
		"RefreshRequired": RefreshRequired,
	}
	for name, build := range constructors {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic for nil engine", name)
				}
			}()
			build(nil)
		}()
	}
}

func TestTokenFromHeader(t *testing.T) {
	cases := []struct {
		value, scheme, want string
		err                 error
	}{
		{"Bearer abc", "Bearer", "abc", nil},
		{"bearer abc", "Bearer", "abc", nil},
		{"  Bearer   abc  ", "Bearer", "abc", nil},
		{"", "Bearer", "", ErrMissingToken},
		{"Bearer", "Bearer", "", ErrBadAuthorizationHeader},
		{"Bearer a b", "Bearer", "", ErrBadAuthorizationHeader},
		{"Token abc", "Bearer", "", ErrBadAuthorizationHeader},
		{"abc", "", "abc", nil},
		{"Bearer abc", "", "", ErrBadAuthorizationHeader},
	}
	for _, tc := range cases {
		got, err := TokenFromHeader(tc.value, tc.scheme)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Fatalf("TokenFromHeader(%q, %q) = %q, %v; want %q, %v", tc.value, tc.scheme, got, err, tc.want, tc.err)
		}
	}
}
