package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/jwt"
)

var (
	// ErrMissingToken is reported when the request carries no token.
	ErrMissingToken = errors.New("missing Authorization Header")
	// ErrBadAuthorizationHeader is reported when the header is present but does
	// not hold "<scheme> <token>".
	ErrBadAuthorizationHeader = errors.New("bad Authorization header")
)

// Policy selects which tokens a guard accepts.
type Policy struct {
	Kind     goToken.Kind
	Fresh    bool
	Optional bool
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type options struct {
	headerName   string
	scheme       string
	errorHandler ErrorHandler
}

// Option customizes a guard.
type Option func(*options)

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.errorHandler = h
		}
	}
}

// WithHeader changes where the token is read from. An empty scheme means the
// header value is the bare token.
func WithHeader(name, scheme string) Option {
	return func(o *options) {
		if name != "" {
			o.headerName = name
		}
		o.scheme = scheme
	}
}

// Guard returns middleware that decodes the request token with engine under
// policy and stores the result with goToken.WithToken. It panics if engine is
// nil.
func Guard(engine *goToken.Engine, policy Policy, opts ...Option) func(http.Handler) http.Handler {
	if engine == nil {
		panic("middleware: engine is required")
	}
	o := options{
		headerName:   "Authorization",
		scheme:       "Bearer",
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var decodeOpts []goToken.DecodeOption
	if policy.Kind != "" {
		decodeOpts = append(decodeOpts, goToken.ExpectKind(policy.Kind))
	}
	if policy.Fresh {
		decodeOpts = append(decodeOpts, goToken.RequireFresh())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := TokenFromHeader(r.Header.Get(o.headerName), o.scheme)
			if errors.Is(err, ErrMissingToken) && policy.Optional {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				o.errorHandler(w, r, err)
				return
			}

			tok, err := engine.Decode(r.Context(), token, decodeOpts...)
			if err != nil {
				o.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(goToken.WithToken(r.Context(), tok)))
		})
	}
}

// TokenFromHeader extracts the token from an Authorization-style header value.
// An empty value yields ErrMissingToken; anything but "<scheme> <token>" yields
// ErrBadAuthorizationHeader.
func TokenFromHeader(value, scheme string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrMissingToken
	}

	if scheme == "" {
		if strings.ContainsAny(value, " \t") {
			return "", ErrBadAuthorizationHeader
		}
		return value, nil
	}

	parts := strings.Fields(value)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return "", ErrBadAuthorizationHeader
	}

	return parts[1], nil
}

// Describe maps a guard failure to the status code and message sent to the
// client.
//
//	missing token, expired token, fresh token required  401
//	any other invalid token                             422
func Describe(err error) (int, string) {
	var malformed *jwt.MalformedError
	switch {
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized, "Missing Authorization Header"
	case errors.Is(err, ErrBadAuthorizationHeader):
		return http.StatusUnprocessableEntity, "Bad Authorization header. Expected value '<scheme> <JWT>'"
	case errors.Is(err, goToken.ErrExpiredToken):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, goToken.ErrFreshTokenRequired):
		return http.StatusUnauthorized, "Fresh token required"
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity, capitalize(malformed.Reason)
	default:
		return http.StatusUnprocessableEntity, capitalize(err.Error())
	}
}

// DefaultErrorHandler writes Describe's result as {"msg": "..."}.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, msg := Describe(err)
	WriteJSON(w, status, map[string]string{"msg": msg})
}

// WriteJSON writes body as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
