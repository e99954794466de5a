// Package fiberjwt adapts goToken verification to fiber handlers.
package fiberjwt

import (
	"errors"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/middleware"
	"github.com/gofiber/fiber/v2"
)

// Config configures New. Only Engine is required.
type Config struct {
	Engine *goToken.Engine
	Policy middleware.Policy

	// Filter skips the middleware when it returns true.
	Filter func(*fiber.Ctx) bool
	// SuccessHandler runs after a token is accepted. Defaults to c.Next.
	SuccessHandler fiber.Handler
	// ErrorHandler writes the response for a rejected request. Defaults to
	// middleware.Describe rendered as {"msg": "..."}.
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the c.Locals key holding the *goToken.DecodedToken.
	ContextKey string
	// Header is the request header carrying the token.
	Header string
	// AuthScheme prefixes the token in Header.
	AuthScheme string
}

func defaultConfig(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Engine == nil {
		panic("fiberjwt: Engine is required")
	}
	if cfg.Policy.Kind == "" {
		cfg.Policy.Kind = goToken.KindAccess
	}
	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "token"
	}
	if cfg.Header == "" {
		cfg.Header = fiber.HeaderAuthorization
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	return cfg
}

// New returns a fiber handler enforcing cfg.Policy. The decoded token is stored
// under cfg.ContextKey and on the user context through goToken.WithToken.
func New(config ...Config) fiber.Handler {
	cfg := defaultConfig(config...)

	var decodeOpts []goToken.DecodeOption
	decodeOpts = append(decodeOpts, goToken.ExpectKind(cfg.Policy.Kind))
	if cfg.Policy.Fresh {
		decodeOpts = append(decodeOpts, goToken.RequireFresh())
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := middleware.TokenFromHeader(c.Get(cfg.Header), cfg.AuthScheme)
		if err != nil {
			if cfg.Policy.Optional && errors.Is(err, middleware.ErrMissingToken) {
				return c.Next()
			}
			return cfg.ErrorHandler(c, err)
		}

		tok, err := cfg.Engine.Decode(c.UserContext(), raw, decodeOpts...)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, tok)
		c.SetUserContext(goToken.WithToken(c.UserContext(), tok))

		return cfg.SuccessHandler(c)
	}
}

// DefaultErrorHandler renders middleware.Describe as a JSON body.
func DefaultErrorHandler(c *fiber.Ctx, err error) error {
	status, msg := middleware.Describe(err)
	return c.Status(status).JSON(fiber.Map{"msg": msg})
}

// Token returns the token stored by New under the default context key.
func Token(c *fiber.Ctx) (*goToken.DecodedToken, bool) {
	return TokenWithKey(c, "token")
}

// TokenWithKey returns the token stored under key.
func TokenWithKey(c *fiber.Ctx, key string) (*goToken.DecodedToken, bool) {
	tok, ok := c.Locals(key).(*goToken.DecodedToken)
	return tok, ok
}
