package middleware

import (
	"net/http"

	goToken "github.com/MrEthical07/goToken"
)

// Required accepts valid access tokens only.
func Required(engine *goToken.Engine, opts ...Option) func(http.Handler) http.Handler {
	return Guard(engine, Policy{Kind: goToken.KindAccess}, opts...)
}

// Optional lets requests without a token through untouched. A token that is
// present must still be a valid access token.
func Optional(engine *goToken.Engine, opts ...Option) func(http.Handler) http.Handler {
	return Guard(engine, Policy{Kind: goToken.KindAccess, Optional: true}, opts...)
}

// FreshRequired accepts access tokens that are still fresh.
func FreshRequired(engine *goToken.Engine, opts ...Option) func(http.Handler) http.Handler {
	return Guard(engine, Policy{Kind: goToken.KindAccess, Fresh: true}, opts...)
}

// RefreshRequired accepts valid refresh tokens only.
func RefreshRequired(engine *goToken.Engine, opts ...Option) func(http.Handler) http.Handler {
	return Guard(engine, Policy{Kind: goToken.KindRefresh}, opts...)
}
