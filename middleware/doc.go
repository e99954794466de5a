// Package middleware exposes net/http adapters that put a decoded goToken
// token on the request context.
//
// # Guards
//
//   - [Required] accepts access tokens.
//   - [Optional] accepts access tokens and requests without any token.
//   - [FreshRequired] accepts fresh access tokens.
//   - [RefreshRequired] accepts refresh tokens.
//
// Each guard reads the Authorization header, calls Engine.Decode, and stores the
// result with goToken.WithToken. Handlers read it back with
// goToken.TokenFromContext.
//
// # Errors
//
// Rejections go through an [ErrorHandler]. The default writes {"msg": "..."}
// with the status chosen by [Describe]: 401 for a missing, expired or non-fresh
// token, 422 for every other invalid token.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse
// or sign JWTs itself.
package middleware
