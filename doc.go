// Package goToken issues and verifies signed JWT access and refresh tokens
// whose headers can be customized per call and per identity.
//
// Headers are composed from three layers, lowest precedence first:
//
//  1. structural defaults from the signing configuration (alg, typ, kid);
//  2. the registered headers loader, invoked with the identity being issued
//     for, and only when the caller passed no explicit headers;
//  3. explicit headers given with [WithHeaders].
//
// The composed mapping is exactly what is signed, and [Engine.Decode] returns
// it unchanged in [DecodedToken.Header].
//
// # Architecture boundaries
//
// goToken is the public surface. It exposes [Engine], [Builder], [Config] and
// value types. Signing lives in the jwt sub-package; JSON value validation in
// value. HTTP adapters (middleware, middleware/fiberjwt) and optional loaders
// (hooks/redisheaders) depend on goToken, never the other way round.
//
// # What this package must NOT do
//
//   - Read files or environment variables. Configuration is passed in.
//   - Persist, revoke or otherwise track issued tokens.
//   - Perform I/O of its own. The only I/O during issuance happens inside
//     user-registered loaders, which receive the caller's context.
package goToken
