package goToken

import "context"

type decodedTokenContextKey struct{}

// WithToken attaches a decoded token to ctx. The HTTP middleware uses it to
// hand the verified token to downstream handlers.
func WithToken(ctx context.Context, tok *DecodedToken) context.Context {
	return context.WithValue(ctx, decodedTokenContextKey{}, tok)
}

// TokenFromContext returns the token stored by WithToken.
func TokenFromContext(ctx context.Context) (*DecodedToken, bool) {
	if ctx == nil {
		return nil, false
	}

	tok, ok := ctx.Value(decodedTokenContextKey{}).(*DecodedToken)
	return tok, ok && tok != nil
}
