package goToken

import (
	"context"
	"sync/atomic"
)

// HeadersLoader returns extra headers for the token being issued to identity.
// It is invoked only when the caller passed no explicit headers.
type HeadersLoader func(ctx context.Context, identity any) (map[string]any, error)

// UserClaimsLoader returns the user claims object for identity.
type UserClaimsLoader func(ctx context.Context, identity any) (map[string]any, error)

// IdentityLoader maps an application identity (for example a user struct) to
// the serializable value stored in the identity claim.
type IdentityLoader func(ctx context.Context, identity any) (any, error)

// HookRegistry holds the single-slot loaders consulted during issuance.
//
// Each slot is empty by default and a later registration replaces the earlier
// one. Registering nil clears the slot. Registration is meant for application
// setup; a registration that races with issuance is observed either fully or
// not at all.
type HookRegistry struct {
	headers    atomic.Pointer[HeadersLoader]
	userClaims atomic.Pointer[UserClaimsLoader]
	identity   atomic.Pointer[IdentityLoader]
}

// NewHookRegistry returns a registry with every slot empty.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{}
}

// RegisterHeadersLoader installs fn as the headers loader.
func (r *HookRegistry) RegisterHeadersLoader(fn HeadersLoader) {
	if fn == nil {
		r.headers.Store(nil)
		return
	}
	r.headers.Store(&fn)
}

// RegisterUserClaimsLoader installs fn as the user claims loader.
func (r *HookRegistry) RegisterUserClaimsLoader(fn UserClaimsLoader) {
	if fn == nil {
		r.userClaims.Store(nil)
		return
	}
	r.userClaims.Store(&fn)
}

// RegisterIdentityLoader installs fn as the identity loader.
func (r *HookRegistry) RegisterIdentityLoader(fn IdentityLoader) {
	if fn == nil {
		r.identity.Store(nil)
		return
	}
	r.identity.Store(&fn)
}

// HasHeadersLoader reports whether a headers loader is registered.
func (r *HookRegistry) HasHeadersLoader() bool {
	return r.headers.Load() != nil
}

// Headers invokes the headers loader for identity. With no loader registered,
// or when the loader returns nil, it returns an empty map. The loader output is
// not validated here; values without a JSON form fail later at encoding.
func (r *HookRegistry) Headers(ctx context.Context, identity any) (map[string]any, error) {
	fn := r.headers.Load()
	if fn == nil {
		return map[string]any{}, nil
	}
	out, err := (*fn)(ctx, identity)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// UserClaims invokes the user claims loader for identity. With no loader it
// returns an empty map.
func (r *HookRegistry) UserClaims(ctx context.Context, identity any) (map[string]any, error) {
	fn := r.userClaims.Load()
	if fn == nil {
		return map[string]any{}, nil
	}
	out, err := (*fn)(ctx, identity)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Identity maps identity through the identity loader. With no loader the
// identity is returned unchanged.
func (r *HookRegistry) Identity(ctx context.Context, identity any) (any, error) {
	fn := r.identity.Load()
	if fn == nil {
		return identity, nil
	}
	return (*fn)(ctx, identity)
}
