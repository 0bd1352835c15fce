// Package authz decides whether a caller credential may apply auto-shutdown
// rules. The rest of the service only consumes the boolean outcome.
package authz

import (
	"context"

	"autoshutdown/api/internal/acl"
	"autoshutdown/api/internal/identity"
)

// Authorizer answers allow/deny for a caller credential. An error means the
// answer could not be obtained and the operation must abort.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) (bool, error)
}

// AllowAll authorizes every credential. Test use only.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, string) (bool, error) { return true, nil }

type principalResolver interface {
	Principal(ctx context.Context, credential string) (identity.Principal, error)
}

// Remote authorizes by resolving the credential against the identity
// service: admins are always allowed, everyone else must be on the ACL.
type Remote struct {
	resolver principalResolver
	acl      acl.List
	cache    *PrincipalCache
}

// NewRemote builds the production authorizer. cache may be nil, in which
// case every call hits the identity service.
func NewRemote(resolver principalResolver, list acl.List, cache *PrincipalCache) *Remote {
	return &Remote{resolver: resolver, acl: list, cache: cache}
}

func (r *Remote) Authorize(ctx context.Context, credential string) (bool, error) {
	principal, err := r.lookup(ctx, credential)
	if err != nil {
		return false, err
	}
	if principal.IsAdmin {
		return true, nil
	}
	return r.acl.Allows(principal.CanonicalName), nil
}

func (r *Remote) lookup(ctx context.Context, credential string) (identity.Principal, error) {
	if r.cache != nil {
		if principal, found := r.cache.Get(ctx, credential); found {
			return principal, nil
		}
	}
	principal, err := r.resolver.Principal(ctx, credential)
	if err != nil {
		return identity.Principal{}, err
	}
	if r.cache != nil {
		r.cache.Put(ctx, credential, principal)
	}
	return principal, nil
}
