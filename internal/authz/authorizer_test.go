package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"autoshutdown/api/internal/acl"
	"autoshutdown/api/internal/identity"
)

type fakeResolver struct {
	principal identity.Principal
	err       error
	calls     int
}

func (f *fakeResolver) Principal(context.Context, string) (identity.Principal, error) {
	f.calls++
	return f.principal, f.err
}

func TestRemoteAllowsAdmin(t *testing.T) {
	resolver := &fakeResolver{principal: identity.Principal{CanonicalName: "root", IsAdmin: true}}
	authorizer := NewRemote(resolver, acl.List{}, nil)

	allowed, err := authorizer.Authorize(context.Background(), "key")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !allowed {
		t.Fatal("admin must be allowed")
	}
}

func TestRemoteAllowsListedUser(t *testing.T) {
	resolver := &fakeResolver{principal: identity.Principal{CanonicalName: "alice"}}
	authorizer := NewRemote(resolver, acl.List{Users: []string{"alice"}}, nil)

	allowed, err := authorizer.Authorize(context.Background(), "key")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !allowed {
		t.Fatal("listed user must be allowed")
	}
}

func TestRemoteDeniesUnlistedUser(t *testing.T) {
	resolver := &fakeResolver{principal: identity.Principal{CanonicalName: "mallory"}}
	authorizer := NewRemote(resolver, acl.List{Users: []string{"alice"}}, nil)

	allowed, err := authorizer.Authorize(context.Background(), "key")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if allowed {
		t.Fatal("unlisted non-admin must be denied")
	}
}

func TestRemotePropagatesResolverError(t *testing.T) {
	resolver := &fakeResolver{err: identity.ErrUnreachable}
	authorizer := NewRemote(resolver, acl.List{}, nil)

	_, err := authorizer.Authorize(context.Background(), "key")
	if !errors.Is(err, identity.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func setupCache(t *testing.T, ttl time.Duration) (*PrincipalCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewPrincipalCacheWithClient(client, ttl)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRemoteUsesCacheOnSecondCall(t *testing.T) {
	cache, _ := setupCache(t, time.Minute)
	resolver := &fakeResolver{principal: identity.Principal{CanonicalName: "root", IsAdmin: true}}
	authorizer := NewRemote(resolver, acl.List{}, cache)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := authorizer.Authorize(ctx, "key")
		if err != nil || !allowed {
			t.Fatalf("call %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one identity lookup, got %d", resolver.calls)
	}
}

func TestCacheEntryExpires(t *testing.T) {
	cache, mr := setupCache(t, time.Second)
	resolver := &fakeResolver{principal: identity.Principal{CanonicalName: "alice"}}
	authorizer := NewRemote(resolver, acl.List{Users: []string{"alice"}}, cache)

	ctx := context.Background()
	if _, err := authorizer.Authorize(ctx, "key"); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := authorizer.Authorize(ctx, "key"); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("expected expired entry to force a second lookup, got %d calls", resolver.calls)
	}
}

func TestCacheKeysDistinctPerCredential(t *testing.T) {
	cache, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	cache.Put(ctx, "key-a", identity.Principal{CanonicalName: "alice"})
	cache.Put(ctx, "key-b", identity.Principal{CanonicalName: "bob"})

	got, found := cache.Get(ctx, "key-a")
	if !found || got.CanonicalName != "alice" {
		t.Fatalf("expected alice for key-a, got %+v found=%v", got, found)
	}
	got, found = cache.Get(ctx, "key-b")
	if !found || got.CanonicalName != "bob" {
		t.Fatalf("expected bob for key-b, got %+v found=%v", got, found)
	}
}

func TestAllowAll(t *testing.T) {
	allowed, err := AllowAll{}.Authorize(context.Background(), "anything")
	if err != nil || !allowed {
		t.Fatalf("AllowAll must allow, got allowed=%v err=%v", allowed, err)
	}
}
