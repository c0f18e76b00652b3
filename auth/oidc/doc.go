// Package oidc keeps bearer credentials for secured registry endpoints
// alive during long exports.
//
// A Lifecycle owns the credentials of one client identity and moves them
// through NONE → VALID → STALE → EXPIRED. Callers ask for credentials
// before every secured request; the lifecycle returns the cached token,
// refreshes it, or acquires a new one depending on its age:
//
//	age < expires_in·margin                          VALID    cached
//	expires_in·margin ≤ age < refresh_expires_in·margin  STALE    refresh
//	age ≥ refresh_expires_in·margin                  EXPIRED  acquire
//
// A Cache hands out one Lifecycle per identity so several sources pointed
// at the same secured API share a single token.
//
//	cache := oidc.NewCache(func(identity string) (oidc.Provider, error) {
//	    return oidc.NewTokenEndpoint(cfg, client), nil
//	})
//	lc, err := cache.Get("gob")
//	creds, err := lc.Credentials(ctx)
package oidc
