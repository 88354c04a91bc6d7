/*Package access provides session authorization and permission resolution.

An Authorization describes the acting identity of one request. It is resolved
from the session cookie by a Verifier and carried in the request context, the
way all griddeck handlers expect it:

	ctx = auth.ContextWithAuthorization(ctx)
	auth := access.AuthorizationFromContext(ctx)
*/
package access

import (
	"context"
	"sync"
)

type contextKey string

const contextKeyAuthorization contextKey = "_authorization_"

// Authorization is the resolved session identity of one request.
type Authorization struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id,omitempty"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	Exp           int64  `json:"exp,omitempty"`
}

// ContextWithAuthorization returns a new context with this authorization
// added to it.
func (a *Authorization) ContextWithAuthorization(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, a)
}

// AuthorizationFromContext retrieves an authorization from the context, or
// nil when the request carries none.
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// AuthorizationCache is an in-memory cache of authorizations keyed by the
// session token they were derived from. It saves a validation round trip per
// request. This cache is go-routine safe.
type AuthorizationCache struct {
	mutex sync.RWMutex
	cache map[string]*Authorization
}

// NewAuthorizationCache creates a new authorization cache.
func NewAuthorizationCache() *AuthorizationCache {
	return &AuthorizationCache{cache: make(map[string]*Authorization)}
}

// Read returns a cached authorization, or nil.
func (a *AuthorizationCache) Read(token string) *Authorization {
	a.mutex.RLock()
	auth, ok := a.cache[token]
	a.mutex.RUnlock()
	if ok {
		return auth
	}
	return nil
}

// Write stores an authorization under the session token it was derived from.
func (a *AuthorizationCache) Write(token string, auth *Authorization) {
	a.mutex.Lock()
	a.cache[token] = auth
	a.mutex.Unlock()
}
