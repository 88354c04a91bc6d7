package access

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/griddeck/griddeck/core/logger"
)

// Verifier validates a session token and returns the authorization derived
// from it. A token that is well-formed but not valid yields an authorization
// with Authenticated set to false, not an error; errors are reserved for
// transport and configuration failures.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Authorization, error)
}

// JWTVerifier validates session cookies locally with an HMAC secret.
type JWTVerifier struct {
	Secret []byte
}

type sessionClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token.
func (v JWTVerifier) Verify(_ context.Context, token string) (*Authorization, error) {
	if len(v.Secret) == 0 {
		return nil, fmt.Errorf("jwt verifier has no secret")
	}
	claims := sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return &Authorization{Authenticated: false}, nil
	}
	auth := &Authorization{
		Authenticated: true,
		ID:            claims.Subject,
		Username:      claims.Username,
		Email:         claims.Email,
		Role:          claims.Role,
	}
	if claims.ExpiresAt != nil {
		auth.Exp = claims.ExpiresAt.Unix()
	}
	return auth, nil
}

// RemoteVerifier validates session cookies against an external validate
// endpoint. The endpoint is called with a bearer authorization and a
// {"token": ...} body and answers with the identity claims.
type RemoteVerifier struct {
	ValidateURL   string
	Authorization string
	HTTPClient    *http.Client
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Exp      int64  `json:"exp"`
	Allowed  bool   `json:"allowed"`
	Role     string `json:"role"`
}

// Verify posts the token to the validate endpoint.
func (v RemoteVerifier) Verify(ctx context.Context, token string) (*Authorization, error) {
	body, _ := json.Marshal(map[string]string{"token": token})
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, v.ValidateURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")
	if v.Authorization != "" {
		r.Header.Set("Authorization", v.Authorization)
	}

	httpClient := v.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := httpClient.Do(r)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validate endpoint status %d: %s", res.StatusCode, strings.TrimSpace(string(resBody)))
	}

	var response validateResponse
	if err := json.Unmarshal(resBody, &response); err != nil {
		return nil, fmt.Errorf("validate endpoint answered with an unexpected shape: %w", err)
	}
	return &Authorization{
		Authenticated: response.Valid,
		ID:            response.ID,
		Username:      response.Username,
		Email:         response.Email,
		Role:          response.Role,
		Exp:           response.Exp,
	}, nil
}

// SessionMiddlewareBuilder describes the session middleware.
type SessionMiddlewareBuilder struct {
	// CookieName is the name of the session cookie.
	CookieName string
	// Verifier validates cookie values. Mandatory.
	Verifier Verifier
}

// NewSessionMiddleware returns a middleware that resolves the session cookie
// into an Authorization on the request context. Requests without a cookie,
// and requests whose token does not validate, pass through without an
// authorization; route handlers decide whether that is acceptable.
func NewSessionMiddleware(b *SessionMiddlewareBuilder) mux.MiddlewareFunc {
	if b.Verifier == nil {
		panic("session middleware needs a verifier")
	}
	cookieName := b.CookieName
	if cookieName == "" {
		cookieName = "jwt"
	}
	cache := NewAuthorizationCache()

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil { // already authorized
				h.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil || strings.TrimSpace(cookie.Value) == "" {
				h.ServeHTTP(w, r)
				return
			}
			token := strings.TrimSpace(cookie.Value)

			auth := cache.Read(token)
			if auth == nil {
				auth, err = b.Verifier.Verify(r.Context(), token)
				if err != nil {
					logger.FromContext(r.Context()).Warningln("session validation failed:", err)
					h.ServeHTTP(w, r)
					return
				}
				cache.Write(token, auth)
			}

			ctx := auth.ContextWithAuthorization(r.Context())
			if auth.Authenticated && auth.Email != "" {
				ctx, _ = logger.ContextWithLoggerIdentity(ctx, auth.Email)
			}
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
