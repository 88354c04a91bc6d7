// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package gateway

import (
	"net/http"
	"time"

	"github.com/griddeck/griddeck/access"
)

// authStatus reports whether the request carries a valid session. It never
// fails; an anonymous request is simply not authenticated.
func (g *Gateway) authStatus(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	authenticated := auth != nil && auth.Authenticated
	response := map[string]any{"authenticated": authenticated}
	if g.loginURL != "" && !authenticated {
		response["login_url"] = g.loginURL
	}
	writeJSON(w, http.StatusOK, response)
}

// authMe returns the identity behind the session cookie.
func (g *Gateway) authMe(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	if auth == nil || !auth.Authenticated {
		http.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, auth)
}

// authLogout clears the session cookie. The session itself lives with the
// external auth backend; the gateway only forgets the cookie.
func (g *Gateway) authLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if g.loginURL != "" {
		writeJSON(w, http.StatusOK, map[string]any{"login_url": g.loginURL})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
