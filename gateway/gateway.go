// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

/*
Package gateway provides the HTTP surface of the table browser.

The gateway sits between the browser and the tabular-data service. It owns
the API tokens and the JWT session, so no credential ever reaches the client:
browsers call /token/ and /jwt/ routes and the gateway forwards them with the
proper Authorization header injected.
*/
package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/griddeck/griddeck/access"
	"github.com/griddeck/griddeck/audit"
	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/core/logger"
	"github.com/griddeck/griddeck/prefs"
)

// Builder is a builder of gateways.
type Builder struct {
	// Router is the mux router to add routes to. Created when nil.
	Router *mux.Router
	// BaseURL is the API base of the tabular-data service. Mandatory.
	BaseURL string
	// Tokens are the database API tokens, addressed by index through the
	// X-Baserow-Token-Index request header. At least one is required. The
	// values come from configuration, never from source.
	Tokens []string
	// JWTEmail and JWTPassword are the service account credentials for the
	// JWT routes. Optional; without them the /jwt/ routes are disabled.
	JWTEmail    string
	JWTPassword string
	// CookieName is the session cookie name. Defaults to "jwt".
	CookieName string
	// Verifier validates session cookies. Optional; without it requests
	// carry no identity.
	Verifier access.Verifier
	// LoginURL is the external login page handed out on logout. Optional.
	LoginURL string
	// AllowedOrigins are the origins allowed for credentialed cross-origin
	// requests. Empty disables CORS headers.
	AllowedOrigins []string
	// PrefsStore persists per-identity column layouts. Optional.
	PrefsStore prefs.Store
	// Notifier receives audit events for row writes. Defaults to the nop
	// notifier.
	Notifier audit.Notifier
	// HTTPClient is the client for upstream calls. Defaults to a client
	// with a 30 second timeout.
	HTTPClient *http.Client
}

// Gateway is the assembled HTTP service.
type Gateway struct {
	router     *mux.Router
	baseURL    string
	tokens     []string
	jwtEmail   string
	jwtPwd     string
	cookieName string
	loginURL   string
	origins    []string
	store      prefs.Store
	notifier   audit.Notifier
	httpClient *http.Client

	client baserow.Client

	jwtMutex   sync.Mutex
	jwtToken   string
	jwtFetched time.Time
}

// jwtTTL is how long a service JWT is reused before a fresh login.
const jwtTTL = 5 * time.Minute

// New realizes the gateway and adds all routes to the router.
func New(b *Builder) *Gateway {
	if b.BaseURL == "" {
		panic("gateway needs a base URL")
	}
	if len(b.Tokens) == 0 {
		panic("gateway needs at least one API token")
	}
	router := b.Router
	if router == nil {
		router = mux.NewRouter()
	}
	httpClient := b.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	notifier := b.Notifier
	if notifier == nil {
		notifier = audit.NopNotifier{}
	}
	cookieName := b.CookieName
	if cookieName == "" {
		cookieName = "jwt"
	}

	g := &Gateway{
		router:     router,
		baseURL:    b.BaseURL,
		tokens:     b.Tokens,
		jwtEmail:   b.JWTEmail,
		jwtPwd:     b.JWTPassword,
		cookieName: cookieName,
		loginURL:   b.LoginURL,
		origins:    b.AllowedOrigins,
		store:      b.PrefsStore,
		notifier:   notifier,
		httpClient: httpClient,
		client:     baserow.NewWithURL(b.BaseURL).WithHTTPClient(httpClient),
	}

	logger.AddRequestID(router)
	if b.Verifier != nil {
		router.Use(access.NewSessionMiddleware(&access.SessionMiddlewareBuilder{
			CookieName: cookieName,
			Verifier:   b.Verifier,
		}))
	}
	g.handleRoutes(router)
	return g
}

func (g *Gateway) handleRoutes(router *mux.Router) {
	logger.Default().Debugln("gateway routes enabled")
	logger.Default().Debugln("  handle proxy route: /token/{path} ANY")
	router.PathPrefix("/token/").Handler(handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		g.proxy(w, r)
	})))

	if g.jwtEmail != "" && g.jwtPwd != "" {
		logger.Default().Debugln("  handle jwt route: /jwt/applications/{id} GET")
		router.Handle("/jwt/applications/{id}", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
			g.jwtApplication(w, r)
		}))).Methods(http.MethodOptions, http.MethodGet)
	}

	logger.Default().Debugln("  handle auth routes: /auth/status /auth/me GET, /auth/logout POST")
	router.HandleFunc("/auth/status", g.authStatus).Methods(http.MethodOptions, http.MethodGet)
	router.HandleFunc("/auth/me", g.authMe).Methods(http.MethodOptions, http.MethodGet)
	router.HandleFunc("/auth/logout", g.authLogout).Methods(http.MethodOptions, http.MethodPost)

	if g.store != nil {
		logger.Default().Debugln("  handle prefs route: /prefs/table/{id}/columns GET PUT DELETE")
		router.Handle("/prefs/table/{id}/columns", http.HandlerFunc(g.columnPrefs)).
			Methods(http.MethodOptions, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// Handler returns the outermost handler, with CORS applied when origins are
// configured.
func (g *Gateway) Handler() http.Handler {
	if len(g.origins) == 0 {
		return g.router
	}
	return handlers.CORS(
		handlers.AllowedOrigins(g.origins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Baserow-Token-Index"}),
		handlers.AllowCredentials(),
	)(g.router)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	body, _ := json.MarshalWithOption(value, json.DisableHTMLEscape())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
