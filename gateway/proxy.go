// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package gateway

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/griddeck/griddeck/access"
	"github.com/griddeck/griddeck/audit"
	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/core/logger"
)

// tokenIndexHeader selects which configured API token authorizes a proxied
// request. Defaults to token 0.
const tokenIndexHeader = "X-Baserow-Token-Index"

const allTablesPath = "database/tables/all-tables/"

// requestHeaderBlocklist are inbound headers never forwarded upstream. The
// browser's cookie and any client-sent authorization must not leak to the
// tabular-data service.
var requestHeaderBlocklist = map[string]struct{}{
	"Cookie":                {},
	"Authorization":         {},
	"Host":                  {},
	"X-Baserow-Token-Index": {},
	"Connection":            {},
	"Keep-Alive":            {},
	"Proxy-Authenticate":    {},
	"Proxy-Authorization":   {},
	"Te":                    {},
	"Trailer":               {},
	"Transfer-Encoding":     {},
	"Upgrade":               {},
	"Accept-Encoding":       {},
}

// responseHeaderBlocklist are upstream headers never forwarded back.
var responseHeaderBlocklist = map[string]struct{}{
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Content-Length":    {},
	"Set-Cookie":        {},
}

// proxy forwards one request to the tabular-data service with the selected
// API token injected. The all-tables listing is special-cased for multi-token
// aggregation.
func (g *Gateway) proxy(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())

	rest := strings.TrimPrefix(r.URL.Path, "/token/")
	index, ok := g.tokenIndex(r)
	if !ok {
		http.Error(w, "invalid token index", http.StatusBadRequest)
		return
	}

	if rest == allTablesPath && r.Method == http.MethodGet && len(g.tokens) > 1 {
		g.aggregateAllTables(w, r)
		return
	}

	// client-supplied filter trees are validated here, not upstream
	if filters := r.URL.Query().Get("filters"); filters != "" {
		if err := baserow.ValidateFilterJSON(filters); err != nil {
			rlog.WithError(err).Infoln("rejected invalid filter tree")
			http.Error(w, "invalid filters: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	target := g.baseURL + "/" + rest
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	copyRequestHeaders(req.Header, r.Header)
	req.Header.Set("Authorization", baserow.NormalizeToken(g.tokens[index]))

	res, err := g.httpClient.Do(req)
	if err != nil {
		rlog.WithError(err).Errorln("upstream request failed for", target)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer res.Body.Close()

	for key, values := range res.Header {
		if _, skip := responseHeaderBlocklist[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(res.StatusCode)
	io.Copy(w, res.Body)

	g.auditRowWrite(r, rest, res.StatusCode)
}

func (g *Gateway) tokenIndex(r *http.Request) (int, bool) {
	raw := r.Header.Get(tokenIndexHeader)
	if raw == "" {
		return 0, true
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 || index >= len(g.tokens) {
		return 0, false
	}
	return index, true
}

func copyRequestHeaders(dst, src http.Header) {
	for key, values := range src {
		if _, skip := requestHeaderBlocklist[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// aggregateAllTables fans the all-tables listing out over every configured
// token concurrently and merges the results. Each table is annotated with the
// index of the token it is reachable through. A failing token is logged and
// skipped; the aggregate is served from the tokens that answered.
func (g *Gateway) aggregateAllTables(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())

	results := make([][]baserow.Table, len(g.tokens))
	var wg sync.WaitGroup
	for i, token := range g.tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			tables, _, err := g.client.WithToken(token).AllTables(r.Context())
			if err != nil {
				rlog.WithError(err).Warningln("all-tables failed for token index", i)
				return
			}
			for t := range tables {
				index := i
				tables[t].TokenIndex = &index
			}
			results[i] = tables
		}(i, token)
	}
	wg.Wait()

	var merged []baserow.Table
	seen := map[int]struct{}{}
	for _, tables := range results {
		for _, table := range tables {
			if _, ok := seen[table.ID]; ok {
				continue
			}
			seen[table.ID] = struct{}{}
			merged = append(merged, table)
		}
	}
	if merged == nil {
		merged = []baserow.Table{}
	}
	writeJSON(w, http.StatusOK, merged)
}

// auditRowWrite emits an audit event for a successful row mutation through
// the proxy. Delivery is asynchronous and never delays the response.
func (g *Gateway) auditRowWrite(r *http.Request, rest string, status int) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return
	}
	var operation audit.Operation
	switch r.Method {
	case http.MethodPost:
		operation = audit.OperationCreate
	case http.MethodPut, http.MethodPatch:
		operation = audit.OperationUpdate
	case http.MethodDelete:
		operation = audit.OperationDelete
	default:
		return
	}
	if !strings.HasPrefix(rest, "database/rows/table/") {
		return
	}

	var identity string
	if auth := access.AuthorizationFromContext(r.Context()); auth != nil {
		identity = auth.Email
	}
	event := audit.NewEvent(strings.TrimSuffix(rest, "/"), operation, identity, nil)
	requestID := logger.RequestIDFromContext(r.Context())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := g.notifier.Notify(ctx, event); err != nil {
			logger.Default().WithError(err).WithField("requestID", requestID).
				Errorln("audit delivery failed")
		}
	}()
}

// jwtApplication reads one database application through the service JWT
// session. The JWT is obtained with the configured service account and
// cached; concurrent requests share one login.
func (g *Gateway) jwtApplication(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := strconv.Atoi(params["id"])
	if err != nil {
		http.Error(w, "invalid application id", http.StatusBadRequest)
		return
	}

	token, err := g.sessionJWT(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorln("jwt login failed")
		http.Error(w, "upstream authentication failed", http.StatusBadGateway)
		return
	}

	app, status, err := g.client.WithToken("JWT "+token).Application(r.Context(), id)
	if err != nil {
		http.Error(w, "upstream request failed", clientErrorStatus(status))
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// sessionJWT returns the cached service JWT, logging in again when the cached
// one is older than jwtTTL.
func (g *Gateway) sessionJWT(ctx context.Context) (string, error) {
	g.jwtMutex.Lock()
	defer g.jwtMutex.Unlock()

	if g.jwtToken != "" && time.Since(g.jwtFetched) < jwtTTL {
		return g.jwtToken, nil
	}
	token, _, err := g.client.TokenAuth(ctx, g.jwtEmail, g.jwtPwd)
	if err != nil {
		return "", err
	}
	g.jwtToken = token
	g.jwtFetched = time.Now()
	return token, nil
}

// clientErrorStatus maps an upstream status onto the proxied response
// status. Upstream client errors pass through, everything else is a bad
// gateway.
func clientErrorStatus(status int) int {
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return status
	}
	return http.StatusBadGateway
}
