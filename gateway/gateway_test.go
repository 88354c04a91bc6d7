package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griddeck/griddeck/access"
	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/gateway"
	"github.com/griddeck/griddeck/prefs"
)

var sessionSecret = []byte("unit-test-secret")

func sessionCookie(t *testing.T) *http.Cookie {
	claims := jwt.MapClaims{
		"sub":   "user-1",
		"email": "ada@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sessionSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: "jwt", Value: token}
}

func newGateway(t *testing.T, upstream string, tokens []string, store prefs.Store) *gateway.Gateway {
	t.Helper()
	return gateway.New(&gateway.Builder{
		BaseURL:     upstream,
		Tokens:      tokens,
		JWTEmail:    "svc@example.com",
		JWTPassword: "pw",
		Verifier:    access.JWTVerifier{Secret: sessionSecret},
		LoginURL:    "https://login.example.com",
		PrefsStore:  store,
	})
}

func TestProxyInjectsToken(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the browser's cookie never reaches the upstream, the API token does
		assert.Empty(t, r.Header.Get("Cookie"))
		switch r.Header.Get("Authorization") {
		case "Token token-zero":
			assert.Equal(t, "/database/fields/table/42/", r.URL.Path)
		case "Token token-one":
			assert.Equal(t, "/database/rows/table/42/", r.URL.Path)
			assert.Equal(t, "true", r.URL.Query().Get("user_field_names"))
		default:
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer upstream.Close()

	gw := newGateway(t, upstream.URL, []string{"token-zero", "token-one"}, nil)

	r := httptest.NewRequest(http.MethodGet, "/token/database/fields/table/42/", nil)
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/token/database/rows/table/42/?user_field_names=true", nil)
	r.Header.Set("X-Baserow-Token-Index", "1")
	r.AddCookie(sessionCookie(t))
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	// out-of-range index is rejected before anything is forwarded
	r = httptest.NewRequest(http.MethodGet, "/token/database/fields/table/42/", nil)
	r.Header.Set("X-Baserow-Token-Index", "7")
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyValidatesFilterTrees(t *testing.T) {
	var forwarded int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count": 0, "next": null, "results": []}`))
	}))
	defer upstream.Close()

	gw := newGateway(t, upstream.URL, []string{"token-zero"}, nil)

	valid := url.QueryEscape(`{"filter_type": "AND", "filters": [{"field": "Name", "type": "equal", "value": "x"}]}`)
	r := httptest.NewRequest(http.MethodGet, "/token/database/rows/table/42/?user_field_names=true&filters="+valid, nil)
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, forwarded)

	// an invalid tree is rejected before anything is forwarded
	invalid := url.QueryEscape(`{"filter_type": "MAYBE", "filters": []}`)
	r = httptest.NewRequest(http.MethodGet, "/token/database/rows/table/42/?filters="+invalid, nil)
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, forwarded)

	r = httptest.NewRequest(http.MethodGet, "/token/database/rows/table/42/?filters=not-json", nil)
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, forwarded)
}

func TestProxyAggregatesAllTables(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/database/tables/all-tables/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Token token-zero":
			w.Write([]byte(`[{"id": 1, "name": "A", "database_id": 1}, {"id": 2, "name": "B", "database_id": 1}]`))
		case "Token token-one":
			http.Error(w, "workspace gone", http.StatusUnauthorized)
		case "Token token-two":
			w.Write([]byte(`[{"id": 3, "name": "C", "database_id": 2}]`))
		}
	}))
	defer upstream.Close()

	gw := newGateway(t, upstream.URL, []string{"token-zero", "token-one", "token-two"}, nil)

	r := httptest.NewRequest(http.MethodGet, "/token/database/tables/all-tables/", nil)
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var tables []baserow.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tables))
	// the failing token is skipped, the aggregate holds the rest
	require.Len(t, tables, 3)

	byID := map[int]baserow.Table{}
	for _, table := range tables {
		byID[table.ID] = table
	}
	require.NotNil(t, byID[1].TokenIndex)
	assert.Equal(t, 0, *byID[1].TokenIndex)
	require.NotNil(t, byID[3].TokenIndex)
	assert.Equal(t, 2, *byID[3].TokenIndex)
}

func TestJWTApplicationCachesLogin(t *testing.T) {
	var logins int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/user/token-auth/":
			atomic.AddInt32(&logins, 1)
			w.Write([]byte(`{"token": "fresh-jwt"}`))
		case strings.HasPrefix(r.URL.Path, "/applications/"):
			assert.Equal(t, "JWT fresh-jwt", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id": 5, "name": "CRM"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	gw := newGateway(t, upstream.URL, []string{"token-zero"}, nil)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/jwt/applications/5", nil)
		w := httptest.NewRecorder()
		gw.Handler().ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)

		var app baserow.Application
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &app))
		assert.Equal(t, "CRM", app.Name)
	}
	// one login serves all three requests
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestAuthRoutes(t *testing.T) {
	gw := newGateway(t, "http://unused", []string{"token-zero"}, nil)

	// anonymous status
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, false, status["authenticated"])
	assert.Equal(t, "https://login.example.com", status["login_url"])

	// authenticated status and identity
	r := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	r.AddCookie(sessionCookie(t))
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, true, status["authenticated"])

	r = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.AddCookie(sessionCookie(t))
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	var me access.Authorization
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "ada@example.com", me.Email)

	// anonymous identity is refused
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// logout clears the cookie
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestColumnPrefsRoutes(t *testing.T) {
	store, err := prefs.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	gw := newGateway(t, "http://unused", []string{"token-zero"}, store)

	// writing requires an identity
	body := strings.NewReader(`{"order": ["B", "A"], "hidden": ["C"]}`)
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/prefs/table/42/columns", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body = strings.NewReader(`{"order": ["B", "A"], "hidden": ["C"]}`)
	r := httptest.NewRequest(http.MethodPut, "/prefs/table/42/columns", body)
	r.AddCookie(sessionCookie(t))
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/prefs/table/42/columns", nil)
	r.AddCookie(sessionCookie(t))
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var layout prefs.ColumnPrefs
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &layout))
	assert.Equal(t, []string{"B", "A"}, layout.Order)
	assert.Equal(t, []string{"C"}, layout.Hidden)

	// another table has its own layout
	r = httptest.NewRequest(http.MethodGet, "/prefs/table/43/columns", nil)
	r.AddCookie(sessionCookie(t))
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	layout = prefs.ColumnPrefs{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &layout))
	assert.Empty(t, layout.Order)

	r = httptest.NewRequest(http.MethodDelete, "/prefs/table/42/columns", nil)
	r.AddCookie(sessionCookie(t))
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
