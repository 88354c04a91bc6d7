package baserow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griddeck/griddeck/baserow"
)

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "Token abc", baserow.NormalizeToken("abc"))
	assert.Equal(t, "Token abc", baserow.NormalizeToken("Token abc"))
	assert.Equal(t, "token abc", baserow.NormalizeToken("token abc"))
	assert.Equal(t, "JWT abc", baserow.NormalizeToken("JWT abc"))
	assert.Equal(t, "", baserow.NormalizeToken(""))
}

func TestRowsPath(t *testing.T) {
	path, err := baserow.NewWithURL("http://unused").Rows(42).
		WithPage(3).
		WithSize(50).
		WithSearch("needle").
		WithOrderBy("Name", true).
		Path()
	require.NoError(t, err)

	u, err := url.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "/database/rows/table/42/", u.Path)
	q := u.Query()
	assert.Equal(t, "true", q.Get("user_field_names"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "50", q.Get("size"))
	assert.Equal(t, "needle", q.Get("search"))
	assert.Equal(t, "-Name", q.Get("order_by"))
	assert.Empty(t, q.Get("filters"))
}

func TestRowsPathFilters(t *testing.T) {
	filters := baserow.NewFilterTree(baserow.FilterOR,
		baserow.Filter{Field: "Status", Type: "equal", Value: "Open"},
		baserow.Filter{Field: "Status", Type: "equal", Value: "Blocked"},
	)
	path, err := baserow.NewWithURL("http://unused").Rows(42).WithFilters(filters).Path()
	require.NoError(t, err)

	u, err := url.Parse(path)
	require.NoError(t, err)
	var tree baserow.FilterTree
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("filters")), &tree))
	assert.Equal(t, baserow.FilterOR, tree.FilterType)
	assert.Len(t, tree.Filters, 2)
}

func TestWithSizeClamps(t *testing.T) {
	path, err := baserow.NewWithURL("http://unused").Rows(1).WithSize(5000).Path()
	require.NoError(t, err)
	assert.Contains(t, path, "size=200")

	path, err = baserow.NewWithURL("http://unused").Rows(1).WithSize(-3).Path()
	require.NoError(t, err)
	assert.Contains(t, path, "size=1")
}

func TestListAll(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		atomic.AddInt32(&calls, 1)

		// 450 rows at page size 200: two full pages and a remainder
		size := 200
		start := (page - 1) * size
		remaining := 450 - start
		if remaining > size {
			remaining = size
		}
		rows := make([]map[string]any, 0, remaining)
		for i := 0; i < remaining; i++ {
			rows = append(rows, map[string]any{"id": start + i + 1})
		}
		next := "next"
		response := map[string]any{"count": 450, "next": &next, "results": rows}
		if start+remaining >= 450 {
			response["next"] = nil
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := baserow.NewWithURL(server.URL).WithToken("secret")
	rows, err := client.Rows(7).WithSize(200).ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 450)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, rows[0].ID())
	assert.Equal(t, 450, rows[449].ID())
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "ERROR_TABLE_DOES_NOT_EXIST"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := baserow.NewWithURL(server.URL).WithToken("secret")
	_, status, err := client.Fields(context.Background(), 99)
	assert.Equal(t, http.StatusNotFound, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR_TABLE_DOES_NOT_EXIST")
}

func TestSmallestThumbnail(t *testing.T) {
	ref := baserow.FileRef{Thumbnails: map[string]baserow.Thumbnail{
		"small": {URL: "small.jpg", Width: 48, Height: 48},
		"tiny":  {URL: "tiny.jpg", Width: 21, Height: 21},
		"card":  {URL: "card.jpg", Width: 300, Height: 160},
	}}
	assert.Equal(t, "tiny.jpg", ref.SmallestThumbnail())

	// renditions without dimensions only win when nothing is sized
	ref = baserow.FileRef{Thumbnails: map[string]baserow.Thumbnail{
		"raw":   {URL: "raw.jpg"},
		"small": {URL: "small.jpg", Width: 48, Height: 48},
	}}
	assert.Equal(t, "small.jpg", ref.SmallestThumbnail())

	ref = baserow.FileRef{Thumbnails: map[string]baserow.Thumbnail{
		"raw": {URL: "raw.jpg"},
	}}
	assert.Equal(t, "raw.jpg", ref.SmallestThumbnail())

	assert.Equal(t, "", baserow.FileRef{}.SmallestThumbnail())
}

func TestTokenAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/token-auth/", r.URL.Path)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "svc@example.com", body["email"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access": "the-jwt"}`))
	}))
	defer server.Close()

	client := baserow.NewWithURL(server.URL)
	token, _, err := client.TokenAuth(context.Background(), "svc@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "the-jwt", token)
}
