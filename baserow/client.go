// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

/*
Package baserow provides a typed client for the remote tabular-data service.

The client speaks plain REST with JSON bodies. All blocking operations take a
context; a request whose context is cancelled returns the context error and
nothing else happens.
*/
package baserow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// MaxPageSize is the largest page size the service accepts; larger requests
// are clamped server-side, so the client clamps them too.
const MaxPageSize = 200

// Client provides access to the tabular-data REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	defaultHeaders map[string]string
}

// NewWithURL creates a client for the API at the given base URL.
//
// WithToken adds an authorization token to every request.
func NewWithURL(baseURL string) Client {
	return Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithToken returns a new client that authorizes with the given token. The
// "Token " scheme prefix is added when the value does not carry one already.
func (c Client) WithToken(token string) Client {
	c.token = NormalizeToken(token)
	return c
}

// WithHTTPClient returns a new client using the given http client.
func (c Client) WithHTTPClient(httpClient *http.Client) Client {
	c.httpClient = httpClient
	return c
}

// WithHeader returns a new client with a default header added.
func (c Client) WithHeader(key, value string) Client {
	headers := map[string]string{key: value}
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}
	c.defaultHeaders = headers
	return c
}

// NormalizeToken prepends the "Token " scheme to a bare API token. Values
// that already carry a "Token" or "JWT" scheme are passed through.
func NormalizeToken(token string) string {
	lower := strings.ToLower(token)
	if token == "" || strings.HasPrefix(lower, "token ") || strings.HasPrefix(lower, "jwt ") {
		return token
	}
	return "Token " + token
}

// AllTables lists all tables visible to the client's token.
func (c Client) AllTables(ctx context.Context) ([]Table, int, error) {
	var tables []Table
	status, err := c.RawGet(ctx, "/database/tables/all-tables/", &tables)
	return tables, status, err
}

// Fields lists the column descriptors of one table.
func (c Client) Fields(ctx context.Context, tableID int) ([]Field, int, error) {
	var fields []Field
	status, err := c.RawGet(ctx, fmt.Sprintf("/database/fields/table/%d/", tableID), &fields)
	return fields, status, err
}

// Application reads the database application behind a database id. It is used
// for display-name lookups.
func (c Client) Application(ctx context.Context, databaseID int) (Application, int, error) {
	var app Application
	status, err := c.RawGet(ctx, fmt.Sprintf("/applications/%d/", databaseID), &app)
	return app, status, err
}

// Rows returns a listing request for the rows of one table. All rows are
// addressed by user field names.
func (c Client) Rows(tableID int) Rows {
	return Rows{client: c, tableID: tableID, size: 100}
}

// Rows is a chainable request builder for one row listing.
type Rows struct {
	client  Client
	tableID int

	page    int
	size    int
	search  string
	orderBy string
	filters *FilterTree
}

// WithPage returns a new listing with the page number set (1-based).
func (r Rows) WithPage(page int) Rows {
	r.page = page
	return r
}

// WithSize returns a new listing with the page size set. The size is clamped
// to [1, MaxPageSize].
func (r Rows) WithSize(size int) Rows {
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	r.size = size
	return r
}

// WithSearch returns a new listing with a full-text search term.
func (r Rows) WithSearch(search string) Rows {
	r.search = strings.TrimSpace(search)
	return r
}

// WithOrderBy returns a new listing ordered by the named column, descending
// when desc is set.
func (r Rows) WithOrderBy(column string, desc bool) Rows {
	if column == "" {
		r.orderBy = ""
		return r
	}
	if desc {
		column = "-" + column
	}
	r.orderBy = column
	return r
}

// WithFilters returns a new listing constrained by the given filter tree.
func (r Rows) WithFilters(filters *FilterTree) Rows {
	r.filters = filters
	return r
}

// Path returns the request path including all query parameters.
func (r Rows) Path() (string, error) {
	usp := url.Values{}
	usp.Set("user_field_names", "true")
	if r.page > 0 {
		usp.Set("page", strconv.Itoa(r.page))
	}
	if r.size > 0 {
		usp.Set("size", strconv.Itoa(r.size))
	}
	if r.search != "" {
		usp.Set("search", r.search)
	}
	if r.orderBy != "" {
		usp.Set("order_by", r.orderBy)
	}
	if r.filters != nil && len(r.filters.Filters) > 0 {
		if err := r.filters.Validate(); err != nil {
			return "", err
		}
		j, err := json.Marshal(r.filters)
		if err != nil {
			return "", err
		}
		usp.Set("filters", string(j))
	}
	return fmt.Sprintf("/database/rows/table/%d/?%s", r.tableID, usp.Encode()), nil
}

// List fetches one page of the listing.
func (r Rows) List(ctx context.Context) (RowPage, int, error) {
	var page RowPage
	path, err := r.Path()
	if err != nil {
		return page, http.StatusBadRequest, err
	}
	status, err := r.client.RawGet(ctx, path, &page)
	return page, status, err
}

// ListAll follows pages sequentially until a page comes back that is not
// full, and returns all rows. The next page is only requested after the prior
// page indicated more data.
func (r Rows) ListAll(ctx context.Context) ([]Row, error) {
	var all []Row
	size := r.size
	if size <= 0 || size > MaxPageSize {
		size = MaxPageSize
	}
	req := r.WithSize(size)
	for page := 1; ; page++ {
		result, _, err := req.WithPage(page).List(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Results...)
		if result.Next == nil || *result.Next == "" || !result.Full(size) {
			return all, nil
		}
	}
}

// CreateRow creates a new row in the given table and returns the written row.
func (c Client) CreateRow(ctx context.Context, tableID int, payload map[string]any) (Row, int, error) {
	var row Row
	path := fmt.Sprintf("/database/rows/table/%d/?user_field_names=true", tableID)
	status, err := c.RawPost(ctx, path, payload, &row)
	return row, status, err
}

// UpdateRow patches an existing row and returns the written row.
func (c Client) UpdateRow(ctx context.Context, tableID, rowID int, payload map[string]any) (Row, int, error) {
	var row Row
	path := fmt.Sprintf("/database/rows/table/%d/%d/?user_field_names=true", tableID, rowID)
	status, err := c.RawPatch(ctx, path, payload, &row)
	return row, status, err
}

// DeleteRow deletes a row.
func (c Client) DeleteRow(ctx context.Context, tableID, rowID int) (int, error) {
	return c.RawDelete(ctx, fmt.Sprintf("/database/rows/table/%d/%d/", tableID, rowID))
}

// UploadFile uploads one file through the user-files endpoint and returns the
// stored file reference.
func (c Client) UploadFile(ctx context.Context, name string, content io.Reader) (FileRef, int, error) {
	var ref FileRef

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return ref, http.StatusBadRequest, err
	}
	if _, err = io.Copy(fw, content); err != nil {
		return ref, http.StatusBadRequest, err
	}
	w.Close()

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user-files/upload-file/", &b)
	if err != nil {
		return ref, http.StatusBadRequest, err
	}
	r.Header.Set("Content-Type", w.FormDataContentType())
	c.decorate(r)

	res, err := c.httpClient.Do(r)
	if err != nil {
		return ref, http.StatusInternalServerError, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return ref, res.StatusCode, apiError(res.StatusCode, resBody)
	}
	err = json.Unmarshal(resBody, &ref)
	return ref, res.StatusCode, err
}

// TokenAuthResponse is the response of the token-auth endpoint. Different
// versions of the service use different keys for the token.
type TokenAuthResponse struct {
	Token  string `json:"token"`
	Access string `json:"access"`
	JWT    string `json:"jwt"`
}

// SessionToken returns whichever token key the response carries.
func (t TokenAuthResponse) SessionToken() string {
	if t.Token != "" {
		return t.Token
	}
	if t.Access != "" {
		return t.Access
	}
	return t.JWT
}

// TokenAuth logs in with email and password and returns a session JWT.
func (c Client) TokenAuth(ctx context.Context, email, password string) (string, int, error) {
	body := map[string]string{
		"email":    email,
		"username": email,
		"password": password,
	}
	var response TokenAuthResponse
	status, err := c.RawPost(ctx, "/user/token-auth/", body, &response)
	if err != nil {
		return "", status, err
	}
	token := response.SessionToken()
	if token == "" {
		return "", status, fmt.Errorf("token-auth response carries no token")
	}
	return token, status, nil
}

func (c Client) decorate(r *http.Request) {
	for key, value := range c.defaultHeaders {
		r.Header.Set(key, value)
	}
	if c.token != "" {
		r.Header.Set("Authorization", c.token)
	}
}

func apiError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("api status %d: %s", status, msg)
}

// RawGet gets the resource at path. Expects http.StatusOK as response,
// otherwise it flags an error carrying the raw error body. Returns the actual
// http status code.
func (c Client) RawGet(ctx context.Context, path string, result interface{}) (int, error) {
	return c.do(ctx, http.MethodGet, path, nil, result, http.StatusOK)
}

// RawPost posts a resource to path. Expects http.StatusOK or
// http.StatusCreated, otherwise it flags an error. Returns the actual http
// status code.
func (c Client) RawPost(ctx context.Context, path string, body, result interface{}) (int, error) {
	return c.do(ctx, http.MethodPost, path, body, result, http.StatusOK, http.StatusCreated)
}

// RawPatch patches the resource at path. Expects http.StatusOK, otherwise it
// flags an error. Returns the actual http status code.
func (c Client) RawPatch(ctx context.Context, path string, body, result interface{}) (int, error) {
	return c.do(ctx, http.MethodPatch, path, body, result, http.StatusOK)
}

// RawDelete deletes the resource at path. Expects http.StatusOK or
// http.StatusNoContent, otherwise it flags an error.
func (c Client) RawDelete(ctx context.Context, path string) (int, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil, http.StatusOK, http.StatusNoContent)
}

func (c Client) do(ctx context.Context, method, path string, body, result interface{}, expect ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			j, err = json.Marshal(body)
			if err != nil {
				return http.StatusBadRequest, fmt.Errorf("%s to %s: %w", method, path, err)
			}
		}
		reader = bytes.NewBuffer(j)
	}

	r, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	c.decorate(r)

	res, err := c.httpClient.Do(r)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)

	status := res.StatusCode
	ok := false
	for _, e := range expect {
		if status == e {
			ok = true
			break
		}
	}
	if !ok {
		return status, apiError(status, resBody)
	}
	if status == http.StatusNoContent {
		return status, nil
	}

	if len(resBody) > 0 && result != nil {
		if raw, okRaw := result.(*[]byte); okRaw {
			*raw = resBody
		} else {
			err = json.Unmarshal(resBody, result)
		}
	}
	return status, err
}
