package form_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griddeck/griddeck/baserow"
	"github.com/griddeck/griddeck/form"
)

func TestUploadAll(t *testing.T) {
	var uploads int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		file.Close()
		atomic.AddInt32(&uploads, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "stored_%s", "url": "https://files.example.com/%s"}`, header.Filename, header.Filename)
	}))
	defer server.Close()

	client := baserow.NewWithURL(server.URL).WithToken("secret")
	draft := form.Draft{"Attachments": []any{
		map[string]any{"name": "old.jpg", "url": "https://files.example.com/old.jpg"},
	}}

	result, err := form.UploadAll(context.Background(), client, draft, "Attachments", []form.FileInput{
		{Name: "a.jpg", Content: []byte("aa")},
		{Name: "b.jpg", Content: []byte("bb")},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&uploads))

	refs, ok := result.Get("Attachments").([]baserow.FileRef)
	require.True(t, ok)
	require.Len(t, refs, 3)
	// existing references come first, then the new ones in input order
	assert.Equal(t, "old.jpg", refs[0].Name)
	assert.Equal(t, "stored_a.jpg", refs[1].Name)
	assert.Equal(t, "stored_b.jpg", refs[2].Name)

	// the original draft is untouched
	original, ok := draft.Get("Attachments").([]any)
	require.True(t, ok)
	assert.Len(t, original, 1)
}

func TestUploadAllFailureLeavesDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		if header.Filename == "bad.jpg" {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "url": "https://files.example.com/%s"}`, header.Filename, header.Filename)
	}))
	defer server.Close()

	client := baserow.NewWithURL(server.URL).WithToken("secret")
	draft := form.Draft{}

	result, err := form.UploadAll(context.Background(), client, draft, "Attachments", []form.FileInput{
		{Name: "good.jpg", Content: []byte("gg")},
		{Name: "bad.jpg", Content: []byte("bb")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jpg")
	// one failure discards the whole batch, the good upload included
	assert.Nil(t, result.Get("Attachments"))
	assert.Nil(t, draft.Get("Attachments"))
}

func TestUploadAllEmpty(t *testing.T) {
	draft := form.Draft{"Attachments": []any{}}
	result, err := form.UploadAll(context.Background(), baserow.Client{}, draft, "Attachments", nil)
	require.NoError(t, err)
	assert.Equal(t, draft, result)
}
