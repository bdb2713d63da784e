package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseUpload(t *testing.T) {
	var (
		gotPath, gotAuth, gotUpsert, gotType string
		gotBody                              []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"Key":"lot-photos/lots/7/01_abc.png"}`))
	}))
	defer srv.Close()

	store, err := NewSupabase(srv.URL+"/", "secret", "lot-photos", 5*time.Second)
	require.NoError(t, err)

	err = store.Upload(context.Background(), "lots/7/01_abc.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/lot-photos/lots/7/01_abc.png", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "png-bytes", string(gotBody))
}

func TestSupabaseUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Bucket not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store, err := NewSupabase(srv.URL, "secret", "missing", 5*time.Second)
	require.NoError(t, err)

	err = store.Upload(context.Background(), "lots/1/01_x.jpg", []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket not found")
}

func TestNewSupabaseRequiresCredentials(t *testing.T) {
	_, err := NewSupabase("", "key", "bucket", time.Second)
	assert.Error(t, err)
	_, err = NewSupabase("https://x.supabase.co", "key", "", time.Second)
	assert.Error(t, err)
}

func TestLocalUploadOverwrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "lot-photos")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "lots/3/02_token.webp", []byte("first"), "image/webp"))
	require.NoError(t, store.Upload(ctx, "lots/3/02_token.webp", []byte("second"), "image/webp"))

	data, err := os.ReadFile(filepath.Join(dir, "lot-photos", "lots", "3", "02_token.webp"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalUploadRejectsEscape(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "lot-photos")
	require.NoError(t, err)

	assert.Error(t, store.Upload(context.Background(), "../outside.jpg", []byte("x"), "image/jpeg"))
}
