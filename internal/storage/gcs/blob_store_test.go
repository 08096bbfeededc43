package gcs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	storage "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/showcaselabs/showcase-indexer/internal/storage/gcs"
)

// newTestStore points a BlobStore at a local server simulating the GCS
// upload API.
func newTestStore(t *testing.T, prefix string, handler http.Handler) (*gcs.BlobStore, func()) {
	t.Helper()

	server := httptest.NewServer(handler)
	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	store, err := gcs.New(client, gcs.Config{Bucket: "screens", Prefix: prefix})
	require.NoError(t, err)
	return store, server.Close
}

func TestBlobStore_PutObject(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/screens/o")
		assert.Equal(t, "abc_200.jpg", r.URL.Query().Get("name"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name": "abc_200.jpg", "bucket": "screens"}`))
	})
	store, cleanup := newTestStore(t, "", handler)
	defer cleanup()

	uri, err := store.PutObject(context.Background(), "abc_200.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	require.Equal(t, "gs://screens/abc_200.jpg", uri)
}

func TestBlobStore_PutObject_PrefixedKey(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shots/abc_1500.jpg", r.URL.Query().Get("name"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name": "shots/abc_1500.jpg", "bucket": "screens"}`))
	})
	store, cleanup := newTestStore(t, "/shots/", handler)
	defer cleanup()

	uri, err := store.PutObject(context.Background(), "abc_1500.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	require.Equal(t, "gs://screens/shots/abc_1500.jpg", uri)
}

func TestBlobStore_PutObject_UploadError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	store, cleanup := newTestStore(t, "", handler)
	defer cleanup()

	_, err := store.PutObject(context.Background(), "abc_200.jpg", "image/jpeg", []byte("jpeg"))
	require.Error(t, err)
}

func TestBlobStore_PutObject_RequiresKey(t *testing.T) {
	store, cleanup := newTestStore(t, "", http.NotFoundHandler())
	defer cleanup()

	_, err := store.PutObject(context.Background(), "  ", "image/jpeg", []byte("jpeg"))
	require.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := gcs.New(nil, gcs.Config{Bucket: "screens"})
	require.Error(t, err)
}
