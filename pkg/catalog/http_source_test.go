package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPSourceFetchCatalog(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 7, "name": "VITA Classical", "variants": [{"id": 42, "name": "A1"}]}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	brands, err := src.FetchCatalog(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, brands, 1)
	require.Equal(t, int64(7), brands[0].ID)
	require.Equal(t, "/subjects/12/catalog", gotPath.Load())
}

func TestHTTPSourceRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"id": 1, "name": "Chromascop"}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	brands, err := src.FetchCatalog(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, brands, 1)
	require.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestHTTPSourceNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	_, err := src.FetchCatalog(context.Background(), 1)
	require.Error(t, err)
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // shut down before use

	src := NewHTTPSource(srv.URL, WithHTTPClient(http.DefaultClient))
	_, err := src.FetchCatalog(context.Background(), 1)
	require.Error(t, err)
}
