package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type capturedPut struct {
	path        string
	contentType string
	body        []byte
}

func TestS3ArchiverPutsObjectPathStyle(t *testing.T) {
	var (
		mu       sync.Mutex
		captured []capturedPut
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		captured = append(captured, capturedPut{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: body})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	archiver, err := NewS3Archiver(context.Background(), Config{
		Bucket:    "audit",
		Region:    "us-east-1",
		Endpoint:  server.URL,
		AccessKey: "test",
		SecretKey: "secret",
		PathStyle: true,
	}, zerolog.Nop())
	require.NoError(t, err)

	payload := []byte(`[{"log_id":1}]`)
	require.NoError(t, archiver.Archive(context.Background(), "audit-archive/20260101T000000Z.json", payload))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, captured, 1)
	require.Equal(t, "/audit/audit-archive/20260101T000000Z.json", captured[0].path)
	require.Equal(t, "application/json", captured[0].contentType)
	require.Contains(t, string(captured[0].body), string(payload))
}

func TestS3ArchiverSurfacesUploadErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	archiver, err := NewS3Archiver(context.Background(), Config{
		Bucket:    "audit",
		Region:    "us-east-1",
		Endpoint:  server.URL,
		AccessKey: "test",
		SecretKey: "secret",
		PathStyle: true,
	}, zerolog.Nop())
	require.NoError(t, err)

	err = archiver.Archive(context.Background(), "audit-archive/x.json", []byte("[]"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "audit-archive/x.json")
}

func TestNewS3ArchiverRequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), Config{Region: "us-east-1"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrBucketRequired)
}
