package arweave

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploader_Publish(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/json", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"uri":"https://gateway.irys.xyz/abc"}`))
	}))
	defer srv.Close()

	uri, err := NewHTTPUploader(srv.URL+"/", "k3y").Publish(context.Background(), "metadata.json", []byte(`{"name":"POG"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.irys.xyz/abc", uri)
	assert.Equal(t, "Bearer k3y", gotAuth)
	assert.Equal(t, `{"name":"POG"}`, gotBody)
}

func TestUploader_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewHTTPUploader(srv.URL, "").UploadJSON(context.Background(), []byte(`{}`))
	assert.ErrorContains(t, err, "status=401")

	_, err = NewHTTPUploader(srv.URL, "k").UploadJSON(context.Background(), []byte(`{}`))
	assert.ErrorContains(t, err, "empty uri")

	_, err = NewHTTPUploader("", "").UploadJSON(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewHTTPUploader(srv.URL, "").UploadJSON(context.Background(), nil)
	assert.Error(t, err)
}
