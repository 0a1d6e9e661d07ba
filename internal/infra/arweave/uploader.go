// internal/infra/arweave/uploader.go
package arweave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
)

var ErrNotConfigured = errors.New("arweave: base URL is empty")

// HTTPUploader posts metadata JSON to an Irys uploader service, which pins it on
// Arweave and answers {"uri": "https://gateway.irys.xyz/<id>"}.
type HTTPUploader struct {
	client  *http.Client
	baseURL string
	apiKey  string // sent as a bearer token when set
}

var _ usecase.Publisher = (*HTTPUploader)(nil)

func NewHTTPUploader(baseURL, apiKey string) *HTTPUploader {
	return &HTTPUploader{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
	}
}

// Publish uploads doc; name is only logged since Arweave URIs are content addressed.
func (u *HTTPUploader) Publish(ctx context.Context, name string, doc []byte) (string, error) {
	log.WithFields(log.Fields{"name": name, "bytes": len(doc)}).Info("[arweave] upload start")
	return u.UploadJSON(ctx, doc)
}

// UploadJSON uploads metadataJSON and returns its gateway URI.
func (u *HTTPUploader) UploadJSON(ctx context.Context, metadataJSON []byte) (string, error) {
	if len(metadataJSON) == 0 {
		return "", fmt.Errorf("metadataJSON is empty")
	}
	if u.baseURL == "" {
		return "", ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/upload/json", bytes.NewReader(metadataJSON))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("[arweave] http request failed")
		return "", fmt.Errorf("upload metadata to arweave: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(log.Fields{"status": resp.StatusCode, "body": string(body)}).Warn("[arweave] upload failed")
		return "", fmt.Errorf("upload metadata failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var res struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if res.URI == "" {
		return "", fmt.Errorf("upload response has empty uri")
	}

	log.WithField("uri", res.URI).Info("[arweave] upload ok")
	return res.URI, nil
}
