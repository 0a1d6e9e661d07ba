// internal/adapters/out/gcs/metadata_publisher_gcs.go
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
)

// MetadataPublisherGCS uploads metadata JSON as a public-read object.
// - bucket must allow object ACLs (uniform access buckets need a public IAM binding instead)
// - the returned URI is the storage.googleapis.com public URL
type MetadataPublisherGCS struct {
	Client *storage.Client
	Bucket string
	Prefix string // e.g. "metadata/"
}

var _ usecase.Publisher = (*MetadataPublisherGCS)(nil)

func NewMetadataPublisherGCS(client *storage.Client, bucket, prefix string) *MetadataPublisherGCS {
	return &MetadataPublisherGCS{Client: client, Bucket: strings.TrimSpace(bucket), Prefix: prefix}
}

// ObjectPath joins the prefix and name without a leading "/".
func (p *MetadataPublisherGCS) ObjectPath(name string) string {
	return strings.TrimLeft(path.Join(strings.TrimSpace(p.Prefix), name), "/")
}

func (p *MetadataPublisherGCS) Publish(ctx context.Context, name string, doc []byte) (string, error) {
	if p.Client == nil {
		return "", errors.New("MetadataPublisherGCS: nil storage client")
	}
	if p.Bucket == "" {
		return "", errors.New("MetadataPublisherGCS: bucket is empty")
	}
	obj := p.ObjectPath(name)

	w := p.Client.Bucket(p.Bucket).Object(obj).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "public, max-age=60"
	w.PredefinedACL = "publicRead"

	if _, err := w.Write(doc); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", obj, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", obj, err)
	}

	uri := PublicURL(p.Bucket, obj)
	log.WithFields(log.Fields{"bucket": p.Bucket, "object": obj, "bytes": len(doc)}).Info("[gcs] metadata published")
	return uri, nil
}

// PublicURL builds https://storage.googleapis.com/<bucket>/<object>.
func PublicURL(bucket, objectPath string) string {
	obj := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	segs := strings.Split(obj, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", strings.TrimSpace(bucket), strings.Join(segs, "/"))
}
