// internal/infra/firestore/client.go
package firestoreinfra

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// ClientWrapper holds a Firestore client and the project it is bound to.
type ClientWrapper struct {
	Client    *firestore.Client
	ProjectID string
}

// NewClient connects to Firestore. An empty credentialsFile uses Application
// Default Credentials.
func NewClient(ctx context.Context, projectID string, credentialsFile string) (*ClientWrapper, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore: project id is empty")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	log.WithField("project", projectID).Info("[firestore] connected")
	return &ClientWrapper{Client: client, ProjectID: projectID}, nil
}

// Close releases the client.
func (cw *ClientWrapper) Close() error {
	if cw == nil || cw.Client == nil {
		return nil
	}
	return cw.Client.Close()
}
