// internal/infra/solana/secret_store_sm.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretspb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrSecretNotFound      = errors.New("secret_store: secret not found")
	ErrSecretProjectNotSet = errors.New("secret_store: projectID is empty")
)

// SecretManagerStore keeps keypairs in GCP Secret Manager.
// Only the public address is ever logged.
type SecretManagerStore struct {
	client    *secretmanager.Client
	projectID string
}

var _ SecretReader = (*SecretManagerStore)(nil)

// NewSecretManagerStore opens a Secret Manager client. projectID is only needed
// for StoreKeypair; reads use full version resource names.
func NewSecretManagerStore(ctx context.Context, projectID, credentialsFile string) (*SecretManagerStore, error) {
	var opts []option.ClientOption
	if f := strings.TrimSpace(credentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	c, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	return &SecretManagerStore{client: c, projectID: strings.TrimSpace(projectID)}, nil
}

// Close releases the underlying client.
func (s *SecretManagerStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// ReadSecret accesses a version resource such as
// "projects/<PROJECT_ID>/secrets/<SECRET_ID>/versions/latest".
func (s *SecretManagerStore) ReadSecret(ctx context.Context, name string) ([]byte, error) {
	res, err := s.client.AccessSecretVersion(ctx, &secretspb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return nil, fmt.Errorf("AccessSecretVersion %s: %w", name, err)
	}
	if res == nil || res.Payload == nil || len(res.Payload.Data) == 0 {
		return nil, fmt.Errorf("%w: %s (empty payload)", ErrSecretNotFound, name)
	}
	return res.Payload.Data, nil
}

// StoreKeypair writes k as a new version of secretID, creating the secret on
// first use. It returns the version resource name, usable as authority.secret_name.
func (s *SecretManagerStore) StoreKeypair(ctx context.Context, secretID string, k Keypair) (string, error) {
	if s.projectID == "" {
		return "", ErrSecretProjectNotSet
	}
	id := strings.TrimSpace(secretID)
	if id == "" {
		return "", fmt.Errorf("StoreKeypair: secretID is empty")
	}

	payload, err := k.SecretJSON()
	if err != nil {
		return "", fmt.Errorf("StoreKeypair: marshal private key: %w", err)
	}

	parent := fmt.Sprintf("projects/%s", s.projectID)
	secretName := fmt.Sprintf("%s/secrets/%s", parent, id)

	_, err = s.client.GetSecret(ctx, &secretspb.GetSecretRequest{Name: secretName})
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return "", fmt.Errorf("StoreKeypair: GetSecret %s: %w", id, err)
		}
		_, cerr := s.client.CreateSecret(ctx, &secretspb.CreateSecretRequest{
			Parent:   parent,
			SecretId: id,
			Secret: &secretspb.Secret{
				Replication: &secretspb.Replication{
					Replication: &secretspb.Replication_Automatic_{
						Automatic: &secretspb.Replication_Automatic{},
					},
				},
			},
		})
		if cerr != nil {
			return "", fmt.Errorf("StoreKeypair: CreateSecret %s: %w", id, cerr)
		}
		log.WithField("secret", id).Info("[secret_store] created secret")
	}

	addRes, err := s.client.AddSecretVersion(ctx, &secretspb.AddSecretVersionRequest{
		Parent:  secretName,
		Payload: &secretspb.SecretPayload{Data: payload},
	})
	if err != nil {
		return "", fmt.Errorf("StoreKeypair: AddSecretVersion: %w", err)
	}

	log.WithFields(log.Fields{
		"secret":  id,
		"version": addRes.Name,
		"pubkey":  k.Address(),
	}).Info("[secret_store] stored keypair")

	return addRes.Name, nil
}
