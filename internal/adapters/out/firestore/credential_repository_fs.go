// internal/adapters/out/firestore/credential_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
)

// CredentialRepositoryFS stores credential records in one Firestore collection,
// keyed by mint address.
type CredentialRepositoryFS struct {
	client     *firestore.Client
	collection string
}

var _ sbt.RepositoryPort = (*CredentialRepositoryFS)(nil)

func NewCredentialRepositoryFS(client *firestore.Client, collection string) *CredentialRepositoryFS {
	if strings.TrimSpace(collection) == "" {
		collection = "sbt_credentials"
	}
	return &CredentialRepositoryFS{client: client, collection: collection}
}

type credentialDoc struct {
	ID               string     `firestore:"id"`
	MintAddress      string     `firestore:"mintAddress"`
	Holder           string     `firestore:"holder"`
	Authority        string     `firestore:"authority"`
	Name             string     `firestore:"name"`
	Symbol           string     `firestore:"symbol"`
	MetadataURI      string     `firestore:"metadataUri"`
	Network          string     `firestore:"network"`
	Status           string     `firestore:"status"`
	CreateSignature  string     `firestore:"createSignature"`
	RevokeSignature  string     `firestore:"revokeSignature,omitempty"`
	RevokeReason     string     `firestore:"revokeReason,omitempty"`
	LastVerification string     `firestore:"lastVerification,omitempty"`
	LastVerifiedAt   *time.Time `firestore:"lastVerifiedAt"`
	IssuedAt         time.Time  `firestore:"issuedAt"`
	RevokedAt        *time.Time `firestore:"revokedAt"`
	UpdatedAt        time.Time  `firestore:"updatedAt"`
}

func (r *CredentialRepositoryFS) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *CredentialRepositoryFS) Create(ctx context.Context, c sbt.Credential) error {
	_, err := r.col().Doc(c.MintAddress).Create(ctx, toDoc(c))
	if status.Code(err) == codes.AlreadyExists {
		return sbt.ErrAlreadyExists
	}
	return err
}

func (r *CredentialRepositoryFS) GetByMint(ctx context.Context, mintAddress string) (sbt.Credential, error) {
	mintAddress = strings.TrimSpace(mintAddress)
	if mintAddress == "" {
		return sbt.Credential{}, sbt.ErrNotFound
	}
	snap, err := r.col().Doc(mintAddress).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return sbt.Credential{}, sbt.ErrNotFound
		}
		return sbt.Credential{}, err
	}
	return fromSnapshot(snap)
}

// Update overwrites the document; it never creates one.
func (r *CredentialRepositoryFS) Update(ctx context.Context, c sbt.Credential) error {
	ref := r.col().Doc(c.MintAddress)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, toDoc(c))
	})
	if status.Code(err) == codes.NotFound {
		return sbt.ErrNotFound
	}
	return err
}

func (r *CredentialRepositoryFS) ListByHolder(ctx context.Context, holder string) ([]sbt.Credential, error) {
	it := r.col().Where("holder", "==", strings.TrimSpace(holder)).Documents(ctx)
	defer it.Stop()

	var out []sbt.Credential
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		c, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (sbt.Credential, error) {
	var d credentialDoc
	if err := snap.DataTo(&d); err != nil {
		return sbt.Credential{}, err
	}
	if strings.TrimSpace(d.MintAddress) == "" {
		d.MintAddress = snap.Ref.ID
	}
	return fromDoc(d), nil
}

func toDoc(c sbt.Credential) credentialDoc {
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return credentialDoc{
		ID:               c.ID,
		MintAddress:      c.MintAddress,
		Holder:           c.Holder,
		Authority:        c.Authority,
		Name:             c.Name,
		Symbol:           c.Symbol,
		MetadataURI:      c.MetadataURI,
		Network:          c.Network,
		Status:           string(c.Status),
		CreateSignature:  c.CreateSignature,
		RevokeSignature:  c.RevokeSignature,
		RevokeReason:     c.RevokeReason,
		LastVerification: string(c.LastVerification),
		LastVerifiedAt:   c.LastVerifiedAt,
		IssuedAt:         c.IssuedAt.UTC(),
		RevokedAt:        c.RevokedAt,
		UpdatedAt:        updated.UTC(),
	}
}

func fromDoc(d credentialDoc) sbt.Credential {
	return sbt.Credential{
		ID:               d.ID,
		MintAddress:      d.MintAddress,
		Holder:           d.Holder,
		Authority:        d.Authority,
		Name:             d.Name,
		Symbol:           d.Symbol,
		MetadataURI:      d.MetadataURI,
		Network:          d.Network,
		Status:           sbt.Status(d.Status),
		CreateSignature:  d.CreateSignature,
		RevokeSignature:  d.RevokeSignature,
		RevokeReason:     d.RevokeReason,
		LastVerification: sbt.VerificationOutcome(d.LastVerification),
		LastVerifiedAt:   d.LastVerifiedAt,
		IssuedAt:         d.IssuedAt,
		RevokedAt:        d.RevokedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
