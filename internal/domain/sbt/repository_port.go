// internal/domain/sbt/repository_port.go
package sbt

import "context"

// RepositoryPort persists credential records. Implementations return ErrNotFound
// for unknown mints and ErrAlreadyExists when Create sees a known mint.
type RepositoryPort interface {
	Create(ctx context.Context, c Credential) error
	GetByMint(ctx context.Context, mintAddress string) (Credential, error)
	Update(ctx context.Context, c Credential) error
	ListByHolder(ctx context.Context, holder string) ([]Credential, error)
}
