// internal/adapters/out/db/credential_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
)

// pq error code for unique_violation.
const uniqueViolation = "23505"

type CredentialRepositoryPG struct {
	DB *sql.DB
}

var _ sbt.RepositoryPort = (*CredentialRepositoryPG)(nil)

func NewCredentialRepositoryPG(db *sql.DB) *CredentialRepositoryPG {
	return &CredentialRepositoryPG{DB: db}
}

const credentialColumns = `
  id, mint_address, holder, authority, name, symbol, metadata_uri, network, status,
  create_signature, revoke_signature, revoke_reason, last_verification, last_verified_at,
  issued_at, revoked_at, updated_at`

// ========================================
// RepositoryPort implementation
// ========================================

func (r *CredentialRepositoryPG) Create(ctx context.Context, c sbt.Credential) error {
	const q = `
INSERT INTO sbt_credentials (` + credentialColumns + `
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := r.DB.ExecContext(ctx, q, credentialArgs(c)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sbt.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *CredentialRepositoryPG) GetByMint(ctx context.Context, mintAddress string) (sbt.Credential, error) {
	const q = `SELECT` + credentialColumns + `
FROM sbt_credentials
WHERE mint_address = $1
LIMIT 1`
	c, err := scanCredential(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(mintAddress)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sbt.Credential{}, sbt.ErrNotFound
		}
		return sbt.Credential{}, err
	}
	return c, nil
}

func (r *CredentialRepositoryPG) Update(ctx context.Context, c sbt.Credential) error {
	const q = `
UPDATE sbt_credentials SET
  holder = $2, authority = $3, name = $4, symbol = $5, metadata_uri = $6, network = $7,
  status = $8, create_signature = $9, revoke_signature = $10, revoke_reason = $11,
  last_verification = $12, last_verified_at = $13, revoked_at = $14, updated_at = $15
WHERE mint_address = $1`

	res, err := r.DB.ExecContext(ctx, q,
		c.MintAddress, c.Holder, c.Authority, c.Name, c.Symbol, c.MetadataURI, c.Network,
		string(c.Status), c.CreateSignature, c.RevokeSignature, c.RevokeReason,
		string(c.LastVerification), nullTime(c.LastVerifiedAt), nullTime(c.RevokedAt), updatedAt(c),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sbt.ErrNotFound
	}
	return nil
}

func (r *CredentialRepositoryPG) ListByHolder(ctx context.Context, holder string) ([]sbt.Credential, error) {
	const q = `SELECT` + credentialColumns + `
FROM sbt_credentials
WHERE holder = $1
ORDER BY issued_at DESC, mint_address ASC`
	rows, err := r.DB.QueryContext(ctx, q, strings.TrimSpace(holder))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sbt.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ========================================
// helpers
// ========================================

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (sbt.Credential, error) {
	var (
		c                       sbt.Credential
		status, lastVerif       string
		lastVerifiedAt, revoked sql.NullTime
	)
	if err := s.Scan(
		&c.ID, &c.MintAddress, &c.Holder, &c.Authority, &c.Name, &c.Symbol, &c.MetadataURI, &c.Network, &status,
		&c.CreateSignature, &c.RevokeSignature, &c.RevokeReason, &lastVerif, &lastVerifiedAt,
		&c.IssuedAt, &revoked, &c.UpdatedAt,
	); err != nil {
		return sbt.Credential{}, err
	}
	c.Status = sbt.Status(status)
	c.LastVerification = sbt.VerificationOutcome(lastVerif)
	c.LastVerifiedAt = timePtr(lastVerifiedAt)
	c.RevokedAt = timePtr(revoked)
	c.IssuedAt = c.IssuedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func credentialArgs(c sbt.Credential) []any {
	return []any{
		c.ID, c.MintAddress, c.Holder, c.Authority, c.Name, c.Symbol, c.MetadataURI, c.Network, string(c.Status),
		c.CreateSignature, c.RevokeSignature, c.RevokeReason, string(c.LastVerification), nullTime(c.LastVerifiedAt),
		c.IssuedAt.UTC(), nullTime(c.RevokedAt), updatedAt(c),
	}
}

func updatedAt(c sbt.Credential) time.Time {
	if c.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return c.UpdatedAt.UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
