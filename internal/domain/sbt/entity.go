// internal/domain/sbt/entity.go
package sbt

import (
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle state of an issued credential.
type Status string

const (
	StatusIssued  Status = "issued"
	StatusRevoked Status = "revoked"
)

// VerificationOutcome classifies a non-transferability check.
type VerificationOutcome string

const (
	// OutcomeRejected: the ledger refused the transfer. This is the expected result.
	OutcomeRejected VerificationOutcome = "rejected"
	// OutcomeTransferred: the transfer went through. Contract violation.
	OutcomeTransferred VerificationOutcome = "transferred"
	// OutcomeInconclusive: the transfer failed for an unrelated reason.
	OutcomeInconclusive VerificationOutcome = "inconclusive"
)

// Credential is the off-chain record of one soul-bound governance credential.
// The ledger stays the source of truth; this record is an audit trail.
type Credential struct {
	ID              string
	MintAddress     string // Solana mint (base58, 32-byte pubkey)
	Holder          string // wallet address of the credential holder
	Authority       string // issuer / freeze authority
	Name            string
	Symbol          string
	MetadataURI     string
	Network         string
	Status          Status
	CreateSignature string

	RevokeSignature string
	RevokeReason    string

	LastVerification VerificationOutcome
	LastVerifiedAt   *time.Time
	IssuedAt         time.Time
	RevokedAt        *time.Time
	UpdatedAt        time.Time
}

// Errors
var (
	ErrNotFound           = errors.New("sbt: not found")
	ErrAlreadyExists      = errors.New("sbt: already exists")
	ErrInvalidMintAddress = errors.New("sbt: invalid mintAddress")
	ErrInvalidHolder      = errors.New("sbt: invalid holder")
	ErrInvalidAuthority   = errors.New("sbt: invalid authority")
	ErrInvalidName        = errors.New("sbt: invalid name")
	ErrInvalidSymbol      = errors.New("sbt: invalid symbol")
	ErrInvalidMetadataURI = errors.New("sbt: invalid metadataUri")
	ErrAlreadyRevoked     = errors.New("sbt: already revoked")
)

// Policy
var (
	// Solana pubkey is 32 bytes base58-encoded; observed length typically 32..44.
	Base58MinLen   = 32
	Base58MaxLen   = 44
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	// Metaplex DataV2 limits.
	MaxNameLen   = 32
	MaxSymbolLen = 10
	MaxURILen    = 200
)

// New builds an issued credential record.
func New(id, mintAddress, holder, authority, name, symbol, uri, network, signature string, issuedAt time.Time) (Credential, error) {
	c := Credential{
		ID:              strings.TrimSpace(id),
		MintAddress:     strings.TrimSpace(mintAddress),
		Holder:          strings.TrimSpace(holder),
		Authority:       strings.TrimSpace(authority),
		Name:            strings.TrimSpace(name),
		Symbol:          strings.TrimSpace(symbol),
		MetadataURI:     strings.TrimSpace(uri),
		Network:         strings.TrimSpace(network),
		Status:          StatusIssued,
		CreateSignature: strings.TrimSpace(signature),
		IssuedAt:        issuedAt.UTC(),
		UpdatedAt:       issuedAt.UTC(),
	}
	if err := c.validate(); err != nil {
		return Credential{}, err
	}
	return c, nil
}

// Revoke marks the credential burned.
func (c *Credential) Revoke(signature, reason string, at time.Time) error {
	if c.Status == StatusRevoked {
		return ErrAlreadyRevoked
	}
	t := at.UTC()
	c.Status = StatusRevoked
	c.RevokeSignature = strings.TrimSpace(signature)
	c.RevokeReason = strings.TrimSpace(reason)
	c.RevokedAt = &t
	c.UpdatedAt = t
	return nil
}

// RecordVerification stores the latest non-transferability check.
func (c *Credential) RecordVerification(outcome VerificationOutcome, at time.Time) {
	t := at.UTC()
	c.LastVerification = outcome
	c.LastVerifiedAt = &t
	c.UpdatedAt = t
}

// Validation

func (c Credential) validate() error {
	if !IsValidAddress(c.MintAddress) {
		return ErrInvalidMintAddress
	}
	if !IsValidAddress(c.Holder) {
		return ErrInvalidHolder
	}
	if !IsValidAddress(c.Authority) {
		return ErrInvalidAuthority
	}
	return ValidateTokenData(c.Name, c.Symbol, c.MetadataURI)
}

// ValidateTokenData checks on-chain metadata field limits.
func ValidateTokenData(name, symbol, uri string) error {
	name, symbol, uri = strings.TrimSpace(name), strings.TrimSpace(symbol), strings.TrimSpace(uri)
	if name == "" || len(name) > MaxNameLen {
		return ErrInvalidName
	}
	if symbol == "" || len(symbol) > MaxSymbolLen {
		return ErrInvalidSymbol
	}
	if uri == "" || len(uri) > MaxURILen ||
		!(strings.HasPrefix(uri, "https://") || strings.HasPrefix(uri, "http://")) {
		return ErrInvalidMetadataURI
	}
	return nil
}

// Helpers

// IsValidAddress is an approximate base58 pubkey check (length + alphabet).
func IsValidAddress(s string) bool {
	if s = strings.TrimSpace(s); s == "" {
		return false
	}
	if len(s) < Base58MinLen || (Base58MaxLen > 0 && len(s) > Base58MaxLen) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(base58Alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// CredentialsTableDDL defines the SQL for the credentials table.
const CredentialsTableDDL = `
BEGIN;

CREATE TABLE IF NOT EXISTS sbt_credentials (
  id                 TEXT        PRIMARY KEY,
  mint_address       TEXT        NOT NULL UNIQUE,
  holder             TEXT        NOT NULL,
  authority          TEXT        NOT NULL,
  name               TEXT        NOT NULL,
  symbol             TEXT        NOT NULL,
  metadata_uri       TEXT        NOT NULL,
  network            TEXT        NOT NULL,
  status             TEXT        NOT NULL DEFAULT 'issued',
  create_signature   TEXT        NOT NULL DEFAULT '',
  revoke_signature   TEXT        NOT NULL DEFAULT '',
  revoke_reason      TEXT        NOT NULL DEFAULT '',
  last_verification  TEXT        NOT NULL DEFAULT '',
  last_verified_at   TIMESTAMPTZ,
  issued_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  revoked_at         TIMESTAMPTZ,
  updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),

  CONSTRAINT chk_sbt_status CHECK (status IN ('issued', 'revoked'))
);

CREATE INDEX IF NOT EXISTS idx_sbt_credentials_holder    ON sbt_credentials(holder);
CREATE INDEX IF NOT EXISTS idx_sbt_credentials_authority ON sbt_credentials(authority);

COMMIT;
`
