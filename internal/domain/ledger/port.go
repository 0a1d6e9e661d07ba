// internal/domain/ledger/port.go
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound  = errors.New("ledger: account not found")
	ErrTransferRejected = errors.New("ledger: transfer rejected")
	ErrNotTokenOwner    = errors.New("ledger: signer does not own the token account")
	ErrNotConfirmed     = errors.New("ledger: signature not confirmed")
)

// Client is the funding side of the ledger: balance reads and faucet requests.
type Client interface {
	GetBalance(ctx context.Context, address string) (Lamports, error)
	RequestAirdrop(ctx context.Context, address string, amount Lamports) (string, error)
	ConfirmSignature(ctx context.Context, signature string) error
}

// TokenLedger submits and inspects soul-bound token state.
type TokenLedger interface {
	MintSoulBound(ctx context.Context, req MintRequest) (MintResult, error)
	Transfer(ctx context.Context, req TransferRequest) (string, error)
	Burn(ctx context.Context, req BurnRequest) (BurnResult, error)
	Inspect(ctx context.Context, mintAddress, holder string) (TokenState, error)
	Network(ctx context.Context) (NetworkInfo, error)
}

// Signer is an opaque handle to key material held by the ledger adapter.
// Only the public address leaves the adapter.
type Signer interface {
	Address() string
}

// ========================================
// 入出力
// ========================================

type MintRequest struct {
	Authority            Signer
	Holder               string // defaults to the authority address
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

type MintResult struct {
	MintAddress  string
	TokenAccount string
	Holder       string
	Signature    string
}

type TransferRequest struct {
	Owner       Signer
	MintAddress string
	Recipient   string
	Amount      uint64
}

type BurnRequest struct {
	Authority   Signer
	HolderOwner Signer // nil when the authority holds the token itself
	MintAddress string
}

type BurnResult struct {
	Signature    string
	TokenAccount string
	Thawed       bool
}

// TokenState is a point-in-time snapshot of one SBT as read from the ledger.
type TokenState struct {
	MintAddress     string
	MintExists      bool
	Supply          uint64
	Decimals        uint8
	MintAuthority   string // empty when revoked
	FreezeAuthority string

	Holder         string
	TokenAccount   string
	AccountExists  bool
	Amount         uint64
	Frozen         bool
	MetadataName   string
	MetadataSymbol string
	MetadataURI    string
}

// SoulBound reports whether the snapshot has the shape of an issued SBT:
// a single unit, held in a frozen account, with a freeze authority present.
func (s TokenState) SoulBound() bool {
	return s.MintExists && s.AccountExists && s.Amount == 1 && s.Frozen && s.FreezeAuthority != ""
}

type NetworkInfo struct {
	Endpoint    string
	Cluster     string
	CoreVersion string
	Blockhash   string
	CheckedAt   time.Time
}

// Holding is one non-empty SPL token account owned by a wallet.
type Holding struct {
	Mint         string
	TokenAccount string
	Amount       uint64
	Decimals     int
	Frozen       bool
}

// HoldingsReader lists the token accounts a wallet owns.
type HoldingsReader interface {
	ListHoldings(ctx context.Context, owner string) ([]Holding, error)
}
