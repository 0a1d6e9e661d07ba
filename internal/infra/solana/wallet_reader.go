// internal/infra/solana/wallet_reader.go
package solana

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
)

// WalletReader implements ledger.HoldingsReader over getTokenAccountsByOwner.
type WalletReader struct {
	Client RPCClient
}

var _ ledger.HoldingsReader = (*WalletReader)(nil)

func NewWalletReader(endpoint string) *WalletReader {
	return &WalletReader{Client: NewJSONRPCClient(endpoint)}
}

// ListHoldings returns the wallet's non-empty token accounts, one per mint, in
// RPC order. Zero-balance accounts (e.g. left after a burn without close) are skipped.
func (r *WalletReader) ListHoldings(ctx context.Context, owner string) ([]ledger.Holding, error) {
	if r == nil || r.Client == nil {
		return nil, fmt.Errorf("solana wallet reader: client not configured")
	}
	addr := strings.TrimSpace(owner)
	if addr == "" {
		return nil, fmt.Errorf("solana wallet reader: owner is empty")
	}

	accounts, err := r.Client.TokenAccountsByOwner(ctx, addr, TokenProgramID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(accounts))
	out := make([]ledger.Holding, 0, len(accounts))

	for _, v := range accounts {
		info := v.Info()
		mint := strings.TrimSpace(info.Mint)
		if mint == "" {
			continue
		}
		amt, err := strconv.ParseUint(strings.TrimSpace(info.TokenAmount.Amount), 10, 64)
		if err != nil || amt == 0 {
			continue
		}
		if _, ok := seen[mint]; ok {
			continue
		}
		seen[mint] = struct{}{}
		out = append(out, ledger.Holding{
			Mint:         mint,
			TokenAccount: v.Pubkey,
			Amount:       amt,
			Decimals:     info.TokenAmount.Decimals,
			Frozen:       info.State == "frozen",
		})
	}
	return out, nil
}
