// internal/application/usecase/query_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
)

// CredentialView joins the on-chain state of one mint with its stored record.
type CredentialView struct {
	State  ledger.TokenState
	Record *sbt.Credential
}

// HoldingView is one token held by a wallet, flagged when it has the SBT shape.
type HoldingView struct {
	Holding   ledger.Holding
	SoulBound bool
	Record    *sbt.Credential
}

// QueryUsecase serves read-only lookups (CLI holdings, HTTP API).
type QueryUsecase struct {
	ledger   ledger.TokenLedger
	holdings ledger.HoldingsReader
	records  sbt.RepositoryPort // nil: on-chain data only
}

func NewQueryUsecase(tl ledger.TokenLedger, holdings ledger.HoldingsReader, records sbt.RepositoryPort) *QueryUsecase {
	return &QueryUsecase{ledger: tl, holdings: holdings, records: records}
}

// GetCredential inspects mint (and holder's account when holder is set, otherwise the
// holder stored in the record).
func (u *QueryUsecase) GetCredential(ctx context.Context, mint, holder string) (CredentialView, error) {
	var v CredentialView
	mint = strings.TrimSpace(mint)
	if !sbt.IsValidAddress(mint) {
		return v, fmt.Errorf("%w: mint address %q", ErrInvalidInput, mint)
	}
	holder = strings.TrimSpace(holder)
	if holder != "" && !sbt.IsValidAddress(holder) {
		return v, fmt.Errorf("%w: holder address %q", ErrInvalidInput, holder)
	}

	v.Record = u.lookup(ctx, mint)
	if holder == "" && v.Record != nil {
		holder = v.Record.Holder
	}

	st, err := u.ledger.Inspect(ctx, mint, holder)
	if err != nil {
		return v, err
	}
	v.State = st
	if !st.MintExists && v.Record == nil {
		return v, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
	}
	return v, nil
}

// ListWallet returns the wallet's holdings. Records listed for the wallet are
// attached by mint.
func (u *QueryUsecase) ListWallet(ctx context.Context, owner string) ([]HoldingView, error) {
	owner = strings.TrimSpace(owner)
	if !sbt.IsValidAddress(owner) {
		return nil, fmt.Errorf("%w: wallet address %q", ErrInvalidInput, owner)
	}
	hs, err := u.holdings.ListHoldings(ctx, owner)
	if err != nil {
		return nil, err
	}

	byMint := map[string]sbt.Credential{}
	if u.records != nil {
		if recs, err := u.records.ListByHolder(ctx, owner); err == nil {
			for _, r := range recs {
				byMint[r.MintAddress] = r
			}
		}
	}

	out := make([]HoldingView, 0, len(hs))
	for _, h := range hs {
		hv := HoldingView{Holding: h, SoulBound: h.Frozen && h.Amount == 1 && h.Decimals == 0}
		if r, ok := byMint[h.Mint]; ok {
			hv.Record = &r
		}
		out = append(out, hv)
	}
	return out, nil
}

func (u *QueryUsecase) lookup(ctx context.Context, mint string) *sbt.Credential {
	if u.records == nil {
		return nil
	}
	c, err := u.records.GetByMint(ctx, mint)
	if err != nil {
		if !errors.Is(err, sbt.ErrNotFound) {
			log.WithError(err).WithField("mint", mint).Warn("[query] record lookup failed")
		}
		return nil
	}
	return &c
}
