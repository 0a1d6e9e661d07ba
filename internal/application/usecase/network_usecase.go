// internal/application/usecase/network_usecase.go
package usecase

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
)

type NetworkReport struct {
	Info    ledger.NetworkInfo
	Address string // optional wallet whose balance was read
	Balance ledger.Lamports
	HasBal  bool
}

// NetworkUsecase probes the RPC endpoint.
type NetworkUsecase struct {
	ledger ledger.TokenLedger
	client ledger.Client
}

func NewNetworkUsecase(tl ledger.TokenLedger, client ledger.Client) *NetworkUsecase {
	return &NetworkUsecase{ledger: tl, client: client}
}

// Check reads the node version and a blockhash, and the balance of address when set.
func (u *NetworkUsecase) Check(ctx context.Context, address string) (NetworkReport, error) {
	var rep NetworkReport
	info, err := u.ledger.Network(ctx)
	if err != nil {
		return rep, fmt.Errorf("network check: %w", err)
	}
	rep.Info = info
	log.WithFields(log.Fields{"endpoint": info.Endpoint, "version": info.CoreVersion}).Info("[network] connected")

	if address != "" {
		bal, err := u.client.GetBalance(ctx, address)
		if err != nil {
			return rep, fmt.Errorf("balance of %s: %w", address, err)
		}
		rep.Address, rep.Balance, rep.HasBal = address, bal, true
	}
	return rep, nil
}
