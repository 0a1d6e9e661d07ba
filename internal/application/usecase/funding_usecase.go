// internal/application/usecase/funding_usecase.go
package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/retry"
)

// FundingOptions bounds the faucet top-up loop.
type FundingOptions struct {
	AirdropAmount  ledger.Lamports // floor per request; larger deficits request twice the deficit
	MaxAirdrops    int
	AirdropDelay   time.Duration // between requests, never after the last
	SettleDelay    time.Duration // before the final balance read
	AirdropAllowed bool          // false on mainnet
}

// FundingReport describes one EnsureBalance run.
type FundingReport struct {
	Address    string
	Required   ledger.Lamports
	Initial    ledger.Lamports
	Final      ledger.Lamports
	Requested  int // airdrop requests issued
	Succeeded  int
	Failures   []string
	Sufficient bool
}

// FundingGuard checks a balance against a minimum and tops it up from the faucet.
type FundingGuard struct {
	client ledger.Client
	opts   FundingOptions

	// Sleep is replaceable for tests.
	Sleep retry.SleepFunc
}

func NewFundingGuard(client ledger.Client, opts FundingOptions) *FundingGuard {
	return &FundingGuard{client: client, opts: opts, Sleep: retry.SleepContext}
}

// EnsureBalance returns immediately (zero requests) when the balance already covers
// required. Otherwise it requests airdrops one at a time, up to MaxAirdrops, until the
// balance is sufficient, then settles and reads the balance once more.
//
// Airdrop failures are logged and recorded in the report, never returned. The only
// error is context cancellation.
func (g *FundingGuard) EnsureBalance(ctx context.Context, address string, required ledger.Lamports) (FundingReport, error) {
	rep := FundingReport{Address: address, Required: required}

	rep.Initial = g.readBalance(ctx, address)
	rep.Final = rep.Initial
	if rep.Initial >= required {
		rep.Sufficient = true
		log.WithFields(log.Fields{"address": address, "balance": rep.Initial.String()}).Info("[funding] balance sufficient")
		return rep, nil
	}

	log.WithFields(log.Fields{
		"address":  address,
		"balance":  rep.Initial.String(),
		"required": required.String(),
	}).Warn("[funding] balance below minimum")

	if !g.opts.AirdropAllowed {
		rep.Failures = append(rep.Failures, "airdrop is not available on this network")
		return rep, nil
	}

	current := rep.Initial
	for attempt := 1; attempt <= g.opts.MaxAirdrops; attempt++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		rep.Requested++
		if err := g.airdrop(ctx, address, g.airdropSize(current, required)); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			msg := fmt.Sprintf("airdrop %d/%d: %v", attempt, g.opts.MaxAirdrops, err)
			rep.Failures = append(rep.Failures, msg)
			log.WithFields(log.Fields{"address": address, "attempt": attempt}).WithError(err).Warn("[funding] airdrop failed")
		} else {
			rep.Succeeded++
			current = g.readBalance(ctx, address)
			log.WithFields(log.Fields{"address": address, "attempt": attempt, "balance": current.String()}).Info("[funding] airdrop confirmed")
			if current >= required {
				break
			}
		}

		if attempt < g.opts.MaxAirdrops {
			if err := g.Sleep(ctx, g.opts.AirdropDelay); err != nil {
				return rep, err
			}
		}
	}

	if err := g.Sleep(ctx, g.opts.SettleDelay); err != nil {
		return rep, err
	}
	rep.Final = g.readBalance(ctx, address)
	rep.Sufficient = rep.Final >= required

	entry := log.WithFields(log.Fields{
		"address":   address,
		"final":     rep.Final.String(),
		"requested": rep.Requested,
	})
	if rep.Sufficient {
		entry.Info("[funding] balance topped up")
	} else {
		entry.Warn("[funding] balance still insufficient")
	}
	return rep, nil
}

// airdropSize asks for twice the missing amount, never less than AirdropAmount.
func (g *FundingGuard) airdropSize(current, required ledger.Lamports) ledger.Lamports {
	deficit := current.Deficit(required)
	size := deficit * 2
	if size < deficit {
		size = ledger.Lamports(math.MaxUint64)
	}
	if size < g.opts.AirdropAmount {
		size = g.opts.AirdropAmount
	}
	return size
}

func (g *FundingGuard) airdrop(ctx context.Context, address string, amount ledger.Lamports) error {
	sig, err := g.client.RequestAirdrop(ctx, address, amount)
	if err != nil {
		return err
	}
	return g.client.ConfirmSignature(ctx, sig)
}

// readBalance treats a failed read as zero: the guard then tries to fund.
func (g *FundingGuard) readBalance(ctx context.Context, address string) ledger.Lamports {
	bal, err := g.client.GetBalance(ctx, address)
	if err != nil {
		log.WithField("address", address).WithError(err).Warn("[funding] balance read failed")
		return 0
	}
	return bal
}

// Summary renders the failures of a report as one line.
func (r FundingReport) Summary() string {
	if len(r.Failures) == 0 {
		return ""
	}
	return strings.Join(r.Failures, "; ")
}
