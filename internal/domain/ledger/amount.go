// internal/domain/ledger/amount.go
package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the fixed lamport/SOL ratio.
const LamportsPerSOL uint64 = 1_000_000_000

var lamportsPerSOL = decimal.NewFromInt(int64(LamportsPerSOL))

var ErrAmountOutOfRange = errors.New("ledger: amount out of range")

// Lamports is an on-chain balance in the smallest unit.
type Lamports uint64

// FromSOL converts a SOL amount to lamports (truncating below one lamport).
// Negative amounts and amounts above MaxUint64 lamports are rejected.
func FromSOL(sol decimal.Decimal) (Lamports, error) {
	if sol.IsNegative() {
		return 0, fmt.Errorf("%w: %s SOL is negative", ErrAmountOutOfRange, sol)
	}
	n := sol.Mul(lamportsPerSOL).Truncate(0).BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s SOL exceeds %d lamports", ErrAmountOutOfRange, sol, uint64(1<<64-1))
	}
	return Lamports(n.Uint64()), nil
}

// MustSOL parses a decimal string such as "0.02". It panics on malformed or
// out-of-range input and is meant for constants.
func MustSOL(s string) Lamports {
	l, err := FromSOL(decimal.RequireFromString(s))
	if err != nil {
		panic(err)
	}
	return l
}

// SOL returns the amount in SOL.
func (l Lamports) SOL() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(l)), 0).Div(lamportsPerSOL)
}

// String renders the balance the way the reports print it: "0.5000 SOL".
func (l Lamports) String() string {
	return l.SOL().StringFixed(4) + " SOL"
}

// Deficit returns how many lamports are missing to reach required (0 when sufficient).
func (l Lamports) Deficit(required Lamports) Lamports {
	if l >= required {
		return 0
	}
	return required - l
}
