package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSOL(t *testing.T) {
	one, err := FromSOL(decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, Lamports(1_000_000_000), one)
	assert.Equal(t, Lamports(20_000_000), MustSOL("0.02"))
	assert.Equal(t, Lamports(1), MustSOL("0.0000000019"))

	_, err = FromSOL(decimal.NewFromInt(-3))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestFromSOL_RejectsAmountsAboveUint64(t *testing.T) {
	top, err := FromSOL(decimal.RequireFromString("18446744073.709551615"))
	require.NoError(t, err)
	assert.Equal(t, Lamports(1<<64-1), top)

	got, err := FromSOL(decimal.RequireFromString("18446744073.709551616"))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	assert.Equal(t, Lamports(0), got)

	assert.Panics(t, func() { MustSOL("1e30") })
}

func TestLamportsString(t *testing.T) {
	assert.Equal(t, "0.5000 SOL", MustSOL("0.5").String())
	assert.Equal(t, "0.0000 SOL", Lamports(0).String())
	assert.True(t, MustSOL("1.25").SOL().Equal(decimal.RequireFromString("1.25")))
}

func TestDeficit(t *testing.T) {
	assert.Equal(t, Lamports(0), MustSOL("0.5").Deficit(MustSOL("0.1")))
	assert.Equal(t, MustSOL("0.5"), Lamports(0).Deficit(MustSOL("0.5")))
}

func TestTokenStateSoulBound(t *testing.T) {
	s := TokenState{MintExists: true, AccountExists: true, Amount: 1, Frozen: true, FreezeAuthority: "Auth"}
	assert.True(t, s.SoulBound())

	s.Frozen = false
	assert.False(t, s.SoulBound())
}
