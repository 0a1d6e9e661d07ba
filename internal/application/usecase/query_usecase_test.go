package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
)

type fakeHoldings struct {
	items []ledger.Holding
}

func (f fakeHoldings) ListHoldings(context.Context, string) ([]ledger.Holding, error) {
	return f.items, nil
}

func TestQuery_GetCredentialUsesRecordHolder(t *testing.T) {
	var gotHolder string
	f := &fakeLedger{inspectFn: func(mint, holder string) ledger.TokenState {
		gotHolder = holder
		return soulBoundState(mint, holder)
	}}
	recs := newMemRecords()
	cred, err := sbt.New("id", mintAddr, holderAddr, authorityAddr, "Proof of Governance", "POG", metadataURI, "devnet", "sig", time.Now())
	require.NoError(t, err)
	require.NoError(t, recs.Create(context.Background(), cred))

	v, err := NewQueryUsecase(f, fakeHoldings{}, recs).GetCredential(context.Background(), mintAddr, "")
	require.NoError(t, err)
	assert.Equal(t, holderAddr, gotHolder)
	require.NotNil(t, v.Record)
	assert.True(t, v.State.SoulBound())
}

func TestQuery_GetCredentialMissing(t *testing.T) {
	q := NewQueryUsecase(&fakeLedger{}, fakeHoldings{}, nil)

	_, err := q.GetCredential(context.Background(), mintAddr, "")
	assert.ErrorIs(t, err, ErrMintNotFound)

	_, err = q.GetCredential(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQuery_ListWallet(t *testing.T) {
	recs := newMemRecords()
	cred, err := sbt.New("id", mintAddr, holderAddr, authorityAddr, "Proof of Governance", "POG", metadataURI, "devnet", "sig", time.Now())
	require.NoError(t, err)
	require.NoError(t, recs.Create(context.Background(), cred))

	q := NewQueryUsecase(&fakeLedger{}, fakeHoldings{items: []ledger.Holding{
		{Mint: mintAddr, Amount: 1, Frozen: true},
		{Mint: recipientAddr, Amount: 100, Decimals: 6},
	}}, recs)

	got, err := q.ListWallet(context.Background(), holderAddr)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].SoulBound)
	require.NotNil(t, got[0].Record)
	assert.Equal(t, "id", got[0].Record.ID)
	assert.False(t, got[1].SoulBound)
	assert.Nil(t, got[1].Record)
}

func TestNetworkCheck(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("2")}
	rep, err := NewNetworkUsecase(f, f).Check(context.Background(), authorityAddr)
	require.NoError(t, err)
	assert.Equal(t, "1.18.0", rep.Info.CoreVersion)
	assert.True(t, rep.HasBal)
	assert.Equal(t, ledger.MustSOL("2"), rep.Balance)
}
