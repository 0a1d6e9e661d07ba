package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/retry"
)

type harness struct {
	ledger   *fakeLedger
	records  *memRecords
	notifier *recordingNotifier
	sleeps   *sleepRecorder
	uc       *SBTUsecase
}

func newHarness(t *testing.T, f *fakeLedger) *harness {
	t.Helper()
	h := &harness{ledger: f, records: newMemRecords(), notifier: &recordingNotifier{}, sleeps: &sleepRecorder{}}

	guard := NewFundingGuard(f, FundingOptions{
		AirdropAmount:  ledger.MustSOL("1"),
		MaxAirdrops:    3,
		AirdropDelay:   3 * time.Second,
		SettleDelay:    2 * time.Second,
		AirdropAllowed: true,
	})
	guard.Sleep = h.sleeps.sleep

	policy := retry.Policy{MaxAttempts: 3, Delay: retry.Fixed(5 * time.Second), Sleep: h.sleeps.sleep}
	h.uc = NewSBTUsecase(f, f, guard, policy, h.records, h.notifier, SBTOptions{
		Network:       "devnet",
		CreateMin:     ledger.MustSOL("0.02"),
		BurnMin:       ledger.MustSOL("0.01"),
		SyncDelay:     3 * time.Second,
		Countdown:     5 * time.Second,
		ExplorerTxURL: func(sig string) string { return "https://explorer.solana.com/tx/" + sig + "?cluster=devnet" },
	}, func() string { return recipientAddr })
	h.uc.Sleep = h.sleeps.sleep
	h.uc.NewID = func() string { return "cred-1" }
	h.uc.Now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return h
}

func issueInput() IssueInput {
	return IssueInput{
		Authority:   fakeSigner(authorityAddr),
		HolderEmail: "holder@example.org",
		Name:        "Proof of Governance",
		Symbol:      "POG",
		URI:         metadataURI,
	}
}

// ========================================
// Issue
// ========================================

func TestIssue_SuccessAfterTwoFailures(t *testing.T) {
	f := &fakeLedger{
		balance:  ledger.MustSOL("0.5"),
		mintErrs: []error{errors.New("blockhash not found"), errors.New("node is behind")},
	}
	f.inspectFn = soulBoundState
	h := newHarness(t, f)

	res, err := h.uc.Issue(context.Background(), issueInput())
	require.NoError(t, err)

	assert.Equal(t, 3, f.mintCalls)
	assert.Equal(t, mintAddr, res.Mint.MintAddress)
	assert.Equal(t, authorityAddr, res.Mint.Holder)
	assert.Equal(t, 0, res.Funding.Requested)
	// sync delay, then two retry delays
	assert.Equal(t, []time.Duration{3 * time.Second, 5 * time.Second, 5 * time.Second}, h.sleeps.delays)
	assert.Empty(t, res.Warnings)

	assert.True(t, res.Recorded)
	stored, err := h.records.GetByMint(context.Background(), mintAddr)
	require.NoError(t, err)
	assert.Equal(t, "cred-1", stored.ID)
	assert.Equal(t, sbt.StatusIssued, stored.Status)
	assert.Equal(t, "create-sig", stored.CreateSignature)

	assert.True(t, res.Notified)
	require.Len(t, h.notifier.notices, 1)
	assert.Equal(t, NoticeIssued, h.notifier.notices[0].Kind)
	assert.Contains(t, h.notifier.notices[0].ExplorerURL, "create-sig")
}

func TestIssue_ExhaustedCarriesLastError(t *testing.T) {
	f := &fakeLedger{
		balance:  ledger.MustSOL("1"),
		mintErrs: []error{errors.New("e1"), errors.New("e2"), errors.New("e3")},
	}
	h := newHarness(t, f)

	_, err := h.uc.Issue(context.Background(), issueInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrOperationExhausted)

	var ex *retry.ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.EqualError(t, ex.Last, "e3")
	assert.Equal(t, 3, f.mintCalls)
	assert.Empty(t, h.records.byMint)
}

func TestIssue_InsufficientFundsAborts(t *testing.T) {
	f := &fakeLedger{airdropErrs: []error{errors.New("x"), errors.New("y"), errors.New("z")}}
	h := newHarness(t, f)

	_, err := h.uc.Issue(context.Background(), issueInput())
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 0, f.mintCalls)
}

func TestIssue_InvalidInput(t *testing.T) {
	h := newHarness(t, &fakeLedger{balance: ledger.MustSOL("1")})

	in := issueInput()
	in.URI = ""
	_, err := h.uc.Issue(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, sbt.ErrInvalidMetadataURI)

	in = issueInput()
	in.Holder = "PASTE_HOLDER_HERE"
	_, err = h.uc.Issue(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = issueInput()
	in.Authority = nil
	_, err = h.uc.Issue(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, h.ledger.mintCalls)
}

func TestIssue_ShapeWarnings(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("1")}
	f.state = ledger.TokenState{MintExists: true, AccountExists: true, Amount: 1, FreezeAuthority: authorityAddr, MintAuthority: authorityAddr}
	h := newHarness(t, f)

	res, err := h.uc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 2) // not frozen, mint authority kept
}

// ========================================
// Verify
// ========================================

func TestVerify_FrozenRejectionIsSuccess(t *testing.T) {
	f := &fakeLedger{
		balance:      ledger.MustSOL("1"),
		transferErrs: []error{fmt.Errorf("%w: custom program error: 0x11", ledger.ErrTransferRejected)},
	}
	f.inspectFn = soulBoundState
	h := newHarness(t, f)
	cred, err := sbt.New("cred-1", mintAddr, authorityAddr, authorityAddr, "Proof of Governance", "POG", metadataURI, "devnet", "sig", time.Now())
	require.NoError(t, err)
	require.NoError(t, h.records.Create(context.Background(), cred))

	res, err := h.uc.Verify(context.Background(), VerifyInput{Holder: fakeSigner(authorityAddr), MintAddress: mintAddr})
	require.NoError(t, err)

	assert.Equal(t, sbt.OutcomeRejected, res.Outcome)
	assert.Equal(t, recipientAddr, res.Recipient)
	assert.Contains(t, res.Detail, "0x11")
	assert.Equal(t, 1, f.transferCalls)
	assert.True(t, res.Recorded)
	assert.Equal(t, sbt.OutcomeRejected, h.records.byMint[mintAddr].LastVerification)
}

func TestVerify_TransferSucceededIsCritical(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("1")}
	f.inspectFn = soulBoundState
	h := newHarness(t, f)

	res, err := h.uc.Verify(context.Background(), VerifyInput{Holder: fakeSigner(authorityAddr), MintAddress: mintAddr})
	assert.ErrorIs(t, err, ErrTransferSucceeded)
	assert.Equal(t, sbt.OutcomeTransferred, res.Outcome)
	assert.Equal(t, "transfer-sig", res.Signature)
}

func TestVerify_UnrelatedErrorsAreInconclusive(t *testing.T) {
	f := &fakeLedger{
		balance:      ledger.MustSOL("1"),
		transferErrs: []error{errors.New("a"), errors.New("b"), errors.New("insufficient funds for rent")},
	}
	f.inspectFn = soulBoundState
	h := newHarness(t, f)

	res, err := h.uc.Verify(context.Background(), VerifyInput{Holder: fakeSigner(authorityAddr), MintAddress: mintAddr})
	assert.ErrorIs(t, err, ErrVerifyInconclusive)
	assert.ErrorIs(t, err, retry.ErrOperationExhausted)
	assert.Equal(t, sbt.OutcomeInconclusive, res.Outcome)
	assert.Contains(t, res.Detail, "insufficient funds for rent")
	assert.Equal(t, 3, f.transferCalls)
}

func TestVerify_MissingMint(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("1")}
	h := newHarness(t, f)

	_, err := h.uc.Verify(context.Background(), VerifyInput{Holder: fakeSigner(authorityAddr), MintAddress: mintAddr})
	assert.ErrorIs(t, err, ErrMintNotFound)
	assert.Equal(t, 0, f.transferCalls)
}

// ========================================
// Revoke
// ========================================

func TestRevoke_CountdownThenBurn(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("0.05"), burnErrs: []error{errors.New("blockhash expired")}}
	f.inspectFn = soulBoundState
	h := newHarness(t, f)
	cred, err := sbt.New("cred-1", mintAddr, authorityAddr, authorityAddr, "Proof of Governance", "POG", metadataURI, "devnet", "sig", time.Now())
	require.NoError(t, err)
	require.NoError(t, h.records.Create(context.Background(), cred))

	var ticks []time.Duration
	res, err := h.uc.Revoke(context.Background(), RevokeInput{
		Authority:   fakeSigner(authorityAddr),
		MintAddress: mintAddr,
		Reason:      "Governance violation",
		HolderEmail: "holder@example.org",
		OnTick:      func(d time.Duration) { ticks = append(ticks, d) },
	})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{5 * time.Second, 4 * time.Second, 3 * time.Second, 2 * time.Second, time.Second}, ticks)
	assert.Equal(t, 2, f.burnCalls)
	assert.Equal(t, "burn-sig", res.Burn.Signature)
	assert.Nil(t, f.burnReqs[0].HolderOwner)

	stored := h.records.byMint[mintAddr]
	assert.Equal(t, sbt.StatusRevoked, stored.Status)
	assert.Equal(t, "Governance violation", stored.RevokeReason)
	assert.True(t, res.Recorded)

	require.Len(t, h.notifier.notices, 1)
	assert.Equal(t, NoticeRevoked, h.notifier.notices[0].Kind)
}

func TestRevoke_CancelledDuringCountdown(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("1")}
	f.inspectFn = soulBoundState
	h := newHarness(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := h.uc.Revoke(ctx, RevokeInput{
		Authority:   fakeSigner(authorityAddr),
		MintAddress: mintAddr,
		OnTick: func(d time.Duration) {
			if d == 3*time.Second {
				cancel()
			}
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.burnCalls)
}

func TestRevoke_MintMissing(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("1")}
	h := newHarness(t, f)

	_, err := h.uc.Revoke(context.Background(), RevokeInput{Authority: fakeSigner(authorityAddr), MintAddress: mintAddr})
	assert.ErrorIs(t, err, ErrMintNotFound)
	assert.Equal(t, 0, f.burnCalls)
}

func TestRevoke_NoTokenAccountFailsBeforeCountdown(t *testing.T) {
	cases := map[string]ledger.TokenState{
		"no account":    {MintAddress: mintAddr, MintExists: true, Supply: 1, Holder: authorityAddr},
		"empty account": {MintAddress: mintAddr, MintExists: true, Supply: 1, Holder: authorityAddr, AccountExists: true},
	}
	for name, state := range cases {
		t.Run(name, func(t *testing.T) {
			f := &fakeLedger{balance: ledger.MustSOL("1"), state: state}
			h := newHarness(t, f)

			ticks := 0
			_, err := h.uc.Revoke(context.Background(), RevokeInput{
				Authority:   fakeSigner(authorityAddr),
				MintAddress: mintAddr,
				OnTick:      func(time.Duration) { ticks++ },
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, err, ledger.ErrNotTokenOwner)
			assert.Contains(t, err.Error(), "holder.signer")
			assert.Zero(t, ticks)
			assert.Empty(t, h.sleeps.delays)
			assert.Equal(t, 0, f.burnCalls)
		})
	}
}

func TestRevoke_InvalidMint(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("1")}
	h := newHarness(t, f)

	_, err := h.uc.Revoke(context.Background(), RevokeInput{Authority: fakeSigner(authorityAddr), MintAddress: "PASTE_SBT_ADDRESS_HERE"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, f.airdropCalls)
}

func TestRevoke_HolderSignerIsPassedThrough(t *testing.T) {
	f := &fakeLedger{balance: ledger.MustSOL("1")}
	f.inspectFn = soulBoundState
	h := newHarness(t, f)

	_, err := h.uc.Revoke(context.Background(), RevokeInput{
		Authority:   fakeSigner(authorityAddr),
		HolderOwner: fakeSigner(holderAddr),
		MintAddress: mintAddr,
	})
	require.NoError(t, err)
	require.Len(t, f.burnReqs, 1)
	assert.Equal(t, holderAddr, f.burnReqs[0].HolderOwner.Address())
	assert.Empty(t, h.notifier.notices, "no e-mail configured")
}
