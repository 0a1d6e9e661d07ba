// internal/application/usecase/sbt_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/retry"
)

var (
	ErrInvalidInput       = errors.New("usecase: invalid input")
	ErrInsufficientFunds  = errors.New("usecase: insufficient funds")
	ErrMintNotFound       = errors.New("usecase: mint account not found")
	ErrTransferSucceeded  = errors.New("usecase: CRITICAL transfer of soul-bound token succeeded")
	ErrVerifyInconclusive = errors.New("usecase: verification inconclusive")
)

// Notice kinds.
const (
	NoticeIssued  = "issued"
	NoticeRevoked = "revoked"
)

// Notice is sent to the holder contact after issuance or revocation.
type Notice struct {
	Kind        string
	To          string
	Credential  sbt.Credential
	ExplorerURL string
}

// Notifier delivers notices (e-mail). Optional.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// SBTOptions carries the thresholds and delays of the SBT flows.
type SBTOptions struct {
	Network       string
	CreateMin     ledger.Lamports
	BurnMin       ledger.Lamports
	SyncDelay     time.Duration // after funding, before the first create attempt
	Countdown     time.Duration // before an irreversible burn
	ExplorerTxURL func(signature string) string
}

// SBTUsecase issues, verifies and revokes soul-bound credentials.
type SBTUsecase struct {
	ledger   ledger.TokenLedger
	client   ledger.Client
	funding  *FundingGuard
	policy   retry.Policy
	records  sbt.RepositoryPort // nil: recording disabled
	notifier Notifier           // nil: notifications disabled
	opts     SBTOptions

	Now          func() time.Time
	NewID        func() string
	NewRecipient func() string
	Sleep        retry.SleepFunc
}

func NewSBTUsecase(
	tl ledger.TokenLedger,
	client ledger.Client,
	funding *FundingGuard,
	policy retry.Policy,
	records sbt.RepositoryPort,
	notifier Notifier,
	opts SBTOptions,
	newRecipient func() string,
) *SBTUsecase {
	return &SBTUsecase{
		ledger:       tl,
		client:       client,
		funding:      funding,
		policy:       policy,
		records:      records,
		notifier:     notifier,
		opts:         opts,
		Now:          time.Now,
		NewID:        uuid.NewString,
		NewRecipient: newRecipient,
		Sleep:        retry.SleepContext,
	}
}

// ========================================
// Issue
// ========================================

type IssueInput struct {
	Authority    ledger.Signer
	Holder       string // defaults to the authority address
	HolderEmail  string
	Name         string
	Symbol       string
	URI          string
	SellerFeeBps uint16
}

type IssueResult struct {
	Mint          ledger.MintResult
	Funding       FundingReport
	BalanceBefore ledger.Lamports
	BalanceAfter  ledger.Lamports
	State         ledger.TokenState
	Credential    sbt.Credential
	Recorded      bool
	Notified      bool
	Warnings      []string
}

// Issue funds the authority if needed, mints the SBT with retry, checks the
// resulting on-chain shape and records it.
func (u *SBTUsecase) Issue(ctx context.Context, in IssueInput) (IssueResult, error) {
	var res IssueResult

	if in.Authority == nil {
		return res, fmt.Errorf("%w: authority signer is required", ErrInvalidInput)
	}
	authority := in.Authority.Address()
	holder := strings.TrimSpace(in.Holder)
	if holder == "" {
		holder = authority
	}
	if !sbt.IsValidAddress(holder) {
		return res, fmt.Errorf("%w: holder address %q", ErrInvalidInput, holder)
	}
	if err := sbt.ValidateTokenData(in.Name, in.Symbol, in.URI); err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	log.WithFields(log.Fields{"authority": authority, "holder": holder, "network": u.opts.Network}).Info("[sbt] issue start")

	rep, err := u.funding.EnsureBalance(ctx, authority, u.opts.CreateMin)
	res.Funding = rep
	res.BalanceBefore = rep.Final
	if err != nil {
		return res, err
	}
	if !rep.Sufficient {
		return res, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, authority, rep.Final, rep.Required)
	}

	if err := u.Sleep(ctx, u.opts.SyncDelay); err != nil {
		return res, err
	}

	mint, err := retry.Do(ctx, u.policy, "create", func(ctx context.Context, attempt int) (ledger.MintResult, error) {
		return u.ledger.MintSoulBound(ctx, ledger.MintRequest{
			Authority:            in.Authority,
			Holder:               holder,
			Name:                 strings.TrimSpace(in.Name),
			Symbol:               strings.TrimSpace(in.Symbol),
			URI:                  strings.TrimSpace(in.URI),
			SellerFeeBasisPoints: in.SellerFeeBps,
		})
	})
	if err != nil {
		return res, err
	}
	res.Mint = mint

	if bal, err := u.client.GetBalance(ctx, authority); err == nil {
		res.BalanceAfter = bal
	} else {
		log.WithError(err).Warn("[sbt] balance after creation unavailable")
	}

	state, err := u.ledger.Inspect(ctx, mint.MintAddress, holder)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("post-mint inspection failed: %v", err))
	} else {
		res.State = state
		res.Warnings = append(res.Warnings, shapeWarnings(state, authority)...)
	}

	cred, err := sbt.New(u.NewID(), mint.MintAddress, holder, authority, in.Name, in.Symbol, in.URI, u.opts.Network, mint.Signature, u.Now())
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("credential record invalid: %v", err))
		return res, nil
	}
	res.Credential = cred

	if u.records != nil {
		if err := u.records.Create(ctx, cred); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("record not stored: %v", err))
			log.WithError(err).Warn("[sbt] record store failed")
		} else {
			res.Recorded = true
		}
	}
	res.Notified = u.notify(ctx, NoticeIssued, in.HolderEmail, cred, mint.Signature, &res.Warnings)

	log.WithFields(log.Fields{"mint": mint.MintAddress, "sig": mint.Signature}).Info("[sbt] issue done")
	return res, nil
}

// shapeWarnings lists deviations from the soul-bound shape after a mint.
func shapeWarnings(s ledger.TokenState, authority string) []string {
	var w []string
	if !s.MintExists {
		w = append(w, "mint account not visible yet; check the explorer in a few seconds")
		return w
	}
	if !s.AccountExists || s.Amount != 1 {
		w = append(w, fmt.Sprintf("holder token account amount is %d, expected 1", s.Amount))
	}
	if !s.Frozen {
		w = append(w, "holder token account is not frozen")
	}
	if s.FreezeAuthority != authority {
		w = append(w, fmt.Sprintf("freeze authority is %q, expected the issuer", s.FreezeAuthority))
	}
	if s.MintAuthority != "" {
		w = append(w, "mint authority was not revoked")
	}
	return w
}

// ========================================
// Verify
// ========================================

type VerifyInput struct {
	Holder      ledger.Signer // owner of the token account
	MintAddress string
}

type VerifyResult struct {
	MintAddress string
	Recipient   string
	Outcome     sbt.VerificationOutcome
	Signature   string // set only when the transfer went through
	Detail      string // ledger message of the rejection / failure
	State       ledger.TokenState
	Recorded    bool
}

// Verify attempts to move the SBT to a fresh address. A ledger rejection caused
// by the freeze is the expected outcome.
func (u *SBTUsecase) Verify(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	res := VerifyResult{MintAddress: strings.TrimSpace(in.MintAddress)}

	if in.Holder == nil {
		return res, fmt.Errorf("%w: holder signer is required", ErrInvalidInput)
	}
	if !sbt.IsValidAddress(res.MintAddress) {
		return res, fmt.Errorf("%w: mint address %q", ErrInvalidInput, res.MintAddress)
	}
	holder := in.Holder.Address()

	state, err := u.ledger.Inspect(ctx, res.MintAddress, holder)
	if err != nil {
		return res, fmt.Errorf("inspect %s: %w", res.MintAddress, err)
	}
	res.State = state
	if !state.MintExists {
		return res, fmt.Errorf("%w: %s", ErrMintNotFound, res.MintAddress)
	}

	rep, err := u.funding.EnsureBalance(ctx, holder, u.opts.BurnMin)
	if err != nil {
		return res, err
	}
	if !rep.Sufficient {
		return res, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, holder, rep.Final, rep.Required)
	}

	res.Recipient = u.NewRecipient()
	log.WithFields(log.Fields{"mint": res.MintAddress, "recipient": res.Recipient}).Info("[sbt] verify: attempting transfer")

	type attemptResult struct {
		outcome sbt.VerificationOutcome
		sig     string
		detail  string
	}
	got, err := retry.Do(ctx, u.policy, "transfer", func(ctx context.Context, attempt int) (attemptResult, error) {
		sig, err := u.ledger.Transfer(ctx, ledger.TransferRequest{
			Owner:       in.Holder,
			MintAddress: res.MintAddress,
			Recipient:   res.Recipient,
			Amount:      1,
		})
		switch {
		case err == nil:
			return attemptResult{outcome: sbt.OutcomeTransferred, sig: sig}, nil
		case errors.Is(err, ledger.ErrTransferRejected):
			return attemptResult{outcome: sbt.OutcomeRejected, detail: err.Error()}, nil
		default:
			return attemptResult{}, err
		}
	})

	var verr error
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return res, err
	case err != nil:
		res.Outcome = sbt.OutcomeInconclusive
		res.Detail = err.Error()
		verr = fmt.Errorf("%w: %w", ErrVerifyInconclusive, err)
	default:
		res.Outcome = got.outcome
		res.Signature = got.sig
		res.Detail = got.detail
		if got.outcome == sbt.OutcomeTransferred {
			verr = fmt.Errorf("%w: mint %s moved to %s (tx %s)", ErrTransferSucceeded, res.MintAddress, res.Recipient, got.sig)
		}
	}

	log.WithFields(log.Fields{"mint": res.MintAddress, "outcome": res.Outcome}).Info("[sbt] verify done")

	res.Recorded = u.updateRecord(ctx, res.MintAddress, func(c *sbt.Credential) error {
		c.RecordVerification(res.Outcome, u.Now())
		return nil
	})
	return res, verr
}

// ========================================
// Revoke
// ========================================

type RevokeInput struct {
	Authority   ledger.Signer
	HolderOwner ledger.Signer // nil when the authority holds the token
	MintAddress string
	Reason      string
	HolderEmail string

	// OnTick is called once per second of the countdown with the remaining time.
	OnTick func(remaining time.Duration)
}

type RevokeResult struct {
	MintAddress  string
	Reason       string
	Burn         ledger.BurnResult
	Funding      FundingReport
	BalanceAfter ledger.Lamports
	RevokedAt    time.Time
	Recorded     bool
	Notified     bool
	Warnings     []string
}

// Revoke burns the SBT after a cancellable countdown.
func (u *SBTUsecase) Revoke(ctx context.Context, in RevokeInput) (RevokeResult, error) {
	res := RevokeResult{MintAddress: strings.TrimSpace(in.MintAddress), Reason: strings.TrimSpace(in.Reason)}

	if in.Authority == nil {
		return res, fmt.Errorf("%w: authority signer is required", ErrInvalidInput)
	}
	if !sbt.IsValidAddress(res.MintAddress) {
		return res, fmt.Errorf("%w: mint address %q", ErrInvalidInput, res.MintAddress)
	}
	authority := in.Authority.Address()
	holder := authority
	if in.HolderOwner != nil {
		holder = in.HolderOwner.Address()
	}

	rep, err := u.funding.EnsureBalance(ctx, authority, u.opts.BurnMin)
	res.Funding = rep
	if err != nil {
		return res, err
	}
	if !rep.Sufficient {
		return res, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, authority, rep.Final, rep.Required)
	}

	state, err := u.ledger.Inspect(ctx, res.MintAddress, holder)
	if err != nil {
		return res, fmt.Errorf("inspect %s: %w", res.MintAddress, err)
	}
	if !state.MintExists {
		return res, fmt.Errorf("%w: %s", ErrMintNotFound, res.MintAddress)
	}
	if !state.AccountExists || state.Amount == 0 {
		return res, fmt.Errorf("%w: %w: %s holds no token account for %s; set holder.signer to the wallet that holds the SBT",
			ErrInvalidInput, ledger.ErrNotTokenOwner, holder, res.MintAddress)
	}

	log.WithFields(log.Fields{"mint": res.MintAddress, "reason": res.Reason, "countdown": u.opts.Countdown}).
		Warn("[sbt] revoke: burning is irreversible")
	if err := u.countdown(ctx, in.OnTick); err != nil {
		return res, err
	}

	burn, err := retry.Do(ctx, u.policy, "burn", func(ctx context.Context, attempt int) (ledger.BurnResult, error) {
		return u.ledger.Burn(ctx, ledger.BurnRequest{
			Authority:   in.Authority,
			HolderOwner: in.HolderOwner,
			MintAddress: res.MintAddress,
		})
	})
	if err != nil {
		return res, err
	}
	res.Burn = burn
	res.RevokedAt = u.Now().UTC()

	if bal, err := u.client.GetBalance(ctx, authority); err == nil {
		res.BalanceAfter = bal
	}

	var cred sbt.Credential
	res.Recorded = u.updateRecord(ctx, res.MintAddress, func(c *sbt.Credential) error {
		if err := c.Revoke(burn.Signature, res.Reason, res.RevokedAt); err != nil {
			return err
		}
		cred = *c
		return nil
	})
	if cred.MintAddress == "" {
		cred = sbt.Credential{
			MintAddress:     res.MintAddress,
			Holder:          holder,
			Authority:       authority,
			Network:         u.opts.Network,
			Status:          sbt.StatusRevoked,
			RevokeSignature: burn.Signature,
			RevokeReason:    res.Reason,
			RevokedAt:       &res.RevokedAt,
		}
	}
	res.Notified = u.notify(ctx, NoticeRevoked, in.HolderEmail, cred, burn.Signature, &res.Warnings)

	log.WithFields(log.Fields{"mint": res.MintAddress, "sig": burn.Signature}).Info("[sbt] revoke done")
	return res, nil
}

func (u *SBTUsecase) countdown(ctx context.Context, onTick func(time.Duration)) error {
	for remaining := u.opts.Countdown; remaining > 0; remaining -= time.Second {
		if onTick != nil {
			onTick(remaining)
		}
		step := time.Second
		if remaining < step {
			step = remaining
		}
		if err := u.Sleep(ctx, step); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// ========================================
// helpers
// ========================================

// updateRecord applies fn to the stored credential. A missing store or record is not an error.
func (u *SBTUsecase) updateRecord(ctx context.Context, mint string, fn func(*sbt.Credential) error) bool {
	if u.records == nil {
		return false
	}
	c, err := u.records.GetByMint(ctx, mint)
	if err != nil {
		if !errors.Is(err, sbt.ErrNotFound) {
			log.WithError(err).WithField("mint", mint).Warn("[sbt] record lookup failed")
		}
		return false
	}
	if err := fn(&c); err != nil {
		log.WithError(err).WithField("mint", mint).Warn("[sbt] record not updated")
		return false
	}
	if err := u.records.Update(ctx, c); err != nil {
		log.WithError(err).WithField("mint", mint).Warn("[sbt] record update failed")
		return false
	}
	return true
}

func (u *SBTUsecase) notify(ctx context.Context, kind, to string, c sbt.Credential, sig string, warnings *[]string) bool {
	to = strings.TrimSpace(to)
	if u.notifier == nil || to == "" {
		return false
	}
	n := Notice{Kind: kind, To: to, Credential: c}
	if u.opts.ExplorerTxURL != nil {
		n.ExplorerURL = u.opts.ExplorerTxURL(sig)
	}
	if err := u.notifier.Notify(ctx, n); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("notice not sent: %v", err))
		log.WithError(err).Warn("[sbt] notify failed")
		return false
	}
	return true
}
