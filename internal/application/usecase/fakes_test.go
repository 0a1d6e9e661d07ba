package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
)

const (
	authorityAddr = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	holderAddr    = "HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH"
	mintAddr      = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	recipientAddr = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	metadataURI   = "https://alice.github.io/solana-sbt-assets/metadata/metadata.json"
)

type fakeSigner string

func (s fakeSigner) Address() string { return string(s) }

// fakeLedger implements ledger.Client and ledger.TokenLedger in memory.
type fakeLedger struct {
	mu sync.Mutex

	balance      ledger.Lamports
	airdropGain  ledger.Lamports
	airdropErrs  []error // consumed per RequestAirdrop call
	balanceErr   error
	airdropCalls int
	airdropSizes []ledger.Lamports

	mintErrs  []error
	mintCalls int
	state     ledger.TokenState
	inspectFn func(mint, holder string) ledger.TokenState

	transferErrs  []error
	transferCalls int

	burnErrs  []error
	burnCalls int
	burnReqs  []ledger.BurnRequest
}

func (f *fakeLedger) GetBalance(context.Context, string) (ledger.Lamports, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeLedger) RequestAirdrop(_ context.Context, _ string, amount ledger.Lamports) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.airdropCalls++
	f.airdropSizes = append(f.airdropSizes, amount)
	if len(f.airdropErrs) > 0 {
		err := f.airdropErrs[0]
		f.airdropErrs = f.airdropErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.balance += f.airdropGain
	return "airdrop-sig", nil
}

func (f *fakeLedger) ConfirmSignature(context.Context, string) error { return nil }

func (f *fakeLedger) MintSoulBound(_ context.Context, req ledger.MintRequest) (ledger.MintResult, error) {
	f.mintCalls++
	if len(f.mintErrs) > 0 {
		err := f.mintErrs[0]
		f.mintErrs = f.mintErrs[1:]
		if err != nil {
			return ledger.MintResult{}, err
		}
	}
	return ledger.MintResult{MintAddress: mintAddr, TokenAccount: "ata", Holder: req.Holder, Signature: "create-sig"}, nil
}

func (f *fakeLedger) Transfer(context.Context, ledger.TransferRequest) (string, error) {
	f.transferCalls++
	if len(f.transferErrs) > 0 {
		err := f.transferErrs[0]
		f.transferErrs = f.transferErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "transfer-sig", nil
}

func (f *fakeLedger) Burn(_ context.Context, req ledger.BurnRequest) (ledger.BurnResult, error) {
	f.burnCalls++
	f.burnReqs = append(f.burnReqs, req)
	if len(f.burnErrs) > 0 {
		err := f.burnErrs[0]
		f.burnErrs = f.burnErrs[1:]
		if err != nil {
			return ledger.BurnResult{}, err
		}
	}
	return ledger.BurnResult{Signature: "burn-sig", TokenAccount: "ata", Thawed: true}, nil
}

func (f *fakeLedger) Inspect(_ context.Context, mint, holder string) (ledger.TokenState, error) {
	if f.inspectFn != nil {
		return f.inspectFn(mint, holder), nil
	}
	return f.state, nil
}

func (f *fakeLedger) Network(context.Context) (ledger.NetworkInfo, error) {
	return ledger.NetworkInfo{Endpoint: "http://fake", CoreVersion: "1.18.0", Blockhash: "hash"}, nil
}

func soulBoundState(mint, holder string) ledger.TokenState {
	return ledger.TokenState{
		MintAddress:     mint,
		MintExists:      true,
		Supply:          1,
		FreezeAuthority: authorityAddr,
		Holder:          holder,
		AccountExists:   true,
		Amount:          1,
		Frozen:          true,
	}
}

// memRecords is an in-memory sbt.RepositoryPort.
type memRecords struct {
	byMint map[string]sbt.Credential
}

func newMemRecords() *memRecords { return &memRecords{byMint: map[string]sbt.Credential{}} }

func (m *memRecords) Create(_ context.Context, c sbt.Credential) error {
	if _, ok := m.byMint[c.MintAddress]; ok {
		return errors.New("duplicate")
	}
	m.byMint[c.MintAddress] = c
	return nil
}

func (m *memRecords) GetByMint(_ context.Context, mint string) (sbt.Credential, error) {
	c, ok := m.byMint[mint]
	if !ok {
		return sbt.Credential{}, sbt.ErrNotFound
	}
	return c, nil
}

func (m *memRecords) Update(_ context.Context, c sbt.Credential) error {
	if _, ok := m.byMint[c.MintAddress]; !ok {
		return sbt.ErrNotFound
	}
	m.byMint[c.MintAddress] = c
	return nil
}

func (m *memRecords) ListByHolder(_ context.Context, holder string) ([]sbt.Credential, error) {
	var out []sbt.Credential
	for _, c := range m.byMint {
		if c.Holder == holder {
			out = append(out, c)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	notices []Notice
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, notice Notice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}
