// internal/infra/solana/ledger_client.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/retry"
)

var (
	ErrLedgerNotConfigured = errors.New("ledger_client: not configured")
	ErrTransactionFailed   = errors.New("ledger_client: transaction failed")
)

// LedgerClient implements the ledger ports on top of blocto/solana-go-sdk.
type LedgerClient struct {
	RPC      *client.Client
	Endpoint string
	Cluster  string

	PollInterval   time.Duration // signature status polling
	ConfirmTimeout time.Duration
}

var (
	_ ledger.Client      = (*LedgerClient)(nil)
	_ ledger.TokenLedger = (*LedgerClient)(nil)
)

// NewLedgerClient connects to endpoint. cluster is informational (reports, records).
func NewLedgerClient(endpoint, cluster string) *LedgerClient {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = rpc.DevnetRPCEndpoint
	}
	return &LedgerClient{
		RPC:            client.NewClient(ep),
		Endpoint:       ep,
		Cluster:        cluster,
		PollInterval:   time.Second,
		ConfirmTimeout: 60 * time.Second,
	}
}

// ========================================
// ledger.Client
// ========================================

func (c *LedgerClient) GetBalance(ctx context.Context, address string) (ledger.Lamports, error) {
	if c == nil || c.RPC == nil {
		return 0, ErrLedgerNotConfigured
	}
	bal, err := c.RPC.GetBalance(ctx, strings.TrimSpace(address))
	if err != nil {
		return 0, fmt.Errorf("ledger_client: GetBalance: %w", err)
	}
	return ledger.Lamports(bal), nil
}

func (c *LedgerClient) RequestAirdrop(ctx context.Context, address string, amount ledger.Lamports) (string, error) {
	if c == nil || c.RPC == nil {
		return "", ErrLedgerNotConfigured
	}
	sig, err := c.RPC.RequestAirdrop(ctx, strings.TrimSpace(address), uint64(amount))
	if err != nil {
		return "", fmt.Errorf("ledger_client: RequestAirdrop: %w", err)
	}
	log.WithFields(log.Fields{"to": maskShort(address), "amount": amount.String(), "sig": maskShort(sig)}).
		Debug("[ledger_client] airdrop requested")
	return sig, nil
}

// ConfirmSignature polls the signature status until it reaches "confirmed",
// fails on-chain, or ConfirmTimeout elapses.
func (c *LedgerClient) ConfirmSignature(ctx context.Context, signature string) error {
	if c == nil || c.RPC == nil {
		return ErrLedgerNotConfigured
	}
	deadline := time.Now().Add(c.ConfirmTimeout)
	for {
		st, err := c.RPC.GetSignatureStatus(ctx, signature)
		if err == nil && st != nil {
			if st.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, maskShort(signature), st.Err)
			}
			if st.ConfirmationStatus != nil &&
				(*st.ConfirmationStatus == rpc.CommitmentConfirmed || *st.ConfirmationStatus == rpc.CommitmentFinalized) {
				return nil
			}
		}
		if err != nil {
			log.WithError(err).WithField("sig", maskShort(signature)).Debug("[ledger_client] status poll failed")
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s", ledger.ErrNotConfirmed, signature)
		}
		if werr := retry.SleepContext(ctx, c.PollInterval); werr != nil {
			return werr
		}
	}
}

// ========================================
// ledger.TokenLedger
// ========================================

// MintSoulBound creates the mint, its metadata account and the holder's token
// account, mints one unit, freezes the holder account and revokes the mint
// authority, all in one transaction. The authority keeps the freeze authority.
func (c *LedgerClient) MintSoulBound(ctx context.Context, req ledger.MintRequest) (ledger.MintResult, error) {
	if c == nil || c.RPC == nil {
		return ledger.MintResult{}, ErrLedgerNotConfigured
	}
	authority, err := accountOf(req.Authority)
	if err != nil {
		return ledger.MintResult{}, err
	}

	holderAddr := strings.TrimSpace(req.Holder)
	if holderAddr == "" {
		holderAddr = authority.PublicKey.ToBase58()
	}
	holder := common.PublicKeyFromString(holderAddr)
	mint := types.NewAccount()

	ata, _, err := common.FindAssociatedTokenAddress(holder, mint.PublicKey)
	if err != nil {
		return ledger.MintResult{}, fmt.Errorf("ledger_client: FindAssociatedTokenAddress: %w", err)
	}
	metadataPubkey, err := token_metadata.GetTokenMetaPubkey(mint.PublicKey)
	if err != nil {
		return ledger.MintResult{}, fmt.Errorf("ledger_client: GetTokenMetaPubkey: %w", err)
	}
	mintRent, err := c.RPC.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return ledger.MintResult{}, fmt.Errorf("ledger_client: GetMinimumBalanceForRentExemption: %w", err)
	}
	recent, err := c.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return ledger.MintResult{}, fmt.Errorf("ledger_client: GetLatestBlockhash: %w", err)
	}

	log.WithFields(log.Fields{
		"mint":      maskShort(mint.PublicKey.ToBase58()),
		"holder":    maskShort(holderAddr),
		"authority": maskShort(authority.PublicKey.ToBase58()),
		"symbol":    req.Symbol,
	}).Info("[ledger_client] mint start")

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Signers: []types.Account{authority, mint},
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        authority.PublicKey,
			RecentBlockhash: recent.Blockhash,
			Instructions: []types.Instruction{
				// 1) mint account
				system.CreateAccount(system.CreateAccountParam{
					From:     authority.PublicKey,
					New:      mint.PublicKey,
					Owner:    common.TokenProgramID,
					Lamports: mintRent,
					Space:    token.MintAccountSize,
				}),
				// 2) decimals = 0, freeze authority = issuer
				token.InitializeMint(token.InitializeMintParam{
					Decimals:   0,
					Mint:       mint.PublicKey,
					MintAuth:   authority.PublicKey,
					FreezeAuth: &authority.PublicKey,
				}),
				// 3) metadata
				token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
					Metadata:                metadataPubkey,
					Mint:                    mint.PublicKey,
					MintAuthority:           authority.PublicKey,
					UpdateAuthority:         authority.PublicKey,
					Payer:                   authority.PublicKey,
					UpdateAuthorityIsSigner: true,
					IsMutable:               true,
					Data: token_metadata.DataV2{
						Name:                 req.Name,
						Symbol:               req.Symbol,
						Uri:                  req.URI,
						SellerFeeBasisPoints: req.SellerFeeBasisPoints,
						Creators: &[]token_metadata.Creator{
							{Address: authority.PublicKey, Verified: true, Share: 100},
						},
					},
				}),
				// 4) holder ATA
				associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
					Funder:                 authority.PublicKey,
					Owner:                  holder,
					Mint:                   mint.PublicKey,
					AssociatedTokenAccount: ata,
				}),
				// 5) exactly one unit
				token.MintTo(token.MintToParam{
					Mint:   mint.PublicKey,
					To:     ata,
					Auth:   authority.PublicKey,
					Amount: 1,
				}),
				// 6) soul-bound: the holder account is frozen
				token.FreezeAccount(token.FreezeAccountParam{
					Account: ata,
					Mint:    mint.PublicKey,
					Auth:    authority.PublicKey,
				}),
				// 7) supply fixed at 1
				token.SetAuthority(token.SetAuthorityParam{
					Account:  mint.PublicKey,
					NewAuth:  nil,
					AuthType: token.AuthorityTypeMintTokens,
					Auth:     authority.PublicKey,
				}),
			},
		}),
	})
	if err != nil {
		return ledger.MintResult{}, fmt.Errorf("ledger_client: NewTransaction: %w", err)
	}

	sig, err := c.RPC.SendTransaction(ctx, tx)
	if err != nil {
		return ledger.MintResult{}, fmt.Errorf("ledger_client: SendTransaction: %w", err)
	}
	if err := c.ConfirmSignature(ctx, sig); err != nil {
		return ledger.MintResult{}, err
	}

	log.WithFields(log.Fields{
		"mint": mint.PublicKey.ToBase58(),
		"ata":  maskShort(ata.ToBase58()),
		"sig":  maskShort(sig),
	}).Info("[ledger_client] mint confirmed")

	return ledger.MintResult{
		MintAddress:  mint.PublicKey.ToBase58(),
		TokenAccount: ata.ToBase58(),
		Holder:       holderAddr,
		Signature:    sig,
	}, nil
}

// Transfer moves tokens from the owner's ATA to the recipient's ATA, creating the
// latter when missing. A rejection caused by the account freeze is reported as
// ledger.ErrTransferRejected.
func (c *LedgerClient) Transfer(ctx context.Context, req ledger.TransferRequest) (string, error) {
	if c == nil || c.RPC == nil {
		return "", ErrLedgerNotConfigured
	}
	owner, err := accountOf(req.Owner)
	if err != nil {
		return "", err
	}
	amount := req.Amount
	if amount == 0 {
		amount = 1
	}

	mint := common.PublicKeyFromString(strings.TrimSpace(req.MintAddress))
	recipient := common.PublicKeyFromString(strings.TrimSpace(req.Recipient))

	fromATA, _, err := common.FindAssociatedTokenAddress(owner.PublicKey, mint)
	if err != nil {
		return "", fmt.Errorf("ledger_client: derive from ATA failed: %w", err)
	}
	toATA, _, err := common.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return "", fmt.Errorf("ledger_client: derive to ATA failed: %w", err)
	}

	if _, ok, err := c.fetchAccount(ctx, fromATA.ToBase58()); err != nil {
		return "", fmt.Errorf("ledger_client: check from ATA failed: %w", err)
	} else if !ok {
		return "", fmt.Errorf("%w: source token account %s", ledger.ErrAccountNotFound, fromATA.ToBase58())
	}
	_, toExists, err := c.fetchAccount(ctx, toATA.ToBase58())
	if err != nil {
		return "", fmt.Errorf("ledger_client: check to ATA failed: %w", err)
	}

	ins := make([]types.Instruction, 0, 2)
	if !toExists {
		ins = append(ins, associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 owner.PublicKey,
			Owner:                  recipient,
			Mint:                   mint,
			AssociatedTokenAccount: toATA,
		}))
	}
	ins = append(ins, token.Transfer(token.TransferParam{
		From:   fromATA,
		To:     toATA,
		Auth:   owner.PublicKey,
		Amount: amount,
	}))

	log.WithFields(log.Fields{
		"mint":       maskShort(req.MintAddress),
		"from":       maskShort(owner.PublicKey.ToBase58()),
		"to":         maskShort(req.Recipient),
		"createdATA": !toExists,
	}).Info("[ledger_client] transfer start")

	sig, err := c.send(ctx, owner, nil, ins)
	if err != nil {
		return "", classifyTransferError(err)
	}
	if err := c.ConfirmSignature(ctx, sig); err != nil {
		return sig, classifyTransferError(err)
	}
	return sig, nil
}

// Burn thaws the holder account (as freeze authority), burns its balance and
// closes it with the rent returned to the authority.
func (c *LedgerClient) Burn(ctx context.Context, req ledger.BurnRequest) (ledger.BurnResult, error) {
	if c == nil || c.RPC == nil {
		return ledger.BurnResult{}, ErrLedgerNotConfigured
	}
	authority, err := accountOf(req.Authority)
	if err != nil {
		return ledger.BurnResult{}, err
	}
	holderOwner := authority
	if req.HolderOwner != nil {
		if holderOwner, err = accountOf(req.HolderOwner); err != nil {
			return ledger.BurnResult{}, err
		}
	}

	mintAddr := strings.TrimSpace(req.MintAddress)
	if _, ok, err := c.fetchAccount(ctx, mintAddr); err != nil {
		return ledger.BurnResult{}, fmt.Errorf("ledger_client: check mint failed: %w", err)
	} else if !ok {
		return ledger.BurnResult{}, fmt.Errorf("%w: mint %s", ledger.ErrAccountNotFound, mintAddr)
	}

	mint := common.PublicKeyFromString(mintAddr)
	ata, _, err := common.FindAssociatedTokenAddress(holderOwner.PublicKey, mint)
	if err != nil {
		return ledger.BurnResult{}, fmt.Errorf("ledger_client: FindAssociatedTokenAddress: %w", err)
	}
	info, ok, err := c.fetchAccount(ctx, ata.ToBase58())
	if err != nil {
		return ledger.BurnResult{}, fmt.Errorf("ledger_client: check holder ATA failed: %w", err)
	}
	if !ok {
		return ledger.BurnResult{}, fmt.Errorf("%w: %s has no token account for %s", ledger.ErrNotTokenOwner, holderOwner.PublicKey.ToBase58(), mintAddr)
	}
	ta, err := token.TokenAccountFromData(info.Data)
	if err != nil {
		return ledger.BurnResult{}, fmt.Errorf("ledger_client: decode token account: %w", err)
	}
	if ta.Amount == 0 {
		return ledger.BurnResult{}, fmt.Errorf("%w: token account %s is empty", ledger.ErrNotTokenOwner, ata.ToBase58())
	}

	frozen := ta.State == token.TokenAccountFrozen
	ins := make([]types.Instruction, 0, 3)
	if frozen {
		ins = append(ins, token.ThawAccount(token.ThawAccountParam{
			Account: ata,
			Mint:    mint,
			Auth:    authority.PublicKey,
		}))
	}
	ins = append(ins,
		token.Burn(token.BurnParam{
			Account: ata,
			Mint:    mint,
			Auth:    holderOwner.PublicKey,
			Amount:  ta.Amount,
		}),
		token.CloseAccount(token.CloseAccountParam{
			Account: ata,
			To:      authority.PublicKey,
			Auth:    holderOwner.PublicKey,
		}),
	)

	var extra *types.Account
	if holderOwner.PublicKey != authority.PublicKey {
		extra = &holderOwner
	}

	log.WithFields(log.Fields{
		"mint":   maskShort(mintAddr),
		"ata":    maskShort(ata.ToBase58()),
		"thawed": frozen,
	}).Info("[ledger_client] burn start")

	sig, err := c.send(ctx, authority, extra, ins)
	if err != nil {
		return ledger.BurnResult{}, err
	}
	if err := c.ConfirmSignature(ctx, sig); err != nil {
		return ledger.BurnResult{}, err
	}
	return ledger.BurnResult{Signature: sig, TokenAccount: ata.ToBase58(), Thawed: frozen}, nil
}

// Inspect reads the mint, its metadata and (when holder is set) the holder's token account.
// Missing accounts are reported through the *Exists flags, not as errors.
func (c *LedgerClient) Inspect(ctx context.Context, mintAddress, holder string) (ledger.TokenState, error) {
	if c == nil || c.RPC == nil {
		return ledger.TokenState{}, ErrLedgerNotConfigured
	}
	mintAddr := strings.TrimSpace(mintAddress)
	state := ledger.TokenState{MintAddress: mintAddr, Holder: strings.TrimSpace(holder)}

	info, ok, err := c.fetchAccount(ctx, mintAddr)
	if err != nil {
		return state, fmt.Errorf("ledger_client: fetch mint: %w", err)
	}
	if !ok {
		return state, nil
	}
	m, err := token.MintAccountFromData(info.Data)
	if err != nil {
		return state, fmt.Errorf("ledger_client: decode mint: %w", err)
	}
	state.MintExists = true
	state.Supply = m.Supply
	state.Decimals = m.Decimals
	if m.MintAuthority != nil {
		state.MintAuthority = m.MintAuthority.ToBase58()
	}
	if m.FreezeAuthority != nil {
		state.FreezeAuthority = m.FreezeAuthority.ToBase58()
	}

	mint := common.PublicKeyFromString(mintAddr)
	if metaPubkey, err := token_metadata.GetTokenMetaPubkey(mint); err == nil {
		if mi, ok, err := c.fetchAccount(ctx, metaPubkey.ToBase58()); err == nil && ok {
			if md, err := token_metadata.MetadataDeserialize(mi.Data); err == nil {
				state.MetadataName = trimPadding(md.Data.Name)
				state.MetadataSymbol = trimPadding(md.Data.Symbol)
				state.MetadataURI = trimPadding(md.Data.Uri)
			} else {
				log.WithError(err).Warn("[ledger_client] metadata decode failed")
			}
		}
	}

	if state.Holder == "" {
		return state, nil
	}
	ata, _, err := common.FindAssociatedTokenAddress(common.PublicKeyFromString(state.Holder), mint)
	if err != nil {
		return state, fmt.Errorf("ledger_client: FindAssociatedTokenAddress: %w", err)
	}
	state.TokenAccount = ata.ToBase58()
	ai, ok, err := c.fetchAccount(ctx, state.TokenAccount)
	if err != nil {
		return state, fmt.Errorf("ledger_client: fetch token account: %w", err)
	}
	if !ok {
		return state, nil
	}
	ta, err := token.TokenAccountFromData(ai.Data)
	if err != nil {
		return state, fmt.Errorf("ledger_client: decode token account: %w", err)
	}
	state.AccountExists = true
	state.Amount = ta.Amount
	state.Frozen = ta.State == token.TokenAccountFrozen
	return state, nil
}

// Network probes the node version and a fresh blockhash.
func (c *LedgerClient) Network(ctx context.Context) (ledger.NetworkInfo, error) {
	if c == nil || c.RPC == nil {
		return ledger.NetworkInfo{}, ErrLedgerNotConfigured
	}
	v, err := c.RPC.GetVersion(ctx)
	if err != nil {
		return ledger.NetworkInfo{}, fmt.Errorf("ledger_client: GetVersion: %w", err)
	}
	bh, err := c.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return ledger.NetworkInfo{}, fmt.Errorf("ledger_client: GetLatestBlockhash: %w", err)
	}
	return ledger.NetworkInfo{
		Endpoint:    c.Endpoint,
		Cluster:     c.Cluster,
		CoreVersion: v.SolanaCore,
		Blockhash:   bh.Blockhash,
		CheckedAt:   time.Now().UTC(),
	}, nil
}

// ========================================
// helpers
// ========================================

func (c *LedgerClient) send(ctx context.Context, payer types.Account, extra *types.Account, ins []types.Instruction) (string, error) {
	recent, err := c.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("ledger_client: GetLatestBlockhash: %w", err)
	}
	signers := []types.Account{payer}
	if extra != nil {
		signers = append(signers, *extra)
	}
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        payer.PublicKey,
			RecentBlockhash: recent.Blockhash,
			Instructions:    ins,
		}),
		Signers: signers,
	})
	if err != nil {
		return "", fmt.Errorf("ledger_client: NewTransaction: %w", err)
	}
	sig, err := c.RPC.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("ledger_client: SendTransaction: %w", err)
	}
	return sig, nil
}

// fetchAccount returns (info, exists, err). A null account value and the
// "not found" family of RPC messages both mean the account does not exist.
func (c *LedgerClient) fetchAccount(ctx context.Context, address string) (client.AccountInfo, bool, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return client.AccountInfo{}, false, nil
	}
	info, err := c.RPC.GetAccountInfo(ctx, addr)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "not found") ||
			strings.Contains(msg, "could not find account") ||
			strings.Contains(msg, "invalid param") ||
			strings.Contains(msg, "account does not exist") {
			return client.AccountInfo{}, false, nil
		}
		return client.AccountInfo{}, false, err
	}
	if info.Lamports == 0 && len(info.Data) == 0 && info.Owner == (common.PublicKey{}) {
		return client.AccountInfo{}, false, nil
	}
	return info, true, nil
}

// freezeRejectionMarkers identify a transfer refused because the token is bound:
// SPL "Account is frozen" (custom program error 0x11) and the Metaplex
// non-transferable / permanent freeze variants.
var freezeRejectionMarkers = []string{
	"frozen",
	"0x11",
	"transfer is not approved",
	"permanentfreezedelegate",
	"non-transferable",
}

// IsFreezeRejection reports whether a ledger error message means the transfer
// was refused by the freeze.
func IsFreezeRejection(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range freezeRejectionMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

func classifyTransferError(err error) error {
	if err == nil {
		return nil
	}
	if IsFreezeRejection(err.Error()) {
		return fmt.Errorf("%w: %v", ledger.ErrTransferRejected, err)
	}
	return err
}

func trimPadding(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
