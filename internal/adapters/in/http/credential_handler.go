// internal/adapters/in/http/credential_handler.go
package httpin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
)

// CredentialQuery is satisfied by *usecase.QueryUsecase.
type CredentialQuery interface {
	GetCredential(ctx context.Context, mint, holder string) (usecase.CredentialView, error)
	ListWallet(ctx context.Context, owner string) ([]usecase.HoldingView, error)
}

var _ CredentialQuery = (*usecase.QueryUsecase)(nil)

type CredentialHandler struct {
	q CredentialQuery
}

func NewCredentialHandler(q CredentialQuery) *CredentialHandler {
	return &CredentialHandler{q: q}
}

// ============================================================
// DTO
// ============================================================

type onChainDTO struct {
	MintExists      bool   `json:"mintExists"`
	Supply          uint64 `json:"supply"`
	Decimals        uint8  `json:"decimals"`
	MintAuthority   string `json:"mintAuthority,omitempty"`
	FreezeAuthority string `json:"freezeAuthority,omitempty"`
	Holder          string `json:"holder,omitempty"`
	TokenAccount    string `json:"tokenAccount,omitempty"`
	Amount          uint64 `json:"amount"`
	Frozen          bool   `json:"frozen"`
	SoulBound       bool   `json:"soulBound"`
	Name            string `json:"name,omitempty"`
	Symbol          string `json:"symbol,omitempty"`
	URI             string `json:"uri,omitempty"`
}

type recordDTO struct {
	ID               string     `json:"id"`
	Holder           string     `json:"holder"`
	Authority        string     `json:"authority"`
	Name             string     `json:"name"`
	Symbol           string     `json:"symbol"`
	MetadataURI      string     `json:"metadataUri"`
	Network          string     `json:"network"`
	Status           string     `json:"status"`
	CreateSignature  string     `json:"createSignature"`
	RevokeSignature  string     `json:"revokeSignature,omitempty"`
	RevokeReason     string     `json:"revokeReason,omitempty"`
	LastVerification string     `json:"lastVerification,omitempty"`
	LastVerifiedAt   *time.Time `json:"lastVerifiedAt,omitempty"`
	IssuedAt         time.Time  `json:"issuedAt"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
}

type credentialResponse struct {
	Mint    string     `json:"mint"`
	OnChain onChainDTO `json:"onChain"`
	Record  *recordDTO `json:"record,omitempty"`
}

type holdingDTO struct {
	Mint         string     `json:"mint"`
	TokenAccount string     `json:"tokenAccount"`
	Amount       uint64     `json:"amount"`
	Decimals     int        `json:"decimals"`
	Frozen       bool       `json:"frozen"`
	SoulBound    bool       `json:"soulBound"`
	Record       *recordDTO `json:"record,omitempty"`
}

type walletResponse struct {
	Address  string       `json:"address"`
	Holdings []holdingDTO `json:"holdings"`
}

func toRecordDTO(c *sbt.Credential) *recordDTO {
	if c == nil {
		return nil
	}
	return &recordDTO{
		ID: c.ID, Holder: c.Holder, Authority: c.Authority, Name: c.Name, Symbol: c.Symbol,
		MetadataURI: c.MetadataURI, Network: c.Network, Status: string(c.Status),
		CreateSignature: c.CreateSignature, RevokeSignature: c.RevokeSignature, RevokeReason: c.RevokeReason,
		LastVerification: string(c.LastVerification), LastVerifiedAt: c.LastVerifiedAt,
		IssuedAt: c.IssuedAt, RevokedAt: c.RevokedAt,
	}
}

// ============================================================
// Handlers
// ============================================================

// GET /v1/credentials/{mint}?holder=<address>
func (h *CredentialHandler) GetCredential(w http.ResponseWriter, r *http.Request) {
	mint := chi.URLParam(r, "mint")
	v, err := h.q.GetCredential(r.Context(), mint, r.URL.Query().Get("holder"))
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	s := v.State
	writeJSON(w, http.StatusOK, credentialResponse{
		Mint: mint,
		OnChain: onChainDTO{
			MintExists: s.MintExists, Supply: s.Supply, Decimals: s.Decimals,
			MintAuthority: s.MintAuthority, FreezeAuthority: s.FreezeAuthority,
			Holder: s.Holder, TokenAccount: s.TokenAccount, Amount: s.Amount, Frozen: s.Frozen,
			SoulBound: s.SoulBound(), Name: s.MetadataName, Symbol: s.MetadataSymbol, URI: s.MetadataURI,
		},
		Record: toRecordDTO(v.Record),
	})
}

// GET /v1/wallets/{address}/credentials?all=true
// Only soul-bound holdings are listed unless all=true.
func (h *CredentialHandler) ListWallet(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	views, err := h.q.ListWallet(r.Context(), addr)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}
	all := strings.EqualFold(r.URL.Query().Get("all"), "true")

	out := walletResponse{Address: addr, Holdings: []holdingDTO{}}
	for _, v := range views {
		if !all && !v.SoulBound && v.Record == nil {
			continue
		}
		out.Holdings = append(out.Holdings, holdingDTO{
			Mint: v.Holding.Mint, TokenAccount: v.Holding.TokenAccount, Amount: v.Holding.Amount,
			Decimals: v.Holding.Decimals, Frozen: v.Holding.Frozen, SoulBound: v.SoulBound,
			Record: toRecordDTO(v.Record),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ============================================================
// HTTP helpers
// ============================================================

func writeUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		badRequest(w, err.Error())
	case errors.Is(err, usecase.ErrMintNotFound):
		notFound(w)
	default:
		log.WithError(err).Warn("[http] lookup failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ledger_unavailable"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": strings.TrimSpace(msg)})
}
