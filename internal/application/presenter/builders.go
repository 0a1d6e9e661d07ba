// internal/application/presenter/builders.go
package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
)

// Explorer builds block explorer links. config.NetworkConfig satisfies it.
type Explorer interface {
	ExplorerTxURL(signature string) string
	ExplorerAddressURL(address string) string
}

// Env carries what every builder needs to know about the run.
type Env struct {
	Cluster  string
	Explorer Explorer
}

func (e Env) tx(sig string) string {
	if e.Explorer == nil || sig == "" {
		return ""
	}
	return e.Explorer.ExplorerTxURL(sig)
}

func (e Env) addr(a string) string {
	if e.Explorer == nil || a == "" {
		return ""
	}
	return e.Explorer.ExplorerAddressURL(a)
}

// finish sets status and guidance for err on a partially filled report.
func finish(r *Report, err error, env Env) Report {
	if err == nil {
		if r.Status == "" {
			r.Status = StatusSuccess
		}
		return *r
	}
	r.Err = err
	r.Status = StatusFailed
	if Classify(err) == ClassCritical {
		r.Status = StatusCritical
	}
	r.Troubleshooting = Troubleshooting(err, env.Cluster)
	return *r
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ============================================================
// Funding
// ============================================================

func fundingFields(r *Report, f usecase.FundingReport) {
	if f.Address == "" {
		return
	}
	r.Add("Required balance", f.Required.String())
	r.Add("Initial balance", f.Initial.String())
	if f.Requested > 0 {
		r.Add("Airdrops", fmt.Sprintf("%d requested, %d confirmed", f.Requested, f.Succeeded))
	}
	for _, msg := range f.Failures {
		r.Note("airdrop: %s", msg)
	}
}

// Funding reports a standalone `fund` run.
func Funding(f usecase.FundingReport, err error, env Env) Report {
	r := &Report{Title: "Wallet Funding"}
	r.Add("Address", f.Address)
	r.Add("Explorer", env.addr(f.Address))
	fundingFields(r, f)
	r.Add("Final balance", f.Final.String())
	r.Add("Sufficient", yesNo(f.Sufficient))
	if err == nil && !f.Sufficient {
		r.Status = StatusWarning
		r.Troubleshooting = Troubleshooting(usecase.ErrInsufficientFunds, env.Cluster)
	}
	return finish(r, err, env)
}

// Balance reports a single balance read.
func Balance(address string, bal ledger.Lamports, err error, env Env) Report {
	r := &Report{Title: "Wallet Balance"}
	r.Add("Address", address)
	if err == nil {
		r.Add("Balance", bal.String())
		r.Add("Lamports", fmt.Sprintf("%d", uint64(bal)))
	}
	r.Add("Explorer", env.addr(address))
	return finish(r, err, env)
}

// ============================================================
// Issue / Verify / Revoke
// ============================================================

// Issue reports an SBT creation.
func Issue(res usecase.IssueResult, err error, env Env) Report {
	r := &Report{Title: "Soul-Bound Token Creation"}
	fundingFields(r, res.Funding)

	if res.Mint.MintAddress != "" {
		r.Add("Mint address", res.Mint.MintAddress)
		r.Add("Token account", res.Mint.TokenAccount)
		r.Add("Holder", res.Mint.Holder)
		r.Add("Name", res.Credential.Name)
		r.Add("Symbol", res.Credential.Symbol)
		r.Add("Metadata URI", res.Credential.MetadataURI)
		r.Add("Transaction", res.Mint.Signature)
		r.Add("Explorer", env.tx(res.Mint.Signature))
		r.Add("Token explorer", env.addr(res.Mint.MintAddress))
		r.Add("Balance before", res.BalanceBefore.String())
		if res.BalanceAfter > 0 {
			r.Add("Balance after", res.BalanceAfter.String())
			if res.BalanceBefore > res.BalanceAfter {
				r.Add("Cost", (res.BalanceBefore - res.BalanceAfter).String())
			}
		}
		r.Add("Frozen (non-transferable)", yesNo(res.State.Frozen))
		r.Add("Recorded", yesNo(res.Recorded))
		if res.Notified {
			r.Note("issuance notice sent")
		}
		r.NextSteps = []string{
			"Run `sbt verify --mint " + res.Mint.MintAddress + "` to confirm the token cannot be transferred",
			"Share the mint address with the holder",
			"Use `sbt burn --mint " + res.Mint.MintAddress + "` to revoke the credential",
		}
	}
	for _, w := range res.Warnings {
		r.Note("%s", w)
	}
	if err == nil && len(res.Warnings) > 0 {
		r.Status = StatusWarning
	}
	return finish(r, err, env)
}

// Verify reports a non-transferability check.
func Verify(res usecase.VerifyResult, err error, env Env) Report {
	r := &Report{Title: "Soul-Bound Token Verification"}
	r.Add("Mint address", res.MintAddress)
	r.Add("Holder", res.State.Holder)
	r.Add("Test recipient", res.Recipient)
	r.Add("Outcome", string(res.Outcome))

	switch res.Outcome {
	case sbt.OutcomeRejected:
		r.Note("transfer was rejected by the ledger as expected")
		if res.Detail != "" {
			r.Note("ledger said: %s", res.Detail)
		}
		r.Add("Non-transferable", "yes")
	case sbt.OutcomeTransferred:
		r.Add("Transaction", res.Signature)
		r.Add("Explorer", env.tx(res.Signature))
		r.Note("the token left the holder's wallet")
	case sbt.OutcomeInconclusive:
		r.Note("transfer failed for an unrelated reason: %s", res.Detail)
	}
	if res.Outcome != "" {
		r.Add("Recorded", yesNo(res.Recorded))
	}
	return finish(r, err, env)
}

// Revoke reports an SBT burn.
func Revoke(res usecase.RevokeResult, err error, env Env) Report {
	r := &Report{Title: "Soul-Bound Token Revocation"}
	r.Add("Mint address", res.MintAddress)
	r.Add("Reason", res.Reason)
	fundingFields(r, res.Funding)
	if res.Burn.Signature != "" {
		r.Add("Token account", res.Burn.TokenAccount)
		r.Add("Thawed", yesNo(res.Burn.Thawed))
		r.Add("Transaction", res.Burn.Signature)
		r.Add("Explorer", env.tx(res.Burn.Signature))
		if !res.RevokedAt.IsZero() {
			r.Add("Revoked at", res.RevokedAt.UTC().Format(time.RFC3339))
		}
		if res.BalanceAfter > 0 {
			r.Add("Balance after", res.BalanceAfter.String())
		}
		r.Add("Recorded", yesNo(res.Recorded))
		if res.Notified {
			r.Note("revocation notice sent")
		}
		r.Note("token supply is now 0 and the token account was closed")
	}
	for _, w := range res.Warnings {
		r.Note("%s", w)
	}
	return finish(r, err, env)
}

// ============================================================
// Network / Metadata
// ============================================================

// Network reports a connectivity check.
func Network(rep usecase.NetworkReport, err error, env Env) Report {
	r := &Report{Title: "Network Check"}
	r.Add("Cluster", env.Cluster)
	r.Add("Endpoint", rep.Info.Endpoint)
	r.Add("Core version", rep.Info.CoreVersion)
	r.Add("Latest blockhash", rep.Info.Blockhash)
	if rep.HasBal {
		r.Add("Wallet", rep.Address)
		r.Add("Balance", rep.Balance.String())
	}
	if err == nil {
		r.NextSteps = []string{"sbt mint", "sbt verify"}
	}
	return finish(r, err, env)
}

// Metadata reports a hosted metadata check.
func Metadata(rep usecase.MetadataReport, err error, env Env) Report {
	r := &Report{Title: "Metadata Check"}
	for _, u := range rep.URLs {
		v := fmt.Sprintf("%s [%d]", u.URL, u.Status)
		if !u.OK {
			v += " FAILED"
			if u.Err != "" {
				v += ": " + u.Err
			}
		}
		r.Add(u.Name, v)
	}
	if rep.ParseErr != "" {
		r.Note("metadata is not valid JSON: %s", rep.ParseErr)
	}
	if d := rep.Document; d != nil {
		r.Add("Name", d.Name)
		r.Add("Symbol", d.Symbol)
	}
	for _, c := range rep.Checks {
		mark := "ok"
		if !c.OK {
			mark = "MISMATCH"
		}
		if c.Expected != "" {
			r.Add(c.Name, fmt.Sprintf("%s (%s, expected %s)", c.Actual, mark, c.Expected))
		} else {
			r.Add(c.Name, mark)
		}
	}
	var listed []string
	for _, g := range rep.Governance {
		if g.Actual != "" {
			listed = append(listed, g.Name+"="+g.Actual)
		}
	}
	if len(listed) > 0 {
		r.Note("governance fields: %s", strings.Join(listed, ", "))
	}
	if err == nil {
		r.NextSteps = []string{"sbt mint"}
	}
	return finish(r, err, env)
}

// Published reports a metadata upload.
func Published(name, uri string, err error, env Env) Report {
	r := &Report{Title: "Metadata Publish"}
	r.Add("Source", name)
	r.Add("URI", uri)
	if err == nil {
		r.NextSteps = []string{"Set metadata.uri to " + uri, "sbt check-metadata"}
	}
	return finish(r, err, env)
}

// ============================================================
// Keys / Holdings
// ============================================================

// Keygen reports a generated keypair. The secret is never printed.
func Keygen(address, path, secretVersion string, env Env) Report {
	r := &Report{Title: "Keypair Generated", Status: StatusSuccess}
	r.Add("Address", address)
	r.Add("Keypair file", path)
	r.Add("Secret version", secretVersion)
	r.Add("Explorer", env.addr(address))
	r.NextSteps = []string{"sbt fund --address " + address}
	return *r
}

// Holdings reports the token accounts of one wallet.
func Holdings(owner string, views []usecase.HoldingView, err error, env Env) Report {
	r := &Report{Title: "Wallet Holdings"}
	r.Add("Owner", owner)
	sbts := 0
	for _, v := range views {
		h := v.Holding
		kind := "token"
		if v.SoulBound {
			kind = "SBT"
			sbts++
		}
		val := fmt.Sprintf("%s amount=%d decimals=%d frozen=%s", kind, h.Amount, h.Decimals, yesNo(h.Frozen))
		if v.Record != nil {
			val += fmt.Sprintf(" %s (%s)", v.Record.Name, v.Record.Status)
		}
		r.Add(h.Mint, val)
	}
	if err == nil {
		r.Note("%d token account(s), %d soul-bound", len(views), sbts)
	}
	return finish(r, err, env)
}
