package presenter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/config"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/retry"
)

var devnet = Env{Cluster: "devnet", Explorer: config.NetworkConfig{Cluster: config.ClusterDevnet}}

func TestClassifyAndExitCode(t *testing.T) {
	exhausted := &retry.ExhaustedError{Op: "burn", Attempts: 3, Last: errors.New("blockhash not found")}

	cases := []struct {
		name  string
		err   error
		class ErrorClass
		code  int
	}{
		{"nil", nil, ClassNone, ExitOK},
		{"config", fmt.Errorf("%w: authority key missing", config.ErrConfig), ClassConfig, ExitConfig},
		{"invalid input", fmt.Errorf("%w: mint", usecase.ErrInvalidInput), ClassConfig, ExitConfig},
		{"funding", fmt.Errorf("%w: short", usecase.ErrInsufficientFunds), ClassFunding, ExitFailure},
		{"exhausted", exhausted, ClassExhausted, ExitFailure},
		{"inconclusive", fmt.Errorf("%w: %w", usecase.ErrVerifyInconclusive, exhausted), ClassInconclusive, ExitFailure},
		{"critical", fmt.Errorf("%w: moved", usecase.ErrTransferSucceeded), ClassCritical, ExitCritical},
		{"not found", usecase.ErrMintNotFound, ClassNotFound, ExitFailure},
		{"cancelled", context.Canceled, ClassCancelled, ExitFailure},
		{"other", errors.New("boom"), ClassUnexpected, ExitFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.class, Classify(tc.err))
			assert.Equal(t, tc.code, ExitCode(tc.err))
		})
	}
}

func TestTroubleshootingMentionsCluster(t *testing.T) {
	tips := Troubleshooting(usecase.ErrInsufficientFunds, "testnet")
	require.NotEmpty(t, tips)
	assert.Contains(t, tips[1], "--url testnet")
	assert.Nil(t, Troubleshooting(nil, "devnet"))
}

func TestIssueReport(t *testing.T) {
	res := usecase.IssueResult{
		Mint:          ledger.MintResult{MintAddress: "Mint111", TokenAccount: "Ata111", Holder: "Holder111", Signature: "Sig111"},
		BalanceBefore: ledger.MustSOL("1"),
		BalanceAfter:  ledger.MustSOL("0.98"),
		State:         ledger.TokenState{Frozen: true},
		Credential:    sbt.Credential{Name: "Proof of Governance", Symbol: "POG"},
		Recorded:      true,
	}
	r := Issue(res, nil, devnet)

	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "Mint111", r.Value("Mint address"))
	assert.Equal(t, "https://explorer.solana.com/tx/Sig111?cluster=devnet", r.Value("Explorer"))
	assert.Equal(t, "0.0200 SOL", r.Value("Cost"))
	assert.Len(t, r.NextSteps, 3)
	assert.Empty(t, r.Troubleshooting)

	res.Warnings = []string{"mint authority still set"}
	assert.Equal(t, StatusWarning, Issue(res, nil, devnet).Status)
}

func TestVerifyReportCritical(t *testing.T) {
	res := usecase.VerifyResult{MintAddress: "Mint111", Recipient: "R", Outcome: sbt.OutcomeTransferred, Signature: "Sig"}
	r := Verify(res, fmt.Errorf("%w: moved", usecase.ErrTransferSucceeded), devnet)

	assert.Equal(t, StatusCritical, r.Status)
	assert.Equal(t, "transferred", r.Value("Outcome"))
	require.NotEmpty(t, r.Troubleshooting)
	assert.Contains(t, r.Troubleshooting[0], "NOT configured as non-transferable")
}

func TestVerifyReportRejected(t *testing.T) {
	r := Verify(usecase.VerifyResult{MintAddress: "Mint111", Outcome: sbt.OutcomeRejected, Detail: "Account is frozen"}, nil, devnet)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "yes", r.Value("Non-transferable"))
	assert.Contains(t, r.Notes[1], "Account is frozen")
}

func TestFundingReportInsufficientIsWarning(t *testing.T) {
	f := usecase.FundingReport{Address: "Addr", Required: ledger.MustSOL("1"), Requested: 3, Failures: []string{"429"}}
	r := Funding(f, nil, devnet)
	assert.Equal(t, StatusWarning, r.Status)
	assert.Equal(t, "no", r.Value("Sufficient"))
	assert.NotEmpty(t, r.Troubleshooting)
}

func TestRenderText(t *testing.T) {
	r := Failure("Soul-Bound Token Revocation", fmt.Errorf("%w: burn", retry.ErrOperationExhausted), "devnet")
	r.Add("Mint address", "Mint111")

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatText))
	out := buf.String()

	assert.Contains(t, out, "=== Soul-Bound Token Revocation ===")
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "Mint address:  Mint111")
	assert.Contains(t, out, "Troubleshooting:\n  1. Verify the authority key is correct")
}

func TestRenderJSON(t *testing.T) {
	r := Balance("Addr", ledger.MustSOL("0.5"), nil, devnet)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Wallet Balance", got["title"])
	assert.Equal(t, "success", got["status"])
	assert.NotContains(t, got, "error")

	buf.Reset()
	require.NoError(t, Failure("x", errors.New("boom"), "devnet").Render(&buf, FormatJSON))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "boom", got["error"])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}
