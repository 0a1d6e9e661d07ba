// internal/application/presenter/errors.go
package presenter

import (
	"context"
	"errors"
	"fmt"

	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/config"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/retry"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitCritical = 3
)

type ErrorClass string

const (
	ClassNone         ErrorClass = ""
	ClassConfig       ErrorClass = "config"
	ClassFunding      ErrorClass = "funding"
	ClassNotFound     ErrorClass = "not_found"
	ClassExhausted    ErrorClass = "exhausted"
	ClassInconclusive ErrorClass = "inconclusive"
	ClassCritical     ErrorClass = "critical"
	ClassMetadata     ErrorClass = "metadata"
	ClassCancelled    ErrorClass = "cancelled"
	ClassUnexpected   ErrorClass = "unexpected"
)

// Classify maps err onto the failure taxonomy. Order matters: a critical
// verification failure wins over anything it wraps.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, usecase.ErrTransferSucceeded):
		return ClassCritical
	case errors.Is(err, config.ErrConfig), errors.Is(err, usecase.ErrInvalidInput):
		return ClassConfig
	case errors.Is(err, usecase.ErrInsufficientFunds):
		return ClassFunding
	case errors.Is(err, usecase.ErrMintNotFound):
		return ClassNotFound
	case errors.Is(err, usecase.ErrVerifyInconclusive):
		return ClassInconclusive
	case errors.Is(err, retry.ErrOperationExhausted):
		return ClassExhausted
	case errors.Is(err, usecase.ErrMetadataUnreachable):
		return ClassMetadata
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCancelled
	default:
		return ClassUnexpected
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	switch Classify(err) {
	case ClassNone:
		return ExitOK
	case ClassConfig:
		return ExitConfig
	case ClassCritical:
		return ExitCritical
	default:
		return ExitFailure
	}
}

// Troubleshooting returns guidance for the class of err on the given cluster.
func Troubleshooting(err error, cluster string) []string {
	status := fmt.Sprintf("Check Solana %s status: https://status.solana.com/", cluster)
	switch Classify(err) {
	case ClassConfig:
		return []string{
			"Set the authority key (SBT_AUTHORITY_SECRET_KEY, authority.keypair_file or authority.secret_name)",
			"Replace placeholder values such as PASTE_MINT_ADDRESS_HERE with real addresses",
			"Run `sbt keygen --out ~/.config/solana/sbt-authority.json` to create a keypair",
		}
	case ClassFunding:
		return []string{
			"Ensure the wallet holds enough SOL for rent and fees",
			fmt.Sprintf("Request funds manually: solana airdrop 1 <address> --url %s", cluster),
			"The faucet is rate limited; wait 5-10 minutes and retry",
			status,
		}
	case ClassNotFound:
		return []string{
			"Verify the mint address is correct",
			fmt.Sprintf("Make sure the token was created on %s", cluster),
			"The token may already have been burned",
		}
	case ClassExhausted:
		return []string{
			"Verify the authority key is correct",
			"Check that the authority is the freeze authority for this token",
			"Ensure you have sufficient SOL for the transaction",
			fmt.Sprintf("Try running the command again (%s can be unstable)", cluster),
			status,
		}
	case ClassInconclusive:
		return []string{
			"The transfer failed for a reason other than the freeze",
			"Inspect the token with `sbt holdings` and retry the verification",
			status,
		}
	case ClassCritical:
		return []string{
			"The token is NOT configured as non-transferable",
			"Check that the token account is frozen and the issuer holds the freeze authority",
			"Revoke the moved token with `sbt burn` and issue a new one",
		}
	case ClassMetadata:
		return []string{
			"Make sure the assets repository exists and GitHub Pages is enabled (Settings > Pages)",
			"Upload images/pog-token.png and metadata/metadata.json",
			"Verify metadata.json is valid JSON",
			"GitHub Pages can take a few minutes to publish changes",
		}
	case ClassCancelled:
		return []string{"The operation was cancelled before it finished; no further actions were submitted"}
	case ClassUnexpected:
		return []string{
			"Check your internet connection and the RPC endpoint",
			"Try again in a few moments",
			status,
		}
	}
	return nil
}

// Failure builds the report printed when an operation aborts before a result exists.
func Failure(title string, err error, cluster string) Report {
	st := StatusFailed
	if Classify(err) == ClassCritical {
		st = StatusCritical
	}
	return Report{
		Title:           title,
		Status:          st,
		Err:             err,
		Troubleshooting: Troubleshooting(err, cluster),
	}
}
