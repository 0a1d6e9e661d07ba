// internal/adapters/out/mail/credential_mailer.go
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
)

// EmailClient abstracts the mail transport (SendGrid, SMTP, ...).
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// CredentialMailer sends issuance and revocation notices to holders.
type CredentialMailer struct {
	client      EmailClient
	fromAddress string
}

var _ usecase.Notifier = (*CredentialMailer)(nil)

func NewCredentialMailer(client EmailClient, fromAddress string) *CredentialMailer {
	return &CredentialMailer{client: client, fromAddress: strings.TrimSpace(fromAddress)}
}

func (m *CredentialMailer) Notify(ctx context.Context, n usecase.Notice) error {
	subject, body, err := renderNotice(n)
	if err != nil {
		return err
	}
	return m.client.Send(ctx, m.fromAddress, n.To, subject, body)
}

func renderNotice(n usecase.Notice) (string, string, error) {
	c := n.Credential
	var b strings.Builder
	var subject string

	switch n.Kind {
	case usecase.NoticeIssued:
		subject = fmt.Sprintf("Your %s credential was issued", c.Name)
		fmt.Fprintf(&b, "A soul-bound %s (%s) credential was issued to your wallet.\n\n", c.Name, c.Symbol)
		fmt.Fprintf(&b, "Wallet:   %s\n", c.Holder)
		fmt.Fprintf(&b, "Mint:     %s\n", c.MintAddress)
		fmt.Fprintf(&b, "Network:  %s\n", c.Network)
		fmt.Fprintf(&b, "Issued:   %s\n", c.IssuedAt.UTC().Format(time.RFC1123))
		b.WriteString("\nThe token is frozen in your wallet and cannot be transferred.\n")
	case usecase.NoticeRevoked:
		subject = fmt.Sprintf("Your %s credential was revoked", c.Name)
		fmt.Fprintf(&b, "The soul-bound %s (%s) credential held by your wallet was revoked by its issuer.\n\n", c.Name, c.Symbol)
		fmt.Fprintf(&b, "Wallet:   %s\n", c.Holder)
		fmt.Fprintf(&b, "Mint:     %s\n", c.MintAddress)
		if c.RevokeReason != "" {
			fmt.Fprintf(&b, "Reason:   %s\n", c.RevokeReason)
		}
		if c.RevokedAt != nil {
			fmt.Fprintf(&b, "Revoked:  %s\n", c.RevokedAt.UTC().Format(time.RFC1123))
		}
	default:
		return "", "", fmt.Errorf("mail: unknown notice kind %q", n.Kind)
	}
	if n.ExplorerURL != "" {
		fmt.Fprintf(&b, "\nTransaction: %s\n", n.ExplorerURL)
	}
	return subject, b.String(), nil
}
