// internal/adapters/out/mail/sendgrid_client.go
package mail

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"
)

// SendGridClient implements EmailClient.
type SendGridClient struct {
	apiKey   string
	fromName string
}

var _ EmailClient = (*SendGridClient)(nil)

func NewSendGridClient(apiKey, fromName string) *SendGridClient {
	if fromName == "" {
		fromName = "SBT Issuer"
	}
	return &SendGridClient{apiKey: apiKey, fromName: fromName}
}

// Send sends a plain text mail with a <pre> HTML alternative.
func (c *SendGridClient) Send(ctx context.Context, from, to, subject, body string) error {
	if c.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if from == "" {
		return fmt.Errorf("from address is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(c.fromName, from),
		subject,
		mail.NewEmail("", to),
		body,
		fmt.Sprintf("<pre>%s</pre>", html.EscapeString(body)),
	)

	response, err := sendgrid.NewSendClient(c.apiKey).SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		log.WithFields(log.Fields{"status": response.StatusCode, "body": response.Body}).Warn("[sendgrid] send failed")
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	log.WithFields(log.Fields{"status": response.StatusCode, "subject": subject}).Info("[sendgrid] mail sent")
	return nil
}
