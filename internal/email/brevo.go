package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	brevo "github.com/getbrevo/brevo-go/lib"

	"gxshared/internal/debuglog"
	"gxshared/internal/domain"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoClient sends through the Brevo transactional email API.
type BrevoClient struct {
	apiKey string
	sender Address
	api    *brevo.APIClient
	logger *slog.Logger
	debug  *debuglog.Debugger
}

func NewBrevoClient(apiKey string, opts Options) *BrevoClient {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BrevoClient{
		apiKey: apiKey,
		sender: opts.sender(),
		api:    brevo.NewAPIClient(cfg),
		logger: logger,
		debug:  opts.Debug,
	}
}

func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.NewConfigurationError("APP_BREVO_API_KEY", "not set")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	c.debug.Server(debuglog.FeatureEmail, "sending email via brevo", "to", msg.To, "subject", msg.Subject)
	c.debug.Server(debuglog.FeatureEmail, "email text", "text", msg.Text)

	sender := resolveSender(c.sender, msg.From)
	if msg.From != nil {
		c.debug.Server(debuglog.FeatureEmail, "using custom sender", "sender", sender.Email)
	}
	payload := brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Email: sender.Email, Name: sender.Name},
		Subject:     msg.Subject,
		HtmlContent: msg.HTML,
		TextContent: msg.Text,
	}
	for _, a := range FormatRecipients(msg.To...) {
		payload.To = append(payload.To, brevo.SendSmtpEmailTo{Email: a.Email, Name: a.Name})
	}
	for _, a := range FormatRecipients(msg.CC...) {
		payload.Cc = append(payload.Cc, brevo.SendSmtpEmailCc{Email: a.Email, Name: a.Name})
	}
	for _, a := range FormatRecipients(msg.BCC...) {
		payload.Bcc = append(payload.Bcc, brevo.SendSmtpEmailBcc{Email: a.Email, Name: a.Name})
	}
	if msg.ReplyTo != "" {
		payload.ReplyTo = &brevo.SendSmtpEmailReplyTo{Email: msg.ReplyTo}
	}
	for _, a := range msg.Attachments {
		payload.Attachment = append(payload.Attachment, brevo.SendSmtpEmailAttachment{Name: a.Name, Content: a.Content})
	}

	res, resp, err := c.api.TransactionalEmailsApi.SendTransacEmail(ctx, payload)
	if err != nil {
		err = brevoFailure(resp, err)
		c.logger.Error("brevo send failed", "subject", msg.Subject, "err", err)
		return domain.NewTransportError("brevo", "send", err)
	}
	c.debug.Server(debuglog.FeatureEmail, "email sent", "message_id", res.MessageId)
	return nil
}

// brevoFailure adds the status and the API's {"code","message"} body to err.
func brevoFailure(resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("send brevo request: %w", err)
	}
	var apiErr brevo.GenericSwaggerError
	if errors.As(err, &apiErr) {
		var failure struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(apiErr.Body(), &failure) == nil && failure.Message != "" {
			return fmt.Errorf("status %d: %s: %s", resp.StatusCode, failure.Code, failure.Message)
		}
	}
	return fmt.Errorf("status %d: %w", resp.StatusCode, err)
}
