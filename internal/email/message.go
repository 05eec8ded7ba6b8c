// Package email sends transactional mail through a hosted API or SMTP and
// renders the named templates used by the auth and newsletter flows.
package email

import (
	"context"
	"encoding/base64"
	"net/mail"

	"gxshared/internal/domain"
)

const (
	DefaultSenderEmail = "no-reply@example.com"
	DefaultSenderName  = "Website"
)

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attachment content is base64 encoded.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	From        *Address
	CC          []string
	BCC         []string
	ReplyTo     string
	Attachments []Attachment
}

type Client interface {
	Send(ctx context.Context, msg Message) error
}

// FormatRecipients normalizes addresses into the hosted API shape, keeping
// their order.
func FormatRecipients(emails ...string) []Address {
	out := make([]Address, 0, len(emails))
	for _, e := range emails {
		out = append(out, Address{Email: e})
	}
	return out
}

// Validate checks every address and attachment before a provider is called.
func (m Message) Validate() error {
	fields := map[string]string{}
	if len(m.To) == 0 {
		fields["to"] = "required"
	}
	checkList := func(field string, list []string) {
		for _, addr := range list {
			if _, err := mail.ParseAddress(addr); err != nil {
				fields[field] = "invalid address " + addr
				return
			}
		}
	}
	checkList("to", m.To)
	checkList("cc", m.CC)
	checkList("bcc", m.BCC)
	if m.ReplyTo != "" {
		checkList("replyTo", []string{m.ReplyTo})
	}
	if m.From != nil {
		checkList("from", []string{m.From.Email})
	}
	if m.Subject == "" {
		fields["subject"] = "required"
	}
	for _, a := range m.Attachments {
		if a.Name == "" {
			fields["attachments"] = "name required"
			break
		}
		if _, err := base64.StdEncoding.DecodeString(a.Content); err != nil {
			fields["attachments"] = "invalid base64 content in " + a.Name
			break
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

func resolveSender(def Address, override *Address) Address {
	if override != nil {
		return *override
	}
	return def
}
