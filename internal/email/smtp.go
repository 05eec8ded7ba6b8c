package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"gxshared/internal/debuglog"
	"gxshared/internal/domain"
)

const (
	TLSNone     = "none"
	TLSStartTLS = "starttls"
	TLSImplicit = "tls"
)

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
}

func (s SMTPSettings) addr() string {
	host := s.Host
	if host == "" {
		host = "localhost"
	}
	port := s.Port
	if port == 0 {
		port = 1025
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

type SMTPClient struct {
	settings SMTPSettings
	sender   Address
	logger   *slog.Logger
	debug    *debuglog.Debugger
}

func NewSMTPClient(opts Options) *SMTPClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPClient{
		settings: opts.SMTP,
		sender:   opts.sender(),
		logger:   logger,
		debug:    opts.Debug,
	}
}

func (c *SMTPClient) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	c.debug.Server(debuglog.FeatureEmail, "sending email via smtp", "to", strings.Join(msg.To, ","), "subject", msg.Subject)

	sender := resolveSender(c.sender, msg.From)
	if msg.From != nil {
		c.debug.Server(debuglog.FeatureEmail, "using custom sender", "sender", formatSender(sender))
	}
	body, err := buildMessage(formatSender(sender), msg)
	if err != nil {
		return err
	}
	if err := c.deliver(ctx, sender.Email, envelopeRecipients(msg), body); err != nil {
		c.logger.Error("smtp send failed", "addr", c.settings.addr(), "subject", msg.Subject, "err", err)
		return domain.NewTransportError("smtp", "send", err)
	}
	c.debug.Server(debuglog.FeatureEmail, "email sent", "to", strings.Join(msg.To, ","))
	return nil
}

func (c *SMTPClient) deliver(ctx context.Context, from string, rcpts []string, body []byte) error {
	client, err := smtpConnect(ctx, c.settings)
	if err != nil {
		return err
	}
	defer client.Close()

	if c.settings.Username != "" {
		auth := smtp.PlainAuth("", c.settings.Username, c.settings.Password, c.settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func smtpConnect(ctx context.Context, settings SMTPSettings) (*smtp.Client, error) {
	addr := settings.addr()
	tlsConfig := &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var conn net.Conn
	var err error
	if settings.TLSMode == TLSImplicit {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	client, err := smtp.NewClient(conn, settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if settings.TLSMode == TLSStartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	return client, nil
}

func formatSender(a Address) string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

func envelopeRecipients(msg Message) []string {
	var out []string
	for _, list := range [][]string{msg.To, msg.CC, msg.BCC} {
		for _, raw := range list {
			if addr, err := mail.ParseAddress(raw); err == nil {
				out = append(out, addr.Address)
			}
		}
	}
	return out
}

// buildMessage renders a multipart/alternative body, wrapped in
// multipart/mixed when attachments are present. Bcc is never written.
func buildMessage(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	writeHeader := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	writeHeader("From", from)
	writeHeader("To", strings.Join(msg.To, ","))
	if len(msg.CC) > 0 {
		writeHeader("Cc", strings.Join(msg.CC, ","))
	}
	if msg.ReplyTo != "" {
		writeHeader("Reply-To", msg.ReplyTo)
	}
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("MIME-Version", "1.0")

	if len(msg.Attachments) == 0 {
		alt := multipart.NewWriter(&buf)
		writeHeader("Content-Type", "multipart/alternative; boundary="+alt.Boundary())
		buf.WriteString("\r\n")
		if err := writeAlternatives(alt, msg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mixed := multipart.NewWriter(&buf)
	writeHeader("Content-Type", "multipart/mixed; boundary="+mixed.Boundary())
	buf.WriteString("\r\n")

	var altBody bytes.Buffer
	alt := multipart.NewWriter(&altBody)
	if err := writeAlternatives(alt, msg); err != nil {
		return nil, err
	}
	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=" + alt.Boundary()},
	})
	if err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}
	if _, err := part.Write(altBody.Bytes()); err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}

	for _, a := range msg.Attachments {
		raw, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %s: %w", a.Name, err)
		}
		contentType := a.Type
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": a.Name})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Name})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, fmt.Errorf("build mime: %w", err)
		}
		if err := writeBase64Lines(part, raw); err != nil {
			return nil, fmt.Errorf("build mime: %w", err)
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAlternatives(w *multipart.Writer, msg Message) error {
	bodies := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, b := range bodies {
		if b.content == "" {
			continue
		}
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {b.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return fmt.Errorf("build mime: %w", err)
		}
		qp := quotedprintable.NewWriter(part)
		if _, err := qp.Write([]byte(b.content)); err != nil {
			return fmt.Errorf("build mime: %w", err)
		}
		if err := qp.Close(); err != nil {
			return fmt.Errorf("build mime: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build mime: %w", err)
	}
	return nil
}

func writeBase64Lines(w io.Writer, raw []byte) error {
	encoded := base64.StdEncoding.EncodeToString(raw)
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:76]); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := fmt.Fprintf(w, "%s\r\n", encoded)
	return err
}
