// Package notify delivers issued quotes to the customer (SMTP email) and
// into the bakery's quote log spreadsheet.
package notify

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"

	"github.com/noah-isme/bakery-quote/internal/common"
)

// SMTPConfig holds the outbound mail settings.
type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Sender     string
	SenderName string
	UseSSL     bool
	UseTLS     bool
}

// Configured reports whether enough settings are present to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Sender != ""
}

// SMTPEmail sends quote emails through a real SMTP server.
type SMTPEmail struct {
	cfg SMTPConfig
}

func NewSMTPEmail(cfg SMTPConfig) *SMTPEmail {
	return &SMTPEmail{cfg: cfg}
}

// Send delivers one message with the given attachments. A new SMTP
// session is opened per message.
func (s *SMTPEmail) Send(to, subject, body string, attachments []common.Attachment) error {
	if !s.cfg.Configured() {
		return fmt.Errorf("smtp settings are missing or incomplete")
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	var (
		mail *mailyak.MailYak
		err  error
	)
	if s.cfg.UseSSL || s.cfg.UseTLS {
		mail, err = mailyak.NewWithTLS(addr, auth, nil)
		if err != nil {
			return fmt.Errorf("smtp tls setup: %w", err)
		}
	} else {
		mail = mailyak.New(addr, auth)
	}

	mail.From(s.cfg.Sender)
	if s.cfg.SenderName != "" {
		mail.FromName(s.cfg.SenderName)
	}
	mail.To(to)
	mail.Subject(subject)
	mail.Plain().Set(body)
	for _, a := range attachments {
		mail.AttachWithMimeType(a.Filename, bytes.NewReader(a.Data), a.MIME)
	}
	return mail.Send()
}
