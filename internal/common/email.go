package common

// Attachment is a file attached to an outbound email.
type Attachment struct {
	Filename string
	MIME     string
	Data     []byte
}

// EmailSender defines the contract for sending emails with optional attachments.
type EmailSender interface {
	Send(to, subject, body string, attachments []Attachment) error
}

// Email represents a single email message captured by InMemoryEmail.
type Email struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// InMemoryEmail provides a test-friendly email sender that records messages.
type InMemoryEmail struct {
	Outbox []Email
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, body string, attachments []Attachment) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, Body: body, Attachments: attachments})
	return nil
}

// NopEmailSender implements EmailSender without performing any action.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(string, string, string, []Attachment) error { return nil }
