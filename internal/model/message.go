package model

import (
	"strings"
	"time"
)

// Address is a single mailbox in a From/To header.
type Address struct {
	// Name is the display name, possibly empty.
	Name string `json:"name"`

	// Address is the addr-spec, e.g. "max@example.com".
	Address string `json:"address"`
}

// DisplayName returns the name if present, otherwise the address.
func (a Address) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Address
}

// Body holds the fetched content of a message.
type Body struct {
	// Text is the text/plain part.
	Text string `json:"text"`

	// HTML is the text/html part, used when Text is empty.
	HTML string `json:"html"`

	// Encrypted reports whether the message carries an encrypted part.
	Encrypted bool `json:"encrypted"`

	// Ciphertext is the raw encrypted payload when Encrypted is true.
	Ciphertext []byte `json:"ciphertext,omitempty"`
}

// Message is a summary of a mail message plus its body once fetched.
type Message struct {
	// UID is the IMAP UID, unique within a folder and used as the sort key.
	UID uint32 `json:"uid"`

	// MessageID is the RFC 5322 Message-ID header.
	MessageID string `json:"message_id"`

	From    []Address `json:"from"`
	To      []Address `json:"to"`
	Subject string    `json:"subject"`

	Unread  bool `json:"unread"`
	Flagged bool `json:"flagged"`

	// SentAt is the Date header (or internal date when absent).
	SentAt time.Time `json:"sent_at"`

	// Body is nil until the body has been fetched.
	Body *Body `json:"body,omitempty"`

	// Plaintext is the readable body after decryption. For unencrypted
	// messages it mirrors Body.Text.
	Plaintext string `json:"-"`

	// Decrypted reports whether Plaintext is populated.
	Decrypted bool `json:"-"`
}

// Sender returns the first From address, or the zero Address.
func (m *Message) Sender() Address {
	if len(m.From) == 0 {
		return Address{}
	}
	return m.From[0]
}

// HasBody reports whether the body has been fetched.
func (m *Message) HasBody() bool {
	return m.Body != nil
}

// Snippet returns the first line of readable content, for list rows.
func (m *Message) Snippet(max int) string {
	text := m.Plaintext
	if text == "" && m.Body != nil && !m.Body.Encrypted {
		text = m.Body.Text
	}
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if max > 0 && len([]rune(text)) > max {
		text = string([]rune(text)[:max-1]) + "…"
	}
	return text
}

// Recipients joins the To addresses for display.
func (m *Message) Recipients() string {
	parts := make([]string, 0, len(m.To))
	for _, a := range m.To {
		parts = append(parts, a.DisplayName())
	}
	return strings.Join(parts, ", ")
}
