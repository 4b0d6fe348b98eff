package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseBody_Multipart(t *testing.T) {
	raw := crlf(`From: Max <max@example.com>
To: me@example.com
Subject: hi
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

plain text
--b1
Content-Type: text/html; charset=utf-8

<p>html</p>
--b1--
`)

	body := parseBody(raw)
	require.NotNil(t, body)
	assert.Equal(t, "plain text", strings.TrimSpace(body.Text))
	assert.Equal(t, "<p>html</p>", strings.TrimSpace(body.HTML))
	assert.False(t, body.Encrypted)
}

func TestParseBody_EncryptedPart(t *testing.T) {
	raw := crlf(`From: max@example.com
Subject: secret
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b2"

--b2
Content-Type: text/plain

This message is encrypted.
--b2
Content-Type: application/x-nacl-box
Content-Disposition: attachment; filename="message.box"
Content-Transfer-Encoding: base64

AAECAw==
--b2--
`)

	body := parseBody(raw)
	require.NotNil(t, body)
	assert.True(t, body.Encrypted)
	assert.Equal(t, []byte{0, 1, 2, 3}, body.Ciphertext)
	assert.Equal(t, "This message is encrypted.", strings.TrimSpace(body.Text))
}

func TestParseBody_SkipsAttachments(t *testing.T) {
	raw := crlf(`From: max@example.com
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b3"

--b3
Content-Type: text/plain

see attached
--b3
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

not the body
--b3--
`)

	body := parseBody(raw)
	assert.Equal(t, "see attached", strings.TrimSpace(body.Text))
	assert.False(t, body.Encrypted)
}

func TestParseBody_SinglePart(t *testing.T) {
	raw := crlf(`From: max@example.com
Subject: plain

just text
`)

	body := parseBody(raw)
	assert.Equal(t, "just text", strings.TrimSpace(body.Text))
}
