package mail

import (
	"bytes"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"

	"github.com/nhle/maillist/internal/model"
)

// EncryptedContentType marks a MIME part holding a NaCl box payload.
const EncryptedContentType = "application/x-nacl-box"

// parseBody parses a raw RFC 5322 message with go-message and extracts the
// text/plain and text/html parts plus any encrypted payload. Attachments
// are skipped.
func parseBody(raw []byte) *model.Body {
	body := &model.Body{}

	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not MIME; treat the whole thing as plain text.
		body.Text = string(raw)
		return body
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		var contentType string
		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ = h.ContentType()
			if contentType == "" {
				contentType = "text/plain"
			}
		case *gomail.AttachmentHeader:
			contentType, _, _ = h.ContentType()
			if contentType != EncryptedContentType {
				continue
			}
		default:
			continue
		}

		data, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case contentType == EncryptedContentType:
			body.Encrypted = true
			body.Ciphertext = data
		case strings.HasPrefix(contentType, "text/plain") && body.Text == "":
			body.Text = string(data)
		case strings.HasPrefix(contentType, "text/html") && body.HTML == "":
			body.HTML = string(data)
		}
	}

	return body
}
