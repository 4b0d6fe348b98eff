// Package search filters messages by free-text queries.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/nhle/maillist/internal/model"
)

// Filter returns the messages matching query, in their original order.
// The query is split on whitespace and every term must appear, case
// folded, in the subject, a sender or recipient, or the readable body.
// An empty query matches nothing.
func Filter(messages []*model.Message, query string) []*model.Message {
	terms := strings.Fields(fold(query))
	if len(terms) == 0 {
		return nil
	}

	var out []*model.Message
	for _, m := range messages {
		if m == nil {
			continue
		}
		if matches(haystack(m), terms) {
			out = append(out, m)
		}
	}
	return out
}

func matches(text string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

// haystack concatenates the searchable fields of m, folded.
func haystack(m *model.Message) string {
	var b strings.Builder
	b.WriteString(m.Subject)
	for _, a := range m.From {
		b.WriteByte('\n')
		b.WriteString(a.Name)
		b.WriteByte(' ')
		b.WriteString(a.Address)
	}
	for _, a := range m.To {
		b.WriteByte('\n')
		b.WriteString(a.Name)
		b.WriteByte(' ')
		b.WriteString(a.Address)
	}
	switch {
	case m.Decrypted:
		b.WriteByte('\n')
		b.WriteString(m.Plaintext)
	case m.Body != nil && !m.Body.Encrypted:
		b.WriteByte('\n')
		b.WriteString(m.Body.Text)
	}
	return fold(b.String())
}

// fold applies Unicode case folding. A Caser is stateful, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
