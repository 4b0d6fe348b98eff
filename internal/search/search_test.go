package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/maillist/internal/model"
)

func fixtures() []*model.Message {
	return []*model.Message{
		{
			UID:     1,
			Subject: "Quarterly Report",
			From:    []model.Address{{Name: "Max Mustermann", Address: "max@example.com"}},
		},
		{
			UID:     2,
			Subject: "Straße und Weg",
			From:    []model.Address{{Address: "erika@example.com"}},
			Body:    &model.Body{Text: "Let's meet at noon"},
		},
		{
			UID:     3,
			Subject: "secret",
			From:    []model.Address{{Address: "ada@example.net"}},
			Body:    &model.Body{Encrypted: true, Text: "hidden marker"},
		},
		{
			UID:       4,
			Subject:   "decrypted",
			To:        []model.Address{{Name: "Linus"}},
			Body:      &model.Body{Encrypted: true},
			Plaintext: "launch codes",
			Decrypted: true,
		},
	}
}

func uids(msgs []*model.Message) []uint32 {
	out := []uint32{}
	for _, m := range msgs {
		out = append(out, m.UID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []uint32
	}{
		{name: "subject case insensitive", query: "quarterly", want: []uint32{1}},
		{name: "sender name", query: "MUSTERMANN", want: []uint32{1}},
		{name: "sender address", query: "example.com", want: []uint32{1, 2}},
		{name: "unicode folding", query: "STRASSE", want: []uint32{2}},
		{name: "body text", query: "noon", want: []uint32{2}},
		{name: "encrypted body not searched", query: "marker", want: []uint32{}},
		{name: "decrypted plaintext searched", query: "launch", want: []uint32{4}},
		{name: "recipient", query: "linus", want: []uint32{4}},
		{name: "all terms must match", query: "max report", want: []uint32{1}},
		{name: "one term missing", query: "max noon", want: []uint32{}},
		{name: "empty query", query: "   ", want: []uint32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uids(Filter(fixtures(), tt.query)))
		})
	}
}

func TestFilter_NilInput(t *testing.T) {
	assert.Empty(t, Filter(nil, "x"))
	assert.Empty(t, Filter([]*model.Message{nil}, "x"))
}
