package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line    string
		want    CommandMsg
		wantErr bool
	}{
		{line: "folder Archive", want: CommandMsg{Name: Folder, Arg: "Archive"}},
		{line: ":cd  Sent Mail ", want: CommandMsg{Name: Folder, Arg: "Sent Mail"}},
		{line: "search quarterly report", want: CommandMsg{Name: Search, Arg: "quarterly report"}},
		{line: "search", want: CommandMsg{Name: Search}},
		{line: "open 42", want: CommandMsg{Name: Open, Arg: "42"}},
		{line: "REFRESH", want: CommandMsg{Name: Sync}},
		{line: "q", want: CommandMsg{Name: Quit}},
		{line: "config", want: CommandMsg{Name: Setup}},
		{line: "folder", wantErr: true},
		{line: "  ", wantErr: true},
		{line: "delete everything", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func typeLine(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModel_EnterEmitsCommand(t *testing.T) {
	m := typeLine(New(80, 20), "folder Sent")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg{Name: Folder, Arg: "Sent"}, cmd())
	assert.Empty(t, m.input.Value())
}

func TestModel_InvalidCommandStays(t *testing.T) {
	m := typeLine(New(80, 20), "bogus")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "bogus", m.input.Value())
	assert.Contains(t, m.View(), `unknown command "bogus"`)
}

func TestModel_EscCancels(t *testing.T) {
	m := typeLine(New(80, 20), "sync")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
	assert.Empty(t, m.input.Value())
}
