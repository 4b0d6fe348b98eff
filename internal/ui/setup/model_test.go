package setup

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/maillist/internal/credential"
	"github.com/nhle/maillist/internal/model"
)

func newSecrets() *credential.Store {
	return credential.NewStore(keyring.NewArrayKeyring(nil))
}

func TestSetup_SaveWritesConfigAndPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	secrets := newSecrets()

	m := New(model.AppConfig{}, path, secrets, 80, 30)
	require.NotNil(t, m.Start())
	assert.True(t, m.Active())
	assert.Equal(t, "993", m.values.port)

	m.values.name = "Work"
	m.values.host = " imap.example.com "
	m.values.username = "me@example.com"
	m.values.password = "hunter2"
	m.values.tls = true
	m.values.keysURL = "https://keys.example.com/"

	msg := m.Save()()
	require.IsType(t, SavedMsg{}, msg)
	cfg := msg.(SavedMsg).Config

	assert.Equal(t, "imap.example.com", cfg.Account.IMAPHost)
	assert.Equal(t, "keyring:"+PasswordKey, cfg.Account.PasswordRef)
	assert.Equal(t, "https://keys.example.com", cfg.Keys.DirectoryURL)

	pw, err := secrets.Get(PasswordKey)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", loaded.Account.Username)
	assert.Equal(t, "Work", loaded.Account.Name)
}

func TestSetup_EmptyPasswordKeepsStoredOne(t *testing.T) {
	cfg := model.AppConfig{Account: model.AccountConfig{
		IMAPHost:    "imap.example.com",
		IMAPPort:    "143",
		Username:    "me",
		PasswordRef: "keyring:" + PasswordKey,
	}}
	var saved *model.AppConfig

	m := New(cfg, "unused", nil, 80, 30)
	m.save = func(_ string, c *model.AppConfig) error {
		saved = c
		return nil
	}
	m.Start()
	assert.Equal(t, "143", m.values.port)
	assert.NoError(t, m.validatePassword(""))

	msg := m.Save()()
	require.IsType(t, SavedMsg{}, msg)
	require.NotNil(t, saved)
	assert.Equal(t, "keyring:"+PasswordKey, saved.Account.PasswordRef)
}

func TestSetup_SaveFailure(t *testing.T) {
	m := New(model.AppConfig{}, "unused", newSecrets(), 80, 30)
	m.save = func(string, *model.AppConfig) error { return errors.New("disk full") }
	m.Start()
	m.values.password = "pw"

	msg := m.Save()()
	require.IsType(t, FailedMsg{}, msg)
	assert.EqualError(t, msg.(FailedMsg).Err, "disk full")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validatePort("993"))
	assert.Error(t, validatePort("imap"))
	assert.Error(t, validatePort("70000"))
	assert.Error(t, validatePort(""))

	assert.NoError(t, validateOptionalURL(""))
	assert.NoError(t, validateOptionalURL("https://keys.example.com"))
	assert.Error(t, validateOptionalURL("keys.example.com"))

	assert.Error(t, validateRequired("Host")(" "))

	m := New(model.AppConfig{}, "", nil, 80, 30)
	assert.Error(t, m.validatePassword(""))
}

func TestSetup_EscCancels(t *testing.T) {
	m := New(model.AppConfig{}, "unused", nil, 80, 30)
	m.Start()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
	assert.False(t, m.Active())
}
