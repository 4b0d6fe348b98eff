package setup

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/maillist/internal/credential"
	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/theme"
)

// PasswordKey is the keyring item holding the IMAP password.
const PasswordKey = "imap-password"

// SavedMsg signals the account settings were written.
type SavedMsg struct {
	Config *model.AppConfig
}

// FailedMsg signals the settings could not be saved.
type FailedMsg struct {
	Err error
}

// CancelMsg signals the form was closed without saving.
type CancelMsg struct{}

// Secrets stores the password outside the config file.
type Secrets interface {
	Set(key, value string) error
}

// fields holds the form values. It lives on the heap so the huh inputs keep
// pointing at the same values while Model is copied by Update.
type fields struct {
	name     string
	host     string
	port     string
	username string
	password string
	tls      bool
	keysURL  string
}

// Model is the first-run and edit form for the mail account.
type Model struct {
	form    *huh.Form
	cfg     model.AppConfig
	path    string
	secrets Secrets
	values  *fields
	save    func(path string, cfg *model.AppConfig) error
	width   int
	height  int
}

// New creates a setup form seeded from cfg. Saving writes the config to path
// and the password to secrets.
func New(cfg model.AppConfig, path string, secrets Secrets, width, height int) Model {
	return Model{
		cfg:     cfg,
		path:    path,
		secrets: secrets,
		save:    model.SaveConfig,
		width:   width,
		height:  height,
	}
}

// Start builds a fresh form from the current settings.
func (m *Model) Start() tea.Cmd {
	a := m.cfg.Account
	m.values = &fields{
		name:     a.Name,
		host:     a.IMAPHost,
		port:     a.IMAPPort,
		username: a.Username,
		tls:      a.TLS,
		keysURL:  m.cfg.Keys.DirectoryURL,
	}
	if m.values.port == "" {
		m.values.port = "993"
	}
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	v := m.values
	passwordDesc := "Account password or app password"
	if m.cfg.Account.PasswordRef != "" {
		passwordDesc = "Leave empty to keep the stored password"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("A label for this account").
				Placeholder("Work").
				Value(&v.name),
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("imap.example.com").
				Value(&v.host).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993)").
				Placeholder("993").
				Value(&v.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&v.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description(passwordDesc).
				EchoMode(huh.EchoModePassword).
				Value(&v.password).
				Validate(m.validatePassword),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&v.tls),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Key Directory").
				Description("Base URL for sender public keys, optional").
				Placeholder("https://keys.example.com").
				Value(&v.keysURL).
				Validate(validateOptionalURL),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

// Init returns the command that starts the form.
func (m Model) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// Update forwards messages to the form and reports completion.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.Save()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// Save returns a command that stores the password and writes the config.
func (m Model) Save() tea.Cmd {
	cfg := m.cfg
	v := *m.values
	secrets := m.secrets
	save := m.save
	path := m.path

	return func() tea.Msg {
		cfg.Account.Name = strings.TrimSpace(v.name)
		cfg.Account.IMAPHost = strings.TrimSpace(v.host)
		cfg.Account.IMAPPort = strings.TrimSpace(v.port)
		cfg.Account.Username = strings.TrimSpace(v.username)
		cfg.Account.TLS = v.tls
		cfg.Keys.DirectoryURL = strings.TrimRight(strings.TrimSpace(v.keysURL), "/")

		if v.password != "" {
			if secrets == nil {
				return FailedMsg{Err: fmt.Errorf("no keyring available for the password")}
			}
			if err := secrets.Set(PasswordKey, v.password); err != nil {
				return FailedMsg{Err: fmt.Errorf("saving password: %w", err)}
			}
			cfg.Account.PasswordRef = credential.Ref(PasswordKey)
		}

		if err := save(path, &cfg); err != nil {
			return FailedMsg{Err: err}
		}
		return SavedMsg{Config: &cfg}
	}
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Mail Account")

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, m.form.View()))
}

// Active reports whether the form is open.
func (m Model) Active() bool {
	return m.form != nil
}

// SetConfig replaces the settings the next Start seeds from.
func (m *Model) SetConfig(cfg model.AppConfig) {
	m.cfg = cfg
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) validatePassword(s string) error {
	if s == "" && m.cfg.Account.PasswordRef == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("port is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validateOptionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}
