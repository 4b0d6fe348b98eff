package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/maillist/internal/app"
	"github.com/nhle/maillist/internal/credential"
	"github.com/nhle/maillist/internal/keychain"
	"github.com/nhle/maillist/internal/mail"
	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/notify"
	"github.com/nhle/maillist/internal/search"
	"github.com/nhle/maillist/internal/store"
	appsync "github.com/nhle/maillist/internal/sync"
)

// devMessages is the number of generated messages per folder in dev mode.
const devMessages = 240

// inboxFolder is the folder the poller watches.
var inboxFolder = model.Folder{Path: "INBOX", Name: "INBOX", Type: model.FolderTypeInbox}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, closer, err := loadEnv()
	defer closer.Close()
	if err != nil {
		return err
	}
	logger.Info().Bool("dev", devMode).Str("config", configPath()).Msg("starting")

	creds, err := openCredentials()
	if err != nil {
		return err
	}

	deps := app.Deps{
		Keys:       keychain.New(creds, cfg.Keys.DirectoryURL, cfg.Keys.PrivateKeyRef, keychain.WithLogger(logger)),
		Filter:     search.Filter,
		Config:     cfg,
		ConfigPath: configPath(),
		Secrets:    creds,
	}

	var fetcher appsync.Fetcher
	if devMode {
		dummy := mail.NewDummyService(devMessages)
		deps.Mail, fetcher = dummy, dummy
		deps.Center = notify.New(notify.WithLogger(logger))
	} else {
		st, err := store.NewSQLiteStore(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer st.Close()
		closeStaleNotifications(ctx, st, logger)

		svc, err := newMailService(cfg, creds, st, logger)
		if err != nil {
			return err
		}
		deps.Mail, fetcher = svc, svc
		deps.Center = notify.New(notify.WithRecorder(st), notify.WithLogger(logger))
	}
	defer deps.Center.Shutdown()

	if devMode || cfg.Account.Configured() {
		deps.Poller = appsync.New(fetcher, inboxFolder,
			appsync.WithInterval(time.Duration(cfg.Sync.PollIntervalSec)*time.Second),
			appsync.WithLogger(logger),
		)
		defer deps.Poller.Stop()
	}

	m := app.New(deps, app.Options{
		Dev:    devMode,
		Folder: folder,
		Route:  openUID,
		Logger: logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// openCredentials opens the system keyring. Dev mode keeps secrets in
// memory.
func openCredentials() (*credential.Store, error) {
	if devMode {
		return credential.NewStore(keyring.NewArrayKeyring(nil)), nil
	}
	creds, err := credential.Open(model.ConfigDir())
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return creds, nil
}

// newMailService connects the IMAP account from cfg to the local cache. An
// account that is not configured yet yields a service that fails every
// call; the setup form opens instead.
func newMailService(
	cfg *model.AppConfig,
	creds *credential.Store,
	st store.Store,
	logger zerolog.Logger,
) (*mail.Service, error) {
	a := cfg.Account

	var password string
	if a.Configured() {
		var err error
		password, err = creds.Resolve(a.PasswordRef)
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			return nil, fmt.Errorf("read password: %w", err)
		}
	}

	port, err := strconv.Atoi(a.IMAPPort)
	if err != nil && a.IMAPPort != "" {
		return nil, fmt.Errorf("invalid imap port %q: %w", a.IMAPPort, err)
	}

	client := mail.NewIMAPClient(a.IMAPHost, port, a.Username, password, a.TLS)
	return mail.NewService(client, st,
		mail.WithFetchRate(cfg.Sync.FetchPerSec),
		mail.WithFolderLimit(cfg.Sync.FolderLimit),
		mail.WithLogger(logger),
	), nil
}

// closeStaleNotifications closes log entries left open by a previous run;
// their toasts are gone.
func closeStaleNotifications(ctx context.Context, st store.Store, logger zerolog.Logger) {
	open, err := st.GetOpenNotifications(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("reading notification log")
		return
	}
	now := time.Now()
	for _, n := range open {
		if err := st.CloseNotification(ctx, n.ID, now); err != nil {
			logger.Warn().Err(err).Str("id", n.ID).Msg("closing stale notification")
		}
	}
}
