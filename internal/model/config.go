package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AccountConfig holds the IMAP account settings. The password is kept in
// the system keyring and referenced by PasswordRef.
type AccountConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	IMAPHost    string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort    string `mapstructure:"imap_port" yaml:"imap_port"`
	Username    string `mapstructure:"username" yaml:"username"`
	TLS         bool   `mapstructure:"tls" yaml:"tls"`
	PasswordRef string `mapstructure:"password_ref" yaml:"password_ref"`
}

// Configured reports whether enough is set to connect.
func (a AccountConfig) Configured() bool {
	return a.IMAPHost != "" && a.Username != ""
}

// KeysConfig controls public key lookup and private key storage.
type KeysConfig struct {
	// DirectoryURL is the base URL of the public key directory. Keys are
	// fetched from <DirectoryURL>/keys/<address>. Empty disables refresh.
	DirectoryURL string `mapstructure:"directory_url" yaml:"directory_url"`

	// PrivateKeyRef names the keyring item holding the private key.
	PrivateKeyRef string `mapstructure:"private_key_ref" yaml:"private_key_ref"`
}

// DisplayConfig holds list rendering and input timing preferences.
type DisplayConfig struct {
	Theme            string `mapstructure:"theme" yaml:"theme"`
	InitDisplayLen   int    `mapstructure:"init_display_len" yaml:"init_display_len"`
	ScrollDisplayLen int    `mapstructure:"scroll_display_len" yaml:"scroll_display_len"`
	SearchDebounceMs int    `mapstructure:"search_debounce_ms" yaml:"search_debounce_ms"`
	ScrollDebounceMs int    `mapstructure:"scroll_debounce_ms" yaml:"scroll_debounce_ms"`
	RowHeight        int    `mapstructure:"row_height" yaml:"row_height"`
}

// SearchDebounce returns the search quiet period.
func (d DisplayConfig) SearchDebounce() time.Duration {
	return time.Duration(d.SearchDebounceMs) * time.Millisecond
}

// ScrollDebounce returns the scroll quiet period.
func (d DisplayConfig) ScrollDebounce() time.Duration {
	return time.Duration(d.ScrollDebounceMs) * time.Millisecond
}

// NotificationConfig controls arrival notifications.
type NotificationConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	TimeoutMs int  `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// Timeout returns how long a notification stays up.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutMs) * time.Millisecond
}

// SyncConfig controls background polling and fetch pacing.
type SyncConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	FetchPerSec     int `mapstructure:"fetch_per_sec" yaml:"fetch_per_sec"`
	FolderLimit     int `mapstructure:"folder_limit" yaml:"folder_limit"`
}

// StorageConfig locates the local cache database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LogConfig controls the log sink.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Account       AccountConfig      `mapstructure:"account" yaml:"account"`
	Keys          KeysConfig         `mapstructure:"keys" yaml:"keys"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Sync          SyncConfig         `mapstructure:"sync" yaml:"sync"`
	Storage       StorageConfig      `mapstructure:"storage" yaml:"storage"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/maillist, or "." if the home directory is
// unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "maillist")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/maillist/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	return defaultAppConfig()
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Account: AccountConfig{
			IMAPPort: "993",
			TLS:      true,
		},
		Keys: KeysConfig{
			PrivateKeyRef: "keyring:private-key",
		},
		Display: DisplayConfig{
			Theme:            "default",
			InitDisplayLen:   50,
			ScrollDisplayLen: 10,
			SearchDebounceMs: 500,
			ScrollDebounceMs: 300,
			RowHeight:        2,
		},
		Notifications: NotificationConfig{
			Enabled:   true,
			TimeoutMs: 5000,
		},
		Sync: SyncConfig{
			PollIntervalSec: 60,
			FetchPerSec:     5,
			FolderLimit:     500,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(dir, "cache.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "maillist.log"),
		},
	}
}

// setDefaults mirrors defaultAppConfig so missing keys resolve to
// sensible values.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("account.imap_port", d.Account.IMAPPort)
	v.SetDefault("account.tls", d.Account.TLS)
	v.SetDefault("keys.private_key_ref", d.Keys.PrivateKeyRef)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.init_display_len", d.Display.InitDisplayLen)
	v.SetDefault("display.scroll_display_len", d.Display.ScrollDisplayLen)
	v.SetDefault("display.search_debounce_ms", d.Display.SearchDebounceMs)
	v.SetDefault("display.scroll_debounce_ms", d.Display.ScrollDebounceMs)
	v.SetDefault("display.row_height", d.Display.RowHeight)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.timeout_ms", d.Notifications.TimeoutMs)
	v.SetDefault("sync.poll_interval_sec", d.Sync.PollIntervalSec)
	v.SetDefault("sync.fetch_per_sec", d.Sync.FetchPerSec)
	v.SetDefault("sync.folder_limit", d.Sync.FolderLimit)
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with MAILLIST_ override file values
// (e.g. MAILLIST_ACCOUNT_USERNAME). If the file does not exist, it returns
// a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("maillist")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Non-positive values would disable paging or debouncing entirely.
	if cfg.Display.InitDisplayLen <= 0 {
		cfg.Display.InitDisplayLen = 50
	}
	if cfg.Display.ScrollDisplayLen <= 0 {
		cfg.Display.ScrollDisplayLen = 10
	}
	if cfg.Display.RowHeight <= 0 {
		cfg.Display.RowHeight = 2
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("account", cfg.Account)
	v.Set("keys", cfg.Keys)
	v.Set("display", cfg.Display)
	v.Set("notifications", cfg.Notifications)
	v.Set("sync", cfg.Sync)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
