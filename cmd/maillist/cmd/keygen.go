package cmd

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/maillist/internal/credential"
	"github.com/nhle/maillist/internal/keychain"
	"github.com/nhle/maillist/internal/model"
)

var forceKeygen bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the key pair used to decrypt messages",
	Long: `keygen creates a NaCl box key pair. The private key is stored in the
system keyring under the configured private key reference; the public key is
printed so it can be published in the key directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, closer, err := loadEnv()
		defer closer.Close()
		if err != nil {
			return err
		}

		creds, err := credential.Open(model.ConfigDir())
		if err != nil {
			return fmt.Errorf("open keyring: %w", err)
		}

		pub, err := generateKey(creds, cfg.Keys.PrivateKeyRef, forceKeygen)
		if err != nil {
			return err
		}
		logger.Info().Msg("generated key pair")
		fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(pub))
		return nil
	},
}

func init() {
	keygenCmd.Flags().BoolVar(&forceKeygen, "force", false, "replace an existing private key")
	rootCmd.AddCommand(keygenCmd)
}

// generateKey stores a new private key under ref and returns the public
// key. An existing key is kept unless force is set.
func generateKey(creds *credential.Store, ref string, force bool) ([]byte, error) {
	key, ok := strings.CutPrefix(ref, "keyring:")
	if !ok || key == "" {
		return nil, fmt.Errorf("private key reference %q must have the form keyring:<name>", ref)
	}
	if !force {
		if _, err := creds.Get(key); err == nil {
			return nil, fmt.Errorf("a private key already exists under %q; use --force to replace it", key)
		}
	}

	pub, priv, err := keychain.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := creds.Set(key, base64.StdEncoding.EncodeToString(priv)); err != nil {
		return nil, err
	}
	return pub, nil
}
