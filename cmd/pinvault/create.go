package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forest6511/pinvault/internal/config"
	"github.com/forest6511/pinvault/pkg/security"
	"github.com/forest6511/pinvault/pkg/vault"
)

func newCreateCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Creates the PIN vault for an account",
		Long: `Creates a new signing key and protects it with a PIN.

The access token is read from $` + config.EnvToken + `, or prompted for when unset.
Its audience claim can later unlock the vault in place of the PIN.

Creating over an existing vault replaces its key; --force is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// 1. Refuse to replace a vault silently
			state, err := a.v.State(ctx)
			if err != nil {
				return a.describeError(err)
			}
			if state != vault.StateNoVault && !force {
				return fmt.Errorf("vault already exists for account '%s' (use --force to replace it)", a.accountID)
			}

			// 2. Prompt for PIN
			pin1, err := a.readSecret(cmd, "Enter new PIN: ")
			if err != nil {
				return err
			}

			// 3. Confirm PIN
			pin2, err := a.readSecret(cmd, "Confirm PIN: ")
			if err != nil {
				return err
			}

			// 4. Check PINs match
			pin := security.NormalizePIN(pin1)
			if pin != security.NormalizePIN(pin2) {
				return errors.New("PINs do not match")
			}

			// 5. Validate PIN format, show strength (advisory)
			if err := security.ValidatePIN(pin); err != nil {
				return fmt.Errorf("PIN validation failed: %w", err)
			}
			analysis := security.AnalyzePIN(pin)
			fmt.Fprintf(cmd.ErrOrStderr(), "PIN strength: %s\n", analysis.Strength)
			for _, warning := range analysis.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
			}

			// 6. Access token
			token, err := a.accessToken(cmd)
			if err != nil {
				return err
			}

			// 7. Create vault
			pub, err := a.v.Create(ctx, pin, token)
			if err != nil {
				return fmt.Errorf("failed to create vault: %w", a.describeError(err))
			}

			// 8. Persist the configuration in effect so later runs agree on the backend
			if err := a.saveConfigIfMissing(); err != nil {
				a.log.Warn().Err(err).Msg("failed to write configuration file")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Vault created for account '%s'\n", a.accountID)
			fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\n", pub)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing vault")
	return cmd
}

// accessToken reads $PINVAULT_TOKEN, prompting when it is unset.
func (a *app) accessToken(cmd *cobra.Command) (string, error) {
	if token := os.Getenv(config.EnvToken); token != "" {
		return token, nil
	}
	token, err := a.readSecret(cmd, "Enter access token: ")
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.New("access token is required")
	}
	return token, nil
}

func (a *app) saveConfigIfMissing() error {
	_, err := os.Stat(filepath.Join(a.homeDir, config.FileName))
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return a.cfg.Save(a.homeDir)
}
