package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/pinvault/pkg/vault"
)

func newLockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Locks the vault immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.Lock(cmd.Context()); err != nil {
				return fmt.Errorf("failed to lock vault: %w", a.describeError(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Vault locked")
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Permanently deletes the vault and its signing key",
		Long: `Deletes the encrypted key, the unlock proof, and the attempt history for
the account. The signing key cannot be recovered afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			state, err := a.v.State(ctx)
			if err != nil {
				return a.describeError(err)
			}
			if state == vault.StateNoVault {
				return a.describeError(vault.ErrVaultNotFound)
			}

			// Confirmation prompt (unless --force)
			if !force {
				fmt.Fprintf(cmd.ErrOrStderr(), "This will permanently delete the signing key for account '%s'.\n", a.accountID)
				if !a.confirm(cmd, "Are you sure?") {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			if err := a.v.Remove(ctx); err != nil {
				return fmt.Errorf("failed to remove vault: %w", a.describeError(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vault for account '%s' removed\n", a.accountID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}
