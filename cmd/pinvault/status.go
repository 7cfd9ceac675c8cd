package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/pinvault/pkg/vault"
)

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Shows whether the vault exists and is unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.v.Status(cmd.Context())
			if err != nil {
				return a.describeError(err)
			}
			if asJSON {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			outputStatusText(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func outputStatusText(w io.Writer, st *vault.Status) {
	fmt.Fprintf(w, "Account:     %s\n", st.Account)
	fmt.Fprintf(w, "State:       %s\n", st.StateName)
	if st.State == vault.StateNoVault {
		return
	}
	fmt.Fprintf(w, "Public key:  %s\n", st.PublicKey)
	if !st.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:     %s\n", st.CreatedAt.Local().Format(time.RFC3339))
	}
	if st.State == vault.StateUnlocked {
		fmt.Fprintf(w, "Unlocked to: %s (%s left)\n",
			st.UnlockedUntil.Local().Format(time.RFC3339),
			time.Until(st.UnlockedUntil).Round(time.Second))
	}
	if st.CooldownRemaining > 0 {
		fmt.Fprintf(w, "Cooldown:    %s\n", st.CooldownRemaining.Round(time.Second))
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPubkeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey",
		Short: "Prints the vault's base58 public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := a.v.PublicKey(cmd.Context())
			if err != nil {
				return a.describeError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pub)
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verifies the stored vault records",
		Long: `Checks that the stored vault records are well formed and that the current
unlock proof verifies against the public key. The PIN is not needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.v.CheckIntegrity(cmd.Context())
			if err != nil {
				return a.describeError(err)
			}
			if asJSON {
				if err := outputJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				for _, e := range result.Errors {
					fmt.Fprintf(w, "ERROR: %s\n", e)
				}
				for _, warning := range result.Warnings {
					fmt.Fprintf(w, "Warning: %s\n", warning)
				}
				if result.Valid {
					fmt.Fprintln(w, "Vault integrity OK")
				}
			}
			if !result.Valid {
				return fmt.Errorf("vault integrity check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
