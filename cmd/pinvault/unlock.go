package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/pinvault/internal/config"
)

func newUnlockCmd(a *app) *cobra.Command {
	var (
		useToken bool
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlocks the vault for a limited time",
		Long: `Unlocks the vault with the PIN, or with an access token when --token is set.

With --token the token is read from $` + config.EnvToken + `, or prompted for.
The unlock lasts --duration (default: unlock_duration from config.yaml).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d := a.cfg.UnlockDuration
			if cmd.Flags().Changed("duration") {
				if duration <= 0 || duration > config.MaxUnlockDuration {
					return fmt.Errorf("--duration must be between 1ms and %v", config.MaxUnlockDuration)
				}
				d = duration
			}

			var (
				expiresAt time.Time
				err       error
			)
			if useToken {
				token, tokenErr := a.accessToken(cmd)
				if tokenErr != nil {
					return tokenErr
				}
				expiresAt, err = a.v.UnlockWithToken(ctx, token, d)
			} else {
				pin, pinErr := a.readSecret(cmd, "Enter PIN: ")
				if pinErr != nil {
					return pinErr
				}
				expiresAt, err = a.v.UnlockWithPIN(ctx, pin, d)
			}
			if err != nil {
				return fmt.Errorf("failed to unlock vault: %w", a.describeError(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Vault unlocked until %s\n", expiresAt.Local().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().BoolVar(&useToken, "token", false, "Unlock with the access token instead of the PIN")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "How long the vault stays unlocked (e.g. 10m, 1h)")
	return cmd
}
