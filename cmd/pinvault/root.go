package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/forest6511/pinvault/internal/config"
	"github.com/forest6511/pinvault/pkg/store"
	"github.com/forest6511/pinvault/pkg/token"
	"github.com/forest6511/pinvault/pkg/vault"
)

// DefaultAccount is used when --account is not given.
const DefaultAccount = "default"

// app holds the state shared by all subcommands of one invocation.
type app struct {
	// Global flags
	homeDir   string
	accountID string
	logLevel  string

	cfg    *config.Config
	st     store.Store
	closer io.Closer
	v      *vault.Vault
	log    zerolog.Logger
	in     *bufio.Reader

	// extra vault options, set by tests
	vaultOpts []vault.Option
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pinvault",
		Short:        "pinvault protects a signing key behind a short PIN",
		Long:         `A PIN vault: one Ed25519 signing key per account, unlocked for a bounded time with a PIN or an access token.`,
		Version:      Version,
		SilenceUsage: true,
		// PersistentPreRunE runs before every subcommand.
		// This loads the configuration and opens the vault.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.accountID, "account", "a", DefaultAccount, "Account the vault belongs to")
	rootCmd.PersistentFlags().StringVar(&a.homeDir, "home", "", "Vault directory (default $"+config.EnvHome+" or ~/"+config.DirName+")")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config)")

	rootCmd.AddCommand(
		newCreateCmd(a),
		newUnlockCmd(a),
		newStatusCmd(a),
		newLockCmd(a),
		newRemoveCmd(a),
		newPubkeyCmd(a),
		newCheckCmd(a),
		newMCPServerCmd(a),
	)
	return rootCmd
}

// setup resolves the vault directory, loads config.yaml, configures logging,
// and opens the store and vault handle.
func (a *app) setup(cmd *cobra.Command) error {
	if a.homeDir == "" {
		dir, err := config.HomeDir()
		if err != nil {
			return err
		}
		a.homeDir = dir
	}

	cfg, err := config.Load(a.homeDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if level, err = zerolog.ParseLevel(a.logLevel); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	// stdout carries command output (and the MCP protocol)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level)
	a.log = log.Logger

	st, closer, err := store.Open(cfg.Backend, a.homeDir, a.log)
	if err != nil {
		return fmt.Errorf("failed to open vault storage: %w", err)
	}
	a.st, a.closer = st, closer

	opts := []vault.Option{vault.WithLogger(a.log)}
	if cfg.Cooldown.Enabled {
		opts = append(opts, vault.WithCooldown(vault.DefaultCooldownPolicy()))
	}
	opts = append(opts, a.vaultOpts...)

	v, err := vault.New(st, a.accountID, opts...)
	if err != nil {
		closer.Close()
		return err
	}
	a.v = v
	a.in = bufio.NewReader(cmd.InOrStdin())

	a.log.Debug().
		Str("home", a.homeDir).
		Str("backend", cfg.Backend).
		Str("account", a.accountID).
		Msg("vault opened")
	return nil
}

// execute runs cmd and then closes the store. cobra skips
// PersistentPostRunE when RunE fails, so teardown cannot live there.
func execute(a *app, cmd *cobra.Command) error {
	err := cmd.Execute()
	if closeErr := a.teardown(); closeErr != nil {
		a.log.Warn().Err(closeErr).Msg("failed to close vault storage")
		if err == nil {
			err = closeErr
		}
	}
	return err
}

func (a *app) teardown() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// describeError maps vault sentinels to messages for the terminal.
func (a *app) describeError(err error) error {
	switch {
	case errors.Is(err, vault.ErrVaultNotFound):
		return fmt.Errorf("no vault for account '%s' (run 'pinvault create')", a.accountID)
	case errors.Is(err, vault.ErrTooManyAttempts):
		return err
	case errors.Is(err, vault.ErrInvalidPIN):
		return errors.New("invalid PIN")
	case errors.Is(err, token.ErrInvalidToken):
		return fmt.Errorf("access token is unreadable or has no audience claim: %w", err)
	case errors.Is(err, vault.ErrInvalidToken):
		return errors.New("access token does not unlock this vault")
	case errors.Is(err, vault.ErrCooldownActive):
		return err
	default:
		var storageErr *vault.StorageError
		if errors.As(err, &storageErr) {
			return fmt.Errorf("vault storage unavailable: %w", storageErr.Err)
		}
		return err
	}
}
