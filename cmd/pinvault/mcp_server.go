package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forest6511/pinvault/internal/mcp"
)

// newMCPServerCmd starts the MCP server for AI coding assistant integration
func newMCPServerCmd(a *app) *cobra.Command {
	var lockOnExit bool

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Start the MCP server for AI coding assistant integration",
		Long: `Start an MCP server that lets AI coding assistants observe and lock the vault.

The server implements the Model Context Protocol (MCP) over stdio transport.
It cannot unlock the vault and never returns the PIN or private key.

Available tools:
  - vault_status: Lock state, public key, and unlock expiry
  - vault_lock:   Lock the vault immediately
  - vault_check:  Verify the stored records

Example MCP configuration:
  {
    "mcpServers": {
      "pinvault": {
        "type": "stdio",
        "command": "/path/to/pinvault",
        "args": ["mcp-server", "--account", "default"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := mcp.NewServer(&mcp.ServerOptions{
				Vault:      a.v,
				Version:    Version,
				Logger:     a.log,
				LockOnExit: lockOnExit,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			// Set up signal handling for graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.Run(ctx); err != nil {
				// Don't report context canceled as an error
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&lockOnExit, "lock-on-exit", false, "Lock the vault when the server stops")
	return cmd
}
