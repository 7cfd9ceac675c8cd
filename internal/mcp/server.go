// Package mcp implements the MCP (Model Context Protocol) server for pinvault.
// Agents can observe and lock the vault; they can never unlock it or read the
// PIN or private key.
package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/forest6511/pinvault/pkg/vault"
)

// ServerName is reported to MCP clients.
const ServerName = "pinvault"

// Server represents the MCP server for pinvault.
type Server struct {
	server     *mcp.Server
	vault      *vault.Vault
	log        zerolog.Logger
	lockOnExit bool
}

// ServerOptions contains configuration options for the MCP server.
type ServerOptions struct {
	// Vault is the handle served. Required.
	Vault *vault.Vault

	// Version is reported to clients.
	Version string

	// Logger receives server events. It must not write to stdout, which
	// carries the protocol.
	Logger zerolog.Logger

	// LockOnExit locks the vault when Run returns.
	LockOnExit bool
}

// NewServer creates a new MCP server instance.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts == nil || opts.Vault == nil {
		return nil, errors.New("mcp: vault is required")
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)

	s := &Server{
		server:     mcpServer,
		vault:      opts.Vault,
		log:        opts.Logger.With().Str("component", "mcp").Logger(),
		lockOnExit: opts.LockOnExit,
	}

	s.registerTools()
	return s, nil
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	// vault_status - Report lock state and public key
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vault_status",
		Description: "Report whether the PIN vault exists and is unlocked, with its public key and the expiry of the current unlock. Never returns the PIN or private key.",
	}, s.handleVaultStatus)

	// vault_lock - Discard the current unlock proof
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vault_lock",
		Description: "Lock the PIN vault immediately. The vault must be unlocked again with the PIN or an access token.",
	}, s.handleVaultLock)

	// vault_check - Integrity check without the PIN
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vault_check",
		Description: "Check that the stored vault records are well formed and that the current unlock proof verifies against the public key.",
	}, s.handleVaultCheck)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Str("account", s.vault.Account()).Msg("mcp server starting")
	defer s.Close()

	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close locks the vault when the server was configured to do so.
func (s *Server) Close() error {
	if !s.lockOnExit {
		return nil
	}
	// The caller's context may already be canceled
	if err := s.vault.Lock(context.Background()); err != nil {
		s.log.Warn().Err(err).Msg("failed to lock vault on exit")
		return err
	}
	return nil
}
