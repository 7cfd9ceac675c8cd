package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/pinvault/pkg/vault"
)

// VaultStatusInput represents input for vault_status tool.
type VaultStatusInput struct{}

// VaultStatusOutput represents output for vault_status tool.
type VaultStatusOutput struct {
	Account         string `json:"account"`
	State           string `json:"state"`
	Unlocked        bool   `json:"unlocked"`
	VaultID         string `json:"vault_id,omitempty"`
	PublicKey       string `json:"public_key,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UnlockedUntil   string `json:"unlocked_until,omitempty"`
	CooldownSeconds int64  `json:"cooldown_seconds,omitempty"`
}

// VaultLockInput represents input for vault_lock tool.
type VaultLockInput struct{}

// VaultLockOutput represents output for vault_lock tool.
type VaultLockOutput struct {
	Locked      bool `json:"locked"`
	WasUnlocked bool `json:"was_unlocked"`
}

// VaultCheckInput represents input for vault_check tool.
type VaultCheckInput struct{}

// VaultCheckOutput represents output for vault_check tool.
type VaultCheckOutput struct {
	Valid        bool     `json:"valid"`
	BundleExists bool     `json:"bundle_exists"`
	ProofValid   bool     `json:"proof_valid"`
	ProofExpired bool     `json:"proof_expired"`
	Errors       []string `json:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// handleVaultStatus handles the vault_status tool call.
func (s *Server) handleVaultStatus(ctx context.Context, _ *mcp.CallToolRequest, _ VaultStatusInput) (*mcp.CallToolResult, VaultStatusOutput, error) {
	st, err := s.vault.Status(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("vault_status failed")
		return nil, VaultStatusOutput{}, fmt.Errorf("failed to read vault status: %w", err)
	}

	out := VaultStatusOutput{
		Account:         st.Account,
		State:           st.StateName,
		Unlocked:        st.State == vault.StateUnlocked,
		VaultID:         st.VaultID,
		PublicKey:       st.PublicKey,
		CreatedAt:       formatTime(st.CreatedAt),
		UnlockedUntil:   formatTime(st.UnlockedUntil),
		CooldownSeconds: int64(st.CooldownRemaining.Round(time.Second) / time.Second),
	}
	return nil, out, nil
}

// handleVaultLock handles the vault_lock tool call.
func (s *Server) handleVaultLock(ctx context.Context, _ *mcp.CallToolRequest, _ VaultLockInput) (*mcp.CallToolResult, VaultLockOutput, error) {
	wasUnlocked := s.vault.IsUnlocked(ctx)

	if err := s.vault.Lock(ctx); err != nil {
		s.log.Warn().Err(err).Msg("vault_lock failed")
		return nil, VaultLockOutput{}, fmt.Errorf("failed to lock vault: %w", err)
	}
	s.log.Info().Bool("was_unlocked", wasUnlocked).Msg("vault locked by mcp client")
	return nil, VaultLockOutput{Locked: true, WasUnlocked: wasUnlocked}, nil
}

// handleVaultCheck handles the vault_check tool call.
func (s *Server) handleVaultCheck(ctx context.Context, _ *mcp.CallToolRequest, _ VaultCheckInput) (*mcp.CallToolResult, VaultCheckOutput, error) {
	result, err := s.vault.CheckIntegrity(ctx)
	if err != nil {
		return nil, VaultCheckOutput{}, fmt.Errorf("failed to check vault: %w", err)
	}
	return nil, VaultCheckOutput{
		Valid:        result.Valid,
		BundleExists: result.BundleExists,
		ProofValid:   result.ProofValid,
		ProofExpired: result.ProofExpired,
		Errors:       result.Errors,
		Warnings:     result.Warnings,
	}, nil
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
