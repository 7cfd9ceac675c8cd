package vault

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/forest6511/pinvault/pkg/crypto"
)

// IntegrityCheckResult contains the results of a vault integrity check
type IntegrityCheckResult struct {
	Valid          bool     `json:"valid"`
	BundleExists   bool     `json:"bundle_exists"`
	PublicKeyValid bool     `json:"public_key_valid"`
	EnvelopesValid bool     `json:"envelopes_valid"`
	ProofExists    bool     `json:"proof_exists"`
	ProofValid     bool     `json:"proof_valid"`
	ProofExpired   bool     `json:"proof_expired"`
	CooldownActive bool     `json:"cooldown_active"`
	FailedAttempts int      `json:"failed_attempts"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// CheckIntegrity inspects the stored records without needing the PIN.
// Storage failures are returned as errors; everything else is reported in
// the result.
func (v *Vault) CheckIntegrity(ctx context.Context) (*IntegrityCheckResult, error) {
	result := &IntegrityCheckResult{Valid: true}

	var raw Bundle
	found, err := v.getRecord(ctx, recordBundle, &raw)
	if err != nil {
		return nil, err
	}
	if !found {
		result.Valid = false
		result.Errors = append(result.Errors, "vault bundle not found")
		return result, nil
	}
	result.BundleExists = true

	if !raw.complete() {
		result.Valid = false
		result.Errors = append(result.Errors, "vault bundle is incomplete")
	}

	pub, err := crypto.DecodePublicKey(raw.PublicKey)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, "public key is malformed: "+err.Error())
	} else {
		result.PublicKeyValid = true
	}

	result.EnvelopesValid = true
	if err := crypto.CheckEnvelope(raw.EncryptedPrivateKey); err != nil {
		result.Valid = false
		result.EnvelopesValid = false
		result.Errors = append(result.Errors, "encrypted private key is malformed")
	}
	if err := crypto.CheckEnvelope(raw.EncryptedPIN); err != nil {
		result.Valid = false
		result.EnvelopesValid = false
		result.Errors = append(result.Errors, "encrypted PIN is malformed")
	}

	proof, err := v.getProof(ctx)
	if err != nil {
		return nil, err
	}
	if proof != nil {
		result.ProofExists = true
		result.ProofExpired = proof.Timestamp <= v.now().UnixMilli()
		if pub != nil {
			sig, err := base64.StdEncoding.DecodeString(proof.Signature)
			result.ProofValid = err == nil && crypto.Verify(proofMessage(proof.Timestamp), sig, pub)
		}
		// A stale or foreign proof only means the vault reads as locked
		if !result.ProofValid {
			result.Warnings = append(result.Warnings, "lock proof does not verify against the public key")
		}
	}

	if v.cooldown != nil {
		attempts, err := v.getAttempts(ctx)
		if err != nil {
			return nil, err
		}
		result.FailedAttempts = attempts.FailedAttempts
		if remaining := v.RemainingCooldown(ctx); remaining > 0 {
			result.CooldownActive = true
			result.Warnings = append(result.Warnings, "unlock cooldown active for "+remaining.Round(time.Second).String())
		}
	}

	return result, nil
}
