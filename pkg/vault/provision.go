package vault

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/forest6511/pinvault/pkg/crypto"
	"github.com/forest6511/pinvault/pkg/security"
	"github.com/forest6511/pinvault/pkg/store"
	"github.com/forest6511/pinvault/pkg/token"
)

// CreateVault provisions a vault for accountID in s and returns its public key.
// See (*Vault).Create.
func CreateVault(ctx context.Context, s store.Store, pin, accountID, accessToken string, opts ...Option) (string, error) {
	v, err := New(s, accountID, opts...)
	if err != nil {
		return "", err
	}
	return v.Create(ctx, pin, accessToken)
}

// Create provisions the vault:
// 1. Generate a fresh Ed25519 keypair
// 2. Seal the private key seed under the PIN
// 3. Seal the PIN under the access token's audience claim
// 4. Persist public key and both sealed values as one bundle
// 5. Return the base58 public key
//
// Calling Create again replaces the bundle. Proofs signed by the previous key
// stop verifying, so the vault reads as locked until the next unlock.
func (v *Vault) Create(ctx context.Context, pin, accessToken string) (string, error) {
	pin = security.NormalizePIN(pin)
	if err := security.ValidatePIN(pin); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPINFormat, err)
	}

	aud, err := token.Audience(accessToken)
	if err != nil {
		return "", fmt.Errorf("%w: cannot provision from this token: %w", ErrInvalidToken, err)
	}

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}
	defer kp.Wipe()

	seed := kp.Seed()
	defer crypto.SecureWipe(seed)

	encryptedKey, err := crypto.SealWithParams(seed, pin, v.kdf)
	if err != nil {
		return "", fmt.Errorf("vault: failed to seal private key: %w", err)
	}

	encryptedPIN, err := crypto.SealWithParams([]byte(pin), aud, v.kdf)
	if err != nil {
		return "", fmt.Errorf("vault: failed to seal PIN: %w", err)
	}

	bundle := &Bundle{
		ID:                  uuid.NewString(),
		PublicKey:           crypto.EncodePublicKey(kp.Public),
		EncryptedPrivateKey: encryptedKey,
		EncryptedPIN:        encryptedPIN,
		CreatedAt:           v.now().UTC(),
	}
	if err := v.saveBundle(ctx, bundle); err != nil {
		return "", err
	}

	// A new PIN starts with a clean attempt history
	if v.cooldown != nil {
		if err := v.removeAttempts(ctx); err != nil {
			v.log.Warn().Err(err).Msg("failed to clear unlock attempts")
		}
	}

	v.log.Info().Str("vault_id", bundle.ID).Msg("vault created")
	return bundle.PublicKey, nil
}
