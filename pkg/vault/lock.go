package vault

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/forest6511/pinvault/pkg/crypto"
	"github.com/forest6511/pinvault/pkg/security"
	"github.com/forest6511/pinvault/pkg/token"
)

// UnlockWithPIN unlocks the vault for d and returns the expiry instant:
// 1. Load the bundle
// 2. Open the private key seed with the PIN
// 3. Rebuild the keypair and compare it with the stored public key
// 4. Sign now+d (epoch milliseconds) and persist the proof
// 5. Wipe the key
//
// A negative d is legal and records an already-expired proof. A wrong PIN
// and corrupt key material both yield ErrInvalidPIN.
func (v *Vault) UnlockWithPIN(ctx context.Context, pin string, d time.Duration) (time.Time, error) {
	bundle, err := v.getBundle(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if bundle == nil {
		return time.Time{}, ErrVaultNotFound
	}

	if err := v.checkCooldown(ctx); err != nil {
		return time.Time{}, err
	}

	secret := []byte(security.NormalizePIN(pin))
	defer crypto.SecureWipe(secret)

	expiresAt, err := v.unlock(ctx, bundle, secret, d)
	if err != nil {
		if errors.Is(err, ErrInvalidPIN) {
			v.log.Info().Str("method", "pin").Msg("unlock rejected")
			return time.Time{}, v.recordFailure(ctx, err)
		}
		return time.Time{}, err
	}

	v.clearAttempts(ctx)
	v.log.Info().Str("method", "pin").Time("expires_at", expiresAt).Msg("vault unlocked")
	return expiresAt, nil
}

// UnlockWithToken recovers the PIN from the access token's audience claim
// and then unlocks exactly as UnlockWithPIN does. A token whose audience
// cannot open the stored PIN yields ErrInvalidToken.
func (v *Vault) UnlockWithToken(ctx context.Context, accessToken string, d time.Duration) (time.Time, error) {
	bundle, err := v.getBundle(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if bundle == nil {
		return time.Time{}, ErrVaultNotFound
	}

	if err := v.checkCooldown(ctx); err != nil {
		return time.Time{}, err
	}

	aud, err := token.Audience(accessToken)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	pin, ok, err := crypto.Open(bundle.EncryptedPIN, aud)
	if err != nil || !ok {
		if err != nil {
			v.log.Warn().Str("method", "token").Msg("stored PIN envelope is malformed")
		}
		v.log.Info().Str("method", "token").Msg("unlock rejected")
		return time.Time{}, v.recordFailure(ctx, ErrInvalidToken)
	}
	defer crypto.SecureWipe(pin)

	expiresAt, err := v.unlock(ctx, bundle, pin, d)
	if err != nil {
		if errors.Is(err, ErrInvalidPIN) {
			v.log.Warn().Str("method", "token").Msg("recovered PIN does not open the private key")
		}
		return time.Time{}, err
	}

	v.clearAttempts(ctx)
	v.log.Info().Str("method", "token").Time("expires_at", expiresAt).Msg("vault unlocked")
	return expiresAt, nil
}

// unlock holds the private key only for the duration of this call. The
// caller owns pin and wipes it.
func (v *Vault) unlock(ctx context.Context, bundle *Bundle, pin []byte, d time.Duration) (time.Time, error) {
	pub, err := crypto.DecodePublicKey(bundle.PublicKey)
	if err != nil {
		v.log.Warn().Msg("stored public key is malformed")
		return time.Time{}, ErrInvalidPIN
	}

	seed, ok, err := crypto.OpenBytes(bundle.EncryptedPrivateKey, pin)
	if err != nil {
		v.log.Warn().Msg("stored private key envelope is malformed")
		return time.Time{}, ErrInvalidPIN
	}
	if !ok {
		return time.Time{}, ErrInvalidPIN
	}
	defer crypto.SecureWipe(seed)

	kp, err := crypto.KeypairFromSeed(seed)
	if err != nil {
		return time.Time{}, ErrInvalidPIN
	}
	defer kp.Wipe()

	if !bytes.Equal(kp.Public, pub) {
		v.log.Warn().Msg("private key does not match stored public key")
		return time.Time{}, ErrInvalidPIN
	}

	timestamp := v.now().UnixMilli() + d.Milliseconds()
	sig := crypto.Sign(proofMessage(timestamp), kp)

	proof := &Proof{
		Signature: base64.StdEncoding.EncodeToString(sig),
		Timestamp: timestamp,
	}
	if err := v.saveProof(ctx, proof); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(timestamp), nil
}

// IsUnlocked reports whether a valid, unexpired proof is stored. Every
// failure, including storage errors, resolves to false.
func (v *Vault) IsUnlocked(ctx context.Context) bool {
	_, ok := v.UnlockedUntil(ctx)
	return ok
}

// UnlockedUntil returns the expiry of the current proof when the vault is
// unlocked. It follows the same fail-locked rules as IsUnlocked.
func (v *Vault) UnlockedUntil(ctx context.Context) (time.Time, bool) {
	proof, err := v.getProof(ctx)
	if err != nil {
		v.log.Warn().Err(err).Msg("failed to read lock proof, treating vault as locked")
		return time.Time{}, false
	}
	if proof == nil {
		return time.Time{}, false
	}

	// Expired proofs are left in place
	if proof.Timestamp <= v.now().UnixMilli() {
		return time.Time{}, false
	}

	bundle, err := v.getBundle(ctx)
	if err != nil {
		v.log.Warn().Err(err).Msg("failed to read vault bundle, treating vault as locked")
		return time.Time{}, false
	}
	if bundle == nil {
		return time.Time{}, false
	}

	if !verifyProof(proof, bundle.PublicKey) {
		return time.Time{}, false
	}
	return time.UnixMilli(proof.Timestamp), true
}

// Lock discards the current proof. The bundle is untouched.
func (v *Vault) Lock(ctx context.Context) error {
	if err := v.removeProof(ctx); err != nil {
		return err
	}
	v.log.Info().Msg("vault locked")
	return nil
}

// Remove deletes the bundle, the proof, and the attempt history. It is not
// recoverable. Every record is attempted even if an earlier removal fails.
func (v *Vault) Remove(ctx context.Context) error {
	err := errors.Join(
		v.removeBundle(ctx),
		v.removeProof(ctx),
		v.removeAttempts(ctx),
	)
	if err != nil {
		return err
	}
	v.log.Info().Msg("vault removed")
	return nil
}

// PublicKey returns the vault's base58 public key.
func (v *Vault) PublicKey(ctx context.Context) (string, error) {
	bundle, err := v.getBundle(ctx)
	if err != nil {
		return "", err
	}
	if bundle == nil {
		return "", ErrVaultNotFound
	}
	return bundle.PublicKey, nil
}

// State returns the vault's position in the lock state machine. Unlike
// IsUnlocked it reports storage errors.
func (v *Vault) State(ctx context.Context) (State, error) {
	bundle, err := v.getBundle(ctx)
	if err != nil {
		return StateLocked, err
	}
	if bundle == nil {
		return StateNoVault, nil
	}

	proof, err := v.getProof(ctx)
	if err != nil {
		return StateLocked, err
	}
	if proof == nil || proof.Timestamp <= v.now().UnixMilli() {
		return StateLocked, nil
	}
	if !verifyProof(proof, bundle.PublicKey) {
		return StateLocked, nil
	}
	return StateUnlocked, nil
}

// proofMessage is the signed text: the decimal expiry in milliseconds.
func proofMessage(timestamp int64) []byte {
	return []byte(strconv.FormatInt(timestamp, 10))
}

func verifyProof(proof *Proof, publicKey string) bool {
	pub, err := crypto.DecodePublicKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil {
		return false
	}
	return crypto.Verify(proofMessage(proof.Timestamp), sig, pub)
}
