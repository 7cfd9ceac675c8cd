package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/forest6511/pinvault/pkg/store"
)

// Record names under the account namespace
const (
	recordBundle   = "bundle"
	recordProof    = "proof"
	recordAttempts = "attempts"
)

// Bundle is the persisted, encrypted vault.
type Bundle struct {
	ID                  string    `json:"id,omitempty"`
	PublicKey           string    `json:"public_key"`
	EncryptedPrivateKey string    `json:"encrypted_private_key"`
	EncryptedPIN        string    `json:"encrypted_pin"`
	CreatedAt           time.Time `json:"created_at"`
}

// complete reports whether all key fields are present. A partial bundle is
// never used.
func (b *Bundle) complete() bool {
	return b.PublicKey != "" && b.EncryptedPrivateKey != "" && b.EncryptedPIN != ""
}

// Proof is the persisted lock status: a signature over the decimal text of
// Timestamp (epoch milliseconds) made with the vault's private key.
type Proof struct {
	Signature string `json:"proof"`
	Timestamp int64  `json:"timestamp"`
}

// AttemptState tracks failed unlock attempts for cooldown enforcement
type AttemptState struct {
	FailedAttempts int       `json:"failed_attempts"`
	LastAttempt    time.Time `json:"last_attempt"`
	CooldownUntil  time.Time `json:"cooldown_until"`
}

// getRecord reads and decodes one record. A missing record yields
// found == false and no error.
func (v *Vault) getRecord(ctx context.Context, name string, out any) (found bool, err error) {
	raw, err := v.store.Get(ctx, v.key(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, &StorageError{Op: "get " + name, Err: err}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		v.log.Warn().Str("record", name).Msg("ignoring undecodable record")
		return false, nil
	}
	return true, nil
}

func (v *Vault) setRecord(ctx context.Context, name string, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("vault: failed to marshal %s: %w", name, err)
	}
	if err := v.store.Set(ctx, v.key(name), string(raw)); err != nil {
		return &StorageError{Op: "save " + name, Err: err}
	}
	return nil
}

func (v *Vault) removeRecord(ctx context.Context, name string) error {
	if err := v.store.Remove(ctx, v.key(name)); err != nil {
		return &StorageError{Op: "remove " + name, Err: err}
	}
	return nil
}

// getBundle returns nil when no complete bundle is stored.
func (v *Vault) getBundle(ctx context.Context) (*Bundle, error) {
	var b Bundle
	found, err := v.getRecord(ctx, recordBundle, &b)
	if err != nil || !found {
		return nil, err
	}
	if !b.complete() {
		v.log.Warn().Msg("ignoring incomplete vault bundle")
		return nil, nil
	}
	return &b, nil
}

func (v *Vault) saveBundle(ctx context.Context, b *Bundle) error {
	return v.setRecord(ctx, recordBundle, b)
}

func (v *Vault) removeBundle(ctx context.Context) error {
	return v.removeRecord(ctx, recordBundle)
}

// getProof returns nil when no proof is stored.
func (v *Vault) getProof(ctx context.Context) (*Proof, error) {
	var p Proof
	found, err := v.getRecord(ctx, recordProof, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (v *Vault) saveProof(ctx context.Context, p *Proof) error {
	return v.setRecord(ctx, recordProof, p)
}

func (v *Vault) removeProof(ctx context.Context) error {
	return v.removeRecord(ctx, recordProof)
}

// getAttempts returns a zero state when nothing is stored.
func (v *Vault) getAttempts(ctx context.Context) (*AttemptState, error) {
	var s AttemptState
	if _, err := v.getRecord(ctx, recordAttempts, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (v *Vault) saveAttempts(ctx context.Context, s *AttemptState) error {
	return v.setRecord(ctx, recordAttempts, s)
}

func (v *Vault) removeAttempts(ctx context.Context) error {
	return v.removeRecord(ctx, recordAttempts)
}
