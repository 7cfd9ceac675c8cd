// Package vault implements the PIN vault: a single Ed25519 signing key
// protected by a short numeric PIN, recoverable either from the PIN or from
// an access token whose audience claim re-derives the PIN, with a signed,
// expiring proof that records the unlocked state.
//
// The plaintext PIN and private key are never persisted. The private key is
// rebuilt on the stack of one unlock call and wiped as soon as the proof is
// signed; nothing is cached on the Vault handle.
package vault

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forest6511/pinvault/pkg/crypto"
	"github.com/forest6511/pinvault/pkg/store"
)

// Constants
const (
	// KeyPrefix namespaces every record the vault writes.
	KeyPrefix = "pinvault"

	MaxAccountIDLength = 128
	MinAccountIDLength = 1

	// DefaultUnlockDuration is used by callers that have no configured value.
	DefaultUnlockDuration = 15 * time.Minute
)

// Errors
var (
	ErrVaultNotFound    = errors.New("vault: vault not found for this account")
	ErrInvalidPIN       = errors.New("vault: invalid PIN")
	ErrInvalidToken     = errors.New("vault: invalid access token")
	ErrInvalidPINFormat = errors.New("vault: invalid PIN format")
	ErrInvalidAccountID = errors.New("vault: invalid account id")
	ErrCooldownActive   = errors.New("vault: cooldown period active")
	ErrTooManyAttempts  = errors.New("vault: too many failed unlock attempts")
)

// StorageError reports a failure of the storage collaborator. It is
// transient from the vault's point of view and may be retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("vault: storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// State is the position of a vault in the lock state machine.
type State int

const (
	// StateNoVault means no bundle is persisted for the account.
	StateNoVault State = iota
	// StateLocked means a bundle exists but no valid, unexpired proof.
	StateLocked
	// StateUnlocked means a bundle exists with a valid, unexpired proof.
	StateUnlocked
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateNoVault:
		return "no-vault"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Vault is a handle on one account's PIN vault. It holds no key material;
// every operation reads what it needs from the store.
type Vault struct {
	store    store.Store
	account  string
	now      func() time.Time
	log      zerolog.Logger
	kdf      crypto.KDFParams
	cooldown *CooldownPolicy
}

// Option configures a Vault.
type Option func(*Vault)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		v.now = now
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Vault) {
		v.log = logger
	}
}

// WithKDFParams sets the Argon2id cost used when sealing new records.
// Existing records keep the parameters they were sealed with.
func WithKDFParams(params crypto.KDFParams) Option {
	return func(v *Vault) {
		v.kdf = params
	}
}

// WithCooldown enables escalating cooldowns after failed unlock attempts.
func WithCooldown(policy CooldownPolicy) Option {
	return func(v *Vault) {
		v.cooldown = &policy
	}
}

// New creates a vault handle for accountID backed by s.
func New(s store.Store, accountID string, opts ...Option) (*Vault, error) {
	if s == nil {
		return nil, errors.New("vault: store is required")
	}
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}

	v := &Vault{
		store:   s,
		account: accountID,
		now:     time.Now,
		log:     zerolog.Nop(),
		kdf:     crypto.DefaultKDFParams(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.kdf.Validate(); err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	v.log = v.log.With().Str("account", accountID).Logger()
	return v, nil
}

// Account returns the account id this handle is bound to.
func (v *Vault) Account() string {
	return v.account
}

func (v *Vault) key(record string) string {
	return KeyPrefix + "/" + v.account + "/" + record
}

// validateAccountID keeps account ids usable as key path segments
func validateAccountID(id string) error {
	if len(id) < MinAccountIDLength || len(id) > MaxAccountIDLength {
		return fmt.Errorf("%w: length must be %d-%d", ErrInvalidAccountID, MinAccountIDLength, MaxAccountIDLength)
	}
	for _, r := range id {
		if !isValidAccountChar(r) {
			return fmt.Errorf("%w: '%c' is not allowed", ErrInvalidAccountID, r)
		}
	}
	if id[0] == '.' || id[0] == '-' {
		return fmt.Errorf("%w: cannot start with '.' or '-'", ErrInvalidAccountID)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: cannot contain '..'", ErrInvalidAccountID)
	}
	return nil
}

func isValidAccountChar(r rune) bool {
	// Allow: a-z, A-Z, 0-9, -, _, ., @
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.' || r == '@'
}
