package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// SaltLength is the length of the per-envelope Argon2id salt (128 bits).
	SaltLength = 16

	envelopeVersion = 1
	envelopePrefix  = "pv1."
	envelopeKDF     = "argon2id"
)

var (
	// ErrEmptySecret indicates Seal was called with an empty passphrase.
	ErrEmptySecret = errors.New("crypto: secret must not be empty")

	// ErrMalformedCiphertext indicates a sealed string that cannot be parsed.
	// A wrong secret is not an error; see Open.
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")
)

// envelope is the serialized form of a sealed value.
type envelope struct {
	Version    int       `json:"v"`
	KDF        string    `json:"kdf"`
	Params     KDFParams `json:"params"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ct"`
}

// Seal encrypts plaintext under secret with the default Argon2id parameters.
// The result is a printable string safe to store in JSON records.
func Seal(plaintext []byte, secret string) (string, error) {
	return SealWithParams(plaintext, secret, DefaultKDFParams())
}

// SealWithParams is Seal with explicit key derivation parameters.
func SealWithParams(plaintext []byte, secret string, params KDFParams) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: failed to generate salt: %w", err)
	}

	key := params.DeriveKey([]byte(secret), salt)
	defer SecureWipe(key)

	ciphertext, nonce, err := Encrypt(key, plaintext)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(envelope{
		Version:    envelopeVersion,
		KDF:        envelopeKDF,
		Params:     params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return "", fmt.Errorf("crypto: failed to marshal envelope: %w", err)
	}
	return envelopePrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// Open reverses Seal.
//
// A secret that does not match the one used to seal yields ok == false and a
// nil error; a wrong PIN is an expected outcome, not a failure. A string that
// is not a well-formed envelope yields ErrMalformedCiphertext.
func Open(sealed string, secret string) (plaintext []byte, ok bool, err error) {
	return OpenBytes(sealed, []byte(secret))
}

// OpenBytes is Open with the secret in a byte slice the caller can wipe.
// The slice is not retained.
func OpenBytes(sealed string, secret []byte) (plaintext []byte, ok bool, err error) {
	env, err := parseEnvelope(sealed)
	if err != nil {
		return nil, false, err
	}
	if len(secret) == 0 {
		return nil, false, nil
	}

	key := env.Params.DeriveKey(secret, env.Salt)
	defer SecureWipe(key)

	plaintext, err = Decrypt(key, env.Ciphertext, env.Nonce)
	if err != nil {
		if errors.Is(err, ErrDecryptionFailed) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return plaintext, true, nil
}

func parseEnvelope(sealed string) (*envelope, error) {
	if !strings.HasPrefix(sealed, envelopePrefix) {
		return nil, ErrMalformedCiphertext
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed[len(envelopePrefix):])
	if err != nil {
		return nil, ErrMalformedCiphertext
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedCiphertext
	}
	if env.Version != envelopeVersion || env.KDF != envelopeKDF {
		return nil, ErrMalformedCiphertext
	}
	if env.Params.Validate() != nil {
		return nil, ErrMalformedCiphertext
	}
	if len(env.Salt) != SaltLength || len(env.Nonce) != NonceLength {
		return nil, ErrMalformedCiphertext
	}
	// GCM tag is 16 bytes
	if len(env.Ciphertext) < 16 {
		return nil, ErrMalformedCiphertext
	}
	return &env, nil
}

// CheckEnvelope reports whether sealed is a well-formed envelope without
// attempting to open it.
func CheckEnvelope(sealed string) error {
	_, err := parseEnvelope(sealed)
	return err
}
