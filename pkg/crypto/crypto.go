// Package crypto provides the cryptographic primitives used by the PIN vault.
//
// This package implements AES-256-GCM authenticated encryption, Argon2id
// key derivation following OWASP recommendations, a passphrase-sealed text
// envelope built on both, and Ed25519 signing keys.
//
// # Security Features
//
//   - AES-256-GCM authenticated encryption
//   - Argon2id key derivation (64MB memory, 3 iterations, 4 threads by default)
//   - Cryptographically secure random salt and nonce generation
//   - Ed25519 detached signatures
//   - Secure memory wiping for sensitive data
//
// # Example Usage
//
//	// Seal a private key under a PIN
//	sealed, err := crypto.Seal(seed, "1234")
//
//	// Open it again; ok is false for a wrong PIN
//	seed, ok, err := crypto.Open(sealed, "1234")
//
//	// Sign and verify
//	sig := crypto.Sign(msg, kp)
//	valid := crypto.Verify(msg, sig, kp.Public)
//
//	// Securely wipe sensitive data
//	crypto.SecureWipe(seed)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters following OWASP recommendations.
const (
	// Argon2Memory is the memory cost in KiB (64MB).
	Argon2Memory = 64 * 1024

	// Argon2Time is the number of iterations.
	Argon2Time = 3

	// Argon2Threads is the degree of parallelism.
	Argon2Threads = 4

	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates decryption or authentication tag verification failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

	// ErrInvalidKDFParams indicates Argon2id parameters outside the accepted range.
	ErrInvalidKDFParams = errors.New("crypto: invalid key derivation parameters")
)

// KDFParams holds the Argon2id cost parameters. They are recorded inside every
// sealed envelope so that Open does not depend on the caller's defaults.
type KDFParams struct {
	Time      uint32 `json:"t"`
	MemoryKiB uint32 `json:"m"`
	Threads   uint8  `json:"p"`
}

// DefaultKDFParams returns the OWASP-recommended parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:      Argon2Time,
		MemoryKiB: Argon2Memory,
		Threads:   Argon2Threads,
	}
}

// Upper bounds on the cost accepted from an envelope, so a tampered record
// cannot stall Open.
const (
	// MaxArgon2Memory is 256MB.
	MaxArgon2Memory = 256 * 1024

	// MaxArgon2Time is the largest accepted iteration count.
	MaxArgon2Time = 10
)

// Validate rejects parameters that are zero or absurdly expensive.
func (p KDFParams) Validate() error {
	if p.Time == 0 || p.Threads == 0 || p.MemoryKiB < 8*uint32(p.Threads) {
		return ErrInvalidKDFParams
	}
	if p.MemoryKiB > MaxArgon2Memory || p.Time > MaxArgon2Time {
		return ErrInvalidKDFParams
	}
	return nil
}

// DeriveKey derives a 256-bit encryption key from a password using Argon2id.
//
// The salt should be at least 16 bytes of cryptographically secure random data.
// Returns a 32-byte key suitable for AES-256 encryption. Seal and Open call it
// with the parameters recorded in the envelope.
func (p KDFParams) DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, KeyLength)
}

// Encrypt encrypts plaintext using AES-256-GCM authenticated encryption.
//
// The function generates a cryptographically secure random 12-byte nonce
// using crypto/rand. The authentication tag is appended to the ciphertext.
//
// Parameters:
//   - key: 32-byte encryption key (use KDFParams.DeriveKey to generate)
//   - plaintext: data to encrypt (can be any length)
//
// Returns:
//   - ciphertext: encrypted data with authentication tag
//   - nonce: 12-byte nonce (must be stored with ciphertext for decryption)
//   - err: ErrInvalidKeyLength if key is not 32 bytes
func Encrypt(key, plaintext []byte) (ciphertext []byte, nonce []byte, err error) {
	if len(key) != KeyLength {
		return nil, nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	// Generate cryptographically secure random nonce
	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	// Encrypt with GCM (authentication tag is appended to ciphertext)
	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM authenticated encryption.
//
// The function verifies the authentication tag before returning the plaintext.
// If the tag verification fails (indicating tampering or corruption),
// ErrDecryptionFailed is returned.
//
// Parameters:
//   - key: 32-byte encryption key (same key used for encryption)
//   - ciphertext: encrypted data with authentication tag
//   - nonce: 12-byte nonce used during encryption
//
// Returns:
//   - plaintext: decrypted data
//   - err: ErrInvalidKeyLength, ErrInvalidNonceLength, ErrCiphertextTooShort,
//     or ErrDecryptionFailed
func Decrypt(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	// Verify ciphertext has minimum length (GCM tag is 16 bytes)
	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	// Decrypt with GCM (includes authentication tag verification)
	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
// This is critical for securely destroying sensitive data like private key seeds.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
