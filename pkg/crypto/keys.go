package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// SeedLength is the length of an Ed25519 private key seed.
	SeedLength = ed25519.SeedSize

	// PublicKeyLength is the length of an Ed25519 public key.
	PublicKeyLength = ed25519.PublicKeySize

	// SignatureLength is the length of an Ed25519 signature.
	SignatureLength = ed25519.SignatureSize
)

var (
	// ErrInvalidSeed indicates a private key seed of the wrong length.
	ErrInvalidSeed = errors.New("crypto: invalid private key seed")

	// ErrInvalidPublicKey indicates an encoded public key that cannot be decoded.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
)

// Keypair is an Ed25519 signing keypair.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a fresh keypair from crypto/rand.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to generate keypair: %w", err)
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// KeypairFromSeed rebuilds a keypair from its 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != SeedLength {
		return nil, ErrInvalidSeed
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{
		Public:  priv.Public().(ed25519.PublicKey),
		Private: priv,
	}, nil
}

// Seed returns a copy of the private key seed. Callers should SecureWipe it.
func (k *Keypair) Seed() []byte {
	return bytes.Clone(k.Private.Seed())
}

// Wipe zeroes the private key in place.
func (k *Keypair) Wipe() {
	if k == nil {
		return
	}
	SecureWipe(k.Private)
	k.Private = nil
}

// Sign produces a detached signature over message.
func Sign(message []byte, kp *Keypair) []byte {
	return ed25519.Sign(kp.Private, message)
}

// Verify reports whether sig is a valid signature of message by pub.
// Malformed keys or signatures yield false rather than a panic.
func Verify(message, sig, pub []byte) bool {
	if len(pub) != PublicKeyLength || len(sig) != SignatureLength {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

// EncodePublicKey renders a public key as base58 text.
func EncodePublicKey(pub []byte) string {
	return base58.Encode(pub)
}

// DecodePublicKey parses base58 text produced by EncodePublicKey.
func DecodePublicKey(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrInvalidPublicKey
	}
	pub, err := base58.Decode(s)
	if err != nil || len(pub) != PublicKeyLength {
		return nil, ErrInvalidPublicKey
	}
	return pub, nil
}
