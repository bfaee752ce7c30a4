// Package keys implements secp256k1 identity keypairs: secret key
// generation, x-only public key derivation, BIP-340 Schnorr signing and
// verification, and Diffie-Hellman shared-secret derivation.
//
// Secret material is held behind the SecretKey guard and overwritten with
// zeros on Wipe; every operation on a wiped key fails with
// ErrInvalidKeyMaterial.
package keys

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var ErrInvalidKeyMaterial = errors.New("keys: invalid key material")

// SecretKey owns a 32-byte scalar in the curve's scalar field. It is the
// only type in the module that can produce signatures and shared secrets.
// Callers must Wipe it when done; the zero value is unusable.
type SecretKey struct {
	priv  *secp256k1.PrivateKey
	wiped bool
}

// PublicKey is the 32-byte x-only point encoding (even-parity convention).
type PublicKey [32]byte

// Generate returns a fresh secret key from the system entropy source.
// The underlying generator never yields the zero scalar or a scalar at or
// above the curve order.
func Generate() (*SecretKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("keys: generate: %w", err)
	}
	return &SecretKey{priv: priv}, nil
}

// FromBytes validates and copies a raw 32-byte scalar. The input slice is
// not retained; callers remain responsible for zeroing it.
func FromBytes(b []byte) (*SecretKey, error) {
	if len(b) != 32 {
		return nil, ErrInvalidKeyMaterial
	}
	var s secp256k1.ModNScalar
	overflow := s.SetByteSlice(b)
	if overflow || s.IsZero() {
		s.Zero()
		return nil, ErrInvalidKeyMaterial
	}
	priv := secp256k1.NewPrivateKey(&s)
	s.Zero()
	return &SecretKey{priv: priv}, nil
}

// FromHex parses a 64-character lowercase or uppercase hex scalar.
func FromHex(s string) (*SecretKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKeyMaterial
	}
	sk, err := FromBytes(b)
	zeroBytes(b)
	return sk, err
}

// PublicKey derives the x-only public key. Derivation is deterministic and
// pure; the same secret always yields the same public key.
func (sk *SecretKey) PublicKey() (PublicKey, error) {
	if err := sk.usable(); err != nil {
		return PublicKey{}, err
	}
	var pk PublicKey
	copy(pk[:], schnorr.SerializePubKey(sk.priv.PubKey()))
	return pk, nil
}

// Sign produces a 64-byte BIP-340 Schnorr signature over a 32-byte message
// hash. The nonce is derived deterministically from the secret key and the
// message, so nonce reuse across distinct messages cannot occur.
func (sk *SecretKey) Sign(hash []byte) ([]byte, error) {
	if err := sk.usable(); err != nil {
		return nil, err
	}
	if len(hash) != 32 {
		return nil, fmt.Errorf("keys: sign: message hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(sk.priv, hash)
	if err != nil {
		return nil, fmt.Errorf("keys: sign: %w", err)
	}
	return sig.Serialize(), nil
}

// Bytes returns a copy of the raw scalar. The caller owns the copy and
// should zero it after use.
func (sk *SecretKey) Bytes() ([]byte, error) {
	if err := sk.usable(); err != nil {
		return nil, err
	}
	return sk.priv.Serialize(), nil
}

// Hex returns the scalar as 64 lowercase hex characters.
func (sk *SecretKey) Hex() (string, error) {
	b, err := sk.Bytes()
	if err != nil {
		return "", err
	}
	s := hex.EncodeToString(b)
	zeroBytes(b)
	return s, nil
}

// Wipe overwrites the scalar with zeros and marks the key unusable.
// Safe to call more than once.
func (sk *SecretKey) Wipe() {
	if sk == nil || sk.priv == nil {
		return
	}
	sk.priv.Zero()
	sk.wiped = true
}

func (sk *SecretKey) usable() error {
	if sk == nil || sk.priv == nil || sk.wiped {
		return ErrInvalidKeyMaterial
	}
	return nil
}

// ParsePublicKey decodes a 64-character hex x-only public key and checks
// that the x coordinate lifts to a point on the curve.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return PublicKey{}, ErrInvalidKeyMaterial
	}
	if _, err := schnorr.ParsePubKey(b); err != nil {
		return PublicKey{}, ErrInvalidKeyMaterial
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

// Hex returns the public key as 64 lowercase hex characters.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk[:])
}

// Verify reports whether sig is a valid BIP-340 signature by pk over a
// 32-byte message hash. It never panics: any malformed signature, hash, or
// not-on-curve public key verifies as false.
func Verify(pk PublicKey, hash []byte, sig []byte) bool {
	if len(hash) != 32 || len(sig) != 64 {
		return false
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	pub, err := schnorr.ParsePubKey(pk[:])
	if err != nil {
		return false
	}
	return parsed.Verify(hash, pub)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
