// Package nip49 implements password-protected secret key export. The key
// is wrapped with XChaCha20-Poly1305 under a wrapping key derived from the
// passphrase by scrypt, and the whole package travels as a bech32 string
// with the "ncryptsec" prefix.
//
// The scrypt cost is caller-tunable and recorded in the package, so
// decryption always knows the parameters that were used. The KDF being
// expensive is the entire point of this format: expect key derivation to
// take tens to hundreds of milliseconds at the default cost.
package nip49

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/cryptoquick/nostr-types/pkg/keys"
)

var (
	// ErrAuthFailed covers both a wrong passphrase and a corrupted
	// package; the two are deliberately indistinguishable.
	ErrAuthFailed         = errors.New("nip49: wrong passphrase or corrupt package")
	ErrInvalid            = errors.New("nip49: malformed encrypted key")
	ErrUnsupportedVersion = errors.New("nip49: unsupported key package version")
)

// KeySecurity records whether the wrapped key has ever been handled
// insecurely. It rides along as authenticated associated data.
type KeySecurity byte

const (
	KeySecurityWeak    KeySecurity = 0x00 // key has been handled insecurely
	KeySecurityMedium  KeySecurity = 0x01 // key has not been handled insecurely
	KeySecurityUnknown KeySecurity = 0x02
)

const (
	hrp     = "ncryptsec"
	version = 0x02

	saltSize = 16

	// DefaultLogN is the default scrypt cost (log2 of N). 2^16 keeps a
	// single derivation well under a second while making offline
	// passphrase search expensive; lowering it materially weakens every
	// key exported with it.
	DefaultLogN uint8 = 16

	maxLogN = 22
)

// Encrypt wraps the secret key under the passphrase and returns the
// bech32 "ncryptsec1..." string. logN is the scrypt cost exponent;
// use DefaultLogN unless the caller has a measured reason not to.
func Encrypt(sk *keys.SecretKey, passphrase string, logN uint8, security KeySecurity) (string, error) {
	if logN == 0 || logN > maxLogN {
		return "", fmt.Errorf("%w: cost 2^%d out of range", ErrInvalid, logN)
	}
	secret, err := sk.Bytes()
	if err != nil {
		return "", err
	}
	defer zeroBytes(secret)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("nip49: salt: %w", err)
	}
	wrappingKey, err := deriveWrappingKey(passphrase, salt, logN)
	if err != nil {
		return "", err
	}
	defer zeroBytes(wrappingKey)

	aead, err := chacha20poly1305.NewX(wrappingKey)
	if err != nil {
		return "", fmt.Errorf("nip49: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nip49: nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, secret, []byte{byte(security)})

	payload := make([]byte, 0, 2+saltSize+len(nonce)+1+len(ciphertext))
	payload = append(payload, version, logN)
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = append(payload, byte(security))
	payload = append(payload, ciphertext...)

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("nip49: %w", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("nip49: %w", err)
	}
	return encoded, nil
}

// Decrypt unwraps an "ncryptsec1..." string with the passphrase, returning
// the secret key and its recorded security flag. A bad passphrase and a
// tampered package both fail with ErrAuthFailed.
func Decrypt(encoded, passphrase string) (*keys.SecretKey, KeySecurity, error) {
	prefix, data5, err := bech32.DecodeNoLimit(encoded)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if prefix != hrp {
		return nil, 0, fmt.Errorf("%w: prefix %q", ErrInvalid, prefix)
	}
	payload, err := bech32.ConvertBits(data5, 5, 8, false)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// version + logN + salt + nonce + security byte + wrapped key + tag
	if len(payload) != 2+saltSize+chacha20poly1305.NonceSizeX+1+32+chacha20poly1305.Overhead {
		return nil, 0, fmt.Errorf("%w: payload is %d bytes", ErrInvalid, len(payload))
	}
	if payload[0] != version {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, payload[0])
	}
	logN := payload[1]
	if logN == 0 || logN > maxLogN {
		return nil, 0, fmt.Errorf("%w: cost 2^%d out of range", ErrInvalid, logN)
	}

	offset := 2
	salt := payload[offset : offset+saltSize]
	offset += saltSize
	nonce := payload[offset : offset+chacha20poly1305.NonceSizeX]
	offset += chacha20poly1305.NonceSizeX
	security := KeySecurity(payload[offset])
	offset++
	ciphertext := payload[offset:]

	wrappingKey, err := deriveWrappingKey(passphrase, salt, logN)
	if err != nil {
		return nil, 0, err
	}
	defer zeroBytes(wrappingKey)

	aead, err := chacha20poly1305.NewX(wrappingKey)
	if err != nil {
		return nil, 0, fmt.Errorf("nip49: %w", err)
	}
	secret, err := aead.Open(nil, nonce, ciphertext, []byte{byte(security)})
	if err != nil {
		return nil, 0, ErrAuthFailed
	}
	sk, err := keys.FromBytes(secret)
	zeroBytes(secret)
	if err != nil {
		return nil, 0, err
	}
	return sk, security, nil
}

// deriveWrappingKey runs the memory-hard KDF. The passphrase is NFKC
// normalized first so visually identical passphrases derive the same key
// across platforms.
func deriveWrappingKey(passphrase string, salt []byte, logN uint8) ([]byte, error) {
	normalized := norm.NFKC.String(passphrase)
	key, err := scrypt.Key([]byte(normalized), salt, 1<<int(logN), 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("nip49: kdf: %w", err)
	}
	return key, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
