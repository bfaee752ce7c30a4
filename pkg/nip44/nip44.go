// Package nip44 implements the second-generation encrypted payload scheme:
// authenticated encryption under a conversation key derived from the ECDH
// shared secret, with length-hiding padding and an HMAC-SHA256 tag.
//
// The envelope is base64(version ‖ nonce ‖ ciphertext ‖ tag). The version
// byte selects algorithm parameters, so future variants can be added
// without breaking the wire format; only version 2 exists today.
package nip44

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strings"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"github.com/cryptoquick/nostr-types/pkg/keys"
)

var (
	ErrAuthFailed         = errors.New("nip44: message authentication failed")
	ErrUnsupportedVersion = errors.New("nip44: unsupported envelope version")
	ErrInvalidPadding     = errors.New("nip44: invalid padding")
	ErrDecode             = errors.New("nip44: malformed envelope")
	ErrPlaintextSize      = errors.New("nip44: plaintext exceeds 65535 bytes")
)

const (
	// Version is the current envelope version byte.
	Version byte = 2

	nonceSize        = 32
	tagSize          = sha256.Size
	maxPlaintextSize = 65535

	// conversationKeySalt binds the key derivation to this scheme so the
	// raw ECDH output can never double as a key elsewhere.
	conversationKeySalt = "nip44-v2"
)

// minimum envelope: version + nonce + padded block (2-byte length prefix
// plus the smallest 32-byte bucket) + tag.
const minEnvelopeSize = 1 + nonceSize + 2 + 32 + tagSize

// ConversationKey derives the 32-byte symmetric key shared between the
// holder of sk and the holder of pk. It is an HKDF extraction of the raw
// Diffie-Hellman x coordinate and is identical in both directions.
func ConversationKey(sk *keys.SecretKey, pk keys.PublicKey) ([]byte, error) {
	shared, err := keys.ComputeSharedSecret(sk, pk)
	if err != nil {
		return nil, err
	}
	key := hkdf.Extract(sha256.New, shared, []byte(conversationKeySalt))
	zeroBytes(shared)
	return key, nil
}

// Encrypt pads plaintext to its size bucket, encrypts it with ChaCha20
// under keys expanded from conversationKey and a fresh random nonce, and
// appends an HMAC-SHA256 tag over version, nonce and ciphertext. The MAC
// key is distinct from the cipher key.
func Encrypt(conversationKey, plaintext []byte) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nip44: nonce: %w", err)
	}
	return encryptWithNonce(conversationKey, plaintext, nonce)
}

func encryptWithNonce(conversationKey, plaintext, nonce []byte) (string, error) {
	if len(plaintext) > maxPlaintextSize {
		return "", ErrPlaintextSize
	}
	encKey, encNonce, macKey, err := messageKeys(conversationKey, nonce)
	if err != nil {
		return "", err
	}
	defer zeroBytes(encKey)
	defer zeroBytes(macKey)

	buf := pad(plaintext)
	stream, err := chacha20.NewUnauthenticatedCipher(encKey, encNonce)
	if err != nil {
		return "", fmt.Errorf("nip44: cipher: %w", err)
	}
	stream.XORKeyStream(buf, buf)

	mac := hmac.New(sha256.New, macKey)
	mac.Write([]byte{Version})
	mac.Write(nonce)
	mac.Write(buf)

	out := make([]byte, 0, 1+nonceSize+len(buf)+tagSize)
	out = append(out, Version)
	out = append(out, nonce...)
	out = append(out, buf...)
	out = mac.Sum(out)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt authenticates and decrypts an envelope produced by Encrypt.
// The tag is checked in constant time before any decryption happens;
// a failed check returns ErrAuthFailed and no plaintext-derived state.
func Decrypt(conversationKey []byte, content string) ([]byte, error) {
	// A "#" prefix is the upgrade signal for envelopes from a future
	// version that cannot even be base64-decoded by this one.
	if strings.HasPrefix(content, "#") {
		return nil, ErrUnsupportedVersion
	}
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}
	if len(raw) < minEnvelopeSize {
		return nil, fmt.Errorf("%w: envelope too short", ErrDecode)
	}
	if raw[0] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, raw[0])
	}

	nonce := raw[1 : 1+nonceSize]
	ciphertext := raw[1+nonceSize : len(raw)-tagSize]
	tag := raw[len(raw)-tagSize:]

	encKey, encNonce, macKey, err := messageKeys(conversationKey, nonce)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(encKey)
	defer zeroBytes(macKey)

	mac := hmac.New(sha256.New, macKey)
	mac.Write([]byte{Version})
	mac.Write(nonce)
	mac.Write(ciphertext)
	if !hmac.Equal(mac.Sum(nil), tag) {
		return nil, ErrAuthFailed
	}

	buf := make([]byte, len(ciphertext))
	stream, err := chacha20.NewUnauthenticatedCipher(encKey, encNonce)
	if err != nil {
		return nil, fmt.Errorf("nip44: cipher: %w", err)
	}
	stream.XORKeyStream(buf, ciphertext)
	return unpad(buf)
}

// messageKeys expands the conversation key and per-message nonce into the
// ChaCha20 key and nonce plus a separate HMAC key.
func messageKeys(conversationKey, nonce []byte) (encKey, encNonce, macKey []byte, err error) {
	if len(conversationKey) != 32 {
		return nil, nil, nil, errors.New("nip44: conversation key must be 32 bytes")
	}
	if len(nonce) != nonceSize {
		return nil, nil, nil, errors.New("nip44: nonce must be 32 bytes")
	}
	expanded := make([]byte, 76)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, conversationKey, nonce), expanded); err != nil {
		return nil, nil, nil, fmt.Errorf("nip44: hkdf: %w", err)
	}
	return expanded[0:32], expanded[32:44], expanded[44:76], nil
}

// pad prefixes the plaintext with its 16-bit big-endian length and zero
// fills to the bucket size, hiding the exact length of short messages.
func pad(plaintext []byte) []byte {
	buf := make([]byte, 2+paddedLen(len(plaintext)))
	binary.BigEndian.PutUint16(buf, uint16(len(plaintext)))
	copy(buf[2:], plaintext)
	return buf
}

func unpad(buf []byte) ([]byte, error) {
	declared := int(binary.BigEndian.Uint16(buf))
	if declared > len(buf)-2 || paddedLen(declared) != len(buf)-2 {
		return nil, ErrInvalidPadding
	}
	for _, b := range buf[2+declared:] {
		if b != 0 {
			return nil, ErrInvalidPadding
		}
	}
	return buf[2 : 2+declared], nil
}

// paddedLen returns the bucket a plaintext of length n pads to: 32 bytes
// up to 32, then multiples of a chunk that doubles with each power of two.
func paddedLen(n int) int {
	if n <= 32 {
		return 32
	}
	nextPower := 1 << bits.Len(uint(n-1))
	chunk := 32
	if nextPower > 256 {
		chunk = nextPower / 8
	}
	return chunk * ((n-1)/chunk + 1)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
