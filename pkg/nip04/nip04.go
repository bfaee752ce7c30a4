// Package nip04 implements the first-generation encrypted direct message
// scheme: AES-256-CBC keyed directly by the raw ECDH shared secret, with
// the ciphertext and IV carried as base64 in a "?iv=" envelope string.
//
// This scheme is UNAUTHENTICATED. A tampered ciphertext may decrypt to
// garbage without any error, and callers must never treat a successful
// decryption as proof of integrity or origin. The weakness is inherited
// from the original protocol generation and is preserved for
// interoperability with older peers; new traffic should use nip44.
package nip04

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDecode  = errors.New("nip04: malformed envelope")
	ErrPadding = errors.New("nip04: invalid padding")
)

const envelopeSeparator = "?iv="

// Encrypt encrypts plaintext under the raw 32-byte shared secret and
// returns the envelope string "<base64 ciphertext>?iv=<base64 iv>".
func Encrypt(sharedSecret, plaintext []byte) (string, error) {
	block, err := newCipher(sharedSecret)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("nip04: iv: %w", err)
	}

	// PKCS#7: always at least one byte of padding.
	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	buf := make([]byte, len(plaintext)+padLen)
	copy(buf, plaintext)
	for i := len(plaintext); i < len(buf); i++ {
		buf[i] = byte(padLen)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	return base64.StdEncoding.EncodeToString(buf) + envelopeSeparator + base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt. It fails with ErrDecode on malformed envelope
// syntax and ErrPadding when the decrypted padding is inconsistent.
// Absence of either error does not imply the message is authentic.
func Decrypt(sharedSecret []byte, content string) ([]byte, error) {
	block, err := newCipher(sharedSecret)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(content, envelopeSeparator)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: missing %q separator", ErrDecode, envelopeSeparator)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext base64: %v", ErrDecode, err)
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: iv base64: %v", ErrDecode, err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrDecode, aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not block aligned", ErrDecode)
	}

	buf := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf, ciphertext)

	padLen := int(buf[len(buf)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(buf) {
		return nil, ErrPadding
	}
	for _, b := range buf[len(buf)-padLen:] {
		if int(b) != padLen {
			return nil, ErrPadding
		}
	}
	return buf[:len(buf)-padLen], nil
}

func newCipher(sharedSecret []byte) (cipher.Block, error) {
	if len(sharedSecret) != 32 {
		return nil, fmt.Errorf("%w: shared secret must be 32 bytes", ErrDecode)
	}
	block, err := aes.NewCipher(sharedSecret)
	if err != nil {
		return nil, fmt.Errorf("nip04: %w", err)
	}
	return block, nil
}
