package keys

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const (
	mnemonicSalt      = "nostr-key-derivation"
	hkdfInfoSecretKey = "nostr/keys/v1"
)

// FromMnemonic derives a secret key from a BIP-39 mnemonic sentence and an
// optional passphrase. The mnemonic checksum is validated before any
// derivation happens. The seed is expanded through HKDF-SHA256 with a
// retry counter, so the derived scalar is always inside the valid range.
func FromMnemonic(mnemonic, passphrase string) (*SecretKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	defer zeroBytes(seed)

	// A candidate scalar falls outside the curve order with probability
	// below 2^-127, but the loop keeps derivation total.
	for ctr := 0; ctr < 256; ctr++ {
		info := append([]byte(hkdfInfoSecretKey), byte(ctr))
		cand, err := hkdfExpand(seed, info, 32)
		if err != nil {
			return nil, err
		}
		sk, err := FromBytes(cand)
		zeroBytes(cand)
		if err == nil {
			return sk, nil
		}
	}
	return nil, ErrInvalidKeyMaterial
}

func hkdfExpand(seed, info []byte, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, []byte(mnemonicSalt), info)
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("keys: hkdf: %w", err)
	}
	return out, nil
}
