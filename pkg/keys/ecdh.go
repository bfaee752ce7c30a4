package keys

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ComputeSharedSecret derives the 32-byte Diffie-Hellman secret between a
// local secret key and a peer's x-only public key: the x coordinate of the
// peer point multiplied by the local scalar. Derivation is symmetric:
// negating a point leaves its x coordinate unchanged, so the implicit
// even-parity lift never breaks agreement between the two sides.
//
// The result is raw curve output. The legacy direct-message cipher keys
// itself with it directly; the modern cipher runs it through an extra
// key-derivation step first.
func ComputeSharedSecret(sk *SecretKey, pk PublicKey) ([]byte, error) {
	if err := sk.usable(); err != nil {
		return nil, err
	}
	pub, err := secp256k1.ParsePubKey(append([]byte{secp256k1.PubKeyFormatCompressedEven}, pk[:]...))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return secp256k1.GenerateSharedSecret(sk.priv, pub), nil
}
