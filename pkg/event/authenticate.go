package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cryptoquick/nostr-types/pkg/keys"
)

// Sign computes the canonical id of the event's signable fields, signs it,
// and fills in PubKey, ID and Sig. CreatedAt, Kind, Tags and Content must
// already be set; any later change to them invalidates the result.
func (ev *Event) Sign(sk *keys.SecretKey) error {
	pk, err := sk.PublicKey()
	if err != nil {
		return err
	}
	ev.PubKey = pk.Hex()

	sum := sha256.Sum256(ev.Serialize())
	ev.ID = hex.EncodeToString(sum[:])

	sig, err := sk.Sign(sum[:])
	if err != nil {
		return err
	}
	ev.Sig = hex.EncodeToString(sig)
	return nil
}

// Verify checks the event end to end: the stored id must equal the hash of
// the canonical serialization (ErrIDMismatch otherwise), and the signature
// must verify against that id and the stored public key (ErrBadSignature
// otherwise). Callers must reject the event on any failure.
func (ev *Event) Verify() error {
	sum := sha256.Sum256(ev.Serialize())
	if hex.EncodeToString(sum[:]) != ev.ID {
		return ErrIDMismatch
	}

	pk, err := keys.ParsePublicKey(ev.PubKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	sig, err := hex.DecodeString(ev.Sig)
	if err != nil {
		return fmt.Errorf("%w: malformed signature hex", ErrBadSignature)
	}
	if !keys.Verify(pk, sum[:], sig) {
		return ErrBadSignature
	}
	return nil
}
