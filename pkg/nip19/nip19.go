// Package nip19 encodes keys, event ids and pointer entities as bech32
// strings. Each entity kind has its own human-readable prefix; the
// trailing 6-character checksum catches any single-character corruption
// with near-certainty.
//
// Bare entities (npub, nsec, note) carry a fixed 32-byte payload.
// Composite entities (nprofile, nevent, naddr) carry a type-length-value
// sequence; unknown TLV types are skipped so older decoders survive newer
// encoders.
package nip19

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/cryptoquick/nostr-types/pkg/keys"
)

var (
	ErrChecksumMismatch = errors.New("nip19: bech32 decode failed")
	ErrUnknownPrefix    = errors.New("nip19: unknown entity prefix")
	ErrTruncatedEntity  = errors.New("nip19: truncated entity payload")
)

// TLV types used inside composite entities.
const (
	tlvSpecial = 0 // 32-byte id/pubkey, or the identifier string for naddr
	tlvRelay   = 1 // one relay hint URL per record
	tlvAuthor  = 2 // 32-byte author public key
	tlvKind    = 3 // uint32 big-endian event kind
)

// ProfilePointer identifies an author plus relays where they publish.
type ProfilePointer struct {
	PublicKey string
	Relays    []string
}

// EventPointer identifies an event plus optional routing hints.
type EventPointer struct {
	ID     string
	Relays []string
	Author string
	Kind   int
}

// AddressPointer identifies a replaceable event by author, kind and
// identifier rather than by content hash.
type AddressPointer struct {
	Identifier string
	Kind       int
	PublicKey  string
	Relays     []string
}

// EncodePublicKey returns the "npub1..." form of a hex public key.
func EncodePublicKey(pubHex string) (string, error) {
	return encodeBare("npub", pubHex)
}

// EncodeSecretKey returns the "nsec1..." form of a secret key. The
// encoded string contains the raw scalar; treat it with the same care as
// the key itself.
func EncodeSecretKey(sk *keys.SecretKey) (string, error) {
	b, err := sk.Bytes()
	if err != nil {
		return "", err
	}
	encoded, err := encodeBytes("nsec", b)
	zeroBytes(b)
	return encoded, err
}

// EncodeNote returns the "note1..." form of a hex event id.
func EncodeNote(idHex string) (string, error) {
	return encodeBare("note", idHex)
}

// EncodeProfile returns the "nprofile1..." composite form.
func EncodeProfile(p ProfilePointer) (string, error) {
	payload, err := appendSpecialHex(nil, p.PublicKey)
	if err != nil {
		return "", err
	}
	payload, err = appendRelays(payload, p.Relays)
	if err != nil {
		return "", err
	}
	return encodeBytes("nprofile", payload)
}

// EncodeEvent returns the "nevent1..." composite form. Author and Kind
// are optional; Kind < 0 omits the kind record.
func EncodeEvent(p EventPointer) (string, error) {
	payload, err := appendSpecialHex(nil, p.ID)
	if err != nil {
		return "", err
	}
	payload, err = appendRelays(payload, p.Relays)
	if err != nil {
		return "", err
	}
	if p.Author != "" {
		b, err := hex.DecodeString(p.Author)
		if err != nil || len(b) != 32 {
			return "", fmt.Errorf("nip19: author must be 32 hex bytes")
		}
		payload = appendTLV(payload, tlvAuthor, b)
	}
	if p.Kind >= 0 {
		payload = appendKind(payload, p.Kind)
	}
	return encodeBytes("nevent", payload)
}

// EncodeAddress returns the "naddr1..." composite form.
func EncodeAddress(p AddressPointer) (string, error) {
	payload := appendTLV(nil, tlvSpecial, []byte(p.Identifier))
	payload, err := appendRelays(payload, p.Relays)
	if err != nil {
		return "", err
	}
	b, err := hex.DecodeString(p.PublicKey)
	if err != nil || len(b) != 32 {
		return "", fmt.Errorf("nip19: author must be 32 hex bytes")
	}
	payload = appendTLV(payload, tlvAuthor, b)
	payload = appendKind(payload, p.Kind)
	return encodeBytes("naddr", payload)
}

// Decode parses any supported entity. The returned value is a hex string
// for npub and note, a *keys.SecretKey for nsec, and the matching pointer
// struct for nprofile, nevent and naddr.
func Decode(encoded string) (prefix string, value any, err error) {
	prefix, data5, err := bech32.DecodeNoLimit(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrChecksumMismatch, err)
	}
	payload, err := bech32.ConvertBits(data5, 5, 8, false)
	if err != nil {
		return prefix, nil, fmt.Errorf("%w: %v", ErrChecksumMismatch, err)
	}

	switch prefix {
	case "npub", "note":
		if len(payload) != 32 {
			return prefix, nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrTruncatedEntity, len(payload))
		}
		return prefix, hex.EncodeToString(payload), nil

	case "nsec":
		sk, err := keys.FromBytes(payload)
		zeroBytes(payload)
		if err != nil {
			return prefix, nil, err
		}
		return prefix, sk, nil

	case "nprofile":
		p := ProfilePointer{}
		err := walkTLV(payload, func(typ byte, v []byte) error {
			switch typ {
			case tlvSpecial:
				if len(v) != 32 {
					return fmt.Errorf("%w: pubkey record is %d bytes", ErrTruncatedEntity, len(v))
				}
				p.PublicKey = hex.EncodeToString(v)
			case tlvRelay:
				p.Relays = append(p.Relays, string(v))
			}
			return nil
		})
		if err != nil {
			return prefix, nil, err
		}
		if p.PublicKey == "" {
			return prefix, nil, fmt.Errorf("%w: missing pubkey record", ErrTruncatedEntity)
		}
		return prefix, p, nil

	case "nevent":
		p := EventPointer{Kind: -1}
		err := walkTLV(payload, func(typ byte, v []byte) error {
			switch typ {
			case tlvSpecial:
				if len(v) != 32 {
					return fmt.Errorf("%w: id record is %d bytes", ErrTruncatedEntity, len(v))
				}
				p.ID = hex.EncodeToString(v)
			case tlvRelay:
				p.Relays = append(p.Relays, string(v))
			case tlvAuthor:
				if len(v) == 32 {
					p.Author = hex.EncodeToString(v)
				}
			case tlvKind:
				if len(v) == 4 {
					p.Kind = int(binary.BigEndian.Uint32(v))
				}
			}
			return nil
		})
		if err != nil {
			return prefix, nil, err
		}
		if p.ID == "" {
			return prefix, nil, fmt.Errorf("%w: missing id record", ErrTruncatedEntity)
		}
		return prefix, p, nil

	case "naddr":
		p := AddressPointer{Kind: -1}
		seenSpecial := false
		err := walkTLV(payload, func(typ byte, v []byte) error {
			switch typ {
			case tlvSpecial:
				p.Identifier = string(v)
				seenSpecial = true
			case tlvRelay:
				p.Relays = append(p.Relays, string(v))
			case tlvAuthor:
				if len(v) == 32 {
					p.PublicKey = hex.EncodeToString(v)
				}
			case tlvKind:
				if len(v) == 4 {
					p.Kind = int(binary.BigEndian.Uint32(v))
				}
			}
			return nil
		})
		if err != nil {
			return prefix, nil, err
		}
		if !seenSpecial || p.PublicKey == "" || p.Kind < 0 {
			return prefix, nil, fmt.Errorf("%w: missing required records", ErrTruncatedEntity)
		}
		return prefix, p, nil

	default:
		return prefix, nil, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}
}

// walkTLV visits every {type, length, value} record in payload, calling
// fn for each. Records with unrecognized types still pass through fn so
// callers can skip them; a length field pointing past the end of the
// buffer fails with ErrTruncatedEntity.
func walkTLV(payload []byte, fn func(typ byte, value []byte) error) error {
	for len(payload) > 0 {
		if len(payload) < 2 {
			return fmt.Errorf("%w: dangling record header", ErrTruncatedEntity)
		}
		typ, length := payload[0], int(payload[1])
		if len(payload) < 2+length {
			return fmt.Errorf("%w: record claims %d bytes, %d remain", ErrTruncatedEntity, length, len(payload)-2)
		}
		if err := fn(typ, payload[2:2+length]); err != nil {
			return err
		}
		payload = payload[2+length:]
	}
	return nil
}

func encodeBare(prefix, payloadHex string) (string, error) {
	b, err := hex.DecodeString(payloadHex)
	if err != nil || len(b) != 32 {
		return "", fmt.Errorf("nip19: %s payload must be 32 hex bytes", prefix)
	}
	return encodeBytes(prefix, b)
}

func encodeBytes(prefix string, payload []byte) (string, error) {
	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("nip19: %w", err)
	}
	encoded, err := bech32.Encode(prefix, converted)
	if err != nil {
		return "", fmt.Errorf("nip19: %w", err)
	}
	return encoded, nil
}

func appendSpecialHex(payload []byte, valueHex string) ([]byte, error) {
	b, err := hex.DecodeString(valueHex)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("nip19: special record must be 32 hex bytes")
	}
	return appendTLV(payload, tlvSpecial, b), nil
}

func appendRelays(payload []byte, relays []string) ([]byte, error) {
	for _, relay := range relays {
		if relay == "" || len(relay) > 255 {
			return nil, fmt.Errorf("nip19: relay hint must be 1 to 255 bytes, got %d", len(relay))
		}
		payload = appendTLV(payload, tlvRelay, []byte(relay))
	}
	return payload, nil
}

func appendKind(payload []byte, kind int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(kind))
	return appendTLV(payload, tlvKind, b[:])
}

func appendTLV(payload []byte, typ byte, value []byte) []byte {
	payload = append(payload, typ, byte(len(value)))
	return append(payload, value...)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
