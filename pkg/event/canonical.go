package event

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Serialize returns the canonical byte form of the signable fields:
//
//	[0,"<pubkey>",<created_at>,<kind>,<tags>,"<content>"]
//
// The output is byte-for-byte deterministic: fixed field order, no
// whitespace, plain base-10 integers, and minimal JSON string escaping
// (quote, backslash, and control characters only, never HTML escapes).
// This is the single serialization used by both signing and verification;
// two conforming peers must hash identical bytes for the same logical
// event.
func (ev *Event) Serialize() []byte {
	b := make([]byte, 0, 100+len(ev.Content))
	b = append(b, `[0,"`...)
	b = append(b, ev.PubKey...)
	b = append(b, `",`...)
	b = strconv.AppendInt(b, ev.CreatedAt, 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(ev.Kind), 10)
	b = append(b, ',')
	b = appendTags(b, ev.Tags)
	b = append(b, ',')
	b = appendEscapedString(b, ev.Content)
	b = append(b, ']')
	return b
}

// GetID computes the event id: lowercase hex SHA-256 of Serialize.
func (ev *Event) GetID() string {
	sum := sha256.Sum256(ev.Serialize())
	return hex.EncodeToString(sum[:])
}

// CheckID reports whether the stored id matches the canonical hash.
func (ev *Event) CheckID() bool {
	return ev.ID == ev.GetID()
}

func appendTags(dst []byte, tags [][]string) []byte {
	dst = append(dst, '[')
	for i, tag := range tags {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, item := range tag {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = appendEscapedString(dst, item)
		}
		dst = append(dst, ']')
	}
	return append(dst, ']')
}

const hexDigits = "0123456789abcdef"

// appendEscapedString writes s as a JSON string with the minimal escape
// set. UTF-8 sequences pass through untouched.
func appendEscapedString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}
