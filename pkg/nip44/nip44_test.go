package nip44

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/cryptoquick/nostr-types/pkg/keys"
)

const (
	aliceSecretHex = "0101010101010101010101010101010101010101010101010101010101010101"
	bobSecretHex   = "0202020202020202020202020202020202020202020202020202020202020202"

	// conversation key between the two fixture keys
	fixtureConversationKeyHex = "59c6d24d9c3a7bf8ca4cec54031a3e2ecfaa553452a2b2fa3147e31ee55f33d5"
)

func fixtureKeys(t *testing.T) (alice, bob *keys.SecretKey) {
	t.Helper()
	alice, err := keys.FromHex(aliceSecretHex)
	if err != nil {
		t.Fatalf("fixture key failed: %v", err)
	}
	t.Cleanup(alice.Wipe)
	bob, err = keys.FromHex(bobSecretHex)
	if err != nil {
		t.Fatalf("fixture key failed: %v", err)
	}
	t.Cleanup(bob.Wipe)
	return alice, bob
}

func fixtureConversationKey(t *testing.T) []byte {
	t.Helper()
	key, err := hex.DecodeString(fixtureConversationKeyHex)
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return key
}

func fixedNonce() []byte {
	nonce := make([]byte, 32)
	for i := range nonce {
		nonce[i] = byte(i)
	}
	return nonce
}

func TestConversationKeySymmetricAndFixed(t *testing.T) {
	alice, bob := fixtureKeys(t)
	alicePub, _ := alice.PublicKey()
	bobPub, _ := bob.PublicKey()

	ab, err := ConversationKey(alice, bobPub)
	if err != nil {
		t.Fatalf("conversation key a->b failed: %v", err)
	}
	ba, err := ConversationKey(bob, alicePub)
	if err != nil {
		t.Fatalf("conversation key b->a failed: %v", err)
	}
	if !bytes.Equal(ab, ba) {
		t.Fatalf("conversation key must be symmetric: %x != %x", ab, ba)
	}
	if hex.EncodeToString(ab) != fixtureConversationKeyHex {
		t.Fatalf("unexpected conversation key: %x", ab)
	}
}

func TestFixedNonceEnvelopes(t *testing.T) {
	key := fixtureConversationKey(t)
	for _, tc := range []struct {
		plaintext string
		envelope  string
	}{
		{"", "AgABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fOGiT5kKkX+Sgn94Mrmz/eSZgQT+X7Nyv9zy7Br9GyyV4L5npX57INcpGVyqArrrbPHZVCuugDbkBH04Sst3zM/nq"},
		{"hello world", "AgABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fOGP7gy7IMMTX8Kxgymz/eSZgQT+X7Nyv9zy7Br9GyyV4L7TB9aHnv8FlNlTgtUZc+8eYTLFX4J4+qoZW6sDARxMO"},
	} {
		got, err := encryptWithNonce(key, []byte(tc.plaintext), fixedNonce())
		if err != nil {
			t.Fatalf("encrypt %q failed: %v", tc.plaintext, err)
		}
		if got != tc.envelope {
			t.Fatalf("envelope mismatch for %q:\n got %s\nwant %s", tc.plaintext, got, tc.envelope)
		}
		back, err := Decrypt(key, got)
		if err != nil {
			t.Fatalf("decrypt %q failed: %v", tc.plaintext, err)
		}
		if string(back) != tc.plaintext {
			t.Fatalf("roundtrip mismatch: %q != %q", back, tc.plaintext)
		}
	}
}

func TestEmptyPlaintextPadsToSmallestBucket(t *testing.T) {
	key := fixtureConversationKey(t)
	envelope, err := encryptWithNonce(key, nil, fixedNonce())
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	// version + nonce + (length prefix + 32-byte bucket) + tag
	if len(raw) != 1+32+2+32+32 {
		t.Fatalf("expected 99-byte envelope, got %d", len(raw))
	}
	if len(envelope) != 132 {
		t.Fatalf("expected 132-char base64 envelope, got %d", len(envelope))
	}
}

func TestRoundtripAcrossBucketBoundaries(t *testing.T) {
	key := fixtureConversationKey(t)
	for _, n := range []int{0, 1, 31, 32, 33, 64, 65, 255, 256, 257, 320, 1024, 65535} {
		plaintext := bytes.Repeat([]byte{0xa5}, n)
		envelope, err := Encrypt(key, plaintext)
		if err != nil {
			t.Fatalf("encrypt %d bytes failed: %v", n, err)
		}
		got, err := Decrypt(key, envelope)
		if err != nil {
			t.Fatalf("decrypt %d bytes failed: %v", n, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("roundtrip mismatch at %d bytes", n)
		}
	}
}

func TestRejectsOversizedPlaintext(t *testing.T) {
	key := fixtureConversationKey(t)
	if _, err := Encrypt(key, make([]byte, 65536)); !errors.Is(err, ErrPlaintextSize) {
		t.Fatalf("expected ErrPlaintextSize, got %v", err)
	}
}

func TestBitFlipAnywhereFailsAuthentication(t *testing.T) {
	key := fixtureConversationKey(t)
	envelope, err := Encrypt(key, []byte("the quick brown fox"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(envelope)

	// Flipping any bit of nonce, ciphertext or tag must fail the tag
	// check; flipping the version byte must fail version dispatch.
	for i := 1; i < len(raw); i++ {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 1
		_, err := Decrypt(key, base64.StdEncoding.EncodeToString(tampered))
		if !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed for flipped byte %d, got %v", i, err)
		}
	}
}

func TestUnknownVersionIsDistinguishedFromBadTag(t *testing.T) {
	key := fixtureConversationKey(t)
	envelope, _ := Encrypt(key, []byte("x"))
	raw, _ := base64.StdEncoding.DecodeString(envelope)
	raw[0] = 9
	if _, err := Decrypt(key, base64.StdEncoding.EncodeToString(raw)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if _, err := Decrypt(key, "#future-scheme"); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion for # prefix, got %v", err)
	}
}

func TestMalformedEnvelopes(t *testing.T) {
	key := fixtureConversationKey(t)
	if _, err := Decrypt(key, "!not base64!"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	short := base64.StdEncoding.EncodeToString([]byte{2, 1, 2, 3})
	if _, err := Decrypt(key, short); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for short envelope, got %v", err)
	}
}

func TestPaddedLenBuckets(t *testing.T) {
	for _, tc := range []struct{ n, want int }{
		{0, 32}, {1, 32}, {32, 32},
		{33, 64}, {37, 64}, {64, 64},
		{65, 96}, {100, 128}, {256, 256},
		{257, 320}, {320, 320}, {321, 384},
		{1024, 1024}, {1025, 1280},
	} {
		if got := paddedLen(tc.n); got != tc.want {
			t.Fatalf("paddedLen(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestUnpadRejectsNonzeroTail(t *testing.T) {
	buf := pad([]byte("x"))
	if _, err := unpad(buf); err != nil {
		t.Fatalf("clean padding rejected: %v", err)
	}
	buf[len(buf)-1] = 0xff
	if _, err := unpad(buf); !errors.Is(err, ErrInvalidPadding) {
		t.Fatalf("expected ErrInvalidPadding for nonzero tail, got %v", err)
	}
}
