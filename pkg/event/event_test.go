package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cryptoquick/nostr-types/pkg/keys"
)

const fixtureSecretHex = "0101010101010101010101010101010101010101010101010101010101010101"

func fixtureEvent(t *testing.T) (*Event, *keys.SecretKey) {
	t.Helper()
	sk, err := keys.FromHex(fixtureSecretHex)
	if err != nil {
		t.Fatalf("fixture key failed: %v", err)
	}
	t.Cleanup(sk.Wipe)
	ev := &Event{
		CreatedAt: 1700000000,
		Kind:      1,
		Tags:      [][]string{{"t", "nostr"}, {"client", "nostr-types"}},
		Content:   "hello world",
	}
	return ev, sk
}

func TestSerializeCanonicalForm(t *testing.T) {
	ev, sk := fixtureEvent(t)
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	want := `[0,"1b84c5567b126440995d3ed5aaba0565d71e1834604819ff9c17f5e9d5dd078f",1700000000,1,[["t","nostr"],["client","nostr-types"]],"hello world"]`
	if got := string(ev.Serialize()); got != want {
		t.Fatalf("canonical form mismatch:\n got %s\nwant %s", got, want)
	}
	if ev.ID != "6ce3d5d3663b0ea38b5c0d87ef2993a6586262c7e1133826d7c2401880baf5ac" {
		t.Fatalf("unexpected event id: %s", ev.ID)
	}
}

func TestSerializeEscaping(t *testing.T) {
	ev := &Event{
		PubKey:  "ab",
		Content: "line1\nline2\t\"quoted\" \\ <html> \x01",
		Tags:    [][]string{},
	}
	want := `[0,"ab",0,0,[],"line1\nline2\t\"quoted\" \\ <html> \u0001"]`
	if got := string(ev.Serialize()); got != want {
		t.Fatalf("escaping mismatch:\n got %s\nwant %s", got, want)
	}

	// The canonical form of the signable fields must itself be valid JSON.
	var decoded []any
	if err := json.Unmarshal(ev.Serialize(), &decoded); err != nil {
		t.Fatalf("canonical form is not valid JSON: %v", err)
	}
	if len(decoded) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(decoded))
	}
}

func TestSerializeNilTagsMatchesEmpty(t *testing.T) {
	a := &Event{PubKey: "ab", Tags: nil}
	b := &Event{PubKey: "ab", Tags: [][]string{}}
	if string(a.Serialize()) != string(b.Serialize()) {
		t.Fatal("nil and empty tag lists must canonicalize identically")
	}
}

func TestSignThenVerify(t *testing.T) {
	ev, sk := fixtureEvent(t)
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if !ev.CheckID() {
		t.Fatal("signed event id must match canonical hash")
	}
	if err := ev.Verify(); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestVerifyDetectsMutation(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*Event)
	}{
		{"content", func(ev *Event) { ev.Content = "tampered" }},
		{"created_at", func(ev *Event) { ev.CreatedAt++ }},
		{"kind", func(ev *Event) { ev.Kind = 7 }},
		{"tags", func(ev *Event) { ev.Tags = append(ev.Tags, []string{"e", "extra"}) }},
		{"pubkey", func(ev *Event) {
			ev.PubKey = "4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766"
		}},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			ev, sk := fixtureEvent(t)
			if err := ev.Sign(sk); err != nil {
				t.Fatalf("sign failed: %v", err)
			}
			tc.mutate(ev)
			if err := ev.Verify(); !errors.Is(err, ErrIDMismatch) {
				t.Fatalf("expected ErrIDMismatch after mutation, got %v", err)
			}
		})
	}
}

func TestVerifyDetectsForgedID(t *testing.T) {
	ev, sk := fixtureEvent(t)
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	// Recompute the id over tampered content so only the signature is stale.
	ev.Content = "tampered"
	ev.ID = ev.GetID()
	if err := ev.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for re-hashed tampered event, got %v", err)
	}
}

func TestVerifyMalformedSignatureFields(t *testing.T) {
	ev, sk := fixtureEvent(t)
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	ev.Sig = "not-hex"
	if err := ev.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for bad hex, got %v", err)
	}

	ev2, sk2 := fixtureEvent(t)
	if err := ev2.Sign(sk2); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	ev2.PubKey = "zz"
	ev2.ID = ev2.GetID()
	if err := ev2.Verify(); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for bad pubkey, got %v", err)
	}
}
