// Package event defines the signed, content-addressed event record and its
// canonical serialization. The id of an event is the SHA-256 of one fixed
// byte form of its signable fields, and the signature covers exactly that
// id, so any mutation after signing invalidates both.
package event

import "errors"

var (
	ErrIDMismatch   = errors.New("event: id does not match canonical serialization")
	ErrBadSignature = errors.New("event: signature verification failed")
)

// Event is the wire record. Once signed it is logically immutable: any
// field change requires recomputing ID and re-signing.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}
