// Package signing builds and signs the canonical pre-image for every
// authenticated edgeX request, REST and WebSocket handshake alike.
package signing

import (
	"errors"
)

// Errors returned by the signing layer. Canonicalization and signing
// failures are never retried: the same input fails the same way.
var (
	ErrMalformedBody = errors.New("request body is not valid JSON")
	ErrInvalidKey    = errors.New("invalid signing key")
	ErrSigningFailed = errors.New("signing failed")
)

// Authentication headers attached to signed requests.
const (
	HeaderTimestamp = "X-edgeX-Api-Timestamp"
	HeaderSignature = "X-edgeX-Api-Signature"
)

// PrivateKey is hex-encoded private key material. It is treated as opaque
// by everything except the Signer and must never be logged.
type PrivateKey string

// Signature is a deterministic (r, s) pair. R and S are each 64 lowercase
// hex characters.
type Signature struct {
	R string
	S string
}

// String returns the wire form: r and s concatenated with no separator.
func (s Signature) String() string {
	return s.R + s.S
}

// Signer produces a signature over a 32-byte hash. Implementations must be
// deterministic for identical inputs and must fail with an error wrapping
// ErrInvalidKey on malformed key material.
type Signer interface {
	Sign(hash []byte, key PrivateKey) (Signature, error)
}

// Request is the signable view of an outbound request. Query holds the raw
// "key=value" tokens in their original order; Timestamp is milliseconds
// since epoch. Immutable once constructed.
type Request struct {
	Method    string
	Path      string
	Query     []string
	Body      []byte
	Timestamp int64
}

// SignRequest canonicalizes req, hashes it and signs the hash with the
// given signer. This is the single entry point shared by the REST
// authenticator and the WebSocket handshake so the two can never diverge.
func SignRequest(signer Signer, key PrivateKey, req Request) (Signature, error) {
	content, err := Canonicalize(req)
	if err != nil {
		return Signature{}, err
	}
	return signer.Sign(Hash(content), key)
}
