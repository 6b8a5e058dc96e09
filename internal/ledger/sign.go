package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// Keys and signatures travel as standard base64. Raw Ed25519 key and
// signature sizes apply (32-byte public keys, 64-byte signatures).

// Verify reports whether signatureB64 is a valid Ed25519 signature over
// message by the holder of publicKeyB64.
//
// Verify is a pure predicate: stateless, side-effect free. Malformed keys
// or signatures verify as false rather than erroring - a forged or
// corrupted submission is a rejection, not a fault.
func Verify(publicKeyB64 string, message []byte, signatureB64 string) bool {
	pub, err := DecodePublicKey(publicKeyB64)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}

// Sign produces the base64 Ed25519 signature of message.
func Sign(priv ed25519.PrivateKey, message []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, message))
}

// SignPayload canonically encodes p and signs it, returning the signature.
func SignPayload(priv ed25519.PrivateKey, p Payload) (string, error) {
	canonical, err := p.Canonical()
	if err != nil {
		return "", err
	}
	return Sign(priv, canonical), nil
}

// DecodePublicKey parses a base64 Ed25519 public key.
func DecodePublicKey(publicKeyB64 string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("decode public key: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePublicKey renders an Ed25519 public key as base64.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}
