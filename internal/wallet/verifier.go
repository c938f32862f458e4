package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
)

// Ed25519Verifier checks ownership-challenge signatures produced by
// Wallet.SignChallenge. It satisfies the ledger's Verifier contract:
// Verify(message, address, signature) -> bool.
type Ed25519Verifier struct{}

// NewVerifier creates an Ed25519Verifier.
func NewVerifier() Ed25519Verifier {
	return Ed25519Verifier{}
}

// Verify reports whether signature is a valid signature over message by the
// key controlling address. The signature carries its public key; a signature
// from a key that does not derive the claimed address is rejected even when
// cryptographically valid.
func (Ed25519Verifier) Verify(message, address, signature string) bool {
	blob, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	if len(blob) != ed25519.PublicKeySize+ed25519.SignatureSize {
		return false
	}

	pub := ed25519.PublicKey(blob[:ed25519.PublicKeySize])
	sig := blob[ed25519.PublicKeySize:]

	if DeriveAddress(pub) != address {
		return false
	}
	return ed25519.Verify(pub, []byte(message), sig)
}
