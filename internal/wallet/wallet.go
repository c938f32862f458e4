// Package wallet manages the ed25519 keypairs behind star registry
// addresses. An address is derived from the public key alone, so the
// registry never needs to see a private key: ownership is proven by signing
// the registry's challenge message and attaching the public key to the
// signature, which the registry checks back against the claimed address.
package wallet

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"

	"golang.org/x/crypto/sha3"
)

// addressBytes is how many trailing digest bytes form an address.
const addressBytes = 20

// Wallet holds a keypair and its derived registry address.
type Wallet struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewWallet creates a Wallet from an existing private key.
func NewWallet(priv ed25519.PrivateKey) *Wallet {
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{
		priv:    priv,
		pub:     pub,
		address: DeriveAddress(pub),
	}
}

// Generate creates a Wallet with a fresh keypair.
func Generate() (*Wallet, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return NewWallet(priv), nil
}

// LoadOrCreate loads the wallet key at keyPath, generating and saving a new
// one when the file is missing or empty. Key files are PEM-encoded PKCS8
// and written with 0600 permissions.
func LoadOrCreate(keyPath string) (*Wallet, error) {
	info, err := os.Stat(keyPath)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		priv, genErr := generateAndSaveKey(keyPath)
		if genErr != nil {
			return nil, genErr
		}
		return NewWallet(priv), nil
	}
	if err != nil {
		return nil, err
	}

	priv, err := loadKey(keyPath)
	if err != nil {
		return nil, err
	}
	return NewWallet(priv), nil
}

// Address returns the wallet's registry address: 40 hex characters.
func (w *Wallet) Address() string {
	return w.address
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() ed25519.PublicKey {
	return w.pub
}

// SignChallenge signs a challenge message and returns the registry wire
// form: base64 of the public key followed by the detached signature. The
// embedded public key lets the verifier tie the signature back to the
// claimed address.
func (w *Wallet) SignChallenge(message string) string {
	sig := ed25519.Sign(w.priv, []byte(message))
	blob := make([]byte, 0, ed25519.PublicKeySize+ed25519.SignatureSize)
	blob = append(blob, w.pub...)
	blob = append(blob, sig...)
	return base64.StdEncoding.EncodeToString(blob)
}

// DeriveAddress maps a public key to its registry address: the trailing 20
// bytes of the SHA3-256 digest of the key, hex encoded.
func DeriveAddress(pub ed25519.PublicKey) string {
	sum := sha3.Sum256(pub)
	return hex.EncodeToString(sum[len(sum)-addressBytes:])
}

func generateAndSaveKey(keyPath string) (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}

	f, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := pem.Encode(f, block); err != nil {
		return nil, err
	}
	return priv, nil
}

func loadKey(keyPath string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block from key file")
	}

	generic, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	priv, ok := generic.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("key is not an ed25519 private key")
	}
	return priv, nil
}
