package wallet_test

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/starregistry/starledger/internal/wallet"
)

func TestGenerate_addressShape(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}

	addr := w.Address()
	if len(addr) != 40 {
		t.Fatalf("address length = %d, want 40", len(addr))
	}
	if _, err := hex.DecodeString(addr); err != nil {
		t.Errorf("address is not hex: %v", err)
	}
	if got := wallet.DeriveAddress(w.PublicKey()); got != addr {
		t.Errorf("DeriveAddress(%x) = %q, wallet says %q", w.PublicKey(), got, addr)
	}
}

func TestSignChallenge_verifies(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	v := wallet.NewVerifier()

	message := w.Address() + ":1000:starRegistry"
	sig := w.SignChallenge(message)

	if !v.Verify(message, w.Address(), sig) {
		t.Errorf("own signature did not verify")
	}
	if v.Verify(message+" tampered", w.Address(), sig) {
		t.Errorf("signature verified over a different message")
	}
}

func TestVerify_rejectsWrongAddress(t *testing.T) {
	w1, _ := wallet.Generate()
	w2, _ := wallet.Generate()
	v := wallet.NewVerifier()

	message := w2.Address() + ":1000:starRegistry"
	sig := w1.SignChallenge(message)

	// Cryptographically valid, but the embedded key does not derive the
	// claimed address.
	if v.Verify(message, w2.Address(), sig) {
		t.Errorf("signature from a different wallet verified for the claimed address")
	}
}

func TestVerify_rejectsGarbage(t *testing.T) {
	w, _ := wallet.Generate()
	v := wallet.NewVerifier()

	for _, sig := range []string{
		"",
		"not base64 !!!",
		"YWJjZA==", // valid base64, wrong length
	} {
		if v.Verify("msg", w.Address(), sig) {
			t.Errorf("garbage signature %q verified", sig)
		}
	}
}

func TestLoadOrCreate_roundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "wallet.pem")

	w1, err := wallet.LoadOrCreate(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := wallet.LoadOrCreate(keyPath)
	if err != nil {
		t.Fatal(err)
	}

	if w1.Address() != w2.Address() {
		t.Errorf("reloaded wallet address %q != original %q", w2.Address(), w1.Address())
	}
}
