package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashHexLen is the length of a hex-rendered SHA-256 digest.
const hashHexLen = 64

// Record is a single sealed unit of the chain. Body holds the star payload
// as hex-encoded UTF-8 JSON so the sealed representation stays format-stable
// regardless of payload shape. Hash is empty until the record is sealed;
// PrevHash is empty only on the genesis record, Owner only on records created
// through the ownership flow.
type Record struct {
	Hash      string `json:"hash,omitempty"`
	Height    int    `json:"height"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp,omitempty"`
	PrevHash  string `json:"previousHash,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

// digest computes a deterministic SHA-256 hash over the record's content with
// the hash field cleared. Every content field participates, so any
// out-of-band mutation of a sealed record changes the recomputed value.
func (r *Record) digest() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%s|%s|%s",
		r.Height, r.Timestamp, r.Body, r.PrevHash, r.Owner,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// seal computes and stores the record's integrity hash. Called exactly once,
// at append time, after Height, PrevHash and Timestamp are set.
func (r *Record) seal() {
	r.Hash = r.digest()
}

// Valid recomputes the digest over the record's current content and compares
// it to the stored hash. The recomputed value is returned for diagnostics.
// Valid never writes the stored hash: overwriting it here would make every
// tampered record report as intact.
func (r *Record) Valid() (bool, string) {
	recomputed := r.digest()
	return recomputed == r.Hash, recomputed
}

// DecodedStar decodes the stored body back to the original star payload.
// The genesis record holds a sentinel body, never application data, so
// decoding it fails with ErrGenesisAccess.
func (r *Record) DecodedStar() (json.RawMessage, error) {
	if r.Height == 0 {
		return nil, ErrGenesisAccess
	}
	raw, err := hex.DecodeString(r.Body)
	if err != nil {
		return nil, fmt.Errorf("decode record body: %w", err)
	}
	return json.RawMessage(raw), nil
}

// wellFormed checks the structural invariants of a freshly sealed record
// against the expected chain position.
func (r *Record) wellFormed(expectedHeight int) error {
	if len(r.Hash) != hashHexLen {
		return fmt.Errorf("hash must be %d hex chars, got %d", hashHexLen, len(r.Hash))
	}
	if _, err := hex.DecodeString(r.Hash); err != nil {
		return fmt.Errorf("hash is not valid hex: %w", err)
	}
	if r.Height != expectedHeight {
		return fmt.Errorf("height %d does not match chain position %d", r.Height, expectedHeight)
	}
	if r.Timestamp == 0 {
		return fmt.Errorf("timestamp is not set")
	}
	return nil
}

// encodeBody marshals a star payload to the hex-of-JSON wire form stored in
// Record.Body.
func encodeBody(star any) (string, error) {
	raw, err := json.Marshal(star)
	if err != nil {
		return "", fmt.Errorf("marshal star payload: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
