package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by ledger operations. The HTTP layer maps each
// kind to a status code; the ledger itself never collapses them into a
// generic failure.
var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrStarsNotFound      = errors.New("no stars recorded for address")
	ErrInvalidRecord      = errors.New("record failed structural validation")
	ErrChallengeExpired   = errors.New("ownership challenge has expired; request a new one")
	ErrInvalidSignature   = errors.New("signature does not verify for address")
	ErrGenesisAccess      = errors.New("genesis record holds no star data")
	ErrMalformedChallenge = errors.New("malformed challenge message")
)

// TamperedRecordError reports a record whose stored hash no longer matches
// the digest recomputed over its content.
type TamperedRecordError struct {
	Height int    `json:"height"`
	Hash   string `json:"hash"`
}

func (e TamperedRecordError) Error() string {
	return fmt.Sprintf("record %d tampered: stored hash %s does not match content", e.Height, e.Hash)
}

// BrokenLinkError reports a record whose PrevHash does not match the digest
// of the record preceding it.
type BrokenLinkError struct {
	Height int `json:"height"`
}

func (e BrokenLinkError) Error() string {
	return fmt.Sprintf("record %d does not link to its predecessor", e.Height)
}
