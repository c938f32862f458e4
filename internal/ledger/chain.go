package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultChallengeWindow is how long a signed ownership challenge stays
// valid after issue.
const DefaultChallengeWindow = 300 * time.Second

// challengeSuffix terminates every ownership challenge message.
const challengeSuffix = "starRegistry"

// Verifier checks that message was signed by the private key controlling
// address. Implementations must be side-effect free.
type Verifier interface {
	Verify(message, address, signature string) bool
}

// Clock supplies the current time. Injectable so challenge-expiry logic is
// testable without real elapsed time.
type Clock func() time.Time

// Ledger owns the ordered sequence of sealed records. The sequence is
// append-only and never externally aliased: lookups return copies, and the
// only mutation path is the private append inside SubmitStar/Initialize.
type Ledger struct {
	mu      sync.RWMutex
	records []*Record

	verifier Verifier
	now      Clock
	window   time.Duration
	logger   *zap.Logger
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithClock overrides the wall clock. Used by tests to pin challenge windows.
func WithClock(now Clock) Option {
	return func(l *Ledger) { l.now = now }
}

// WithChallengeWindow overrides the ownership challenge validity window.
func WithChallengeWindow(d time.Duration) Option {
	return func(l *Ledger) { l.window = d }
}

// New creates a Ledger and seals its genesis record.
func New(verifier Verifier, logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		verifier: verifier,
		now:      time.Now,
		window:   DefaultChallengeWindow,
		logger:   logger,
	}
	for _, o := range opts {
		o(l)
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	l.Initialize()
	return l
}

// Initialize synthesizes and seals the genesis record if the chain is empty.
// Idempotent: calling it again is a no-op.
func (l *Ledger) Initialize() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) > 0 {
		return
	}

	body, _ := encodeBody(map[string]string{"data": "Genesis Record"})
	genesis := &Record{
		Height:    0,
		Body:      body,
		Timestamp: l.now().Unix(),
	}
	genesis.seal()
	l.records = append(l.records, genesis)

	l.logger.Info("genesis record sealed", zap.String("hash", genesis.Hash))
}

// Height returns the height of the chain tip: len(records)-1.
func (l *Ledger) Height() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records) - 1
}

// Tip returns a copy of the most recently committed record.
func (l *Ledger) Tip() Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.records[len(l.records)-1]
}

// append is the single point of mutation. It derives linkage from the
// current tail, stamps and seals the candidate, and commits it only if the
// sealed record is structurally well-formed. Deriving height, sealing,
// validating and pushing happen in one critical section so two concurrent
// submissions can never compute the same height/PrevHash pair.
func (l *Ledger) append(rec *Record) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.records); n > 0 {
		rec.PrevHash = l.records[n-1].Hash
	}
	rec.Height = len(l.records)
	rec.Timestamp = l.now().Unix()
	rec.seal()

	if err := rec.wellFormed(len(l.records)); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	l.records = append(l.records, rec)
	return *rec, nil
}

// RequestOwnershipChallenge issues a time-stamped challenge the wallet
// holder must sign to prove control of address. Stateless: the challenge
// embeds its own issue time, re-checked at submission.
func (l *Ledger) RequestOwnershipChallenge(address string) string {
	return fmt.Sprintf("%s:%d:%s", address, l.now().Unix(), challengeSuffix)
}

// SubmitStar is the guarded append path. The challenge window check and the
// signature check each short-circuit: no append happens on any failure, and
// a timed-out challenge is never handed to the verifier.
func (l *Ledger) SubmitStar(address, message, signature string, star any) (Record, error) {
	issued, err := parseChallengeTime(message)
	if err != nil {
		return Record{}, err
	}

	if l.now().Unix()-issued >= int64(l.window/time.Second) {
		return Record{}, ErrChallengeExpired
	}

	if !l.verifier.Verify(message, address, signature) {
		return Record{}, ErrInvalidSignature
	}

	body, err := encodeBody(star)
	if err != nil {
		return Record{}, err
	}

	rec, err := l.append(&Record{Body: body, Owner: address})
	if err != nil {
		return Record{}, err
	}

	l.logger.Info("star committed",
		zap.Int("height", rec.Height),
		zap.String("owner", address),
		zap.String("hash", rec.Hash),
	)
	return rec, nil
}

// parseChallengeTime extracts the embedded issue time from a challenge
// message of the form "{address}:{unixSeconds}:starRegistry".
func parseChallengeTime(message string) (int64, error) {
	parts := strings.Split(message, ":")
	if len(parts) != 3 || parts[2] != challengeSuffix {
		return 0, ErrMalformedChallenge
	}
	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad issue time %q", ErrMalformedChallenge, parts[1])
	}
	return issued, nil
}

// GetByHeight returns a copy of the record at the given height, or
// ErrRecordNotFound for an out-of-range height.
func (l *Ledger) GetByHeight(height int) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if height < 0 || height >= len(l.records) {
		return Record{}, ErrRecordNotFound
	}
	return *l.records[height], nil
}

// GetByHash returns a copy of the first record whose hash equals hash, or
// ErrRecordNotFound when no record matches.
func (l *Ledger) GetByHash(hash string) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, rec := range l.records {
		if rec.Hash == hash {
			return *rec, nil
		}
	}
	return Record{}, ErrRecordNotFound
}

// GetStarsByOwner returns the decoded star payloads of every record credited
// to address. Owner queries double as a tamper-detection trigger: the whole
// chain is validated first and the outcome logged, without blocking the
// read. An address with no records yields ErrStarsNotFound.
func (l *Ledger) GetStarsByOwner(address string) ([]json.RawMessage, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if findings := l.validateLocked(); len(findings) > 0 {
		l.logger.Warn("chain validation found issues during owner query",
			zap.String("address", address),
			zap.Int("findings", len(findings)),
			zap.Errors("errors", findings),
		)
	} else {
		l.logger.Info("chain validated clean during owner query",
			zap.String("address", address),
		)
	}

	var stars []json.RawMessage
	for _, rec := range l.records {
		if rec.Owner == "" || rec.Owner != address {
			continue
		}
		star, err := rec.DecodedStar()
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", rec.Height, err)
		}
		stars = append(stars, star)
	}

	if len(stars) == 0 {
		return nil, ErrStarsNotFound
	}
	return stars, nil
}

// ValidateChain walks every record in height order and accumulates findings.
// An empty slice means the chain is intact. Tamper and link checks are
// independent: a record's PrevHash is compared against the digest recomputed
// over its predecessor's current content, so corrupting a record surfaces
// both the tampered record and the broken link to the record after it.
// Validation is diagnosis, not enforcement: it never stops at a finding.
func (l *Ledger) ValidateChain() []error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validateLocked()
}

// validateLocked is ValidateChain without locking. Callers hold at least a
// read lock.
func (l *Ledger) validateLocked() []error {
	var findings []error
	prevDigest := ""

	for i, rec := range l.records {
		ok, recomputed := rec.Valid()
		if !ok {
			findings = append(findings, TamperedRecordError{Height: rec.Height, Hash: rec.Hash})
		}
		if i > 0 && rec.PrevHash != prevDigest {
			findings = append(findings, BrokenLinkError{Height: rec.Height})
		}
		prevDigest = recomputed
	}
	return findings
}
