// Package audit runs periodic integrity checks over the star chain. Chain
// validation never blocks reads or writes, so the auditor's job is purely
// observational: walk the chain on a timer, record the findings, and make
// noise when tampering shows up.
package audit

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds chain audit configuration.
type Config struct {
	Interval      time.Duration
	FailThreshold int
}

// ChainValidator is the slice of the ledger the auditor needs.
type ChainValidator interface {
	ValidateChain() []error
	Height() int
}

// MetricsRecordFunc is an optional callback for recording audit results.
type MetricsRecordFunc func(findings int)

// HeightRecordFunc is an optional callback for recording the chain height.
type HeightRecordFunc func(height int)

// Auditor runs periodic full-chain validation passes.
type Auditor struct {
	chain ChainValidator
	cfg   Config

	mu         sync.Mutex
	failStreak int

	onMetrics MetricsRecordFunc
	onHeight  HeightRecordFunc
	logger    *zap.Logger
}

// New creates a new Auditor.
func New(chain ChainValidator, cfg Config, logger *zap.Logger) *Auditor {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Auditor{chain: chain, cfg: cfg, logger: logger}
}

// SetMetricsRecord configures the metrics recording callback.
func (a *Auditor) SetMetricsRecord(fn MetricsRecordFunc) {
	a.onMetrics = fn
}

// SetHeightRecord configures the chain height recording callback.
func (a *Auditor) SetHeightRecord(fn HeightRecordFunc) {
	a.onHeight = fn
}

// Start runs the audit loop until quit is signalled.
func (a *Auditor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.RunOnce()
		case <-quit:
			return
		}
	}
}

// RunOnce performs a single validation pass and returns its findings.
func (a *Auditor) RunOnce() []error {
	findings := a.chain.ValidateChain()
	height := a.chain.Height()

	if a.onMetrics != nil {
		a.onMetrics(len(findings))
	}
	if a.onHeight != nil {
		a.onHeight(height)
	}

	a.mu.Lock()
	prevStreak := a.failStreak
	if len(findings) > 0 {
		a.failStreak++
	} else {
		a.failStreak = 0
	}
	streak := a.failStreak
	a.mu.Unlock()

	switch {
	case len(findings) == 0 && prevStreak >= a.cfg.FailThreshold:
		a.logger.Info("chain audit: integrity recovered", zap.Int("height", height))
	case len(findings) == 0:
		a.logger.Debug("chain audit: intact", zap.Int("height", height))
	case streak == a.cfg.FailThreshold:
		a.logger.Error("chain audit: tampering persists",
			zap.Int("height", height),
			zap.Int("findings", len(findings)),
			zap.Int("consecutive_failures", streak),
			zap.Errors("errors", findings),
		)
	default:
		a.logger.Warn("chain audit: integrity check failed",
			zap.Int("height", height),
			zap.Int("findings", len(findings)),
			zap.Errors("errors", findings),
		)
	}

	return findings
}
