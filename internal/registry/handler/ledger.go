package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/starregistry/starledger/internal/ledger"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only HTTP endpoints for the star chain.
type LedgerHandler struct {
	chain  *ledger.Ledger
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(chain *ledger.Ledger, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{chain: chain, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/validate", h.Validate)
	}
	r := rg.Group("/records")
	{
		r.GET("/height/:height", h.GetByHeight)
		r.GET("/hash/:hash", h.GetByHash)
	}
}

// Overview handles GET /ledger — returns the chain height and tip hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	tip := h.chain.Tip()
	c.JSON(http.StatusOK, gin.H{
		"height": h.chain.Height(),
		"tip":    tip.Hash,
	})
}

// Validate handles GET /ledger/validate — walks the full chain and reports
// every tampered record and broken link. Always 200: validation is a
// diagnostic report, not an enforcement failure.
func (h *LedgerHandler) Validate(c *gin.Context) {
	findings := h.chain.ValidateChain()
	RecordValidation(len(findings))

	if len(findings) > 0 {
		h.logger.Warn("chain integrity check failed", zap.Int("findings", len(findings)))
		details := make([]string, 0, len(findings))
		for _, f := range findings {
			details = append(details, f.Error())
		}
		c.JSON(http.StatusOK, gin.H{
			"valid":  false,
			"errors": details,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "errors": []string{}})
}

// GetByHeight handles GET /records/height/:height — returns the record at
// the given chain height.
func (h *LedgerHandler) GetByHeight(c *gin.Context) {
	height, err := strconv.Atoi(c.Param("height"))
	if err != nil || height < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "height must be a non-negative integer"})
		return
	}

	rec, err := h.chain.GetByHeight(height)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		h.logger.Error("get by height", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// GetByHash handles GET /records/hash/:hash — returns the record sealed
// with the given hash.
func (h *LedgerHandler) GetByHash(c *gin.Context) {
	hash := c.Param("hash")

	rec, err := h.chain.GetByHash(hash)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		h.logger.Error("get by hash", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}

	c.JSON(http.StatusOK, rec)
}
