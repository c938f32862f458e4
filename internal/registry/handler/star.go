package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/starregistry/starledger/internal/ledger"
	"go.uber.org/zap"
)

// StarHandler handles the ownership-challenge and star-submission flow.
type StarHandler struct {
	chain  *ledger.Ledger
	logger *zap.Logger
}

// NewStarHandler creates a new StarHandler.
func NewStarHandler(chain *ledger.Ledger, logger *zap.Logger) *StarHandler {
	return &StarHandler{chain: chain, logger: logger}
}

// Register mounts the challenge and star routes on the given router group.
func (h *StarHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/challenges", h.RequestChallenge)
	rg.POST("/stars", h.SubmitStar)
	rg.GET("/stars/:address", h.StarsByOwner)
}

// RequestChallenge handles POST /challenges.
//
// Request body: {"address": "7f3b..."}
//
// Response: the challenge message the wallet holder must sign before
// submitting a star.
func (h *StarHandler) RequestChallenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message := h.chain.RequestOwnershipChallenge(req.Address)

	c.JSON(http.StatusCreated, gin.H{
		"address":      req.Address,
		"message":      message,
		"instructions": "Sign the message with the wallet key controlling the address, then call POST /stars",
	})
}

// SubmitStar handles POST /stars.
//
// Request body: {"address": "...", "message": "...", "signature": "...", "star": {...}}
//
// Response: the committed record on success; a typed rejection otherwise.
func (h *StarHandler) SubmitStar(c *gin.Context) {
	var req struct {
		Address   string          `json:"address" binding:"required"`
		Message   string          `json:"message" binding:"required"`
		Signature string          `json:"signature" binding:"required"`
		Star      json.RawMessage `json:"star" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.chain.SubmitStar(req.Address, req.Message, req.Signature, req.Star)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrMalformedChallenge):
			RecordSubmission("malformed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrChallengeExpired):
			RecordSubmission("expired")
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrInvalidSignature):
			RecordSubmission("bad_signature")
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			RecordSubmission("error")
			h.logger.Error("submit star", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to commit star"})
		}
		return
	}

	RecordSubmission("committed")
	c.JSON(http.StatusCreated, rec)
}

// StarsByOwner handles GET /stars/:address — all decoded star payloads
// credited to the address.
func (h *StarHandler) StarsByOwner(c *gin.Context) {
	address := c.Param("address")

	stars, err := h.chain.GetStarsByOwner(address)
	if err != nil {
		if errors.Is(err, ledger.ErrStarsNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no stars recorded for address"})
			return
		}
		h.logger.Error("stars by owner", zap.String("address", address), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query stars"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"stars":   stars,
	})
}
