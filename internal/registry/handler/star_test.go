package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/starregistry/starledger/internal/ledger"
	"github.com/starregistry/starledger/internal/registry/handler"
	"github.com/starregistry/starledger/internal/wallet"
	"go.uber.org/zap"
)

// setupRegistry wires a router against a real chain with a pinned clock and
// real ed25519 signature verification.
func setupRegistry(t *testing.T, now *int64) (*gin.Engine, *ledger.Ledger, *wallet.Wallet) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chain := ledger.New(wallet.NewVerifier(), zap.NewNop(), ledger.WithClock(func() time.Time {
		return time.Unix(*now, 0)
	}))

	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	v1 := r.Group("/api/v1")
	handler.NewStarHandler(chain, zap.NewNop()).Register(v1)
	handler.NewLedgerHandler(chain, zap.NewNop()).Register(v1)
	return r, chain, w
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func requestChallenge(t *testing.T, router *gin.Engine, address string) string {
	t.Helper()
	w := postJSON(t, router, "/api/v1/challenges", map[string]string{"address": address})
	if w.Code != http.StatusCreated {
		t.Fatalf("challenge request: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Message
}

var testStar = map[string]string{
	"dec":   "68° 52' 56.9",
	"ra":    "16h 29m 1.0s",
	"story": "handler test star",
}

func TestRequestChallenge_201(t *testing.T) {
	now := int64(1000)
	router, _, w := setupRegistry(t, &now)

	message := requestChallenge(t, router, w.Address())
	want := fmt.Sprintf("%s:1000:starRegistry", w.Address())
	if message != want {
		t.Errorf("challenge message = %q, want %q", message, want)
	}
}

func TestRequestChallenge_400_missingAddress(t *testing.T) {
	now := int64(1000)
	router, _, _ := setupRegistry(t, &now)

	w := postJSON(t, router, "/api/v1/challenges", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitStar_201(t *testing.T) {
	now := int64(1000)
	router, chain, w := setupRegistry(t, &now)

	message := requestChallenge(t, router, w.Address())
	now = 1200

	resp := postJSON(t, router, "/api/v1/stars", map[string]any{
		"address":   w.Address(),
		"message":   message,
		"signature": w.SignChallenge(message),
		"star":      testStar,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var rec ledger.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Height != 1 {
		t.Errorf("committed height = %d, want 1", rec.Height)
	}
	if rec.Owner != w.Address() {
		t.Errorf("owner = %q, want %q", rec.Owner, w.Address())
	}
	if chain.Height() != 1 {
		t.Errorf("chain height = %d, want 1", chain.Height())
	}
}

func TestSubmitStar_403_expired(t *testing.T) {
	now := int64(1000)
	router, chain, w := setupRegistry(t, &now)

	message := requestChallenge(t, router, w.Address())
	now = 1301

	resp := postJSON(t, router, "/api/v1/stars", map[string]any{
		"address":   w.Address(),
		"message":   message,
		"signature": w.SignChallenge(message),
		"star":      testStar,
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body.String())
	}
	if chain.Height() != 0 {
		t.Errorf("expired submission appended a record")
	}
}

func TestSubmitStar_401_badSignature(t *testing.T) {
	now := int64(1000)
	router, chain, w := setupRegistry(t, &now)

	message := requestChallenge(t, router, w.Address())
	now = 1100

	// Signed by a different wallet than the claimed address.
	other, _ := wallet.Generate()

	resp := postJSON(t, router, "/api/v1/stars", map[string]any{
		"address":   w.Address(),
		"message":   message,
		"signature": other.SignChallenge(message),
		"star":      testStar,
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.Code, resp.Body.String())
	}
	if chain.Height() != 0 {
		t.Errorf("rejected submission appended a record")
	}
}

func TestSubmitStar_400_malformedMessage(t *testing.T) {
	now := int64(1000)
	router, _, w := setupRegistry(t, &now)

	resp := postJSON(t, router, "/api/v1/stars", map[string]any{
		"address":   w.Address(),
		"message":   "not a challenge",
		"signature": w.SignChallenge("not a challenge"),
		"star":      testStar,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestStarsByOwner_200(t *testing.T) {
	now := int64(1000)
	router, _, w := setupRegistry(t, &now)

	message := requestChallenge(t, router, w.Address())
	now = 1100
	if resp := postJSON(t, router, "/api/v1/stars", map[string]any{
		"address":   w.Address(),
		"message":   message,
		"signature": w.SignChallenge(message),
		"star":      testStar,
	}); resp.Code != http.StatusCreated {
		t.Fatalf("seed submission failed: %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stars/"+w.Address(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Address string              `json:"address"`
		Stars   []map[string]string `json:"stars"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Stars) != 1 {
		t.Fatalf("got %d stars, want 1", len(resp.Stars))
	}
	if resp.Stars[0]["story"] != testStar["story"] {
		t.Errorf("decoded story = %q, want %q", resp.Stars[0]["story"], testStar["story"])
	}
}

func TestStarsByOwner_404(t *testing.T) {
	now := int64(1000)
	router, _, _ := setupRegistry(t, &now)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stars/deadbeef", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
