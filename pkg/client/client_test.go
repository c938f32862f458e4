package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starregistry/starledger/pkg/client"
)

var ctx = context.Background()

const tipHash = "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00aa11bb22cc33dd44ee55ff66"

// ── Stub server ─────────────────────────────────────────────────────────

func stubRegistryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	record := map[string]any{
		"hash":         tipHash,
		"height":       1,
		"body":         "7b7d",
		"timestamp":    1700000000,
		"previousHash": strings.Repeat("0", 64),
		"owner":        "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
	}

	mux.HandleFunc("/api/v1/records/height/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/999") {
			http.Error(w, `{"error":"record not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(record)
	})

	mux.HandleFunc("/api/v1/records/hash/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/"+tipHash) {
			json.NewEncoder(w).Encode(record)
			return
		}
		http.Error(w, `{"error":"record not found"}`, http.StatusNotFound)
	})

	mux.HandleFunc("/api/v1/challenges", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
			http.Error(w, `{"error":"address is required"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"address": req.Address,
			"message": req.Address + ":1700000000:starRegistry",
		})
	})

	mux.HandleFunc("/api/v1/stars", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Signature string `json:"signature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		if req.Signature == "bogus" {
			http.Error(w, `{"error":"signature does not verify for address"}`, http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(record)
	})

	mux.HandleFunc("/api/v1/stars/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/empty") {
			http.Error(w, `{"error":"no stars recorded for address"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"address": "deadbeef",
			"stars":   []map[string]string{{"story": "sdk test"}},
		})
	})

	mux.HandleFunc("/api/v1/ledger/validate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"valid": true, "errors": []string{}})
	})

	mux.HandleFunc("/api/v1/ledger", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"height": 1, "tip": tipHash})
	})

	return httptest.NewServer(mux)
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRecordByHeight(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	rec, err := c.RecordByHeight(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Hash != tipHash {
		t.Errorf("hash = %q, want %q", rec.Hash, tipHash)
	}
	if rec.Height != 1 {
		t.Errorf("height = %d, want 1", rec.Height)
	}
}

func TestRecordByHeight_notFound(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	_, err := c.RecordByHeight(ctx, 999)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "record not found" {
		t.Errorf("message = %q, want the registry error body", apiErr.Message)
	}
}

func TestRecordByHash(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	rec, err := c.RecordByHash(ctx, tipHash)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Hash != tipHash {
		t.Errorf("hash = %q, want %q", rec.Hash, tipHash)
	}
}

func TestRequestChallenge(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	ch, err := c.RequestChallenge(ctx, "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if ch.Message != "deadbeef:1700000000:starRegistry" {
		t.Errorf("message = %q", ch.Message)
	}
}

func TestSubmitStar(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	rec, err := c.SubmitStar(ctx, "deadbeef", "deadbeef:1700000000:starRegistry", "goodsig",
		map[string]string{"story": "sdk test"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Height != 1 {
		t.Errorf("height = %d, want 1", rec.Height)
	}
}

func TestSubmitStar_rejected(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	_, err := c.SubmitStar(ctx, "deadbeef", "deadbeef:1700000000:starRegistry", "bogus", nil)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.StatusCode)
	}
}

func TestStarsByOwner(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	stars, err := c.StarsByOwner(ctx, "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if len(stars) != 1 {
		t.Fatalf("got %d stars, want 1", len(stars))
	}
}

func TestValidateChain(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	report, err := c.ValidateChain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid {
		t.Errorf("report.Valid = false, want true")
	}
}

func TestChainOverview(t *testing.T) {
	srv := stubRegistryServer(t)
	defer srv.Close()
	c := client.New(srv.URL)

	ov, err := c.ChainOverview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Height != 1 || ov.Tip != tipHash {
		t.Errorf("overview = %+v", ov)
	}
}
