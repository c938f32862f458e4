// Package client is the star registry Go SDK.
//
// It wraps the registry's HTTP API: requesting ownership challenges,
// submitting signed stars, looking up records by height or hash, listing an
// address's stars, and fetching chain integrity reports.
//
// # Submitting a star
//
// The submit flow is challenge → sign → submit. With a local wallet key:
//
//	w, _ := wallet.LoadOrCreate(os.ExpandEnv("$HOME/.starctl/wallet.pem"))
//	c := client.New("http://localhost:8080")
//
//	ch, _ := c.RequestChallenge(ctx, w.Address())
//	sig := w.SignChallenge(ch.Message)
//	rec, err := c.SubmitStar(ctx, w.Address(), ch.Message, sig, map[string]string{
//	    "dec":   "68° 52' 56.9",
//	    "ra":    "16h 29m 1.0s",
//	    "story": "First star I ever registered",
//	})
//
// The challenge expires five minutes after issue; a late submission fails
// with a 403 *APIError and the star is not recorded.
//
// # Lookups
//
//	rec, err := c.RecordByHeight(ctx, 1)
//	rec, err = c.RecordByHash(ctx, rec.Hash)
//	stars, err := c.StarsByOwner(ctx, w.Address())
//
// # Integrity
//
//	report, _ := c.ValidateChain(ctx)
//	if !report.Valid {
//	    log.Printf("chain tampered: %v", report.Errors)
//	}
//
// All errors caused by non-2xx responses are *APIError values carrying the
// HTTP status code, so callers can tell not-found (404) from an expired
// challenge (403) or a bad signature (401).
package client
