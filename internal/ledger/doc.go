// Package ledger implements the star registry's hash-linked append-only chain.
//
// The chain begins with a synthesized genesis record sealed at construction
// time. Every subsequent record is created through the guarded submit path:
// the owner requests a time-boxed challenge, signs it with the wallet key
// controlling their address, and the ledger appends the star only after the
// signature verifies inside the challenge window. Records are sealed once at
// append time; tampering with a sealed record is detectable via ValidateChain,
// which recomputes every digest and checks every previous-hash link.
//
// State lives only for the process lifetime. There is no persistence, no
// networking between nodes, and no consensus: this is a single-node notary
// chain, not a distributed blockchain.
package ledger
