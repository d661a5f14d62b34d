// Package contestservice implements the meme contest inside the meme-contest
// context.
//
// The ledger contract is the source of truth for entries, votes and the
// minted flag. This module caches ledger reads, orchestrates paid votes with
// bounded confirmation waits, and drives eligible entries through IP
// registration and minting. Orphaned registrations are recorded and resumed
// without registering twice.
package contestservice
