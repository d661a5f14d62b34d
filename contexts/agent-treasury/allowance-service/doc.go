// Package allowanceservice lets a server-held delegate key spend from a
// principal Safe's allowance module on behalf of an account.
//
// Spends by one delegate are serialized; the allowance is checked before any
// hash is signed, and a transfer is simulated before it is executed. A nonce
// that moved between signing and simulation is retried exactly once.
package allowanceservice
