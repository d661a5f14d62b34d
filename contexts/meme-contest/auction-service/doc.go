// Package auctionservice runs timed English auctions for minted contest
// entries.
//
// An entry has at most one active auction. Bids are accepted only while the
// auction is open and only above the current price; concurrent bids are
// serialized by a compare-and-set on the price so the price strictly
// increases. Expired auctions are ended by the settler worker.
package auctionservice
