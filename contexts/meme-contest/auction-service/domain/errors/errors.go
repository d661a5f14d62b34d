package errors

import (
	"errors"
	"fmt"

	"artix/internal/shared/faults"
)

var (
	ErrInvalidAuction  = errors.New("invalid auction request")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrBidConflict     = errors.New("auction price changed concurrently")

	ErrEntryNotMinted       = fmt.Errorf("entry has not been minted: %w", faults.ErrPreconditionFailed)
	ErrNotEntryCreator      = fmt.Errorf("caller is not the entry creator: %w", faults.ErrPreconditionFailed)
	ErrNotSeller            = fmt.Errorf("caller is not the seller: %w", faults.ErrPreconditionFailed)
	ErrAuctionAlreadyActive = fmt.Errorf("entry already has an active auction: %w", faults.ErrPreconditionFailed)
	ErrAuctionEnded         = fmt.Errorf("auction has ended: %w", faults.ErrPreconditionFailed)
	ErrBidTooLow            = fmt.Errorf("bid must exceed the current price: %w", faults.ErrPreconditionFailed)
	ErrSellerCannotBid      = fmt.Errorf("seller cannot bid on own auction: %w", faults.ErrPreconditionFailed)
	ErrEntryUnavailable     = fmt.Errorf("entry read failed: %w", faults.ErrTransientNetwork)
)
