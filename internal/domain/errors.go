package domain

import (
	"errors"
	"fmt"
)

// Lookup errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Bid rejection errors
var (
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrAuctionExpired   = errors.New("auction has ended")
	ErrBidTooLow        = errors.New("bid amount too low")
)

// ErrInvalidAuction rejects malformed auction parameters at creation time.
var ErrInvalidAuction = errors.New("invalid auction parameters")

// BidTooLowError carries the amount a retrying caller must strictly exceed.
// It unwraps to ErrBidTooLow so callers can match with errors.Is.
type BidTooLowError struct {
	AuctionID      string
	CurrentHighest float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("auction %s: %v - bid must exceed %.2f", e.AuctionID, ErrBidTooLow, e.CurrentHighest)
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}
