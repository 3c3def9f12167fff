package domain

import (
	"time"
)

type AuctionEventType string

const (
	EventAuctionCreated AuctionEventType = "auction_created"
	EventBidAccepted    AuctionEventType = "bid_accepted"
	EventBidRejected    AuctionEventType = "bid_rejected"
	EventAuctionClosed  AuctionEventType = "auction_closed"
)

// AuctionEvent is the record published on the event bus for each lifecycle
// transition and bid outcome. UserID and Amount are zero for events with no
// associated bid (creation, closure without bids).
type AuctionEvent struct {
	Type      AuctionEventType `json:"type"`
	AuctionID string           `json:"auction_id"`
	UserID    string           `json:"user_id,omitempty"`
	Amount    float64          `json:"amount,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
