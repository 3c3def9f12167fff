package domain

import (
	"context"
)

// Notifier is the sink an auction uses to inform a bidder about outbids and
// closure results. Delivery mechanism (direct call, queue, websocket push) is
// the implementation's choice; calls for a single auction arrive in event
// order. Implementations must not call back into the auction that invoked
// them.
type Notifier interface {
	OnUpdate(auctionID, userID, message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) OnUpdate(auctionID, userID, message string) {}

// AuctionStore is the durable storage collaborator. The engine is in-memory;
// a store, when configured, receives committed state best-effort and supplies
// still-open auctions at startup.
type AuctionStore interface {
	SaveAuction(ctx context.Context, snap AuctionSnapshot) error
	SaveBid(ctx context.Context, auctionID string, bid Bid) error
	MarkClosed(ctx context.Context, auctionID string, winning *Bid) error
	LoadOpenAuctions(ctx context.Context) ([]AuctionSnapshot, error)
}

// EventPublisher fans auction events out to interested processes.
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventHandler func(event *AuctionEvent) error

// EventSubscriber delivers published auction events to a handler until the
// context is cancelled.
type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}
