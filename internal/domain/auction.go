package domain

import (
	"fmt"
	"sync"
	"time"

	"auction-engine/pkg/utils"
)

type AuctionState int

const (
	StatePending AuctionState = iota
	StateActive
	StateClosed
)

func (s AuctionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Auction is a timed sell order for one item. It owns its bid history and
// serializes every mutation under its own lock, so unrelated auctions never
// contend with each other.
//
// Notifications are delivered while the lock is held, which keeps them in
// order relative to the bid and close events that produced them. Notifier
// implementations must not call back into the same auction.
type Auction struct {
	ID          string
	ItemName    string
	Description string
	BasePrice   float64
	EndTime     time.Time
	CreatedAt   time.Time

	notifier Notifier

	mu         sync.Mutex
	state      AuctionState
	bids       []Bid
	observers  map[string]struct{}
	winningBid *Bid
}

// NewAuction creates an active auction. The notifier receives outbid and
// closure messages for every bidder; pass NopNotifier to opt out.
func NewAuction(id, itemName, description string, basePrice float64, endTime time.Time, notifier Notifier) *Auction {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Auction{
		ID:          id,
		ItemName:    itemName,
		Description: description,
		BasePrice:   basePrice,
		EndTime:     endTime,
		CreatedAt:   time.Now(),
		notifier:    notifier,
		state:       StateActive,
		observers:   make(map[string]struct{}),
	}
}

// RestoreAuction rebuilds an auction from a persisted snapshot. Bidders found
// in the history are re-subscribed as observers.
func RestoreAuction(snap AuctionSnapshot, notifier Notifier) *Auction {
	a := NewAuction(snap.ID, snap.ItemName, snap.Description, snap.BasePrice, snap.EndTime, notifier)
	a.CreatedAt = snap.CreatedAt
	a.state = snap.State
	a.bids = append(a.bids, snap.Bids...)
	for _, b := range snap.Bids {
		a.observers[b.Bidder] = struct{}{}
	}
	if snap.State == StateClosed {
		a.winningBid = BestBid(a.bids)
	}
	return a
}

// PlaceBid validates and records a bid from bidderID. On success the bidder
// joins the observer set and the previous leader, if any and distinct, gets
// an outbid notification. The returned Bid is the accepted value.
//
// Rejections: ErrAuctionNotActive once closed, ErrAuctionExpired past the
// end time, and BidTooLowError unless amount strictly exceeds the current
// highest bid (the base price while unbid).
func (a *Auction) PlaceBid(bidderID string, amount float64) (Bid, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateActive {
		return Bid{}, fmt.Errorf("auction %s: %w", a.ID, ErrAuctionNotActive)
	}
	if time.Now().After(a.EndTime) {
		return Bid{}, fmt.Errorf("auction %s: %w", a.ID, ErrAuctionExpired)
	}

	highest := BestBid(a.bids)
	current := a.BasePrice
	if highest != nil {
		current = highest.Amount
	}
	if amount <= current {
		return Bid{}, &BidTooLowError{AuctionID: a.ID, CurrentHighest: current}
	}
	if amount <= 0 {
		// Unreachable while BasePrice >= 0; a breach is a programming error.
		panic(fmt.Sprintf("auction %s: non-positive amount %.2f passed validation", a.ID, amount))
	}

	bid := Bid{
		ID:          utils.GenerateID("bid"),
		Bidder:      bidderID,
		Amount:      amount,
		SubmittedAt: time.Now(),
	}
	a.bids = append(a.bids, bid)
	a.observers[bidderID] = struct{}{}

	if highest != nil && highest.Bidder != bidderID {
		a.notifier.OnUpdate(a.ID, highest.Bidder,
			fmt.Sprintf("You have been outbid on %q. The new highest bid is %.2f.", a.ItemName, amount))
	}

	return bid, nil
}

// Close ends the auction, freezes the winning bid and notifies every bidder
// who ever participated. Calling Close on a closed auction is a no-op; the
// second return value reports whether this call performed the transition.
func (a *Auction) Close() (*Bid, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateActive {
		return copyBid(a.winningBid), false
	}

	a.state = StateClosed
	a.winningBid = BestBid(a.bids)

	var msg string
	if a.winningBid != nil {
		msg = fmt.Sprintf("Auction for %q has ended. Winner is %s with a bid of %.2f.",
			a.ItemName, a.winningBid.Bidder, a.winningBid.Amount)
	} else {
		msg = fmt.Sprintf("Auction for %q has ended. There were no bids.", a.ItemName)
	}

	for userID := range a.observers {
		a.notifier.OnUpdate(a.ID, userID, msg)
	}

	return copyBid(a.winningBid), true
}

// State returns the current lifecycle state.
func (a *Auction) State() AuctionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsActive reports whether the auction still accepts bids.
func (a *Auction) IsActive() bool {
	return a.State() == StateActive
}

// HighestBid returns a copy of the current leading bid, or nil if unbid.
func (a *Auction) HighestBid() *Bid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyBid(BestBid(a.bids))
}

// WinningBid returns a copy of the frozen winning bid. Nil until the auction
// closes, and nil afterwards if it closed without bids.
func (a *Auction) WinningBid() *Bid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyBid(a.winningBid)
}

// BidHistory returns the bids in insertion order as a defensive copy.
func (a *Auction) BidHistory() []Bid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Bid(nil), a.bids...)
}

// Snapshot captures a consistent view of the auction for serving and
// persistence.
func (a *Auction) Snapshot() AuctionSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AuctionSnapshot{
		ID:          a.ID,
		ItemName:    a.ItemName,
		Description: a.Description,
		BasePrice:   a.BasePrice,
		EndTime:     a.EndTime,
		CreatedAt:   a.CreatedAt,
		State:       a.state,
		Bids:        append([]Bid(nil), a.bids...),
		WinningBid:  copyBid(a.winningBid),
	}
}

// AuctionSnapshot is an immutable point-in-time view of an auction.
type AuctionSnapshot struct {
	ID          string       `json:"id"`
	ItemName    string       `json:"item_name"`
	Description string       `json:"description"`
	BasePrice   float64      `json:"base_price"`
	EndTime     time.Time    `json:"end_time"`
	CreatedAt   time.Time    `json:"created_at"`
	State       AuctionState `json:"-"`
	Bids        []Bid        `json:"bids"`
	WinningBid  *Bid         `json:"winning_bid,omitempty"`
}

func copyBid(b *Bid) *Bid {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
