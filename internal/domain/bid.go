package domain

import (
	"time"
)

// Bid is a single offer placed against an auction. Immutable once created.
type Bid struct {
	ID          string    `json:"id"`
	Bidder      string    `json:"bidder_id"`
	Amount      float64   `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Better reports whether bid a beats bid b: the higher amount wins, and on
// equal amounts the earlier bid wins. The comparison is strict, so two bids
// with identical amount and timestamp compare as equals and BestBid keeps
// whichever was appended first.
func Better(a, b Bid) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}

// BestBid returns the winning bid among bids, or nil if there are none.
func BestBid(bids []Bid) *Bid {
	if len(bids) == 0 {
		return nil
	}

	best := bids[0]
	for _, b := range bids[1:] {
		if Better(b, best) {
			best = b
		}
	}
	return &best
}
