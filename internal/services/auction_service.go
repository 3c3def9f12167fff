package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"
)

// AuctionService is the process-wide entry point of the engine. It owns the
// user and auction registries, wires new auctions to the close scheduler and
// routes bids to the right auction. Construct exactly one per process and
// pass the handle around; there is no hidden global instance.
type AuctionService struct {
	notifier  domain.Notifier
	store     domain.AuctionStore
	events    domain.EventPublisher
	scheduler *CloseScheduler
	log       logger.Logger

	mu       sync.RWMutex
	users    map[string]*domain.User
	auctions map[string]*domain.Auction
}

// NewAuctionService builds the service. store and events are optional
// collaborators and may be nil; a nil notifier discards notifications.
// sweepInterval tunes the scheduler's overdue sweep (zero for the default).
func NewAuctionService(notifier domain.Notifier, store domain.AuctionStore,
	events domain.EventPublisher, sweepInterval time.Duration, log logger.Logger) *AuctionService {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}

	s := &AuctionService{
		notifier: notifier,
		store:    store,
		events:   events,
		log:      log,
		users:    make(map[string]*domain.User),
		auctions: make(map[string]*domain.Auction),
	}
	s.scheduler = NewCloseScheduler(s.scheduledClose, s.overdueAuctions, sweepInterval, log)
	return s
}

// Start restores still-open auctions from the store, if one is configured,
// and begins the scheduler's background sweep.
func (s *AuctionService) Start(ctx context.Context) error {
	if s.store != nil {
		if err := s.restore(ctx); err != nil {
			return fmt.Errorf("restore open auctions: %w", err)
		}
	}
	s.scheduler.Start()
	return nil
}

// Shutdown stops scheduled closures from firing and blocks until in-flight
// ones finish. Already-committed closed states are untouched. The service
// must not be used afterwards.
func (s *AuctionService) Shutdown() {
	s.log.Info("Shutting down auction service")
	s.scheduler.Shutdown()
}

// CreateUser registers a bidder and returns the directory entry.
func (s *AuctionService) CreateUser(name string) *domain.User {
	user := &domain.User{
		ID:   utils.GenerateID("user"),
		Name: name,
	}

	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()

	s.log.Info("User created", "user_id", user.ID, "name", name)
	return user
}

// GetUser looks up a registered bidder.
func (s *AuctionService) GetUser(userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}
	return user, nil
}

// CreateAuction constructs and registers an auction and schedules its close
// at endTime. An end time already in the past closes the auction immediately
// through the normal scheduled path, so no auction stays active forever.
func (s *AuctionService) CreateAuction(ctx context.Context, itemName, description string,
	basePrice float64, endTime time.Time) (*domain.Auction, error) {
	if itemName == "" {
		return nil, fmt.Errorf("%w: empty item name", domain.ErrInvalidAuction)
	}
	if basePrice < 0 {
		return nil, fmt.Errorf("%w: negative base price %.2f", domain.ErrInvalidAuction, basePrice)
	}

	auction := domain.NewAuction(utils.GenerateID("auction"), itemName, description,
		basePrice, endTime, s.notifier)

	if s.store != nil {
		if err := s.store.SaveAuction(ctx, auction.Snapshot()); err != nil {
			return nil, fmt.Errorf("save auction: %w", err)
		}
	}

	s.mu.Lock()
	s.auctions[auction.ID] = auction
	s.mu.Unlock()

	s.publish(ctx, &domain.AuctionEvent{
		Type:      domain.EventAuctionCreated,
		AuctionID: auction.ID,
		Timestamp: time.Now(),
	})

	s.scheduler.Schedule(auction.ID, endTime)

	s.log.Info("Auction created", "auction_id", auction.ID, "item", itemName, "end_time", endTime)
	return auction, nil
}

// PlaceBid routes a bid to its auction. Unknown auction or bidder ids fail
// with ErrAuctionNotFound / ErrUserNotFound; domain rejections pass through
// from the auction untouched.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) error {
	s.mu.RLock()
	auction := s.auctions[auctionID]
	_, userKnown := s.users[bidderID]
	s.mu.RUnlock()

	if auction == nil {
		return fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if !userKnown {
		return fmt.Errorf("bidder %s: %w", bidderID, domain.ErrUserNotFound)
	}

	bid, err := auction.PlaceBid(bidderID, amount)
	if err != nil {
		s.publish(ctx, &domain.AuctionEvent{
			Type:      domain.EventBidRejected,
			AuctionID: auctionID,
			UserID:    bidderID,
			Amount:    amount,
			Timestamp: time.Now(),
		})
		return err
	}

	if s.store != nil {
		if serr := s.store.SaveBid(ctx, auctionID, bid); serr != nil {
			s.log.Error("Failed to persist bid", "auction_id", auctionID, "bid_id", bid.ID, "error", serr)
		}
	}

	s.publish(ctx, &domain.AuctionEvent{
		Type:      domain.EventBidAccepted,
		AuctionID: auctionID,
		UserID:    bidderID,
		Amount:    bid.Amount,
		Timestamp: bid.SubmittedAt,
	})

	s.log.Info("Bid accepted", "auction_id", auctionID, "bidder_id", bidderID, "amount", amount)
	return nil
}

// EndAuction closes the auction now, whether called by the scheduler or by
// an administrative early close. Closing a closed auction is a no-op.
func (s *AuctionService) EndAuction(ctx context.Context, auctionID string) error {
	s.mu.RLock()
	auction := s.auctions[auctionID]
	s.mu.RUnlock()

	if auction == nil {
		return fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}

	winning, closed := auction.Close()
	if !closed {
		return nil
	}
	s.scheduler.Cancel(auctionID)

	if s.store != nil {
		if err := s.store.MarkClosed(ctx, auctionID, winning); err != nil {
			s.log.Error("Failed to persist auction close", "auction_id", auctionID, "error", err)
		}
	}

	event := &domain.AuctionEvent{
		Type:      domain.EventAuctionClosed,
		AuctionID: auctionID,
		Timestamp: time.Now(),
	}
	if winning != nil {
		event.UserID = winning.Bidder
		event.Amount = winning.Amount
	}
	s.publish(ctx, event)

	s.log.Info("Auction closed", "auction_id", auctionID, "has_winner", winning != nil)
	return nil
}

// GetAuction returns the live auction handle for auctionID.
func (s *AuctionService) GetAuction(auctionID string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	return auction, nil
}

// ViewActiveAuctions returns the auctions still accepting bids.
func (s *AuctionService) ViewActiveAuctions() []*domain.Auction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*domain.Auction
	for _, auction := range s.auctions {
		if auction.IsActive() {
			active = append(active, auction)
		}
	}
	return active
}

// scheduledClose runs on the scheduler's timer. A missing auction means its
// lifecycle already concluded through another path, so it is not an error
// here.
func (s *AuctionService) scheduledClose(auctionID string) {
	if err := s.EndAuction(context.Background(), auctionID); err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			s.log.Debug("Scheduled close found no auction", "auction_id", auctionID)
			return
		}
		s.log.Error("Scheduled close failed", "auction_id", auctionID, "error", err)
	}
}

// overdueAuctions feeds the scheduler's catch-up sweep.
func (s *AuctionService) overdueAuctions(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var overdue []string
	for id, auction := range s.auctions {
		if auction.IsActive() && auction.EndTime.Before(now) {
			overdue = append(overdue, id)
		}
	}
	return overdue
}

func (s *AuctionService) restore(ctx context.Context) error {
	snaps, err := s.store.LoadOpenAuctions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, snap := range snaps {
		if _, exists := s.auctions[snap.ID]; exists {
			continue
		}
		s.auctions[snap.ID] = domain.RestoreAuction(snap, s.notifier)
	}
	s.mu.Unlock()

	for _, snap := range snaps {
		s.scheduler.Schedule(snap.ID, snap.EndTime)
	}

	s.log.Info("Restored open auctions", "count", len(snaps))
	return nil
}

func (s *AuctionService) publish(ctx context.Context, event *domain.AuctionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish auction event", "type", event.Type,
			"auction_id", event.AuctionID, "error", err)
	}
}
