package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory domain.AuctionStore for tests.
type memoryStore struct {
	mu       sync.Mutex
	auctions map[string]domain.AuctionSnapshot
	bids     map[string][]domain.Bid
	closed   map[string]*domain.Bid
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		auctions: make(map[string]domain.AuctionSnapshot),
		bids:     make(map[string][]domain.Bid),
		closed:   make(map[string]*domain.Bid),
	}
}

func (s *memoryStore) SaveAuction(_ context.Context, snap domain.AuctionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[snap.ID] = snap
	return nil
}

func (s *memoryStore) SaveBid(_ context.Context, auctionID string, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[auctionID] = append(s.bids[auctionID], bid)
	return nil
}

func (s *memoryStore) MarkClosed(_ context.Context, auctionID string, winning *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[auctionID] = winning
	return nil
}

func (s *memoryStore) LoadOpenAuctions(_ context.Context) ([]domain.AuctionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snaps []domain.AuctionSnapshot
	for id, snap := range s.auctions {
		if _, isClosed := s.closed[id]; isClosed {
			continue
		}
		snap.Bids = append([]domain.Bid(nil), s.bids[id]...)
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *memoryStore) isClosed(auctionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.closed[auctionID]
	return ok
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuctionEvent
}

func (p *recordingPublisher) PublishAuctionEvent(_ context.Context, event *domain.AuctionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func (p *recordingPublisher) ofType(t domain.AuctionEventType) []domain.AuctionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.AuctionEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*AuctionService, *memoryStore, *recordingPublisher) {
	t.Helper()
	store := newMemoryStore()
	pub := &recordingPublisher{}
	svc := NewAuctionService(domain.NopNotifier{}, store, pub, 0, logger.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc, store, pub
}

func TestAuctionService_CreateAuction(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "Attack On Titan", "Signed copy", 100, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, auction.ID)
	require.True(t, auction.IsActive())

	got, err := svc.GetAuction(auction.ID)
	require.NoError(t, err)
	require.Equal(t, auction, got)

	store.mu.Lock()
	_, persisted := store.auctions[auction.ID]
	store.mu.Unlock()
	require.True(t, persisted)
	require.Len(t, pub.ofType(domain.EventAuctionCreated), 1)
}

func TestAuctionService_CreateAuction_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAuction(ctx, "", "no name", 100, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrInvalidAuction)

	_, err = svc.CreateAuction(ctx, "Item", "negative base", -1, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrInvalidAuction)
}

func TestAuctionService_PlaceBid(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	user := svc.CreateUser("Art3mis")
	auction, err := svc.CreateAuction(ctx, "Attack On Titan", "Signed copy", 100, time.Now().Add(time.Hour))
	require.NoError(t, err)

	t.Run("unknown_auction", func(t *testing.T) {
		err := svc.PlaceBid(ctx, "auction-missing", user.ID, 120)
		require.ErrorIs(t, err, domain.ErrAuctionNotFound)
	})

	t.Run("unknown_bidder", func(t *testing.T) {
		err := svc.PlaceBid(ctx, auction.ID, "user-missing", 120)
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("accepted", func(t *testing.T) {
		err := svc.PlaceBid(ctx, auction.ID, user.ID, 120)
		require.NoError(t, err)
		require.Equal(t, 120.0, auction.HighestBid().Amount)

		store.mu.Lock()
		saved := len(store.bids[auction.ID])
		store.mu.Unlock()
		require.Equal(t, 1, saved)
		require.Len(t, pub.ofType(domain.EventBidAccepted), 1)
	})

	t.Run("rejected_publishes_event", func(t *testing.T) {
		err := svc.PlaceBid(ctx, auction.ID, user.ID, 110)
		require.ErrorIs(t, err, domain.ErrBidTooLow)
		require.Len(t, pub.ofType(domain.EventBidRejected), 1)
	})
}

func TestAuctionService_EndAuction(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	user := svc.CreateUser("Art3mis")
	auction, err := svc.CreateAuction(ctx, "Attack On Titan", "Signed copy", 100, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, svc.PlaceBid(ctx, auction.ID, user.ID, 120))

	require.ErrorIs(t, svc.EndAuction(ctx, "auction-missing"), domain.ErrAuctionNotFound)

	require.NoError(t, svc.EndAuction(ctx, auction.ID))
	require.Equal(t, domain.StateClosed, auction.State())
	require.Equal(t, 120.0, auction.WinningBid().Amount)
	require.True(t, store.isClosed(auction.ID))
	require.Len(t, pub.ofType(domain.EventAuctionClosed), 1)

	// Idempotent: already closed is not an error and nothing repeats.
	require.NoError(t, svc.EndAuction(ctx, auction.ID))
	require.Len(t, pub.ofType(domain.EventAuctionClosed), 1)
}

func TestAuctionService_ViewActiveAuctions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a1, err := svc.CreateAuction(ctx, "Item One", "", 100, time.Now().Add(time.Hour))
	require.NoError(t, err)
	a2, err := svc.CreateAuction(ctx, "Item Two", "", 100, time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, svc.ViewActiveAuctions(), 2)

	require.NoError(t, svc.EndAuction(ctx, a1.ID))

	active := svc.ViewActiveAuctions()
	require.Len(t, active, 1)
	require.Equal(t, a2.ID, active[0].ID)
}

func TestAuctionService_ScheduledClose(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "Quick Sale", "", 100, time.Now().Add(100*time.Millisecond))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return auction.State() == domain.StateClosed
	}, 2*time.Second, 10*time.Millisecond)
	require.Nil(t, auction.WinningBid())
}

func TestAuctionService_PastEndTimeClosesImmediately(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "Too Late", "", 100, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return auction.State() == domain.StateClosed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAuctionService_ShutdownSuppressesScheduledCloses(t *testing.T) {
	store := newMemoryStore()
	svc := NewAuctionService(domain.NopNotifier{}, store, nil, 0, logger.NewNop())
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "Survivor", "", 100, time.Now().Add(200*time.Millisecond))
	require.NoError(t, err)

	svc.Shutdown()
	time.Sleep(400 * time.Millisecond)

	// The scheduled close never fired; the committed state is untouched.
	require.True(t, auction.IsActive())

	// An explicit administrative close still works after shutdown.
	require.NoError(t, svc.EndAuction(ctx, auction.ID))
	require.Equal(t, domain.StateClosed, auction.State())
}

func TestAuctionService_RestoreFromStore(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()
	store.auctions["auction-old"] = domain.AuctionSnapshot{
		ID:        "auction-old",
		ItemName:  "Leftover",
		BasePrice: 100,
		EndTime:   now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour),
		State:     domain.StateActive,
	}
	store.bids["auction-old"] = []domain.Bid{
		{ID: "bid-1", Bidder: "art3mis", Amount: 120, SubmittedAt: now.Add(-30 * time.Minute)},
	}

	svc := NewAuctionService(domain.NopNotifier{}, store, nil, 0, logger.NewNop())
	t.Cleanup(svc.Shutdown)

	require.NoError(t, svc.Start(context.Background()))

	auction, err := svc.GetAuction("auction-old")
	require.NoError(t, err)
	require.Len(t, auction.BidHistory(), 1)

	// The restored auction was already overdue, so its rescheduled close
	// fires immediately and the persisted winner follows the bid history.
	require.Eventually(t, func() bool {
		return auction.State() == domain.StateClosed
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "art3mis", auction.WinningBid().Bidder)
	require.True(t, store.isClosed("auction-old"))
}
