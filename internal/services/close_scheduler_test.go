package services

import (
	"sync"
	"testing"
	"time"

	"auction-engine/pkg/logger"

	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	mu     sync.Mutex
	closed []string
}

func (r *closeRecorder) close(auctionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, auctionID)
}

func (r *closeRecorder) count(auctionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.closed {
		if id == auctionID {
			n++
		}
	}
	return n
}

func TestCloseScheduler_FiresAtEndTime(t *testing.T) {
	rec := &closeRecorder{}
	s := NewCloseScheduler(rec.close, nil, 0, logger.NewNop())
	defer s.Shutdown()

	s.Schedule("auction-1", time.Now().Add(50*time.Millisecond))

	require.Eventually(t, func() bool {
		return rec.count("auction-1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseScheduler_PastDeadlineFiresImmediately(t *testing.T) {
	rec := &closeRecorder{}
	s := NewCloseScheduler(rec.close, nil, 0, logger.NewNop())
	defer s.Shutdown()

	s.Schedule("auction-1", time.Now().Add(-time.Minute))

	require.Eventually(t, func() bool {
		return rec.count("auction-1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseScheduler_RescheduleReplacesTimer(t *testing.T) {
	rec := &closeRecorder{}
	s := NewCloseScheduler(rec.close, nil, 0, logger.NewNop())
	defer s.Shutdown()

	s.Schedule("auction-1", time.Now().Add(time.Hour))
	s.Schedule("auction-1", time.Now().Add(50*time.Millisecond))

	require.Eventually(t, func() bool {
		return rec.count("auction-1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The replaced timer never fires on its own.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, rec.count("auction-1"))
}

func TestCloseScheduler_Cancel(t *testing.T) {
	rec := &closeRecorder{}
	s := NewCloseScheduler(rec.close, nil, 0, logger.NewNop())
	defer s.Shutdown()

	s.Schedule("auction-1", time.Now().Add(100*time.Millisecond))
	s.Cancel("auction-1")

	time.Sleep(250 * time.Millisecond)
	require.Equal(t, 0, rec.count("auction-1"))
}

func TestCloseScheduler_ShutdownSuppressesPendingTimers(t *testing.T) {
	rec := &closeRecorder{}
	s := NewCloseScheduler(rec.close, nil, 0, logger.NewNop())

	s.Schedule("auction-1", time.Now().Add(150*time.Millisecond))
	s.Shutdown()

	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 0, rec.count("auction-1"))

	// Scheduling after shutdown is ignored.
	s.Schedule("auction-2", time.Now())
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, rec.count("auction-2"))
}

func TestCloseScheduler_SweepClosesOverdueAuctions(t *testing.T) {
	rec := &closeRecorder{}
	overdue := func(now time.Time) []string {
		return []string{"auction-overdue"}
	}
	s := NewCloseScheduler(rec.close, overdue, time.Second, logger.NewNop())
	defer s.Shutdown()

	s.Start()

	require.Eventually(t, func() bool {
		return rec.count("auction-overdue") >= 1
	}, 5*time.Second, 50*time.Millisecond)
}
