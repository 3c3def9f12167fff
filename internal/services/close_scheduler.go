package services

import (
	"fmt"
	"sync"
	"time"

	"auction-engine/pkg/logger"

	"github.com/robfig/cron/v3"
)

const defaultSweepInterval = time.Minute

// CloseScheduler fires a one-shot close for each auction at its end time.
// Every auction gets its own cancellable timer; a periodic cron sweep backs
// the timers up by closing anything that is overdue but still active, which
// covers auctions restored from the store after a restart.
type CloseScheduler struct {
	closeFn   func(auctionID string)
	overdueFn func(now time.Time) []string
	cron      *cron.Cron
	log       logger.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	wg       sync.WaitGroup
	shutdown bool
}

func NewCloseScheduler(closeFn func(auctionID string), overdueFn func(now time.Time) []string,
	sweepInterval time.Duration, log logger.Logger) *CloseScheduler {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	s := &CloseScheduler{
		closeFn:   closeFn,
		overdueFn: overdueFn,
		cron:      cron.New(cron.WithSeconds()),
		log:       log,
		timers:    make(map[string]*time.Timer),
	}

	// AddFunc only fails on a malformed schedule expression.
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", sweepInterval), s.sweep); err != nil {
		panic(err)
	}
	return s
}

// Start begins the background sweep. Timers fire regardless of Start; the
// sweep only adds the catch-up path.
func (s *CloseScheduler) Start() {
	s.log.Info("Starting close scheduler")
	s.cron.Start()
}

// Schedule arms the close timer for auctionID. An end time already in the
// past fires immediately. Rescheduling an auction replaces its prior timer.
// Calls after Shutdown are ignored.
func (s *CloseScheduler) Schedule(auctionID string, endTime time.Time) {
	delay := time.Until(endTime)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		s.log.Warn("Ignoring schedule after shutdown", "auction_id", auctionID)
		return
	}

	if prev, ok := s.timers[auctionID]; ok && prev.Stop() {
		s.wg.Done()
	}

	s.wg.Add(1)
	s.timers[auctionID] = time.AfterFunc(delay, func() {
		s.fire(auctionID)
	})

	s.log.Info("Scheduled auction close", "auction_id", auctionID, "end_time", endTime)
}

// Cancel disarms the pending close for auctionID, if any. A timer that is
// already firing is left to finish.
func (s *CloseScheduler) Cancel(auctionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[auctionID]; ok {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, auctionID)
	}
}

// Shutdown disarms all pending timers, suppresses any that are past the
// point of cancellation, and blocks until in-flight closes finish. It never
// interrupts a close that already started.
func (s *CloseScheduler) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	for id, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.log.Info("Stopping close scheduler")
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *CloseScheduler) fire(auctionID string) {
	defer s.wg.Done()

	s.mu.Lock()
	delete(s.timers, auctionID)
	down := s.shutdown
	s.mu.Unlock()

	if down {
		s.log.Debug("Suppressing scheduled close during shutdown", "auction_id", auctionID)
		return
	}

	s.closeFn(auctionID)
}

func (s *CloseScheduler) sweep() {
	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if down || s.overdueFn == nil {
		return
	}

	for _, id := range s.overdueFn(time.Now()) {
		s.log.Warn("Closing overdue auction from sweep", "auction_id", id)
		s.closeFn(id)
	}
}
