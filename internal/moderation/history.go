package moderation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	historyTTL    = 30 * time.Minute
	historyDepth  = 10
	sweepInterval = 5 * time.Minute
)

// Record is one tracked message of a user, newest last.
// ReplyToMessageID is zero for messages that are not replies.
type Record struct {
	MessageID        int
	ReplyToMessageID int
	Timestamp        time.Time
}

// HistoryCache keeps a short, recent window of per-user message history
// for the classifier. Entries older than the TTL are never returned.
type HistoryCache interface {
	Record(userID int64, rec Record)
	Recent(userID int64, now time.Time) []Record
	SweepExpired(now time.Time) int
}

type memoryHistory struct {
	mutex   sync.RWMutex
	entries map[int64][]Record
}

func NewHistoryCache() HistoryCache {
	return &memoryHistory{entries: make(map[int64][]Record)}
}

func (h *memoryHistory) Record(userID int64, rec Record) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	records := append(h.entries[userID], rec)
	if len(records) > historyDepth {
		records = records[len(records)-historyDepth:]
	}
	h.entries[userID] = records
}

func (h *memoryHistory) Recent(userID int64, now time.Time) []Record {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	records := h.entries[userID]
	cutoff := now.Add(-historyTTL)
	fresh := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Timestamp.After(cutoff) {
			fresh = append(fresh, rec)
		}
	}
	return fresh
}

func (h *memoryHistory) SweepExpired(now time.Time) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cutoff := now.Add(-historyTTL)
	removed := 0
	for userID, records := range h.entries {
		fresh := records[:0]
		for _, rec := range records {
			if rec.Timestamp.After(cutoff) {
				fresh = append(fresh, rec)
			}
		}
		removed += len(records) - len(fresh)
		if len(fresh) == 0 {
			delete(h.entries, userID)
			continue
		}
		h.entries[userID] = fresh
	}
	return removed
}

// Sweeper periodically evicts expired history so idle users do not pin memory.
type Sweeper struct {
	cache HistoryCache

	runMutex sync.Mutex
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewSweeper(cache HistoryCache) *Sweeper {
	return &Sweeper{cache: cache}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.cache.SweepExpired(time.Now()); removed > 0 {
					log.WithField("removed", removed).Debug("swept expired history records")
				}
			}
		}
	}()
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if !s.started {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.started = false
	return nil
}
