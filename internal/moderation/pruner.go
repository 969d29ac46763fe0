package moderation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/replywarden/internal/db"
)

const (
	pruneInterval  = 24 * time.Hour
	pruneErrorWait = 60 * time.Second
)

// Pruner enforces the data retention window. It runs once at startup and
// then daily, retrying after a short pause when the storage errors out.
type Pruner struct {
	store     db.Client
	retention time.Duration

	runMutex sync.Mutex
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewPruner(store db.Client, retention time.Duration) *Pruner {
	return &Pruner{store: store, retention: retention}
}

func (p *Pruner) Start(ctx context.Context) error {
	p.runMutex.Lock()
	defer p.runMutex.Unlock()
	if p.started {
		return nil
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		wait := time.Duration(0)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			if err := p.prune(ctx); err != nil {
				log.WithError(err).Error("retention pruning failed")
				wait = pruneErrorWait
				continue
			}
			wait = pruneInterval
		}
	}()
	return nil
}

func (p *Pruner) Stop(ctx context.Context) error {
	p.runMutex.Lock()
	defer p.runMutex.Unlock()
	if !p.started {
		return nil
	}
	p.cancel()
	p.wg.Wait()
	p.started = false
	return nil
}

func (p *Pruner) prune(ctx context.Context) error {
	now := time.Now()
	stats, err := p.store.PruneOlderThan(ctx, now.Add(-p.retention), now)
	if err != nil {
		return err
	}
	if stats.Violations+stats.Messages+stats.Penalties > 0 {
		log.WithFields(log.Fields{
			"violations": stats.Violations,
			"messages":   stats.Messages,
			"penalties":  stats.Penalties,
		}).Info("pruned expired records")
	}
	return nil
}
