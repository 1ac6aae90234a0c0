package jobs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
)

// ConversationSweepJob periodically drops conversations that went stale
type ConversationSweepJob struct {
	store    storage.ConversationStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewConversationSweepJob creates a new sweep job scheduler
func NewConversationSweepJob(store storage.ConversationStore, interval time.Duration, logger *slog.Logger) *ConversationSweepJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ConversationSweepJob{
		store:    store,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins sweeping in the background
func (j *ConversationSweepJob) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		j.logger.Info("conversation sweep already running")
		return
	}
	j.running = true
	j.stop = make(chan struct{})
	j.done = make(chan struct{})

	j.logger.Info("starting conversation sweep", "interval", j.interval)
	go j.loop(j.stop, j.done)
}

// Stop halts the sweep and waits for an in-flight pass to finish
func (j *ConversationSweepJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stop)
	done := j.done
	j.mu.Unlock()

	<-done
	j.logger.Info("conversation sweep stopped")
}

// RunOnce purges stale conversations and returns how many were removed
func (j *ConversationSweepJob) RunOnce() int {
	purged := j.store.PurgeStale(j.now())
	if purged > 0 {
		j.logger.Info("purged stale conversations", "count", purged, "active", j.store.Count())
	}
	return purged
}

func (j *ConversationSweepJob) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-stop:
			return
		}
	}
}
