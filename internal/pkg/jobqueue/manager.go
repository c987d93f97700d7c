package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// DefaultCounterFlushInterval is how often buffered counters are written
// back to the database.
const DefaultCounterFlushInterval = 5 * time.Second

// FlushFunc applies buffered counters to durable storage.
type FlushFunc func(ctx context.Context) error

// Manager owns the job queue and the periodic background tasks
type Manager struct {
	queue              *Queue
	flush              FlushFunc
	flushInterval      time.Duration
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

// NewManager wires a queue with the counter flusher. flush may be nil when
// no counters are buffered.
func NewManager(queue *Queue, flush FlushFunc) *Manager {
	return &Manager{
		queue:         queue,
		flush:         flush,
		flushInterval: DefaultCounterFlushInterval,
		stopCh:        make(chan struct{}),
	}
}

// SetFlushInterval changes the counter flush period. Takes effect on the next Start.
func (m *Manager) SetFlushInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.flushInterval = d
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	if m.flush != nil {
		m.counterFlushTicker = time.NewTicker(m.flushInterval)
		m.wg.Add(1)
		go m.counterFlushWorker(m.stopCh, m.counterFlushTicker)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks. Buffered counters are
// flushed one last time.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	if m.flush != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.flush(ctx); err != nil {
			log.Errorf("[JobQueue Manager] Final counter flush error: %v", err)
		}
		cancel()
	}

	log.Info("[JobQueue Manager] Stopped successfully")
}

// counterFlushWorker periodically flushes counters from Redis to DB
func (m *Manager) counterFlushWorker(stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-ticker.C:
			if err := m.FlushCountersOnce(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// FlushCountersOnce runs a single flush outside the ticker.
func (m *Manager) FlushCountersOnce(ctx context.Context) error {
	if m.flush == nil {
		return nil
	}
	return m.flush(ctx)
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
