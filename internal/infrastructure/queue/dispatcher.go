package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
	"github.com/fabricwh/rbac-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher routes audit entries to a fixed set of workers using consistent
// hashing on the entry target, so entries about one role or user are written
// in the order they were recorded.
type Dispatcher struct {
	workers []chan domain.AuditEntry
	writer  ports.AuditWriter
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, writer ports.AuditWriter, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuditEntry, numWorkers),
		writer:  writer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEntry, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. They run until Stop drains them.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Record hands the entry to its worker without blocking. When the worker's
// buffer is full, or the dispatcher is stopped, the entry is dropped and counted.
func (d *Dispatcher) Record(entry domain.AuditEntry) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(entry, "dispatcher stopped")
		return
	}

	select {
	case d.workers[d.shardIndex(entry.Target)] <- entry:
	default:
		d.drop(entry, "queue full")
	}
}

// Stop closes the queues and waits for buffered entries to be written, or
// for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a target deterministically to a worker index.
func (d *Dispatcher) shardIndex(target string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(target))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) drop(entry domain.AuditEntry, why string) {
	metrics.AuditEntriesTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Str("action", string(entry.Action)).
		Str("target", entry.Target).
		Msg("audit entry dropped: " + why)
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.AuditEntry) {
	defer d.wg.Done()
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))

	for entry := range ch {
		depth.Set(float64(len(ch)))

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := d.writer.Write(ctx, entry)
		cancel()

		if err != nil {
			metrics.AuditEntriesTotal.WithLabelValues("failed").Inc()
			d.log.Error().Err(err).
				Str("action", string(entry.Action)).
				Str("target", entry.Target).
				Int("worker_id", id).
				Msg("audit write failed")
			continue
		}
		metrics.AuditEntriesTotal.WithLabelValues("written").Inc()
	}
	depth.Set(0)
}
