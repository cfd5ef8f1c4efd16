package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// Refresher runs one load cycle and publishes its view.
type Refresher interface {
	Refresh(ctx context.Context, sel ports.NetworkSelector) (*domain.CampaignView, error)
}

// DepthFunc observes the backlog of a worker after each enqueue or dequeue.
type DepthFunc func(workerID, depth int)

// Dispatcher routes refresh requests to a fixed set of workers using
// consistent hashing on the selector key, so refreshes of one selector run
// one after another while different selectors proceed in parallel.
type Dispatcher struct {
	workers   []chan ports.NetworkSelector
	refresher Refresher
	timeout   time.Duration
	depth     DepthFunc
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. timeout bounds each refresh;
// zero means no bound beyond the worker context.
func NewDispatcher(numWorkers int, refresher Refresher, timeout time.Duration, depth DepthFunc, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if depth == nil {
		depth = func(int, int) {}
	}
	d := &Dispatcher{
		workers:   make([]chan ports.NetworkSelector, numWorkers),
		refresher: refresher,
		timeout:   timeout,
		depth:     depth,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.NetworkSelector, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands sel to its worker without blocking. It returns false when
// that worker's backlog is full.
func (d *Dispatcher) Enqueue(sel ports.NetworkSelector) bool {
	id := d.shardIndex(sel.Key())
	select {
	case d.workers[id] <- sel:
		d.depth(id, len(d.workers[id]))
		return true
	default:
		return false
	}
}

// shardIndex maps a selector key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.NetworkSelector) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sel, ok := <-ch:
			if !ok {
				return
			}
			d.depth(id, len(ch))
			d.process(ctx, id, sel)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, sel ports.NetworkSelector) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	_, err := d.refresher.Refresh(ctx, sel)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCycleSuperseded), errors.Is(err, domain.ErrRefreshInProgress):
		d.log.Info().Err(err).
			Str("network", sel.Network).
			Int("worker_id", id).
			Msg("queued refresh skipped")
	default:
		d.log.Error().Err(err).
			Str("network", sel.Network).
			Int("worker_id", id).
			Msg("queued refresh failed")
	}
}
