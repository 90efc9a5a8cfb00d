package scoring

import (
	"sync"

	"github.com/walletscore/reputation-engine/internal/models"
	"github.com/walletscore/reputation-engine/internal/scoreerr"
)

// future is one in-flight pipeline run. Every caller that coalesces onto it
// blocks on done and reads the same result.
type future struct {
	done   chan struct{}
	result *models.FullScoreResponse
	err    error
}

// coalescer is the per-wallet in-flight future map plus the global scan
// cap, grounded on the teacher's ABTestManager mutex-guarded map pattern
// (internal/scoring/ab_testing.go) generalized to keyed futures (spec §5,
// §9 "global mutable caches ... encapsulate behind narrow interfaces").
type coalescer struct {
	mu      sync.Mutex
	inFlight map[string]*future

	sem   chan struct{}
	queue chan struct{}
}

func newCoalescer(maxConcurrentScans, maxQueue int) *coalescer {
	if maxConcurrentScans < 1 {
		maxConcurrentScans = 1
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &coalescer{
		inFlight: make(map[string]*future),
		sem:      make(chan struct{}, maxConcurrentScans),
		queue:    make(chan struct{}, maxQueue),
	}
}

// run executes fn for key, coalescing concurrent callers onto the same
// future and enforcing the global scan semaphore with a non-blocking
// bounded wait queue (spec §4.1, §5).
func (c *coalescer) run(key string, fn func() (*models.FullScoreResponse, error)) (*models.FullScoreResponse, error) {
	c.mu.Lock()
	if f, ok := c.inFlight[key]; ok {
		c.mu.Unlock()
		<-f.done
		return f.result, f.err
	}

	f := &future{done: make(chan struct{})}
	c.inFlight[key] = f
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, key)
		c.mu.Unlock()
		close(f.done)
	}()

	select {
	case c.queue <- struct{}{}:
	default:
		f.err = scoreerr.ErrQueueFull
		return nil, f.err
	}
	defer func() { <-c.queue }()

	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	f.result, f.err = fn()
	return f.result, f.err
}
