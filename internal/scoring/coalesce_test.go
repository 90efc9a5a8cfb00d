package scoring

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletscore/reputation-engine/internal/models"
	"github.com/walletscore/reputation-engine/internal/scoreerr"
)

// TestCoalescer_ConcurrentCallsShareOneRun verifies spec §8's coalescing
// property: N concurrent calls for the same key produce exactly one
// underlying run and every caller observes the same result.
func TestCoalescer_ConcurrentCallsShareOneRun(t *testing.T) {
	c := newCoalescer(1, 50)

	var runs int32
	release := make(chan struct{})
	fn := func() (*models.FullScoreResponse, error) {
		atomic.AddInt32(&runs, 1)
		<-release
		return &models.FullScoreResponse{Wallet: "0xabc", ComputedAt: time.Now()}, nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*models.FullScoreResponse, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(idx int) {
			defer wg.Done()
			resp, err := c.run("0xabc", fn)
			require.NoError(t, err)
			results[idx] = resp
		}(i)
	}

	// Give every goroutine a chance to register as a waiter before the
	// single in-flight run is allowed to complete.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	first := results[0]
	for _, r := range results {
		assert.Same(t, first, r)
	}
}

func TestCoalescer_DifferentKeysRunIndependently(t *testing.T) {
	c := newCoalescer(2, 50)
	var runs int32
	fn := func() (*models.FullScoreResponse, error) {
		atomic.AddInt32(&runs, 1)
		return &models.FullScoreResponse{}, nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = c.run("0xaaa", fn) }()
	go func() { defer wg.Done(); _, _ = c.run("0xbbb", fn) }()
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestCoalescer_QueueFullRejectsBeyondCapacity(t *testing.T) {
	c := newCoalescer(1, 1)

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = c.run("0xslow", func() (*models.FullScoreResponse, error) {
			close(started)
			<-block
			return &models.FullScoreResponse{}, nil
		})
	}()
	<-started

	_, err := c.run("0xother", func() (*models.FullScoreResponse, error) {
		return &models.FullScoreResponse{}, nil
	})
	assert.ErrorIs(t, err, scoreerr.ErrQueueFull)
	close(block)
}

func TestCoalescer_KeyIsRemovedAfterCompletion(t *testing.T) {
	c := newCoalescer(1, 50)
	_, err := c.run("0xdone", func() (*models.FullScoreResponse, error) {
		return &models.FullScoreResponse{}, nil
	})
	require.NoError(t, err)

	c.mu.Lock()
	_, stillTracked := c.inFlight["0xdone"]
	c.mu.Unlock()
	assert.False(t, stillTracked)
}
