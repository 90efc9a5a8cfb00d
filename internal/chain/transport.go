package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/walletscore/reputation-engine/configs"
)

// transport pairs a dialed client with its own circuit breaker and a
// rolling latency estimate, grounded on sawpanic-cryptorun's
// infra/breakers.Breaker.
type transport struct {
	name    string
	client  *ethclient.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	mu          sync.Mutex
	avgLatency  time.Duration
	lastChecked time.Time
}

func newTransport(name, url string) (*transport, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s transport: %w", name, err)
	}

	settings := gobreaker.Settings{
		Name:        name,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: tripOnFailureRate,
	}

	return &transport{
		name:    name,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		// caps the call rate on each transport (one call per 50ms, bursts
		// of 10); the backoff between retries is Reader.withRetry's delay.
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 10),
	}, nil
}

func tripOnFailureRate(counts gobreaker.Counts) bool {
	failureRatio := float64(0)
	if counts.Requests > 0 {
		failureRatio = float64(counts.TotalFailures) / float64(counts.Requests)
	}
	return counts.ConsecutiveFailures >= 3 || (counts.Requests >= 20 && failureRatio > 0.05)
}

func (t *transport) healthy() bool {
	return t.breaker.State() == gobreaker.StateClosed
}

// execute runs fn through the breaker, recording latency for ranking.
func (t *transport) execute(ctx context.Context, fn func(ctx context.Context, client *ethclient.Client) (interface{}, error)) (interface{}, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := t.breaker.Execute(func() (interface{}, error) {
		return fn(ctx, t.client)
	})
	elapsed := time.Since(start)

	t.mu.Lock()
	if t.avgLatency == 0 {
		t.avgLatency = elapsed
	} else {
		t.avgLatency = (t.avgLatency + elapsed) / 2
	}
	t.lastChecked = time.Now()
	t.mu.Unlock()

	return result, err
}

// Manager owns the primary/fallback transport pair and periodically ranks
// them by health + latency (spec §4.2: "a periodic ranking (every 15 s)
// selects the healthier transport").
type Manager struct {
	primary  *transport
	fallback *transport

	mu     sync.RWMutex
	active *transport

	stopCh chan struct{}
}

func NewManager(cfg configs.ChainConfig) (*Manager, error) {
	primary, err := newTransport("primary", cfg.PrimaryRPCURL)
	if err != nil {
		return nil, err
	}

	var fallback *transport
	if cfg.FallbackRPCURL != "" {
		fallback, err = newTransport("fallback", cfg.FallbackRPCURL)
		if err != nil {
			log.Warn().Err(err).Msg("chain: fallback transport unavailable, continuing with primary only")
		}
	}

	m := &Manager{primary: primary, fallback: fallback, active: primary, stopCh: make(chan struct{})}
	go m.rankLoop(cfg.RankInterval)
	return m, nil
}

func (m *Manager) rankLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.rank()
		}
	}
}

func (m *Manager) rank() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fallback == nil {
		m.active = m.primary
		return
	}

	primaryOK := m.primary.healthy()
	fallbackOK := m.fallback.healthy()

	switch {
	case primaryOK && !fallbackOK:
		m.active = m.primary
	case !primaryOK && fallbackOK:
		m.active = m.fallback
	case primaryOK && fallbackOK:
		m.primary.mu.Lock()
		fL := m.primary.avgLatency
		m.primary.mu.Unlock()
		m.fallback.mu.Lock()
		bL := m.fallback.avgLatency
		m.fallback.mu.Unlock()
		if bL > 0 && bL < fL {
			m.active = m.fallback
		} else {
			m.active = m.primary
		}
	default:
		// both unhealthy: stick with primary, the caller's retry loop
		// will surface chain_unreachable.
		m.active = m.primary
	}
}

func (m *Manager) Active() *transport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Demote forces a fallback switch after a hard failure on the active
// transport, without waiting for the next ranking tick.
func (m *Manager) Demote(failed *transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fallback == nil || failed == m.fallback {
		return
	}
	m.active = m.fallback
}

func (m *Manager) Close() {
	close(m.stopCh)
}
