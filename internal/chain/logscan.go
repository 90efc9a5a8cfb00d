package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/walletscore/reputation-engine/internal/scoreerr"
)

var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

const minChunkBlocks = 50

// TransferStats is the Chain Reader's streaming-aggregated window scan
// (spec §4.2). Apart from TransferTimestamps, which keeps one timestamp per
// matching transfer for the Behavior dimension, only running sums/min/max
// are retained; decoded log entries never survive past their chunk.
type TransferStats struct {
	TotalIn, TotalOut     float64
	In24h, Out24h         float64
	In7d, Out7d           float64
	In30d, Out30d         float64
	TxCount24h, TxCount7d int64
	TxCount1h             int64
	TxCount24hTo1h        int64
	FirstBlock, LastBlock int64
	Count                 int64
	TransferTimestamps    []time.Time
}

// chunkState holds the scan chunk size for a single TransferStats call.
// planChunks reads it once to lay out the initial ranges; shrink and grow
// adjust it as chunks fail or succeed, but ranges already planned or split
// keep their own bounds, and the state is not kept across calls.
type chunkState struct {
	mu   sync.Mutex
	size int64
}

func newChunkState(defaultSize int64) *chunkState {
	if defaultSize < minChunkBlocks {
		defaultSize = minChunkBlocks
	}
	return &chunkState{size: defaultSize}
}

func (c *chunkState) get() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *chunkState) shrink() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = c.size / 2
	if c.size < minChunkBlocks {
		c.size = minChunkBlocks
	}
}

func (c *chunkState) grow(defaultSize int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.size < defaultSize {
		c.size *= 2
		if c.size > defaultSize {
			c.size = defaultSize
		}
	}
}

// TransferStats scans USDC transfer logs over [tip - windowDays*BLOCKS_PER_DAY, tip]
// through a reactive work queue: the window is first split into ranges of
// the configured chunk size, and a provider "range too wide" error splits
// the failing range in half, shrinks the shared chunk size, and requeues
// both halves (spec §4.2).
func (r *Reader) TransferStats(ctx context.Context, token, wallet common.Address, windowDays int) (*TransferStats, error) {
	tip, err := r.TipBlock(ctx)
	if err != nil {
		return nil, err
	}

	blocksPerDay := r.cfg.BlocksPerDay
	windowBlocks := int64(windowDays) * blocksPerDay
	startBlock := int64(tip) - windowBlocks
	if startBlock < 0 {
		startBlock = 0
	}
	endBlock := int64(tip)

	now := time.Now().UTC()
	boundary1h := now.Add(-1 * time.Hour)
	boundary24h := now.Add(-24 * time.Hour)
	boundary7d := now.Add(-7 * 24 * time.Hour)
	boundary30d := now.Add(-30 * 24 * time.Hour)

	state := newChunkState(r.cfg.LogChunkSize)
	initial := planChunks(startBlock, endBlock, state)

	result := &TransferStats{FirstBlock: endBlock, LastBlock: startBlock}
	var mu sync.Mutex
	var firstErr error

	sem := make(chan struct{}, maxInt(1, r.cfg.LogParallelBatch))
	var wg sync.WaitGroup

	var processRange func(from, to int64)
	processRange = func(from, to int64) {
		defer wg.Done()
		defer func() { <-sem }()

		logs, err := r.scanChunk(ctx, token, wallet, from, to)
		if err != nil {
			if isRangeTooWideError(err) && to > from {
				state.shrink()
				mid := from + (to-from)/2
				wg.Add(2)
				sem <- struct{}{}
				go processRange(from, mid)
				sem <- struct{}{}
				go processRange(mid+1, to)
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return
		}
		state.grow(r.cfg.LogChunkSize)

		mu.Lock()
		defer mu.Unlock()
		for _, lg := range logs {
			block := int64(lg.blockNumber)
			if block < result.FirstBlock {
				result.FirstBlock = block
			}
			if block > result.LastBlock {
				result.LastBlock = block
			}
			result.Count++

			amount := weiToFloat(lg.amount)
			isOut := lg.from == wallet
			if isOut {
				result.TotalOut += amount
			} else {
				result.TotalIn += amount
			}

			ts := lg.timestamp
			if ts.After(boundary24h) {
				result.TxCount24h++
				if isOut {
					result.Out24h += amount
				} else {
					result.In24h += amount
				}
			}
			if ts.After(boundary7d) {
				result.TxCount7d++
				if isOut {
					result.Out7d += amount
				} else {
					result.In7d += amount
				}
			}
			if ts.After(boundary30d) {
				if isOut {
					result.Out30d += amount
				} else {
					result.In30d += amount
				}
			}
			if ts.After(boundary1h) {
				result.TxCount1h++
			}
			if ts.After(boundary24h) && !ts.After(boundary1h) {
				result.TxCount24hTo1h++
			}

			result.TransferTimestamps = append(result.TransferTimestamps, ts)
		}
	}

	for _, c := range initial {
		wg.Add(1)
		sem <- struct{}{}
		go processRange(c.from, c.to)
	}

	wg.Wait()

	// Partial results are never accepted (spec §4.2, §9 open question (a)).
	if firstErr != nil {
		return nil, fmt.Errorf("transfer stats scan: %s: %w", firstErr, scoreerr.ErrChainUnreachable)
	}
	if result.Count == 0 {
		result.FirstBlock = 0
		result.LastBlock = int64(tip)
	}

	return result, nil
}

type blockRange struct{ from, to int64 }

// planChunks lays out the initial sequential range split at the chunk
// state's current size. Ranges that turn out too wide for the provider are
// split further and requeued reactively inside TransferStats.
func planChunks(start, end int64, state *chunkState) []blockRange {
	var ranges []blockRange
	cursor := start
	for cursor <= end {
		size := state.get()
		to := cursor + size - 1
		if to > end {
			to = end
		}
		ranges = append(ranges, blockRange{from: cursor, to: to})
		cursor = to + 1
	}
	return ranges
}

// isRangeTooWideError recognizes the handful of phrasings RPC providers use
// to reject an eth_getLogs call for spanning too many blocks (spec §4.2).
func isRangeTooWideError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "range"):
		return true
	case strings.Contains(msg, "limit exceeded"):
		return true
	case strings.Contains(msg, "query returned more than"):
		return true
	case strings.Contains(msg, "block range"):
		return true
	}
	return false
}

type transferLog struct {
	from, to    common.Address
	amount      *big.Int
	blockNumber uint64
	timestamp   time.Time
}

// scanChunk fetches and decodes one bounded eth_getLogs range.
func (r *Reader) scanChunk(ctx context.Context, token, wallet common.Address, from, to int64) ([]transferLog, error) {
	result, err := r.withRetry(ctx, "log_scan", func(ctx context.Context, client *ethclient.Client) (interface{}, error) {
		query := ethereum.FilterQuery{
			FromBlock: big.NewInt(from),
			ToBlock:   big.NewInt(to),
			Addresses: []common.Address{token},
			Topics:    [][]common.Hash{{transferEventSig}},
		}
		logs, err := client.FilterLogs(ctx, query)
		if err != nil {
			return nil, err
		}

		out := make([]transferLog, 0, len(logs))
		blockTimes := map[uint64]time.Time{}
		for _, lg := range logs {
			decoded, err := decodeTransferLog(lg)
			if err != nil {
				continue
			}
			if decoded.from != wallet && decoded.to != wallet {
				continue
			}
			ts, ok := blockTimes[lg.BlockNumber]
			if !ok {
				header, err := client.HeaderByNumber(ctx, big.NewInt(int64(lg.BlockNumber)))
				if err != nil {
					return nil, err
				}
				ts = time.Unix(int64(header.Time), 0).UTC()
				blockTimes[lg.BlockNumber] = ts
			}
			decoded.blockNumber = lg.BlockNumber
			decoded.timestamp = ts
			out = append(out, decoded)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]transferLog), nil
}

func decodeTransferLog(lg types.Log) (transferLog, error) {
	if len(lg.Topics) < 3 {
		return transferLog{}, fmt.Errorf("chain: malformed transfer log")
	}
	return transferLog{
		from:   common.HexToAddress(lg.Topics[1].Hex()),
		to:     common.HexToAddress(lg.Topics[2].Hex()),
		amount: new(big.Int).SetBytes(lg.Data),
	}, nil
}

func weiToFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, big.NewFloat(1e6)) // USDC has 6 decimals
	result, _ := f.Float64()
	return result
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
