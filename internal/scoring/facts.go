package scoring

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/walletscore/reputation-engine/internal/models"
)

// fetchFacts launches the Chain Reader scan and the local-aggregate reads
// in parallel and joins both before the rest of the pipeline runs
// synchronously against the merged snapshot (spec §4.1 step 2, §9
// "coroutine control flow").
func (o *Orchestrator) fetchFacts(ctx context.Context, wallet string) (models.WalletFacts, error) {
	addr := common.HexToAddress(wallet)
	facts := models.WalletFacts{Wallet: wallet}

	var wg sync.WaitGroup
	var chainErr, storeErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		chainErr = o.fetchChainFacts(ctx, addr, &facts)
	}()
	go func() {
		defer wg.Done()
		storeErr = o.fetchLocalFacts(ctx, wallet, &facts)
	}()
	wg.Wait()

	if chainErr != nil {
		return facts, chainErr
	}

	// Local-aggregate failures degrade to zero/empty inputs rather than
	// failing the pipeline (spec §7); the caller tracks this for Confidence.
	if storeErr != nil {
		facts.AnyAggregateMissing = true
	}

	return facts, nil
}

func (o *Orchestrator) fetchChainFacts(ctx context.Context, addr common.Address, facts *models.WalletFacts) error {
	usdc := common.HexToAddress(o.cfg.Chain.USDCAddress)

	balance, err := o.reader.Balance(ctx, usdc, addr)
	if err != nil {
		return fmt.Errorf("fetch usdc balance: %w", err)
	}
	facts.USDCBalance = weiToUSDC(balance)

	ethBal, err := o.reader.EthBalance(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch eth balance: %w", err)
	}
	facts.EthBalanceWei, _ = new(big.Float).SetInt(ethBal).Float64()

	nonce, err := o.reader.Nonce(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	facts.Nonce = nonce

	hasName, err := o.reader.HasName(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch basename: %w", err)
	}
	facts.HasBasename = hasName

	inRegistry, err := o.reader.IsInAgentRegistry(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch agent registry: %w", err)
	}
	facts.InAgentRegistry = inRegistry

	stats, err := o.reader.TransferStats(ctx, usdc, addr, o.cfg.Scan.WindowDays)
	if err != nil {
		return fmt.Errorf("fetch transfer stats: %w", err)
	}
	facts.TotalIn, facts.TotalOut = stats.TotalIn, stats.TotalOut
	facts.In24h, facts.Out24h = stats.In24h, stats.Out24h
	facts.In7d, facts.Out7d = stats.In7d, stats.Out7d
	facts.In30d, facts.Out30d = stats.In30d, stats.Out30d
	facts.TxCount24h, facts.TxCount7d = stats.TxCount24h, stats.TxCount7d
	facts.TxCount1h, facts.TxCount24hTo1h = stats.TxCount1h, stats.TxCount24hTo1h
	facts.FirstBlock, facts.LastBlock = stats.FirstBlock, stats.LastBlock
	facts.TransferTimestamps = stats.TransferTimestamps

	tip, err := o.reader.TipBlock(ctx)
	if err != nil {
		return fmt.Errorf("fetch tip block: %w", err)
	}
	facts.WalletAgeDays = o.reader.WalletAgeDays(facts.FirstBlock, int64(tip))

	if len(stats.TransferTimestamps) > 0 {
		last := stats.TransferTimestamps[len(stats.TransferTimestamps)-1]
		ago := time.Since(last)
		facts.LastActivityAgo = &ago
	}

	return nil
}

func (o *Orchestrator) fetchLocalFacts(ctx context.Context, wallet string, facts *models.WalletFacts) error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	idx, err := o.walletRepo.GetIndex(ctx, wallet)
	note(err)
	if idx != nil {
		facts.TotalTxCount = idx.TotalTxCount
		facts.UniquePartners = idx.UniquePartners
		facts.FirstSeen = idx.FirstSeen
	}

	partners, err := o.walletRepo.GetPartners(ctx, wallet)
	note(err)
	facts.Partners = partners
	facts.TopPartner = topPartner(partners)
	if facts.TopPartner != nil {
		for i := range facts.Partners {
			if facts.Partners[i].Wallet == facts.TopPartner.Wallet {
				continue
			}
			related, relErr := o.walletRepo.HasRelationship(ctx, facts.TopPartner.Wallet, facts.Partners[i].Wallet)
			note(relErr)
			if facts.TopPartner.HasOwnRelationshipWith == nil {
				facts.TopPartner.HasOwnRelationshipWith = map[string]bool{}
			}
			facts.TopPartner.HasOwnRelationshipWith[facts.Partners[i].Wallet] = related
		}
	}

	count, err := o.transferRepo.CountRecentQueries(ctx, wallet, time.Now().Add(-time.Hour))
	note(err)
	facts.RecentQueryCount = count

	total, err := o.transferRepo.CountRecentQueries(ctx, wallet, time.Time{})
	note(err)
	facts.TotalQueryCount = total

	ago, err := o.transferRepo.LastQueryAgo(ctx, wallet, time.Now())
	note(err)
	facts.LastScoreQueryAgo = ago

	snap24h, err := o.walletRepo.SnapshotAt(ctx, wallet, time.Now().Add(-24*time.Hour))
	note(err)
	if snap24h != nil {
		facts.AvgBalance24h = snap24h.USDCBalance
	}

	sender, err := o.transferRepo.EarliestInboundSender(ctx, wallet)
	note(err)
	facts.EarliestInboundSender = sender

	return firstErr
}

func topPartner(partners []models.PartnerVolume) *models.PartnerVolume {
	if len(partners) == 0 {
		return nil
	}
	best := partners[0]
	for _, p := range partners[1:] {
		if p.TotalVolume() > best.TotalVolume() {
			best = p
		}
	}
	cp := best
	return &cp
}

func weiToUSDC(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, big.NewFloat(1e6))
	v, _ := f.Float64()
	return v
}
