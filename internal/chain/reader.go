package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/scoreerr"
)

// Reader is the Chain Reader (spec §4.2): balance/nonce/transfer-stats
// reads over a primary/fallback transport pair, grounded on
// ChoSanghyuk-blackholedex's pkg/contractclient ABI-decoded eth_call usage.
type Reader struct {
	manager *Manager
	cfg     configs.ChainConfig
}

func NewReader(cfg configs.ChainConfig) (*Reader, error) {
	manager, err := NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Reader{manager: manager, cfg: cfg}, nil
}

func (r *Reader) Close() {
	r.manager.Close()
}

// withRetry runs fn against the active transport, making at most
// RetryAttempts calls in total with a doubling delay after each failure.
// Every failed call demotes the active transport to the fallback. Errors
// are not classified as transient or permanent, and the attempts are shared
// by both transports rather than counted per transport. Propagates
// scoreerr.ErrChainUnreachable once the attempts are used up or
// RequestTimeout, which bounds the whole operation, expires.
func (r *Reader) withRetry(ctx context.Context, op string, fn func(ctx context.Context, client *ethclient.Client) (interface{}, error)) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	attempts := r.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := r.cfg.RetryDelay

	var lastErr error
	active := r.manager.Active()

	for i := 0; i < attempts; i++ {
		result, err := active.execute(reqCtx, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		log.Warn().Err(err).Str("op", op).Str("transport", active.name).Int("attempt", i+1).Msg("chain: transport call failed")
		r.manager.Demote(active)
		active = r.manager.Active()

		select {
		case <-reqCtx.Done():
			return nil, fmt.Errorf("%s: %w", op, scoreerr.ErrChainUnreachable)
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%s: %s: %w", op, lastErr, scoreerr.ErrChainUnreachable)
}

// Balance reads an ERC20 balanceOf (spec §4.2).
func (r *Reader) Balance(ctx context.Context, token, wallet common.Address) (*big.Int, error) {
	result, err := r.withRetry(ctx, "balance", func(ctx context.Context, client *ethclient.Client) (interface{}, error) {
		data, err := erc20ABI.Pack("balanceOf", wallet)
		if err != nil {
			return nil, err
		}
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		unpacked, err := erc20ABI.Unpack("balanceOf", out)
		if err != nil || len(unpacked) == 0 {
			return nil, fmt.Errorf("chain: failed to unpack balanceOf: %w", err)
		}
		return unpacked[0].(*big.Int), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

// Nonce returns the wallet's transaction count (spec §4.2).
func (r *Reader) Nonce(ctx context.Context, wallet common.Address) (uint64, error) {
	result, err := r.withRetry(ctx, "nonce", func(ctx context.Context, client *ethclient.Client) (interface{}, error) {
		return client.NonceAt(ctx, wallet, nil)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

// EthBalance returns the wallet's ETH balance in wei (spec §4.2).
func (r *Reader) EthBalance(ctx context.Context, wallet common.Address) (*big.Int, error) {
	result, err := r.withRetry(ctx, "eth_balance", func(ctx context.Context, client *ethclient.Client) (interface{}, error) {
		return client.BalanceAt(ctx, wallet, nil)
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

// TipBlock returns the current chain head (spec §4.2 window anchoring).
func (r *Reader) TipBlock(ctx context.Context) (uint64, error) {
	result, err := r.withRetry(ctx, "block_number", func(ctx context.Context, client *ethclient.Client) (interface{}, error) {
		return client.BlockNumber(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

// WalletAgeDays computes (tip-first)/BLOCKS_PER_DAY, floored at 0 (spec §4.2).
func (r *Reader) WalletAgeDays(firstBlock, tipBlock int64) float64 {
	if r.cfg.BlocksPerDay <= 0 || tipBlock <= firstBlock {
		return 0
	}
	return float64(tipBlock-firstBlock) / float64(r.cfg.BlocksPerDay)
}

// HasName reports whether the wallet has a reverse-resolved ENS-style name
// (Basename) via registry -> resolver -> name (spec §4.2).
func (r *Reader) HasName(ctx context.Context, wallet common.Address) (bool, error) {
	registry := common.HexToAddress(r.cfg.BasenameRegistry)
	if registry == (common.Address{}) {
		return false, nil
	}

	node := reverseNode(wallet)

	result, err := r.withRetry(ctx, "has_name", func(ctx context.Context, client *ethclient.Client) (interface{}, error) {
		data, err := ensRegistryABI.Pack("resolver", node)
		if err != nil {
			return nil, err
		}
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &registry, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		unpacked, err := ensRegistryABI.Unpack("resolver", out)
		if err != nil || len(unpacked) == 0 {
			return nil, fmt.Errorf("chain: failed to unpack resolver: %w", err)
		}
		resolverAddr := unpacked[0].(common.Address)
		if resolverAddr == (common.Address{}) {
			return "", nil
		}

		nameData, err := ensResolverABI.Pack("name", node)
		if err != nil {
			return nil, err
		}
		nameOut, err := client.CallContract(ctx, ethereum.CallMsg{To: &resolverAddr, Data: nameData}, nil)
		if err != nil {
			return nil, err
		}
		nameUnpacked, err := ensResolverABI.Unpack("name", nameOut)
		if err != nil || len(nameUnpacked) == 0 {
			return "", nil
		}
		return nameUnpacked[0].(string), nil
	})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(result.(string)) != "", nil
}

// IsInAgentRegistry reports registry membership; false when the registry
// contract is the zero address (current default, spec §4.2).
func (r *Reader) IsInAgentRegistry(ctx context.Context, wallet common.Address) (bool, error) {
	registry := common.HexToAddress(r.cfg.AgentRegistry)
	if registry == (common.Address{}) {
		return false, nil
	}

	result, err := r.withRetry(ctx, "agent_registry", func(ctx context.Context, client *ethclient.Client) (interface{}, error) {
		data, err := agentRegistryABI.Pack("isRegistered", wallet)
		if err != nil {
			return nil, err
		}
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &registry, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		unpacked, err := agentRegistryABI.Unpack("isRegistered", out)
		if err != nil || len(unpacked) == 0 {
			return nil, fmt.Errorf("chain: failed to unpack isRegistered: %w", err)
		}
		return unpacked[0].(bool), nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
