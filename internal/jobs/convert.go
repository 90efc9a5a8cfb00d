package jobs

import "math/big"

// weiToUSDC6 converts a USDC raw amount (6 decimals) to a float.
func weiToUSDC6(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, big.NewFloat(1e6))
	v, _ := f.Float64()
	return v
}

// weiToEth converts a wei amount (18 decimals) to ETH.
func weiToEth(amount *big.Int) (float64, error) {
	if amount == nil {
		return 0, nil
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, big.NewFloat(1e18))
	v, _ := f.Float64()
	return v, nil
}
