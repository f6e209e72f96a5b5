// Package settle implements the parimutuel settlement engine: market
// lifecycle, custody of staked funds, and integer-safe payout computation.
package settle

import "math/bits"

// Payout computes floor(shares * total / winningPool) with a full 128-bit
// intermediate product, so the multiply can never overflow before the divide.
// shares must not exceed winningPool; under that constraint the quotient is
// bounded by total and the 128/64 division cannot trap.
//
// Summed over every winner of a market the payouts never exceed total; the
// rounding shortfall (strictly less than the number of claimants) stays in
// the vault.
func Payout(shares, total, winningPool uint64) uint64 {
	if shares == 0 || winningPool == 0 {
		return 0
	}
	if shares > winningPool {
		shares = winningPool
	}
	hi, lo := bits.Mul64(shares, total)
	quo, _ := bits.Div64(hi, lo, winningPool)
	return quo
}

// SplitSeed divides an initial liquidity seed evenly across the two pools.
// An odd seed truncates: one unit lands on neither side while remaining
// custodied in the vault.
func SplitSeed(seed uint64) (yes, no uint64) {
	half := seed / 2
	return half, half
}
