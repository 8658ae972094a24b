package chain

import (
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// tryAdjustTarget recalculates the target when the chain height reaches a
// multiple of the retarget interval. The caller must hold the write lock.
func (bc *Blockchain) tryAdjustTarget() {
	interval := bc.genesis.RetargetInterval
	height := uint64(len(bc.blocks))

	if height < interval || height%interval != 0 {
		return
	}

	first := bc.blocks[height-interval].Header.TimeStamp
	last := bc.blocks[height-1].Header.TimeStamp

	var actual time.Duration
	if last > first {
		actual = time.Duration(last-first) * time.Second
	}

	old := bc.target
	bc.target = *NextTarget(&old, actual, bc.genesis.IdealRetargetSpan(), bc.genesis.MinimumTarget())

	bc.evHandler("chain: tryAdjustTarget: height[%d]: actual[%v]: ideal[%v]: target[%s] -> [%s]", height, actual, bc.genesis.IdealRetargetSpan(), old.Hex(), bc.target.Hex())
}

// NextTarget calculates the target that moves the block time back towards
// the ideal. The target is scaled by actual/ideal, kept within a factor of
// four of the current target and never made easier than the minimum target.
// Durations are measured in whole seconds.
func NextTarget(current *uint256.Int, actual time.Duration, ideal time.Duration, minTarget *uint256.Int) *uint256.Int {
	idealSecs := int64(ideal / time.Second)
	if idealSecs <= 0 {
		return new(uint256.Int).Set(current)
	}
	actualSecs := int64(actual / time.Second)

	cur := current.ToBig()

	next := decimal.NewFromBigInt(cur, 0).
		Mul(decimal.NewFromInt(actualSecs)).
		Div(decimal.NewFromInt(idealSecs)).
		BigInt()

	lower := new(big.Int).Rsh(cur, 2)
	upper := new(big.Int).Lsh(cur, 2)

	switch {
	case next.Cmp(lower) < 0:
		next = lower
	case next.Cmp(upper) > 0:
		next = upper
	}

	if limit := minTarget.ToBig(); next.Cmp(limit) > 0 {
		next = limit
	}

	if next.Sign() <= 0 {
		next = big.NewInt(1)
	}

	t, _ := uint256.FromBig(next)
	return t
}
