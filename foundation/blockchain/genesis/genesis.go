// Package genesis maintains access to the genesis file and the consensus
// constants every node on a chain must agree on.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// Consensus defaults.
const (
	DefaultTransPerBlock    = 100
	DefaultInitialReward    = 50
	DefaultHalvingInterval  = 210
	DefaultRetargetInterval = 50
	DefaultIdealBlockTime   = 10 * time.Second
	DefaultMinTarget        = "0x0000ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
)

// CoinUnits is the number of smallest units in one coin.
const CoinUnits = 100_000_000

// Genesis represents the genesis file.
type Genesis struct {
	Date             time.Time     `json:"date"`
	ChainID          uint16        `json:"chain_id"`          // The chain id represents an unique id for this running instance.
	TransPerBlock    uint16        `json:"trans_per_block"`   // The maximum number of transactions that can be in a block.
	InitialReward    uint64        `json:"initial_reward"`    // Reward in coins for mining a block before any halving.
	HalvingInterval  uint64        `json:"halving_interval"`  // Number of blocks between reward halvings.
	RetargetInterval uint64        `json:"retarget_interval"` // Number of blocks between difficulty adjustments.
	IdealBlockTime   time.Duration `json:"ideal_block_time"`  // Expected time between two blocks.
	MinTarget        string        `json:"min_target"`        // Easiest allowed target in hex, also the initial target.
}

// Default returns the genesis used when no genesis file is provided.
func Default() Genesis {
	g := Genesis{
		Date:             time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:          1,
		TransPerBlock:    DefaultTransPerBlock,
		InitialReward:    DefaultInitialReward,
		HalvingInterval:  DefaultHalvingInterval,
		RetargetInterval: DefaultRetargetInterval,
		IdealBlockTime:   DefaultIdealBlockTime,
		MinTarget:        DefaultMinTarget,
	}

	if err := g.Validate(); err != nil {
		panic(err)
	}

	return g
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Save writes the genesis to the specified file.
func Save(path string, genesis Genesis) error {
	data, err := json.MarshalIndent(genesis, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// =============================================================================

// MinimumTarget returns the easiest allowed target. An unparsable value is
// treated as the easiest possible target, Validate reports it.
func (g Genesis) MinimumTarget() *uint256.Int {
	t, err := parseTarget(g.MinTarget)
	if err != nil {
		return new(uint256.Int).SetAllOne()
	}

	return t
}

// BlockReward returns the reward in smallest units for mining the block at
// the specified height. The reward halves every HalvingInterval blocks using
// integer division.
func (g Genesis) BlockReward(height uint64) uint64 {
	halvings := height / g.HalvingInterval
	if halvings >= 64 {
		return 0
	}

	return g.InitialReward * CoinUnits >> halvings
}

// IdealRetargetSpan returns the expected time for RetargetInterval blocks.
func (g Genesis) IdealRetargetSpan() time.Duration {
	return time.Duration(g.RetargetInterval) * g.IdealBlockTime
}

// =============================================================================

// Validate checks the consensus values are usable.
func (g Genesis) Validate() error {
	switch {
	case g.TransPerBlock == 0:
		return errors.New("genesis: trans_per_block must be greater than zero")
	case g.HalvingInterval == 0:
		return errors.New("genesis: halving_interval must be greater than zero")
	case g.RetargetInterval == 0:
		return errors.New("genesis: retarget_interval must be greater than zero")
	case g.IdealBlockTime < time.Second:
		return errors.New("genesis: ideal_block_time must be at least one second")
	case g.InitialReward > ^uint64(0)/CoinUnits:
		return errors.New("genesis: initial_reward is too large")
	}

	t, err := parseTarget(g.MinTarget)
	if err != nil {
		return fmt.Errorf("genesis: min_target: %w", err)
	}

	if t.IsZero() {
		return errors.New("genesis: min_target must be greater than zero")
	}

	return nil
}

// parseTarget parses a hex target. uint256.FromHex rejects leading zeros so
// the value is parsed through big.Int.
func parseTarget(s string) (*uint256.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("empty target")
	}

	b, ok := new(big.Int).SetString(s, 16)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid hex target %q", s)
	}

	t, overflow := uint256.FromBig(b)
	if overflow {
		return nil, errors.New("target does not fit in 256 bits")
	}

	return t, nil
}
