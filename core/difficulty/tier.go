// Package difficulty maps chain length to a complexity tier.
//
// Consensus labels are descriptive metadata only. Every tier is plain
// sha256 proof-of-work; only the required leading-zero count changes.
package difficulty

import (
	"strings"
	"sync"
)

// Tier is one row of the complexity table.
type Tier struct {
	Level           int    `json:"level"`
	RecordThreshold uint64 `json:"recordThreshold"`
	HashDifficulty  int    `json:"hashDifficulty"`
	ConsensusLabel  string `json:"consensusLabel"`
}

// Tiers is ordered by ascending RecordThreshold and non-decreasing HashDifficulty.
var Tiers = []Tier{
	{Level: 0, RecordThreshold: 0, HashDifficulty: 2, ConsensusLabel: "simple"},
	{Level: 1, RecordThreshold: 10, HashDifficulty: 3, ConsensusLabel: "advanced"},
	{Level: 2, RecordThreshold: 50, HashDifficulty: 4, ConsensusLabel: "byzantine"},
	{Level: 3, RecordThreshold: 100, HashDifficulty: 5, ConsensusLabel: "quantum-resistant"},
}

// TierFor returns the highest tier whose threshold is <= chainLength.
func TierFor(chainLength uint64) Tier {
	active := Tiers[0]
	for _, t := range Tiers {
		if t.RecordThreshold <= chainLength {
			active = t
		}
	}
	return active
}

// ByLevel returns the tier with the given level.
func ByLevel(level int) (Tier, bool) {
	for _, t := range Tiers {
		if t.Level == level {
			return t, true
		}
	}
	return Tier{}, false
}

// Prefix is the leading-zero string a hash must start with.
func (t Tier) Prefix() string {
	return strings.Repeat("0", t.HashDifficulty)
}

// Meets reports whether hexHash satisfies difficulty.
func Meets(hexHash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	return len(hexHash) >= difficulty && strings.Count(hexHash[:difficulty], "0") == difficulty
}

// Controller remembers the last observed tier so advances can be signalled.
type Controller struct {
	mu      sync.Mutex
	current Tier
}

// NewController starts at the tier for chainLength.
func NewController(chainLength uint64) *Controller {
	return &Controller{current: TierFor(chainLength)}
}

// Current returns the last observed tier.
func (c *Controller) Current() Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Observe re-evaluates the tier for chainLength. It returns the previous tier
// and true when the tier advanced. The recorded tier never regresses.
func (c *Controller) Observe(chainLength uint64) (previous Tier, advanced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := TierFor(chainLength)
	previous = c.current
	if next.Level > c.current.Level {
		c.current = next
		return previous, true
	}
	return previous, false
}
