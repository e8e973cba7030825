package services

import (
	"fmt"
	"sync"
)

const JackpotLabel = "JACKPOT"

// Slot is one entry of the payout table: a label, the amount it pays, and a
// selection weight.
type Slot struct {
	Label  string
	Amount int64
	Weight int64
}

// PayoutTable is the canonical board layout, left to right. The source
// weights were 40,18,12,10,8,6,3,1,0.2; everything is scaled by 5 so the
// weights stay integral without changing the distribution.
var PayoutTable = []Slot{
	{Label: "LOSE", Amount: 0, Weight: 200},
	{Label: "10", Amount: 10, Weight: 90},
	{Label: "20", Amount: 20, Weight: 60},
	{Label: "50", Amount: 50, Weight: 50},
	{Label: "100", Amount: 100, Weight: 40},
	{Label: "200", Amount: 200, Weight: 30},
	{Label: "500", Amount: 500, Weight: 15},
	{Label: "1000", Amount: 1000, Weight: 5},
	{Label: JackpotLabel, Amount: 4000, Weight: 1},
}

// Sampler draws one slot from the payout table.
type Sampler interface {
	Draw() Slot
}

// RandSource is the injected randomness; *math/rand.Rand satisfies it.
type RandSource interface {
	Int63n(n int64) int64
}

// WeightedSampler is the single canonical sampling implementation: draw a
// uniform r in [0, totalWeight) and pick the first slot whose cumulative
// weight strictly exceeds r. The tie-break at slot boundaries lives here and
// nowhere else.
type WeightedSampler struct {
	table []Slot
	total int64

	mu  sync.Mutex
	src RandSource
}

func NewWeightedSampler(table []Slot, src RandSource) (*WeightedSampler, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("payout table is empty")
	}
	var total int64
	for _, s := range table {
		if s.Weight <= 0 {
			return nil, fmt.Errorf("slot %q has non-positive weight %d", s.Label, s.Weight)
		}
		total += s.Weight
	}
	t := make([]Slot, len(table))
	copy(t, table)
	return &WeightedSampler{table: t, total: total, src: src}, nil
}

func (s *WeightedSampler) Draw() Slot {
	s.mu.Lock()
	r := s.src.Int63n(s.total)
	s.mu.Unlock()

	var cum int64
	for _, slot := range s.table {
		cum += slot.Weight
		if cum > r {
			return slot
		}
	}
	// Unreachable while r < total; keep the last slot as a safety net.
	return s.table[len(s.table)-1]
}

// TotalWeight is exposed for tests asserting the empirical distribution.
func (s *WeightedSampler) TotalWeight() int64 {
	return s.total
}
