package utils

import (
	"context"
	"sort"
)

// FreeSpinEntry is one bucket of bonus spins sharing a payout multiplier.
type FreeSpinEntry struct {
	Multiplier int64 `json:"multiplier"`
	Count      int   `json:"count"`
}

// FreeSpinQueue is the stored document: entries strictly ascending by
// multiplier, every count positive.
type FreeSpinQueue struct {
	Entries []FreeSpinEntry `json:"entries"`
	Rev     int64           `json:"rev"`
}

// normalize drops malformed entries and restores the ascending-multiplier
// order, merging duplicates. Any wrong-shaped stored state collapses to an
// empty queue instead of crashing a spin.
func (q FreeSpinQueue) normalize() FreeSpinQueue {
	merged := make(map[int64]int)
	for _, e := range q.Entries {
		if e.Multiplier <= 0 || e.Count <= 0 {
			continue
		}
		merged[e.Multiplier] += e.Count
	}

	out := FreeSpinQueue{Rev: q.Rev}
	for mult, count := range merged {
		out.Entries = append(out.Entries, FreeSpinEntry{Multiplier: mult, Count: count})
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		return out.Entries[i].Multiplier < out.Entries[j].Multiplier
	})
	return out
}

// Total is the number of queued free spins.
func (q FreeSpinQueue) Total() int {
	total := 0
	for _, e := range q.Entries {
		total += e.Count
	}
	return total
}

// FreeSpinConsume reports the outcome of taking one spin off the queue.
type FreeSpinConsume struct {
	Used       bool
	Multiplier int64
}

// FreeSpinStore keeps per-account free-spin queues in the ledger.
type FreeSpinStore struct {
	L *Ledger
}

func NewFreeSpinStore(l *Ledger) *FreeSpinStore {
	return &FreeSpinStore{L: l}
}

func freeSpinKey(account string) string {
	return "freespins:" + account
}

func emptyQueue() FreeSpinQueue {
	return FreeSpinQueue{}
}

// Queue returns the current normalized queue for display.
func (s *FreeSpinStore) Queue(ctx context.Context, account string) FreeSpinQueue {
	return ReadDoc(ctx, s.L, freeSpinKey(account), emptyQueue).normalize()
}

// Award merges count spins at the given multiplier into the queue, keeping
// the ascending order invariant. Non-positive awards are ignored.
func (s *FreeSpinStore) Award(ctx context.Context, account string, multiplier int64, count int) {
	if multiplier <= 0 || count <= 0 {
		return
	}
	AdjustDoc(ctx, s.L, freeSpinKey(account), emptyQueue,
		func(prev FreeSpinQueue) FreeSpinQueue {
			next := prev.normalize()
			next.Entries = append(next.Entries, FreeSpinEntry{Multiplier: multiplier, Count: count})
			next = next.normalize()
			next.Rev = prev.Rev + 1
			return next
		},
		func(prev, observed FreeSpinQueue) bool {
			return observed.normalize().Total() > prev.normalize().Total() || observed.Rev > prev.Rev
		},
	)
}

// ConsumeLowest takes one spin from the smallest-multiplier entry, pruning
// the entry when it hits zero. An empty queue yields {Used: false}.
func (s *FreeSpinStore) ConsumeLowest(ctx context.Context, account string) FreeSpinConsume {
	var result FreeSpinConsume

	AdjustDoc(ctx, s.L, freeSpinKey(account), emptyQueue,
		func(prev FreeSpinQueue) FreeSpinQueue {
			next := prev.normalize()
			result = FreeSpinConsume{}
			if len(next.Entries) == 0 {
				next.Rev = prev.Rev + 1
				return next
			}

			result = FreeSpinConsume{Used: true, Multiplier: next.Entries[0].Multiplier}
			next.Entries[0].Count--
			if next.Entries[0].Count <= 0 {
				next.Entries = next.Entries[1:]
			}
			next.Rev = prev.Rev + 1
			return next
		},
		func(prev, observed FreeSpinQueue) bool { return observed.Rev > prev.Rev },
	)
	return result
}
