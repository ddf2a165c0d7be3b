package utils

import "context"

// Stats is the per-account play record maintained alongside settlements.
type Stats struct {
	Spins   int   `json:"spins"`
	Wins    int   `json:"wins"`
	Losses  int   `json:"losses"`
	Wagered int64 `json:"wagered"`
	Won     int64 `json:"won"`
	Rev     int64 `json:"rev"`
}

// StatsStore keeps per-account stats documents in the ledger.
type StatsStore struct {
	L *Ledger
}

func NewStatsStore(l *Ledger) *StatsStore {
	return &StatsStore{L: l}
}

func statsKey(account string) string {
	return "stats:" + account
}

func emptyStats() Stats {
	return Stats{}
}

// Record folds one settlement into the account's stats.
func (s *StatsStore) Record(ctx context.Context, account string, stake, payout int64, won bool) {
	AdjustDoc(ctx, s.L, statsKey(account), emptyStats,
		func(prev Stats) Stats {
			next := prev
			next.Spins++
			next.Wagered += stake
			next.Won += payout
			if won {
				next.Wins++
			} else {
				next.Losses++
			}
			next.Rev = prev.Rev + 1
			return next
		},
		func(prev, observed Stats) bool { return observed.Rev > prev.Rev },
	)
}

// Current returns the account's stats for display.
func (s *StatsStore) Current(ctx context.Context, account string) Stats {
	return ReadDoc(ctx, s.L, statsKey(account), emptyStats)
}
