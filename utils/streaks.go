package utils

import "context"

// Streak is the stored win/loss run-length state. Wins and Losses are
// mutually exclusive: every settlement zeroes one of them. Multiplier is the
// cumulative streak multiplier applied by the spin pipeline.
type Streak struct {
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Multiplier float64 `json:"multiplier"`
	Rev        int64   `json:"rev"`
}

// StreakOutcome is the result of folding one settlement into the streak.
type StreakOutcome struct {
	Streak  Streak
	Bonus   int64
	Caution string
}

// StreakStore keeps per-account streak state in the ledger.
type StreakStore struct {
	L *Ledger
}

func NewStreakStore(l *Ledger) *StreakStore {
	return &StreakStore{L: l}
}

func streakKey(account string) string {
	return "streak:" + account
}

func emptyStreak() Streak {
	return Streak{Multiplier: StreakMultBase}
}

// Current returns the streak state, normalizing a malformed multiplier back
// to baseline.
func (s *StreakStore) Current(ctx context.Context, account string) Streak {
	return normalizeStreak(ReadDoc(ctx, s.L, streakKey(account), emptyStreak))
}

func normalizeStreak(st Streak) Streak {
	if st.Multiplier < StreakMultBase || st.Multiplier > StreakMultCap {
		st.Multiplier = StreakMultBase
	}
	if st.Wins < 0 {
		st.Wins = 0
	}
	if st.Losses < 0 {
		st.Losses = 0
	}
	return st
}

// RecordWin folds a winning settlement into the streak. Three disjoint bonus
// rules fire on exact thresholds: the Nth consecutive win and the comeback
// win both pay a flat bonus and reset the run; short runs pay a small combo
// bonus and keep counting. The streak multiplier steps up to its cap and
// only ever resets on a loss.
func (s *StreakStore) RecordWin(ctx context.Context, account string) StreakOutcome {
	var outcome StreakOutcome

	AdjustDoc(ctx, s.L, streakKey(account), emptyStreak,
		func(prev Streak) Streak {
			prev = normalizeStreak(prev)
			next := Streak{Rev: prev.Rev + 1}

			next.Multiplier = prev.Multiplier + StreakMultStep
			if next.Multiplier > StreakMultCap {
				next.Multiplier = StreakMultCap
			}

			wins := prev.Wins + 1
			switch {
			case prev.Losses >= ComebackLossFloor:
				outcome.Bonus = ComebackBonus
				next.Wins = 0
			case wins == WinStreakThreshold:
				outcome.Bonus = WinStreakBonus
				next.Wins = 0
			default:
				outcome.Bonus = ComboBonuses[wins]
				next.Wins = wins
			}
			outcome.Streak = next
			return next
		},
		func(prev, observed Streak) bool { return observed.Rev > prev.Rev },
	)
	return outcome
}

// RecordLoss folds a losing settlement into the streak: the win run and the
// multiplier reset fully, and long loss runs attach a deterministic
// cautionary message.
func (s *StreakStore) RecordLoss(ctx context.Context, account string) StreakOutcome {
	var outcome StreakOutcome

	AdjustDoc(ctx, s.L, streakKey(account), emptyStreak,
		func(prev Streak) Streak {
			prev = normalizeStreak(prev)
			next := Streak{
				Losses:     prev.Losses + 1,
				Multiplier: StreakMultBase,
				Rev:        prev.Rev + 1,
			}
			outcome.Caution = CautionMessage(next.Losses)
			outcome.Streak = next
			return next
		},
		func(prev, observed Streak) bool { return observed.Rev > prev.Rev },
	)
	return outcome
}

// CautionMessage returns the cautionary line for a loss streak of the given
// length, or "" below the floor. The same length always maps to the same
// line: exact table entries first, then a rotation for longer runs.
func CautionMessage(losses int) string {
	if losses < CautionStreakFloor {
		return ""
	}
	if msg, ok := CautionMessages[losses]; ok {
		return msg
	}
	past := losses - CautionStreakFloor - len(CautionMessages)
	return CautionRotation[past%len(CautionRotation)]
}
