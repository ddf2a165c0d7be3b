package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreakMultiplierStepsAndCaps(t *testing.T) {
	ledger, _ := newTestLedger(t)
	store := NewStreakStore(ledger)
	ctx := context.Background()

	var last StreakOutcome
	for i := 0; i < 15; i++ {
		last = store.RecordWin(ctx, "alice")
	}
	assert.InDelta(t, StreakMultCap, last.Streak.Multiplier, 1e-9)

	loss := store.RecordLoss(ctx, "alice")
	assert.InDelta(t, StreakMultBase, loss.Streak.Multiplier, 1e-9)
}

func TestStreakComboAndThresholdBonuses(t *testing.T) {
	ledger, _ := newTestLedger(t)
	store := NewStreakStore(ledger)
	ctx := context.Background()

	wantBonuses := []int64{0, 0, 50, 100, WinStreakBonus}
	for i, want := range wantBonuses {
		outcome := store.RecordWin(ctx, "alice")
		assert.Equal(t, want, outcome.Bonus, "win %d", i+1)
	}

	// The threshold reset the run: the next win is win #1 again.
	outcome := store.RecordWin(ctx, "alice")
	assert.Equal(t, int64(0), outcome.Bonus)
	assert.Equal(t, 1, outcome.Streak.Wins)
}

func TestStreakComebackBonus(t *testing.T) {
	ledger, _ := newTestLedger(t)
	store := NewStreakStore(ledger)
	ctx := context.Background()

	for i := 0; i < ComebackLossFloor; i++ {
		store.RecordLoss(ctx, "alice")
	}

	outcome := store.RecordWin(ctx, "alice")
	assert.Equal(t, int64(ComebackBonus), outcome.Bonus)
	assert.Equal(t, 0, outcome.Streak.Wins)
	assert.Equal(t, 0, outcome.Streak.Losses)
}

func TestStreakLossResetsWinRun(t *testing.T) {
	ledger, _ := newTestLedger(t)
	store := NewStreakStore(ledger)
	ctx := context.Background()

	store.RecordWin(ctx, "alice")
	store.RecordWin(ctx, "alice")
	outcome := store.RecordLoss(ctx, "alice")

	assert.Equal(t, 0, outcome.Streak.Wins)
	assert.Equal(t, 1, outcome.Streak.Losses)
}

func TestCautionMessageDeterministic(t *testing.T) {
	assert.Empty(t, CautionMessage(CautionStreakFloor-1))

	for losses, want := range CautionMessages {
		assert.Equal(t, want, CautionMessage(losses))
	}

	// Past the table the rotation repeats in order.
	base := CautionStreakFloor + len(CautionMessages)
	for i := 0; i < 2*len(CautionRotation); i++ {
		want := CautionRotation[i%len(CautionRotation)]
		assert.Equal(t, want, CautionMessage(base+i))
	}

	// Same run length, same line.
	assert.Equal(t, CautionMessage(12), CautionMessage(12))
}
