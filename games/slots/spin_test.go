package slots

import (
	"context"
	"io"
	"testing"
	"time"

	"slotbot-go/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, r Rand) *Orchestrator {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)

	ledger := utils.NewLedger(utils.NewMemoryKV(), log)
	ledger.BackoffBase = time.Millisecond

	o := NewOrchestrator(ledger, nil, log)
	o.Rand = r
	return o
}

func seedBalance(t *testing.T, l *utils.Ledger, account string, balance int64) {
	t.Helper()
	err := utils.WriteDoc(context.Background(), l, "account:"+account, utils.Account{Balance: balance}, utils.PutOptions{})
	require.NoError(t, err)
}

// starTripleRand scripts a spin that lands ⭐ ⭐ ⭐ on the payline with no
// special symbols anywhere.
func starTripleRand() *stubRand {
	return &stubRand{
		floats: missFloats(9),
		ints: []int{
			pickCherry, pickLemon, pickOrange,
			pickStar, pickStar, pickStar,
			pickOrange, pickCherry, pickLemon,
		},
	}
}

func TestSpinSettlesStarTriple(t *testing.T) {
	o := newTestOrchestrator(t, starTripleRand())
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 100)

	settlement, err := o.Spin(ctx, "alice", "10")
	require.NoError(t, err)

	assert.Equal(t, int64(10), settlement.Stake)
	assert.Equal(t, int64(490), settlement.PointsDelta)
	assert.Equal(t, int64(590), settlement.NewBalance)
	assert.Equal(t, "Triple ⭐!", settlement.Message)
	assert.False(t, settlement.FreeSpinUsed)

	assert.Equal(t, int64(590), o.Ledger.Balance(ctx, "alice"))
	// The bank mirrors the house side of the settlement.
	assert.Equal(t, int64(-490), o.Ledger.Balance(ctx, utils.BankAccountID))

	stats := o.Stats.Current(ctx, "alice")
	assert.Equal(t, 1, stats.Spins)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, int64(10), stats.Wagered)
	assert.Equal(t, int64(500), stats.Won)

	streak := o.Streaks.Current(ctx, "alice")
	assert.Equal(t, 1, streak.Wins)
	assert.Equal(t, 0, streak.Losses)
}

func TestSpinStakeTierMultiplies(t *testing.T) {
	o := newTestOrchestrator(t, starTripleRand())
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 1000)

	settlement, err := o.Spin(ctx, "alice", "100")
	require.NoError(t, err)
	// 500 x10 tier multiplier, minus the 100 stake.
	assert.Equal(t, int64(4900), settlement.PointsDelta)
}

func TestSpinInsufficientBalance(t *testing.T) {
	o := newTestOrchestrator(t, starTripleRand())
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 5)

	_, err := o.Spin(ctx, "alice", "10")
	assert.Error(t, err)
	assert.Equal(t, int64(5), o.Ledger.Balance(ctx, "alice"))
}

func TestSpinRejectsBadStakeToken(t *testing.T) {
	o := newTestOrchestrator(t, starTripleRand())
	seedBalance(t, o.Ledger, "alice", 1000)

	_, err := o.Spin(context.Background(), "alice", "17")
	assert.Error(t, err)
}

func TestSpinQueuedFreeSpinTakesPrecedence(t *testing.T) {
	o := newTestOrchestrator(t, starTripleRand())
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 100)
	o.FreeSpins.Award(ctx, "alice", 3, 1)

	settlement, err := o.Spin(ctx, "alice", "10")
	require.NoError(t, err)

	assert.True(t, settlement.FreeSpinUsed)
	assert.Zero(t, settlement.Stake)
	// 500 at the banked x3 multiplier, nothing wagered.
	assert.Equal(t, int64(1500), settlement.PointsDelta)
	assert.Equal(t, int64(1600), settlement.NewBalance)
	assert.Zero(t, settlement.FreeSpinsLeft)
}

func TestSpinRareTripleAwardsFreeSpins(t *testing.T) {
	r := &stubRand{
		floats: missFloats(9),
		ints: []int{
			pickCherry, pickLemon, pickOrange,
			pickRare, pickRare, pickRare,
			pickOrange, pickCherry, pickLemon,
		},
	}
	o := newTestOrchestrator(t, r)
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 100)

	settlement, err := o.Spin(ctx, "alice", "25")
	require.NoError(t, err)

	assert.Equal(t, utils.RareTripleFreeSpins, settlement.FreeSpinsAwarded)
	assert.Equal(t, utils.RareTripleFreeSpins, settlement.FreeSpinsLeft)
	// The award pays no chips on this spin; only the stake moves.
	assert.Equal(t, int64(-25), settlement.PointsDelta)

	queue := o.FreeSpins.Queue(ctx, "alice")
	require.Len(t, queue.Entries, 1)
	// Banked at the stake-tier multiplier of the awarding spin.
	assert.Equal(t, utils.StakeTiers[25], queue.Entries[0].Multiplier)

	// A free-spin award still counts as a win.
	assert.Equal(t, 1, o.Streaks.Current(ctx, "alice").Wins)
}

func TestSpinLossRecordsStreakAndCaution(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 1000)

	for i := 0; i < utils.CautionStreakFloor; i++ {
		o.Rand = &stubRand{
			floats: missFloats(9),
			ints: []int{
				pickCherry, pickLemon, pickOrange,
				pickCherry, pickLemon, pickOrange,
				pickOrange, pickCherry, pickLemon,
			},
		}
		settlement, err := o.Spin(ctx, "alice", "10")
		require.NoError(t, err)
		assert.Equal(t, int64(-10), settlement.PointsDelta)

		if i == utils.CautionStreakFloor-1 {
			require.NotEmpty(t, settlement.Extra)
			assert.Equal(t, utils.CautionMessage(utils.CautionStreakFloor), settlement.Extra[0])
		} else {
			assert.Empty(t, settlement.Extra)
		}
	}

	assert.Equal(t, utils.CautionStreakFloor, o.Streaks.Current(ctx, "alice").Losses)
	assert.Equal(t, int64(1000-10*int64(utils.CautionStreakFloor)), o.Ledger.Balance(ctx, "alice"))
}

func TestSpinConsumesOneShotTokensAfterSettlement(t *testing.T) {
	o := newTestOrchestrator(t, starTripleRand())
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 100)
	o.Effects.Grant(ctx, "alice", utils.ActiveEffect{ID: utils.EffectDoubleToken, Kind: utils.EffectOneShot})

	settlement, err := o.Spin(ctx, "alice", "10")
	require.NoError(t, err)

	// 500 doubled, minus the stake.
	assert.Equal(t, int64(990), settlement.PointsDelta)
	assert.NotContains(t, o.Effects.Active(ctx, "alice"), utils.EffectDoubleToken)
}

func TestSpinSurfacesRandomnessFailure(t *testing.T) {
	o := newTestOrchestrator(t, &stubRand{})
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 100)

	_, err := o.Spin(ctx, "alice", "10")
	assert.Error(t, err)
	// Nothing moved.
	assert.Equal(t, int64(100), o.Ledger.Balance(ctx, "alice"))
}

func TestSpinRandomnessFailurePreservesQueuedFreeSpin(t *testing.T) {
	o := newTestOrchestrator(t, &stubRand{})
	ctx := context.Background()
	seedBalance(t, o.Ledger, "alice", 100)
	o.FreeSpins.Award(ctx, "alice", 3, 1)

	_, err := o.Spin(ctx, "alice", "")
	assert.Error(t, err)
	// The queued spin is still there for the next attempt.
	assert.Equal(t, 1, o.FreeSpins.Queue(ctx, "alice").Total())
}
