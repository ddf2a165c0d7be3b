package slots

import (
	"context"
	"fmt"

	"slotbot-go/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Settlement is the final computed outcome of one spin.
type Settlement struct {
	Grid        Grid
	Stake       int64
	PointsDelta int64
	NewBalance  int64
	Message     string
	Extra       []string

	FreeSpinUsed     bool
	FreeSpinsAwarded int
	FreeSpinsLeft    int
}

// Orchestrator composes the spin pipeline over the economy stores. Each
// inbound spin runs in its own handler goroutine with no shared in-process
// state; the ledger's verification is the only mutation-safety mechanism.
type Orchestrator struct {
	Ledger    *utils.Ledger
	Effects   *utils.EffectStore
	FreeSpins *utils.FreeSpinStore
	Streaks   *utils.StreakStore
	Stats     *utils.StatsStore
	DB        *utils.DB
	Rand      Rand
	Log       *logrus.Entry
}

func NewOrchestrator(l *utils.Ledger, db *utils.DB, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		Ledger:    l,
		Effects:   utils.NewEffectStore(l),
		FreeSpins: utils.NewFreeSpinStore(l),
		Streaks:   utils.NewStreakStore(l),
		Stats:     utils.NewStatsStore(l),
		DB:        db,
		Rand:      CryptoRand{},
		Log:       log,
	}
}

// Spin resolves one spin for the account: fan-out reads, grid generation,
// payout evaluation, the multiplier chain, streak bookkeeping, and the
// verified balance write, in that order. The only error it can return is
// randomness-source unavailability; every store problem degrades internally.
func (o *Orchestrator) Spin(ctx context.Context, account, stakeToken string) (*Settlement, error) {
	var (
		balance int64
		effects map[string]utils.ActiveEffect
		queue   utils.FreeSpinQueue
		streak  utils.Streak
	)

	// Pre-spin reads are mutually independent.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { balance = o.Ledger.Balance(gctx, account); return nil })
	g.Go(func() error { effects = o.Effects.Active(gctx, account); return nil })
	g.Go(func() error { queue = o.FreeSpins.Queue(gctx, account); return nil })
	g.Go(func() error { streak = o.Streaks.Current(gctx, account); return nil })
	_ = g.Wait()

	settlement := &Settlement{}

	// The grid is drawn before any state moves, so a randomness failure
	// leaves the queue and balance untouched.
	grid, gridConsumed, err := GenerateGrid(o.Rand, effects)
	if err != nil {
		o.Log.WithFields(logrus.Fields{"account": account, "error": err}).Error("grid generation failed")
		return nil, err
	}
	settlement.Grid = grid

	// A queued free spin takes precedence over a paid stake.
	var stakeMult int64 = 1
	if queue.Total() > 0 {
		if consume := o.FreeSpins.ConsumeLowest(ctx, account); consume.Used {
			settlement.FreeSpinUsed = true
			stakeMult = consume.Multiplier
		}
	}
	if !settlement.FreeSpinUsed {
		stake, err := utils.ParseStake(stakeToken, balance)
		if err != nil {
			return nil, err
		}
		if balance < stake.Amount {
			return nil, fmt.Errorf("you need %s %s to spin but only have %s",
				utils.FormatChips(stake.Amount), utils.ChipsEmoji, utils.FormatChips(balance))
		}
		settlement.Stake = stake.Amount
		stakeMult = stake.Multiplier
	}

	result := Evaluate(grid)
	settlement.Message = result.Message

	consumed := gridConsumed
	var payout int64

	if result.FreeSpins > 0 {
		// Free-spin awards bypass the multiplier chain entirely.
		awardMult := int64(1)
		if result.Kind == KindRareTriple {
			awardMult = stakeMult
		}
		o.FreeSpins.Award(ctx, account, awardMult, result.FreeSpins)
		settlement.FreeSpinsAwarded = result.FreeSpins
	} else if result.Points > 0 {
		amplified := ApplyMultipliers(result, PipelineInput{
			StakeMultiplier:  stakeMult,
			StreakMultiplier: streak.Multiplier,
			Effects:          effects,
		})
		payout = amplified.Points
		consumed = append(consumed, amplified.Consumed...)
	}

	won := payout > 0 || result.FreeSpins > 0
	var outcome utils.StreakOutcome
	if won {
		outcome = o.Streaks.RecordWin(ctx, account)
		if outcome.Bonus > 0 {
			payout += outcome.Bonus
			settlement.Extra = append(settlement.Extra,
				fmt.Sprintf("Streak bonus: +%s %s", utils.FormatChips(outcome.Bonus), utils.ChipsEmoji))
		}
	} else {
		outcome = o.Streaks.RecordLoss(ctx, account)
		if outcome.Caution != "" {
			settlement.Extra = append(settlement.Extra, outcome.Caution)
		}
	}

	// The balance write is verified before the response is produced.
	settlement.PointsDelta = payout - settlement.Stake
	settlement.NewBalance = o.Ledger.AdjustBalance(ctx, account, settlement.PointsDelta)

	// Post-settlement writes are independent of one another.
	post, pctx := errgroup.WithContext(ctx)
	post.Go(func() error {
		o.Stats.Record(pctx, account, settlement.Stake, payout, won)
		return nil
	})
	post.Go(func() error {
		o.Ledger.AdjustBank(pctx, settlement.Stake-payout)
		return nil
	})
	for _, id := range consumed {
		id := id
		post.Go(func() error {
			o.Effects.Consume(pctx, account, id)
			return nil
		})
	}
	if o.DB != nil {
		post.Go(func() error {
			o.DB.RecordSettlements(pctx, []utils.SettlementAudit{{
				Account: account,
				Stake:   settlement.Stake,
				Payout:  payout,
			}})
			return nil
		})
	}
	_ = post.Wait()

	settlement.FreeSpinsLeft = o.FreeSpins.Queue(ctx, account).Total()

	o.Log.WithFields(logrus.Fields{
		"account":  account,
		"stake":    settlement.Stake,
		"payout":   payout,
		"freeSpin": settlement.FreeSpinUsed,
		"balance":  settlement.NewBalance,
	}).Info("spin settled")

	return settlement, nil
}
