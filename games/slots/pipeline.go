package slots

import "slotbot-go/utils"

// PipelineInput carries everything the multiplier chain dispatches on.
type PipelineInput struct {
	StakeMultiplier  int64
	StreakMultiplier float64
	Effects          map[string]utils.ActiveEffect
}

// PipelineResult is the amplified point total plus the one-shot effects the
// chain spent. Consumption is deferred to the caller so it lands in the same
// effective unit as the verified balance credit.
type PipelineResult struct {
	Points   int64
	Consumed []string
}

// ApplyMultipliers runs the ordered amplifier chain over the evaluator's
// points. Stages only fire on a positive running total; free-spin awards
// never reach this function. Order is fixed: stake tier, one-shot doubler,
// one-shot symbol boost, the fortune percentage buff, the high-roller
// threshold doubler, then the streak multiplier.
func ApplyMultipliers(result Result, in PipelineInput) PipelineResult {
	out := PipelineResult{Points: result.Points}
	if out.Points <= 0 {
		return out
	}

	mult := in.StakeMultiplier
	if mult < 1 {
		mult = 1
	}
	out.Points *= mult

	if _, ok := in.Effects[utils.EffectDoubleToken]; ok && out.Points > 0 {
		out.Points *= 2
		out.Consumed = append(out.Consumed, utils.EffectDoubleToken)
	}

	if boost, ok := in.Effects[utils.EffectSymbolBoost]; ok && out.Points > 0 {
		// Consumed only when its symbol is part of the winning combination.
		if boost.Symbol != "" && boost.Symbol == result.WinningSymbol {
			out.Points *= 2
			out.Consumed = append(out.Consumed, utils.EffectSymbolBoost)
		}
	}

	if _, ok := in.Effects[utils.EffectFortune]; ok && out.Points > 0 {
		out.Points += out.Points * utils.FortunePercentBonus / 100
	}

	if _, ok := in.Effects[utils.EffectHighRoller]; ok && out.Points >= utils.HighRollerFloor {
		out.Points *= 2
	}

	if in.StreakMultiplier > utils.StreakMultBase && out.Points > 0 {
		out.Points = int64(float64(out.Points) * in.StreakMultiplier)
	}

	return out
}
