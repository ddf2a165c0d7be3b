package slots

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"slotbot-go/utils"
)

// Rand is the randomness source for grid generation. The production
// implementation draws from crypto/rand; a failed draw surfaces as an error
// instead of degrading into a biased fallback.
type Rand interface {
	// Intn returns a uniform int in [0, n).
	Intn(n int) (int, error)
	// Float64 returns a uniform float64 in [0, 1).
	Float64() (float64, error)
}

// CryptoRand draws from the operating system's CSPRNG.
type CryptoRand struct{}

func (CryptoRand) Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("randomness source unavailable: %w", err)
	}
	return int(v.Int64()), nil
}

func (c CryptoRand) Float64() (float64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0, fmt.Errorf("randomness source unavailable: %w", err)
	}
	return float64(v.Int64()) / (1 << 53), nil
}

var reelTotalWeight = func() int {
	total := 0
	for _, s := range utils.ReelSymbols {
		total += s.Weight
	}
	return total
}()

// DrawSymbol produces one cell: a Bernoulli roll for the special symbol
// first, then the weighted draw over the regular reel.
func DrawSymbol(r Rand, specialChance float64) (string, error) {
	roll, err := r.Float64()
	if err != nil {
		return "", err
	}
	if roll < specialChance {
		return utils.SpecialSymbol, nil
	}

	pick, err := r.Intn(reelTotalWeight)
	if err != nil {
		return "", err
	}
	for _, s := range utils.ReelSymbols {
		pick -= s.Weight
		if pick < 0 {
			return s.Symbol, nil
		}
	}
	return utils.ReelSymbols[len(utils.ReelSymbols)-1].Symbol, nil
}

// SpecialChance combines the base special-symbol probability with every
// active stacking boost. Boosts combine multiplicatively on the miss side
// and the result is capped.
func SpecialChance(effects map[string]utils.ActiveEffect) float64 {
	miss := 1 - utils.SpecialBaseChance
	for _, effect := range effects {
		if boost := effect.SpecialChanceBoost(); boost > 0 {
			miss *= 1 - boost
		}
	}
	chance := 1 - miss
	if chance > utils.SpecialMaxChance {
		chance = utils.SpecialMaxChance
	}
	return chance
}
