package slots

import (
	"errors"
	"testing"

	"slotbot-go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRand replays scripted values and errors once a script runs dry.
type stubRand struct {
	ints   []int
	floats []float64
}

func (s *stubRand) Intn(n int) (int, error) {
	if len(s.ints) == 0 {
		return 0, errors.New("int script exhausted")
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n, nil
}

func (s *stubRand) Float64() (float64, error) {
	if len(s.floats) == 0 {
		return 0, errors.New("float script exhausted")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v, nil
}

// missFloats returns n special-symbol rolls that all miss.
func missFloats(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.99
	}
	return out
}

// Weighted-draw picks by cumulative weight: 🍒 0-24, 🍋 25-46, 🍊 47-64,
// 🍇 65-78, 🔔 79-88, ⭐ 89-95, 💎 96-99.
const (
	pickCherry = 0
	pickLemon  = 25
	pickOrange = 47
	pickStar   = 89
	pickRare   = 96
)

func TestDrawSymbolWeightBoundaries(t *testing.T) {
	cases := []struct {
		pick int
		want string
	}{
		{0, "🍒"},
		{24, "🍒"},
		{25, "🍋"},
		{88, "🔔"},
		{89, "⭐"},
		{95, "⭐"},
		{96, "💎"},
		{99, "💎"},
	}
	for _, tc := range cases {
		r := &stubRand{ints: []int{tc.pick}, floats: []float64{0.99}}
		got, err := DrawSymbol(r, utils.SpecialBaseChance)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "pick %d", tc.pick)
	}
}

func TestDrawSymbolSpecialPreRoll(t *testing.T) {
	r := &stubRand{floats: []float64{0.01}}
	got, err := DrawSymbol(r, utils.SpecialBaseChance)
	require.NoError(t, err)
	assert.Equal(t, utils.SpecialSymbol, got)
}

func TestSpecialChanceCombinesAndCaps(t *testing.T) {
	assert.InDelta(t, utils.SpecialBaseChance, SpecialChance(nil), 1e-9)

	one := map[string]utils.ActiveEffect{
		utils.EffectLuckyCharm: {Kind: utils.EffectStacking, StackLevel: 5},
	}
	// 1 - 0.98*(1-0.20)
	assert.InDelta(t, 0.216, SpecialChance(one), 1e-9)

	// Enough boosts hit the cap.
	many := map[string]utils.ActiveEffect{
		"a": {Kind: utils.EffectStacking, StackLevel: 5},
		"b": {Kind: utils.EffectStacking, StackLevel: 5},
		"c": {Kind: utils.EffectStacking, StackLevel: 5},
	}
	assert.InDelta(t, utils.SpecialMaxChance, SpecialChance(many), 1e-9)
}

func TestGenerateGridPlainDraw(t *testing.T) {
	r := &stubRand{
		floats: missFloats(9),
		ints: []int{
			pickCherry, pickLemon, pickOrange,
			pickStar, pickStar, pickStar,
			pickOrange, pickCherry, pickLemon,
		},
	}

	grid, consumed, err := GenerateGrid(r, nil)
	require.NoError(t, err)
	assert.Empty(t, consumed)
	assert.Equal(t, [3]string{"⭐", "⭐", "⭐"}, grid.MiddleRow())
}

func TestGenerateGridPairTokenForcesPair(t *testing.T) {
	effects := map[string]utils.ActiveEffect{
		utils.EffectPairToken: {ID: utils.EffectPairToken, Kind: utils.EffectOneShot},
	}
	r := &stubRand{
		floats: missFloats(9),
		ints: []int{
			pickCherry, pickLemon, pickOrange,
			pickCherry, pickLemon, pickOrange, // distinct payline
			pickOrange, pickCherry, pickLemon,
			0, 0, // donor cell 0, recipient cell 1
		},
	}

	grid, consumed, err := GenerateGrid(r, effects)
	require.NoError(t, err)
	assert.Contains(t, consumed, utils.EffectPairToken)

	row := grid.MiddleRow()
	assert.True(t, row[0] == row[1] || row[1] == row[2] || row[0] == row[2])
}

func TestGenerateGridPairTokenNoOpOnExistingPair(t *testing.T) {
	effects := map[string]utils.ActiveEffect{
		utils.EffectPairToken: {ID: utils.EffectPairToken, Kind: utils.EffectOneShot},
	}
	r := &stubRand{
		floats: missFloats(9),
		ints: []int{
			pickCherry, pickLemon, pickOrange,
			pickCherry, pickCherry, pickOrange, // payline already paired
			pickOrange, pickCherry, pickLemon,
		},
	}

	grid, consumed, err := GenerateGrid(r, effects)
	require.NoError(t, err)
	// The token is still reported as spent.
	assert.Contains(t, consumed, utils.EffectPairToken)
	assert.Equal(t, [3]string{"🍒", "🍒", "🍊"}, grid.MiddleRow())
}

func TestGenerateGridWildTokenPlacesWild(t *testing.T) {
	effects := map[string]utils.ActiveEffect{
		utils.EffectWildToken: {ID: utils.EffectWildToken, Kind: utils.EffectOneShot},
	}
	r := &stubRand{
		floats: missFloats(9),
		ints: []int{
			pickCherry, pickLemon, pickOrange,
			pickCherry, pickLemon, pickOrange,
			pickOrange, pickCherry, pickLemon,
			2, // wild column
		},
	}

	grid, consumed, err := GenerateGrid(r, effects)
	require.NoError(t, err)
	assert.Contains(t, consumed, utils.EffectWildToken)
	assert.Equal(t, utils.WildSymbol, grid.MiddleRow()[2])
}

func TestGenerateGridAffinityRerolls(t *testing.T) {
	effects := map[string]utils.ActiveEffect{
		utils.EffectAffinity: {
			ID:       utils.EffectAffinity,
			Kind:     utils.EffectLimitedUses,
			UsesLeft: 2,
			Symbol:   "🍒",
		},
	}
	floats := missFloats(9)
	// Every re-roll lands under the odds, so all non-target cells flip.
	for i := 0; i < 9; i++ {
		floats = append(floats, 0.0)
	}
	r := &stubRand{
		floats: floats,
		ints: []int{
			pickLemon, pickLemon, pickOrange,
			pickLemon, pickOrange, pickLemon,
			pickOrange, pickLemon, pickLemon,
		},
	}

	grid, consumed, err := GenerateGrid(r, effects)
	require.NoError(t, err)
	assert.Contains(t, consumed, utils.EffectAffinity)
	assert.Equal(t, 9, grid.Count("🍒"))
}

func TestGenerateGridAffinityNotChargedWhenNoCellFlips(t *testing.T) {
	effects := map[string]utils.ActiveEffect{
		utils.EffectAffinity: {
			ID:       utils.EffectAffinity,
			Kind:     utils.EffectLimitedUses,
			UsesLeft: 2,
			Symbol:   "🍒",
		},
	}
	// Every re-roll misses, so the grid is untouched and no use is spent.
	r := &stubRand{
		floats: missFloats(9 + 9),
		ints: []int{
			pickLemon, pickLemon, pickOrange,
			pickLemon, pickOrange, pickLemon,
			pickOrange, pickLemon, pickLemon,
		},
	}

	grid, consumed, err := GenerateGrid(r, effects)
	require.NoError(t, err)
	assert.Empty(t, consumed)
	assert.Zero(t, grid.Count("🍒"))
}

func TestGenerateGridSurfacesRandFailure(t *testing.T) {
	r := &stubRand{floats: missFloats(1)} // first Intn fails
	_, _, err := GenerateGrid(r, nil)
	assert.Error(t, err)
}

func TestGridFormat(t *testing.T) {
	grid := gridWithRow([3]string{"⭐", "⭐", "⭐"})
	assert.Equal(t, "🍒 🍋 🍊\n⭐ ⭐ ⭐\n🍊 🍒 🍋", grid.Format())
}
