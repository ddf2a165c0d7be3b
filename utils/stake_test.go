package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStakeDefaultsToLowestTier(t *testing.T) {
	stake, err := ParseStake("", 1000)
	require.NoError(t, err)
	assert.Equal(t, DefaultStake, stake.Amount)
	assert.Equal(t, StakeTiers[DefaultStake], stake.Multiplier)
}

func TestParseStakeTiers(t *testing.T) {
	for amount, mult := range StakeTiers {
		stake, err := ParseStake(FormatChips(amount), 1000)
		require.NoError(t, err)
		assert.Equal(t, amount, stake.Amount)
		assert.Equal(t, mult, stake.Multiplier)
	}
}

func TestParseStakeRejectsOffTierAmounts(t *testing.T) {
	for _, token := range []string{"11", "99", "-10", "0", "banana"} {
		_, err := ParseStake(token, 1000)
		assert.Error(t, err, "token %q", token)
	}
}

func TestParseStakeAllIn(t *testing.T) {
	stake, err := ParseStake("all", 730)
	require.NoError(t, err)
	assert.Equal(t, int64(730), stake.Amount)
	assert.True(t, stake.AllIn)
	// 730 covers the 100 tier, so the x10 multiplier applies.
	assert.Equal(t, StakeTiers[100], stake.Multiplier)

	stake, err = ParseStake("all", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), stake.Amount)
	assert.Equal(t, StakeTiers[25], stake.Multiplier)
}

func TestParseStakeAllInRequiresMinimum(t *testing.T) {
	_, err := ParseStake("all", DefaultStake-1)
	assert.Error(t, err)
}

func TestFormatChips(t *testing.T) {
	assert.Equal(t, "0", FormatChips(0))
	assert.Equal(t, "999", FormatChips(999))
	assert.Equal(t, "1,000", FormatChips(1000))
	assert.Equal(t, "1,234,567", FormatChips(1234567))
	assert.Equal(t, "-25,000", FormatChips(-25000))
}
