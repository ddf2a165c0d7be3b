package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StakeResult is a resolved wager: the chips at risk and the payout
// multiplier the tier buys.
type StakeResult struct {
	Amount     int64
	Multiplier int64
	AllIn      bool
}

// ParseStake resolves the raw stake token from the command router: a numeric
// tier, the "all" token, or absent (default tier). The balance bounds what
// an all-in can wager; an all-in plays at the highest tier the balance can
// cover.
func ParseStake(token string, balance int64) (StakeResult, error) {
	token = strings.TrimSpace(strings.ToLower(token))

	if token == "" {
		return StakeResult{Amount: DefaultStake, Multiplier: StakeTiers[DefaultStake]}, nil
	}

	if token == "all" || token == "allin" {
		tier := highestTierAtOrBelow(balance)
		if tier == 0 {
			return StakeResult{}, fmt.Errorf("you need at least %d %s to spin", DefaultStake, ChipsEmoji)
		}
		return StakeResult{Amount: balance, Multiplier: StakeTiers[tier], AllIn: true}, nil
	}

	amount, err := strconv.ParseInt(strings.ReplaceAll(token, ",", ""), 10, 64)
	if err != nil {
		return StakeResult{}, fmt.Errorf("invalid stake: %s", token)
	}
	mult, ok := StakeTiers[amount]
	if !ok {
		return StakeResult{}, fmt.Errorf("stake must be one of %s", tierList())
	}
	return StakeResult{Amount: amount, Multiplier: mult}, nil
}

func highestTierAtOrBelow(balance int64) int64 {
	var best int64
	for tier := range StakeTiers {
		if tier <= balance && tier > best {
			best = tier
		}
	}
	return best
}

func tierList() string {
	tiers := make([]int64, 0, len(StakeTiers))
	for tier := range StakeTiers {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })

	parts := make([]string, len(tiers))
	for i, tier := range tiers {
		parts[i] = strconv.FormatInt(tier, 10)
	}
	return strings.Join(parts, ", ")
}

// FormatChips renders a chip amount with thousands separators.
func FormatChips(amount int64) string {
	str := strconv.FormatInt(amount, 10)
	negative := strings.HasPrefix(str, "-")
	if negative {
		str = str[1:]
	}

	var out strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(digit)
	}
	if negative {
		return "-" + out.String()
	}
	return out.String()
}
