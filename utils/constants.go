package utils

import "time"

// Economy
const (
	StartingChips       = 1000
	MaxBalance    int64 = 1_000_000_000
	BankAccountID       = "bank"
	BotColor            = 0x5865F2
	ChipsEmoji          = "🪙"
)

// Slot symbols. SpecialSymbol is never part of the weighted reel draw; each
// cell rolls for it separately before the weighted draw. WildSymbol only
// appears through a consumed wild token.
const (
	SpecialSymbol = "🎰"
	RareSymbol    = "💎"
	WildSymbol    = "🃏"
)

// ReelSymbols is the 7-symbol weighted distribution for a single cell.
// Weights sum to 100.
var ReelSymbols = []struct {
	Symbol string
	Weight int
}{
	{"🍒", 25},
	{"🍋", 22},
	{"🍊", 18},
	{"🍇", 14},
	{"🔔", 10},
	{"⭐", 7},
	{RareSymbol, 4},
}

// Special symbol odds
const (
	SpecialBaseChance = 0.02
	SpecialMaxChance  = 0.25
)

// TriplePayouts maps a middle-row triple to its base points. The rare symbol
// pays in free spins instead of chips and the special symbol has its own
// tiers, so neither appears here.
var TriplePayouts = map[string]int64{
	"⭐": 500,
	"🔔": 300,
	"🍇": 200,
	"🍊": 150,
	"🍋": 100,
	"🍒": 75,
}

// PairPayouts maps an adjacent middle-row pair to its base points.
var PairPayouts = map[string]int64{
	"⭐": 50,
	"🔔": 30,
	"🍇": 20,
	"🍊": 15,
	"🍋": 10,
	"🍒": 5,
}

// Special symbol tiers. The jackpot counts across the whole grid; lower tiers
// count middle-row occurrences.
const (
	SpecialJackpotPayout = 2000
	SpecialDoublePayout  = 250
	SpecialSinglePayout  = 50
)

// Free spin awards
const (
	RareTripleFreeSpins = 3
	RarePairFreeSpins   = 1
)

// StakeTiers maps the wager amount of each bet tier to its payout multiplier.
var StakeTiers = map[int64]int64{
	10:  1,
	25:  2,
	50:  5,
	100: 10,
}

const DefaultStake int64 = 10

// Streaks and combos
const (
	WinStreakThreshold  = 5
	WinStreakBonus      = 250
	ComebackLossFloor   = 5
	ComebackBonus       = 150
	StreakMultStep      = 0.10
	StreakMultCap       = 2.0
	StreakMultBase      = 1.0
	CautionStreakFloor  = 7
	HighRollerFloor     = 200
	FortunePercentBonus = 30
)

// ComboBonuses pays small flat bonuses on short win streaks without
// resetting the streak.
var ComboBonuses = map[int]int64{
	3: 50,
	4: 100,
}

// CautionMessages are keyed by exact loss-streak length; streaks past the
// table rotate through CautionRotation.
var CautionMessages = map[int]string{
	7: "Seven losses in a row. The reels owe you nothing, maybe take a breather?",
	8: "Eight straight losses. The machine is not warming up, that's not how it works.",
	9: "Nine losses. At this point even the bank feels bad for you.",
}

var CautionRotation = []string{
	"The slot machine is a harsh mistress.",
	"Remember: the house always wins. Mostly from you, apparently.",
	"Your luck has to turn eventually. Probably. Statistically. Maybe.",
}

// MissMessages are the flavor lines for a losing spin. Selection is derived
// from the grid so a given grid always produces the same line.
var MissMessages = []string{
	"No match. The reels mock you.",
	"So close, yet so far.",
	"Nothing this time. Spin again?",
	"The symbols refuse to cooperate.",
	"Better luck on the next pull!",
}

// Ledger behavior
const (
	LedgerMaxRetries  = 3
	LedgerBackoffBase = 50 * time.Millisecond
)

// Purchases
const (
	WeeklyPurchaseCap = 3
)

// Duels
const (
	DuelAcceptWindow = 5 * time.Minute
	DuelWinBonus     = 200
)
