package slots

import (
	"fmt"

	"slotbot-go/utils"
)

// ResultKind tags the mutually exclusive payout cases in evaluation order.
type ResultKind int

const (
	KindJackpot ResultKind = iota
	KindSpecialDouble
	KindSpecialSingle
	KindRareTriple
	KindRarePair
	KindTriple
	KindPair
	KindMiss
)

// Result is the pure outcome of evaluating one grid: chip points at base
// multiplier, any free spins, and the display message. It carries no side
// effects and is fully determined by the grid.
type Result struct {
	Kind          ResultKind
	Points        int64
	Message       string
	FreeSpins     int
	WinningSymbol string
}

// Evaluate maps a grid to its payout. The special jackpot is checked first
// across the raw grid; the lower special tiers count middle-row cells only.
// Wilds in the middle row are then resolved to concrete symbols, and the
// resolved row goes through the rare, triple, and pair cases; anything left
// is a miss.
func Evaluate(grid Grid) Result {
	if grid.Count(utils.SpecialSymbol) >= 3 {
		return Result{
			Kind:          KindJackpot,
			Points:        utils.SpecialJackpotPayout,
			Message:       "JACKPOT! Three " + utils.SpecialSymbol + " across the reels!",
			WinningSymbol: utils.SpecialSymbol,
		}
	}

	switch countRow(grid.MiddleRow(), utils.SpecialSymbol) {
	case 2:
		return Result{
			Kind:          KindSpecialDouble,
			Points:        utils.SpecialDoublePayout,
			Message:       "Two " + utils.SpecialSymbol + "! Big win!",
			WinningSymbol: utils.SpecialSymbol,
		}
	case 1:
		return Result{
			Kind:          KindSpecialSingle,
			Points:        utils.SpecialSinglePayout,
			Message:       "A " + utils.SpecialSymbol + " pays its way.",
			WinningSymbol: utils.SpecialSymbol,
		}
	}

	row := ResolveWilds(grid.MiddleRow())

	if row[0] == utils.RareSymbol && row[1] == utils.RareSymbol && row[2] == utils.RareSymbol {
		return Result{
			Kind:          KindRareTriple,
			Message:       fmt.Sprintf("Triple %s! %d free spins!", utils.RareSymbol, utils.RareTripleFreeSpins),
			FreeSpins:     utils.RareTripleFreeSpins,
			WinningSymbol: utils.RareSymbol,
		}
	}
	if countRow(row, utils.RareSymbol) == 2 {
		return Result{
			Kind:          KindRarePair,
			Message:       fmt.Sprintf("Two %s earn you a free spin!", utils.RareSymbol),
			FreeSpins:     utils.RarePairFreeSpins,
			WinningSymbol: utils.RareSymbol,
		}
	}

	if row[0] == row[1] && row[1] == row[2] {
		if points, ok := utils.TriplePayouts[row[0]]; ok {
			return Result{
				Kind:          KindTriple,
				Points:        points,
				Message:       fmt.Sprintf("Triple %s!", row[0]),
				WinningSymbol: row[0],
			}
		}
	}

	for _, pair := range [][2]int{{0, 1}, {1, 2}} {
		if row[pair[0]] == row[pair[1]] {
			if points, ok := utils.PairPayouts[row[pair[0]]]; ok {
				return Result{
					Kind:          KindPair,
					Points:        points,
					Message:       fmt.Sprintf("A pair of %s.", row[pair[0]]),
					WinningSymbol: row[pair[0]],
				}
			}
		}
	}

	return Result{Kind: KindMiss, Message: missMessage(grid)}
}

// ResolveWilds replaces every wild marker in the middle row with a concrete
// symbol before payout lookup. Resolution is total: three wilds become the
// best-paying triple, two wilds complete the remaining symbol, and a single
// wild completes an existing pair or pairs with its adjacent cell (the
// higher-paying neighbour when centered).
func ResolveWilds(row [3]string) [3]string {
	switch countRow(row, utils.WildSymbol) {
	case 0:
		return row
	case 3:
		best := bestTripleSymbol()
		return [3]string{best, best, best}
	case 2:
		for _, cell := range row {
			if cell != utils.WildSymbol {
				return [3]string{cell, cell, cell}
			}
		}
		// Unreachable: two wilds leave one concrete cell.
		best := bestTripleSymbol()
		return [3]string{best, best, best}
	}

	wild := 0
	for i, cell := range row {
		if cell == utils.WildSymbol {
			wild = i
		}
	}
	others := make([]string, 0, 2)
	for i, cell := range row {
		if i != wild {
			others = append(others, cell)
		}
	}

	if others[0] == others[1] {
		row[wild] = others[0]
		return row
	}

	switch wild {
	case 0:
		row[0] = row[1]
	case 2:
		row[2] = row[1]
	default:
		row[1] = higherPaying(row[0], row[2])
	}
	return row
}

// higherPaying picks the symbol worth more as a pair; the rare symbol beats
// everything because its pair pays a free spin.
func higherPaying(a, b string) string {
	if a == utils.RareSymbol {
		return a
	}
	if b == utils.RareSymbol {
		return b
	}
	if utils.PairPayouts[a] >= utils.PairPayouts[b] {
		return a
	}
	return b
}

func bestTripleSymbol() string {
	best := ""
	var bestPoints int64 = -1
	for symbol, points := range utils.TriplePayouts {
		if points > bestPoints {
			best, bestPoints = symbol, points
		}
	}
	return best
}

func countRow(row [3]string, symbol string) int {
	n := 0
	for _, cell := range row {
		if cell == symbol {
			n++
		}
	}
	return n
}

// missMessage picks a flavor line from the grid itself so the same grid
// always reads the same.
func missMessage(grid Grid) string {
	sum := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			for _, ch := range grid[r][c] {
				sum += int(ch)
			}
		}
	}
	return utils.MissMessages[sum%len(utils.MissMessages)]
}
