package slots

import (
	"strings"

	"slotbot-go/utils"
)

// Grid is the 3x3 symbol matrix of one spin. Row 1 is the payline.
type Grid [3][3]string

// MiddleRow returns the payline cells.
func (g Grid) MiddleRow() [3]string {
	return g[1]
}

// Count returns how many cells across the whole grid hold the symbol.
func (g Grid) Count(symbol string) int {
	n := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if g[r][c] == symbol {
				n++
			}
		}
	}
	return n
}

// Format renders the grid as three display rows.
func (g Grid) Format() string {
	rows := make([]string, 3)
	for r := 0; r < 3; r++ {
		rows[r] = strings.Join(g[r][:], " ")
	}
	return strings.Join(rows, "\n")
}

// GenerateGrid draws all 9 cells and applies active-effect post-processing
// in fixed order: the guaranteed-pair token, the wild token, then
// symbol-affinity re-rolls. It returns the ids of one-shot effects spent
// during generation; the caller consumes them only after the balance write
// verifies, so a retried settlement cannot double-spend them.
func GenerateGrid(r Rand, effects map[string]utils.ActiveEffect) (Grid, []string, error) {
	var grid Grid
	chance := SpecialChance(effects)

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			symbol, err := DrawSymbol(r, chance)
			if err != nil {
				return Grid{}, nil, err
			}
			grid[row][col] = symbol
		}
	}

	var consumed []string

	if _, ok := effects[utils.EffectPairToken]; ok {
		if err := forcePair(r, &grid); err != nil {
			return Grid{}, nil, err
		}
		consumed = append(consumed, utils.EffectPairToken)
	}

	if _, ok := effects[utils.EffectWildToken]; ok {
		col, err := r.Intn(3)
		if err != nil {
			return Grid{}, nil, err
		}
		grid[1][col] = utils.WildSymbol
		consumed = append(consumed, utils.EffectWildToken)
	}

	if affinity, ok := effects[utils.EffectAffinity]; ok && affinity.Symbol != "" {
		changed, err := applyAffinity(r, &grid, affinity.Symbol)
		if err != nil {
			return Grid{}, nil, err
		}
		// A use is only charged when a re-roll actually landed.
		if changed {
			consumed = append(consumed, utils.EffectAffinity)
		}
	}

	return grid, consumed, nil
}

// forcePair makes two middle-row cells equal when the row has no pair yet:
// a random donor cell is copied over a random other cell.
func forcePair(r Rand, grid *Grid) error {
	row := grid[1]
	if row[0] == row[1] || row[1] == row[2] || row[0] == row[2] {
		return nil
	}

	donor, err := r.Intn(3)
	if err != nil {
		return err
	}
	offset, err := r.Intn(2)
	if err != nil {
		return err
	}
	recipient := (donor + 1 + offset) % 3
	grid[1][recipient] = grid[1][donor]
	return nil
}

// applyAffinity re-rolls eligible cells toward the buff's target symbol and
// reports whether any cell changed. Special and wild cells are never touched.
func applyAffinity(r Rand, grid *Grid, target string) (bool, error) {
	changed := false
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			cell := grid[row][col]
			if cell == utils.SpecialSymbol || cell == utils.WildSymbol || cell == target {
				continue
			}
			roll, err := r.Float64()
			if err != nil {
				return false, err
			}
			if roll < utils.AffinityRerollOdds {
				grid[row][col] = target
				changed = true
			}
		}
	}
	return changed, nil
}
