package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// ApplesData starts a climb at one of the configured difficulties.
type ApplesData struct {
	Difficulty uint8 `json:"difficulty"`
}

// ApplesContinueData picks a tile on the next row, or cashes out when Tile
// is omitted or Cashout is set.
type ApplesContinueData struct {
	Tile    *uint8 `json:"tile"`
	Cashout bool   `json:"cashout"`
}

// ApplesState is the revealed rows so far, the tile picked on each, and
// the multiplier the player can cash out at.
type ApplesState struct {
	State             [][]bool        `json:"state"`
	PickedTiles       []uint8         `json:"picked_tiles"`
	CurrentMultiplier decimal.Decimal `json:"current_multiplier"`
}

// ApplesDifficulty sets how many of a row's spaces hide a rotten apple.
type ApplesDifficulty struct {
	Mines       uint8 `json:"mines"`
	TotalSpaces uint8 `json:"total_spaces"`
}

// Apples is a row-by-row climb: each survived row raises the multiplier,
// one rotten apple ends the run. Multipliers is indexed
// [difficulty][rows climbed - 1].
type Apples struct {
	Difficulties []ApplesDifficulty  `json:"difficulties"`
	Multipliers  [][]decimal.Decimal `json:"multipliers"`
}

// applesRow lays out one row's rotten apples from the draw's bits, MSB
// first, forcing placement once the remaining spaces must all be rotten.
func applesRow(rng uint64, difficulty ApplesDifficulty) []bool {
	row := make([]bool, difficulty.TotalSpaces)
	minesLeft := int(difficulty.Mines)

	mask := uint64(0x8000000000000000)
	for i := range row {
		if minesLeft == len(row)-i {
			row[i] = true
			minesLeft--
			continue
		}
		if minesLeft > 0 && rng&mask > 0 {
			row[i] = true
			minesLeft--
		}
		mask >>= 1
	}
	return row
}

func (g *Apples) StartPlaying(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data ApplesData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if int(data.Difficulty) >= len(g.Difficulties) || int(data.Difficulty) >= len(g.Multipliers) {
		return nil
	}

	state := ApplesState{
		State:             [][]bool{},
		PickedTiles:       []uint8{},
		CurrentMultiplier: decimal.Zero,
	}
	raw, err := json.Marshal(&state)
	if err != nil {
		return nil
	}

	return &models.GameResult{
		TotalProfit: decimal.Zero,
		Outcomes:    append([]uint64(nil), randomNumbers...),
		Profits:     []decimal.Decimal{decimal.Zero},
		NumGames:    1,
		Data:        string(raw),
		Finished:    false,
	}
}

func (g *Apples) ContinuePlaying(state *models.GameState, req *models.ContinueGame, randomNumbers []uint64) *models.GameResult {
	var data ApplesContinueData
	if err := json.Unmarshal([]byte(req.Data), &data); err != nil {
		return nil
	}
	var parsed ApplesState
	if err := json.Unmarshal([]byte(state.State), &parsed); err != nil {
		return nil
	}
	var initial ApplesData
	if err := json.Unmarshal([]byte(state.BetInfo), &initial); err != nil {
		return nil
	}
	if int(initial.Difficulty) >= len(g.Difficulties) || int(initial.Difficulty) >= len(g.Multipliers) {
		return nil
	}

	if (data.Tile == nil || data.Cashout) && !parsed.CurrentMultiplier.IsZero() {
		profit := state.Amount.Mul(parsed.CurrentMultiplier)
		return &models.GameResult{
			TotalProfit: profit,
			Outcomes:    make([]uint64, len(parsed.State)),
			Profits:     []decimal.Decimal{profit},
			NumGames:    uint32(len(parsed.State)),
			Data:        state.State,
			Finished:    true,
		}
	}
	if data.Tile == nil {
		return nil
	}

	difficulty := g.Difficulties[initial.Difficulty]
	if *data.Tile >= difficulty.TotalSpaces {
		return nil
	}
	if len(parsed.State) >= len(g.Multipliers[initial.Difficulty]) {
		return nil
	}
	if len(randomNumbers) < 1 {
		return nil
	}

	row := applesRow(randomNumbers[0], difficulty)
	won := !row[*data.Tile]

	parsed.State = append(parsed.State, row)
	parsed.PickedTiles = append(parsed.PickedTiles, *data.Tile)

	if !won {
		parsed.CurrentMultiplier = decimal.Zero
		raw, err := json.Marshal(&parsed)
		if err != nil {
			return nil
		}
		outcomes := make([]uint64, len(parsed.State))
		outcomes[len(outcomes)-1] = 1
		return &models.GameResult{
			TotalProfit: decimal.Zero,
			Outcomes:    outcomes,
			Profits:     []decimal.Decimal{decimal.Zero},
			NumGames:    uint32(len(parsed.State)),
			Data:        string(raw),
			Finished:    true,
		}
	}

	parsed.CurrentMultiplier = g.Multipliers[initial.Difficulty][len(parsed.State)-1]
	raw, err := json.Marshal(&parsed)
	if err != nil {
		return nil
	}

	profit := state.Amount.Mul(parsed.CurrentMultiplier)
	finished := data.Cashout

	return &models.GameResult{
		TotalProfit: profit,
		Outcomes:    make([]uint64, len(parsed.State)),
		Profits:     []decimal.Decimal{profit},
		NumGames:    uint32(len(parsed.State)),
		Data:        string(raw),
		Finished:    finished,
	}
}

func (g *Apples) NumbersPerBet() uint64 {
	return 1
}
