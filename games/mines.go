package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

const minesGridSize = 25

// MinesData starts a game: mine count, the tiles to reveal immediately and
// whether to cash out right after.
type MinesData struct {
	NumMines uint32              `json:"num_mines"`
	Tiles    [minesGridSize]bool `json:"tiles"`
	Cashout  bool                `json:"cashout"`
}

// MinesContinueData reveals more tiles or, with Tiles omitted, cashes out
// at the current multiplier.
type MinesContinueData struct {
	Tiles   *[minesGridSize]bool `json:"tiles"`
	Cashout bool                 `json:"cashout"`
}

// MinesState is the persisted grid: revealed tiles, mine positions found so
// far, and the multiplier the player can cash out at.
type MinesState struct {
	State             [minesGridSize]bool `json:"state"`
	Mines             [minesGridSize]bool `json:"mines"`
	GameNum           uint64              `json:"game_num"`
	CurrentMultiplier decimal.Decimal     `json:"current_multiplier"`
}

// Mines is a 5x5 reveal game. Multipliers is keyed by mine count and
// indexed by total revealed tiles; MaxReveal caps reveals per mine count.
type Mines struct {
	Multipliers map[uint64][]decimal.Decimal `json:"multipliers"`
	MaxReveal   []uint32                     `json:"max_reveal"`
}

// isGem decides whether a reveal survives. The survival chance is the
// share of unrevealed tiles that hide no mine, in basis points.
func isGem(tilesLeft, minesLeft int, rng uint64) bool {
	winChance := 10000 - (minesLeft*10000)/tilesLeft
	return int(rng%10000) < winChance
}

func (g *Mines) multiplierFor(numMines uint32, revealed int) (decimal.Decimal, bool) {
	mults, ok := g.Multipliers[uint64(numMines)]
	if !ok || revealed < 1 || revealed > len(mults) {
		return decimal.Zero, false
	}
	return mults[revealed-1], true
}

func marshalMinesState(state *MinesState) (string, bool) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (g *Mines) StartPlaying(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	var data MinesData
	if err := json.Unmarshal([]byte(bet.Data), &data); err != nil {
		return nil
	}
	if data.NumMines == 0 || data.NumMines > minesGridSize-1 {
		return nil
	}
	if len(randomNumbers) < minesGridSize {
		return nil
	}

	picked := 0
	for _, tile := range data.Tiles {
		if tile {
			picked++
		}
	}
	if picked == 0 {
		return nil
	}

	state := MinesState{GameNum: 1}
	revealed := 0
	minesLeft := int(data.NumMines)
	won := true

	for i := 0; i < minesGridSize; i++ {
		if minesLeft == 0 || minesGridSize-revealed == minesLeft {
			if data.Tiles[i] {
				state.State[i] = true
			}
			continue
		}

		if data.Tiles[i] {
			if !isGem(minesGridSize-revealed, minesLeft, randomNumbers[i]) {
				minesLeft--
				state.Mines[i] = true
				won = false
			}
			state.State[i] = true
			revealed++
		}
	}

	if !won {
		state.CurrentMultiplier = decimal.Zero
		raw, ok := marshalMinesState(&state)
		if !ok {
			return nil
		}
		return &models.GameResult{
			TotalProfit: decimal.Zero,
			Outcomes:    append([]uint64(nil), randomNumbers...),
			Profits:     []decimal.Decimal{decimal.Zero},
			NumGames:    1,
			Data:        raw,
			Finished:    true,
		}
	}

	multiplier, ok := g.multiplierFor(data.NumMines, revealed)
	if !ok {
		return nil
	}
	state.CurrentMultiplier = multiplier

	raw, ok := marshalMinesState(&state)
	if !ok {
		return nil
	}

	profit := multiplier.Mul(bet.Amount)
	return &models.GameResult{
		TotalProfit: profit,
		Outcomes:    append([]uint64(nil), randomNumbers...),
		Profits:     []decimal.Decimal{profit},
		NumGames:    1,
		Data:        raw,
		Finished:    data.Cashout,
	}
}

func (g *Mines) ContinuePlaying(state *models.GameState, req *models.ContinueGame, randomNumbers []uint64) *models.GameResult {
	var data MinesContinueData
	if err := json.Unmarshal([]byte(req.Data), &data); err != nil {
		return nil
	}
	var parsed MinesState
	if err := json.Unmarshal([]byte(state.State), &parsed); err != nil {
		return nil
	}
	var initial MinesData
	if err := json.Unmarshal([]byte(state.BetInfo), &initial); err != nil {
		return nil
	}

	if data.Tiles == nil {
		// Cashout at the multiplier already earned.
		profit := parsed.CurrentMultiplier.Mul(state.Amount)
		return &models.GameResult{
			TotalProfit: profit,
			Outcomes:    append([]uint64(nil), randomNumbers...),
			Profits:     []decimal.Decimal{profit},
			NumGames:    uint32(parsed.GameNum),
			Data:        state.State,
			Finished:    true,
		}
	}

	if len(randomNumbers) < minesGridSize {
		return nil
	}

	picked := data.Tiles
	prevRevealed := 0
	toReveal := 0
	for i := 0; i < minesGridSize; i++ {
		if picked[i] {
			if parsed.State[i] {
				return nil
			}
			toReveal++
		}
		if parsed.State[i] {
			prevRevealed++
		}
	}

	if toReveal == 0 {
		return nil
	}
	if int(initial.NumMines) >= len(g.MaxReveal) {
		return nil
	}
	if toReveal+prevRevealed > int(g.MaxReveal[initial.NumMines]) {
		return nil
	}

	revealed := prevRevealed
	minesLeft := int(initial.NumMines)
	won := true

	for i := 0; i < minesGridSize; i++ {
		if minesLeft == 0 || minesGridSize-revealed == minesLeft {
			if picked[i] {
				parsed.State[i] = true
			}
			continue
		}

		if picked[i] {
			if !isGem(minesGridSize-revealed, minesLeft, randomNumbers[i]) {
				minesLeft--
				parsed.Mines[i] = true
				won = false
			}
			parsed.State[i] = true
			revealed++
		}
	}

	parsed.GameNum++

	if !won {
		parsed.CurrentMultiplier = decimal.Zero
		raw, ok := marshalMinesState(&parsed)
		if !ok {
			return nil
		}
		return &models.GameResult{
			TotalProfit: decimal.Zero,
			Outcomes:    append([]uint64(nil), randomNumbers...),
			Profits:     []decimal.Decimal{decimal.Zero},
			NumGames:    uint32(parsed.GameNum),
			Data:        raw,
			Finished:    true,
		}
	}

	multiplier, ok := g.multiplierFor(initial.NumMines, revealed)
	if !ok {
		return nil
	}
	parsed.CurrentMultiplier = multiplier

	raw, okState := marshalMinesState(&parsed)
	if !okState {
		return nil
	}

	profit := multiplier.Mul(state.Amount)
	return &models.GameResult{
		TotalProfit: profit,
		Outcomes:    append([]uint64(nil), randomNumbers...),
		Profits:     []decimal.Decimal{profit},
		NumGames:    uint32(parsed.GameNum),
		Data:        raw,
		Finished:    data.Cashout,
	}
}

func (g *Mines) NumbersPerBet() uint64 {
	return minesGridSize
}
