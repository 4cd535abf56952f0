package games

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"fairbet/models"
)

// Card is a playing card. Number runs 1 (ace) through 13 (king).
type Card struct {
	Number uint8 `json:"number"`
	Suit   uint8 `json:"suit"`
}

// PokerContinueData flags which hand positions to replace on the draw. A
// nil ToReplace keeps the dealt hand and settles it as is.
type PokerContinueData struct {
	ToReplace *[5]bool `json:"to_replace"`
}

// PokerState is the dealt hand awaiting the replace decision.
type PokerState struct {
	CardsInHand [5]Card `json:"cards_in_hand"`
}

// Hand categories, weakest to strongest, indexing Multipliers.
const (
	pokerNothing = iota
	pokerPairJacks
	pokerTwoPair
	pokerThreeOfAKind
	pokerStraight
	pokerFlush
	pokerFullHouse
	pokerFourOfAKind
	pokerStraightFlush
	pokerRoyalFlush
)

// Poker is five-card draw against a payout table. Multipliers is indexed by
// hand category.
type Poker struct {
	InitialDeck []Card              `json:"initial_deck"`
	Multipliers [10]decimal.Decimal `json:"multipliers"`
}

// pickCard swap-removes a card chosen by the draw.
func pickCard(rng uint64, deck *[]Card) Card {
	position := int(rng % uint64(len(*deck)))
	card := (*deck)[position]
	last := len(*deck) - 1
	(*deck)[position] = (*deck)[last]
	*deck = (*deck)[:last]
	return card
}

// determineHand classifies a five-card hand into one of the categories
// above.
func determineHand(cards [5]Card) int {
	sort.Slice(cards[:], func(i, j int) bool {
		return cards[i].Number > cards[j].Number
	})

	flush := true
	for i := 1; i < 5; i++ {
		if cards[i].Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	// Ace-low straights come out consecutive when sorted descending; the
	// ace-high straight needs the wheel check.
	straight := true
	for i := 0; i < 4; i++ {
		if cards[i].Number != cards[i+1].Number+1 {
			straight = false
			break
		}
	}
	aceHigh := cards[0].Number == 13 && cards[1].Number == 12 &&
		cards[2].Number == 11 && cards[3].Number == 10 && cards[4].Number == 1

	if flush && aceHigh {
		return pokerRoyalFlush
	}
	if flush && straight {
		return pokerStraightFlush
	}

	counts := make(map[uint8]int, 5)
	for _, card := range cards {
		counts[card.Number]++
	}

	pairs := 0
	var pairNumber uint8
	trips := false
	for number, count := range counts {
		switch count {
		case 4:
			return pokerFourOfAKind
		case 3:
			trips = true
		case 2:
			pairs++
			pairNumber = number
		}
	}

	switch {
	case trips && pairs == 1:
		return pokerFullHouse
	case flush:
		return pokerFlush
	case straight || aceHigh:
		return pokerStraight
	case trips:
		return pokerThreeOfAKind
	case pairs == 2:
		return pokerTwoPair
	case pairs == 1 && (pairNumber > 10 || pairNumber == 1):
		return pokerPairJacks
	default:
		return pokerNothing
	}
}

func (g *Poker) StartPlaying(bet *models.PropagatedBet, randomNumbers []uint64) *models.GameResult {
	if len(g.InitialDeck) < 5 || len(randomNumbers) < 5 {
		return nil
	}

	deck := append([]Card(nil), g.InitialDeck...)
	var state PokerState
	for i := 0; i < 5; i++ {
		state.CardsInHand[i] = pickCard(randomNumbers[i], &deck)
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

func (g *Poker) ContinuePlaying(state *models.GameState, req *models.ContinueGame, randomNumbers []uint64) *models.GameResult {
	var data PokerContinueData
	if err := json.Unmarshal([]byte(req.Data), &data); err != nil {
		return nil
	}
	var parsed PokerState
	if err := json.Unmarshal([]byte(state.State), &parsed); err != nil {
		return nil
	}

	if data.ToReplace != nil {
		if len(g.InitialDeck) < 5 || len(randomNumbers) < 5 {
			return nil
		}

		// Rebuild the deck without the cards the player keeps, then draw
		// replacements for the flagged positions.
		deck := append([]Card(nil), g.InitialDeck...)
		for i, replace := range data.ToReplace {
			if replace {
				continue
			}
			for j, card := range deck {
				if card == parsed.CardsInHand[i] {
					deck[j] = deck[len(deck)-1]
					deck = deck[:len(deck)-1]
					break
				}
			}
		}
		for i, replace := range data.ToReplace {
			if !replace {
				continue
			}
			if len(deck) == 0 {
				return nil
			}
			parsed.CardsInHand[i] = pickCard(randomNumbers[i], &deck)
		}
	}

	category := determineHand(parsed.CardsInHand)
	profit := state.Amount.Mul(g.Multipliers[category])

	raw, err := json.Marshal(&parsed)
	if err != nil {
		return nil
	}

	return &models.GameResult{
		TotalProfit: profit,
		Outcomes:    []uint64{uint64(category)},
		Profits:     []decimal.Decimal{profit},
		NumGames:    1,
		Data:        string(raw),
		Finished:    true,
	}
}

func (g *Poker) NumbersPerBet() uint64 {
	return 5
}
