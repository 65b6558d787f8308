package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNoCategories      = errors.New("game: category list is empty")
	ErrBlankCategory     = errors.New("game: blank category name")
	ErrDuplicateCategory = errors.New("game: duplicate category name")
	ErrReservedCategory  = errors.New("game: category name is reserved for special cards")
)

// InvariantViolation signals a deck that breaks the composition rules. It is
// a programming defect, so Deal panics with it instead of returning it.
type InvariantViolation struct {
	Rule string
}

func (e *InvariantViolation) Error() string {
	return "game: invariant violation: " + e.Rule
}

// Deck deals fresh, shuffled card sets for a fixed list of categories.
// A Deck with a non-nil rng is not safe for concurrent use.
type Deck struct {
	categories []string
	rng        *rand.Rand
}

// NewDeck validates categories and returns a Deck over them.
// If rng is nil the package-level math/rand/v2 source is used.
func NewDeck(categories []string, rng *rand.Rand) (*Deck, error) {
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if strings.TrimSpace(c) == "" {
			return nil, ErrBlankCategory
		}
		if c == WildcardLabel || c == TrapLabel {
			return nil, fmt.Errorf("%w: %q", ErrReservedCategory, c)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCategory, c)
		}
		seen[c] = struct{}{}
	}
	return &Deck{
		categories: append([]string(nil), categories...),
		rng:        rng,
	}, nil
}

// Categories returns a copy of the deck's category names.
func (d *Deck) Categories() []string {
	return append([]string(nil), d.categories...)
}

// Size is the number of cards Deal returns.
func (d *Deck) Size() int { return 2*len(d.categories) + 2 }

// Deal builds two regular cards per category plus one wildcard and one trap,
// then shuffles them with Fisher–Yates.
func (d *Deck) Deal() []Card {
	cards := make([]Card, 0, d.Size())
	for _, label := range d.categories {
		cards = append(cards,
			Card{ID: uuid.New(), Kind: KindRegular, Label: label},
			Card{ID: uuid.New(), Kind: KindRegular, Label: label},
		)
	}
	cards = append(cards,
		Card{ID: uuid.New(), Kind: KindWildcard, Label: WildcardLabel},
		Card{ID: uuid.New(), Kind: KindTrap, Label: TrapLabel},
	)

	swap := func(i, j int) { cards[i], cards[j] = cards[j], cards[i] }
	if d.rng != nil {
		d.rng.Shuffle(len(cards), swap)
	} else {
		rand.Shuffle(len(cards), swap)
	}

	if err := CheckDeck(cards, len(d.categories)); err != nil {
		panic(err)
	}
	return cards
}

// CheckDeck verifies the composition of a freshly dealt deck with pairs label
// pairs: 2*pairs regular cards with each label exactly twice, one wildcard,
// one trap, unique ids, nothing revealed or resolved.
func CheckDeck(cards []Card, pairs int) error {
	if len(cards) != 2*pairs+2 {
		return &InvariantViolation{Rule: fmt.Sprintf("deck has %d cards, want %d", len(cards), 2*pairs+2)}
	}
	ids := make(map[uuid.UUID]struct{}, len(cards))
	labels := make(map[string]int, pairs)
	var wild, trap int
	for _, c := range cards {
		if c.ID == uuid.Nil {
			return &InvariantViolation{Rule: "card without id"}
		}
		if _, dup := ids[c.ID]; dup {
			return &InvariantViolation{Rule: "duplicate card id " + c.ID.String()}
		}
		ids[c.ID] = struct{}{}
		if c.Revealed || c.Resolved {
			return &InvariantViolation{Rule: "dealt card already face-up"}
		}
		switch c.Kind {
		case KindRegular:
			labels[c.Label]++
		case KindWildcard:
			wild++
		case KindTrap:
			trap++
		default:
			return &InvariantViolation{Rule: fmt.Sprintf("unknown card kind %q", c.Kind)}
		}
	}
	if wild != 1 || trap != 1 {
		return &InvariantViolation{Rule: fmt.Sprintf("deck has %d wildcards and %d traps, want 1 each", wild, trap)}
	}
	if len(labels) != pairs {
		return &InvariantViolation{Rule: fmt.Sprintf("deck has %d labels, want %d", len(labels), pairs)}
	}
	for label, n := range labels {
		if n != 2 {
			return &InvariantViolation{Rule: fmt.Sprintf("label %q appears %d times", label, n)}
		}
	}
	return nil
}
