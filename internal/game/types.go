// apps/go-server/internal/game/types.go
//
// Core type definitions for the memory-match round engine.
// Defines:
//   - Kind:       regular / wildcard / trap card kinds.
//   - Phase:      idle → playing → finished.
//   - Card:       one grid cell, identified by a UUID.
//   - RoundState: everything the state machine owns for a single round.
//   - Event:      the closed set of inputs accepted by Next.

package game

import "github.com/google/uuid"

// Kind tells regular cards apart from the two special cards.
type Kind string

const (
	KindRegular  Kind = "regular"
	KindWildcard Kind = "wildcard"
	KindTrap     Kind = "trap"
)

// Sentinel labels carried by the special cards.
const (
	WildcardLabel = "Wild"
	TrapLabel     = "Trap"
)

// Phase is the coarse lifecycle of a round.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Scoring and clock constants.
const (
	TimeBudget       = 180 // seconds per round
	MatchPoints      = 100
	MismatchPenalty  = 20
	TimeBonusPerSec  = 10
	DefaultPairCount = 7
	maxPending       = 2
)

// Card is a single cell of the grid.
type Card struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	Label    string    `json:"label"`
	Revealed bool      `json:"isRevealed"` // face currently showing
	Resolved bool      `json:"isResolved"` // permanently cleared
}

// RoundState holds the state of one round. It is only ever replaced through
// Next; callers receive deep copies.
type RoundState struct {
	Epoch         uint64      `json:"epoch"` // bumped by every Start
	Cards         []Card      `json:"cards"`
	Pending       []uuid.UUID `json:"pending"` // face-up, awaiting resolution, in reveal order
	Settled       bool        `json:"settled"` // pending pair already judged a mismatch
	Matched       int         `json:"matched"`
	Mismatched    int         `json:"mismatched"`
	TimeRemaining int         `json:"timeRemaining"`
	Phase         Phase       `json:"phase"`
	Score         int         `json:"score"`
}

// NewRoundState returns the initial Idle state.
func NewRoundState() RoundState {
	return RoundState{
		Cards:         []Card{},
		Pending:       []uuid.UUID{},
		TimeRemaining: TimeBudget,
		Phase:         PhaseIdle,
	}
}

// Clone returns a deep copy of s.
func (s RoundState) Clone() RoundState {
	out := s
	out.Cards = append(make([]Card, 0, len(s.Cards)), s.Cards...)
	out.Pending = append(make([]uuid.UUID, 0, maxPending), s.Pending...)
	return out
}

// Card looks up a card by id.
func (s RoundState) Card(id uuid.UUID) (Card, bool) {
	if i := s.index(id); i >= 0 {
		return s.Cards[i], true
	}
	return Card{}, false
}

// PendingCards returns the pending cards in reveal order.
func (s RoundState) PendingCards() []Card {
	out := make([]Card, 0, len(s.Pending))
	for _, id := range s.Pending {
		if c, ok := s.Card(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// PendingHasTrap reports whether a trap is among the pending cards.
func (s RoundState) PendingHasTrap() bool {
	for _, c := range s.PendingCards() {
		if c.Kind == KindTrap {
			return true
		}
	}
	return false
}

func (s RoundState) index(id uuid.UUID) int {
	for i := range s.Cards {
		if s.Cards[i].ID == id {
			return i
		}
	}
	return -1
}

// Event is one input to the state machine. The set is closed: only the types
// declared in this file implement it.
type Event interface {
	eventName() string
}

// Start begins a new round. Cards is the dealt deck; Machine.Dispatch fills
// it in when empty.
type Start struct{ Cards []Card }

// RevealCard turns a face-down card up.
type RevealCard struct{ CardID uuid.UUID }

// ResolveTurn judges the two pending cards.
type ResolveTurn struct{}

// HandleTrapEffect applies the trap's punitive reset.
type HandleTrapEffect struct{}

// FlipBack turns unresolved pending cards face-down again.
type FlipBack struct{}

// Tick advances the clock by one second.
type Tick struct{}

// EndGame finishes the round.
type EndGame struct{}

func (Start) eventName() string            { return "start" }
func (RevealCard) eventName() string       { return "reveal_card" }
func (ResolveTurn) eventName() string      { return "resolve_turn" }
func (HandleTrapEffect) eventName() string { return "handle_trap_effect" }
func (FlipBack) eventName() string         { return "flip_back" }
func (Tick) eventName() string             { return "tick" }
func (EndGame) eventName() string          { return "end_game" }

// EventName returns a stable name for ev, used in logs and metrics.
func EventName(ev Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.eventName()
}
