// apps/go-server/internal/game/engine.go
//
// State machine for a single memory-match round.
// Responsibilities:
//   - Next: the pure transition function (RoundState, Event) → RoundState.
//   - Turn resolution: trap precedence, wildcard, label match, mismatch.
//   - Scoring: +100 per match, −20 per mismatch (floored at 0), 10 per
//     remaining second when the round ends while playing.
//   - Machine: owns the current state and deals decks for Start.
//
// Notes:
//   - Invalid events are no-ops; Next never fails.
//   - Win and clock expiry are detected by the caller (see AllResolved);
//     the machine never triggers EndGame by itself.

package game

import "github.com/google/uuid"

// Next applies ev to s and returns the resulting state. s is never mutated.
func Next(s RoundState, ev Event) RoundState {
	switch e := ev.(type) {
	case Start:
		return start(s, e)
	case RevealCard:
		return reveal(s, e)
	case ResolveTurn:
		return resolve(s)
	case HandleTrapEffect:
		return trap(s)
	case FlipBack:
		return flipBack(s)
	case Tick:
		return tick(s)
	case EndGame:
		return endGame(s)
	default:
		return s
	}
}

func start(s RoundState, e Start) RoundState {
	return RoundState{
		Epoch:         s.Epoch + 1,
		Cards:         append(make([]Card, 0, len(e.Cards)), e.Cards...),
		Pending:       []uuid.UUID{},
		TimeRemaining: TimeBudget,
		Phase:         PhasePlaying,
	}
}

func reveal(s RoundState, e RevealCard) RoundState {
	if s.Phase != PhasePlaying || len(s.Pending) >= maxPending {
		return s
	}
	i := s.index(e.CardID)
	if i < 0 || s.Cards[i].Revealed || s.Cards[i].Resolved {
		return s
	}
	out := s.Clone()
	out.Cards[i].Revealed = true
	out.Pending = append(out.Pending, e.CardID)
	return out
}

func resolve(s RoundState) RoundState {
	if s.Phase != PhasePlaying || len(s.Pending) != maxPending || s.Settled {
		return s
	}
	pair := s.PendingCards()
	if len(pair) != maxPending {
		return s
	}
	a, b := pair[0], pair[1]

	switch {
	case a.Kind == KindTrap || b.Kind == KindTrap:
		// Only HandleTrapEffect settles a pair containing the trap.
		return s
	case a.Kind == KindWildcard || b.Kind == KindWildcard:
		out := s.Clone()
		for i := range out.Cards {
			if out.Cards[i].ID == a.ID || out.Cards[i].ID == b.ID {
				out.Cards[i].Revealed, out.Cards[i].Resolved = true, true
			}
		}
		return scoreMatch(out)
	case a.Label == b.Label:
		out := s.Clone()
		for i := range out.Cards {
			if out.Cards[i].Label == a.Label {
				out.Cards[i].Revealed, out.Cards[i].Resolved = true, true
			}
		}
		return scoreMatch(out)
	default:
		out := s.Clone()
		out.Mismatched++
		out.Score = max(0, out.Score-MismatchPenalty)
		out.Settled = true
		return out
	}
}

func scoreMatch(s RoundState) RoundState {
	s.Matched++
	s.Score += MatchPoints
	s.Pending = s.Pending[:0]
	return s
}

func trap(s RoundState) RoundState {
	if s.Phase != PhasePlaying || len(s.Pending) != maxPending || !s.PendingHasTrap() {
		return s
	}
	out := s.Clone()
	for i := range out.Cards {
		out.Cards[i].Revealed, out.Cards[i].Resolved = false, false
	}
	out.Matched = 0
	out.Pending = out.Pending[:0]
	out.Settled = false
	return out
}

func flipBack(s RoundState) RoundState {
	if s.Phase != PhasePlaying || len(s.Pending) == 0 {
		return s
	}
	out := s.Clone()
	for _, id := range s.Pending {
		if i := out.index(id); i >= 0 && !out.Cards[i].Resolved {
			out.Cards[i].Revealed = false
		}
	}
	out.Pending = out.Pending[:0]
	out.Settled = false
	return out
}

func tick(s RoundState) RoundState {
	if s.Phase != PhasePlaying || s.TimeRemaining <= 0 {
		return s
	}
	out := s.Clone()
	out.TimeRemaining--
	return out
}

func endGame(s RoundState) RoundState {
	out := s.Clone()
	if s.Phase == PhasePlaying {
		out.Score += s.TimeRemaining * TimeBonusPerSec
	}
	out.Phase = PhaseFinished
	return out
}

// AllResolved reports whether every card of a dealt round is resolved.
func AllResolved(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	for _, c := range cards {
		if !c.Resolved {
			return false
		}
	}
	return true
}

// Machine holds the current RoundState and deals decks for Start events.
// It is not safe for concurrent use; the orchestrator serializes access.
type Machine struct {
	deck  *Deck
	state RoundState
}

// NewMachine returns a Machine in the Idle phase.
func NewMachine(deck *Deck) *Machine {
	return &Machine{deck: deck, state: NewRoundState()}
}

// Dispatch applies one event, replacing the current state. A Start without
// cards is dealt from the machine's deck.
func (m *Machine) Dispatch(ev Event) {
	if st, ok := ev.(Start); ok && len(st.Cards) == 0 && m.deck != nil {
		ev = Start{Cards: m.deck.Deal()}
	}
	m.state = Next(m.state, ev)
}

// State returns a deep copy of the current state.
func (m *Machine) State() RoundState { return m.state.Clone() }

// Epoch returns the current round epoch without copying the state.
func (m *Machine) Epoch() uint64 { return m.state.Epoch }

// Phase returns the current phase without copying the state.
func (m *Machine) Phase() Phase { return m.state.Phase }
