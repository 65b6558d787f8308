package httpserver

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/robalobadob/memory/apps/go-server/internal/game"
)

// cardView is what the client sees of a card. Face-down cards carry only
// their id so the client cannot peek at labels or spot the trap.
type cardView struct {
	ID       uuid.UUID `json:"id"`
	Kind     game.Kind `json:"kind,omitempty"`
	Label    string    `json:"label,omitempty"`
	Logo     string    `json:"logo,omitempty"`
	Revealed bool      `json:"isRevealed"`
	Resolved bool      `json:"isResolved"`
}

type roundView struct {
	RoundID          string     `json:"roundId"`
	Mode             string     `json:"mode"`
	Phase            game.Phase `json:"phase"`
	Cards            []cardView `json:"cards"`
	Pending          int        `json:"pending"`
	Matched          int        `json:"matched"`
	Mismatched       int        `json:"mismatched"`
	Score            int        `json:"score"`
	TimeRemaining    int        `json:"timeRemaining"`
	Clock            string     `json:"clock"`
	HasPossibleMoves bool       `json:"hasPossibleMoves"`
	NoMovesLeft      bool       `json:"noMovesLeft"`
}

func (s *Server) buildView(roundID, mode string, st game.RoundState) roundView {
	cards := make([]cardView, len(st.Cards))
	for i, c := range st.Cards {
		cv := cardView{ID: c.ID, Revealed: c.Revealed, Resolved: c.Resolved}
		if c.Revealed || c.Resolved || st.Phase == game.PhaseFinished {
			cv.Kind = c.Kind
			cv.Label = c.Label
			if c.Kind == game.KindRegular {
				cv.Logo = s.logos[c.Label]
			}
		}
		cards[i] = cv
	}
	possible := game.HasPossibleMoves(st.Cards)
	return roundView{
		RoundID:          roundID,
		Mode:             mode,
		Phase:            st.Phase,
		Cards:            cards,
		Pending:          len(st.Pending),
		Matched:          st.Matched,
		Mismatched:       st.Mismatched,
		Score:            st.Score,
		TimeRemaining:    st.TimeRemaining,
		Clock:            formatClock(st.TimeRemaining),
		HasPossibleMoves: possible,
		NoMovesLeft:      st.Phase == game.PhasePlaying && len(st.Pending) == 0 && !possible,
	}
}

// formatClock renders seconds as m:ss.
func formatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
