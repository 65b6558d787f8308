package orchestrator

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory/apps/go-server/internal/game"
)

var testCategories = []string{"JS", "Python", "Java", "C#", "Go", "Ruby", "PHP"}

func newTestRound(t *testing.T, render RenderFunc) (*Orchestrator, *ManualScheduler) {
	t.Helper()
	deck, err := game.NewDeck(testCategories, rand.New(rand.NewPCG(3, 5)))
	require.NoError(t, err)
	sched := NewManualScheduler()
	nop := zerolog.Nop()
	o := New(deck, Options{Scheduler: sched, Logger: &nop, Render: render})
	return o, sched
}

func find(t *testing.T, st game.RoundState, kind game.Kind, label string) []game.Card {
	t.Helper()
	var out []game.Card
	for _, c := range st.Cards {
		if c.Kind == kind && (label == "" || c.Label == label) {
			out = append(out, c)
		}
	}
	require.NotEmpty(t, out, "no %s card %q", kind, label)
	return out
}

func TestStartBeginsPlayingAndTicks(t *testing.T) {
	o, sched := newTestRound(t, nil)
	assert.Equal(t, game.PhaseIdle, o.State().Phase)

	o.Start()
	st := o.State()
	assert.Equal(t, game.PhasePlaying, st.Phase)
	assert.Equal(t, game.TimeBudget, st.TimeRemaining)
	require.NoError(t, game.CheckDeck(st.Cards, len(testCategories)))
	assert.True(t, o.HasPossibleMoves())

	sched.Advance(3 * time.Second)
	assert.Equal(t, game.TimeBudget-3, o.State().TimeRemaining)
	assert.Equal(t, 1, sched.Pending(), "exactly one tick armed")
}

func TestClockExpiryEndsRound(t *testing.T) {
	o, sched := newTestRound(t, nil)
	o.Start()

	sched.Advance(time.Duration(game.TimeBudget) * time.Second)
	st := o.State()
	assert.Equal(t, game.PhaseFinished, st.Phase)
	assert.Zero(t, st.TimeRemaining)
	assert.Zero(t, st.Score)
	assert.Zero(t, sched.Pending())

	sched.Advance(10 * time.Second)
	assert.Equal(t, st, o.State())
}

func TestMatchResolvesAfterRevealDelay(t *testing.T) {
	o, sched := newTestRound(t, nil)
	o.Start()
	pair := find(t, o.State(), game.KindRegular, "Go")

	require.True(t, o.Click(pair[0].ID))
	require.True(t, o.Click(pair[1].ID))
	assert.Len(t, o.State().Pending, 2)

	sched.Advance(500 * time.Millisecond)
	assert.Zero(t, o.State().Matched, "nothing resolves before the delay")

	sched.Advance(500 * time.Millisecond)
	st := o.State()
	assert.Equal(t, 1, st.Matched)
	assert.Equal(t, 100, st.Score)
	assert.Empty(t, st.Pending)
	c, _ := st.Card(pair[0].ID)
	assert.True(t, c.Resolved)
}

func TestMismatchFlipsBack(t *testing.T) {
	o, sched := newTestRound(t, nil)
	o.Start()
	js := find(t, o.State(), game.KindRegular, "JS")[0]
	ruby := find(t, o.State(), game.KindRegular, "Ruby")[0]

	require.True(t, o.Click(js.ID))
	require.True(t, o.Click(ruby.ID))
	sched.Advance(time.Second)

	st := o.State()
	assert.Equal(t, 1, st.Mismatched)
	assert.Zero(t, st.Score)
	assert.Empty(t, st.Pending)
	for _, id := range []uuid.UUID{js.ID, ruby.ID} {
		c, _ := st.Card(id)
		assert.False(t, c.Revealed)
	}

	assert.True(t, o.Click(js.ID), "flipped card can be revealed again")
}

func TestClicksRejected(t *testing.T) {
	o, _ := newTestRound(t, nil)
	assert.False(t, o.Click(uuid.New()), "idle round")

	o.Start()
	st := o.State()
	assert.False(t, o.Click(uuid.New()), "unknown card")

	require.True(t, o.Click(st.Cards[0].ID))
	assert.False(t, o.Click(st.Cards[0].ID), "already revealed")
	require.True(t, o.Click(st.Cards[1].ID))
	assert.False(t, o.Click(st.Cards[2].ID), "two already pending")
}

func TestTrapResetsBoard(t *testing.T) {
	o, sched := newTestRound(t, nil)
	o.Start()
	st := o.State()
	pair := find(t, st, game.KindRegular, "Go")
	trap := find(t, st, game.KindTrap, "")[0]
	wild := find(t, st, game.KindWildcard, "")[0]

	o.Click(pair[0].ID)
	o.Click(pair[1].ID)
	sched.Advance(time.Second)
	require.Equal(t, 1, o.State().Matched)

	require.True(t, o.Click(trap.ID))
	require.True(t, o.Click(wild.ID))
	sched.Advance(time.Second)

	st = o.State()
	assert.Zero(t, st.Matched)
	assert.Equal(t, 100, st.Score)
	assert.Empty(t, st.Pending)
	for _, c := range st.Cards {
		assert.False(t, c.Revealed)
		assert.False(t, c.Resolved)
	}
	assert.Equal(t, game.PhasePlaying, st.Phase)
}

func TestRestartDropsStaleCallbacks(t *testing.T) {
	o, sched := newTestRound(t, nil)
	o.Start()
	pair := find(t, o.State(), game.KindRegular, "Go")
	o.Click(pair[0].ID)
	o.Click(pair[1].ID)

	o.Start()
	assert.Equal(t, 1, sched.Pending(), "only the new round's tick remains")
	sched.Advance(time.Second)

	st := o.State()
	assert.Equal(t, uint64(2), st.Epoch)
	assert.Zero(t, st.Matched)
	assert.Zero(t, st.Score)
	assert.Empty(t, st.Pending)
	assert.Equal(t, game.TimeBudget-1, st.TimeRemaining)
}

func TestStopCancelsEverything(t *testing.T) {
	var renders int
	o, sched := newTestRound(t, func(game.RoundState) { renders++ })
	o.Start()
	st := o.State()
	o.Click(st.Cards[0].ID)
	o.Click(st.Cards[1].ID)
	before := o.State()
	seen := renders

	o.Stop()
	assert.Zero(t, sched.Pending())
	assert.False(t, o.Click(st.Cards[2].ID))
	o.Start()
	sched.Advance(time.Minute)

	assert.Equal(t, before, o.State())
	assert.Equal(t, seen, renders)
}

func TestRenderFanOut(t *testing.T) {
	var fromOpts, fromSub []game.RoundState
	o, sched := newTestRound(t, func(s game.RoundState) { fromOpts = append(fromOpts, s) })
	cancel := o.Subscribe(func(s game.RoundState) { fromSub = append(fromSub, s) })
	require.Len(t, fromSub, 1, "current snapshot on subscribe")
	assert.Equal(t, game.PhaseIdle, fromSub[0].Phase)
	assert.Empty(t, fromOpts)

	o.Start()
	require.Len(t, fromSub, 2)
	assert.Equal(t, game.PhasePlaying, fromSub[1].Phase)

	card := o.State().Cards[0]
	o.Click(card.ID)
	require.Len(t, fromSub, 3)
	assert.Len(t, fromSub[2].Pending, 1)

	fromSub[2].Cards[0].Label = "mutated"
	assert.NotEqual(t, "mutated", o.State().Cards[0].Label, "subscribers get copies")

	cancel()
	sched.Advance(time.Second)
	assert.Len(t, fromSub, 3)
	assert.Len(t, fromOpts, 3)
}

func TestLastSeenTracksActivity(t *testing.T) {
	deck, err := game.NewDeck(testCategories, nil)
	require.NoError(t, err)
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	nop := zerolog.Nop()
	o := New(deck, Options{
		Scheduler: NewManualScheduler(),
		Logger:    &nop,
		Now:       func() time.Time { return clock },
	})
	assert.Equal(t, clock, o.CreatedAt)
	assert.NotEmpty(t, o.ID)

	clock = clock.Add(time.Minute)
	o.Start()
	assert.Equal(t, clock, o.LastSeen())

	clock = clock.Add(time.Minute)
	o.Touch()
	assert.Equal(t, clock, o.LastSeen())
	assert.Equal(t, clock.Add(-2*time.Minute), o.CreatedAt)
}
