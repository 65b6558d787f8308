// apps/go-server/internal/orchestrator/orchestrator.go
//
// Turn orchestration for one player's round.
// Responsibilities:
//   - Serialize every event for a round behind one mutex.
//   - Drive the clock (Tick every TickInterval) and the reveal delay that
//     separates the second reveal from turn resolution.
//   - Detect clearance and clock expiry and issue EndGame.
//   - Fan out snapshots to render subscribers after every state change.
//
// Notes:
//   - Scheduled callbacks carry the round epoch and are dropped when the
//     epoch moved on, the round left Playing, or the orchestrator stopped.
//   - Render callbacks run with the lock held. They must not block and must
//     not call back into the orchestrator.

package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/apps/go-server/internal/game"
	"github.com/robalobadob/memory/apps/go-server/internal/metrics"
)

const (
	DefaultRevealDelay  = time.Second
	DefaultTickInterval = time.Second
)

// RenderFunc receives a deep copy of the round after each change.
type RenderFunc func(game.RoundState)

// Options configures an Orchestrator. Zero values fall back to defaults.
type Options struct {
	Mode         string
	RevealDelay  time.Duration
	TickInterval time.Duration
	Scheduler    Scheduler
	Logger       *zerolog.Logger
	Now          func() time.Time
	Render       RenderFunc
}

// Orchestrator owns a game.Machine and everything time-driven around it.
type Orchestrator struct {
	ID        string
	Mode      string
	CreatedAt time.Time

	mu           sync.Mutex
	machine      *game.Machine
	sched        Scheduler
	revealDelay  time.Duration
	tickInterval time.Duration
	now          func() time.Time
	log          zerolog.Logger

	lastSeen time.Time
	stopped  bool
	timerSeq uint64
	timers   map[uint64]Timer
	subSeq   int
	subs     map[int]RenderFunc
}

// New returns an idle Orchestrator dealing from deck.
func New(deck *game.Deck, opts Options) *Orchestrator {
	if opts.RevealDelay <= 0 {
		opts.RevealDelay = DefaultRevealDelay
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Scheduler == nil {
		opts.Scheduler = WallClock
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	id := uuid.NewString()
	now := opts.Now()
	o := &Orchestrator{
		ID:           id,
		Mode:         opts.Mode,
		CreatedAt:    now,
		machine:      game.NewMachine(deck),
		sched:        opts.Scheduler,
		revealDelay:  opts.RevealDelay,
		tickInterval: opts.TickInterval,
		now:          opts.Now,
		log:          base.With().Str("round", id).Logger(),
		lastSeen:     now,
		timers:       make(map[uint64]Timer),
		subs:         make(map[int]RenderFunc),
	}
	if opts.Render != nil {
		o.subs[0] = opts.Render
		o.subSeq = 1
	}
	return o
}

// Start deals a fresh deck and begins (or restarts) the round.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		o.log.Warn().Msg("start on stopped round ignored")
		return
	}
	o.lastSeen = o.now()

	o.cancelTimers()
	o.machine.Dispatch(game.Start{})
	epoch := o.machine.Epoch()
	metrics.RoundsStarted.Inc()
	o.log.Info().Uint64("epoch", epoch).Str("mode", o.Mode).Msg("round started")

	o.scheduleTick(epoch)
	o.render()
}

// Click reveals a card. It reports whether the reveal was accepted.
func (o *Orchestrator) Click(cardID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return false
	}
	o.lastSeen = o.now()

	before := len(o.machine.State().Pending)
	o.machine.Dispatch(game.RevealCard{CardID: cardID})
	st := o.machine.State()
	if len(st.Pending) == before {
		o.log.Debug().Str("card", cardID.String()).Msg("reveal ignored")
		return false
	}
	o.log.Debug().Str("card", cardID.String()).Int("pending", len(st.Pending)).Msg("card revealed")

	if len(st.Pending) == 2 {
		o.schedule(o.revealDelay, st.Epoch, o.settleTurn)
	}
	o.render()
	return true
}

// State returns a deep copy of the current round.
func (o *Orchestrator) State() game.RoundState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.State()
}

// HasPossibleMoves reports whether a match can still be made this round.
func (o *Orchestrator) HasPossibleMoves() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return game.HasPossibleMoves(o.machine.State().Cards)
}

// Subscribe calls fn with the current snapshot, then after every change,
// until the returned cancel func is called.
func (o *Orchestrator) Subscribe(fn RenderFunc) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.subSeq
	o.subSeq++
	o.subs[id] = fn
	fn(o.machine.State())
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// Touch marks the round as in use.
func (o *Orchestrator) Touch() {
	o.mu.Lock()
	o.lastSeen = o.now()
	o.mu.Unlock()
}

// LastSeen is the time of the last Start, Click or Touch.
func (o *Orchestrator) LastSeen() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSeen
}

// Stop cancels all timers and drops subscribers. A stopped orchestrator
// ignores further input.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}
	o.stopped = true
	o.cancelTimers()
	clear(o.subs)
	o.log.Debug().Msg("round stopped")
}

// settleTurn runs after the reveal delay with two cards pending.
func (o *Orchestrator) settleTurn() {
	before := o.machine.State()
	if len(before.Pending) != 2 {
		return
	}

	if before.PendingHasTrap() {
		o.machine.Dispatch(game.HandleTrapEffect{})
		metrics.Turns.WithLabelValues(metrics.OutcomeTrap).Inc()
		o.log.Info().Int("score", before.Score).Msg("trap sprung, board reset")
		o.render()
		return
	}

	o.machine.Dispatch(game.ResolveTurn{})
	after := o.machine.State()
	switch {
	case after.Matched > before.Matched:
		metrics.Turns.WithLabelValues(metrics.OutcomeMatch).Inc()
		o.log.Debug().Int("score", after.Score).Msg("match")
	case after.Mismatched > before.Mismatched:
		metrics.Turns.WithLabelValues(metrics.OutcomeMismatch).Inc()
		o.log.Debug().Int("score", after.Score).Msg("mismatch")
		o.machine.Dispatch(game.FlipBack{})
	}

	if game.AllResolved(o.machine.State().Cards) {
		o.finish(metrics.ReasonCleared)
		return
	}
	o.render()
}

func (o *Orchestrator) onTick() {
	o.machine.Dispatch(game.Tick{})
	if o.machine.State().TimeRemaining <= 0 {
		o.finish(metrics.ReasonTimeout)
		return
	}
	o.scheduleTick(o.machine.Epoch())
	o.render()
}

func (o *Orchestrator) scheduleTick(epoch uint64) {
	o.schedule(o.tickInterval, epoch, o.onTick)
}

// finish ends the round. Caller holds mu.
func (o *Orchestrator) finish(reason string) {
	o.cancelTimers()
	o.machine.Dispatch(game.EndGame{})
	st := o.machine.State()
	metrics.RoundsFinished.WithLabelValues(reason).Inc()
	o.log.Info().
		Str("reason", reason).
		Int("score", st.Score).
		Int("matched", st.Matched).
		Int("mismatched", st.Mismatched).
		Msg("round finished")
	o.render()
}

// schedule arms fn after d, tagged with epoch. Caller holds mu.
func (o *Orchestrator) schedule(d time.Duration, epoch uint64, fn func()) {
	o.timerSeq++
	id := o.timerSeq
	o.timers[id] = o.sched.AfterFunc(d, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.timers, id)
		if o.stopped || o.machine.Epoch() != epoch || o.machine.Phase() != game.PhasePlaying {
			o.log.Warn().Uint64("epoch", epoch).Msg("stale callback dropped")
			return
		}
		fn()
	})
}

// cancelTimers stops every outstanding timer. Caller holds mu.
func (o *Orchestrator) cancelTimers() {
	for id, t := range o.timers {
		t.Stop()
		delete(o.timers, id)
	}
}

// render pushes a snapshot to every subscriber. Caller holds mu.
func (o *Orchestrator) render() {
	if len(o.subs) == 0 {
		return
	}
	st := o.machine.State()
	for _, fn := range o.subs {
		fn(st.Clone())
	}
}
