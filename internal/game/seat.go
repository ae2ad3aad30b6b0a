package game

import (
	"errors"
	"slices"
	"sync"

	"github.com/lox/skatbot/internal/deck"
)

// ErrHumanQuit is returned by interactive seats when the person at the
// keyboard asks to leave. The engine passes it through unchanged.
var ErrHumanQuit = errors.New("game: human player quit")

// Seat is anything that can occupy one of the three places at the table.
//
// The engine calls Observe before every decision, then QueryPolicy until it
// gets a card it accepts. Rejected attempts are reported through Reject, the
// accepted (or fatally illegal) card through Commit. Rewards for committed
// decisions arrive through PutTransition.
type Seat interface {
	// QueryPolicy returns the card the seat wants to play in the last
	// observed state.
	QueryPolicy() (deck.Card, error)

	Observe(state ObservableState)
	Reject(card deck.Card)
	Commit(card deck.Card)
	PutTransition(reward float64)

	LastState() ObservableState
	Transitions() []Transition
	ClearTransitions()
}

// Buffer accumulates transitions. It is safe for concurrent use.
type Buffer struct {
	mu          sync.Mutex
	transitions []Transition
}

// Record appends a transition.
func (b *Buffer) Record(before ObservableState, action deck.Card, reward float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions = append(b.transitions, Transition{Before: before, Action: action, Reward: reward})
}

// Drain returns every recorded transition and empties the buffer.
func (b *Buffer) Drain() []Transition {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.transitions
	b.transitions = nil
	if out == nil {
		return []Transition{}
	}
	return out
}

// Snapshot returns a copy of the recorded transitions without removing them.
func (b *Buffer) Snapshot() []Transition {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Transition{}, b.transitions...)
}

// Len returns the number of recorded transitions.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.transitions)
}

// Recorder implements every Seat method except QueryPolicy. Concrete seats
// embed it and only decide which card to play.
type Recorder struct {
	mu         sync.Mutex
	lastState  ObservableState
	lastAction deck.Card
	rejected   []deck.Card
	awaiting   bool
	buffer     Buffer
}

// Observe stores the state for the upcoming decision and forgets earlier
// rejections.
func (r *Recorder) Observe(state ObservableState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastState = state.Clone()
	r.rejected = r.rejected[:0]
}

// Reject notes that the engine refused card in the current state.
func (r *Recorder) Reject(card deck.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, card)
}

// Rejected returns the cards refused since the last Observe.
func (r *Recorder) Rejected() []deck.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rejected)
}

// Commit marks card as the action taken in the last observed state; the next
// PutTransition completes the transition.
func (r *Recorder) Commit(card deck.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastAction = card
	r.awaiting = true
}

// PutTransition records (last state, last action, reward) if a decision is
// awaiting its reward and does nothing otherwise.
func (r *Recorder) PutTransition(reward float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.awaiting {
		return
	}
	r.buffer.Record(r.lastState, r.lastAction, reward)
	r.awaiting = false
}

// LastState returns the most recently observed state.
func (r *Recorder) LastState() ObservableState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastState
}

// Transitions returns the transitions recorded so far.
func (r *Recorder) Transitions() []Transition {
	return r.buffer.Snapshot()
}

// DrainTransitions returns the recorded transitions and clears them.
func (r *Recorder) DrainTransitions() []Transition {
	return r.buffer.Drain()
}

// ClearTransitions discards every recorded transition and any pending decision.
func (r *Recorder) ClearTransitions() {
	r.mu.Lock()
	r.awaiting = false
	r.mu.Unlock()
	r.buffer.Drain()
}
