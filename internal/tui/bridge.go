package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/game"
)

// Sender delivers messages to the running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// HumanSeat is a game seat whose cards are typed into the model. It runs on
// the engine's goroutine and talks to the model only through messages and
// channels.
type HumanSeat struct {
	game.Recorder
	send  Sender
	cards <-chan deck.Card
	quit  <-chan struct{}
}

// NewHumanSeat connects a seat to m. Messages for m go through send.
func NewHumanSeat(m *Model, send Sender) *HumanSeat {
	return &HumanSeat{send: send, cards: m.cards, quit: m.quit}
}

// QueryPolicy asks the human for a card and blocks until one is entered.
// It returns game.ErrHumanQuit once the human leaves.
func (h *HumanSeat) QueryPolicy() (deck.Card, error) {
	select {
	case <-h.quit:
		return 0, game.ErrHumanQuit
	default:
	}

	h.send.Send(TurnMsg{State: h.LastState(), Rejected: h.Rejected()})
	select {
	case c := <-h.cards:
		return c, nil
	case <-h.quit:
		return 0, game.ErrHumanQuit
	}
}

// Reject records the refusal and tells the human.
func (h *HumanSeat) Reject(card deck.Card) {
	h.Recorder.Reject(card)
	h.send.Send(RejectMsg{Card: card})
}

// EventHandler forwards table events to the program.
func EventHandler(send Sender) game.EventHandler {
	return func(e game.Event) {
		send.Send(EventMsg{Event: e})
	}
}

var _ game.Seat = (*HumanSeat)(nil)
