package game

import "github.com/lox/skatbot/internal/deck"

// EventType identifies what happened at the table.
type EventType string

const (
	EventTypeGameStart  EventType = "game_start"
	EventTypeDealStart  EventType = "deal_start"
	EventTypeCardPlayed EventType = "card_played"
	EventTypeTrickWon   EventType = "trick_won"
	EventTypeDealEnd    EventType = "deal_end"
	EventTypeGameEnd    EventType = "game_end"
	EventTypeAborted    EventType = "aborted"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is published to the optional event handler as a game progresses.
// Only the fields relevant to the event type are set.
type Event struct {
	Type     EventType
	Deal     int
	Seat     int // acting seat, trick winner, or offender
	Declarer int
	Card     deck.Card
	Cards    []deck.Card // completed trick for EventTypeTrickWon
	Points   [NumSeats]int
	Score    int  // declarer's score change for EventTypeDealEnd
	Won      bool // whether the declarer won, for EventTypeDealEnd
}

// EventHandler receives table events. It runs on the engine's goroutine.
type EventHandler func(Event)
