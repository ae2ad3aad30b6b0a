// Package game implements the rules engine for three-seat Half Skat.
//
// A Game owns three Seats and runs complete games of one or more deals. Each
// deal gives every seat ten cards and sets two aside as the skat, which is
// added to the declarer's pile once the ten tricks are played. The engine
// tells each seat what it can observe before asking it for a card and
// delivers rewards as tricks complete and when the game ends.
//
// # Basic Usage
//
//	seats := [game.NumSeats]game.Seat{a, b, c}
//	g, err := game.New(seats, game.DefaultConfig(), game.WithRNG(rng))
//	if err != nil {
//	    return err
//	}
//	if err := g.RunNewGame(); err != nil {
//	    return err
//	}
//	result := g.LastResult()
//
// # Rewards
//
// Every seat that played a card in a completed trick receives a zero reward
// for that decision, except after the very last trick of the game where the
// terminal reward is delivered instead. Under the outcome scheme the seats
// with the highest total win +1 and the rest get -1. A seat that plays an
// illegal card while retries are disabled aborts the game: it receives the
// illegal-action penalty and every other pending decision receives zero.
//
// # Deterministic Testing
//
// Pass WithRNG to control dealing, the starting declarer and dealer, and the
// fallback card chosen when a seat exhausts its retries.
package game
