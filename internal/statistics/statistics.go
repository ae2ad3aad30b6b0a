package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/skatbot/internal/game"
)

// GameResult is the outcome of one game from the point of view of a single
// measured seat.
type GameResult struct {
	Seat          int     // table position of the measured seat
	Reward        float64 // terminal reward the seat received
	Points        int     // accumulated game points
	Won           bool    // seat was among the winners
	Aborted       bool    // game ended early because of an illegal card
	Offender      bool    // the measured seat played that card
	DealsDeclared int
	DealsWon      int
	Seed          int64 // RNG seed for this game (for replay)
}

// FromResult extracts seat's view of a game result.
func FromResult(r game.Result, seat int, seed int64) GameResult {
	return GameResult{
		Seat:          seat,
		Reward:        r.Rewards[seat],
		Points:        r.Points[seat],
		Won:           !r.Aborted && r.Won(seat),
		Aborted:       r.Aborted,
		Offender:      r.Aborted && r.Offender == seat,
		DealsDeclared: r.DealsDeclared[seat],
		DealsWon:      r.DealsWon[seat],
		Seed:          seed,
	}
}

// SeatStats tracks results for one table position.
type SeatStats struct {
	Games     int
	SumReward float64
}

// Statistics accumulates game results for a measured seat.
type Statistics struct {
	Games      int
	SumReward  float64
	SumReward2 float64   // Sum of squares for variance calculation
	Values     []float64 // Store all rewards for median/percentile calculation

	Wins      int
	Aborts    int
	Offences  int
	SumPoints int

	DealsDeclared int
	DealsWon      int

	SeatResults [game.NumSeats]SeatStats
}

// Mean returns the mean reward per game
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.SumReward / float64(s.Games)
}

// Variance returns the sample variance of the rewards
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumReward2 - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

// StdDev returns the sample standard deviation of the rewards
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(math.Max(s.Variance(), 0))
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Add incorporates a game result
func (s *Statistics) Add(result GameResult) {
	r := result.Reward
	s.Games++
	s.SumReward += r
	s.SumReward2 += r * r
	s.Values = append(s.Values, r)

	if result.Won {
		s.Wins++
	}
	if result.Aborted {
		s.Aborts++
	}
	if result.Offender {
		s.Offences++
	}
	s.SumPoints += result.Points
	s.DealsDeclared += result.DealsDeclared
	s.DealsWon += result.DealsWon

	if result.Seat >= 0 && result.Seat < game.NumSeats {
		s.SeatResults[result.Seat].Games++
		s.SeatResults[result.Seat].SumReward += r
	}
}

// Merge folds other into s. Values keep s's results first.
func (s *Statistics) Merge(other *Statistics) {
	s.Games += other.Games
	s.SumReward += other.SumReward
	s.SumReward2 += other.SumReward2
	s.Values = append(s.Values, other.Values...)
	s.Wins += other.Wins
	s.Aborts += other.Aborts
	s.Offences += other.Offences
	s.SumPoints += other.SumPoints
	s.DealsDeclared += other.DealsDeclared
	s.DealsWon += other.DealsWon
	for i := range s.SeatResults {
		s.SeatResults[i].Games += other.SeatResults[i].Games
		s.SeatResults[i].SumReward += other.SeatResults[i].SumReward
	}
}

// WinRate is the fraction of games the measured seat won.
func (s *Statistics) WinRate() float64 {
	return ratio(s.Wins, s.Games)
}

// AbortRate is the fraction of games that ended on an illegal card.
func (s *Statistics) AbortRate() float64 {
	return ratio(s.Aborts, s.Games)
}

// DeclarerWinRate is the fraction of declared deals the seat won.
func (s *Statistics) DeclarerWinRate() float64 {
	return ratio(s.DealsWon, s.DealsDeclared)
}

// MeanPoints returns the mean game points per game
func (s *Statistics) MeanPoints() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.SumPoints) / float64(s.Games)
}

// Median returns the median reward
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the reward at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// SeatMean returns the mean reward when playing from a given table position
func (s *Statistics) SeatMean(seat int) float64 {
	if seat < 0 || seat >= game.NumSeats {
		return 0
	}
	ss := s.SeatResults[seat]
	if ss.Games == 0 {
		return 0
	}
	return ss.SumReward / float64(ss.Games)
}

// Validate checks the accumulated data for consistency
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}
	if len(s.Values) != s.Games {
		return fmt.Errorf("values array length (%d) does not match games count (%d)", len(s.Values), s.Games)
	}
	if s.Wins > s.Games {
		return fmt.Errorf("wins (%d) exceed games (%d)", s.Wins, s.Games)
	}
	if s.Offences > s.Aborts {
		return fmt.Errorf("offences (%d) exceed aborts (%d)", s.Offences, s.Aborts)
	}
	if s.DealsWon > s.DealsDeclared {
		return fmt.Errorf("deals won (%d) exceed deals declared (%d)", s.DealsWon, s.DealsDeclared)
	}

	seatGames := 0
	for _, ss := range s.SeatResults {
		seatGames += ss.Games
	}
	if seatGames != s.Games {
		return fmt.Errorf("seat games total (%d) does not match games (%d)", seatGames, s.Games)
	}
	return nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
