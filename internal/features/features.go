// Package features turns what a seat can observe into the fixed-length vector
// the policy network consumes.
package features

import (
	"fmt"

	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/game"
	"gonum.org/v1/gonum/mat"
)

// Size is the length of an encoded state: hole cards, the two possible trick
// cards, friendly and hostile piles (32 each) and the declarer flag.
const Size = 5*deck.NumCards + 1

// Offsets of each block within an encoded state.
const (
	OffsetHole     = 0
	OffsetTrick0   = OffsetHole + deck.NumCards
	OffsetTrick1   = OffsetTrick0 + deck.NumCards
	OffsetFriendly = OffsetTrick1 + deck.NumCards
	OffsetHostile  = OffsetFriendly + deck.NumCards
	OffsetDeclarer = OffsetHostile + deck.NumCards
)

// Encode maps a state to its feature vector. Absent trick cards encode as
// zeros. A seat never observes a full trick, so only the first two trick
// cards are encoded.
func Encode(state game.ObservableState) []float64 {
	v := make([]float64, Size)
	EncodeInto(v, state)
	return v
}

// EncodeInto writes the encoding of state into dst, which must have length Size.
func EncodeInto(dst []float64, state game.ObservableState) {
	if len(dst) != Size {
		panic(fmt.Sprintf("features: destination has length %d, want %d", len(dst), Size))
	}
	clear(dst)

	copy(dst[OffsetHole:OffsetTrick0], deck.MultiHot(state.HoleCards))
	if len(state.Trick) > 0 {
		copy(dst[OffsetTrick0:OffsetTrick1], state.Trick[0].OneHot())
	}
	if len(state.Trick) > 1 {
		copy(dst[OffsetTrick1:OffsetFriendly], state.Trick[1].OneHot())
	}
	copy(dst[OffsetFriendly:OffsetHostile], deck.MultiHot(state.WonFriendly))
	copy(dst[OffsetHostile:OffsetDeclarer], deck.MultiHot(state.WonHostile))
	if state.IsDeclarer {
		dst[OffsetDeclarer] = 1
	}
}

// EncodeBatch stacks the encodings of states row-wise.
func EncodeBatch(states []game.ObservableState) *mat.Dense {
	if len(states) == 0 {
		return nil
	}
	data := make([]float64, len(states)*Size)
	for i, s := range states {
		EncodeInto(data[i*Size:(i+1)*Size], s)
	}
	return mat.NewDense(len(states), Size, data)
}
