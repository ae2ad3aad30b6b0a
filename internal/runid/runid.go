// Package runid generates sortable identifiers for training and evaluation
// runs: a UUIDv7 rendered as 26 lowercase Crockford base32 characters.
package runid

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand/v2"
	"strings"

	"github.com/coder/quartz"
)

// Crockford's base32 alphabet, lowercase.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded id.
const Length = 26

// Generator creates run ids from a clock and an optional random source.
type Generator struct {
	clock quartz.Clock
	rng   *rand.Rand
}

// NewGenerator returns a generator. A nil rng uses crypto/rand.
func NewGenerator(clock quartz.Clock, rng *rand.Rand) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Generator{clock: clock, rng: rng}
}

// Generate returns a new id. Ids from the same generator sort by creation
// time at millisecond resolution.
func (g *Generator) Generate() string {
	return encode(g.uuidV7())
}

func (g *Generator) uuidV7() [16]byte {
	var uuid [16]byte

	now := g.clock.Now().UnixMilli()
	for i := 0; i < 6; i++ {
		uuid[i] = byte(now >> (40 - 8*i))
	}

	if g.rng != nil {
		for i := 6; i < 16; i++ {
			uuid[i] = byte(g.rng.UintN(256))
		}
	} else if _, err := crand.Read(uuid[6:]); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x70 // version 7
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // variant 10
	return uuid
}

// encode renders the 128-bit value as 26 base32 digits, most significant
// first, so the leading digit is always 0-7.
func encode(data [16]byte) string {
	n := new(big.Int).SetBytes(data[:])
	mask := big.NewInt(31)
	digit := new(big.Int)

	out := make([]byte, Length)
	for i := Length - 1; i >= 0; i-- {
		digit.And(n, mask)
		out[i] = alphabet[digit.Int64()]
		n.Rsh(n, 5)
	}
	return string(out)
}

// Validate checks that id looks like a generated run id.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("run ID must be exactly %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("run ID first character must be 0-7, got %c", id[0])
	}
	for i, c := range id {
		if !strings.ContainsRune(alphabet, c) {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}
