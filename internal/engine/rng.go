package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"math"
)

// streamClient is the fixed client component mixed into every HMAC round.
const streamClient = "reactix"

// Source is the random source a run draws challenges from.
// Implementations must be deterministic for a given seed.
type Source interface {
	// Intn returns a uniform integer in [0, n). It returns 0 when n <= 0.
	Intn(n int) int
}

// ByteGenerator streams HMAC-SHA256 bytes keyed by a seed and turns them
// into floats and bounded integers.
type ByteGenerator struct {
	seed         string
	client       string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a byte generator positioned at cursor.
func NewByteGenerator(seed, client string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		seed:         seed,
		client:       client,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}

	bg.generateRound()

	return bg
}

// NewSource returns the Source a run seeded with seed draws from.
func NewSource(seed string) *ByteGenerator {
	return NewByteGenerator(seed, streamClient, 0, 0)
}

// Next returns the next byte from the generator
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextFloat generates the next float in [0, 1) using exactly 4 bytes
func (bg *ByteGenerator) NextFloat() float64 {
	b0 := bg.Next()
	b1 := bg.Next()
	b2 := bg.Next()
	b3 := bg.Next()

	return bytesToFloat([4]byte{b0, b1, b2, b3})
}

// Intn maps the next float onto [0, n).
func (bg *ByteGenerator) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(math.Floor(bg.NextFloat() * float64(n)))
	if v >= n {
		v = n - 1
	}
	return v
}

// Cursor reports how many bytes have been consumed so far.
func (bg *ByteGenerator) Cursor() uint64 {
	return bg.currentRound*32 + uint64(bg.currentPos)
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.seed))
	message := fmt.Sprintf("%s:%d:%d", bg.client, bg.nonce, bg.currentRound)
	h.Write([]byte(message))
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat converts 4 bytes to a float: b0/256 + b1/256² + b2/256³ + b3/256⁴
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		divider := math.Pow(256, float64(i+1))
		result += float64(b) / divider
	}
	return result
}

// Floats generates count floats for seed starting at cursor.
func Floats(seed string, nonce uint64, cursor uint64, count int) []float64 {
	bg := NewByteGenerator(seed, streamClient, nonce, cursor)
	floats := make([]float64, count)

	for i := 0; i < count; i++ {
		floats[i] = bg.NextFloat()
	}

	return floats
}
