package core

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Space describes the shape and range of observations or actions
type Space interface {
	// Size is the length of vectors in the space
	Size() int
	// Sample draws a uniformly random element of the space
	Sample(rng *rand.Rand) []float64
	// Contains reports whether v is an element of the space
	Contains(v []float64) bool
}

// Box is a continuous space bounded element-wise by Low and High
type Box struct {
	Low  []float64
	High []float64
}

// NewBox creates a box of the given size with equal bounds in every
// dimension
func NewBox(size int, low, high float64) Box {
	b := Box{Low: make([]float64, size), High: make([]float64, size)}
	for i := range size {
		b.Low[i] = low
		b.High[i] = high
	}
	return b
}

func (b Box) Size() int {
	return len(b.Low)
}

func (b Box) Sample(rng *rand.Rand) []float64 {
	out := make([]float64, len(b.Low))
	for i := range out {
		out[i] = b.Low[i] + rng.Float64()*(b.High[i]-b.Low[i])
	}
	return out
}

func (b Box) Contains(v []float64) bool {
	if len(v) != len(b.Low) {
		return false
	}
	for i, x := range v {
		if x < b.Low[i] || x > b.High[i] {
			return false
		}
	}
	return true
}

func (b Box) String() string {
	return fmt.Sprintf("Box(%d)", len(b.Low))
}

// Discrete is a space of N choices, represented as one-hot vectors
type Discrete struct {
	N int
}

func (d Discrete) Size() int {
	return d.N
}

func (d Discrete) Sample(rng *rand.Rand) []float64 {
	return d.OneHot(rng.IntN(d.N))
}

func (d Discrete) Contains(v []float64) bool {
	if len(v) != d.N {
		return false
	}
	ones := 0
	for _, x := range v {
		switch x {
		case 0:
		case 1:
			ones++
		default:
			return false
		}
	}
	return ones == 1
}

// OneHot encodes choice i
func (d Discrete) OneHot(i int) []float64 {
	out := make([]float64, d.N)
	out[i] = 1
	return out
}

// Index decodes a one-hot (or score) vector into the chosen index
func (d Discrete) Index(v []float64) int {
	return floats.MaxIdx(v)
}

func (d Discrete) String() string {
	return fmt.Sprintf("Discrete(%d)", d.N)
}
