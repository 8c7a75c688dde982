package domain

import "math/rand/v2"

const DieFaces = 6

// Roller produces die results. The zero value uses the global source.
type Roller struct {
	rng *rand.Rand
}

func NewRoller(src rand.Source) *Roller {
	return &Roller{rng: rand.New(src)}
}

// Roll returns count results in [1, DieFaces], in generation order.
func (r *Roller) Roll(count int) []int {
	if count < 0 {
		count = 0
	}
	dice := make([]int, count)
	for i := range dice {
		dice[i] = r.face()
	}
	return dice
}

func (r *Roller) face() int {
	if r == nil || r.rng == nil {
		return rand.IntN(DieFaces) + 1
	}
	return r.rng.IntN(DieFaces) + 1
}
