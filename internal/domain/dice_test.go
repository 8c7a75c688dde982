package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollCountAndRange(t *testing.T) {
	r := NewRoller(rand.NewPCG(1, 2))
	dice := r.Roll(5)
	require.Len(t, dice, 5)
	for _, d := range dice {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, DieFaces)
	}
}

func TestRollEveryFaceAppears(t *testing.T) {
	var r Roller
	seen := make(map[int]int)
	for i := 0; i < 10000; i++ {
		for _, d := range r.Roll(5) {
			require.True(t, d >= 1 && d <= DieFaces, "die out of range: %d", d)
			seen[d]++
		}
	}
	for face := 1; face <= DieFaces; face++ {
		assert.Positive(t, seen[face], "face %d never rolled", face)
	}
	assert.Len(t, seen, DieFaces)
}

func TestRollKeepsGenerationOrder(t *testing.T) {
	a := NewRoller(rand.NewPCG(7, 7)).Roll(10)
	b := NewRoller(rand.NewPCG(7, 7))
	for i := range a {
		assert.Equal(t, a[i], b.Roll(1)[0], "position %d", i)
	}
}

func TestRollNonPositiveCount(t *testing.T) {
	var r *Roller
	assert.Empty(t, r.Roll(0))
	assert.Empty(t, r.Roll(-3))
}
