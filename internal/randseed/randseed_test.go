package randseed

import "testing"

import "github.com/stretchr/testify/require"

func TestMixIsDeterministic(t *testing.T) {
	a := Mix(42, 3)
	b := Mix(42, 3)
	require.Equal(t, a, b)
}

func TestMixDependsOnID(t *testing.T) {
	require.NotEqual(t, Mix(42, 1), Mix(42, 2))
}

func TestMixDependsOnBase(t *testing.T) {
	require.NotEqual(t, Mix(1, 7), Mix(2, 7))
}

func TestStreamReproducible(t *testing.T) {
	s1 := NewStream(99, 5)
	s2 := NewStream(99, 5)
	for i := 0; i < 50; i++ {
		require.Equal(t, s1.Bernoulli(0.5), s2.Bernoulli(0.5))
	}
}

func TestBernoulliBoundaries(t *testing.T) {
	s := NewStream(1, 1)
	require.False(t, s.Bernoulli(0))
	require.True(t, s.Bernoulli(1))
}

func TestWeightedChoiceDistribution(t *testing.T) {
	s := NewStream(7, 2)
	weights := []float64{70, 20, 7, 3}
	counts := make([]int, len(weights))
	for i := 0; i < 10000; i++ {
		idx := s.WeightedChoice(weights)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(weights))
		counts[idx]++
	}
	// index 0 carries the largest weight; it should dominate the sample.
	for i := 1; i < len(weights); i++ {
		require.Greater(t, counts[0], counts[i])
	}
}

func TestWeightedChoiceSingleWeight(t *testing.T) {
	s := NewStream(3, 3)
	require.Equal(t, 0, s.WeightedChoice([]float64{5}))
}
