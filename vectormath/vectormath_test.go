package vectormath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsiq/vectormath"
)

func TestNormalizeReturnsUnitVector(t *testing.T) {
	v := []float32{3, 4}
	out := vectormath.Normalize(v)

	assert.InDelta(t, 1.0, vectormath.Norm(out), 1e-6)
	assert.InDelta(t, 0.6, float64(out[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(out[1]), 1e-6)
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	out := vectormath.Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, out)
}

func TestCosineSimilaritySelfIsOne(t *testing.T) {
	v := []float32{0.3, -0.5, 0.9}
	assert.InDelta(t, 1.0, vectormath.CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilaritySymmetricAndBounded(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 1}

	ab := vectormath.CosineSimilarity(a, b)
	ba := vectormath.CosineSimilarity(b, a)

	assert.InDelta(t, ab, ba, 1e-9)
	assert.GreaterOrEqual(t, ab, -1.0)
	assert.LessOrEqual(t, ab, 1.0)
}

func TestCosineSimilarityZeroNormGuard(t *testing.T) {
	zero := []float32{0, 0}
	v := []float32{1, 1}

	assert.Equal(t, 0.0, vectormath.CosineSimilarity(zero, v))
	assert.Equal(t, 0.0, vectormath.CosineSimilarity(v, zero))
	assert.Equal(t, 0.0, vectormath.CosineSimilarity(nil, nil))
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 1.0, vectormath.CosineDistance(a, b), 1e-6)
	assert.InDelta(t, 0.0, vectormath.CosineDistance(a, a), 1e-6)
}

func TestWeightedAverageNormalizesByAbsoluteWeights(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}
	// negative weight pushes away from the second vector
	out := vectormath.WeightedAverage(vectors, []float64{3, -1})

	assert.InDelta(t, 0.75, float64(out[0]), 1e-6)
	assert.InDelta(t, -0.25, float64(out[1]), 1e-6)
}

func TestWeightedAverageDegenerateInputs(t *testing.T) {
	assert.Nil(t, vectormath.WeightedAverage(nil, nil))
	assert.Nil(t, vectormath.WeightedAverage([][]float32{{1}}, []float64{0}))
	assert.Nil(t, vectormath.WeightedAverage([][]float32{{1}}, []float64{1, 2}))
}

func TestMean(t *testing.T) {
	out := vectormath.Mean([][]float32{{1, 0}, {0, 1}})
	assert.InDelta(t, 0.5, float64(out[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(out[1]), 1e-6)
	assert.Nil(t, vectormath.Mean(nil))
}
