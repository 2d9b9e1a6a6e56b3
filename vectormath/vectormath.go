// Package vectormath provides the small set of dense-vector operations the
// engine needs. Vectors are []float32 as stored in Mongo; accumulation is done
// in float64 to keep the results stable.
package vectormath

import "math"

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	n := Norm(v)
	out := make([]float32, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b.
// If either vector has zero norm the similarity is defined as 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineDistance returns 1 - CosineSimilarity(a, b).
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// WeightedAverage returns the weighted mean of the vectors. Weights are
// normalized by the sum of their absolute values so that negative weights
// (downvotes, mutes) subtract from the result without flipping its scale.
// Returns nil when there are no vectors or all weights are zero.
func WeightedAverage(vectors [][]float32, weights []float64) []float32 {
	if len(vectors) == 0 || len(vectors) != len(weights) {
		return nil
	}
	var wsum float64
	for _, w := range weights {
		wsum += math.Abs(w)
	}
	if wsum == 0 {
		return nil
	}

	dim := len(vectors[0])
	acc := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			continue
		}
		w := weights[i] / wsum
		for j, x := range v {
			acc[j] += w * float64(x)
		}
	}

	out := make([]float32, dim)
	for j, x := range acc {
		out[j] = float32(x)
	}
	return out
}

// Mean returns the unweighted mean of the vectors, or nil when empty.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	weights := make([]float64, len(vectors))
	for i := range weights {
		weights[i] = 1
	}
	return WeightedAverage(vectors, weights)
}
