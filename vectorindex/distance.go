package vectorindex

import "math"

// dot computes the dot product of two equal-length vectors.
// Over L2-normalized inputs this is the cosine similarity.
func dot(a, b []float32) float32 {
	var sum float32
	for n := range a {
		sum += a[n] * b[n]
	}
	return sum
}

// normalizeL2Copy returns an L2-normalized copy of v.
// A zero-norm vector is copied unchanged; it scores 0 against everything.
func normalizeL2Copy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var norm2 float32
	for _, x := range out {
		norm2 += x * x
	}
	if norm2 == 0 {
		return out
	}

	inv := float32(1 / math.Sqrt(float64(norm2)))
	for n := range out {
		out[n] *= inv
	}
	return out
}
