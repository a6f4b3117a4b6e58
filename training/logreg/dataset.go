package logreg

import "math/rand"

// SyntheticDataset draws samples uniformly from [-1, 1]^features and labels
// them by the sign of a fixed random hyperplane. noise is the probability of
// flipping a label.
func SyntheticDataset(samples, features int, noise float64, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))

	plane := make([]float64, features)
	for j := range plane {
		plane[j] = rng.Float64()*2 - 1
	}

	x := make([][]float64, samples)
	y := make([]float64, samples)
	for i := range x {
		row := make([]float64, features)
		var dot float64
		for j := range row {
			row[j] = rng.Float64()*2 - 1
			dot += row[j] * plane[j]
		}
		x[i] = row
		if dot > 0 {
			y[i] = 1
		}
		if rng.Float64() < noise {
			y[i] = 1 - y[i]
		}
	}
	return x, y
}
