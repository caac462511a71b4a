package projection

import (
	"fmt"
	"math"
)

const (
	curveSamples    = 300
	curveIterations = 200
)

// findAB fits a and b of the low-dimensional similarity curve 1 / (1 + a*d^(2b)) to the
// target shape: 1 below minDist, exp(-(d-minDist)/spread) above it.
// Levenberg-Marquardt on the least-squares residual, starting at a = b = 1.
func findAB(spread, minDist float64) (a, b float64, err error) {
	xs := make([]float64, curveSamples)
	ys := make([]float64, curveSamples)

	for i := range xs {
		x := 3 * spread * float64(i) / float64(curveSamples-1)
		xs[i] = x

		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	a, b = 1, 1
	lambda := 1e-3
	cost := curveCost(xs, ys, a, b)

	for range curveIterations {
		// Normal equations for the 2x2 system.
		var jaa, jab, jbb, ga, gb float64

		for i, x := range xs {
			f, da, db := curveValue(x, a, b)
			r := ys[i] - f
			jaa += da * da
			jab += da * db
			jbb += db * db
			ga += da * r
			gb += db * r
		}

		improved := false

		for range 10 {
			m00 := jaa * (1 + lambda)
			m11 := jbb * (1 + lambda)

			det := m00*m11 - jab*jab
			if det == 0 || math.IsNaN(det) {
				lambda *= 10

				continue
			}

			stepA := (m11*ga - jab*gb) / det
			stepB := (m00*gb - jab*ga) / det
			na, nb := a+stepA, b+stepB

			if na > 0 && nb > 0 {
				if nc := curveCost(xs, ys, na, nb); nc < cost {
					delta := cost - nc
					a, b, cost = na, nb, nc
					lambda = math.Max(lambda/10, 1e-12)
					improved = true

					if delta < 1e-14 {
						return a, b, nil
					}

					break
				}
			}

			lambda *= 10
		}

		if !improved {
			break
		}
	}

	if math.IsNaN(a) || math.IsNaN(b) || a <= 0 || b <= 0 {
		return 0, 0, fmt.Errorf("%w: curve fit diverged", ErrProjectionFailed)
	}

	return a, b, nil
}

// curveValue returns f(x) and its partial derivatives in a and b.
func curveValue(x, a, b float64) (f, da, db float64) {
	if x == 0 {
		return 1, 0, 0
	}

	u := math.Pow(x, 2*b)
	g := 1 + a*u
	f = 1 / g
	da = -u / (g * g)
	db = -a * u * 2 * math.Log(x) / (g * g)

	return f, da, db
}

func curveCost(xs, ys []float64, a, b float64) float64 {
	var sum float64

	for i, x := range xs {
		f, _, _ := curveValue(x, a, b)
		r := ys[i] - f
		sum += r * r
	}

	return sum
}
