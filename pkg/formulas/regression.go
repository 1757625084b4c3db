package formulas

import "math"

// Regression is the windowed least-squares fit of y on x at one index.
type Regression struct {
	Beta    float64
	R2      float64
	HasBeta bool
	HasR2   bool
}

// WindowRegression fits y = a + b·x over a trailing window using the windowed
// variance and covariance estimators. Values are only reported once the window is full.
//
//	b  = (N·Σxy − ΣxΣy) / (N·Σx² − (Σx)²) = Cov(x,y) / Var(x)
//	r² = (Cov(x,y) / (σx·σy))²
type WindowRegression struct {
	window int
	cov    *WindowCovariance
	varX   *WindowVariance
	varY   *WindowVariance
}

// NewWindowRegression creates a windowed regression of the given length.
func NewWindowRegression(window int) *WindowRegression {
	return &WindowRegression{
		window: window,
		cov:    NewWindowCovariance(window),
		varX:   NewWindowVariance(window),
		varY:   NewWindowVariance(window),
	}
}

// Reset clears all running sums.
func (r *WindowRegression) Reset() {
	r.cov.Reset()
	r.varX.Reset()
	r.varY.Reset()
}

// Next advances the window to index i. Beta is omitted when Var(x) is not positive;
// r² is omitted when either deviation is not positive or the result exceeds 1.
func (r *WindowRegression) Next(x, y []float64, i int) Regression {
	cov := r.cov.Next(x, y, i)
	vx := r.varX.Next(x, i)
	vy := r.varY.Next(y, i)

	var out Regression
	if i+1 < r.window {
		return out
	}

	if vx > 0 {
		out.Beta = cov / vx
		out.HasBeta = Finite(out.Beta)
	}

	sx, sy := math.Sqrt(math.Max(vx, 0)), math.Sqrt(math.Max(vy, 0))
	if sx <= 0 || sy <= 0 {
		return out
	}

	rho := cov / (sx * sy)
	r2 := rho * rho
	if Finite(r2) && r2 <= 1 {
		out.R2 = r2
		out.HasR2 = true
	}

	return out
}
