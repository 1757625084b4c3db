package formulas

// The windowed estimators below are streaming accumulators over a trailing window of length W.
// Each call to Next must be made with the full history slice and strictly increasing indexes
// starting at 0; the accumulator keeps running sums and drops x[i-W] once the window is full.
// They are not safe for random access or concurrent use.

// WindowVariance is a windowed population variance using running sum and sum of squares.
type WindowVariance struct {
	window int
	sum    float64
	sumSq  float64
}

// NewWindowVariance creates a windowed variance estimator of the given length.
func NewWindowVariance(window int) *WindowVariance {
	return &WindowVariance{window: window}
}

// Window returns the window length.
func (w *WindowVariance) Window() int {
	return w.window
}

// Reset clears the running sums.
func (w *WindowVariance) Reset() {
	w.sum, w.sumSq = 0, 0
}

// Next advances the window to index i and returns (sumSq - sum²/n) / n, or 0 while n <= 1.
func (w *WindowVariance) Next(x []float64, i int) float64 {
	if i >= w.window {
		old := x[i-w.window]
		w.sum -= old
		w.sumSq -= old * old
	}

	v := x[i]
	w.sum += v
	w.sumSq += v * v

	n := windowCount(i, w.window)
	if n <= 1 {
		return 0
	}

	fn := float64(n)
	return (w.sumSq - w.sum*w.sum/fn) / fn
}

// WindowMean is a windowed arithmetic mean.
type WindowMean struct {
	window int
	sum    float64
}

// NewWindowMean creates a windowed mean estimator of the given length.
func NewWindowMean(window int) *WindowMean {
	return &WindowMean{window: window}
}

// Reset clears the running sum.
func (w *WindowMean) Reset() {
	w.sum = 0
}

// Next advances the window to index i and returns sum / n.
func (w *WindowMean) Next(x []float64, i int) float64 {
	if i >= w.window {
		w.sum -= x[i-w.window]
	}
	w.sum += x[i]

	return w.sum / float64(windowCount(i, w.window))
}

// WindowCovariance is a windowed population covariance of two aligned series.
type WindowCovariance struct {
	window int
	sumX   float64
	sumY   float64
	sumXY  float64
}

// NewWindowCovariance creates a windowed covariance estimator of the given length.
func NewWindowCovariance(window int) *WindowCovariance {
	return &WindowCovariance{window: window}
}

// Reset clears the running sums.
func (w *WindowCovariance) Reset() {
	w.sumX, w.sumY, w.sumXY = 0, 0, 0
}

// Next advances the window to index i and returns (Σxy - ΣxΣy/n) / n, or 0 while n <= 1.
func (w *WindowCovariance) Next(x, y []float64, i int) float64 {
	if i >= w.window {
		x0, y0 := x[i-w.window], y[i-w.window]
		w.sumX -= x0
		w.sumY -= y0
		w.sumXY -= x0 * y0
	}

	w.sumX += x[i]
	w.sumY += y[i]
	w.sumXY += x[i] * y[i]

	n := windowCount(i, w.window)
	if n <= 1 {
		return 0
	}

	fn := float64(n)
	return (w.sumXY - w.sumX*w.sumY/fn) / fn
}

func windowCount(i, window int) int {
	if i+1 < window {
		return i + 1
	}
	return window
}
