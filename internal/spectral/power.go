package spectral

import "math"

const (
	// DefaultMaxIterations caps the number of power-iteration steps.
	DefaultMaxIterations = 100

	// DefaultTolerance is the per-component convergence bound between successive vectors.
	DefaultTolerance = 1e-6
)

const (
	panicMaxIterationsInvalid = "spectral: WithMaxIterations: n must be > 0"
	panicToleranceInvalid     = "spectral: WithTolerance: tol must be finite and > 0"
)

// Option configures Estimate.
type Option func(*options)

type options struct {
	maxIter int
	tol     float64
}

// WithMaxIterations overrides DefaultMaxIterations. Panics if n <= 0.
func WithMaxIterations(n int) Option {
	if n <= 0 {
		panic(panicMaxIterationsInvalid)
	}
	return func(o *options) { o.maxIter = n }
}

// WithTolerance overrides DefaultTolerance. Panics unless tol is finite and positive.
func WithTolerance(tol float64) Option {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		panic(panicToleranceInvalid)
	}
	return func(o *options) { o.tol = tol }
}

// Estimation is the outcome of a power-iteration run.
type Estimation struct {
	// Radius approximates the largest eigenvalue magnitude.
	Radius float64

	// Iterations is the number of matrix-vector products performed.
	Iterations int

	// Converged is true when successive vectors agreed within tolerance.
	// A degenerate (zero) iterate also counts as converged.
	Converged bool
}

// Radius estimates the spectral radius of m with the default settings.
func Radius(m *Matrix) float64 {
	return Estimate(m).Radius
}

// Estimate runs power iteration on m starting from the uniform unit vector
// and returns the absolute Rayleigh quotient of the final iterate.
// An empty matrix, or an iterate collapsing to the zero vector, yields 0.
//
// Complexity: O(maxIter·n²) time, O(n) extra memory.
func Estimate(m *Matrix, opts ...Option) Estimation {
	o := options{maxIter: DefaultMaxIterations, tol: DefaultTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	n := m.Size()
	if n == 0 {
		return Estimation{Converged: true}
	}

	v := make([]float64, n)
	w := make([]float64, n)
	start := 1 / math.Sqrt(float64(n))
	for i := range v {
		v[i] = start
	}

	est := Estimation{}
	for est.Iterations < o.maxIter {
		m.mulVec(w, v)
		est.Iterations++

		norm := norm2(w)
		if norm == 0 {
			est.Converged = true
			return est
		}
		for i := range w {
			w[i] /= norm
		}

		if within(w, v, o.tol) {
			est.Converged = true
			break
		}
		v, w = w, v
	}

	est.Radius = math.Abs(rayleigh(m, v, w))
	return est
}

// rayleigh returns vᵀ·(m·v); scratch receives m·v.
func rayleigh(m *Matrix, v, scratch []float64) float64 {
	m.mulVec(scratch, v)
	sum := 0.0
	for i := range v {
		sum += scratch[i] * v[i]
	}
	return sum
}

func norm2(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// within reports whether every |a[i]-b[i]| <= tol.
func within(a, b []float64, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
