// Package regress fits ordinary-least-squares linear and polynomial models
// to small rate time series. The normal equations for a degree-3 polynomial
// are a 4x4 system, solved in-package by Gaussian elimination.
package regress

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInsufficientData indicates too few observations for the requested
	// model degree.
	ErrInsufficientData = errors.New("regress: insufficient data")
	// ErrDegenerate indicates the design matrix is singular, e.g. all x
	// values identical.
	ErrDegenerate = errors.New("regress: degenerate design matrix")
)

// Kind labels the fitted model family.
type Kind string

const (
	KindLinear     Kind = "linear"
	KindPolynomial Kind = "polynomial"
)

// Result holds a fitted model with its diagnostics. Fitted values and
// residuals are index-aligned with the input observations.
type Result struct {
	Kind         Kind
	Degree       int
	Coefficients []float64 // ascending power: c0 + c1*x + c2*x^2 + ...
	R2           float64
	RMSE         float64
	Fitted       []float64
	Residuals    []float64
}

// Predict evaluates the fitted polynomial at x.
func (r Result) Predict(x float64) float64 {
	// Horner form.
	y := 0.0
	for i := len(r.Coefficients) - 1; i >= 0; i-- {
		y = y*x + r.Coefficients[i]
	}
	return y
}

// Name returns a short label such as "linear" or "poly3".
func (r Result) Name() string {
	if r.Kind == KindLinear {
		return string(KindLinear)
	}
	return fmt.Sprintf("poly%d", r.Degree)
}

// FitLinear fits y = c0 + c1*x by ordinary least squares.
func FitLinear(x, y []float64) (Result, error) {
	res, err := fit(x, y, 1)
	if err != nil {
		return Result{}, err
	}
	res.Kind = KindLinear
	return res, nil
}

// FitPolynomial fits a polynomial of the given degree via basis expansion.
// Requires at least degree+2 observations so the fit is never saturated.
func FitPolynomial(x, y []float64, degree int) (Result, error) {
	if degree < 1 {
		return Result{}, fmt.Errorf("regress: degree must be >= 1, got %d", degree)
	}
	return fit(x, y, degree)
}

func fit(x, y []float64, degree int) (Result, error) {
	n := len(x)
	if n != len(y) {
		return Result{}, fmt.Errorf("regress: x and y length mismatch (%d vs %d)", n, len(y))
	}
	if n < degree+2 {
		return Result{}, fmt.Errorf("regress: degree %d needs at least %d observations, got %d: %w",
			degree, degree+2, n, ErrInsufficientData)
	}

	coeffs, err := solveNormalEquations(x, y, degree)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Kind:         KindPolynomial,
		Degree:       degree,
		Coefficients: coeffs,
		Fitted:       make([]float64, n),
		Residuals:    make([]float64, n),
	}

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	var ssRes, ssTot float64
	for i := range x {
		res.Fitted[i] = res.Predict(x[i])
		res.Residuals[i] = y[i] - res.Fitted[i]
		ssRes += res.Residuals[i] * res.Residuals[i]
		ssTot += (y[i] - mean) * (y[i] - mean)
	}

	// A constant dependent variable has zero total variance; report R²=0
	// rather than dividing by zero.
	if ssTot > 0 {
		res.R2 = 1 - ssRes/ssTot
	}
	res.RMSE = math.Sqrt(ssRes / float64(n))

	return res, nil
}

// solveNormalEquations builds X'X and X'y for the Vandermonde basis
// [1, x, x^2, ...] and solves by Gaussian elimination with partial pivoting.
func solveNormalEquations(x, y []float64, degree int) ([]float64, error) {
	size := degree + 1

	// X'X entry (i,j) is sum of x^(i+j); precompute the power sums.
	powerSums := make([]float64, 2*degree+1)
	for _, xi := range x {
		p := 1.0
		for k := 0; k <= 2*degree; k++ {
			powerSums[k] += p
			p *= xi
		}
	}

	matrix := make([][]float64, size)
	rhs := make([]float64, size)
	for i := 0; i < size; i++ {
		matrix[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			matrix[i][j] = powerSums[i+j]
		}
	}
	for k, yk := range y {
		p := 1.0
		for i := 0; i < size; i++ {
			rhs[i] += yk * p
			p *= x[k]
		}
	}

	for col := 0; col < size; col++ {
		pivot := col
		for row := col + 1; row < size; row++ {
			if math.Abs(matrix[row][col]) > math.Abs(matrix[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(matrix[pivot][col]) < 1e-12 {
			return nil, ErrDegenerate
		}
		matrix[col], matrix[pivot] = matrix[pivot], matrix[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		for row := col + 1; row < size; row++ {
			factor := matrix[row][col] / matrix[col][col]
			for j := col; j < size; j++ {
				matrix[row][j] -= factor * matrix[col][j]
			}
			rhs[row] -= factor * rhs[col]
		}
	}

	coeffs := make([]float64, size)
	for i := size - 1; i >= 0; i-- {
		sum := rhs[i]
		for j := i + 1; j < size; j++ {
			sum -= matrix[i][j] * coeffs[j]
		}
		coeffs[i] = sum / matrix[i][i]
	}

	return coeffs, nil
}

// TimeIndex converts dates into fractional years since the first date,
// keeping polynomial terms well-conditioned compared to raw epoch seconds.
func TimeIndex(dates []time.Time) []float64 {
	idx := make([]float64, len(dates))
	if len(dates) == 0 {
		return idx
	}
	origin := dates[0]
	const hoursPerYear = 24 * 365.25
	for i, d := range dates {
		idx[i] = d.Sub(origin).Hours() / hoursPerYear
	}
	return idx
}
