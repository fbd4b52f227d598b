package fit

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PolyFit solves the linear least-squares polynomial fit of the given degree
// directly via QR. Coefficients are returned highest power first, matching
// Polynomial.
func PolyFit(xs, ys []float64, degree int) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("polyfit: %d x values but %d y values", len(xs), len(ys))
	}
	if degree < 0 {
		return nil, fmt.Errorf("polyfit: negative degree %d", degree)
	}
	if len(xs) < degree+1 {
		return nil, fmt.Errorf("polyfit: need at least %d points for degree %d, got %d", degree+1, degree, len(xs))
	}

	a := vandermonde(xs, degree)
	b := mat.NewVecDense(len(ys), ys)
	c := mat.NewVecDense(degree+1, nil)

	var qr mat.QR
	qr.Factorize(a)
	if err := qr.SolveVecTo(c, false, b); err != nil {
		return nil, fmt.Errorf("polyfit: could not solve QR: %w", err)
	}

	coeffs := make([]float64, degree+1)
	for i := range coeffs {
		coeffs[i] = c.AtVec(i)
	}
	return coeffs, nil
}

// vandermonde builds the design matrix with columns x^degree ... x^0
func vandermonde(xs []float64, degree int) *mat.Dense {
	a := mat.NewDense(len(xs), degree+1, nil)
	for i, x := range xs {
		p := 1.0
		for j := degree; j >= 0; j-- {
			a.Set(i, j, p)
			p *= x
		}
	}
	return a
}
