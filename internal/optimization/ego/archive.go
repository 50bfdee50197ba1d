package ego

import (
	"gonum.org/v1/gonum/mat"
)

// Archive is the append-only record of every evaluated point
type Archive struct {
	Inputs  [][]float64
	Outputs []float64
}

// newArchive copies the training sample of a surrogate
func newArchive(X *mat.Dense, y *mat.VecDense) *Archive {
	n, _ := X.Dims()
	a := &Archive{
		Inputs:  make([][]float64, 0, n),
		Outputs: make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		a.Add(X.RawRowView(i), y.AtVec(i))
	}
	return a
}

// Add appends a copy of x with its value
func (a *Archive) Add(x []float64, value float64) {
	a.Inputs = append(a.Inputs, append([]float64(nil), x...))
	a.Outputs = append(a.Outputs, value)
}

// Len returns the number of points
func (a *Archive) Len() int {
	return len(a.Outputs)
}

// Matrices returns the archive as a design matrix and an output vector
func (a *Archive) Matrices() (*mat.Dense, *mat.VecDense) {
	n := a.Len()
	if n == 0 {
		return &mat.Dense{}, &mat.VecDense{}
	}
	X := mat.NewDense(n, len(a.Inputs[0]), nil)
	for i, x := range a.Inputs {
		X.SetRow(i, x)
	}
	return X, mat.NewVecDense(n, append([]float64(nil), a.Outputs...))
}
