package statespace

import "gonum.org/v1/gonum/mat"

// symmetrize returns (m + m')/2 as a SymDense.
func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}

// quadForm returns a m a' for a square a.
func quadForm(a mat.Matrix, m mat.Matrix) *mat.SymDense {
	var am mat.Dense
	am.Mul(a, m)
	var ama mat.Dense
	ama.Mul(&am, a.T())
	return symmetrize(&ama)
}

func cloneSym(s *mat.SymDense) *mat.SymDense {
	if s == nil {
		return nil
	}
	out := mat.NewSymDense(s.SymmetricDim(), nil)
	out.CopySym(s)
	return out
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func vecToSlice(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
