// Package spectral builds transition-count matrices from epsilon-free automata
// and estimates their spectral radius by power iteration.
package spectral

import (
	"fmt"

	"github.com/KromDaniel/resafe/internal/automaton"
)

// Matrix is a dense square matrix of non-negative transition counts.
type Matrix struct {
	n    int
	data []int // row-major, n*n
}

// NewMatrix allocates an n×n zero matrix.
func NewMatrix(n int) *Matrix {
	if n < 0 {
		n = 0
	}
	return &Matrix{n: n, data: make([]int, n*n)}
}

// FromRows copies rows into a new Matrix.
func FromRows(rows [][]int) (*Matrix, error) {
	n := len(rows)
	m := NewMatrix(n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d entries, want %d: %w", i, len(row), n, ErrNonSquare)
		}
		for j, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("entry (%d,%d) = %d: %w", i, j, v, ErrNegativeEntry)
			}
			m.data[i*n+j] = v
		}
	}
	return m, nil
}

// BuildMatrix counts, for every pair of states, the (symbol, target) pairs
// leading from one to the other. The automaton is expected to be epsilon-free.
func BuildMatrix(a *automaton.Automaton) *Matrix {
	m := NewMatrix(a.Len())
	for i := range a.States {
		src := &a.States[i]
		for _, targets := range src.Targets {
			for _, target := range targets {
				m.data[src.ID*m.n+target]++
			}
		}
	}
	return m
}

// Size returns the dimension of the matrix.
func (m *Matrix) Size() int {
	return m.n
}

// At returns the entry at row i, column j.
func (m *Matrix) At(i, j int) int {
	return m.data[i*m.n+j]
}

// Rows returns a copy of the matrix as a slice of rows.
func (m *Matrix) Rows() [][]int {
	rows := make([][]int, m.n)
	for i := range rows {
		rows[i] = append([]int(nil), m.data[i*m.n:(i+1)*m.n]...)
	}
	return rows
}

// NonZero returns the number of non-zero entries.
func (m *Matrix) NonZero() int {
	count := 0
	for _, v := range m.data {
		if v != 0 {
			count++
		}
	}
	return count
}

// mulVec stores m·v into dst.
func (m *Matrix) mulVec(dst, v []float64) {
	for i := 0; i < m.n; i++ {
		row := m.data[i*m.n : (i+1)*m.n]
		sum := 0.0
		for j, cell := range row {
			if cell != 0 {
				sum += float64(cell) * v[j]
			}
		}
		dst[i] = sum
	}
}
