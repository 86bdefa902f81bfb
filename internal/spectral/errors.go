package spectral

import "errors"

var (
	// ErrNonSquare is returned by FromRows when a row length differs from the row count.
	ErrNonSquare = errors.New("spectral: matrix is not square")

	// ErrNegativeEntry is returned by FromRows when an entry is below zero.
	ErrNegativeEntry = errors.New("spectral: negative matrix entry")
)
