package features

import "errors"

var (
	// ErrConversion is returned when a value cannot be read as a number.
	ErrConversion = errors.New("features: value is not numeric")
	// ErrColumnType is returned when a column has a type the step cannot read.
	ErrColumnType = errors.New("features: unsupported column type")
)
