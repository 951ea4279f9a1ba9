package metrics

import "errors"

var (
	// ErrInvalidArgument indicates a caller error such as an unknown level or bad weights.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDataFormat indicates malformed input data such as a non-numeric budget amount.
	ErrDataFormat = errors.New("data format error")
)
