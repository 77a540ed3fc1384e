package proxy

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/config"
)

// Tracing errors.
var (
	// ErrDataDependent is returned when a traced value is read out of a
	// trace-time placeholder, typically by data-dependent control flow.
	ErrDataDependent = errors.New("it appears that you're trying to get a value out of a tracing tensor; " +
		"this is likely caused by data-dependent control flow or similar")

	// ErrConstantBakedIn is returned when an operator output has no handle,
	// meaning a constant would be baked into the graph.
	ErrConstantBakedIn = errors.New("internal error: tensor constant baked into the graph")

	// ErrSymbolicMismatch is returned when a symbolic operation does not
	// produce a symbolic scalar.
	ErrSymbolicMismatch = errors.New("symbolic operation did not return a symbolic scalar")

	// ErrInvalidMode is returned for an unrecognized tracing mode.
	ErrInvalidMode = config.ErrInvalidMode
)
