package discovery

import (
	"errors"
	"fmt"
)

// ErrInvalidUnit is returned for a unit with neither a name nor a path.
var ErrInvalidUnit = errors.New("unit has neither name nor path")

// AnalysisError wraps an unexpected failure while analyzing one unit.
type AnalysisError struct {
	Unit string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze %s: %v", e.Unit, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
