package profile

import (
	"errors"
	"fmt"
)

// Batch steps, in execution order.
const (
	StepBegin     = "begin"
	StepRoot      = "root"
	StepElements  = "elements"
	StepValues    = "values"
	StepNormalize = "normalize"
)

// ErrNilDocument is returned when Learn or a check is given no document.
var ErrNilDocument = errors.New("profile: nil document")

// ConnectError reports that a profile file could not be opened.
type ConnectError struct {
	Path  string
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("profile: open %s: %v", e.Path, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// BatchError reports the step of a Learn run that failed. Steps before it
// stay committed; re-running the same ingestion converges.
type BatchError struct {
	Step      string
	Element   string
	Attribute string
	Cause     error
}

func (e *BatchError) Error() string {
	switch {
	case e.Attribute != "":
		return fmt.Sprintf("profile: batch aborted at %s (%s@%s): %v", e.Step, e.Attribute, e.Element, e.Cause)
	case e.Element != "":
		return fmt.Sprintf("profile: batch aborted at %s (%s): %v", e.Step, e.Element, e.Cause)
	default:
		return fmt.Sprintf("profile: batch aborted at %s: %v", e.Step, e.Cause)
	}
}

func (e *BatchError) Unwrap() error { return e.Cause }

// DepthError reports a cascade that went deeper than Config.MaxDepth.
type DepthError struct {
	Name  string
	Depth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("profile: cascade from %s exceeds max depth %d", e.Name, e.Depth)
}
