package engine

import (
	"errors"

	"github.com/provgraph/pvm/pkg/plugins"
	"github.com/provgraph/pvm/pkg/views"
)

// Code is the stable numeric error enumeration of the C adapter. Adapter
// functions return the negated code on failure.
type Code int

const (
	EUnknown            Code = 1
	EAmbiguousViewName  Code = 2
	ENoViewWithName     Code = 3
	EInvalidArg         Code = 4
	ENoViewWithID       Code = 5
	EPipelineNotRunning Code = 6
	EPipelineRunning    Code = 7
	EPluginLoad         Code = 8
	EThreadStartup      Code = 9
)

// CodeOf maps an engine error onto its adapter code.
func CodeOf(err error) Code {
	var (
		dupView     *views.DuplicateViewError
		unknownName *views.UnknownViewNameError
		unknownID   *views.UnknownViewIDError
		mismatch    *plugins.VersionMismatchError
	)
	switch {
	case errors.Is(err, ErrPipelineRunning):
		return EPipelineRunning
	case errors.Is(err, ErrPipelineNotRunning):
		return EPipelineNotRunning
	case errors.As(err, &dupView):
		return EAmbiguousViewName
	case errors.As(err, &unknownName):
		return ENoViewWithName
	case errors.As(err, &unknownID):
		return ENoViewWithID
	case errors.As(err, &mismatch):
		return EPluginLoad
	default:
		return EUnknown
	}
}
