package views

import (
	"fmt"

	"github.com/provgraph/pvm/pkg/types"
)

// InstQueueCapacity is the per-instance queue depth.
const InstQueueCapacity = 1000

// Params carries the string parameters a view instance is created with.
type Params map[string]string

// GetOrDefault returns the value for key, or def when absent.
func (p Params) GetOrDefault(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// View is a registered view type: a factory for instances consuming the
// change-event stream.
type View interface {
	// Name uniquely identifies the view type.
	Name() string
	// Desc is a one-line description shown in CLI help.
	Desc() string
	// Params maps parameter names to their help strings.
	Params() map[string]string
	// Run consumes the stream until the channel closes. It is invoked on a
	// dedicated goroutine per instance.
	Run(id int, params Params, in <-chan *types.Change) error
}

// DuplicateViewError reports a view type registered under a taken name.
type DuplicateViewError struct {
	Name string
}

func (e *DuplicateViewError) Error() string {
	return fmt.Sprintf("view type %q already registered", e.Name)
}

// UnknownViewNameError reports a view lookup by unregistered name.
type UnknownViewNameError struct {
	Name string
}

func (e *UnknownViewNameError) Error() string {
	return fmt.Sprintf("no view type registered under name %q", e.Name)
}

// UnknownViewIDError reports a view lookup by unregistered ID.
type UnknownViewIDError struct {
	ID int
}

func (e *UnknownViewIDError) Error() string {
	return fmt.Sprintf("no view type registered with id %d", e.ID)
}
