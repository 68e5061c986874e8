package views

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/provgraph/pvm/pkg/types"
)

// DbgView appends every change event to a file, one line each. Intended for
// debugging the event stream.
type DbgView struct{}

func (DbgView) Name() string { return "DbgView" }

func (DbgView) Desc() string { return "View presenting debug output." }

func (DbgView) Params() map[string]string {
	return map[string]string{"output": "Output file location"}
}

func (DbgView) Run(id int, params Params, in <-chan *types.Change) error {
	path := params.GetOrDefault("output", "./dbg.trace")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create debug output: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	for evt := range in {
		var payload []byte
		if evt.IsNode() {
			payload, err = json.Marshal(EncodeNode(evt.Node))
		} else {
			payload, err = json.Marshal(EncodeRel(evt.Rel))
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", evt.Op, payload); err != nil {
			return err
		}
	}
	return nil
}
