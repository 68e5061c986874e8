package views

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/provgraph/pvm/pkg/types"
)

// CSVView exports the final state of every node and relationship as
// nodes.csv and rels.csv when the stream ends. Updates overwrite earlier
// rows, so each entity appears once with its latest payload.
type CSVView struct{}

func (CSVView) Name() string { return "CSVView" }

func (CSVView) Desc() string { return "View exporting the graph as CSV files." }

func (CSVView) Params() map[string]string {
	return map[string]string{"dir": "Directory to write nodes.csv and rels.csv into"}
}

func (CSVView) Run(id int, params Params, in <-chan *types.Change) error {
	dir := params.GetOrDefault("dir", ".")

	nodes := make(map[types.ID]NodeRecord)
	rels := make(map[types.ID]RelRecord)
	for evt := range in {
		if evt.IsNode() {
			nodes[evt.Node.NodeID()] = EncodeNode(evt.Node)
		} else {
			rels[evt.Rel.RelID()] = EncodeRel(evt.Rel)
		}
	}

	if err := writeNodesCSV(filepath.Join(dir, "nodes.csv"), nodes); err != nil {
		return err
	}
	return writeRelsCSV(filepath.Join(dir, "rels.csv"), rels)
}

func writeNodesCSV(path string, nodes map[types.ID]NodeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"id", "class", "pvm", "type", "uuid", "ctx", "name"}); err != nil {
		return err
	}
	for _, id := range sortedIDs(nodes) {
		n := nodes[id]
		row := []string{
			strconv.FormatUint(n.ID, 10),
			n.Class,
			n.PVM,
			n.Type,
			n.UUID,
			strconv.FormatUint(n.Ctx, 10),
			n.Name,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeRelsCSV(path string, rels map[types.ID]RelRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"id", "kind", "src", "dst", "op", "bytes", "start_ctx", "end_ctx"}); err != nil {
		return err
	}
	for _, id := range sortedIDs(rels) {
		r := rels[id]
		row := []string{
			strconv.FormatUint(r.ID, 10),
			r.Kind,
			strconv.FormatUint(r.Src, 10),
			strconv.FormatUint(r.Dst, 10),
			r.Op,
			strconv.FormatUint(r.Bytes, 10),
			strconv.FormatUint(r.StartCtx, 10),
			strconv.FormatUint(r.EndCtx, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs[V any](m map[types.ID]V) []types.ID {
	ids := make([]types.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
