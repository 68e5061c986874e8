package views

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/provgraph/pvm/pkg/types"
)

// ProcTreeView streams the actor subgraph as JSON lines: one record each
// time an actor node is first seen or its name value changes, one per flow
// edge between known actors, plus an interning record the first time each
// host appears.
type ProcTreeView struct{}

type procTreeNode struct {
	Type     string `json:"type"`
	ID       uint64 `json:"id"`
	Cmd      string `json:"cmd,omitempty"`
	Host     int    `json:"host,omitempty"`
	TraceIdx string `json:"trace_idx,omitempty"`
	TS       string `json:"ts,omitempty"`
}

type procTreeEdge struct {
	Type string `json:"type"`
	Src  uint64 `json:"src"`
	Dst  uint64 `json:"dst"`
}

type procTreeHost struct {
	Type string `json:"type"`
	UUID string `json:"uuid"`
	Idx  int    `json:"idx"`
}

func (ProcTreeView) Name() string { return "ProcTreeView" }

func (ProcTreeView) Desc() string { return "View for storing a process tree." }

func (ProcTreeView) Params() map[string]string {
	return map[string]string{
		"output":  "Output file location",
		"metakey": "Metadata key for process name",
	}
}

func (ProcTreeView) Run(id int, params Params, in <-chan *types.Change) error {
	path := params.GetOrDefault("output", "./proc_tree.json")
	metaKey := params.GetOrDefault("metakey", "cmdline")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create process tree output: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	enc := json.NewEncoder(w)
	seen := make(map[types.ID]string)
	ctxs := make(map[types.ID]*types.CtxNode)
	hosts := make(map[string]int)

	for evt := range in {
		switch evt.Op {
		case types.CreateNode, types.UpdateNode:
			switch n := evt.Node.(type) {
			case *types.CtxNode:
				ctxs[n.ID] = n
			case *types.DataNode:
				if n.PVM != types.Actor {
					continue
				}
				cmd, _ := n.Meta.Cur(metaKey)
				if prev, ok := seen[n.ID]; ok && prev == cmd {
					continue
				}
				seen[n.ID] = cmd
				rec := procTreeNode{Type: "node", ID: uint64(n.ID), Cmd: cmd}
				if ctx, ok := ctxs[n.Ctx]; ok {
					rec.TraceIdx = ctx.Fields["trace_offset"]
					rec.TS = ctx.Fields["time"]
					if h, ok := ctx.Fields["host"]; ok {
						idx, ok := hosts[h]
						if !ok {
							idx = len(hosts) + 1
							hosts[h] = idx
							if err := enc.Encode(procTreeHost{Type: "hostval", UUID: h, Idx: idx}); err != nil {
								return err
							}
						}
						rec.Host = idx
					}
				}
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
		case types.CreateRel:
			r, ok := evt.Rel.(*types.InfRel)
			if !ok {
				continue
			}
			if _, ok := seen[r.Src]; !ok {
				continue
			}
			if _, ok := seen[r.Dst]; !ok {
				continue
			}
			if err := enc.Encode(procTreeEdge{Type: "edge", Src: uint64(r.Src), Dst: uint64(r.Dst)}); err != nil {
				return err
			}
		}
	}
	return nil
}
