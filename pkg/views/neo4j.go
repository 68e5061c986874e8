package views

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/provgraph/pvm/pkg/types"
)

// Neo4jView persists the provenance graph into a Neo4j database. Nodes and
// relationships are MERGEd by their engine ID so updates are idempotent.
type Neo4jView struct{}

func (Neo4jView) Name() string { return "Neo4jView" }

func (Neo4jView) Desc() string { return "View persisting the graph into a Neo4j database." }

func (Neo4jView) Params() map[string]string {
	return map[string]string{
		"addr": "Bolt URI of the Neo4j server",
		"user": "Database username",
		"pass": "Database password",
	}
}

func (Neo4jView) Run(id int, params Params, in <-chan *types.Change) error {
	addr := params.GetOrDefault("addr", "bolt://localhost:7687")
	user := params.GetOrDefault("user", "neo4j")
	pass := params.GetOrDefault("pass", "opus")

	ctx := context.Background()
	driver, err := neo4j.NewDriverWithContext(addr, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	// Events arrive in commit order; batches preserve it within one write
	// transaction.
	const batch = 256
	buf := make([]*types.Change, 0, batch)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, evt := range buf {
				if err := applyChange(ctx, tx, evt); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		buf = buf[:0]
		return err
	}

	for evt := range in {
		buf = append(buf, evt)
		if len(buf) == batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func applyChange(ctx context.Context, tx neo4j.ManagedTransaction, evt *types.Change) error {
	if evt.IsNode() {
		rec := EncodeNode(evt.Node)
		_, err := tx.Run(ctx,
			`MERGE (n:Node {db_id: $id})
			 SET n.class = $class, n.pvm = $pvm, n.type = $type,
			     n.uuid = $uuid, n.ctx = $ctx, n.name = $name,
			     n.meta = $meta, n.fields = $fields`,
			map[string]any{
				"id":     int64(rec.ID),
				"class":  rec.Class,
				"pvm":    rec.PVM,
				"type":   rec.Type,
				"uuid":   rec.UUID,
				"ctx":    int64(rec.Ctx),
				"name":   rec.Name,
				"meta":   flatten(rec.Meta),
				"fields": flatten(rec.Fields),
			})
		return err
	}
	rec := EncodeRel(evt.Rel)
	_, err := tx.Run(ctx,
		`MATCH (s:Node {db_id: $src}), (d:Node {db_id: $dst})
		 MERGE (s)-[r:REL {db_id: $id}]->(d)
		 SET r.kind = $kind, r.op = $op, r.call = $call, r.ctx = $ctx,
		     r.bytes = $bytes, r.start_ctx = $start, r.end_ctx = $end`,
		map[string]any{
			"id":    int64(rec.ID),
			"src":   int64(rec.Src),
			"dst":   int64(rec.Dst),
			"kind":  rec.Kind,
			"op":    rec.Op,
			"call":  rec.Call,
			"ctx":   int64(rec.Ctx),
			"bytes": int64(rec.Bytes),
			"start": int64(rec.StartCtx),
			"end":   int64(rec.EndCtx),
		})
	return err
}

// flatten turns a string map into the alternating key/value list form Neo4j
// can store as a property.
func flatten(m map[string]string) []string {
	out := make([]string, 0, len(m)*2)
	for k, v := range m {
		out = append(out, k, v)
	}
	return out
}
