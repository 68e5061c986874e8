package views

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/provgraph/pvm/pkg/types"
)

var (
	// Bucket names
	bucketNodes  = []byte("nodes")
	bucketRels   = []byte("rels")
	bucketSchema = []byte("schema")
)

// BoltView persists the provenance graph into a BoltDB file. Entities are
// keyed by big-endian ID and stored as JSON; updates overwrite in place.
type BoltView struct{}

func (BoltView) Name() string { return "BoltView" }

func (BoltView) Desc() string { return "View persisting the graph into a BoltDB file." }

func (BoltView) Params() map[string]string {
	return map[string]string{"path": "Database file location"}
}

func (BoltView) Run(id int, params Params, in <-chan *types.Change) error {
	path := params.GetOrDefault("path", "./pvm.db")

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketNodes, bucketRels, bucketSchema} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Batch a window of events per bolt transaction to keep the write
	// amplification reasonable on large traces.
	const batch = 512
	buf := make([]*types.Change, 0, batch)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		err := db.Update(func(tx *bolt.Tx) error {
			for _, evt := range buf {
				if err := putChange(tx, evt); err != nil {
					return err
				}
			}
			return nil
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

func putChange(tx *bolt.Tx, evt *types.Change) error {
	if evt.IsNode() {
		bucket := bucketNodes
		if _, ok := evt.Node.(*types.SchemaNode); ok {
			bucket = bucketSchema
		}
		data, err := json.Marshal(EncodeNode(evt.Node))
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put(idKey(evt.Node.NodeID()), data)
	}
	data, err := json.Marshal(EncodeRel(evt.Rel))
	if err != nil {
		return err
	}
	return tx.Bucket(bucketRels).Put(idKey(evt.Rel.RelID()), data)
}

func idKey(id types.ID) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(id))
	return key[:]
}
