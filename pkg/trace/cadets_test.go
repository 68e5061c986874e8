package trace

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provgraph/pvm/pkg/pvm"
	"github.com/provgraph/pvm/pkg/sink"
	"github.com/provgraph/pvm/pkg/types"
)

func ptr[T any](v T) *T {
	return &v
}

func u(b byte) uuid.UUID {
	var id uuid.UUID
	for i := range id {
		id[i] = b
	}
	return id
}

func newTestPVM(t *testing.T) (*pvm.PVM, *sink.Sink) {
	t.Helper()
	db := sink.New(10000)
	p := pvm.New(db)
	Init(p)
	drain(db)
	return p, db
}

func drain(db *sink.Sink) []types.Change {
	var out []types.Change
	for {
		select {
		case c := <-db.Events():
			out = append(out, c)
		default:
			return out
		}
	}
}

func baseEvent(name string, subj uuid.UUID) *AuditEvent {
	host := u(0xAA)
	return &AuditEvent{
		Event:        name,
		Time:         1520000000000000000,
		PID:          100,
		Exec:         "/bin/sh",
		SubjProcUUID: subj,
		Host:         &host,
		offset:       -1,
	}
}

func process(t *testing.T, p *pvm.PVM, e *AuditEvent) {
	t.Helper()
	require.NoError(t, (&TraceEvent{Audit: e}).Process(p))
}

func dataNodes(evts []types.Change) map[types.ID]*types.DataNode {
	out := make(map[types.ID]*types.DataNode)
	for _, evt := range evts {
		if n, ok := evt.Node.(*types.DataNode); ok {
			out[n.ID] = n
		}
	}
	return out
}

func infRels(evts []types.Change, op types.PVMOp) []*types.InfRel {
	var out []*types.InfRel
	for _, evt := range evts {
		if r, ok := evt.Rel.(*types.InfRel); ok && r.Op == op {
			out = append(out, r)
		}
	}
	return out
}

func namedRels(evts []types.Change) []*types.NamedRel {
	var out []*types.NamedRel
	for _, evt := range evts {
		if r, ok := evt.Rel.(*types.NamedRel); ok {
			out = append(out, r)
		}
	}
	return out
}

// Scenario: fork derives the child from the parent with pid metadata, a
// version edge and a source edge.
func TestFork(t *testing.T) {
	p, db := newTestPVM(t)

	evt := baseEvent("audit:event:aue_fork:", u(0x11))
	evt.RetObjUUID1 = ptr(u(0x22))
	evt.Retval = 4242
	process(t, p, evt)

	evts := drain(db)
	require.NotEmpty(t, evts)

	// Context first, then both process versions.
	_, ok := evts[0].Node.(*types.CtxNode)
	require.True(t, ok, "first event must be the context node")

	parent, ok := p.NodeID(u(0x11))
	require.True(t, ok)
	child, ok := p.NodeID(u(0x22))
	require.True(t, ok)

	nodes := dataNodes(evts)
	require.Contains(t, nodes, parent)
	require.Contains(t, nodes, child)
	pid, ok := nodes[child].Meta.Cur("pid")
	require.True(t, ok)
	assert.Equal(t, "4242", pid)

	versions := infRels(evts, types.OpVersion)
	require.Len(t, versions, 1)
	assert.Equal(t, parent, versions[0].Src)
	assert.Equal(t, child, versions[0].Dst)

	sources := infRels(evts, types.OpSource)
	require.Len(t, sources, 1)
	assert.Equal(t, parent, sources[0].Src)
	assert.Equal(t, child, sources[0].Dst)
}

// Scenario: open → write → close versions the file Store → EditSession →
// Store, counting written bytes on the sink edge.
func TestWriteCloseRoundTrip(t *testing.T) {
	p, db := newTestPVM(t)
	fileUUID := u(0x33)

	open := baseEvent("audit:event:aue_open_rwtc:", u(0x11))
	open.RetObjUUID1 = ptr(fileUUID)
	open.UPath1 = ptr("/tmp/a")
	process(t, p, open)

	f0, ok := p.NodeID(fileUUID)
	require.True(t, ok)
	evts := drain(db)
	names := namedRels(evts)
	require.Len(t, names, 1)
	assert.Equal(t, f0, names[0].Src)
	assert.Equal(t, types.NoID, names[0].EndCtx)

	write := baseEvent("audit:event:aue_write:", u(0x11))
	write.ArgObjUUID1 = ptr(fileUUID)
	write.Retval = 7
	process(t, p, write)

	f1, ok := p.NodeID(fileUUID)
	require.True(t, ok)
	assert.NotEqual(t, f0, f1)

	evts = drain(db)
	nodes := dataNodes(evts)
	require.Contains(t, nodes, f1)
	assert.Equal(t, types.EditSession, nodes[f1].PVM)

	sinks := infRels(evts, types.OpSink)
	require.Len(t, sinks, 1)
	assert.Equal(t, f1, sinks[0].Dst)
	assert.Equal(t, uint64(7), sinks[0].ByteCount)

	closeEvt := baseEvent("audit:event:aue_close:", u(0x11))
	closeEvt.ArgObjUUID1 = ptr(fileUUID)
	process(t, p, closeEvt)

	f2, ok := p.NodeID(fileUUID)
	require.True(t, ok)
	assert.NotEqual(t, f1, f2)
	nodes = dataNodes(drain(db))
	require.Contains(t, nodes, f2)
	assert.Equal(t, types.Store, nodes[f2].PVM)
}

// Scenario: rename over an existing destination closes both old name
// bindings and opens the new one.
func TestRenameWithOverwrite(t *testing.T) {
	p, db := newTestPVM(t)

	rename := baseEvent("audit:event:aue_rename:", u(0x11))
	rename.ArgObjUUID1 = ptr(u(0x44))
	rename.ArgObjUUID2 = ptr(u(0x55))
	rename.UPath1 = ptr("/a")
	rename.UPath2 = ptr("/b")
	process(t, p, rename)

	a, _ := p.NodeID(u(0x44))
	b, _ := p.NodeID(u(0x55))

	evts := drain(db)
	names := namedRels(evts)
	require.Len(t, names, 3)

	var aOld, bOld, aNew *types.NamedRel
	for _, r := range names {
		switch {
		case r.Src == a && r.EndCtx != types.NoID:
			aOld = r
		case r.Src == b:
			bOld = r
		case r.Src == a:
			aNew = r
		}
	}
	require.NotNil(t, aOld, "source name must be closed")
	require.NotNil(t, bOld, "overwritten name must be closed")
	require.NotNil(t, aNew, "new name must be live")
	assert.NotEqual(t, types.NoID, bOld.EndCtx)
	assert.Equal(t, types.NoID, aNew.EndCtx)
}

// Scenario: socketpair declares two conduits connected in both directions.
func TestSocketpair(t *testing.T) {
	p, db := newTestPVM(t)

	pair := baseEvent("audit:event:aue_socketpair:", u(0x11))
	pair.RetObjUUID1 = ptr(u(0x66))
	pair.RetObjUUID2 = ptr(u(0x77))
	process(t, p, pair)

	s1, _ := p.NodeID(u(0x66))
	s2, _ := p.NodeID(u(0x77))

	evts := drain(db)
	nodes := dataNodes(evts)
	assert.Equal(t, types.Conduit, nodes[s1].PVM)
	assert.Equal(t, types.Conduit, nodes[s2].PVM)

	connects := infRels(evts, types.OpConnect)
	require.Len(t, connects, 2)
	assert.Equal(t, s1, connects[0].Src)
	assert.Equal(t, s2, connects[0].Dst)
	assert.Equal(t, s2, connects[1].Src)
	assert.Equal(t, s1, connects[1].Dst)
}

// Scenario: a handler missing a required field rolls its transaction back
// without leaking any state, and the stream continues.
func TestMissingFieldRollsBack(t *testing.T) {
	p, db := newTestPVM(t)

	chmod := baseEvent("audit:event:aue_chmod:", u(0x11))
	chmod.ArgObjUUID1 = ptr(u(0x88))
	chmod.Mode = ptr(uint32(0o644))
	// upath1 deliberately absent.
	err := (&TraceEvent{Audit: chmod}).Process(p)

	var missing *pvm.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "upath1", missing.Field)

	assert.Empty(t, drain(db), "no mutation may be visible to views")
	_, ok := p.NodeID(u(0x11))
	assert.False(t, ok, "the rolled-back process declaration must not persist")
	assert.Empty(t, p.UnparsedEvents(), "failed events are not unparsed events")

	// The next record processes normally.
	fork := baseEvent("audit:event:aue_fork:", u(0x11))
	fork.RetObjUUID1 = ptr(u(0x99))
	process(t, p, fork)
	assert.NotEmpty(t, drain(db))
}

func TestUnknownEventIsRecorded(t *testing.T) {
	p, db := newTestPVM(t)

	evt := baseEvent("audit:event:aue_frobnicate:", u(0x11))
	process(t, p, evt)

	assert.Equal(t, []string{"audit:event:aue_frobnicate:"}, p.UnparsedEvents())
	// The subject declaration alone still commits.
	assert.NotEmpty(t, drain(db))
}

func TestExitReleasesSubject(t *testing.T) {
	p, db := newTestPVM(t)

	fork := baseEvent("audit:event:aue_fork:", u(0x11))
	fork.RetObjUUID1 = ptr(u(0x22))
	process(t, p, fork)
	drain(db)

	exit := baseEvent("audit:event:aue_exit:", u(0x11))
	process(t, p, exit)

	_, ok := p.NodeID(u(0x11))
	assert.False(t, ok)
	_, ok = p.NodeID(u(0x22))
	assert.True(t, ok)
	drain(db)
}

func TestUpdateRewritesUUIDsUnderHost(t *testing.T) {
	host := u(0xAA)
	evt := baseEvent("audit:event:aue_fork:", u(0x11))
	evt.RetObjUUID1 = ptr(u(0x22))
	te := &TraceEvent{Audit: evt}
	te.Update()

	subj := u(0x11)
	child := u(0x22)
	assert.Equal(t, uuid.NewSHA1(host, subj[:]), evt.SubjProcUUID)
	assert.Equal(t, uuid.NewSHA1(host, child[:]), *evt.RetObjUUID1)
	assert.Equal(t, uuid.Version(5), evt.SubjProcUUID.Version())
}

func TestDecodeDistinguishesVariants(t *testing.T) {
	audit, err := Decode([]byte(`{"event":"audit:event:aue_fork:","time":1,"pid":1,"ppid":0,"tid":1,"uid":0,"exec":"sh","retval":0,"subjprocuuid":"11111111-1111-1111-1111-111111111111","subjthruuid":"11111111-1111-1111-1111-111111111111"}`))
	require.NoError(t, err)
	assert.NotNil(t, audit.Audit)
	assert.Nil(t, audit.FBT)

	fbt, err := Decode([]byte(`{"event":"fbt:syscall","host":"22222222-2222-2222-2222-222222222222","time":1,"so_uuid":"33333333-3333-3333-3333-333333333333","lport":1,"fport":2,"laddr":"a","faddr":"b"}`))
	require.NoError(t, err)
	assert.NotNil(t, fbt.FBT)
	assert.Nil(t, fbt.Audit)

	_, err = Decode([]byte(`{not json`))
	assert.Error(t, err)
}
