package ingest

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provgraph/pvm/pkg/log"
	"github.com/provgraph/pvm/pkg/pvm"
	"github.com/provgraph/pvm/pkg/sink"
	"github.com/provgraph/pvm/pkg/trace"
	"github.com/provgraph/pvm/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard, JSONOutput: true})
	m.Run()
}

func decodeTrace(line []byte) (Mapped, error) {
	evt, err := trace.Decode(line)
	if err != nil {
		return nil, err
	}
	return evt, nil
}

func newTestPVM() (*pvm.PVM, *sink.Sink) {
	db := sink.New(100000)
	p := pvm.New(db)
	trace.Init(p)
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

func socketLine(subj, sock uuid.UUID) string {
	return fmt.Sprintf(
		`{"event":"audit:event:aue_socket:","time":1520000000000000000,"pid":1,"ppid":0,"tid":1,"uid":0,"exec":"sh","retval":3,"subjprocuuid":%q,"subjthruuid":%q,"host":"aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa","ret_objuuid1":%q}`,
		subj, subj, sock)
}

func TestStreamFramesAndApplies(t *testing.T) {
	p, db := newTestPVM()

	subj := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	s1 := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	s2 := uuid.MustParse("33333333-3333-3333-3333-333333333333")

	input := strings.Join([]string{
		"[",
		"",
		socketLine(subj, s1),
		", " + socketLine(subj, s2),
		"]",
	}, "\n")

	err := Stream(strings.NewReader(input), p, decodeTrace, Options{BatchSize: 2})
	require.NoError(t, err)

	// UUIDs are rewritten under the host before application.
	host := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	_, ok := p.NodeID(uuid.NewSHA1(host, s1[:]))
	assert.True(t, ok)
	_, ok = p.NodeID(uuid.NewSHA1(host, s2[:]))
	assert.True(t, ok)
	assert.NotEmpty(t, drain(db))
}

func TestStreamSkipsMalformedLines(t *testing.T) {
	p, db := newTestPVM()

	subj := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	s1 := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	input := strings.Join([]string{
		"{this is not json",
		socketLine(subj, s1),
	}, "\n")

	err := Stream(strings.NewReader(input), p, decodeTrace, Options{BatchSize: 8})
	require.NoError(t, err)

	host := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	_, ok := p.NodeID(uuid.NewSHA1(host, s1[:]))
	assert.True(t, ok, "the valid record after a malformed line must still apply")
	drain(db)
}

func TestStreamPreservesLineOrder(t *testing.T) {
	p, db := newTestPVM()

	subj := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	var lines []string
	var socks []uuid.UUID
	for i := 0; i < 9; i++ {
		s := uuid.MustParse(fmt.Sprintf("%08d-0000-0000-0000-000000000000", i+1))
		socks = append(socks, s)
		lines = append(lines, socketLine(subj, s))
	}

	// A batch size smaller than the input exercises the batch loop.
	err := Stream(strings.NewReader(strings.Join(lines, "\n")), p, decodeTrace, Options{BatchSize: 4, Workers: 4})
	require.NoError(t, err)

	host := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	var created []types.ID
	for _, evt := range drain(db) {
		if n, ok := evt.Node.(*types.DataNode); ok && n.Ty.Name == "socket" {
			created = append(created, n.ID)
		}
	}
	require.Len(t, created, len(socks))

	// Socket IDs must ascend in input order despite parallel decoding.
	for i := 1; i < len(created); i++ {
		assert.Less(t, created[i-1], created[i])
	}
	for _, s := range socks {
		_, ok := p.NodeID(uuid.NewSHA1(host, s[:]))
		assert.True(t, ok)
	}
}

func TestStreamRecordErrorContinues(t *testing.T) {
	p, db := newTestPVM()

	subj := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	s1 := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	// chmod without upath1 rolls back; the following record still applies.
	badChmod := fmt.Sprintf(
		`{"event":"audit:event:aue_chmod:","time":1,"pid":1,"ppid":0,"tid":1,"uid":0,"exec":"sh","retval":0,"subjprocuuid":%q,"subjthruuid":%q,"host":"aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa","arg_objuuid1":%q,"mode":420}`,
		subj, subj, s1)
	input := badChmod + "\n" + socketLine(subj, s1)

	err := Stream(strings.NewReader(input), p, decodeTrace, Options{BatchSize: 8})
	require.NoError(t, err)

	host := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	_, ok := p.NodeID(uuid.NewSHA1(host, s1[:]))
	assert.True(t, ok)
	drain(db)
}
