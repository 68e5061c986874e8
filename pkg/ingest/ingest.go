// Package ingest frames, decodes and applies a trace stream: a line reader
// feeds fixed-size batches, batches deserialise in parallel, and records
// apply to the PVM serially in input order so graph causality matches the
// stream.
package ingest

import (
	"bufio"
	"io"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/provgraph/pvm/pkg/log"
	"github.com/provgraph/pvm/pkg/metrics"
	"github.com/provgraph/pvm/pkg/pvm"
)

// DefaultBatchSize is the number of lines decoded per parallel batch.
const DefaultBatchSize = 1 << 17

// maxLine bounds a single input line.
const maxLine = 16 << 20

// Mapped is a decoded trace record ready to be applied to the PVM.
type Mapped interface {
	// SetOffset stamps the record with its input line number.
	SetOffset(offset int)
	// Update normalises the record. It must be a pure function of the
	// record, as it runs on parse workers.
	Update()
	// Process applies the record inside its own transaction.
	Process(p *pvm.PVM) error
}

// DecodeFunc deserialises one framed line.
type DecodeFunc func(line []byte) (Mapped, error)

// Options tunes the pipeline.
type Options struct {
	// BatchSize is the number of lines per parse batch. Defaults to
	// DefaultBatchSize.
	BatchSize int
	// Workers caps the parse parallelism. Defaults to GOMAXPROCS.
	Workers int
}

type line struct {
	no   int
	text string
}

// Stream consumes r to exhaustion, applying every decoded record to p in
// line order. Malformed lines are logged and skipped; record-level
// processing errors roll back their transaction and the stream continues.
func Stream(r io.Reader, p *pvm.PVM, decode DecodeFunc, opts Options) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := log.WithComponent("ingest")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	batch := make([]line, 0, batchSize)
	results := make([]Mapped, batchSize)
	lineNo := 0

	for {
		batch = batch[:0]
		for len(batch) < batchSize && scanner.Scan() {
			n := lineNo
			lineNo++
			metrics.LinesRead.Inc()
			l := scanner.Text()
			if l == "" || l == "[" || l == "]" {
				continue
			}
			// The source may emit JSON-array element separators.
			l = strings.TrimPrefix(l, ", ")
			batch = append(batch, line{no: n, text: l})
		}
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(workers)
		for i := range batch {
			g.Go(func() error {
				evt, err := decode([]byte(batch[i].text))
				if err != nil {
					metrics.ParseErrors.Inc()
					logger.Warn().
						Int("line", batch[i].no+1).
						Err(err).
						Str("raw", batch[i].text).
						Msg("discarding undecodable record")
					results[i] = nil
					return nil
				}
				evt.SetOffset(batch[i].no)
				evt.Update()
				results[i] = evt
				return nil
			})
		}
		g.Wait()

		for i := range batch {
			evt := results[i]
			if evt == nil {
				continue
			}
			timer := metrics.NewTimer()
			if err := evt.Process(p); err != nil {
				metrics.TransactionsRolledBack.WithLabelValues("record_error").Inc()
				logger.Warn().
					Int("line", batch[i].no+1).
					Err(err).
					Msg("record rolled back")
				continue
			}
			timer.ObserveDuration(metrics.TransactionDuration)
			metrics.RecordsApplied.Inc()
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Msg("stream read failed")
		return err
	}

	if unparsed := p.UnparsedEvents(); len(unparsed) > 0 {
		logger.Info().Strs("events", unparsed).Msg("events with no handler")
	}
	return nil
}
