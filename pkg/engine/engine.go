package engine

import (
	"errors"
	"io"

	"github.com/provgraph/pvm/pkg/ingest"
	"github.com/provgraph/pvm/pkg/log"
	"github.com/provgraph/pvm/pkg/plugins"
	"github.com/provgraph/pvm/pkg/pvm"
	"github.com/provgraph/pvm/pkg/sink"
	"github.com/provgraph/pvm/pkg/trace"
	"github.com/provgraph/pvm/pkg/views"
)

var (
	// ErrPipelineRunning reports an operation requiring a stopped pipeline.
	ErrPipelineRunning = errors.New("pipeline already running")
	// ErrPipelineNotRunning reports an operation requiring a running
	// pipeline.
	ErrPipelineNotRunning = errors.New("pipeline not yet running")
	// ErrNotImplemented reports a placeholder operation.
	ErrNotImplemented = errors.New("not implemented")
)

// Pipeline bundles the running ingestion machinery.
type Pipeline struct {
	db    *sink.Sink
	pvm   *pvm.PVM
	views *views.Coordinator
}

// Engine owns the PVM, the view coordinator and the loaded plugins.
type Engine struct {
	cfg      Config
	plugins  *plugins.Manager
	pipeline *Pipeline
}

// New builds an engine, loading every plugin named by the configuration.
func New(cfg Config) (*Engine, error) {
	pm := plugins.NewManager()
	if cfg.PluginDir != "" {
		if err := pm.LoadAll(cfg.PluginDir); err != nil {
			return nil, err
		}
	}
	return &Engine{cfg: cfg, plugins: pm}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// InitPipeline wires the change-event sink, the view coordinator and the
// PVM. Initialisation is all-or-nothing: a failed view registration tears
// the partial pipeline down.
func (e *Engine) InitPipeline() error {
	if e.pipeline != nil {
		return ErrPipelineRunning
	}
	db := sink.New(e.cfg.SinkCapacity)
	vc := views.NewCoordinator(db.Events())

	builtin := []views.View{
		views.DbgView{},
		views.CSVView{},
		views.ProcTreeView{},
		views.BoltView{},
		views.Neo4jView{},
	}
	for _, v := range builtin {
		if _, err := vc.RegisterViewType(v); err != nil {
			db.Close()
			vc.Shutdown()
			return err
		}
	}
	if err := e.plugins.InitViews(vc); err != nil {
		db.Close()
		vc.Shutdown()
		return err
	}

	e.pipeline = &Pipeline{db: db, pvm: pvm.New(db), views: vc}
	log.WithComponent("engine").Info().Msg("pipeline initialised")
	return nil
}

// ShutdownPipeline closes the change-event channel, drains the broadcaster
// and joins every view.
func (e *Engine) ShutdownPipeline() error {
	if e.pipeline == nil {
		return ErrPipelineNotRunning
	}
	p := e.pipeline
	e.pipeline = nil
	p.pvm.Shutdown()
	p.views.Shutdown()
	log.WithComponent("engine").Info().Msg("pipeline shut down")
	return nil
}

// Close shuts the pipeline down if it is still running.
func (e *Engine) Close() error {
	if err := e.ShutdownPipeline(); err != nil && !errors.Is(err, ErrPipelineNotRunning) {
		return err
	}
	return nil
}

func (e *Engine) getPipeline() (*Pipeline, error) {
	if e.pipeline == nil {
		return nil, ErrPipelineNotRunning
	}
	return e.pipeline, nil
}

// ListViewTypes returns the registered view types.
func (e *Engine) ListViewTypes() ([]views.View, error) {
	p, err := e.getPipeline()
	if err != nil {
		return nil, err
	}
	return p.views.ListViewTypes(), nil
}

// RegisterViewType registers an additional view type.
func (e *Engine) RegisterViewType(v views.View) (int, error) {
	p, err := e.getPipeline()
	if err != nil {
		return 0, err
	}
	return p.views.RegisterViewType(v)
}

// ViewTypeID resolves a view type name.
func (e *Engine) ViewTypeID(name string) (int, error) {
	p, err := e.getPipeline()
	if err != nil {
		return 0, err
	}
	id, ok := p.views.ViewTypeID(name)
	if !ok {
		return 0, &views.UnknownViewNameError{Name: name}
	}
	return id, nil
}

// CreateViewByName instantiates the view type registered under name.
func (e *Engine) CreateViewByName(name string, params views.Params) (int, error) {
	p, err := e.getPipeline()
	if err != nil {
		return 0, err
	}
	return p.views.CreateViewWithName(name, params)
}

// CreateViewByID instantiates the view type with the given ID.
func (e *Engine) CreateViewByID(id int, params views.Params) (int, error) {
	p, err := e.getPipeline()
	if err != nil {
		return 0, err
	}
	return p.views.CreateViewWithID(id, params)
}

// ListRunningViews returns the live view instances.
func (e *Engine) ListRunningViews() ([]*views.Instance, error) {
	p, err := e.getPipeline()
	if err != nil {
		return nil, err
	}
	return p.views.ListInstances(), nil
}

// IngestReader streams trace records from r through the pipeline.
func (e *Engine) IngestReader(r io.Reader) error {
	p, err := e.getPipeline()
	if err != nil {
		return err
	}
	// Schema descriptors are emitted here rather than at pipeline init so
	// that views created in between observe them.
	trace.Init(p.pvm)
	return ingest.Stream(r, p.pvm, decodeTrace, ingest.Options{
		BatchSize: e.cfg.BatchSize,
		Workers:   e.cfg.ParseWorkers,
	})
}

// CountProcesses is a placeholder pending a query surface over the
// persisted graph.
func (e *Engine) CountProcesses() (int64, error) {
	return 0, ErrNotImplemented
}

func decodeTrace(line []byte) (ingest.Mapped, error) {
	evt, err := trace.Decode(line)
	if err != nil {
		return nil, err
	}
	return evt, nil
}
