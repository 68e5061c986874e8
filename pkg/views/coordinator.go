package views

import (
	"sort"
	"sync"

	"github.com/provgraph/pvm/pkg/log"
	"github.com/provgraph/pvm/pkg/metrics"
	"github.com/provgraph/pvm/pkg/types"
)

// Instance is a running view.
type Instance struct {
	ID     int
	Type   int
	Name   string
	Params Params

	done chan struct{}
	err  error
}

// Err returns the instance's terminal error, valid after the instance has
// finished.
func (i *Instance) Err() error {
	return i.err
}

// Coordinator registers view types, spawns instances and broadcasts every
// change event to all of them.
type Coordinator struct {
	mu       sync.Mutex
	types    map[int]View
	nameMap  map[string]int
	insts    []*Instance
	queues   []chan *types.Change
	vidGen   int
	viidGen  int
	bcasting sync.WaitGroup
}

// NewCoordinator starts the broadcast goroutine over in. The coordinator
// runs until in is closed and Shutdown is called.
func NewCoordinator(in <-chan types.Change) *Coordinator {
	c := &Coordinator{
		types:   make(map[int]View),
		nameMap: make(map[string]int),
	}
	c.bcasting.Add(1)
	go c.broadcast(in)
	return c
}

func (c *Coordinator) broadcast(in <-chan types.Change) {
	defer c.bcasting.Done()
	for evt := range in {
		ev := evt
		metrics.EventsBroadcast.Inc()
		c.mu.Lock()
		queues := make([]chan *types.Change, len(c.queues))
		copy(queues, c.queues)
		c.mu.Unlock()
		for _, q := range queues {
			// Blocking send: a slow view back-pressures the pipeline so no
			// event is ever dropped.
			q <- &ev
		}
	}
}

// RegisterViewType registers v under its name, returning the type ID.
func (c *Coordinator) RegisterViewType(v View) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.nameMap[v.Name()]; ok {
		return 0, &DuplicateViewError{Name: v.Name()}
	}
	id := c.vidGen
	c.vidGen++
	c.types[id] = v
	c.nameMap[v.Name()] = id
	return id, nil
}

// ListViewTypes returns the registered view types in registration order.
func (c *Coordinator) ListViewTypes() []View {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]View, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.types[id])
	}
	return out
}

// ViewTypeID resolves a view type name to its ID.
func (c *Coordinator) ViewTypeID(name string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.nameMap[name]
	return id, ok
}

// CreateViewWithID instantiates the view type with the given ID.
func (c *Coordinator) CreateViewWithID(id int, params Params) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.types[id]
	if !ok {
		return 0, &UnknownViewIDError{ID: id}
	}
	iid := c.viidGen
	c.viidGen++
	q := make(chan *types.Change, InstQueueCapacity)
	inst := &Instance{
		ID:     iid,
		Type:   id,
		Name:   v.Name(),
		Params: params,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(inst.done)
		if err := v.Run(iid, params, q); err != nil {
			inst.err = err
			log.WithComponent("views").Error().
				Err(err).
				Str("view", v.Name()).
				Int("instance", iid).
				Msg("view instance failed")
		}
	}()
	c.insts = append(c.insts, inst)
	c.queues = append(c.queues, q)
	metrics.ViewInstances.Inc()
	return iid, nil
}

// CreateViewWithName instantiates the view type registered under name.
func (c *Coordinator) CreateViewWithName(name string, params Params) (int, error) {
	c.mu.Lock()
	id, ok := c.nameMap[name]
	c.mu.Unlock()
	if !ok {
		return 0, &UnknownViewNameError{Name: name}
	}
	return c.CreateViewWithID(id, params)
}

// ListInstances returns the running instances in creation order.
func (c *Coordinator) ListInstances() []*Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Instance, len(c.insts))
	copy(out, c.insts)
	return out
}

// Shutdown waits for the broadcaster to drain (the input channel must
// already be closed), then closes every instance queue in registration order
// and joins the instance goroutines.
func (c *Coordinator) Shutdown() {
	c.bcasting.Wait()
	c.mu.Lock()
	queues := c.queues
	insts := c.insts
	c.queues = nil
	c.mu.Unlock()
	for _, q := range queues {
		close(q)
	}
	for _, inst := range insts {
		<-inst.done
		metrics.ViewInstances.Dec()
	}
}
