package compress

// Wrapper is a model wrapper that forwards the forward pass through an
// external replication layer while keeping the underlying module
// reachable. Capability calls (AuxLoss, Update, Compress) must go through
// the unwrapped module, never the wrapper.
type Wrapper interface {
	Model
	Unwrap() Model
}

// Module returns the underlying model, unwrapping at most one layer of
// data-parallel or distributed wrapping. Callers unwrap once and operate
// on the plain capability set thereafter.
func Module(m Model) Model {
	if w, ok := m.(Wrapper); ok {
		return w.Unwrap()
	}
	return m
}

// DataParallel wraps a model replicated across local devices by an
// external engine.
type DataParallel struct {
	M Model
}

// Forward runs the replicated forward pass.
func (d *DataParallel) Forward(x Batch) (*Output, error) {
	return d.M.Forward(x)
}

// Unwrap returns the wrapped module.
func (d *DataParallel) Unwrap() Model {
	return d.M
}

// DistributedDataParallel wraps a model replicated across processes by an
// external distributed layer. Cross-replica gradient and metric reduction
// is the responsibility of that layer, not of this package.
type DistributedDataParallel struct {
	M         Model
	Rank      int
	WorldSize int
}

// Forward runs the replicated forward pass.
func (d *DistributedDataParallel) Forward(x Batch) (*Output, error) {
	return d.M.Forward(x)
}

// Unwrap returns the wrapped module.
func (d *DistributedDataParallel) Unwrap() Model {
	return d.M
}
