package runner

import (
	"fmt"

	"github.com/lidq92/compresstrain/compress"
	"github.com/lidq92/compresstrain/plot"
)

// callLog records the order of collaborator calls so tests can assert the
// dual-objective update sequence.
type callLog struct {
	calls []string
}

func (l *callLog) add(call string) {
	l.calls = append(l.calls, call)
}

func (l *callLog) contains(call string) bool {
	for _, c := range l.calls {
		if c == call {
			return true
		}
	}
	return false
}

type fakeScalar struct {
	value float64
	log   *callLog
	tag   string
}

func (s *fakeScalar) Item() float64 { return s.value }

func (s *fakeScalar) Backward() error {
	if s.log != nil {
		s.log.add(s.tag + ".backward")
	}
	return nil
}

// fakeModel implements the full capability surface.
type fakeModel struct {
	log         *callLog
	updateCalls int
	auxValue    float64
	lastInput   compress.Batch
	streamBytes int
}

func (m *fakeModel) Forward(x compress.Batch) (*compress.Output, error) {
	m.log.add("forward")
	return &compress.Output{XHat: x}, nil
}

func (m *fakeModel) AuxLoss() (compress.Scalar, error) {
	m.log.add("aux_loss")
	return &fakeScalar{value: m.auxValue, log: m.log, tag: "aux"}, nil
}

func (m *fakeModel) Update() error {
	m.log.add("update")
	m.updateCalls++
	return nil
}

func (m *fakeModel) Compress(x compress.Batch) (*compress.Compressed, error) {
	m.log.add("compress")
	m.lastInput = x
	n := m.streamBytes
	if n == 0 {
		n = 1200
	}
	return &compress.Compressed{Streams: [][]byte{make([]byte, n)}}, nil
}

func (m *fakeModel) Decompress(c *compress.Compressed) (compress.Batch, error) {
	m.log.add("decompress")
	// perturbed reconstruction: MSE 1e-4 against the input, so PSNR = 40
	data := make([]float32, len(m.lastInput.Data))
	for i, v := range m.lastInput.Data {
		data[i] = v + 0.01
	}
	rec := m.lastInput
	rec.Data = data
	return rec, nil
}

func (m *fakeModel) ClipGradNorm(maxNorm float64) error {
	m.log.add(fmt.Sprintf("clip(%.1f)", maxNorm))
	return nil
}

func (m *fakeModel) NumParameters() int { return 12345 }

// auxOnlyModel has the auxiliary loss but no codec, update or clip
// capability.
type auxOnlyModel struct {
	log *callLog
}

func (m *auxOnlyModel) Forward(x compress.Batch) (*compress.Output, error) {
	m.log.add("forward")
	return &compress.Output{XHat: x}, nil
}

func (m *auxOnlyModel) AuxLoss() (compress.Scalar, error) {
	return &fakeScalar{value: 1, log: m.log, tag: "aux"}, nil
}

// modelNoAux lacks the auxiliary-loss capability entirely.
type modelNoAux struct{}

func (m *modelNoAux) Forward(x compress.Batch) (*compress.Output, error) {
	return &compress.Output{XHat: x}, nil
}

// fakeCriterion yields a scripted sequence of loss values.
type fakeCriterion struct {
	log         *callLog
	losses      []float64
	call        int
	lambda      float64
	missingLoss bool
}

func (c *fakeCriterion) Compute(out *compress.Output, x compress.Batch) (map[string]compress.Scalar, error) {
	c.log.add("criterion")
	if c.missingLoss {
		return map[string]compress.Scalar{
			"bpp_loss": &fakeScalar{value: 0.5},
		}, nil
	}
	loss := c.losses[c.call%len(c.losses)]
	c.call++
	return map[string]compress.Scalar{
		"loss":     &fakeScalar{value: loss, log: c.log, tag: "loss"},
		"bpp_loss": &fakeScalar{value: loss / 2},
		"mse_loss": &fakeScalar{value: loss / 4},
	}, nil
}

func (c *fakeCriterion) Lambda() float64 { return c.lambda }

type fakeOptimizer struct {
	log *callLog
	tag string
	lr  float64
}

func (o *fakeOptimizer) Step() error {
	o.log.add(o.tag + ".step")
	return nil
}

func (o *fakeOptimizer) ZeroGrad() {
	o.log.add(o.tag + ".zero")
}

func (o *fakeOptimizer) GetLR() float64   { return o.lr }
func (o *fakeOptimizer) SetLR(lr float64) { o.lr = lr }

// sinks with partial capability sets

type scalarSink struct {
	records map[string]map[string]float64
}

func newScalarSink() *scalarSink {
	return &scalarSink{records: make(map[string]map[string]float64)}
}

func (s *scalarSink) Name() string { return "scalar-sink" }

func (s *scalarSink) LogScalars(scope string, epoch int, values map[string]float64) error {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.records[scope] = copied
	return nil
}

type figureSink struct {
	figures map[string]*plot.Figure
}

func newFigureSink() *figureSink {
	return &figureSink{figures: make(map[string]*plot.Figure)}
}

func (s *figureSink) Name() string { return "figure-sink" }

func (s *figureSink) LogFigure(name string, fig *plot.Figure) error {
	s.figures[name] = fig
	return nil
}

// bareSink implements no capabilities; dispatch must skip it silently.
type bareSink struct{}

func (bareSink) Name() string { return "bare" }

// sliceLoader yields a fixed batch sequence.
type sliceLoader struct {
	batches []compress.Batch
	i       int
}

func (l *sliceLoader) Reset() { l.i = 0 }

func (l *sliceLoader) Next() (compress.Batch, bool) {
	if l.i >= len(l.batches) {
		return compress.Batch{}, false
	}
	b := l.batches[l.i]
	l.i++
	return b, true
}

func trainBatchOf(n int) compress.Batch {
	data := make([]float32, n*3*8*8)
	for i := range data {
		data[i] = float32(i%17) / 17
	}
	return compress.Batch{N: n, C: 3, H: 8, W: 8, Data: data}
}

func evalBatchOf(n int) compress.Batch {
	data := make([]float32, n*1*192*192)
	for i := range data {
		data[i] = float32(i%192) / 256
	}
	return compress.Batch{N: n, C: 1, H: 192, W: 192, Data: data}
}
