package host

import (
	"fmt"

	"github.com/sigflow/polygraph/buffer"
	"github.com/sigflow/polygraph/dsp"
	"github.com/sigflow/polygraph/graph"
	"github.com/sigflow/polygraph/internal/testsignal"
	"github.com/sigflow/polygraph/oscillator"
	"github.com/sigflow/polygraph/processor"
	"github.com/sigflow/polygraph/schedule"
	"github.com/sigflow/polygraph/vec"
	"github.com/sigflow/polygraph/voice"
	"github.com/sigflow/polygraph/wavetable"
)

// numClusters is fixed at 1 for this demo host: a single voice, no
// polyphonic cluster stacking. A real host would size this from its
// own polyphony budget and drive voice.StackVoiceManager to assign
// (cluster, lane) slots across many simultaneous notes.
const numClusters = 1

// sinkProcessor backs a pure root/master node: it has nothing to
// compute, since its whole purpose is to give the scheduler a graph
// node whose input claim becomes a CopyToMaster task. Process is never
// expected to be called with any outputs to fill.
type sinkProcessor struct{}

func (sinkProcessor) Process(*buffer.Dispatcher, int) (vec.Mask, error) {
	return vec.SplatMask(true), nil
}
func (sinkProcessor) AudioIOLayout() (numInputs, numOutputs int) { return 1, 0 }
func (sinkProcessor) Parameters() processor.Parameters           { return processor.NoParameters{} }
func (sinkProcessor) Initialize(float32, int, int) int           { return 0 }
func (sinkProcessor) ActivateVoice(processor.VoiceIndex, uint8, float32) {}
func (sinkProcessor) DeactivateVoice(processor.VoiceIndex, float32)      {}
func (sinkProcessor) Reset(processor.VoiceIndex)                         {}
func (sinkProcessor) MoveState(from, to processor.VoiceIndex)            {}

// Engine owns a compiled graph, the processor backing each of its
// nodes, and the intermediate buffer pool a Schedule's tasks read and
// write. One Engine renders one fixed demo signal chain block by
// block.
type Engine struct {
	graph *graph.Graph
	sched *schedule.Schedule

	processors map[graph.NodeID]processor.Processor
	rootNode   graph.NodeID

	pool      [][]vec.F
	blockSize int
}

// NewEngine builds the demo oscillator -> filter -> master graph
// described by cfg, compiles it, and initializes every node for
// rendering.
func NewEngine(cfg *Config) (*Engine, error) {
	g := &graph.Graph{}

	oscNode := g.InsertNode()
	oscOut := g.AddOutputPort(oscNode)

	filterNode := g.InsertNode()
	filterIn := g.AddInputPort(filterNode)
	filterOut := g.AddOutputPort(filterNode)

	if _, err := g.TryInsertEdge(oscNode, oscOut, filterNode, filterIn); err != nil {
		return nil, fmt.Errorf("host: wiring demo graph: %w", err)
	}

	// masterNode is a pure sink: one input, no outputs, exactly spec.md
	// §8 scenario 1's master(1 in) shape. It carries no DSP of its own;
	// its only job is to be a root whose input claim the scheduler
	// turns into a CopyToMaster task.
	masterNode := g.InsertNode()
	masterIn := g.AddInputPort(masterNode)
	if _, err := g.TryInsertEdge(filterNode, filterOut, masterNode, masterIn); err != nil {
		return nil, fmt.Errorf("host: wiring demo graph: %w", err)
	}

	roots := []graph.NodeID{masterNode}
	sched, err := schedule.Compile(g, roots)
	if err != nil {
		return nil, fmt.Errorf("host: compiling schedule: %w", err)
	}

	osc := oscillator.New()
	osc.Initialize(cfg.SampleRate, cfg.BufferSize, numClusters)
	osc.SetParameters(cfg.Oscillator)

	table := wavetable.FromFrames(testsignal.BasicShapes())
	var startingPhases [voice.OscsPerVoice]vec.F
	osc.ReplaceTable(table, startingPhases)

	filter := dsp.NewSVFProcessor()
	filter.Initialize(cfg.SampleRate, cfg.BufferSize, numClusters)
	filter.SetParameters(cfg.Filter)

	osc.ActivateVoice(processor.VoiceIndex{Cluster: 0, Lane: 0}, cfg.Note, cfg.Velocity)

	pool := make([][]vec.F, sched.NumBuffers)
	for i := range pool {
		pool[i] = make([]vec.F, cfg.BufferSize)
	}

	return &Engine{
		graph: g,
		sched: sched,
		processors: map[graph.NodeID]processor.Processor{
			oscNode:    osc,
			filterNode: filter,
			masterNode: sinkProcessor{},
		},
		rootNode:  masterNode,
		pool:      pool,
		blockSize: cfg.BufferSize,
	}, nil
}

// Stats reports the compiled schedule's size, for startup logging.
func (e *Engine) Stats() (numNodes, numBuffers, numTasks int) {
	return len(e.graph.NodeIDs()), e.sched.NumBuffers, len(e.sched.Tasks)
}

// RenderBlock executes the compiled schedule once and returns the
// resulting stereo block as (left, right), each cfg.BufferSize samples
// long. The returned slices are freshly allocated on every call and
// belong to the caller.
func (e *Engine) RenderBlock() (left, right []float32, err error) {
	for i := range e.pool {
		for j := range e.pool[i] {
			e.pool[i][j] = vec.F{}
		}
	}
	root := buffer.NewTopLevel(e.pool)

	left = make([]float32, e.blockSize)
	right = make([]float32, e.blockSize)

	for _, task := range e.sched.Tasks {
		switch task.Kind {
		case schedule.KindProcess:
			if err := e.runProcess(root, task); err != nil {
				return nil, nil, err
			}
		case schedule.KindSum:
			if err := e.runSum(root, task); err != nil {
				return nil, nil, err
			}
		case schedule.KindCopyToMaster:
			if err := e.runCopyToMaster(root, task, left, right); err != nil {
				return nil, nil, err
			}
		}
	}
	return left, right, nil
}

func (e *Engine) runProcess(root *buffer.Dispatcher, task schedule.ProcessTask) error {
	node := e.graph.Node(task.Node)
	proc := e.processors[task.Node]
	if node == nil || proc == nil {
		return fmt.Errorf("host: no processor registered for node %d", task.Node)
	}

	inIDs := node.InputIDs()
	inputs := make([]buffer.BufferIndex, len(inIDs))
	for i, id := range inIDs {
		if bi, ok := task.Inputs[id]; ok {
			inputs[i] = bi
		} else {
			inputs[i] = buffer.Unused
		}
	}

	outIDs := node.OutputIDs()
	outputs := make([]buffer.OutputBufferIndex, len(outIDs))
	for i, id := range outIDs {
		outputs[i] = task.Outputs[id]
	}

	disp := root.WithIndices(inputs, outputs)
	for cluster := 0; cluster < numClusters; cluster++ {
		if _, err := proc.Process(disp, cluster); err != nil {
			return fmt.Errorf("host: node %d: %w", task.Node, err)
		}
	}
	return nil
}

func (e *Engine) runSum(root *buffer.Dispatcher, task schedule.ProcessTask) error {
	l, err := root.ResolveInput(task.Left)
	if err != nil {
		return err
	}
	r, err := root.ResolveInput(task.Right)
	if err != nil {
		return err
	}
	out, err := root.ResolveOutput(task.SumOutput)
	if err != nil {
		return err
	}
	for i := range out {
		out[i] = l[i].Add(r[i])
	}
	return nil
}

// runCopyToMaster reduces one root buffer's up-to-vec.StereoVoices
// cluster-voice (L, R) pairs down to a single stereo pair per sample
// and accumulates it into the caller's master left/right buffers. This
// demo host only ever has one root with one stereo input, so every
// CopyToMaster task contributes to the same master pair; a host with
// more than one root-channel would instead fan MasterChannels out to
// distinct buffers.
func (e *Engine) runCopyToMaster(root *buffer.Dispatcher, task schedule.ProcessTask, left, right []float32) error {
	in, err := root.ResolveInput(task.CopyInput)
	if err != nil {
		return err
	}
	for i, sample := range in {
		var l, r float32
		for v := 0; v < vec.StereoVoices; v++ {
			l += sample[2*v]
			r += sample[2*v+1]
		}
		left[i] += l
		right[i] += r
	}
	return nil
}
