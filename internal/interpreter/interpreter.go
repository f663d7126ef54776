package interpreter

import (
	"fmt"

	"github.com/born-ml/micro/internal/arena"
	"github.com/born-ml/micro/internal/kernels"
	"github.com/born-ml/micro/internal/onnx"
	"github.com/born-ml/micro/internal/tensor"
)

// Interpreter executes one graph inside one arena.
// It is not safe for concurrent use.
type Interpreter struct {
	graph    *onnx.GraphProto
	resolver *kernels.Resolver
	arena    *arena.Arena

	sorted    []onnx.NodeProto
	steps     []step
	tensors   map[string]*tensor.Tensor
	inputs    []*tensor.Tensor
	outputs   []*tensor.Tensor
	allocated bool
}

// step is one node bound to its kernel and tensors.
type step struct {
	node    kernels.Node
	kernel  kernels.Kernel
	inputs  []*tensor.Tensor
	outputs []*tensor.Tensor
}

// New checks that every op in the graph has a kernel and orders the nodes.
// The resolver is frozen on success.
func New(model *onnx.ModelProto, resolver *kernels.Resolver, mem *arena.Arena) (*Interpreter, error) {
	if model == nil || model.Graph == nil {
		return nil, ErrNoGraph
	}
	graph := model.Graph
	if len(graph.Nodes) == 0 {
		return nil, fmt.Errorf("graph %q has no nodes", graph.Name)
	}
	if len(graph.RuntimeInputs()) == 0 {
		return nil, fmt.Errorf("graph %q: %w", graph.Name, ErrNoInputs)
	}
	if len(graph.Outputs) == 0 {
		return nil, fmt.Errorf("graph %q: %w", graph.Name, ErrNoOutputs)
	}

	if missing := resolver.Missing(graph.OpTypes()); len(missing) > 0 {
		return nil, &MissingKernelsError{OpTypes: missing}
	}

	sorted, err := topologicalSort(graph.Nodes)
	if err != nil {
		return nil, err
	}

	resolver.Freeze()
	return &Interpreter{
		graph:    graph,
		resolver: resolver,
		arena:    mem,
		sorted:   sorted,
	}, nil
}

// Allocated reports whether AllocateTensors succeeded.
func (it *Interpreter) Allocated() bool {
	return it.allocated
}

// InputCount returns the number of runtime inputs.
func (it *Interpreter) InputCount() int {
	return len(it.inputs)
}

// OutputCount returns the number of graph outputs.
func (it *Interpreter) OutputCount() int {
	return len(it.outputs)
}

// Input returns the i-th runtime input tensor, or nil.
func (it *Interpreter) Input(i int) *tensor.Tensor {
	if i < 0 || i >= len(it.inputs) {
		return nil
	}
	return it.inputs[i]
}

// Output returns the i-th graph output tensor, or nil.
func (it *Interpreter) Output(i int) *tensor.Tensor {
	if i < 0 || i >= len(it.outputs) {
		return nil
	}
	return it.outputs[i]
}

// Tensor returns any allocated tensor by graph name, or nil.
func (it *Interpreter) Tensor(name string) *tensor.Tensor {
	return it.tensors[name]
}

// NodeCount returns the number of nodes in execution order.
func (it *Interpreter) NodeCount() int {
	return len(it.sorted)
}

// ArenaUsed returns the bytes of arena committed by AllocateTensors.
func (it *Interpreter) ArenaUsed() int {
	return it.arena.Used()
}

// Invoke runs every node in order over the bound tensors.
func (it *Interpreter) Invoke() error {
	if !it.allocated {
		return ErrNotAllocated
	}
	for i := range it.steps {
		s := &it.steps[i]
		if err := s.eval(); err != nil {
			return fmt.Errorf("node %s (%s): %w", s.node.Label(), s.node.OpType, err)
		}
	}
	return nil
}

func (s *step) prepare() (shapes []tensor.Shape, err error) {
	defer func() {
		if r := recover(); r != nil {
			shapes, err = nil, fmt.Errorf("%w: %v", ErrKernelPanic, r)
		}
	}()
	return s.kernel.Prepare(&s.node, s.inputs)
}

func (s *step) eval() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrKernelPanic, r)
		}
	}()
	return s.kernel.Eval(&s.node, s.inputs, s.outputs)
}
