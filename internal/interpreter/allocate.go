package interpreter

import (
	"fmt"

	"github.com/born-ml/micro/internal/arena"
	"github.com/born-ml/micro/internal/onnx"
	"github.com/born-ml/micro/internal/tensor"
)

// AllocateTensors lays out every tensor in the arena and prepares each node.
//
// Weights are copied into the persistent tail. Runtime inputs take their
// declared shape, with symbolic dimensions fixed to 1. Activations are placed
// in the head by lifetime so that buffers that are never live together share
// memory.
func (it *Interpreter) AllocateTensors() error {
	if it.allocated {
		return ErrAllocated
	}
	it.tensors = make(map[string]*tensor.Tensor)

	if err := it.loadInitializers(); err != nil {
		return err
	}
	if err := it.declareInputs(); err != nil {
		return err
	}
	if err := it.prepareNodes(); err != nil {
		return err
	}
	if err := it.collectOutputs(); err != nil {
		return err
	}
	if err := it.planActivations(); err != nil {
		return err
	}

	it.allocated = true
	return nil
}

func (it *Interpreter) loadInitializers() error {
	for i := range it.graph.Initializers {
		init := &it.graph.Initializers[i]
		if err := it.loadInitializer(init); err != nil {
			return fmt.Errorf("failed to load initializer %s: %w", init.Name, err)
		}
	}
	return nil
}

func (it *Interpreter) loadInitializer(init *onnx.TensorProto) error {
	dtype, err := dataType(init.DataType)
	if err != nil {
		return err
	}
	shape := make(tensor.Shape, len(init.Dims))
	for i, d := range init.Dims {
		shape[i] = int(d)
	}
	t, err := tensor.New(init.Name, shape, dtype)
	if err != nil {
		return err
	}
	region, err := it.arena.AllocPersistent(t.ByteSize())
	if err != nil {
		return err
	}
	if err := t.Bind(region); err != nil {
		return err
	}

	switch dtype {
	case tensor.Float32:
		vals, err := init.Float32s()
		if err != nil {
			return err
		}
		copy(t.AsFloat32(), vals)
	case tensor.Int32:
		vals, err := init.Int32s()
		if err != nil {
			return err
		}
		copy(t.AsInt32(), vals)
	case tensor.Int64:
		vals, err := init.Int64s()
		if err != nil {
			return err
		}
		copy(t.AsInt64(), vals)
	default:
		return fmt.Errorf("unsupported initializer type %s", dtype)
	}

	it.tensors[init.Name] = t
	return nil
}

func (it *Interpreter) declareInputs() error {
	for _, name := range it.graph.RuntimeInputs() {
		info := it.graph.Input(name)
		if elem := info.ElemType(); elem != onnx.TensorProtoFloat && elem != onnx.TensorProtoUndefined {
			return fmt.Errorf("input %s: element type %d is not float32", name, elem)
		}
		dims := info.Shape()
		if len(dims) == 0 {
			return fmt.Errorf("input %s: shape is not declared", name)
		}
		shape := make(tensor.Shape, len(dims))
		for i, d := range dims {
			shape[i] = max(int(d), 1)
		}
		t, err := tensor.New(name, shape, tensor.Float32)
		if err != nil {
			return fmt.Errorf("input %s: %w", name, err)
		}
		it.tensors[name] = t
		it.inputs = append(it.inputs, t)
	}
	return nil
}

func (it *Interpreter) prepareNodes() error {
	it.steps = make([]step, 0, len(it.sorted))
	for i := range it.sorted {
		proto := &it.sorted[i]
		s := step{node: toKernelNode(proto)}
		s.kernel, _ = it.resolver.Find(proto.OpType)

		// Trailing empty names are omitted optional inputs.
		names := proto.Inputs
		for len(names) > 0 && names[len(names)-1] == "" {
			names = names[:len(names)-1]
		}
		s.inputs = make([]*tensor.Tensor, len(names))
		for j, name := range names {
			if name == "" {
				return fmt.Errorf("node %s: input %d is empty: %w", nodeLabel(proto), j, ErrMissingTensor)
			}
			t, ok := it.tensors[name]
			if !ok {
				return fmt.Errorf("node %s: input %s: %w", nodeLabel(proto), name, ErrMissingTensor)
			}
			s.inputs[j] = t
		}

		shapes, err := s.prepare()
		if err != nil {
			return fmt.Errorf("node %s (%s): %w", nodeLabel(proto), proto.OpType, err)
		}
		if len(shapes) != len(proto.Outputs) {
			return fmt.Errorf("node %s (%s): kernel produced %d outputs, graph declares %d",
				nodeLabel(proto), proto.OpType, len(shapes), len(proto.Outputs))
		}

		s.outputs = make([]*tensor.Tensor, len(shapes))
		for j, shape := range shapes {
			name := proto.Outputs[j]
			if _, exists := it.tensors[name]; exists {
				return fmt.Errorf("node %s: output %s already defined", nodeLabel(proto), name)
			}
			t, err := tensor.New(name, shape, tensor.Float32)
			if err != nil {
				return fmt.Errorf("node %s: %w", nodeLabel(proto), err)
			}
			it.tensors[name] = t
			s.outputs[j] = t
		}
		it.steps = append(it.steps, s)
	}
	return nil
}

func (it *Interpreter) collectOutputs() error {
	for i := range it.graph.Outputs {
		name := it.graph.Outputs[i].Name
		t, ok := it.tensors[name]
		if !ok {
			return fmt.Errorf("output %s: %w", name, ErrMissingTensor)
		}
		it.outputs = append(it.outputs, t)
	}
	return nil
}

// planActivations binds every unbound tensor to a head region.
// Step i reads its inputs and writes its outputs at time i. Graph inputs and
// outputs stay live for the whole run so that Invoke never overwrites the
// caller's input and can be repeated.
func (it *Interpreter) planActivations() error {
	firstUse := make(map[string]int)
	lastUse := make(map[string]int)
	var order []*tensor.Tensor

	track := func(t *tensor.Tensor, at int) {
		if t == nil || t.Bound() {
			return
		}
		if _, ok := firstUse[t.Name()]; !ok {
			firstUse[t.Name()] = at
			order = append(order, t)
		}
		lastUse[t.Name()] = max(lastUse[t.Name()], at)
	}

	for _, t := range it.inputs {
		track(t, 0)
		track(t, len(it.steps))
	}
	for i := range it.steps {
		for _, t := range it.steps[i].inputs {
			track(t, i)
		}
		for _, t := range it.steps[i].outputs {
			track(t, i)
		}
	}
	for _, t := range it.outputs {
		track(t, len(it.steps))
	}

	var planner arena.Planner
	for _, t := range order {
		if _, err := planner.Add(arena.Request{
			Name:     t.Name(),
			Size:     t.ByteSize(),
			FirstUse: firstUse[t.Name()],
			LastUse:  lastUse[t.Name()],
		}); err != nil {
			return err
		}
	}

	placements, size := planner.Plan()
	if err := arena.ValidatePlan(placements, size); err != nil {
		return err
	}
	if err := it.arena.CommitHead(size); err != nil {
		return err
	}
	for i, p := range placements {
		region, err := it.arena.Head(p.Offset, p.Size)
		if err != nil {
			return err
		}
		if err := order[i].Bind(region); err != nil {
			return err
		}
	}
	return nil
}

func dataType(onnxType int32) (tensor.DataType, error) {
	switch onnxType {
	case onnx.TensorProtoFloat:
		return tensor.Float32, nil
	case onnx.TensorProtoInt32:
		return tensor.Int32, nil
	case onnx.TensorProtoInt64:
		return tensor.Int64, nil
	default:
		return 0, fmt.Errorf("unsupported data type %d", onnxType)
	}
}
