package kernels

import (
	"errors"
	"fmt"

	"github.com/born-ml/micro/internal/tensor"
)

// MaxKernels is the default resolver capacity.
const MaxKernels = 4

// Resolver errors.
var (
	ErrCapacity  = errors.New("kernel resolver is full")
	ErrDuplicate = errors.New("kernel already registered")
	ErrFrozen    = errors.New("kernel resolver is frozen")
)

// PrepareFunc validates inputs and returns the output shapes of a node.
// Constant inputs (initializers) are bound; other inputs only carry shapes.
type PrepareFunc func(node *Node, inputs []*tensor.Tensor) ([]tensor.Shape, error)

// EvalFunc computes a node into preallocated outputs.
type EvalFunc func(node *Node, inputs, outputs []*tensor.Tensor) error

// Kernel is the registration of one op type.
type Kernel struct {
	Kind    Kind
	OpType  string
	Prepare PrepareFunc
	Eval    EvalFunc
}

// Resolver maps graph op types to kernels for the kinds that were added.
// It holds at most capacity kinds and is frozen once bound to an interpreter.
type Resolver struct {
	capacity int
	kinds    []Kind
	handlers map[string]Kernel
	frozen   bool
}

// NewResolver creates an empty resolver with room for capacity kinds.
func NewResolver(capacity int) *Resolver {
	return &Resolver{
		capacity: capacity,
		handlers: make(map[string]Kernel),
	}
}

// NewDefaultResolver creates a resolver holding every supported kind.
func NewDefaultResolver() *Resolver {
	r := NewResolver(MaxKernels)
	for _, k := range AllKinds() {
		if err := r.Add(k); err != nil {
			panic(fmt.Sprintf("default resolver: %v", err))
		}
	}
	return r
}

// Add registers the kernels of kind.
func (r *Resolver) Add(kind Kind) error {
	if r.frozen {
		return fmt.Errorf("add %s: %w", kind, ErrFrozen)
	}
	for _, k := range r.kinds {
		if k == kind {
			return fmt.Errorf("add %s: %w", kind, ErrDuplicate)
		}
	}
	if len(r.kinds) >= r.capacity {
		return fmt.Errorf("add %s: %w (capacity %d)", kind, ErrCapacity, r.capacity)
	}

	kernels := builtin(kind)
	if len(kernels) == 0 {
		return fmt.Errorf("add %s: no kernels for kind", kind)
	}
	for _, k := range kernels {
		r.handlers[k.OpType] = k
	}
	r.kinds = append(r.kinds, kind)
	return nil
}

// AddAll registers each kind in order, stopping at the first error.
func (r *Resolver) AddAll(kinds ...Kind) error {
	for _, k := range kinds {
		if err := r.Add(k); err != nil {
			return err
		}
	}
	return nil
}

// Freeze prevents further registration.
func (r *Resolver) Freeze() {
	r.frozen = true
}

// Frozen reports whether Freeze was called.
func (r *Resolver) Frozen() bool {
	return r.frozen
}

// Find returns the kernel for an op type.
func (r *Resolver) Find(opType string) (Kernel, bool) {
	k, ok := r.handlers[opType]
	return k, ok
}

// Kinds returns the registered kinds in registration order.
func (r *Resolver) Kinds() []Kind {
	return append([]Kind(nil), r.kinds...)
}

// Capacity returns the maximum number of kinds.
func (r *Resolver) Capacity() int {
	return r.capacity
}

// Missing returns the op types from ops that no registered kernel covers,
// without duplicates and in the given order.
func (r *Resolver) Missing(ops []string) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, op := range ops {
		if _, ok := r.handlers[op]; ok || seen[op] {
			continue
		}
		seen[op] = true
		missing = append(missing, op)
	}
	return missing
}

// builtin returns the kernels implementing kind.
func builtin(kind Kind) []Kernel {
	switch kind {
	case FullyConnected:
		return []Kernel{
			{Kind: kind, OpType: "Gemm", Prepare: prepareGemm, Eval: evalGemm},
			{Kind: kind, OpType: "MatMul", Prepare: prepareMatMul, Eval: evalMatMul},
		}
	case ReLU:
		return []Kernel{{Kind: kind, OpType: "Relu", Prepare: prepareUnary, Eval: evalRelu}}
	case Softmax:
		return []Kernel{{Kind: kind, OpType: "Softmax", Prepare: prepareSoftmax, Eval: evalSoftmax}}
	case Reshape:
		return []Kernel{{Kind: kind, OpType: "Reshape", Prepare: prepareReshape, Eval: evalReshape}}
	default:
		return nil
	}
}
