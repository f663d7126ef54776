package interpreter

import (
	"errors"
	"fmt"
	"strings"
)

// Interpreter lifecycle errors.
var (
	ErrNoGraph       = errors.New("model has no graph")
	ErrNotAllocated  = errors.New("tensors not allocated")
	ErrAllocated     = errors.New("tensors already allocated")
	ErrCyclicGraph   = errors.New("graph contains a cycle")
	ErrKernelPanic   = errors.New("kernel panicked")
	ErrMissingTensor = errors.New("tensor not produced by any node")
	ErrNoInputs      = errors.New("graph has no runtime inputs")
	ErrNoOutputs     = errors.New("graph has no outputs")
)

// MissingKernelsError reports op types the resolver cannot execute.
type MissingKernelsError struct {
	OpTypes []string
}

func (e *MissingKernelsError) Error() string {
	return fmt.Sprintf("no kernel registered for op types: %s", strings.Join(e.OpTypes, ", "))
}
