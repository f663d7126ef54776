package kernels

import (
	"fmt"
	"strings"
)

// Kind identifies a kernel capability.
type Kind int

// Supported kernel kinds.
const (
	FullyConnected Kind = iota
	ReLU
	Softmax
	Reshape
)

// AllKinds returns every supported kind in declaration order.
func AllKinds() []Kind {
	return []Kind{FullyConnected, ReLU, Softmax, Reshape}
}

// String returns the capability name.
func (k Kind) String() string {
	switch k {
	case FullyConnected:
		return "FullyConnected"
	case ReLU:
		return "ReLU"
	case Softmax:
		return "Softmax"
	case Reshape:
		return "Reshape"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// OpTypes returns the graph op types this kind executes.
func (k Kind) OpTypes() []string {
	switch k {
	case FullyConnected:
		return []string{"Gemm", "MatMul"}
	case ReLU:
		return []string{"Relu"}
	case Softmax:
		return []string{"Softmax"}
	case Reshape:
		return []string{"Reshape"}
	default:
		return nil
	}
}

// ParseKind parses a capability name, case-insensitively.
// Op type names ("Gemm", "Relu") are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
		for _, op := range k.OpTypes() {
			if strings.EqualFold(s, op) {
				return k, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown kernel kind %q", s)
}

// ParseKinds parses a list of capability names.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
