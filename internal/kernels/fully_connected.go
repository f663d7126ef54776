package kernels

import (
	"fmt"

	"github.com/born-ml/micro/internal/tensor"
)

// gemmDims resolves M, K, N for Y = op(A)·op(B).
func gemmDims(a, b tensor.Shape, transA, transB bool) (m, k, n int, err error) {
	if len(a) != 2 || len(b) != 2 {
		return 0, 0, 0, fmt.Errorf("operands must be rank 2, got %v and %v", a, b)
	}
	m, k = a[0], a[1]
	if transA {
		m, k = k, m
	}
	kb, n := b[0], b[1]
	if transB {
		kb, n = n, kb
	}
	if k != kb {
		return 0, 0, 0, fmt.Errorf("inner dimensions differ: %v and %v (transA=%t, transB=%t)", a, b, transA, transB)
	}
	return m, k, n, nil
}

// prepareGemm handles General Matrix Multiplication: Y = alpha*A*B + beta*C.
func prepareGemm(node *Node, inputs []*tensor.Tensor) ([]tensor.Shape, error) {
	if len(inputs) < 2 || len(inputs) > 3 {
		return nil, fmt.Errorf("gemm requires 2 or 3 inputs, got %d", len(inputs))
	}
	transA := GetAttrInt(node, "transA", 0) != 0
	transB := GetAttrInt(node, "transB", 0) != 0

	m, _, n, err := gemmDims(inputs[0].Shape(), inputs[1].Shape(), transA, transB)
	if err != nil {
		return nil, fmt.Errorf("gemm: %w", err)
	}

	out := tensor.Shape{m, n}
	if len(inputs) == 3 && inputs[2] != nil {
		c := inputs[2].Shape()
		if len(c) > 2 {
			return nil, fmt.Errorf("gemm: bias must be rank <= 2, got %v", c)
		}
		got, _, err := tensor.BroadcastShapes(c, out)
		if err != nil || !got.Equal(out) {
			return nil, fmt.Errorf("gemm: bias %v does not broadcast to %v", c, out)
		}
	}
	return []tensor.Shape{out}, nil
}

func evalGemm(node *Node, inputs, outputs []*tensor.Tensor) error {
	alpha := GetAttrFloat(node, "alpha", 1.0)
	beta := GetAttrFloat(node, "beta", 1.0)
	transA := GetAttrInt(node, "transA", 0) != 0
	transB := GetAttrInt(node, "transB", 0) != 0

	var c *tensor.Tensor
	if len(inputs) == 3 && beta != 0 {
		c = inputs[2]
	}
	return gemm(inputs[0], inputs[1], c, outputs[0], alpha, beta, transA, transB)
}

func prepareMatMul(_ *Node, inputs []*tensor.Tensor) ([]tensor.Shape, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("matMul requires 2 inputs, got %d", len(inputs))
	}
	m, _, n, err := gemmDims(inputs[0].Shape(), inputs[1].Shape(), false, false)
	if err != nil {
		return nil, fmt.Errorf("matMul: %w", err)
	}
	return []tensor.Shape{{m, n}}, nil
}

func evalMatMul(_ *Node, inputs, outputs []*tensor.Tensor) error {
	return gemm(inputs[0], inputs[1], nil, outputs[0], 1, 0, false, false)
}

func gemm(a, b, c, y *tensor.Tensor, alpha, beta float32, transA, transB bool) error {
	m, k, n, err := gemmDims(a.Shape(), b.Shape(), transA, transB)
	if err != nil {
		return err
	}
	av, bv, yv := a.AsFloat32(), b.AsFloat32(), y.AsFloat32()
	if len(yv) != m*n {
		return fmt.Errorf("output %s holds %d values, need %d", y.Name(), len(yv), m*n)
	}

	var cv []float32
	var cShape tensor.Shape
	if c != nil {
		cv, cShape = c.AsFloat32(), c.Shape()
	}

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				ai := i*k + p
				if transA {
					ai = p*m + i
				}
				bi := p*n + j
				if transB {
					bi = j*k + p
				}
				sum += av[ai] * bv[bi]
			}
			v := alpha * sum
			if cv != nil {
				v += beta * cv[broadcastIndex(cShape, i, j)]
			}
			yv[i*n+j] = v
		}
	}
	return nil
}

// broadcastIndex maps output position (i, j) onto a bias of rank <= 2.
func broadcastIndex(shape tensor.Shape, i, j int) int {
	switch len(shape) {
	case 0:
		return 0
	case 1:
		if shape[0] == 1 {
			return 0
		}
		return j
	default:
		if shape[0] == 1 {
			i = 0
		}
		if shape[1] == 1 {
			j = 0
		}
		return i*shape[1] + j
	}
}
