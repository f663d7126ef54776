package kernels

import (
	"fmt"
	"math"

	"github.com/born-ml/micro/internal/tensor"
)

// prepareUnary is shared by element-wise single-input kernels.
func prepareUnary(node *Node, inputs []*tensor.Tensor) ([]tensor.Shape, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%s requires 1 input, got %d", node.OpType, len(inputs))
	}
	return []tensor.Shape{inputs[0].Shape().Clone()}, nil
}

func evalRelu(_ *Node, inputs, outputs []*tensor.Tensor) error {
	src := inputs[0].AsFloat32()
	dst := outputs[0].AsFloat32()
	for i, v := range src {
		if v < 0 {
			v = 0
		}
		dst[i] = v
	}
	return nil
}

func prepareSoftmax(node *Node, inputs []*tensor.Tensor) ([]tensor.Shape, error) {
	shapes, err := prepareUnary(node, inputs)
	if err != nil {
		return nil, err
	}
	if _, err := shapes[0].NormalizeAxis(int(GetAttrInt(node, "axis", -1))); err != nil {
		return nil, fmt.Errorf("softmax: %w", err)
	}
	return shapes, nil
}

// evalSoftmax computes a numerically stable softmax along the axis attribute.
func evalSoftmax(node *Node, inputs, outputs []*tensor.Tensor) error {
	shape := inputs[0].Shape()
	axis, err := shape.NormalizeAxis(int(GetAttrInt(node, "axis", -1)))
	if err != nil {
		return fmt.Errorf("softmax: %w", err)
	}
	in := inputs[0].AsFloat32()
	out := outputs[0].AsFloat32()

	outerSize := 1
	for i := 0; i < axis; i++ {
		outerSize *= shape[i]
	}
	axisSize := shape[axis]
	innerSize := 1
	for i := axis + 1; i < len(shape); i++ {
		innerSize *= shape[i]
	}

	for outer := 0; outer < outerSize; outer++ {
		base := outer * axisSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			maxVal := float32(-math.MaxFloat32)
			for a := 0; a < axisSize; a++ {
				if v := in[base+a*innerSize+inner]; v > maxVal {
					maxVal = v
				}
			}
			var sum float32
			for a := 0; a < axisSize; a++ {
				idx := base + a*innerSize + inner
				out[idx] = float32(math.Exp(float64(in[idx] - maxVal)))
				sum += out[idx]
			}
			for a := 0; a < axisSize; a++ {
				out[base+a*innerSize+inner] /= sum
			}
		}
	}
	return nil
}
