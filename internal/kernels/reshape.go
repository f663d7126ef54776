package kernels

import (
	"fmt"

	"github.com/born-ml/micro/internal/tensor"
)

// prepareReshape resolves the target shape. The shape operand must be a
// constant: 0 copies the input dimension (unless allowzero is set) and a
// single -1 is inferred from the element count.
func prepareReshape(node *Node, inputs []*tensor.Tensor) ([]tensor.Shape, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("reshape requires 2 inputs (data, shape), got %d", len(inputs))
	}
	shapeOp := inputs[1]
	if shapeOp.DType() != tensor.Int64 || !shapeOp.Bound() {
		return nil, fmt.Errorf("reshape: shape operand %q must be a constant int64 tensor", shapeOp.Name())
	}
	allowZero := GetAttrInt(node, "allowzero", 0) != 0

	in := inputs[0].Shape()
	target := shapeOp.AsInt64()
	out := make(tensor.Shape, len(target))
	inferIdx := -1
	product := 1
	for i, d := range target {
		switch {
		case d == -1:
			if inferIdx >= 0 {
				return nil, fmt.Errorf("reshape: can only have one -1 dimension in %v", target)
			}
			inferIdx = i
			continue
		case d == 0 && !allowZero:
			if i >= len(in) {
				return nil, fmt.Errorf("reshape: dimension %d copies missing input dimension", i)
			}
			out[i] = in[i]
		case d <= 0:
			return nil, fmt.Errorf("reshape: invalid dimension %d in %v", d, target)
		default:
			out[i] = int(d)
		}
		product *= out[i]
	}

	total := in.NumElements()
	if inferIdx >= 0 {
		if product == 0 || total%product != 0 {
			return nil, fmt.Errorf("reshape: cannot infer dimension for %v from %d elements", target, total)
		}
		out[inferIdx] = total / product
	}
	if out.NumElements() != total {
		return nil, fmt.Errorf("reshape: cannot reshape %v (%d elements) to %v", in, total, out)
	}
	return []tensor.Shape{out}, nil
}

func evalReshape(_ *Node, inputs, outputs []*tensor.Tensor) error {
	if n := copy(outputs[0].Data(), inputs[0].Data()); n != outputs[0].ByteSize() {
		return fmt.Errorf("reshape: copied %d of %d bytes", n, outputs[0].ByteSize())
	}
	return nil
}
