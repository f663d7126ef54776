package wine

import (
	"encoding/binary"
	"math"

	"github.com/born-ml/micro/internal/onnx"
)

// Graph tensor names.
const (
	InputName  = "features"
	OutputName = "scores"
)

// Model returns the serialized reference model.
func Model() []byte {
	return onnx.Marshal(ModelProto())
}

// ModelProto builds the reference graph:
//
//	features[batch,13] -> Gemm(W1,b1) -> Relu -> Gemm(W2,b2) -> Softmax -> Reshape[1,-1] -> scores
//
// W1 stacks I and -I so the hidden layer holds the positive and negative parts
// of the input. W2 stacks each centroid c and -c, and b2 = -|c|²/2, so the
// logit of class k is c·x - |c|²/2 and the largest logit is the nearest
// centroid.
func ModelProto() *onnx.ModelProto {
	w1 := make([]float32, HiddenUnits*FeatureCount)
	for i := 0; i < FeatureCount; i++ {
		w1[i*FeatureCount+i] = 1
		w1[(FeatureCount+i)*FeatureCount+i] = -1
	}
	b1 := make([]float32, HiddenUnits)

	w2 := make([]float32, ClassCount*HiddenUnits)
	b2 := make([]float32, ClassCount)
	for k := 0; k < ClassCount; k++ {
		c := Centroid(k)
		var norm float32
		for i, v := range c {
			w2[k*HiddenUnits+i] = v
			w2[k*HiddenUnits+FeatureCount+i] = -v
			norm += v * v
		}
		b2[k] = -norm / 2
	}

	gemm := func(name, in, w, b, out string) onnx.NodeProto {
		return onnx.NodeProto{
			Name:    name,
			OpType:  "Gemm",
			Inputs:  []string{in, w, b},
			Outputs: []string{out},
			Attributes: []onnx.AttributeProto{
				{Name: "transB", Type: onnx.AttributeProtoInt, I: 1},
			},
		}
	}

	return &onnx.ModelProto{
		IRVersion:       8,
		OpsetImport:     []onnx.OperatorSetID{{Version: 13}},
		ProducerName:    "micro",
		ProducerVersion: "1",
		DocString:       "nearest-centroid classifier for the UCI wine dataset",
		MetadataProps: []onnx.StringStringEntry{
			{Key: "dataset", Value: "uci-wine"},
		},
		Graph: &onnx.GraphProto{
			Name: "wine_mlp",
			Nodes: []onnx.NodeProto{
				gemm("dense_1", InputName, "dense_1/kernel", "dense_1/bias", "dense_1/out"),
				{Name: "relu_1", OpType: "Relu", Inputs: []string{"dense_1/out"}, Outputs: []string{"relu_1/out"}},
				gemm("dense_2", "relu_1/out", "dense_2/kernel", "dense_2/bias", "logits"),
				{
					Name: "softmax", OpType: "Softmax",
					Inputs: []string{"logits"}, Outputs: []string{"probs"},
					Attributes: []onnx.AttributeProto{{Name: "axis", Type: onnx.AttributeProtoInt, I: -1}},
				},
				{Name: "flatten", OpType: "Reshape", Inputs: []string{"probs", "flatten/shape"}, Outputs: []string{OutputName}},
			},
			Initializers: []onnx.TensorProto{
				floatTensor("dense_1/kernel", []int64{HiddenUnits, FeatureCount}, w1),
				floatTensor("dense_1/bias", []int64{HiddenUnits}, b1),
				floatTensor("dense_2/kernel", []int64{ClassCount, HiddenUnits}, w2),
				floatTensor("dense_2/bias", []int64{ClassCount}, b2),
				{Name: "flatten/shape", DataType: onnx.TensorProtoInt64, Dims: []int64{2}, Int64Data: []int64{1, -1}},
			},
			Inputs: []onnx.ValueInfoProto{
				tensorInfo(InputName, onnx.DimensionProto{DimParam: "batch"}, onnx.DimensionProto{DimValue: FeatureCount}),
			},
			Outputs: []onnx.ValueInfoProto{
				tensorInfo(OutputName, onnx.DimensionProto{DimValue: 1}, onnx.DimensionProto{DimValue: ClassCount}),
			},
		},
	}
}

func floatTensor(name string, dims []int64, vals []float32) onnx.TensorProto {
	raw := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return onnx.TensorProto{Name: name, DataType: onnx.TensorProtoFloat, Dims: dims, RawData: raw}
}

func tensorInfo(name string, dims ...onnx.DimensionProto) onnx.ValueInfoProto {
	return onnx.ValueInfoProto{
		Name: name,
		Type: &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{
			ElemType: onnx.TensorProtoFloat,
			Shape:    &onnx.TensorShapeProto{Dims: dims},
		}},
	}
}
