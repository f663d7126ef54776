package onnx

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ONNX protobuf data structures (hand-written subset).

// ModelProto represents an ONNX model.
type ModelProto struct {
	IRVersion       int64               // IR version (e.g., 7, 8, 9)
	OpsetImport     []OperatorSetID     // Opset version(s)
	ProducerName    string              // Framework name (e.g., "pytorch", "tf2onnx")
	ProducerVersion string              // Framework version
	Domain          string              // Model domain
	ModelVersion    int64               // Model version number
	DocString       string              // Model description
	Graph           *GraphProto         // Computation graph
	MetadataProps   []StringStringEntry // Key-value metadata
}

// GraphProto represents the computation graph.
type GraphProto struct {
	Name         string           // Graph name
	Nodes        []NodeProto      // Operation nodes
	Inputs       []ValueInfoProto // Graph inputs
	Outputs      []ValueInfoProto // Graph outputs
	Initializers []TensorProto    // Weight tensors
	DocString    string           // Graph description
}

// NodeProto represents a single operation.
type NodeProto struct {
	Name       string           // Node name (optional)
	OpType     string           // Operation type (e.g., "Gemm", "Relu")
	Inputs     []string         // Input tensor names
	Outputs    []string         // Output tensor names
	Attributes []AttributeProto // Operation attributes
	Domain     string           // Custom domain (empty for default)
	DocString  string           // Node description
}

// TensorProto represents a tensor (weights/initializers).
type TensorProto struct {
	Name      string    // Tensor name
	DataType  int32     // Element data type
	Dims      []int64   // Tensor shape
	RawData   []byte    // Raw little-endian data (most common)
	FloatData []float32 // Float32 data (legacy)
	Int32Data []int32   // Int32 data (legacy)
	Int64Data []int64   // Int64 data (legacy)
	DocString string    // Tensor description
}

// ValueInfoProto describes input/output tensor specifications.
type ValueInfoProto struct {
	Name      string     // Tensor name
	Type      *TypeProto // Tensor type information
	DocString string     // Description
}

// TypeProto describes tensor type.
type TypeProto struct {
	TensorType *TensorTypeProto
}

// TensorTypeProto describes tensor shape and element type.
type TensorTypeProto struct {
	ElemType int32
	Shape    *TensorShapeProto
}

// TensorShapeProto describes tensor dimensions.
type TensorShapeProto struct {
	Dims []DimensionProto
}

// DimensionProto describes a single dimension.
type DimensionProto struct {
	DimValue int64  // Static dimension value
	DimParam string // Symbolic dimension name (e.g., "batch")
}

// AttributeProto represents node attributes.
type AttributeProto struct {
	Name    string
	Type    int32
	F       float32
	I       int64
	S       []byte
	T       *TensorProto
	Floats  []float32
	Ints    []int64
	Strings [][]byte
}

// OperatorSetID identifies opset version.
type OperatorSetID struct {
	Domain  string // Operator domain (empty for default)
	Version int64  // Opset version number
}

// StringStringEntry represents key-value metadata.
type StringStringEntry struct {
	Key   string
	Value string
}

// ONNX data types (TensorProto.DataType).
const (
	TensorProtoUndefined = 0
	TensorProtoFloat     = 1  // float32
	TensorProtoUint8     = 2  // uint8
	TensorProtoInt8      = 3  // int8
	TensorProtoInt32     = 6  // int32
	TensorProtoInt64     = 7  // int64
	TensorProtoDouble    = 11 // float64
)

// ONNX attribute types (AttributeProto.Type).
const (
	AttributeProtoUndefined = 0
	AttributeProtoFloat     = 1  // FLOAT
	AttributeProtoInt       = 2  // INT
	AttributeProtoString    = 3  // STRING
	AttributeProtoTensor    = 4  // TENSOR
	AttributeProtoFloats    = 6  // FLOATS
	AttributeProtoInts      = 7  // INTS
	AttributeProtoStrings   = 8  // STRINGS
)

// NumElements returns the element count implied by Dims.
func (t *TensorProto) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// Float32s returns the tensor data as float32 values.
func (t *TensorProto) Float32s() ([]float32, error) {
	if t.DataType != TensorProtoFloat {
		return nil, fmt.Errorf("initializer %q: data type %d is not float32", t.Name, t.DataType)
	}
	n := t.NumElements()
	switch {
	case len(t.RawData) > 0:
		if int64(len(t.RawData)) != n*4 {
			return nil, fmt.Errorf("initializer %q: raw data is %d bytes, want %d", t.Name, len(t.RawData), n*4)
		}
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.RawData[i*4:]))
		}
		return out, nil
	case int64(len(t.FloatData)) == n:
		return t.FloatData, nil
	default:
		return nil, fmt.Errorf("initializer %q: %d float values, want %d", t.Name, len(t.FloatData), n)
	}
}

// Int32s returns the tensor data as int32 values.
func (t *TensorProto) Int32s() ([]int32, error) {
	if t.DataType != TensorProtoInt32 {
		return nil, fmt.Errorf("initializer %q: data type %d is not int32", t.Name, t.DataType)
	}
	n := t.NumElements()
	switch {
	case len(t.RawData) > 0:
		if int64(len(t.RawData)) != n*4 {
			return nil, fmt.Errorf("initializer %q: raw data is %d bytes, want %d", t.Name, len(t.RawData), n*4)
		}
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(t.RawData[i*4:])) //nolint:gosec // two's complement reinterpretation
		}
		return out, nil
	case int64(len(t.Int32Data)) == n:
		return t.Int32Data, nil
	default:
		return nil, fmt.Errorf("initializer %q: %d int32 values, want %d", t.Name, len(t.Int32Data), n)
	}
}

// Int64s returns the tensor data as int64 values.
func (t *TensorProto) Int64s() ([]int64, error) {
	if t.DataType != TensorProtoInt64 {
		return nil, fmt.Errorf("initializer %q: data type %d is not int64", t.Name, t.DataType)
	}
	n := t.NumElements()
	switch {
	case len(t.RawData) > 0:
		if int64(len(t.RawData)) != n*8 {
			return nil, fmt.Errorf("initializer %q: raw data is %d bytes, want %d", t.Name, len(t.RawData), n*8)
		}
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(t.RawData[i*8:])) //nolint:gosec // two's complement reinterpretation
		}
		return out, nil
	case int64(len(t.Int64Data)) == n:
		return t.Int64Data, nil
	default:
		return nil, fmt.Errorf("initializer %q: %d int64 values, want %d", t.Name, len(t.Int64Data), n)
	}
}

// Shape returns the static dims of a value, with symbolic or unknown
// dimensions reported as 0.
func (v *ValueInfoProto) Shape() []int64 {
	if v.Type == nil || v.Type.TensorType == nil || v.Type.TensorType.Shape == nil {
		return nil
	}
	dims := make([]int64, len(v.Type.TensorType.Shape.Dims))
	for i, d := range v.Type.TensorType.Shape.Dims {
		dims[i] = d.DimValue
	}
	return dims
}

// ElemType returns the element type of a value, or TensorProtoUndefined.
func (v *ValueInfoProto) ElemType() int32 {
	if v.Type == nil || v.Type.TensorType == nil {
		return TensorProtoUndefined
	}
	return v.Type.TensorType.ElemType
}

// OpsetVersion returns the default-domain opset version, or 0.
func (m *ModelProto) OpsetVersion() int64 {
	for _, opset := range m.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			return opset.Version
		}
	}
	return 0
}
