package onnx

import (
	"errors"
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrEmptyModel is returned when there are no bytes to decode.
var ErrEmptyModel = errors.New("empty model data")

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: model path is supplied by the operator
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
// Byte slices in the result (RawData, S) alias data.
func Parse(data []byte) (*ModelProto, error) {
	if len(data) == 0 {
		return nil, ErrEmptyModel
	}
	model := &ModelProto{}
	if err := decodeModel(data, model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

// fieldFunc consumes the value of one field and returns the bytes used.
// Returning errSkip leaves the field to be skipped by walk.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk iterates over the fields of a message.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if errors.Is(err, errSkip) {
			m, err = protowire.ConsumeFieldValue(num, typ, b), nil
		}
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

var errSkip = errors.New("skip field")

func wireTypeError(want, got protowire.Type) error {
	return fmt.Errorf("wire type %d, want %d", got, want)
}

// message consumes a length-delimited sub-message and decodes it with dec.
func message(typ protowire.Type, b []byte, dec func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(protowire.BytesType, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, dec(v)
}

func bytesField(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(protowire.BytesType, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	*dst = v
	return n, nil
}

func stringField(typ protowire.Type, b []byte, dst *string) (int, error) {
	var v []byte
	n, err := bytesField(typ, b, &v)
	*dst = string(v)
	return n, err
}

func varintField(typ protowire.Type, b []byte, dst *int64) (int, error) {
	if typ != protowire.VarintType {
		return 0, wireTypeError(protowire.VarintType, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	*dst = int64(v) //nolint:gosec // protobuf int64 is two's complement
	return n, nil
}

func int32Field(typ protowire.Type, b []byte, dst *int32) (int, error) {
	var v int64
	n, err := varintField(typ, b, &v)
	*dst = int32(v) //nolint:gosec // protobuf int32 is truncated on the wire
	return n, err
}

func floatField(typ protowire.Type, b []byte, dst *float32) (int, error) {
	if typ != protowire.Fixed32Type {
		return 0, wireTypeError(protowire.Fixed32Type, typ)
	}
	v, n := protowire.ConsumeFixed32(b)
	*dst = math.Float32frombits(v)
	return n, nil
}

// int64sField accepts both packed and unpacked encodings.
func int64sField(typ protowire.Type, b []byte, dst *[]int64) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		*dst = append(*dst, int64(v)) //nolint:gosec // two's complement
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m, nil
			}
			*dst = append(*dst, int64(v)) //nolint:gosec // two's complement
			packed = packed[m:]
		}
		return n, nil
	default:
		return 0, wireTypeError(protowire.BytesType, typ)
	}
}

// floatsField accepts both packed and unpacked encodings.
func floatsField(typ protowire.Type, b []byte, dst *[]float32) (int, error) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		*dst = append(*dst, math.Float32frombits(v))
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n >= 0 && len(packed)%4 != 0 {
			return 0, fmt.Errorf("packed float field has %d bytes", len(packed))
		}
		for len(packed) > 0 {
			v, _ := protowire.ConsumeFixed32(packed)
			*dst = append(*dst, math.Float32frombits(v))
			packed = packed[4:]
		}
		return n, nil
	default:
		return 0, wireTypeError(protowire.BytesType, typ)
	}
}

func decodeModel(b []byte, m *ModelProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // ir_version
			return varintField(typ, b, &m.IRVersion)
		case 2: // producer_name
			return stringField(typ, b, &m.ProducerName)
		case 3: // producer_version
			return stringField(typ, b, &m.ProducerVersion)
		case 4: // domain
			return stringField(typ, b, &m.Domain)
		case 5: // model_version
			return varintField(typ, b, &m.ModelVersion)
		case 6: // doc_string
			return stringField(typ, b, &m.DocString)
		case 7: // graph
			m.Graph = &GraphProto{}
			return message(typ, b, func(v []byte) error { return decodeGraph(v, m.Graph) })
		case 8: // opset_import
			return message(typ, b, func(v []byte) error {
				var opset OperatorSetID
				err := walk(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case 1:
						return stringField(typ, b, &opset.Domain)
					case 2:
						return varintField(typ, b, &opset.Version)
					}
					return 0, errSkip
				})
				m.OpsetImport = append(m.OpsetImport, opset)
				return err
			})
		case 14: // metadata_props
			return message(typ, b, func(v []byte) error {
				var entry StringStringEntry
				err := walk(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case 1:
						return stringField(typ, b, &entry.Key)
					case 2:
						return stringField(typ, b, &entry.Value)
					}
					return 0, errSkip
				})
				m.MetadataProps = append(m.MetadataProps, entry)
				return err
			})
		}
		return 0, errSkip
	})
}

func decodeGraph(b []byte, g *GraphProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // node
			return message(typ, b, func(v []byte) error {
				var node NodeProto
				err := decodeNode(v, &node)
				g.Nodes = append(g.Nodes, node)
				return err
			})
		case 2: // name
			return stringField(typ, b, &g.Name)
		case 5: // initializer
			return message(typ, b, func(v []byte) error {
				var t TensorProto
				err := decodeTensor(v, &t)
				g.Initializers = append(g.Initializers, t)
				return err
			})
		case 10: // doc_string
			return stringField(typ, b, &g.DocString)
		case 11: // input
			return message(typ, b, func(v []byte) error {
				var vi ValueInfoProto
				err := decodeValueInfo(v, &vi)
				g.Inputs = append(g.Inputs, vi)
				return err
			})
		case 12: // output
			return message(typ, b, func(v []byte) error {
				var vi ValueInfoProto
				err := decodeValueInfo(v, &vi)
				g.Outputs = append(g.Outputs, vi)
				return err
			})
		}
		return 0, errSkip
	})
}

func decodeNode(b []byte, n *NodeProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // input
			var s string
			c, err := stringField(typ, b, &s)
			n.Inputs = append(n.Inputs, s)
			return c, err
		case 2: // output
			var s string
			c, err := stringField(typ, b, &s)
			n.Outputs = append(n.Outputs, s)
			return c, err
		case 3: // name
			return stringField(typ, b, &n.Name)
		case 4: // op_type
			return stringField(typ, b, &n.OpType)
		case 5: // attribute
			return message(typ, b, func(v []byte) error {
				var attr AttributeProto
				err := decodeAttribute(v, &attr)
				n.Attributes = append(n.Attributes, attr)
				return err
			})
		case 6: // doc_string
			return stringField(typ, b, &n.DocString)
		case 7: // domain
			return stringField(typ, b, &n.Domain)
		}
		return 0, errSkip
	})
}

func decodeAttribute(b []byte, a *AttributeProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // name
			return stringField(typ, b, &a.Name)
		case 2: // f
			return floatField(typ, b, &a.F)
		case 3: // i
			return varintField(typ, b, &a.I)
		case 4: // s
			return bytesField(typ, b, &a.S)
		case 5: // t
			a.T = &TensorProto{}
			return message(typ, b, func(v []byte) error { return decodeTensor(v, a.T) })
		case 7: // floats
			return floatsField(typ, b, &a.Floats)
		case 8: // ints
			return int64sField(typ, b, &a.Ints)
		case 9: // strings
			var s []byte
			c, err := bytesField(typ, b, &s)
			a.Strings = append(a.Strings, s)
			return c, err
		case 20: // type
			return int32Field(typ, b, &a.Type)
		}
		return 0, errSkip
	})
}

func decodeTensor(b []byte, t *TensorProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // dims
			return int64sField(typ, b, &t.Dims)
		case 2: // data_type
			return int32Field(typ, b, &t.DataType)
		case 4: // float_data
			return floatsField(typ, b, &t.FloatData)
		case 5: // int32_data
			var vals []int64
			c, err := int64sField(typ, b, &vals)
			for _, v := range vals {
				t.Int32Data = append(t.Int32Data, int32(v)) //nolint:gosec // int32 on the wire
			}
			return c, err
		case 7: // int64_data
			return int64sField(typ, b, &t.Int64Data)
		case 8: // name
			return stringField(typ, b, &t.Name)
		case 9: // raw_data
			return bytesField(typ, b, &t.RawData)
		case 12: // doc_string
			return stringField(typ, b, &t.DocString)
		}
		return 0, errSkip
	})
}

func decodeValueInfo(b []byte, v *ValueInfoProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // name
			return stringField(typ, b, &v.Name)
		case 2: // type
			v.Type = &TypeProto{}
			return message(typ, b, func(data []byte) error { return decodeType(data, v.Type) })
		case 3: // doc_string
			return stringField(typ, b, &v.DocString)
		}
		return 0, errSkip
	})
}

func decodeType(b []byte, tp *TypeProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 { // tensor_type
			return 0, errSkip
		}
		tt := &TensorTypeProto{}
		tp.TensorType = tt
		return message(typ, b, func(v []byte) error {
			return walk(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1: // elem_type
					return int32Field(typ, b, &tt.ElemType)
				case 2: // shape
					tt.Shape = &TensorShapeProto{}
					return message(typ, b, func(v []byte) error { return decodeShape(v, tt.Shape) })
				}
				return 0, errSkip
			})
		})
	})
}

func decodeShape(b []byte, s *TensorShapeProto) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 { // dim
			return 0, errSkip
		}
		return message(typ, b, func(v []byte) error {
			var dim DimensionProto
			err := walk(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return varintField(typ, b, &dim.DimValue)
				case 2:
					return stringField(typ, b, &dim.DimParam)
				}
				return 0, errSkip
			})
			s.Dims = append(s.Dims, dim)
			return err
		})
	})
}
