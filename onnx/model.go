package onnx

import internalonnx "github.com/born-ml/micro/internal/onnx"

// Model is a decoded ONNX ModelProto.
//
// Only the fields micro executes are kept: graph nodes, initializers,
// inputs, outputs, opset imports and metadata.
type Model = internalonnx.ModelProto

// Parse decodes serialized model bytes.
func Parse(data []byte) (*Model, error) {
	return internalonnx.Parse(data)
}

// ParseFile reads and decodes an ONNX file.
func ParseFile(path string) (*Model, error) {
	return internalonnx.ParseFile(path)
}

// Marshal encodes a model to ONNX protobuf bytes.
func Marshal(m *Model) []byte {
	return internalonnx.Marshal(m)
}
