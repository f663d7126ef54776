// Package onnx provides ONNX model inspection for micro.
//
// Models are read without binding them to a session, which makes this package
// the right place to check a model file before deploying it:
//
//	info, err := onnx.GetModelInfo("wine.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Graph: %s\n", info.GraphName)
//	fmt.Printf("Operators: %v\n", info.OpTypes)
//	if missing := onnx.Unsupported(info); len(missing) > 0 {
//	    log.Fatalf("unsupported operators: %v", missing)
//	}
//
// # Supported Operators
//
//   - FullyConnected: Gemm, MatMul
//   - ReLU: Relu
//   - Softmax: Softmax
//   - Reshape: Reshape
//
// Use [ListSupportedOps] to get the complete list.
package onnx

import (
	"github.com/born-ml/micro/internal/kernels"
	internalonnx "github.com/born-ml/micro/internal/onnx"
)

// ModelInfo contains metadata about an ONNX model without loading weights.
type ModelInfo = internalonnx.ModelInfo

// GetModelInfo reads an ONNX file and summarizes it, including its fingerprint.
func GetModelInfo(path string) (*ModelInfo, error) {
	return internalonnx.GetModelInfoFile(path)
}

// GetModelInfoBytes summarizes serialized model bytes.
func GetModelInfoBytes(data []byte) (*ModelInfo, error) {
	return internalonnx.GetModelInfo(data)
}

// Fingerprint returns the xxhash64 digest of serialized model bytes.
func Fingerprint(data []byte) uint64 {
	return internalonnx.Fingerprint(data)
}

// ListSupportedOps returns every ONNX operator micro can execute.
func ListSupportedOps() []string {
	var ops []string
	for _, k := range kernels.AllKinds() {
		ops = append(ops, k.OpTypes()...)
	}
	return ops
}

// Unsupported returns the operators of info that have no kernel, in
// first-seen order. An empty result means a session can bind the model.
func Unsupported(info *ModelInfo) []string {
	return kernels.NewDefaultResolver().Missing(info.OpTypes)
}
