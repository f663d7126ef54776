// Package onnx decodes and encodes the serialized model graph.
//
// Models are ONNX (Open Neural Network Exchange) protobuf files. Only the
// subset of the schema needed to run a small feed-forward classifier is
// modelled; unknown fields are skipped on decode.
//
// Key components:
//   - ModelProto: top-level model with metadata, opset imports and the graph
//   - GraphProto: nodes, inputs, outputs and initializers (weights)
//   - NodeProto: a single operation (Gemm, Relu, Softmax, Reshape, ...)
//   - TensorProto: an initializer with shape and data
//   - ValueInfoProto: input/output type and shape information
//
// Wire handling is done with google.golang.org/protobuf/encoding/protowire.
//
// Example usage:
//
//	model, err := onnx.Parse(data)
//	if err != nil {
//	    return err
//	}
//	for _, node := range model.Graph.Nodes {
//	    fmt.Printf("Op: %s (type: %s)\n", node.Name, node.OpType)
//	}
package onnx
