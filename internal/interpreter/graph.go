package interpreter

import (
	"fmt"

	"github.com/born-ml/micro/internal/kernels"
	"github.com/born-ml/micro/internal/onnx"
)

// topologicalSort orders nodes so every producer runs before its consumers.
// Inputs produced by no node (graph inputs, initializers) are ignored here.
func topologicalSort(nodes []onnx.NodeProto) ([]onnx.NodeProto, error) {
	outputToNode := make(map[string]int)
	for i := range nodes {
		for _, output := range nodes[i].Outputs {
			if prev, ok := outputToNode[output]; ok && prev != i {
				return nil, fmt.Errorf("tensor %q produced by more than one node", output)
			}
			outputToNode[output] = i
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(nodes))
	result := make([]onnx.NodeProto, 0, len(nodes))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w at node %q", ErrCyclicGraph, nodeLabel(&nodes[i]))
		}
		state[i] = visiting

		for _, input := range nodes[i].Inputs {
			if depIdx, ok := outputToNode[input]; ok {
				if err := visit(depIdx); err != nil {
					return err
				}
			}
		}

		state[i] = done
		result = append(result, nodes[i])
		return nil
	}

	for i := range nodes {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// toKernelNode converts a graph node to the view kernels consume.
func toKernelNode(proto *onnx.NodeProto) kernels.Node {
	node := kernels.Node{
		Name:    proto.Name,
		OpType:  proto.OpType,
		Inputs:  proto.Inputs,
		Outputs: proto.Outputs,
	}
	for i := range proto.Attributes {
		attr := &proto.Attributes[i]
		node.Attributes = append(node.Attributes, kernels.Attribute{
			Name: attr.Name,
			F:    attr.F,
			I:    attr.I,
		})
	}
	return node
}

func nodeLabel(n *onnx.NodeProto) string {
	if n.Name != "" {
		return n.Name
	}
	return n.OpType
}
