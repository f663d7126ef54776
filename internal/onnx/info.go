package onnx

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// ModelInfo contains basic information about a model without binding it.
type ModelInfo struct {
	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	GraphName       string
	InputNames      []string
	OutputNames     []string
	OpTypes         []string // distinct op types in first-seen order
	NodeCount       int
	WeightCount     int
	Fingerprint     uint64 // xxhash64 of the serialized bytes
	SizeBytes       int
}

// FingerprintString formats the fingerprint the way it is logged.
func (i *ModelInfo) FingerprintString() string {
	return fmt.Sprintf("%016x", i.Fingerprint)
}

// Fingerprint returns the xxhash64 digest of serialized model bytes.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// GetModelInfo parses data and summarizes it.
func GetModelInfo(data []byte) (*ModelInfo, error) {
	proto, err := Parse(data)
	if err != nil {
		return nil, err
	}
	info := Describe(proto)
	info.Fingerprint = Fingerprint(data)
	info.SizeBytes = len(data)
	return info, nil
}

// GetModelInfoFile reads and summarizes a model file.
func GetModelInfoFile(path string) (*ModelInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return GetModelInfo(data)
}

// Describe summarizes an already parsed model. Fingerprint and SizeBytes are
// left zero because the serialized bytes are not known here.
func Describe(proto *ModelProto) *ModelInfo {
	info := &ModelInfo{
		IRVersion:       proto.IRVersion,
		OpsetVersion:    proto.OpsetVersion(),
		ProducerName:    proto.ProducerName,
		ProducerVersion: proto.ProducerVersion,
	}

	graph := proto.Graph
	if graph == nil {
		return info
	}
	info.GraphName = graph.Name
	info.InputNames = graph.RuntimeInputs()
	for _, output := range graph.Outputs {
		info.OutputNames = append(info.OutputNames, output.Name)
	}
	info.OpTypes = graph.OpTypes()
	info.NodeCount = len(graph.Nodes)
	info.WeightCount = len(graph.Initializers)
	return info
}

// RuntimeInputs returns graph inputs that are not initializers.
func (g *GraphProto) RuntimeInputs() []string {
	initNames := make(map[string]bool, len(g.Initializers))
	for i := range g.Initializers {
		initNames[g.Initializers[i].Name] = true
	}
	var names []string
	for i := range g.Inputs {
		if !initNames[g.Inputs[i].Name] {
			names = append(names, g.Inputs[i].Name)
		}
	}
	return names
}

// OpTypes returns the distinct op types used by the graph in first-seen order.
func (g *GraphProto) OpTypes() []string {
	seen := make(map[string]bool)
	var ops []string
	for i := range g.Nodes {
		op := g.Nodes[i].OpType
		if !seen[op] {
			seen[op] = true
			ops = append(ops, op)
		}
	}
	return ops
}

// Input returns the graph input value info with the given name, or nil.
func (g *GraphProto) Input(name string) *ValueInfoProto {
	for i := range g.Inputs {
		if g.Inputs[i].Name == name {
			return &g.Inputs[i]
		}
	}
	return nil
}
