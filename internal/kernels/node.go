package kernels

// Node is the kernel-facing view of a graph operation.
// It carries only what kernels read, so this package does not depend on the
// model codec.
type Node struct {
	Name       string      // Node name (optional)
	OpType     string      // Operation type (e.g., "Gemm", "Relu")
	Inputs     []string    // Input tensor names
	Outputs    []string    // Output tensor names
	Attributes []Attribute // Operation attributes
}

// Attribute represents a node attribute.
type Attribute struct {
	Name string
	F    float32 // FLOAT value
	I    int64   // INT value
}

// Label returns the node name, falling back to its op type.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.OpType
}

// GetAttrInt returns an integer attribute or default value.
func GetAttrInt(node *Node, name string, defaultVal int64) int64 {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].I
		}
	}
	return defaultVal
}

// GetAttrFloat returns a float attribute or default value.
func GetAttrFloat(node *Node, name string, defaultVal float32) float32 {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].F
		}
	}
	return defaultVal
}
