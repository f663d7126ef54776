package httpapi

// InferRequest is the body of POST /v1/infer.
type InferRequest struct {
	Features []float32 `json:"features"`
}

// InferResponse is the reply of POST /v1/infer.
type InferResponse struct {
	Scores []float32 `json:"scores"`
	Class  int       `json:"class"`
}

// ModelResponse is the reply of GET /v1/model.
type ModelResponse struct {
	Fingerprint  string   `json:"fingerprint"`
	SizeBytes    int      `json:"size_bytes"`
	IRVersion    int64    `json:"ir_version"`
	OpsetVersion int64    `json:"opset_version"`
	Graph        string   `json:"graph"`
	Inputs       []string `json:"inputs"`
	Outputs      []string `json:"outputs"`
	OpTypes      []string `json:"op_types"`
	Kernels      []string `json:"kernels"`
	InputShape   []int    `json:"input_shape"`
	OutputShape  []int    `json:"output_shape"`
	ArenaUsed    int      `json:"arena_used"`
	ArenaSize    int      `json:"arena_size"`
	Ready        bool     `json:"ready"`
}

// ErrorResponse is the payload of every error reply.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Status int    `json:"status,omitempty"` // session status code
}
