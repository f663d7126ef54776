// Package kernels implements the operation kernels the interpreter can run.
//
// A kernel is registered by Kind, a named capability (FullyConnected, ReLU,
// Softmax, Reshape). Each Kind covers one or more graph op types. Kernels are
// split in two phases:
//   - Prepare runs once while tensors are allocated and returns output shapes;
//   - Eval runs on every invocation and writes preallocated outputs.
//
// Eval must not allocate memory.
package kernels
