package kernels

import (
	"math"
	"testing"

	"github.com/born-ml/micro/internal/arena"
	"github.com/born-ml/micro/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testArena backs the tensors of one test.
func testArena() *arena.Arena {
	return arena.New(4096)
}

func bound(t *testing.T, a *arena.Arena, name string, shape tensor.Shape, dtype tensor.DataType) *tensor.Tensor {
	t.Helper()
	tt, err := tensor.New(name, shape, dtype)
	require.NoError(t, err)
	region, err := a.AllocPersistent(tt.ByteSize())
	require.NoError(t, err)
	require.NoError(t, tt.Bind(region))
	return tt
}

func floats(t *testing.T, a *arena.Arena, name string, shape tensor.Shape, vals ...float32) *tensor.Tensor {
	t.Helper()
	tt := bound(t, a, name, shape, tensor.Float32)
	require.Len(t, vals, tt.NumElements())
	copy(tt.AsFloat32(), vals)
	return tt
}

func int64s(t *testing.T, a *arena.Arena, name string, vals ...int64) *tensor.Tensor {
	t.Helper()
	tt := bound(t, a, name, tensor.Shape{len(vals)}, tensor.Int64)
	copy(tt.AsInt64(), vals)
	return tt
}

func unbound(t *testing.T, name string, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	tt, err := tensor.New(name, shape, tensor.Float32)
	require.NoError(t, err)
	return tt
}

// run prepares and evaluates a single node, returning its first output.
func run(t *testing.T, a *arena.Arena, k Kernel, node *Node, inputs ...*tensor.Tensor) *tensor.Tensor {
	t.Helper()
	shapes, err := k.Prepare(node, inputs)
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	out := bound(t, a, "out", shapes[0], tensor.Float32)
	require.NoError(t, k.Eval(node, inputs, []*tensor.Tensor{out}))
	return out
}

func kernelFor(t *testing.T, op string) Kernel {
	t.Helper()
	k, ok := NewDefaultResolver().Find(op)
	require.True(t, ok, "kernel %s", op)
	return k
}

func TestGemm(t *testing.T) {
	a := testArena()
	x := floats(t, a, "x", tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	w := floats(t, a, "w", tensor.Shape{2, 3}, 1, 0, 1, 0, 1, 0)
	b := floats(t, a, "b", tensor.Shape{2}, 1, -1)

	t.Run("transB with bias", func(t *testing.T) {
		node := &Node{OpType: "Gemm", Attributes: []Attribute{{Name: "transB", I: 1}}}
		out := run(t, a, kernelFor(t, "Gemm"), node, x, w, b)
		assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
		assert.Equal(t, []float32{5, 1, 11, 4}, out.AsFloat32())
	})

	t.Run("alpha and beta", func(t *testing.T) {
		node := &Node{OpType: "Gemm", Attributes: []Attribute{
			{Name: "transB", I: 1},
			{Name: "alpha", F: 0.5},
			{Name: "beta", F: 2},
		}}
		out := run(t, a, kernelFor(t, "Gemm"), node, x, w, b)
		assert.InDeltaSlice(t, []float32{4, -1, 7, 0.5}, out.AsFloat32(), 1e-6)
	})

	t.Run("transA without bias", func(t *testing.T) {
		xt := floats(t, a, "xt", tensor.Shape{3, 2}, 1, 4, 2, 5, 3, 6)
		wt := floats(t, a, "wt", tensor.Shape{3, 2}, 1, 0, 0, 1, 1, 0)
		node := &Node{OpType: "Gemm", Attributes: []Attribute{{Name: "transA", I: 1}}}
		out := run(t, a, kernelFor(t, "Gemm"), node, xt, wt)
		assert.Equal(t, []float32{4, 2, 10, 5}, out.AsFloat32())
	})

	t.Run("column bias broadcast", func(t *testing.T) {
		col := floats(t, a, "col", tensor.Shape{2, 1}, 10, 20)
		node := &Node{OpType: "Gemm", Attributes: []Attribute{{Name: "transB", I: 1}}}
		out := run(t, a, kernelFor(t, "Gemm"), node, x, w, col)
		assert.Equal(t, []float32{14, 12, 30, 25}, out.AsFloat32())
	})
}

func TestGemmPrepareErrors(t *testing.T) {
	k := kernelFor(t, "Gemm")
	node := &Node{OpType: "Gemm", Attributes: []Attribute{{Name: "transB", I: 1}}}

	_, err := k.Prepare(node, []*tensor.Tensor{unbound(t, "x", tensor.Shape{1, 3})})
	assert.Error(t, err, "too few inputs")

	_, err = k.Prepare(node, []*tensor.Tensor{
		unbound(t, "x", tensor.Shape{1, 3}),
		unbound(t, "w", tensor.Shape{2, 4}),
	})
	assert.ErrorContains(t, err, "inner dimensions")

	_, err = k.Prepare(node, []*tensor.Tensor{
		unbound(t, "x", tensor.Shape{1, 3}),
		unbound(t, "w", tensor.Shape{2, 3}),
		unbound(t, "b", tensor.Shape{3}),
	})
	assert.ErrorContains(t, err, "does not broadcast")

	_, err = k.Prepare(node, []*tensor.Tensor{
		unbound(t, "x", tensor.Shape{3}),
		unbound(t, "w", tensor.Shape{2, 3}),
	})
	assert.ErrorContains(t, err, "rank 2")
}

func TestMatMul(t *testing.T) {
	a := testArena()
	x := floats(t, a, "x", tensor.Shape{1, 2}, 1, 2)
	w := floats(t, a, "w", tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	out := run(t, a, kernelFor(t, "MatMul"), &Node{OpType: "MatMul"}, x, w)
	assert.Equal(t, tensor.Shape{1, 3}, out.Shape())
	assert.Equal(t, []float32{9, 12, 15}, out.AsFloat32())
}

func TestRelu(t *testing.T) {
	a := testArena()
	x := floats(t, a, "x", tensor.Shape{1, 4}, -1, 0, 2, -3.5)

	out := run(t, a, kernelFor(t, "Relu"), &Node{OpType: "Relu"}, x)
	assert.Equal(t, []float32{0, 0, 2, 0}, out.AsFloat32())

	_, err := kernelFor(t, "Relu").Prepare(&Node{OpType: "Relu"}, []*tensor.Tensor{x, x})
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	a := testArena()
	k := kernelFor(t, "Softmax")

	t.Run("last axis", func(t *testing.T) {
		x := floats(t, a, "x", tensor.Shape{1, 3}, 1, 2, 3)
		out := run(t, a, k, &Node{OpType: "Softmax"}, x)

		sum := math.Exp(-2) + math.Exp(-1) + 1
		want := []float32{
			float32(math.Exp(-2) / sum),
			float32(math.Exp(-1) / sum),
			float32(1 / sum),
		}
		assert.InDeltaSlice(t, want, out.AsFloat32(), 1e-6)
	})

	t.Run("large logits stay finite", func(t *testing.T) {
		x := floats(t, a, "x", tensor.Shape{1, 2}, 1000, 1001)
		out := run(t, a, k, &Node{OpType: "Softmax"}, x)

		got := out.AsFloat32()
		for _, v := range got {
			assert.False(t, math.IsNaN(float64(v)))
		}
		assert.InDelta(t, 0.2689414, got[0], 1e-5)
		assert.InDelta(t, 0.7310586, got[1], 1e-5)
	})

	t.Run("axis 0", func(t *testing.T) {
		x := floats(t, a, "x", tensor.Shape{2, 2}, 1, 1, 3, 1)
		node := &Node{OpType: "Softmax", Attributes: []Attribute{{Name: "axis", I: 0}}}
		out := run(t, a, k, node, x)
		assert.InDeltaSlice(t, []float32{0.1192029, 0.5, 0.8807971, 0.5}, out.AsFloat32(), 1e-5)
	})

	t.Run("axis out of range", func(t *testing.T) {
		node := &Node{OpType: "Softmax", Attributes: []Attribute{{Name: "axis", I: 2}}}
		_, err := k.Prepare(node, []*tensor.Tensor{unbound(t, "x", tensor.Shape{1, 3})})
		assert.ErrorContains(t, err, "axis")
	})
}

func TestReshape(t *testing.T) {
	a := testArena()
	k := kernelFor(t, "Reshape")
	x := floats(t, a, "x", tensor.Shape{1, 6}, 1, 2, 3, 4, 5, 6)

	tests := []struct {
		name   string
		target []int64
		want   tensor.Shape
	}{
		{"infer trailing", []int64{2, -1}, tensor.Shape{2, 3}},
		{"copy leading", []int64{0, -1}, tensor.Shape{1, 6}},
		{"flatten", []int64{-1}, tensor.Shape{6}},
		{"explicit", []int64{3, 2}, tensor.Shape{3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, a, k, &Node{OpType: "Reshape"}, x, int64s(t, a, "shape", tt.target...))
			assert.Equal(t, tt.want, out.Shape())
			assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out.AsFloat32())
		})
	}
}

func TestReshapeErrors(t *testing.T) {
	a := testArena()
	k := kernelFor(t, "Reshape")
	x := unbound(t, "x", tensor.Shape{1, 6})

	tests := []struct {
		name   string
		target []int64
		errMsg string
	}{
		{"two inferred", []int64{-1, -1}, "one -1"},
		{"not divisible", []int64{4, -1}, "cannot infer"},
		{"wrong count", []int64{4, 2}, "cannot reshape"},
		{"negative", []int64{-2, 3}, "invalid dimension"},
		{"zero past rank", []int64{1, 6, 0}, "missing input dimension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Prepare(&Node{OpType: "Reshape"}, []*tensor.Tensor{x, int64s(t, a, "shape", tt.target...)})
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}

	t.Run("dynamic shape operand", func(t *testing.T) {
		dyn, err := tensor.New("shape", tensor.Shape{2}, tensor.Int64)
		require.NoError(t, err)
		_, err = k.Prepare(&Node{OpType: "Reshape"}, []*tensor.Tensor{x, dyn})
		assert.ErrorContains(t, err, "constant")
	})
}
