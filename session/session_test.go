// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package session

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/micro/internal/onnx"
	"github.com/born-ml/micro/internal/wine"
)

func newReady(t *testing.T, opts ...Options) *Session {
	t.Helper()
	s := New(wine.Model(), opts...)
	require.NoError(t, s.Initialize())
	return s
}

func sample(i int) Features {
	return Features(wine.Normalize(wine.Samples[i].Raw))
}

// recorder is an Observer that keeps every call.
type recorder struct {
	inits   []int
	invokes []int
	arena   int
}

func (r *recorder) ObserveInit(status int) { r.inits = append(r.inits, status) }
func (r *recorder) ObserveInvoke(status int, _ time.Duration) { r.invokes = append(r.invokes, status) }
func (r *recorder) SetArenaUsed(n int) { r.arena = n }

func TestInitialize(t *testing.T) {
	s := New(wine.Model())
	assert.False(t, s.Ready())
	assert.Nil(t, s.InputShape())
	assert.Nil(t, s.OutputShape())

	require.NoError(t, s.Initialize())
	assert.True(t, s.Ready())
	assert.Equal(t, []int{1, FeatureCount}, s.InputShape())
	assert.Equal(t, []int{1, ClassCount}, s.OutputShape())
	assert.Positive(t, s.ArenaUsed())
	assert.LessOrEqual(t, s.ArenaUsed(), ArenaSize)
	assert.Equal(t, ArenaSize, s.ArenaSize())
	assert.Equal(t, onnx.Fingerprint(wine.Model()), s.Fingerprint())
}

func TestInitializeArenaTooSmall(t *testing.T) {
	s := New(wine.Model(), Options{ArenaSize: 512})

	err := s.Initialize()
	require.ErrorIs(t, err, ErrTensorAllocation)
	assert.Equal(t, StatusTensorAllocation, StatusCode(err))
	assert.False(t, s.Ready())
	assert.Zero(t, s.ArenaUsed())

	_, err = s.Infer(sample(0))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInferBeforeInitialize(t *testing.T) {
	s := New(wine.Model())

	in := sample(0)
	out := Scores{7, 7, 7}
	err := s.InferInto(&in, &out)
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, StatusNotInitialized, StatusCode(err))
	assert.Equal(t, Scores{7, 7, 7}, out)
}

func TestInferDeterministic(t *testing.T) {
	s := newReady(t)
	in := sample(0)

	first, err := s.Infer(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := s.Infer(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// An unrelated call in between leaves no trace.
	_, err = s.Infer(sample(1))
	require.NoError(t, err)
	again, err := s.Infer(in)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestInferScoresAreProbabilities(t *testing.T) {
	s := newReady(t)
	for i := range wine.Samples {
		scores, err := s.Infer(sample(i))
		require.NoError(t, err)

		var sum float32
		for _, v := range scores {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestInferClassifiesSamples(t *testing.T) {
	s := newReady(t)

	scores, err := s.Infer(sample(0))
	require.NoError(t, err)
	assert.Equal(t, 0, scores.ArgMax(), "scores %v", scores)

	for i, smp := range wine.Samples {
		scores, err := s.Infer(sample(i))
		require.NoError(t, err)
		assert.Equal(t, smp.Class, scores.ArgMax(), "sample %d scores %v", i, scores)
	}
}

func TestRunRejectsShortInput(t *testing.T) {
	// Features is a fixed-size array, so a short vector cannot reach Infer.
	// The slice form checks lengths instead.
	s := newReady(t)

	out := []float32{9, 9, 9}
	err := s.Run(make([]float32, FeatureCount-1), out)
	require.ErrorIs(t, err, ErrInvalidInputSize)
	assert.Equal(t, StatusInvalidInputSize, StatusCode(err))
	assert.Equal(t, []float32{9, 9, 9}, out)

	err = s.Run(make([]float32, FeatureCount), make([]float32, ClassCount-1))
	assert.ErrorIs(t, err, ErrInvalidInputSize)

	in := sample(0)
	require.NoError(t, s.Run(in[:], out))
	assert.InDelta(t, 1.0, out[0]+out[1]+out[2], 1e-5)

	assert.ErrorIs(t, s.InferInto(nil, &Scores{}), ErrInvalidInputSize)
}

// narrowModel has a 10-wide input, which initializes but cannot take Features.
func narrowModel() []byte {
	w := make([]float32, ClassCount*10)
	return onnx.Marshal(&onnx.ModelProto{
		IRVersion:   8,
		OpsetImport: []onnx.OperatorSetID{{Version: 13}},
		Graph: &onnx.GraphProto{
			Name: "narrow",
			Nodes: []onnx.NodeProto{
				{
					OpType: "Gemm", Inputs: []string{"x", "w"}, Outputs: []string{"logits"},
					Attributes: []onnx.AttributeProto{{Name: "transB", Type: onnx.AttributeProtoInt, I: 1}},
				},
				{OpType: "Softmax", Inputs: []string{"logits"}, Outputs: []string{"y"}},
			},
			Initializers: []onnx.TensorProto{
				{Name: "w", DataType: onnx.TensorProtoFloat, Dims: []int64{ClassCount, 10}, FloatData: w},
			},
			Inputs: []onnx.ValueInfoProto{{
				Name: "x",
				Type: &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{
					ElemType: onnx.TensorProtoFloat,
					Shape:    &onnx.TensorShapeProto{Dims: []onnx.DimensionProto{{DimValue: 1}, {DimValue: 10}}},
				}},
			}},
			Outputs: []onnx.ValueInfoProto{{Name: "y"}},
		},
	})
}

func TestInferModelInputMismatch(t *testing.T) {
	s := New(narrowModel())
	require.NoError(t, s.Initialize())
	assert.Equal(t, []int{1, 10}, s.InputShape())

	_, err := s.Infer(sample(0))
	require.ErrorIs(t, err, ErrInvalidInputSize)
	assert.ErrorContains(t, err, "model input holds 10 values")
}

func TestInitializeTwice(t *testing.T) {
	s := newReady(t)
	used := s.ArenaUsed()

	err := s.Initialize()
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, StatusAlreadyInitialized, StatusCode(err))
	assert.True(t, s.Ready())
	assert.Equal(t, used, s.ArenaUsed())

	_, err = s.Infer(sample(0))
	assert.NoError(t, err)
}

func TestReset(t *testing.T) {
	s := newReady(t)
	before, err := s.Infer(sample(2))
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.False(t, s.Ready())
	assert.Zero(t, s.ArenaUsed())
	_, err = s.Infer(sample(2))
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, s.Initialize())
	after, err := s.Infer(sample(2))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestClose(t *testing.T) {
	s := newReady(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.False(t, s.Ready())
	assert.ErrorIs(t, s.Initialize(), ErrClosed)
	assert.ErrorIs(t, s.Reset(), ErrClosed)
	_, err := s.Infer(sample(0))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, StatusClosed, StatusCode(err))
}

func TestUnsupportedOperation(t *testing.T) {
	t.Run("kernel set too small", func(t *testing.T) {
		s := New(wine.Model(), Options{Kernels: []Kind{FullyConnected, ReLU}})
		err := s.Initialize()

		var unsupported *UnsupportedOperationError
		require.True(t, errors.As(err, &unsupported), "got %v", err)
		assert.Equal(t, []string{"Softmax", "Reshape"}, unsupported.OpTypes)
		assert.ErrorIs(t, err, ErrModelLoad)
		assert.Equal(t, StatusModelLoad, StatusCode(err))
		assert.EqualError(t, err, "unsupported operation(s): Softmax, Reshape")
		assert.False(t, s.Ready())
	})

	t.Run("op outside every kind", func(t *testing.T) {
		proto := wine.ModelProto()
		proto.Graph.Nodes[1].OpType = "Sigmoid"
		s := New(onnx.Marshal(proto))
		err := s.Initialize()

		var unsupported *UnsupportedOperationError
		require.True(t, errors.As(err, &unsupported), "got %v", err)
		assert.Equal(t, []string{"Sigmoid"}, unsupported.OpTypes)
	})
}

func TestKernelSetTooLarge(t *testing.T) {
	kinds := []Kind{FullyConnected, ReLU, Softmax, Reshape, ReLU}
	s := New(wine.Model(), Options{Kernels: kinds})

	err := s.Initialize()
	require.ErrorIs(t, err, ErrModelLoad)
	assert.Equal(t, StatusModelLoad, StatusCode(err))
}

func TestInitializeBadModel(t *testing.T) {
	tests := []struct {
		name  string
		model []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xff, 0xff, 0xff, 0xff}},
		{"no graph", onnx.Marshal(&onnx.ModelProto{IRVersion: 8})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.model)
			err := s.Initialize()
			require.ErrorIs(t, err, ErrModelLoad)
			assert.Equal(t, StatusModelLoad, StatusCode(err))
			assert.False(t, s.Ready())
		})
	}
}

func TestInitializeShapeMismatch(t *testing.T) {
	proto := wine.ModelProto()
	proto.Graph.Inputs[0].Type.TensorType.Shape.Dims[1].DimValue = 12
	s := New(onnx.Marshal(proto))

	err := s.Initialize()
	require.ErrorIs(t, err, ErrTensorAllocation)
	assert.ErrorContains(t, err, "dense_1")
}

func TestInitializeMalformedGraph(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *onnx.GraphProto)
		want   string
	}{
		{
			name:   "node without inputs",
			mutate: func(g *onnx.GraphProto) { g.Nodes[1].Inputs = []string{""} },
			want:   "relu_1",
		},
		{
			name:   "reshape without shape",
			mutate: func(g *onnx.GraphProto) { g.Nodes[4].Inputs = []string{"probs", ""} },
			want:   "flatten",
		},
		{
			name:   "empty leading input",
			mutate: func(g *onnx.GraphProto) { g.Nodes[0].Inputs[0] = "" },
			want:   "dense_1",
		},
		{
			name: "oversized initializer",
			mutate: func(g *onnx.GraphProto) {
				g.Initializers = append(g.Initializers, onnx.TensorProto{
					Name: "huge", DataType: onnx.TensorProtoFloat, Dims: []int64{1 << 32, 1 << 32},
				})
			},
			want: "huge",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proto := wine.ModelProto()
			tt.mutate(proto.Graph)
			s := New(onnx.Marshal(proto))

			var err error
			require.NotPanics(t, func() { err = s.Initialize() })
			require.ErrorIs(t, err, ErrTensorAllocation)
			assert.Equal(t, StatusTensorAllocation, StatusCode(err))
			assert.ErrorContains(t, err, tt.want)
			assert.False(t, s.Ready())
		})
	}
}

func TestInitializeUnresolvedTensors(t *testing.T) {
	noInputs := wine.ModelProto()
	noInputs.Graph.Inputs = nil
	noOutputs := wine.ModelProto()
	noOutputs.Graph.Outputs = nil

	for name, proto := range map[string]*onnx.ModelProto{"no inputs": noInputs, "no outputs": noOutputs} {
		t.Run(name, func(t *testing.T) {
			s := New(onnx.Marshal(proto))
			err := s.Initialize()
			require.ErrorIs(t, err, ErrTensorResolution)
			assert.Equal(t, StatusTensorResolution, StatusCode(err))
			assert.False(t, s.Ready())
		})
	}
}

// failingInvoker stands in for a bound interpreter whose run fails.
type failingInvoker struct{}

func (failingInvoker) Invoke() error { return errors.New("kernel failed") }

func TestInferInvocationFailure(t *testing.T) {
	rec := &recorder{}
	s := newReady(t, Options{Observer: rec})
	s.interp = failingInvoker{}

	in := sample(0)
	out := Scores{7, 7, 7}
	err := s.InferInto(&in, &out)
	require.ErrorIs(t, err, ErrInvocation)
	assert.Equal(t, StatusInvocation, StatusCode(err))
	assert.ErrorContains(t, err, "kernel failed")
	assert.Equal(t, Scores{7, 7, 7}, out)

	scores, err := s.Infer(in)
	require.ErrorIs(t, err, ErrInvocation)
	assert.Equal(t, Scores{}, scores)
	assert.Equal(t, []int{StatusInvocation, StatusInvocation}, rec.invokes)
	assert.True(t, s.Ready())
}

func TestInitializeLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	newReady(t, Options{Logger: &logger})

	out := buf.String()
	assert.Contains(t, out, `"message":"session initialized"`)
	assert.Contains(t, out, `"input_dims":[1,13]`)
	assert.Contains(t, out, `"output_dims":[1,3]`)
	assert.Contains(t, out, `"arena_used"`)
	assert.Contains(t, out, `"fingerprint"`)
}

func TestObserver(t *testing.T) {
	rec := &recorder{}
	s := New(wine.Model(), Options{Observer: rec})

	_, _ = s.Infer(sample(0))
	require.NoError(t, s.Initialize())
	_ = s.Initialize()
	_, err := s.Infer(sample(0))
	require.NoError(t, err)

	assert.Equal(t, []int{StatusOK, StatusAlreadyInitialized}, rec.inits)
	assert.Equal(t, []int{StatusNotInitialized, StatusOK}, rec.invokes)
	assert.Equal(t, s.ArenaUsed(), rec.arena)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{ErrModelLoad, -1},
		{&UnsupportedOperationError{OpTypes: []string{"Conv"}}, -1},
		{ErrNotInitialized, -1},
		{ErrTensorAllocation, -2},
		{ErrInvocation, -2},
		{ErrTensorResolution, -3},
		{ErrInvalidInputSize, -3},
		{ErrAlreadyInitialized, -4},
		{ErrClosed, -5},
		{errors.New("other"), StatusUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), "%v", tt.err)
	}
}

func TestScoresArgMax(t *testing.T) {
	assert.Equal(t, 0, Scores{0.5, 0.2, 0.3}.ArgMax())
	assert.Equal(t, 1, Scores{0.1, 0.8, 0.1}.ArgMax())
	assert.Equal(t, 2, Scores{0.1, 0.1, 0.8}.ArgMax())
	assert.Equal(t, 0, Scores{}.ArgMax())
}

func TestIndependentSessions(t *testing.T) {
	a := newReady(t)
	b := newReady(t)

	sa, err := a.Infer(sample(0))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	sa2, err := a.Infer(sample(0))
	require.NoError(t, err)
	assert.Equal(t, sa, sa2)
}
