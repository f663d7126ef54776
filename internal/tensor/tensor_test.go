package tensor

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{13}, 13},
		{Shape{1, 13}, 13},
		{Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{1, 3}.Validate())
	assert.Error(t, Shape{1, 0}.Validate())
	assert.Error(t, Shape{-1, 3}.Validate())
}

func TestShapeNormalizeAxis(t *testing.T) {
	s := Shape{1, 3}

	axis, err := s.NormalizeAxis(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, axis)

	axis, err = s.NormalizeAxis(0)
	require.NoError(t, err)
	assert.Equal(t, 0, axis)

	_, err = s.NormalizeAxis(2)
	assert.Error(t, err)
	_, err = s.NormalizeAxis(-3)
	assert.Error(t, err)
}

func TestShapeValidateOverflow(t *testing.T) {
	assert.NoError(t, Shape{1 << 15, 1 << 15}.Validate())

	err := Shape{1 << 32, 1 << 32}.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "exceeds")

	_, err = New("huge", Shape{1 << 16, 1 << 16}, Float32)
	assert.Error(t, err)
}

func TestBroadcastShapes(t *testing.T) {
	got, needs, err := BroadcastShapes(Shape{3}, Shape{1, 3})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, Shape{1, 3}, got)

	got, needs, err = BroadcastShapes(Shape{2, 3}, Shape{2, 3})
	require.NoError(t, err)
	assert.False(t, needs)
	assert.Equal(t, Shape{2, 3}, got)

	_, _, err = BroadcastShapes(Shape{2, 4}, Shape{2, 3})
	assert.Error(t, err)
}

func TestTensorBindAndViews(t *testing.T) {
	x, err := New("x", Shape{1, 3}, Float32)
	require.NoError(t, err)
	assert.False(t, x.Bound())
	assert.Equal(t, 12, x.ByteSize())

	buf := make([]float32, 3)
	region := unsafeBytes(buf)
	require.NoError(t, x.Bind(region))
	assert.True(t, x.Bound())

	view := x.AsFloat32()
	view[0], view[1], view[2] = 1, 2, 3
	assert.Equal(t, []float32{1, 2, 3}, buf)
}

func TestTensorBindWrongSize(t *testing.T) {
	x, err := New("x", Shape{4}, Int64)
	require.NoError(t, err)
	assert.Error(t, x.Bind(make([]byte, 16)))
}

func TestTensorViewPanics(t *testing.T) {
	x, err := New("x", Shape{2}, Float32)
	require.NoError(t, err)

	assert.Panics(t, func() { x.AsFloat32() }, "unbound tensor")
	assert.Panics(t, func() { x.AsInt64() }, "wrong dtype")
}

func TestNewInvalidShape(t *testing.T) {
	_, err := New("bad", Shape{3, 0}, Float32)
	assert.Error(t, err)
}

func unsafeBytes(f []float32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4)
}
