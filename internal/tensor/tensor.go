package tensor

import (
	"fmt"
	"unsafe"
)

// Tensor is a named, typed view over a region of memory it does not own.
//
// A tensor is created with a shape first and bound to memory later, once the
// arena planner has decided where it lives. Reading element views before
// Bind panics.
type Tensor struct {
	name  string
	shape Shape
	dtype DataType
	data  []byte
}

// New creates an unbound tensor with the given shape and type.
func New(name string, shape Shape, dtype DataType) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor %q: invalid shape: %w", name, err)
	}
	return &Tensor{
		name:  name,
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// Name returns the graph name of the tensor.
func (t *Tensor) Name() string {
	return t.name
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (t *Tensor) ByteSize() int {
	return t.NumElements() * t.dtype.Size()
}

// Bind attaches the tensor to its memory region.
// The region must be exactly ByteSize bytes and suitably aligned for the dtype.
func (t *Tensor) Bind(data []byte) error {
	if len(data) != t.ByteSize() {
		return fmt.Errorf("tensor %q: region is %d bytes, need %d", t.name, len(data), t.ByteSize())
	}
	if len(data) > 0 && uintptr(unsafe.Pointer(&data[0]))%uintptr(t.dtype.Size()) != 0 {
		return fmt.Errorf("tensor %q: region is not %d-byte aligned", t.name, t.dtype.Size())
	}
	t.data = data
	return nil
}

// Bound reports whether the tensor has memory attached.
func (t *Tensor) Bound() bool {
	return t.data != nil
}

// Data returns the raw byte slice.
// WARNING: Direct access to arena memory. Use with caution.
func (t *Tensor) Data() []byte {
	return t.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32 or the tensor is unbound.
func (t *Tensor) AsFloat32() []float32 {
	if t.dtype != Float32 {
		panic(fmt.Sprintf("tensor %q dtype is %s, not float32", t.name, t.dtype))
	}
	t.mustBound()
	//nolint:gosec // unsafe.Slice for zero-copy arena views, length checked by Bind
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32 or the tensor is unbound.
func (t *Tensor) AsInt32() []int32 {
	if t.dtype != Int32 {
		panic(fmt.Sprintf("tensor %q dtype is %s, not int32", t.name, t.dtype))
	}
	t.mustBound()
	//nolint:gosec // unsafe.Slice for zero-copy arena views, length checked by Bind
	return unsafe.Slice((*int32)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64 or the tensor is unbound.
func (t *Tensor) AsInt64() []int64 {
	if t.dtype != Int64 {
		panic(fmt.Sprintf("tensor %q dtype is %s, not int64", t.name, t.dtype))
	}
	t.mustBound()
	//nolint:gosec // unsafe.Slice for zero-copy arena views, length checked by Bind
	return unsafe.Slice((*int64)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// String returns a short description such as "hidden[1 26] float32".
func (t *Tensor) String() string {
	return fmt.Sprintf("%s%v %s", t.name, []int(t.shape), t.dtype)
}

func (t *Tensor) mustBound() {
	if len(t.data) == 0 {
		panic(fmt.Sprintf("tensor %q is not bound to memory", t.name))
	}
}
