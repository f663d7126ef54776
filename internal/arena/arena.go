// Package arena provides the fixed-capacity scratch memory used by the
// interpreter.
//
// An Arena is a single 16-byte-aligned byte region split in two sections:
//   - the head, which holds activation tensors placed by the Planner;
//   - the tail, which holds persistent data (weights, constant shapes) and
//     grows downward from the end of the region.
//
// The arena never grows. All allocation happens while tensors are being
// prepared; once the interpreter is allocated nothing is carved out again.
package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

// Alignment is the byte alignment of every region handed out by the arena.
const Alignment = 16

// ErrExhausted is returned when a request does not fit in the arena.
var ErrExhausted = errors.New("arena exhausted")

// Arena is a fixed-capacity aligned byte region.
type Arena struct {
	buf  []byte // aligned view, len == capacity
	head int    // bytes committed to the head section
	tail int    // bytes used by the tail section
}

// New allocates an arena of the given capacity in bytes.
// The capacity is rounded down to a multiple of Alignment.
func New(capacity int) *Arena {
	capacity -= capacity % Alignment
	if capacity < 0 {
		capacity = 0
	}
	raw := make([]byte, capacity+Alignment)
	//nolint:gosec // address arithmetic to align the region start
	shift := int(-uintptr(unsafe.Pointer(&raw[0])) & (Alignment - 1))
	return &Arena{buf: raw[shift : shift+capacity : shift+capacity]}
}

// Capacity returns the total size of the arena in bytes.
func (a *Arena) Capacity() int {
	return len(a.buf)
}

// Used returns the number of bytes committed across both sections.
func (a *Arena) Used() int {
	return a.head + a.tail
}

// Available returns the number of bytes not yet committed.
func (a *Arena) Available() int {
	return len(a.buf) - a.Used()
}

// AllocPersistent carves n bytes from the tail section.
// The returned slice is zeroed and aligned to Alignment.
func (a *Arena) AllocPersistent(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative allocation size %d", n)
	}
	size := Align(n)
	if size > a.Available() {
		return nil, fmt.Errorf("%w: persistent request of %d bytes, %d available", ErrExhausted, size, a.Available())
	}
	a.tail += size
	end := len(a.buf) - a.tail
	region := a.buf[end : end+n : end+n]
	clear(region)
	return region, nil
}

// CommitHead reserves n bytes at the start of the arena for planned tensors.
// A later call replaces the previous reservation.
func (a *Arena) CommitHead(n int) error {
	if n < 0 {
		return fmt.Errorf("negative head size %d", n)
	}
	size := Align(n)
	if size+a.tail > len(a.buf) {
		return fmt.Errorf("%w: head needs %d bytes, %d available", ErrExhausted, size, len(a.buf)-a.tail)
	}
	a.head = size
	return nil
}

// Head returns the region [offset, offset+n) of the committed head section.
func (a *Arena) Head(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > a.head {
		return nil, fmt.Errorf("head region [%d, %d) outside committed %d bytes", offset, offset+n, a.head)
	}
	return a.buf[offset : offset+n : offset+n], nil
}

// Reset releases both sections. Previously returned slices must not be used.
func (a *Arena) Reset() {
	clear(a.buf)
	a.head = 0
	a.tail = 0
}

// Align rounds n up to the next multiple of Alignment.
func Align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}
