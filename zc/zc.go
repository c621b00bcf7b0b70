// Package zc (zero-copy) holds the buffer handles that structure instances
// and their views share.
//
// A Buffer is owned by exactly one structure instance. Views over the same
// bytes keep a pointer to the same handle and never release it; once the
// owner releases the handle every holder observes Released. Buffers below
// MaxPooled bytes come from size-classed pools and are zero-filled before
// they are handed out again.
package zc

import (
	"errors"
	"math/bits"
	"sync"
	"sync/atomic"
)

var ErrReleased = errors.New("buffer released")

const (
	minPooled = 32
	MaxPooled = 64 * 1024
	classes   = 12 // 32,64,128,256,512,1k,2k,4k,8k,16k,32k,64k
)

var pools [classes]sync.Pool

func init() {
	for i := range pools {
		size := minPooled << i
		pools[i].New = func() any {
			b := make([]byte, size)
			return &b
		}
	}
}

func class(size int) int {
	if size <= minPooled {
		return 0
	}
	return bits.Len32(uint32(size-1)) - 5
}

// Buffer is a reference handle over a byte region.
type Buffer struct {
	b        []byte
	slot     *[]byte
	class    int8
	released atomic.Bool
}

// New returns a zero-filled buffer of size bytes.
func New(size int) *Buffer {
	if size < 0 {
		panic("zc: negative buffer size")
	}
	if size >= MaxPooled {
		return &Buffer{b: make([]byte, size), class: -1}
	}
	idx := class(size)
	slot := pools[idx].Get().(*[]byte)
	b := (*slot)[:size]
	clear(b)
	return &Buffer{b: b, slot: slot, class: int8(idx)}
}

// Copy returns a pooled buffer holding a copy of src.
func Copy(src []byte) *Buffer {
	buf := New(len(src))
	copy(buf.b, src)
	return buf
}

// Wrap adopts an externally owned slice. Releasing the handle only marks
// it released; the bytes are never pooled.
func Wrap(b []byte) *Buffer {
	return &Buffer{b: b, class: -1}
}

// Bytes returns the live region, or nil after release.
func (b *Buffer) Bytes() []byte {
	if b.released.Load() {
		return nil
	}
	return b.b
}

func (b *Buffer) Len() int { return len(b.b) }

func (b *Buffer) Released() bool { return b.released.Load() }

// Pooled reports whether the bytes will return to a pool on release.
func (b *Buffer) Pooled() bool { return b.class >= 0 }

// Check returns ErrReleased once the handle has been released.
func (b *Buffer) Check() error {
	if b.released.Load() {
		return ErrReleased
	}
	return nil
}

// Release gives the bytes back. It reports false when the handle was
// already released. Holders must not keep slices obtained from Bytes.
func (b *Buffer) Release() bool {
	if !b.released.CompareAndSwap(false, true) {
		return false
	}
	if b.class >= 0 {
		*b.slot = (*b.slot)[:cap(*b.slot)]
		pools[b.class].Put(b.slot)
		b.slot = nil
	}
	b.b = nil
	return true
}
