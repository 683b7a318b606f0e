package transform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type row struct {
	matrix mgl32.Mat4
	valid  bool
	dirty  bool
	reset  bool
	queued bool
}

// Buffer is the dense, render-visible array of world transforms indexed by
// transform Index. Rows written during a tick are uploaded at the next Flush
// and flagged once more on the following Flush with reset set, so the
// consumer can clear per-row motion history once the row stops changing.
type Buffer struct {
	rows    []row
	matrix  []mgl32.Mat4
	pending []Index
}

func NewBuffer() *Buffer {
	return &Buffer{pending: make([]Index, 0, 256)}
}

// Acquire marks a row live and queues it for upload.
func (b *Buffer) Acquire(idx Index) {
	b.grow(idx)
	r := &b.rows[idx]
	if r.valid {
		panic(fmt.Sprintf("transform: row %d acquired twice", idx))
	}
	*r = row{matrix: mgl32.Ident4(), valid: true, queued: r.queued}
	b.matrix[idx] = r.matrix
	b.markDirty(idx)
}

// Release marks a row dead. A pending upload for it is dropped at Flush.
func (b *Buffer) Release(idx Index) {
	if int(idx) >= len(b.rows) || !b.rows[idx].valid {
		panic(fmt.Sprintf("transform: releasing dead row %d", idx))
	}
	b.rows[idx] = row{queued: b.rows[idx].queued}
}

// Set writes the world matrix for a live row.
func (b *Buffer) Set(idx Index, m mgl32.Mat4) {
	if int(idx) >= len(b.rows) || !b.rows[idx].valid {
		panic(fmt.Sprintf("transform: writing dead row %d", idx))
	}
	b.rows[idx].matrix = m
	b.matrix[idx] = m
	b.markDirty(idx)
}

func (b *Buffer) markDirty(idx Index) {
	r := &b.rows[idx]
	r.dirty = true
	r.reset = false
	if !r.queued {
		r.queued = true
		b.pending = append(b.pending, idx)
	}
}

func (b *Buffer) grow(idx Index) {
	for int(idx) >= len(b.rows) {
		b.rows = append(b.rows, row{})
		b.matrix = append(b.matrix, mgl32.Ident4())
	}
}

// Matrices is the dense array a renderer reads after the frame boundary.
// Rows that were never written hold the identity.
func (b *Buffer) Matrices() []mgl32.Mat4 { return b.matrix }

// Get returns the matrix for a live row.
func (b *Buffer) Get(idx Index) (mgl32.Mat4, bool) {
	if int(idx) >= len(b.rows) || !b.rows[idx].valid {
		return mgl32.Mat4{}, false
	}
	return b.rows[idx].matrix, true
}

// Pending returns how many rows the next Flush will report.
func (b *Buffer) Pending() int { return len(b.pending) }

// Flush reports each pending row once. Rows written since the last Flush
// report reset=false; rows written in the flush before that and untouched
// since report reset=true. It returns the number of rows reported.
func (b *Buffer) Flush(fn func(idx Index, m mgl32.Mat4, reset bool)) int {
	next := b.pending[:0:0]
	n := 0
	for _, idx := range b.pending {
		r := &b.rows[idx]
		r.queued = false
		if !r.valid {
			continue
		}
		switch {
		case r.dirty:
			if fn != nil {
				fn(idx, r.matrix, false)
			}
			r.dirty = false
			r.reset = true
			r.queued = true
			next = append(next, idx)
		case r.reset:
			if fn != nil {
				fn(idx, r.matrix, true)
			}
			r.reset = false
		default:
			continue
		}
		n++
	}
	b.pending = next
	return n
}
