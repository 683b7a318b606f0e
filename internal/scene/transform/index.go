// Package transform allocates render-buffer rows for moving entities and
// keeps the dense transform buffer a renderer uploads from.
package transform

import "fmt"

// Index is a row in the transform buffer.
type Index uint32

// NoIndex marks an entity that has not been given a row yet.
const NoIndex = ^Index(0)

// IndexAllocator hands out small, stable, recyclable integers. Freed rows
// are reused before the high-water mark advances.
type IndexAllocator struct {
	free     []Index
	high     Index
	capacity int
}

// NewIndexAllocator creates an allocator holding at most capacity rows.
// A capacity of zero means unbounded.
func NewIndexAllocator(capacity int) *IndexAllocator {
	return &IndexAllocator{
		free:     make([]Index, 0, 256),
		capacity: capacity,
	}
}

// Alloc returns a free row. Running past capacity panics.
func (a *IndexAllocator) Alloc() Index {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		return idx
	}
	if a.capacity > 0 && int(a.high) >= a.capacity {
		panic(fmt.Sprintf("transform: max transforms reached (%d)", a.capacity))
	}
	idx := a.high
	a.high++
	return idx
}

// Free returns a row to the allocator.
func (a *IndexAllocator) Free(idx Index) {
	if idx == NoIndex || idx >= a.high {
		panic(fmt.Sprintf("transform: freeing unallocated row %d", idx))
	}
	a.free = append(a.free, idx)
}

// HighWater is the number of rows ever handed out.
func (a *IndexAllocator) HighWater() int { return int(a.high) }

func (a *IndexAllocator) FreeCount() int { return len(a.free) }

// Live is the number of rows currently allocated.
func (a *IndexAllocator) Live() int { return int(a.high) - len(a.free) }

func (a *IndexAllocator) Capacity() int { return a.capacity }

// CheckLeaks panics unless every row handed out has been freed.
func (a *IndexAllocator) CheckLeaks() {
	if len(a.free) != int(a.high) {
		panic(fmt.Sprintf("transform: %d rows leaked (%d free of %d)", int(a.high)-len(a.free), len(a.free), a.high))
	}
}
