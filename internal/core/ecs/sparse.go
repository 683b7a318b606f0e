package ecs

const noDense = ^uint32(0)

// SparseMap maps entities to values with O(1) membership tests and dense
// iteration. The sparse side is indexed by entity index; the full id is kept
// on the dense side so stale ids miss.
//
// Pointers returned by Get are valid until the next Insert or Erase.
type SparseMap[T any] struct {
	sparse []uint32
	ids    []EntityID
	values []T
}

func NewSparseMap[T any](capacity int) *SparseMap[T] {
	return &SparseMap[T]{
		ids:    make([]EntityID, 0, capacity),
		values: make([]T, 0, capacity),
	}
}

func (m *SparseMap[T]) dense(id EntityID) (uint32, bool) {
	idx := id.Index()
	if int(idx) >= len(m.sparse) {
		return 0, false
	}
	d := m.sparse[idx]
	if d == noDense || m.ids[d] != id {
		return 0, false
	}
	return d, true
}

// Insert sets the value for id, replacing any value stored for an older
// version of the same index.
func (m *SparseMap[T]) Insert(id EntityID, v T) {
	idx := id.Index()
	for int(idx) >= len(m.sparse) {
		m.sparse = append(m.sparse, noDense)
	}
	if d := m.sparse[idx]; d != noDense {
		m.ids[d] = id
		m.values[d] = v
		return
	}
	m.sparse[idx] = uint32(len(m.ids))
	m.ids = append(m.ids, id)
	m.values = append(m.values, v)
}

func (m *SparseMap[T]) Get(id EntityID) (*T, bool) {
	d, ok := m.dense(id)
	if !ok {
		return nil, false
	}
	return &m.values[d], true
}

func (m *SparseMap[T]) Contains(id EntityID) bool {
	_, ok := m.dense(id)
	return ok
}

// Erase removes id by swapping the last dense element into its place.
func (m *SparseMap[T]) Erase(id EntityID) bool {
	d, ok := m.dense(id)
	if !ok {
		return false
	}
	last := uint32(len(m.ids) - 1)
	if d != last {
		m.ids[d] = m.ids[last]
		m.values[d] = m.values[last]
		m.sparse[m.ids[d].Index()] = d
	}
	var zero T
	m.values[last] = zero
	m.ids = m.ids[:last]
	m.values = m.values[:last]
	m.sparse[id.Index()] = noDense
	return true
}

func (m *SparseMap[T]) Len() int { return len(m.ids) }

// IDs returns the dense id slice. Callers must not modify it.
func (m *SparseMap[T]) IDs() []EntityID { return m.ids }

// Each iterates in dense order. fn must not insert or erase.
func (m *SparseMap[T]) Each(fn func(EntityID, *T)) {
	for i := range m.ids {
		fn(m.ids[i], &m.values[i])
	}
}

// Clear empties the map, keeping allocated storage.
func (m *SparseMap[T]) Clear() {
	for _, id := range m.ids {
		m.sparse[id.Index()] = noDense
	}
	clear(m.values)
	m.ids = m.ids[:0]
	m.values = m.values[:0]
}
