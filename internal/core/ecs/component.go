package ecs

// Removable is implemented by all component sets so the Registry can
// bulk-remove an entity's data from every set on destroy, and clear change
// lists at the end of a tick.
type Removable interface {
	Remove(id EntityID) bool
	ClearChanged()
}

// ComponentSet is a sparse per-type component store. Mutations made through
// Add, Mutate, or MarkChanged are recorded until ClearChanged, which the
// World calls once per tick.
type ComponentSet[T any] struct {
	data      *SparseMap[T]
	changed   *SparseMap[struct{}]
	onRemoved []func(EntityID, *T) // nil entries are cancelled hooks
}

func NewComponentSet[T any]() *ComponentSet[T] {
	return &ComponentSet[T]{
		data:    NewSparseMap[T](256),
		changed: NewSparseMap[struct{}](64),
	}
}

// Add sets the component for id and marks it changed.
func (s *ComponentSet[T]) Add(id EntityID, c T) {
	s.data.Insert(id, c)
	s.changed.Insert(id, struct{}{})
}

// Get returns the component without marking it changed.
func (s *ComponentSet[T]) Get(id EntityID) (*T, bool) {
	return s.data.Get(id)
}

// Mutate returns the component and marks it changed for this tick.
func (s *ComponentSet[T]) Mutate(id EntityID) (*T, bool) {
	c, ok := s.data.Get(id)
	if ok {
		s.changed.Insert(id, struct{}{})
	}
	return c, ok
}

func (s *ComponentSet[T]) MarkChanged(id EntityID) {
	if s.data.Contains(id) {
		s.changed.Insert(id, struct{}{})
	}
}

// Remove fires the removal hooks and then erases the component.
func (s *ComponentSet[T]) Remove(id EntityID) bool {
	c, ok := s.data.Get(id)
	if !ok {
		return false
	}
	for _, fn := range s.onRemoved {
		if fn != nil {
			fn(id, c)
		}
	}
	s.changed.Erase(id)
	return s.data.Erase(id)
}

func (s *ComponentSet[T]) Has(id EntityID) bool {
	return s.data.Contains(id)
}

func (s *ComponentSet[T]) Len() int {
	return s.data.Len()
}

func (s *ComponentSet[T]) Each(fn func(EntityID, *T)) {
	s.data.Each(fn)
}

// ChangedLen returns how many components were mutated since the last
// ClearChanged.
func (s *ComponentSet[T]) ChangedLen() int {
	return s.changed.Len()
}

// EachChanged iterates components mutated since the last ClearChanged.
// fn may call Mutate or MarkChanged; entities marked during the walk are
// visited too.
func (s *ComponentSet[T]) EachChanged(fn func(EntityID, *T)) {
	for i := 0; i < s.changed.Len(); i++ {
		id := s.changed.IDs()[i]
		if c, ok := s.data.Get(id); ok {
			fn(id, c)
		}
	}
}

func (s *ComponentSet[T]) ClearChanged() {
	s.changed.Clear()
}

// OnRemoved registers a hook called synchronously before a component is
// erased. Hooks run in registration order. The returned func unregisters it.
func (s *ComponentSet[T]) OnRemoved(fn func(EntityID, *T)) (cancel func()) {
	i := len(s.onRemoved)
	s.onRemoved = append(s.onRemoved, fn)
	return func() { s.onRemoved[i] = nil }
}
