// Package slotmap implements an array-backed store keyed by generational ids.
//
// Every slot stores its own id. A slot is free when that id carries the
// InvalidIndex sentinel; free slots hold the index of the next free slot,
// forming a singly linked free list threaded through the storage itself.
// The backing slice always ends with one free sentinel slot so that
// iteration can never run past the end.
//
// SlotMap is not safe for concurrent use.
package slotmap

import "fmt"

// InvalidIndex marks a free slot (and a nil free-list link).
const InvalidIndex = ^uint32(0)

// Id packs a 32-bit slot index in the lower bits and a 32-bit version in the
// upper bits. The version increments every time the slot is reused.
type Id uint64

func NewId(index, version uint32) Id {
	return Id(uint64(version)<<32 | uint64(index))
}

func (id Id) Index() uint32   { return uint32(id) }
func (id Id) Version() uint32 { return uint32(id >> 32) }

// IsZero reports whether id is the zero value. Versions start at 1, so the
// zero id is never issued.
func (id Id) IsZero() bool { return id == 0 }

func (id Id) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Version())
}

type slot[T any] struct {
	id    Id
	next  uint32
	value T
}

func (s *slot[T]) free() bool {
	return s.id.Index() == InvalidIndex
}

// SlotMap stores values of type T behind generational ids.
type SlotMap[T any] struct {
	slots []slot[T]
	next  uint32
	count int
}

func New[T any]() *SlotMap[T] {
	m := &SlotMap[T]{}
	m.init()
	return m
}

func (m *SlotMap[T]) init() {
	if len(m.slots) == 0 {
		m.slots = append(m.slots, sentinel[T]())
		m.next = InvalidIndex
	}
}

func sentinel[T any]() slot[T] {
	return slot[T]{id: NewId(InvalidIndex, 0), next: InvalidIndex}
}

// Add stores v and returns its id. Freed slots are reused before storage grows.
func (m *SlotMap[T]) Add(v T) Id {
	m.init()

	index := m.next
	if index == InvalidIndex {
		// the trailing sentinel becomes the new slot
		index = uint32(len(m.slots) - 1)
		m.slots = append(m.slots, sentinel[T]())
	}

	s := &m.slots[index]
	m.next = s.next
	s.create(index, v)
	m.count++
	return s.id
}

// AddWithID stores v under a specific id, growing storage as required. It
// fails if the slot is already occupied. The version carried by id is kept so
// that ids captured before a rebuild stay valid.
func (m *SlotMap[T]) AddWithID(id Id, v T) error {
	m.init()

	index := id.Index()
	if index == InvalidIndex || id.Version() == 0 {
		return fmt.Errorf("slotmap: invalid id %s", id)
	}
	if int(index) < len(m.slots)-1 && !m.slots[index].free() {
		return fmt.Errorf("slotmap: slot %d already occupied", index)
	}

	for int(index) >= len(m.slots)-1 {
		last := uint32(len(m.slots) - 1)
		m.slots[last].next = m.next
		m.next = last
		m.slots = append(m.slots, sentinel[T]())
	}

	link := &m.next
	for i := m.next; i != InvalidIndex; i = m.slots[i].next {
		if i == index {
			s := &m.slots[index]
			*link = s.next
			s.id = id
			s.next = InvalidIndex
			s.value = v
			m.count++
			return nil
		}
		link = &m.slots[i].next
	}
	return fmt.Errorf("slotmap: slot %d missing from free list", index)
}

func (s *slot[T]) create(index uint32, v T) {
	version := s.id.Version() + 1
	if version == 0 {
		version = 1
	}
	s.id = NewId(index, version)
	s.next = InvalidIndex
	s.value = v
}

// Remove destroys the value stored under id. Stale or out-of-range ids are
// ignored.
func (m *SlotMap[T]) Remove(id Id) bool {
	s := m.lookup(id)
	if s == nil {
		return false
	}
	index := id.Index()
	var zero T
	s.value = zero
	s.id = NewId(InvalidIndex, id.Version())
	s.next = m.next
	m.next = index
	m.count--
	return true
}

// Get returns the value stored under id, or false if id is stale or out of
// range. The pointer is valid until the next Add.
func (m *SlotMap[T]) Get(id Id) (*T, bool) {
	s := m.lookup(id)
	if s == nil {
		return nil, false
	}
	return &s.value, true
}

func (m *SlotMap[T]) Contains(id Id) bool {
	return m.lookup(id) != nil
}

func (m *SlotMap[T]) lookup(id Id) *slot[T] {
	index := id.Index()
	if len(m.slots) == 0 || int64(index) >= int64(len(m.slots)-1) {
		return nil
	}
	s := &m.slots[index]
	if s.id != id {
		return nil
	}
	return s
}

// IDAt returns the live id occupying a slot index, if any.
func (m *SlotMap[T]) IDAt(index uint32) (Id, bool) {
	if len(m.slots) == 0 || int64(index) >= int64(len(m.slots)-1) {
		return 0, false
	}
	s := &m.slots[index]
	if s.free() {
		return 0, false
	}
	return s.id, true
}

// Len returns the number of live values.
func (m *SlotMap[T]) Len() int { return m.count }

// Cap returns the number of slots, free or occupied, excluding the sentinel.
func (m *SlotMap[T]) Cap() int {
	if len(m.slots) == 0 {
		return 0
	}
	return len(m.slots) - 1
}

// Each calls fn for every live value in slot order. fn must not add or
// remove values.
func (m *SlotMap[T]) Each(fn func(Id, *T)) {
	if len(m.slots) == 0 {
		return
	}
	last := len(m.slots) - 1
	for i := 0; ; i++ {
		for m.slots[i].free() {
			if i == last {
				return
			}
			i++
		}
		s := &m.slots[i]
		fn(s.id, &s.value)
	}
}
