package slotmap

import (
	"math/rand"
	"testing"
)

func TestSlotMapAddGetRemove(t *testing.T) {
	m := New[string]()

	a := m.Add("a")
	b := m.Add("b")
	if a == b {
		t.Fatalf("ids collide: %s", a)
	}
	if v, ok := m.Get(a); !ok || *v != "a" {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	if !m.Remove(a) {
		t.Fatalf("Remove(a) should succeed")
	}
	if _, ok := m.Get(a); ok {
		t.Fatalf("removed id still resolves")
	}
	if m.Remove(a) {
		t.Fatalf("double Remove should be a no-op")
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}

	c := m.Add("c")
	if c.Index() != a.Index() {
		t.Fatalf("freed slot %d not reused, got %d", a.Index(), c.Index())
	}
	if c.Version() <= a.Version() {
		t.Fatalf("reused slot version %d not greater than %d", c.Version(), a.Version())
	}
	if _, ok := m.Get(a); ok {
		t.Fatalf("stale id resolves after slot reuse")
	}
}

func TestSlotMapOutOfRange(t *testing.T) {
	m := New[int]()
	m.Add(1)

	cases := []struct {
		name string
		id   Id
	}{
		{"zero_version", NewId(0, 0)},
		{"past_end", NewId(10, 1)},
		{"sentinel_slot", NewId(1, 0)},
		{"invalid_index", NewId(InvalidIndex, 1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, ok := m.Get(c.id); ok {
				t.Fatalf("Get(%s) should miss", c.id)
			}
			if m.Remove(c.id) {
				t.Fatalf("Remove(%s) should be a no-op", c.id)
			}
		})
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
}

func TestSlotMapZeroValueUsable(t *testing.T) {
	var m SlotMap[int]
	if _, ok := m.Get(NewId(0, 1)); ok {
		t.Fatalf("empty map should miss")
	}
	m.Each(func(Id, *int) { t.Fatalf("empty map should not iterate") })
	id := m.Add(7)
	if v, ok := m.Get(id); !ok || *v != 7 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
}

func TestSlotMapReuseBeforeGrowth(t *testing.T) {
	m := New[int]()
	ids := make([]Id, 1000)
	for i := range ids {
		ids[i] = m.Add(i)
	}
	for i := 0; i < len(ids); i += 2 {
		m.Remove(ids[i])
	}
	capBefore := m.Cap()

	live := make(map[Id]struct{}, 1000)
	for i := 1; i < len(ids); i += 2 {
		live[ids[i]] = struct{}{}
	}
	for i := 0; i < 500; i++ {
		id := m.Add(i)
		if _, dup := live[id]; dup {
			t.Fatalf("id %s issued twice", id)
		}
		live[id] = struct{}{}
	}
	if m.Cap() != capBefore {
		t.Fatalf("storage grew from %d to %d while free slots remained", capBefore, m.Cap())
	}
	if m.Len() != 1000 {
		t.Fatalf("Len = %d, want 1000", m.Len())
	}
	seen := make(map[uint32]struct{}, 1000)
	for id := range live {
		if _, dup := seen[id.Index()]; dup {
			t.Fatalf("two live ids share slot %d", id.Index())
		}
		seen[id.Index()] = struct{}{}
	}
}

func TestSlotMapRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := New[int]()
	live := map[Id]int{}
	removed := []Id{}
	lastVersion := map[uint32]uint32{}

	for step := 0; step < 5000; step++ {
		if len(live) == 0 || rng.Intn(3) != 0 {
			id := m.Add(step)
			if v, ok := lastVersion[id.Index()]; ok && id.Version() <= v {
				t.Fatalf("slot %d version went from %d to %d", id.Index(), v, id.Version())
			}
			lastVersion[id.Index()] = id.Version()
			live[id] = step
			continue
		}
		for id := range live {
			m.Remove(id)
			delete(live, id)
			removed = append(removed, id)
			break
		}
	}

	for _, id := range removed {
		if _, ok := m.Get(id); ok {
			t.Fatalf("removed id %s resolves", id)
		}
	}
	for id, want := range live {
		if v, ok := m.Get(id); !ok || *v != want {
			t.Fatalf("Get(%s) = %v, %v; want %d", id, v, ok, want)
		}
	}

	n := 0
	m.Each(func(id Id, v *int) {
		if live[id] != *v {
			t.Fatalf("Each yielded %s=%d, want %d", id, *v, live[id])
		}
		n++
	})
	if n != len(live) || m.Len() != len(live) {
		t.Fatalf("iterated %d, Len %d, want %d", n, m.Len(), len(live))
	}
}

func TestSlotMapAddWithID(t *testing.T) {
	m := New[string]()
	id := NewId(5, 3)
	if err := m.AddWithID(id, "restored"); err != nil {
		t.Fatalf("AddWithID: %v", err)
	}
	if v, ok := m.Get(id); !ok || *v != "restored" {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	if err := m.AddWithID(id, "again"); err == nil {
		t.Fatalf("AddWithID on occupied slot should fail")
	}
	if err := m.AddWithID(NewId(1, 0), "bad"); err == nil {
		t.Fatalf("AddWithID with zero version should fail")
	}

	// slots 0..4 were threaded onto the free list and must be handed out
	// before storage grows again
	capBefore := m.Cap()
	for i := 0; i < 5; i++ {
		got := m.Add("x")
		if got.Index() >= 5 {
			t.Fatalf("Add returned index %d, want a recycled slot below 5", got.Index())
		}
	}
	if m.Cap() != capBefore {
		t.Fatalf("storage grew from %d to %d", capBefore, m.Cap())
	}
	if m.Len() != 6 {
		t.Fatalf("Len = %d, want 6", m.Len())
	}
}
