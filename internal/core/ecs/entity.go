package ecs

import (
	"fmt"

	"github.com/l1jgo/scenecore/internal/core/slotmap"
)

// EntityID encodes a 32-bit index in the lower bits and a 32-bit version
// in the upper bits. The version increments each time the index is reused,
// invalidating ids captured before the reuse.
type EntityID uint64

func NewEntityID(index uint32, version uint32) EntityID {
	return EntityID(slotmap.NewId(index, version))
}

func (id EntityID) Index() uint32   { return slotmap.Id(id).Index() }
func (id EntityID) Version() uint32 { return slotmap.Id(id).Version() }
func (id EntityID) IsZero() bool    { return id == 0 }
func (id EntityID) String() string  { return slotmap.Id(id).String() }

// links are the hierarchy pointers of one entity, all by id.
type links struct {
	parent      EntityID
	firstChild  EntityID
	prevSibling EntityID
	nextSibling EntityID
}

// EntityPool allocates generational entity ids on top of a SlotMap and keeps
// the parent/child hierarchy alongside them.
type EntityPool struct {
	slots *slotmap.SlotMap[links]
}

func NewEntityPool() *EntityPool {
	return &EntityPool{slots: slotmap.New[links]()}
}

func (p *EntityPool) Create() EntityID {
	return EntityID(p.slots.Add(links{}))
}

func (p *EntityPool) Alive(id EntityID) bool {
	return p.slots.Contains(slotmap.Id(id))
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.slots.Len() }

// IDFromIndex returns the live id at the given index, or the zero id.
func (p *EntityPool) IDFromIndex(index uint32) EntityID {
	id, ok := p.slots.IDAt(index)
	if !ok {
		return 0
	}
	return EntityID(id)
}

// Destroy recycles the entity's index. Children are detached and become
// roots. Stale ids are ignored.
func (p *EntityPool) Destroy(id EntityID) {
	l := p.get(id)
	if l == nil {
		return
	}
	p.detach(id)
	for c := l.firstChild; !c.IsZero(); {
		cl := p.get(c)
		next := cl.nextSibling
		cl.parent, cl.prevSibling, cl.nextSibling = 0, 0, 0
		c = next
	}
	p.slots.Remove(slotmap.Id(id))
}

func (p *EntityPool) get(id EntityID) *links {
	l, _ := p.slots.Get(slotmap.Id(id))
	return l
}

// Parent returns the parent of id, or the zero id for roots and stale ids.
func (p *EntityPool) Parent(id EntityID) EntityID {
	if l := p.get(id); l != nil {
		return l.parent
	}
	return 0
}

// Children calls fn for each direct child of id.
func (p *EntityPool) Children(id EntityID, fn func(EntityID)) {
	l := p.get(id)
	if l == nil {
		return
	}
	for c := l.firstChild; !c.IsZero(); {
		next := p.get(c).nextSibling
		fn(c)
		c = next
	}
}

// SetParent moves id under parent. A zero parent makes id a root. It
// returns false if either id is stale. Creating a cycle panics.
func (p *EntityPool) SetParent(id, parent EntityID) bool {
	if p.get(id) == nil {
		return false
	}
	if !parent.IsZero() {
		if p.get(parent) == nil {
			return false
		}
		for a := parent; !a.IsZero(); a = p.Parent(a) {
			if a == id {
				panic(fmt.Sprintf("ecs: parenting %s under %s creates a cycle", id, parent))
			}
		}
	}

	p.detach(id)
	if parent.IsZero() {
		return true
	}

	l := p.get(id)
	pl := p.get(parent)
	l.parent = parent
	l.nextSibling = pl.firstChild
	if !pl.firstChild.IsZero() {
		p.get(pl.firstChild).prevSibling = id
	}
	pl.firstChild = id
	return true
}

func (p *EntityPool) detach(id EntityID) {
	l := p.get(id)
	if l.parent.IsZero() {
		return
	}
	if l.prevSibling.IsZero() {
		if pl := p.get(l.parent); pl != nil {
			pl.firstChild = l.nextSibling
		}
	} else {
		p.get(l.prevSibling).nextSibling = l.nextSibling
	}
	if !l.nextSibling.IsZero() {
		p.get(l.nextSibling).prevSibling = l.prevSibling
	}
	l.parent, l.prevSibling, l.nextSibling = 0, 0, 0
}

// Audit checks the hierarchy for cycles and broken parent/child links.
func (p *EntityPool) Audit() error {
	var err error
	p.slots.Each(func(sid slotmap.Id, l *links) {
		if err != nil {
			return
		}
		id := EntityID(sid)
		steps := 0
		for a := l.parent; !a.IsZero(); a = p.Parent(a) {
			if a == id || steps > p.Len() {
				err = fmt.Errorf("ecs: entity %s is its own ancestor", id)
				return
			}
			if !p.Alive(a) {
				err = fmt.Errorf("ecs: entity %s has dead ancestor %s", id, a)
				return
			}
			steps++
		}
		prev := EntityID(0)
		for c := l.firstChild; !c.IsZero(); c = p.get(c).nextSibling {
			cl := p.get(c)
			if cl == nil {
				err = fmt.Errorf("ecs: entity %s lists dead child %s", id, c)
				return
			}
			if cl.parent != id {
				err = fmt.Errorf("ecs: child %s of %s points at parent %s", c, id, cl.parent)
				return
			}
			if cl.prevSibling != prev {
				err = fmt.Errorf("ecs: child %s of %s has broken sibling links", c, id)
				return
			}
			prev = c
		}
	})
	return err
}
