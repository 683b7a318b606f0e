// Package octree is a loose, incrementally splitting octree over the global
// bounding boxes of transform rows.
//
// Nodes live in one arena slice and refer to each other by index; children
// of a split node are 8 contiguous entries. Nodes are created by splitting
// and root growth only and are never merged back, so a long-running world
// with heavy churn can accumulate near-empty subtrees.
//
// Accessed only from the tick goroutine; no locks.
package octree

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/geom"
	"github.com/l1jgo/scenecore/internal/scene/transform"
)

// NoNode marks a leaf's Children and an unplaced record's parent.
const NoNode = ^uint32(0)

// Config controls node looseness and splitting.
type Config struct {
	// MarginFactor inflates each node's half extent to get its loose bounds.
	MarginFactor float32
	// SplitThreshold is the most rows a leaf owns; inserting one more
	// splits it.
	SplitThreshold int
	// MinNodeExtent stops splitting once a node's half extent is this small.
	MinNodeExtent float32
	// InitialExtent is the half extent of the root before any growth.
	InitialExtent float32
}

func DefaultConfig() Config {
	return Config{
		MarginFactor:   1.5,
		SplitThreshold: 16,
		MinNodeExtent:  1,
		InitialExtent:  64,
	}
}

// Node is one cell of the tree.
type Node struct {
	Center   mgl32.Vec3
	Extent   float32
	Children uint32
	rows     []transform.Index
}

// record is the per-row state the tree needs to place and remove an entity.
type record struct {
	parent uint32
	id     ecs.EntityID
	aabb   geom.AABB
}

// Octree indexes entity bounding boxes by transform row.
type Octree struct {
	cfg     Config
	nodes   []Node
	records []record

	grown  int
	splits int
}

func New(cfg Config) *Octree {
	if cfg.MarginFactor < 1 {
		panic(fmt.Sprintf("octree: margin factor %v must be >= 1", cfg.MarginFactor))
	}
	if cfg.SplitThreshold < 1 || cfg.InitialExtent <= 0 {
		panic(fmt.Sprintf("octree: invalid config %+v", cfg))
	}
	t := &Octree{cfg: cfg}
	t.Reset()
	return t
}

// Reset drops every node and record, leaving an empty root.
func (t *Octree) Reset() {
	t.nodes = append(t.nodes[:0], Node{Extent: t.cfg.InitialExtent, Children: NoNode})
	t.records = t.records[:0]
	t.grown, t.splits = 0, 0
}

func (t *Octree) Config() Config { return t.cfg }

// Loose returns the node's test bounds, its extent inflated by the margin.
func (t *Octree) Loose(n *Node) geom.AABB {
	e := n.Extent * t.cfg.MarginFactor
	return geom.FromCenterExtent(n.Center, mgl32.Vec3{e, e, e})
}

func (t *Octree) looseAt(i uint32) geom.AABB {
	return t.Loose(&t.nodes[i])
}

// childIndex picks the octant of pos relative to center: bit 0 is +X,
// bit 1 is +Y, bit 2 is +Z.
func childIndex(center, pos mgl32.Vec3) uint32 {
	var i uint32
	for axis := 0; axis < 3; axis++ {
		if pos[axis] > center[axis] {
			i |= 1 << axis
		}
	}
	return i
}

func octantOffset(i uint32, d float32) mgl32.Vec3 {
	var v mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		if i&(1<<axis) != 0 {
			v[axis] = d
		} else {
			v[axis] = -d
		}
	}
	return v
}

func (t *Octree) record(idx transform.Index) *record {
	for int(idx) >= len(t.records) {
		t.records = append(t.records, record{parent: NoNode})
	}
	return &t.records[idx]
}

// InsertOrUpdate places or moves the row idx owned by id. An entity whose new
// box still fits its current node stays put. Empty or non-finite boxes panic.
func (t *Octree) InsertOrUpdate(id ecs.EntityID, idx transform.Index, box geom.AABB) {
	if box.Empty() || !box.Finite() {
		panic(fmt.Sprintf("octree: degenerate bounding box %s for entity %s", box, id))
	}

	r := t.record(idx)
	if !r.id.IsZero() && r.id != id {
		panic(fmt.Sprintf("octree: row %d owned by %s, updated by %s", idx, r.id, id))
	}
	r.id = id
	r.aabb = box

	if r.parent != NoNode {
		if t.looseAt(r.parent).Contains(box) {
			return
		}
		t.unlink(idx)
	}

	for !t.looseAt(0).Contains(box) {
		t.growRoot(box.Center())
	}
	t.insertFrom(0, idx)
}

// Remove unlinks row idx from its node in O(node size). Unknown rows are
// ignored.
func (t *Octree) Remove(idx transform.Index) {
	if int(idx) >= len(t.records) || t.records[idx].parent == NoNode {
		return
	}
	t.unlink(idx)
	t.records[idx] = record{parent: NoNode}
}

func (t *Octree) unlink(idx transform.Index) {
	r := &t.records[idx]
	n := &t.nodes[r.parent]
	for i, row := range n.rows {
		if row == idx {
			last := len(n.rows) - 1
			n.rows[i] = n.rows[last]
			n.rows = n.rows[:last]
			r.parent = NoNode
			return
		}
	}
	panic(fmt.Sprintf("octree: row %d missing from node %d", idx, r.parent))
}

// insertFrom walks down from node until the box no longer fits the child
// selected by its center. A leaf already holding SplitThreshold rows is
// split before the new row would push it over.
func (t *Octree) insertFrom(node uint32, idx transform.Index) {
	box := t.records[idx].aabb
	for {
		n := &t.nodes[node]
		if n.Children == NoNode && len(n.rows) >= t.cfg.SplitThreshold && n.Extent > t.cfg.MinNodeExtent {
			t.split(node)
			t.pushDown(node)
			n = &t.nodes[node]
		}

		if n.Children != NoNode {
			child := n.Children + childIndex(n.Center, box.Center())
			if t.looseAt(child).Contains(box) {
				node = child
				continue
			}
		}

		n.rows = append(n.rows, idx)
		t.records[idx].parent = node
		return
	}
}

// split gives node 8 children. The arena may reallocate; callers must
// re-fetch node pointers.
func (t *Octree) split(node uint32) {
	if t.nodes[node].Children != NoNode {
		panic(fmt.Sprintf("octree: node %d already split", node))
	}
	first := uint32(len(t.nodes))
	half := t.nodes[node].Extent * 0.5
	center := t.nodes[node].Center
	for i := uint32(0); i < 8; i++ {
		t.nodes = append(t.nodes, Node{
			Center:   center.Add(octantOffset(i, half)),
			Extent:   half,
			Children: NoNode,
		})
	}
	t.nodes[node].Children = first
	t.splits++
}

// pushDown moves every row of a freshly split node into the child it fits.
func (t *Octree) pushDown(node uint32) {
	rows := t.nodes[node].rows
	t.nodes[node].rows = nil
	var keep []transform.Index
	for _, idx := range rows {
		n := &t.nodes[node]
		child := n.Children + childIndex(n.Center, t.records[idx].aabb.Center())
		if t.looseAt(child).Contains(t.records[idx].aabb) {
			t.records[idx].parent = NoNode
			t.insertFrom(child, idx)
		} else {
			keep = append(keep, idx)
		}
	}
	t.nodes[node].rows = append(t.nodes[node].rows, keep...)
}

// growRoot doubles the root toward a point outside it. The old root becomes
// the opposite-octant child of the new root, keeping its rows and subtree.
func (t *Octree) growRoot(toward mgl32.Vec3) {
	old := t.nodes[0]
	i := childIndex(old.Center, toward)

	t.nodes[0] = Node{
		Center:   old.Center.Add(octantOffset(i, old.Extent)),
		Extent:   old.Extent * 2,
		Children: NoNode,
	}
	t.split(0)

	child := t.nodes[0].Children + (7 - i)
	c := &t.nodes[child]
	c.rows = old.rows
	c.Children = old.Children
	for _, idx := range c.rows {
		t.records[idx].parent = child
	}
	t.grown++
}

// Len returns the number of placed rows.
func (t *Octree) Len() int {
	n := 0
	for i := range t.nodes {
		n += len(t.nodes[i].rows)
	}
	return n
}

// Root returns a copy of the root node.
func (t *Octree) Root() Node { return t.nodes[0] }

// NodeCount returns the arena size.
func (t *Octree) NodeCount() int { return len(t.nodes) }

// Grown and Splits count root growths and node splits since Reset.
func (t *Octree) Grown() int  { return t.grown }
func (t *Octree) Splits() int { return t.splits }

// ParentBounds returns the loose bounds of the node holding row idx.
func (t *Octree) ParentBounds(idx transform.Index) (geom.AABB, bool) {
	if int(idx) >= len(t.records) || t.records[idx].parent == NoNode {
		return geom.AABB{}, false
	}
	return t.looseAt(t.records[idx].parent), true
}
