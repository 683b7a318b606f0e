package octree

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/geom"
	"github.com/l1jgo/scenecore/internal/scene/transform"
)

// NodeInfo is a read-only view of one node for debug drawing.
type NodeInfo struct {
	Index    uint32
	Depth    int
	Bounds   geom.AABB // strict bounds
	Loose    geom.AABB
	Rows     int
	Children uint32
}

// Nodes walks the tree depth first, calling fn for every node reachable from
// the root.
func (t *Octree) Nodes(fn func(NodeInfo)) {
	t.walk(0, 0, fn)
}

func (t *Octree) walk(node uint32, depth int, fn func(NodeInfo)) {
	n := &t.nodes[node]
	e := n.Extent
	fn(NodeInfo{
		Index:    node,
		Depth:    depth,
		Bounds:   geom.FromCenterExtent(n.Center, mgl32.Vec3{e, e, e}),
		Loose:    t.Loose(n),
		Rows:     len(n.rows),
		Children: n.Children,
	})
	if n.Children != NoNode {
		for i := uint32(0); i < 8; i++ {
			t.walk(n.Children+i, depth+1, fn)
		}
	}
}

// Audit checks the structural invariants: every child sits inside its
// parent's loose bounds, every row's box fits its node's loose bounds, rows
// and records point at each other, and every node is reachable exactly once.
func (t *Octree) Audit() error {
	seen := make([]bool, len(t.nodes))
	placed := 0
	var err error
	var check func(node uint32)
	check = func(node uint32) {
		if err != nil {
			return
		}
		if int(node) >= len(t.nodes) {
			err = fmt.Errorf("octree: node index %d out of range", node)
			return
		}
		if seen[node] {
			err = fmt.Errorf("octree: node %d reachable twice", node)
			return
		}
		seen[node] = true

		n := &t.nodes[node]
		loose := t.Loose(n)
		for _, idx := range n.rows {
			if int(idx) >= len(t.records) {
				err = fmt.Errorf("octree: node %d holds unknown row %d", node, idx)
				return
			}
			r := &t.records[idx]
			if r.parent != node {
				err = fmt.Errorf("octree: row %d in node %d points at node %d", idx, node, r.parent)
				return
			}
			if !loose.Contains(r.aabb) {
				err = fmt.Errorf("octree: row %d box %s escapes node %d bounds %s", idx, r.aabb, node, loose)
				return
			}
			placed++
		}
		if n.Children == NoNode {
			return
		}
		for i := uint32(0); i < 8; i++ {
			c := n.Children + i
			if int(c) < len(t.nodes) && !loose.Contains(t.looseAt(c)) {
				err = fmt.Errorf("octree: child %d escapes parent %d", c, node)
				return
			}
			check(c)
		}
	}
	check(0)
	if err != nil {
		return err
	}

	for i := range seen {
		if !seen[i] {
			return fmt.Errorf("octree: node %d unreachable", i)
		}
	}
	for idx := range t.records {
		r := &t.records[idx]
		if r.parent != NoNode && !seen[r.parent] {
			return fmt.Errorf("octree: row %d points at unreachable node %d", idx, r.parent)
		}
	}
	linked := 0
	for idx := range t.records {
		if t.records[idx].parent != NoNode {
			linked++
		}
	}
	if linked != placed {
		return fmt.Errorf("octree: %d rows linked but %d placed", linked, placed)
	}
	return nil
}

// MustAudit panics if Audit fails.
func (t *Octree) MustAudit() {
	if err := t.Audit(); err != nil {
		panic(err)
	}
}

// RowInfo describes a placed row.
type RowInfo struct {
	ID   ecs.EntityID
	Box  geom.AABB
	Node uint32
}

// Row reports the owner and cached box of a placed row.
func (t *Octree) Row(idx transform.Index) (RowInfo, bool) {
	if int(idx) >= len(t.records) || t.records[idx].parent == NoNode {
		return RowInfo{}, false
	}
	r := t.records[idx]
	return RowInfo{ID: r.id, Box: r.aabb, Node: r.parent}, true
}
