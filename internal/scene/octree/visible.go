package octree

import (
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/geom"
)

// Stats are the traversal counters of one FindVisible call.
type Stats struct {
	NodesTested    int // nodes whose loose bounds were tested against the frustum
	NodesVisited   int // nodes whose rows were emitted or tested
	EntitiesTested int // rows tested individually
	Visible        int // ids returned
}

func (s *Stats) Add(o Stats) {
	s.NodesTested += o.NodesTested
	s.NodesVisited += o.NodesVisited
	s.EntitiesTested += o.EntitiesTested
	s.Visible += o.Visible
}

// FindVisible returns every entity whose box may intersect the frustum
// within farDist of the camera. It never omits a truly visible entity but
// may include some just outside it: a node fully inside the frustum is
// accepted without testing its rows. stats may be nil.
func (t *Octree) FindVisible(f geom.Frustum, farDist float32, stats *Stats) []ecs.EntityID {
	return t.AppendVisible(nil, f, farDist, stats)
}

// AppendVisible is FindVisible appending to dst.
func (t *Octree) AppendVisible(dst []ecs.EntityID, f geom.Frustum, farDist float32, stats *Stats) []ecs.EntityID {
	var local Stats
	if stats == nil {
		stats = &local
	}
	start := len(dst)
	dst = t.visit(dst, 0, f, farDist, stats)
	stats.Visible += len(dst) - start
	return dst
}

func (t *Octree) visit(dst []ecs.EntityID, node uint32, f geom.Frustum, farDist float32, stats *Stats) []ecs.EntityID {
	n := &t.nodes[node]
	stats.NodesTested++

	switch f.Intersection(t.Loose(n), farDist) {
	case geom.Outside:
		return dst

	case geom.Inside:
		return t.pushAll(dst, node, stats)

	default:
		stats.NodesVisited++
		for _, idx := range n.rows {
			r := &t.records[idx]
			stats.EntitiesTested++
			if f.Intersection(r.aabb, farDist) != geom.Outside {
				dst = append(dst, r.id)
			}
		}
		if n.Children != NoNode {
			for i := uint32(0); i < 8; i++ {
				dst = t.visit(dst, n.Children+i, f, farDist, stats)
			}
		}
		return dst
	}
}

func (t *Octree) pushAll(dst []ecs.EntityID, node uint32, stats *Stats) []ecs.EntityID {
	n := &t.nodes[node]
	stats.NodesVisited++
	for _, idx := range n.rows {
		dst = append(dst, t.records[idx].id)
	}
	if n.Children != NoNode {
		for i := uint32(0); i < 8; i++ {
			dst = t.pushAll(dst, n.Children+i, stats)
		}
	}
	return dst
}
