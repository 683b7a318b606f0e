package event

import (
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/scene/octree"
)

// FrameStats is emitted once per camera per tick by the visibility system.
type FrameStats struct {
	Tick     uint64
	Camera   ecs.EntityID
	Name     string
	Traverse octree.Stats
	Moved    int
	Stopped  int
	Uploaded int
	Nodes    int
}

// OctreeGrown is emitted when the root had to grow to fit an entity.
type OctreeGrown struct {
	Tick   uint64
	Extent float32
	Nodes  int
}

// TransformsReleased is emitted when a system returns its rows on destroy.
type TransformsReleased struct {
	Count     int
	HighWater int
}
