// Package tracking keeps the per-tick moved and stopped sets.
//
// An entity is in Moved for every tick its transform changes. The first tick
// it does not change it moves to Stopped, which gives consumers one final
// tick to flush per-entity state, and the tick after that it is gone.
package tracking

import (
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/scene/transform"
)

// Tracker owns the Moved and Stopped sets. Not safe for concurrent use.
type Tracker struct {
	moved   *ecs.SparseMap[transform.Index]
	stopped *ecs.SparseMap[transform.Index]
}

func NewTracker() *Tracker {
	return &Tracker{
		moved:   ecs.NewSparseMap[transform.Index](256),
		stopped: ecs.NewSparseMap[transform.Index](256),
	}
}

// Begin starts a tick: last tick's movers become candidates for Stopped and
// Moved is emptied. Entities touched again this tick leave Stopped.
func (t *Tracker) Begin() {
	t.stopped.Clear()
	t.moved, t.stopped = t.stopped, t.moved
}

// Touch records that id changed this tick.
func (t *Tracker) Touch(id ecs.EntityID, idx transform.Index) {
	t.moved.Insert(id, idx)
	t.stopped.Erase(id)
}

// Forget drops id from both sets. Used when the entity or its component is
// destroyed.
func (t *Tracker) Forget(id ecs.EntityID) {
	t.moved.Erase(id)
	t.stopped.Erase(id)
}

// Reset empties both sets.
func (t *Tracker) Reset() {
	t.moved.Clear()
	t.stopped.Clear()
}

func (t *Tracker) Moved() *ecs.SparseMap[transform.Index]   { return t.moved }
func (t *Tracker) Stopped() *ecs.SparseMap[transform.Index] { return t.stopped }
