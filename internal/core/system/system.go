package system

import (
	"time"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	"go.uber.org/zap"
)

// Context is handed to every system call in place of a global world.
type Context struct {
	World *ecs.World
	Bus   *event.Bus
	Log   *zap.Logger
	DT    time.Duration
	Tick  uint64
}

// System is the interface every scene system implements.
//
// Setup processes the whole current world once, covering state created
// before the system existed. Tick processes only what changed since the
// previous tick. Destroy releases every id and index the system allocated
// back to shared pools.
type System interface {
	Name() string
	Setup(ctx *Context)
	Tick(ctx *Context)
	Destroy(ctx *Context)
}

// Dependent is implemented by systems that must run after others.
type Dependent interface {
	After() []string
}
