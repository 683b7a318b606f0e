package system

import (
	coresys "github.com/l1jgo/scenecore/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue and closes the
// tick, clearing every component change list. Runs last.
type CleanupSystem struct {
	after []string
}

// NewCleanupSystem returns the system. after names every system that reads
// change lists and so must run first.
func NewCleanupSystem(after ...string) *CleanupSystem {
	return &CleanupSystem{after: after}
}

func (s *CleanupSystem) Name() string    { return "cleanup" }
func (s *CleanupSystem) After() []string { return s.after }

func (s *CleanupSystem) Setup(_ *coresys.Context) {}

func (s *CleanupSystem) Tick(ctx *coresys.Context) {
	ctx.World.FlushDestroyQueue()
	ctx.World.EndTick()
}

// Destroy drops whatever is still queued so removal hooks run before the
// systems that own ids are torn down.
func (s *CleanupSystem) Destroy(ctx *coresys.Context) {
	ctx.World.FlushDestroyQueue()
}
