package system

import (
	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/scripting"
	"go.uber.org/zap"
)

// ScriptMotionSystem advances every Motion and writes the position its Lua
// function returns. Entities whose position does not change are left
// unmarked so they fall out of the moved set.
type ScriptMotionSystem struct {
	store   *component.Store
	engine  *scripting.Engine
	reloads <-chan string

	failed map[string]bool
}

// NewScriptMotionSystem returns the system. reloads may be nil; a value on it
// reloads the engine's scripts before the next tick runs them.
func NewScriptMotionSystem(store *component.Store, engine *scripting.Engine, reloads <-chan string) *ScriptMotionSystem {
	return &ScriptMotionSystem{
		store:   store,
		engine:  engine,
		reloads: reloads,
		failed:  make(map[string]bool),
	}
}

func (s *ScriptMotionSystem) Name() string { return "script_motion" }

func (s *ScriptMotionSystem) Setup(ctx *coresys.Context) {
	s.store.Motions.Each(func(id ecs.EntityID, m *component.Motion) {
		if !s.engine.Has(m.Script) && !s.failed[m.Script] {
			s.failed[m.Script] = true
			ctx.Log.Warn("motion script not defined",
				zap.String("script", m.Script),
				zap.Stringer("entity", id))
		}
	})
}

func (s *ScriptMotionSystem) Tick(ctx *coresys.Context) {
	s.drainReloads(ctx.Log)

	dt := ctx.DT.Seconds()
	ecs.Each2(s.store.Motions, s.store.Transforms, func(id ecs.EntityID, m *component.Motion, t *component.Transformable) {
		m.Elapsed += dt
		pos, err := s.engine.Motion(m.Script, m.Elapsed, m.Origin, m.Phase)
		if err != nil {
			// Log once per script until the next reload.
			if !s.failed[m.Script] {
				s.failed[m.Script] = true
				ctx.Log.Error("motion script failed", zap.String("script", m.Script), zap.Error(err))
			}
			return
		}
		if pos == t.Position {
			return
		}
		if mt, ok := s.store.Transforms.Mutate(id); ok {
			mt.Position = pos
		}
	})
}

func (s *ScriptMotionSystem) Destroy(_ *coresys.Context) {}

func (s *ScriptMotionSystem) drainReloads(log *zap.Logger) {
	if s.reloads == nil {
		return
	}
	changed := ""
drain:
	for {
		select {
		case path, ok := <-s.reloads:
			if !ok {
				s.reloads = nil
				break drain
			}
			changed = path
		default:
			break drain
		}
	}
	if changed == "" {
		return
	}
	if err := s.engine.Reload(); err != nil {
		log.Error("lua reload failed", zap.String("file", changed), zap.Error(err))
		return
	}
	clear(s.failed)
}
