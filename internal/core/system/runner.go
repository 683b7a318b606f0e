package system

import (
	"fmt"
	"time"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	"go.uber.org/zap"
)

// Runner executes systems sequentially in dependency order each tick.
// Ordering comes only from declared dependencies; registration order breaks
// ties so the result is deterministic.
type Runner struct {
	world   *ecs.World
	bus     *event.Bus
	log     *zap.Logger
	systems []System
	order   []System
	ready   bool
}

func NewRunner(world *ecs.World, bus *event.Bus, log *zap.Logger) *Runner {
	return &Runner{
		world:   world,
		bus:     bus,
		log:     log,
		systems: make([]System, 0, 16),
	}
}

// Register adds a system. Registering after Setup panics.
func (r *Runner) Register(s System) {
	if r.ready {
		panic(fmt.Sprintf("system: %s registered after setup", s.Name()))
	}
	for _, o := range r.systems {
		if o.Name() == s.Name() {
			panic(fmt.Sprintf("system: %s registered twice", s.Name()))
		}
	}
	r.systems = append(r.systems, s)
}

// Order returns the resolved execution order. Valid after Setup.
func (r *Runner) Order() []string {
	names := make([]string, len(r.order))
	for i, s := range r.order {
		names[i] = s.Name()
	}
	return names
}

// Setup resolves the execution order and runs every system's Setup once.
func (r *Runner) Setup() error {
	order, err := resolve(r.systems)
	if err != nil {
		return err
	}
	r.order = order
	r.ready = true

	ctx := r.context(0)
	for _, s := range r.order {
		s.Setup(ctx)
		r.log.Debug("system setup", zap.String("system", s.Name()))
	}
	r.log.Info("systems ready", zap.Strings("order", r.Order()))
	return nil
}

// Tick delivers last tick's events, then runs each system's Tick.
func (r *Runner) Tick(dt time.Duration) {
	if !r.ready {
		panic("system: Tick before Setup")
	}
	if r.bus != nil {
		r.bus.SwapBuffers()
		r.bus.DispatchAll()
	}
	ctx := r.context(dt)
	for _, s := range r.order {
		s.Tick(ctx)
	}
}

// Destroy delivers the last tick's events, then runs every system's Destroy
// in reverse order and delivers what they emitted.
func (r *Runner) Destroy() {
	if !r.ready {
		return
	}
	if r.bus != nil {
		r.bus.Flush()
	}
	ctx := r.context(0)
	for i := len(r.order) - 1; i >= 0; i-- {
		r.order[i].Destroy(ctx)
		r.log.Debug("system destroyed", zap.String("system", r.order[i].Name()))
	}
	if r.bus != nil {
		r.bus.Flush()
	}
	r.ready = false
}

func (r *Runner) context(dt time.Duration) *Context {
	return &Context{
		World: r.world,
		Bus:   r.bus,
		Log:   r.log,
		DT:    dt,
		Tick:  r.world.TickID(),
	}
}

// resolve orders systems so that each runs after everything it names in
// After. Among systems whose dependencies are met, the earliest registered
// runs first.
func resolve(systems []System) ([]System, error) {
	index := make(map[string]int, len(systems))
	for i, s := range systems {
		index[s.Name()] = i
	}

	pending := make([]int, len(systems))
	dependents := make([][]int, len(systems))
	for i, s := range systems {
		d, ok := s.(Dependent)
		if !ok {
			continue
		}
		for _, name := range d.After() {
			j, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("system %s depends on unknown system %s", s.Name(), name)
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	order := make([]System, 0, len(systems))
	done := make([]bool, len(systems))
	for len(order) < len(systems) {
		next := -1
		for i := range systems {
			if !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, s := range systems {
				if !done[i] {
					stuck = append(stuck, s.Name())
				}
			}
			return nil, fmt.Errorf("system dependency cycle among %v", stuck)
		}
		done[next] = true
		order = append(order, systems[next])
		for _, k := range dependents[next] {
			pending[k]--
		}
	}
	return order, nil
}
