package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed by CleanupSystem each tick.
// Accessed only from the tick goroutine; no locks.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
	tick         uint64

	onCreated   []func(EntityID)
	onDestroyed []func(EntityID)
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// TickID counts completed EndTick calls.
func (w *World) TickID() uint64 { return w.tick }

// OnEntityCreated registers a hook called after each CreateEntity.
func (w *World) OnEntityCreated(fn func(EntityID)) {
	w.onCreated = append(w.onCreated, fn)
}

// OnEntityDestroyed registers a hook called before an entity's components
// are removed.
func (w *World) OnEntityDestroyed(fn func(EntityID)) {
	w.onDestroyed = append(w.onDestroyed, fn)
}

func (w *World) CreateEntity() EntityID {
	id := w.pool.Create()
	for _, fn := range w.onCreated {
		fn(id)
	}
	return id
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

func (w *World) Parent(id EntityID) EntityID {
	return w.pool.Parent(id)
}

func (w *World) Children(id EntityID, fn func(EntityID)) {
	w.pool.Children(id, fn)
}

func (w *World) SetParent(id, parent EntityID) bool {
	return w.pool.SetParent(id, parent)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// DestroyNow removes every component of id and recycles its index
// immediately. Stale ids are ignored.
func (w *World) DestroyNow(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	for _, fn := range w.onDestroyed {
		fn(id)
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Called by CleanupSystem at the end of each tick.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		w.DestroyNow(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}

// EndTick clears every change list and advances the tick counter.
func (w *World) EndTick() {
	w.registry.ClearChanged()
	w.tick++
}
