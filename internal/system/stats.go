package system

import (
	"context"
	"time"

	"github.com/l1jgo/scenecore/internal/core/event"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/persist"
	"go.uber.org/zap"
)

// StatsWriter stores batches of frame stats. persist.StatsRepo implements it.
type StatsWriter interface {
	WriteFrameStats(ctx context.Context, rows []persist.FrameStatsRow) error
}

// StatsSystem consumes FrameStats events. Every interval ticks it logs the
// latest stats per camera, and when a writer is set it batches every event
// and writes a batch once batchSize rows are pending.
type StatsSystem struct {
	writer    StatsWriter
	interval  uint64
	batchSize int
	log       *zap.Logger

	pending []persist.FrameStatsRow
	written int
	failed  int
}

// NewStatsSystem returns the system. writer may be nil to only log; an
// interval of 0 disables logging.
func NewStatsSystem(writer StatsWriter, interval uint64, batchSize int) *StatsSystem {
	if batchSize < 1 {
		batchSize = 1
	}
	return &StatsSystem{
		writer:    writer,
		interval:  interval,
		batchSize: batchSize,
		log:       zap.NewNop(),
	}
}

func (s *StatsSystem) Name() string { return "frame_stats" }

func (s *StatsSystem) Setup(ctx *coresys.Context) {
	s.log = ctx.Log.Named("stats")
	event.Subscribe(ctx.Bus, s.onFrameStats)
}

func (s *StatsSystem) onFrameStats(ev event.FrameStats) {
	if s.interval > 0 && ev.Tick%s.interval == 0 {
		s.log.Info("frame",
			zap.Uint64("tick", ev.Tick),
			zap.String("camera", ev.Name),
			zap.Int("visible", ev.Traverse.Visible),
			zap.Int("nodes_tested", ev.Traverse.NodesTested),
			zap.Int("nodes_visited", ev.Traverse.NodesVisited),
			zap.Int("entities_tested", ev.Traverse.EntitiesTested),
			zap.Int("moved", ev.Moved),
			zap.Int("stopped", ev.Stopped),
			zap.Int("uploaded", ev.Uploaded),
			zap.Int("octree_nodes", ev.Nodes))
	}
	if s.writer == nil {
		return
	}
	s.pending = append(s.pending, persist.FrameStatsRow{
		Tick:           ev.Tick,
		Camera:         ev.Name,
		NodesTested:    ev.Traverse.NodesTested,
		NodesVisited:   ev.Traverse.NodesVisited,
		EntitiesTested: ev.Traverse.EntitiesTested,
		Visible:        ev.Traverse.Visible,
		Moved:          ev.Moved,
		Stopped:        ev.Stopped,
		Uploaded:       ev.Uploaded,
		OctreeNodes:    ev.Nodes,
	})
}

func (s *StatsSystem) Tick(_ *coresys.Context) {
	if len(s.pending) >= s.batchSize {
		s.flush()
	}
}

// Destroy writes whatever is still pending.
func (s *StatsSystem) Destroy(_ *coresys.Context) {
	s.flush()
	if s.writer != nil {
		s.log.Info("frame stats written", zap.Int("rows", s.written), zap.Int("failed", s.failed))
	}
}

func (s *StatsSystem) flush() {
	if s.writer == nil || len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.WriteFrameStats(ctx, s.pending); err != nil {
		// Stats are diagnostics; a failed batch is dropped, not retried.
		s.failed += len(s.pending)
		s.log.Error("write frame stats", zap.Int("rows", len(s.pending)), zap.Error(err))
	} else {
		s.written += len(s.pending)
	}
	s.pending = s.pending[:0]
}

// Written returns how many rows were stored successfully.
func (s *StatsSystem) Written() int { return s.written }
