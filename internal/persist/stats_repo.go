package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FrameStatsRow is one camera's traversal counters for one tick.
type FrameStatsRow struct {
	Tick           uint64
	Camera         string
	NodesTested    int
	NodesVisited   int
	EntitiesTested int
	Visible        int
	Moved          int
	Stopped        int
	Uploaded       int
	OctreeNodes    int
}

// StatsRepo records one scene run and its per-tick frame stats.
type StatsRepo struct {
	db    *DB
	runID int64
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// StartRun inserts a scene_runs row. Later writes are recorded against it.
func (r *StatsRepo) StartRun(ctx context.Context, sceneFile string, entities int) (int64, error) {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO scene_runs (scene_file, entities) VALUES ($1, $2) RETURNING id`,
		sceneFile, entities,
	).Scan(&r.runID)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return r.runID, nil
}

// FinishRun stamps the run's end time.
func (r *StatsRepo) FinishRun(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx,
		`UPDATE scene_runs SET finished_at = now() WHERE id = $1`, r.runID,
	); err != nil {
		return fmt.Errorf("finish run %d: %w", r.runID, err)
	}
	return nil
}

// WriteFrameStats writes a batch of rows in a single transaction.
// A tick already recorded for the same camera is overwritten.
func (r *StatsRepo) WriteFrameStats(ctx context.Context, rows []FrameStatsRow) error {
	if len(rows) == 0 {
		return nil
	}
	if r.runID == 0 {
		return fmt.Errorf("frame stats: no run started")
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("frame stats begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range rows {
		batch.Queue(
			`INSERT INTO frame_stats (run_id, tick, camera, nodes_tested, nodes_visited,
			     entities_tested, visible, moved, stopped, uploaded, octree_nodes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (run_id, tick, camera) DO UPDATE SET
			     nodes_tested = EXCLUDED.nodes_tested,
			     nodes_visited = EXCLUDED.nodes_visited,
			     entities_tested = EXCLUDED.entities_tested,
			     visible = EXCLUDED.visible,
			     moved = EXCLUDED.moved,
			     stopped = EXCLUDED.stopped,
			     uploaded = EXCLUDED.uploaded,
			     octree_nodes = EXCLUDED.octree_nodes`,
			r.runID, int64(s.Tick), s.Camera, s.NodesTested, s.NodesVisited,
			s.EntitiesTested, s.Visible, s.Moved, s.Stopped, s.Uploaded, s.OctreeNodes,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("frame stats insert: %w", err)
	}
	return tx.Commit(ctx)
}
