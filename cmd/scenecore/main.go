package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/config"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/data"
	"github.com/l1jgo/scenecore/internal/persist"
	"github.com/l1jgo/scenecore/internal/scene/octree"
	"github.com/l1jgo/scenecore/internal/scripting"
	"github.com/l1jgo/scenecore/internal/system"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             scenecore  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     loose octree · visibility · ticks     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Scene loop ────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/scenecore.toml"
	if p := os.Getenv("SCENECORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 3. Optional profiling of the whole run
	if p := startProfile(cfg.Profile); p != nil {
		defer p.Stop()
		printOK(fmt.Sprintf("profiling %s into %s", cfg.Profile.Mode, cfg.Profile.Path))
	}

	// 4. Load the scene description
	printSection("Scene")
	scene, err := data.LoadScene(cfg.Data.SceneFile)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	printStat("entities", scene.Count())
	printStat("cameras", len(scene.Cameras))

	engine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	defer engine.Close()
	printOK("lua motion scripts loaded")

	var reloads <-chan string
	if cfg.Data.Watch {
		watcher, err := scripting.NewWatcher(cfg.Data.ScriptsDir)
		if err != nil {
			return fmt.Errorf("watch scripts: %w", err)
		}
		defer watcher.Close()
		reloads = watcher.Events
		go func() {
			for err := range watcher.Errors {
				log.Warn("script watcher", zap.Error(err))
			}
		}()
		printOK(fmt.Sprintf("watching %s", cfg.Data.ScriptsDir))
	}
	fmt.Println()

	// 5. Optional frame stats database
	var writer system.StatsWriter
	var repo *persist.StatsRepo
	if cfg.Database.Enabled {
		printSection("Database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL " + db.ServerVersion + " connected")

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printStat("schema version", int(version))

		repo = persist.NewStatsRepo(db)
		runID, err := repo.StartRun(ctx, cfg.Data.SceneFile, scene.Count())
		if err != nil {
			return fmt.Errorf("stats run: %w", err)
		}
		printStat("run id", int(runID))
		writer = repo
		fmt.Println()
	}

	// 6. Build the world
	world := ecs.NewWorld()
	store := component.NewStore(world)
	if _, err := scene.Spawn(world, store); err != nil {
		return fmt.Errorf("spawn scene: %w", err)
	}
	if store.Cameras.Len() == 0 {
		cam := defaultCamera(cfg.Camera)
		if err := data.CheckCamera(cam); err != nil {
			return fmt.Errorf("default camera: %w", err)
		}
		store.Cameras.Add(world.CreateEntity(), cam)
	}
	bus := event.NewBus()
	event.Subscribe(bus, func(ev event.OctreeGrown) {
		log.Info("octree grew", zap.Uint64("tick", ev.Tick),
			zap.Float32("extent", ev.Extent), zap.Int("nodes", ev.Nodes))
	})

	// 7. Create systems and register with runner
	runner := coresys.NewRunner(world, bus, log)
	transformable := system.NewTransformableSystem(store, system.TransformableConfig{
		MaxTransforms: cfg.Scene.MaxTransforms,
		Octree: octree.Config{
			MarginFactor:   cfg.Scene.MarginFactor,
			SplitThreshold: cfg.Scene.SplitThreshold,
			MinNodeExtent:  cfg.Scene.MinNodeExtent,
			InitialExtent:  cfg.Scene.InitialExtent,
		},
		Audit: cfg.Scene.Audit,
	})
	stats := system.NewStatsSystem(writer, cfg.Loop.StatsInterval, cfg.Database.BatchSize)
	runner.Register(system.NewScriptMotionSystem(store, engine, reloads))
	runner.Register(system.NewTransformPropagationSystem(store, "script_motion"))
	runner.Register(transformable)
	runner.Register(system.NewVisibilitySystem(store, transformable, nil))
	runner.Register(stats)
	runner.Register(system.NewCleanupSystem("visibility", "frame_stats"))
	if err := runner.Setup(); err != nil {
		return fmt.Errorf("systems: %w", err)
	}
	printSection("Systems")
	printStat("transform rows", transformable.Allocator().Live())
	printStat("octree nodes", transformable.Octree().NodeCount())
	fmt.Println()

	// 8. Start the tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Loop.TickRate)
	defer ticker.Stop()

	printSection("Running")
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Loop.TickRate))
	fmt.Println()

	started := time.Now()
	shutdown := func(reason string) error {
		runner.Destroy()
		if repo != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.FinishRun(ctx); err != nil {
				log.Warn("finish stats run", zap.Error(err))
			}
		}
		log.Info("scene stopped",
			zap.String("reason", reason),
			zap.Uint64("ticks", world.TickID()),
			zap.Duration("elapsed", time.Since(started)))
		return nil
	}

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Loop.TickRate)
			if cfg.Loop.MaxTicks > 0 && world.TickID() >= cfg.Loop.MaxTicks {
				return shutdown("max ticks")
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return shutdown(sig.String())
		}
	}
}

func defaultCamera(cfg config.CameraConfig) component.Camera {
	return component.Camera{
		Name:    "default",
		Eye:     mgl32.Vec3(cfg.Position),
		Target:  mgl32.Vec3(cfg.Target),
		Up:      mgl32.Vec3{0, 1, 0},
		FovY:    cfg.FovY,
		Aspect:  cfg.Aspect,
		Near:    cfg.Near,
		Far:     cfg.Far,
		FarDist: cfg.FarDist,
	}
}

func startProfile(cfg config.ProfileConfig) interface{ Stop() } {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	case "trace":
		mode = profile.TraceProfile
	default:
		return nil
	}
	return profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook, profile.Quiet)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
