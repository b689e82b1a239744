package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sagego/engine/internal/archive"
	"github.com/sagego/engine/internal/config"
	"github.com/sagego/engine/internal/data"
	"github.com/sagego/engine/internal/scripting"
	"github.com/sagego/engine/internal/sim"
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
	fmt.Println("\033[36;1m  │\033[0m            sagesim  v0.1.0                \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m   deterministic RTS simulation kernel     \033[36;1m│\033[0m")
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

// ── Main simulation logic ──────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/sim.toml"
	if p := os.Getenv("SAGESIM_CONFIG"); p != "" {
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

	// 3. Load template and scenario data
	printSection("data")

	templates, err := data.LoadTemplateTable(cfg.Data.Templates)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	printStat("object templates", templates.Count())

	var scenario *data.Scenario
	if cfg.Data.Scenario != "" {
		scenario, err = data.LoadScenario(cfg.Data.Scenario)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		printStat("scenario spawns", len(scenario.Spawns))
	}

	// 4. Lua event hooks
	luaEngine, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua hooks loaded")

	// 5. Build or resume the world
	world, mapName, err := buildWorld(cfg, templates, scenario, log)
	if err != nil {
		return err
	}
	world.SetEvents(luaEngine)
	printStat("live objects", world.Registry().Count())

	// 6. Optional Postgres save archive
	var slots *archive.SlotRepo
	if cfg.Archive.DSN != "" {
		printSection("archive")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := archive.NewDB(ctx, cfg.Archive.DSN, log)
		if err != nil {
			cancel()
			return fmt.Errorf("archive: %w", err)
		}
		defer db.Close()
		if err := archive.RunMigrations(ctx, db.Pool); err != nil {
			cancel()
			return fmt.Errorf("archive migrations: %w", err)
		}
		cancel()
		slots = archive.NewSlotRepo(db)
		printOK("save archive connected")
	}

	// 7. Simulation loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	printSection("simulation ready")
	printReady(fmt.Sprintf("loop started (tick: %s, seed: %d)", cfg.Sim.TickRate, cfg.Sim.Seed))
	fmt.Println()

	frames := 0
	for {
		select {
		case <-ticker.C:
			if err := world.Step(); err != nil {
				// A failed frame means the graph is corrupt; no save.
				return fmt.Errorf("simulation aborted: %w", err)
			}
			frames++
			if cfg.Sim.RunFrames > 0 && frames >= cfg.Sim.RunFrames {
				log.Info("run complete", zap.Int("frames", frames))
				return saveAndArchive(world, mapName, cfg, slots, log)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return saveAndArchive(world, mapName, cfg, slots, log)
		}
	}
}

// buildWorld resumes from a save when configured, otherwise creates a fresh
// world and places the scenario.
func buildWorld(cfg *config.Config, templates *data.TemplateTable, scenario *data.Scenario, log *zap.Logger) (*sim.World, string, error) {
	mapName := ""
	if scenario != nil {
		mapName = scenario.MapName
	}

	if cfg.Sim.LoadPath != "" {
		raw, err := os.ReadFile(cfg.Sim.LoadPath)
		if err != nil {
			return nil, "", fmt.Errorf("read save %s: %w", cfg.Sim.LoadPath, err)
		}
		world, err := sim.LoadWorld(raw, templates, log)
		if err != nil {
			// Surfaces to the user as "save file incompatible/corrupt".
			return nil, "", fmt.Errorf("save file incompatible or corrupt: %w", err)
		}
		log.Info("resumed from save",
			zap.String("path", cfg.Sim.LoadPath),
			zap.Uint32("frame", uint32(world.CurrentFrame())))
		return world, mapName, nil
	}

	world := sim.NewWorld(templates, cfg.Sim.Seed, log)
	if scenario != nil {
		for _, sp := range scenario.Spawns {
			for i := 0; i < sp.Count; i++ {
				pos := sim.Vector3{X: sp.X, Y: sp.Y, Z: sp.Z}
				if _, err := world.CreateObject(sp.Template, pos); err != nil {
					return nil, "", fmt.Errorf("spawn %s: %w", sp.Template, err)
				}
			}
		}
	}
	return world, mapName, nil
}

// saveAndArchive snapshots the world to disk and, when configured, uploads
// the blob to the Postgres archive.
func saveAndArchive(world *sim.World, mapName string, cfg *config.Config, slots *archive.SlotRepo, log *zap.Logger) error {
	raw, err := sim.SaveWorld(world)
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	digest, err := sim.WorldDigest(world)
	if err != nil {
		return fmt.Errorf("digest world: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Sim.SavePath), 0755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	if err := os.WriteFile(cfg.Sim.SavePath, raw, 0644); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	log.Info("world saved",
		zap.String("path", cfg.Sim.SavePath),
		zap.Uint32("frame", uint32(world.CurrentFrame())),
		zap.Int("bytes", len(raw)),
		zap.String("digest", hex.EncodeToString(digest[:8])))

	if slots != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := slots.Put(ctx, &archive.Slot{
			Name:    cfg.Archive.Slot,
			MapName: mapName,
			Frame:   uint32(world.CurrentFrame()),
			Digest:  digest[:],
			Data:    raw,
		})
		if err != nil {
			return fmt.Errorf("archive save: %w", err)
		}
		log.Info("save archived", zap.String("slot", cfg.Archive.Slot))
	}
	return nil
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
