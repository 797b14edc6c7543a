// Command orrery-view runs a headless viewer: it builds the scene from
// the catalog, keeps it synchronized with the shared authority, and
// animates it until interrupted. Embedding applications replace the
// headless device with a real render surface; everything else is the same
// wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/config"
	"github.com/orrery/orrery/internal/event"
	"github.com/orrery/orrery/internal/loop"
	"github.com/orrery/orrery/internal/preset"
	"github.com/orrery/orrery/internal/render"
	"github.com/orrery/orrery/internal/scene"
	"github.com/orrery/orrery/internal/state"
	syncc "github.com/orrery/orrery/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	presetFlag := flag.String("preset", "", "apply a named preset after connecting")
	flag.Parse()

	cfgPath := "config/orrery.toml"
	if p := os.Getenv("ORRERY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadOrDefaults(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := cfg.Logging.BuildLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	bus := event.NewBus()
	event.Subscribe(bus, func(e event.ConnectionChanged) {
		log.Info("connection state", zap.Bool("connected", e.Connected))
	})
	event.Subscribe(bus, func(e event.FrameError) {
		log.Warn("frame degraded", zap.Error(e.Err))
	})

	dev := render.NewHeadless()
	mgr, err := scene.NewManager(dev, cat, bus, log, scene.Options{
		StarfieldCount: cfg.Viewer.StarfieldCount,
	})
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	lp := loop.New(mgr, dev, loop.NewTickerScheduler(cfg.Viewer.FrameInterval), bus, log)

	client := syncc.NewClient(syncc.Config{
		BaseURL:   cfg.Viewer.AuthorityURL,
		AccessKey: cfg.Viewer.AccessKey,
		RetryWait: cfg.Viewer.RetryWait,
	}, bus, log, func(s *state.Snapshot) {
		lp.Post(func() { mgr.ApplySnapshot(s) })
	})

	// User camera gestures go upstream; the authority's answer comes back
	// through the same apply path as any broadcast.
	mgr.Controls().OnMove(func(pos state.Vec3) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := client.PushState(ctx, &state.Patch{CameraPosition: &pos}); err != nil {
				log.Warn("camera push failed", zap.Error(err))
			}
		}()
	})

	lp.Start()
	client.Start()
	log.Info("viewer running",
		zap.String("authority", cfg.Viewer.AuthorityURL),
		zap.Int("bodies", cat.Count()))

	if *presetFlag != "" {
		engine := preset.NewEngine(preset.NewRegistry(cat, log), client, log)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snap, err := engine.Apply(ctx, *presetFlag)
		cancel()
		if err != nil {
			log.Warn("preset apply failed", zap.String("preset", *presetFlag), zap.Error(err))
		} else {
			log.Info("preset applied",
				zap.String("preset", *presetFlag),
				zap.Float32("rotationSpeed", snap.RotationSpeed))
		}
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	// Teardown order matters: stop frame scheduling, detach input
	// listeners, disconnect the push channel, then release every GPU
	// resource and the surface. Destroy repeats the detach harmlessly.
	lp.Stop()
	mgr.Controls().Detach()
	client.Close()
	mgr.Destroy()

	if g, m, t := dev.LiveResources(); g+m+t != 0 {
		log.Error("resources leaked on teardown",
			zap.Int("geometries", g), zap.Int("materials", m), zap.Int("textures", t))
	}
	log.Info("viewer stopped")
	return nil
}
