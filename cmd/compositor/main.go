// Command compositor runs the scene compositor against synthetic input
// streams, with an optional debug HTTP server, cycle journal and gRPC
// health endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/compositor/internal/compositor"
	"github.com/banshee-data/compositor/internal/compositor/modules"
	"github.com/banshee-data/compositor/internal/config"
	"github.com/banshee-data/compositor/internal/db"
	"github.com/banshee-data/compositor/internal/healthrpc"
	"github.com/banshee-data/compositor/internal/version"
	"tailscale.com/tsweb"
)

var (
	configPath   = flag.String("config", "", "Path to compositor JSON config (defaults built in when empty)")
	debugListen  = flag.String("debug-listen", "", "Debug HTTP listen address (overrides config)")
	healthListen = flag.String("health-listen", "", "gRPC health listen address (overrides config)")
	statsDB      = flag.String("stats-db", "", "Cycle journal SQLite path (overrides config)")
	maxCycles    = flag.Uint64("cycles", 0, "Stop after this many cycles (0 runs until interrupted)")
	media        = flag.Bool("media", false, "Feed raw audio/video streams instead of a scene description")
	logDiag      = flag.Bool("log-diag", false, "Enable diagnostic logging")
	logTrace     = flag.Bool("log-trace", false, "Enable per-cycle trace logging")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func init() {
	// Every filter lifecycle call happens on the main goroutine, which
	// stays on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	var diag, trace io.Writer
	if *logDiag {
		diag = os.Stderr
	}
	if *logTrace {
		trace = os.Stderr
	}
	compositor.SetLogWriters(os.Stderr, diag, trace)

	store, err := openStore()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := store.Config()
	log.Printf("compositor %s session=%s engine=%s fps=%.1f", version.String(), store.SessionID(), cfg.GetEngineBackend(), cfg.GetTargetFPS())

	opts := compositor.Options{Store: store, Modules: modules.Builtin()}

	var journal *db.DB
	if path := cfg.GetStatsDBPath(); path != "" {
		journal, err = db.NewDB(path)
		if err != nil {
			log.Fatalf("failed to open cycle journal: %v", err)
		}
		defer journal.Close()
		if err := journal.RecordSession(store.SessionID(), cfg.GetEngineBackend(), time.Now()); err != nil {
			log.Printf("failed to record session: %v", err)
		}
		opts.Recorder = journal
	}

	f, ok := compositor.Register.New(opts).(*compositor.Filter)
	if !ok {
		log.Fatal("unexpected filter type")
	}
	if err := f.Initialize(); err != nil {
		log.Fatalf("failed to initialize compositor: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := cfg.GetDebugListen(); addr != "" {
		mux := http.NewServeMux()
		f.AttachAdminRoutes(mux)
		if journal != nil {
			if err := journal.AttachAdminRoutes(mux); err != nil {
				log.Printf("journal admin routes disabled: %v", err)
			}
		}
		tsweb.Debugger(mux).KV("Version", version.String())

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, addr, mux)
		}()
	}

	var health *healthrpc.Server
	if addr := cfg.GetHealthListen(); addr != "" {
		health = healthrpc.NewServer(healthrpc.Config{ListenAddr: addr}, f.Snapshot)
		if err := health.Start(); err != nil {
			log.Printf("health endpoint disabled: %v", err)
			health = nil
		}
	}

	sources := sceneSources(cfg.GetTargetFPS())
	if *media {
		sources = mediaSources()
	}
	bound := configure(f, sources)
	log.Printf("bound %d of %d streams", len(bound), len(sources))

	cycles, runErr := runCycles(ctx, f, bound, *maxCycles)
	log.Printf("ran %d cycles", cycles)

	f.Finalize()
	if health != nil {
		health.Stop()
	}
	stop()
	wg.Wait()

	if journal != nil {
		if sum, err := journal.PacingSummary(store.SessionID()); err == nil {
			log.Printf("pacing: cycles=%d decoded=%d errors=%d mean=%.1fms p95=%.1fms",
				sum.Cycles, sum.Decoded, sum.DecodeErrors, sum.MeanMs, sum.P95Ms)
		}
	}
	if runErr != nil {
		log.Fatalf("compositor stopped: %v", runErr)
	}
	log.Printf("Graceful shutdown complete")
}

func openStore() (*config.Store, error) {
	var cfg *config.CompositorConfig
	if *configPath != "" {
		loaded, err := config.LoadCompositorConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultCompositorConfig()
	}
	applyOverrides(cfg, *debugListen, *healthListen, *statsDB)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return config.NewStore(cfg), nil
}

// applyOverrides copies non-empty flag values over the loaded config.
func applyOverrides(cfg *config.CompositorConfig, debugAddr, healthAddr, dbPath string) {
	if debugAddr != "" {
		cfg.DebugListen = &debugAddr
	}
	if healthAddr != "" {
		cfg.HealthListen = &healthAddr
	}
	if dbPath != "" {
		cfg.StatsDBPath = &dbPath
	}
}

func serveDebug(ctx context.Context, addr string, mux *http.ServeMux) {
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down debug HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("debug server force close error: %v", err)
		}
	}
}
