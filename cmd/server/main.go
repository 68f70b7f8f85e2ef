package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"digcraft.gg/internal/persistence/indexdb"
	persistlog "digcraft.gg/internal/persistence/log"
	"digcraft.gg/internal/sim/tuning"
	"digcraft.gg/internal/sim/world"
	"digcraft.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite tick index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	w, err := world.NewWorld(world.ConfigFromTuning(*worldID, tune), logger)
	if err != nil {
		logger.Fatalf("create world: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open tick index: %v", err)
		}
		defer idx.Close()
		w.SetIndexer(idx)
	}

	if tune.Journal.Enabled {
		dir := tune.Journal.Dir
		if dir == "" || dir == tuning.Defaults().Journal.Dir {
			// Default: keep each world's journal under its own data dir.
			dir = filepath.Join(worldDir, "journal")
		}
		jw := persistlog.NewJournalWriter(dir, tune.Journal.TicksPerSegment)
		defer jw.Close()
		if idx != nil {
			// Keep the segment catalog current as the journal rotates.
			jw.OnSegmentSealed(idx.RecordSegment)
		}
		w.SetTickLogger(jw)
		logger.Printf("journal: %s (segment every %d ticks)", dir, tune.Journal.TicksPerSegment)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world loop: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
		w.Stop()
	}()

	logger.Printf("world %s: %dx%d grid, %d Hz, listening on %s",
		*worldID, tune.Grid.Width, tune.Grid.Height, tune.TickRateHz, *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http: %v", err)
	}
}
