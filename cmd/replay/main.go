package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	persistlog "digcraft.gg/internal/persistence/log"
	"digcraft.gg/internal/sim/tuning"
	"digcraft.gg/internal/sim/world"
)

// replay rebuilds a world from its tuning and re-executes the journal,
// verifying the per-tick state digest. Any divergence means the sim is no
// longer deterministic for that journal (code drift or a corrupt segment).
func main() {
	var (
		journalDir = flag.String("journal", "", "journal directory containing journal-*.jsonl.zst")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml the journal was recorded under")
		worldID    = flag.String("world", "world_1", "world id")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, 0 = all)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *journalDir == "" {
		fmt.Fprintln(os.Stderr, "missing -journal")
		os.Exit(2)
	}

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

	segs, err := persistlog.ListSegments(*journalDir)
	if err != nil {
		logger.Fatalf("list segments: %v", err)
	}
	if len(segs) == 0 {
		logger.Fatalf("no journal segments in %s", *journalDir)
	}

	var checked uint64
	for _, seg := range segs {
		err := persistlog.ReadSegment(seg, func(entry world.TickLogEntry) error {
			if *toTick != 0 && entry.Tick > *toTick {
				return errDone
			}
			if entry.Tick != w.Tick() {
				return fmt.Errorf("tick gap: journal has %d, world expects %d", entry.Tick, w.Tick())
			}

			joins := make([]world.JoinRequest, 0, len(entry.Joins))
			for _, j := range entry.Joins {
				joins = append(joins, world.JoinRequest{Name: j.Name, Observer: j.Observer})
			}
			actions := make([]world.ActionEnvelope, 0, len(entry.Actions))
			for _, ra := range entry.Actions {
				actions = append(actions, world.ActionEnvelope{AgentID: ra.AgentID, Mutate: ra.Mutate, Move: ra.Move})
			}

			tick, digest := w.StepOnce(joins, entry.Leaves, actions)
			if tick != entry.Tick {
				return fmt.Errorf("stepped tick %d, journal says %d", tick, entry.Tick)
			}
			if digest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d:\n  journal %s\n  replay  %s", tick, entry.Digest, digest)
			}
			checked++
			return nil
		})
		if err == errDone {
			break
		}
		if err != nil {
			logger.Fatalf("replay %s: %v", seg, err)
		}
	}

	fmt.Printf("replay ok: verified %d ticks across %d segments\n", checked, len(segs))
}

var errDone = fmt.Errorf("done")
