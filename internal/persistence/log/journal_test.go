package log

import (
	"os"
	"path/filepath"
	"testing"

	"digcraft.gg/internal/sim/world"
)

func TestJournal_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	jw := NewJournalWriter(dir, 1000)

	var want []world.TickLogEntry
	for tick := uint64(0); tick < 5; tick++ {
		entry := world.TickLogEntry{Tick: tick, Digest: "d"}
		if tick == 0 {
			entry.Joins = []world.RecordedJoin{{AgentID: "A000001", Name: "miner"}}
		}
		if err := jw.WriteTick(entry); err != nil {
			t.Fatalf("write tick %d: %v", tick, err)
		}
		want = append(want, entry)
	}
	if err := jw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	segs, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}

	var got []world.TickLogEntry
	err = ReadSegment(segs[0], func(e world.TickLogEntry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Tick != want[i].Tick {
			t.Fatalf("entry %d: tick %d, want %d", i, got[i].Tick, want[i].Tick)
		}
	}
	if len(got[0].Joins) != 1 || got[0].Joins[0].Name != "miner" {
		t.Fatalf("join payload lost: %+v", got[0])
	}
}

func TestJournal_RotatesBySegmentSize(t *testing.T) {
	dir := t.TempDir()
	jw := NewJournalWriter(dir, 10)

	for tick := uint64(0); tick < 25; tick++ {
		if err := jw.WriteTick(world.TickLogEntry{Tick: tick, Digest: "d"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := jw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	segs, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3 (ticks 0-9, 10-19, 20-24)", len(segs))
	}
	if filepath.Base(segs[1]) != filepath.Base(SegmentPath(dir, 10)) {
		t.Fatalf("second segment named %s", segs[1])
	}

	// Each segment holds only its tick range, in order.
	var ticks []uint64
	for _, seg := range segs {
		if err := ReadSegment(seg, func(e world.TickLogEntry) error {
			ticks = append(ticks, e.Tick)
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", seg, err)
		}
	}
	for i, tick := range ticks {
		if tick != uint64(i) {
			t.Fatalf("replay order broken at %d: got tick %d", i, tick)
		}
	}
}

func TestJournal_SealCallbackReportsRotatedSegments(t *testing.T) {
	dir := t.TempDir()
	jw := NewJournalWriter(dir, 10)

	type seal struct {
		path        string
		first, last uint64
	}
	var seals []seal
	jw.OnSegmentSealed(func(p string, first, last uint64) {
		seals = append(seals, seal{path: p, first: first, last: last})
	})

	for tick := uint64(0); tick < 25; tick++ {
		if err := jw.WriteTick(world.TickLogEntry{Tick: tick, Digest: "d"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if len(seals) != 2 {
		t.Fatalf("got %d seals before close, want 2 (rotations only)", len(seals))
	}
	if err := jw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []seal{
		{SegmentPath(dir, 0), 0, 9},
		{SegmentPath(dir, 10), 10, 19},
		{SegmentPath(dir, 20), 20, 24},
	}
	if len(seals) != len(want) {
		t.Fatalf("got %d seals, want %d", len(seals), len(want))
	}
	for i := range want {
		if seals[i] != want[i] {
			t.Fatalf("seal %d = %+v, want %+v", i, seals[i], want[i])
		}
	}
}

func TestListSegments_IgnoresStrangers(t *testing.T) {
	dir := t.TempDir()
	jw := NewJournalWriter(dir, 100)
	if err := jw.WriteTick(world.TickLogEntry{Tick: 0, Digest: "d"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = jw.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("plant stranger: %v", err)
	}
	segs, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("stranger file counted as segment: %v", segs)
	}
}
