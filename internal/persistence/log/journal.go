package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"digcraft.gg/internal/sim/world"
)

// JournalWriter persists one JSONL entry per tick, zstd-compressed, rotating
// to a new segment file every ticksPerSegment entries. Segment names are
// zero-padded by first tick so a lexical directory sort is replay order.
type JournalWriter struct {
	dir             string
	ticksPerSegment uint64
	sealed          func(path string, firstTick, lastTick uint64)

	mu       sync.Mutex
	segTick  uint64 // first tick of the open segment
	lastTick uint64 // last tick written to it
	open     bool
	f        *os.File
	enc      *zstd.Encoder
	w        *bufio.Writer
}

func NewJournalWriter(dir string, ticksPerSegment int) *JournalWriter {
	if ticksPerSegment <= 0 {
		ticksPerSegment = 10000
	}
	return &JournalWriter{dir: dir, ticksPerSegment: uint64(ticksPerSegment)}
}

// OnSegmentSealed registers a callback invoked with a segment's path and tick
// range whenever the segment file is finished, on rotation and on Close. Must
// be set before the first WriteTick.
func (jw *JournalWriter) OnSegmentSealed(fn func(path string, firstTick, lastTick uint64)) {
	jw.sealed = fn
}

func (jw *JournalWriter) WriteTick(entry world.TickLogEntry) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	segTick := entry.Tick - entry.Tick%jw.ticksPerSegment
	if !jw.open || segTick != jw.segTick {
		if err := jw.rotateLocked(segTick); err != nil {
			return err
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := jw.w.Write(b); err != nil {
		return err
	}
	if err := jw.w.WriteByte('\n'); err != nil {
		return err
	}
	jw.lastTick = entry.Tick
	return jw.w.Flush()
}

func (jw *JournalWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.closeLocked()
}

func (jw *JournalWriter) rotateLocked(segTick uint64) error {
	if err := jw.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(jw.dir, 0o755); err != nil {
		return err
	}
	path := SegmentPath(jw.dir, segTick)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	jw.f = f
	jw.enc = enc
	jw.w = bufio.NewWriterSize(enc, 128*1024)
	jw.segTick = segTick
	jw.open = true
	return nil
}

func (jw *JournalWriter) closeLocked() error {
	wasOpen := jw.open
	var err1 error
	if jw.w != nil {
		_ = jw.w.Flush()
	}
	if jw.enc != nil {
		err1 = jw.enc.Close()
		jw.enc = nil
	}
	if jw.f != nil {
		_ = jw.f.Close()
		jw.f = nil
	}
	jw.w = nil
	jw.open = false
	if wasOpen && jw.sealed != nil {
		jw.sealed(SegmentPath(jw.dir, jw.segTick), jw.segTick, jw.lastTick)
	}
	return err1
}

// SegmentPath names the segment holding the given first tick.
func SegmentPath(dir string, firstTick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("journal-%012d.jsonl.zst", firstTick))
}

// ListSegments returns the journal segment files of a directory in tick
// order. Non-journal files are ignored.
func ListSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var segs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "journal-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		segs = append(segs, filepath.Join(dir, name))
	}
	sort.Strings(segs)
	return segs, nil
}

// ReadSegment streams a segment's entries in order, invoking fn per entry.
// Decoding stops at the first error; a truncated trailing line (crash
// mid-write) is reported, not silently skipped.
func ReadSegment(path string, fn func(world.TickLogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry world.TickLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return sc.Err()
}
