package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is a queryable secondary index over the tick journal: per-tick
// digests and mutation counts plus the segment catalog. Writes go through a
// buffered channel to a single writer goroutine so the world loop never
// blocks on disk; the journal stays the source of truth, dropped index rows
// are acceptable.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSegment
)

type req struct {
	kind    reqKind
	tick    tickRow
	segment segmentRow
}

type tickRow struct {
	Tick         uint64
	Actions      int
	CellsChanged int
	Digest       string
}

type segmentRow struct {
	FirstTick uint64
	LastTick  uint64
	Path      string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads. NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			actions INTEGER NOT NULL,
			cells_changed INTEGER NOT NULL,
			digest TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS segments (
			first_tick INTEGER PRIMARY KEY,
			last_tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// IndexTick implements world.TickIndexer. Never blocks.
func (s *SQLiteIndex) IndexTick(tick uint64, actions, cellsChanged int, digest string) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTick, tick: tickRow{Tick: tick, Actions: actions, CellsChanged: cellsChanged, Digest: digest}}:
	default:
		// Drop if the indexer falls behind; the journal has the real record.
	}
}

// RecordSegment upserts a journal segment's tick range.
func (s *SQLiteIndex) RecordSegment(path string, firstTick, lastTick uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSegment, segment: segmentRow{FirstTick: firstTick, LastTick: lastTick, Path: path}}:
	default:
	}
}

// TickDigest looks up the recorded digest for a tick.
func (s *SQLiteIndex) TickDigest(tick uint64) (string, bool, error) {
	var digest string
	err := s.db.QueryRow(`SELECT digest FROM ticks WHERE tick = ?`, int64(tick)).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}

// LatestTick reports the highest indexed tick, or ok=false on an empty index.
func (s *SQLiteIndex) LatestTick() (uint64, bool, error) {
	var tick sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(tick) FROM ticks`).Scan(&tick)
	if err != nil {
		return 0, false, err
	}
	if !tick.Valid {
		return 0, false, nil
	}
	return uint64(tick.Int64), true, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,actions,cells_changed,digest,recorded_at) VALUES(?,?,?,?,?)`)
	insertSegment, _ := s.db.Prepare(`INSERT OR REPLACE INTO segments(first_tick,last_tick,path,updated_at) VALUES(?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertSegment != nil {
			_ = insertSegment.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		now := time.Now().UTC().Format(time.RFC3339)
		switch r.kind {
		case reqTick:
			if insertTick == nil {
				continue
			}
			if _, err := tx.Stmt(insertTick).Exec(
				int64(r.tick.Tick), r.tick.Actions, r.tick.CellsChanged, r.tick.Digest, now,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqSegment:
			if insertSegment == nil {
				continue
			}
			if _, err := tx.Stmt(insertSegment).Exec(
				int64(r.segment.FirstTick), int64(r.segment.LastTick), r.segment.Path, now,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
