// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/cabinet/internal/pkgdata"
	"github.com/pdiddy/cabinet/pkg/types"
)

const dbFile = "cabinet.db"

// Index units. Each unit is rebuilt when any of its source files changes.
const (
	unitConcepts = "concepts"
	unitEdges    = "edges"
)

// unitFiles lists the package data files each unit is built from.
var unitFiles = map[string][]string{
	unitConcepts: {pkgdata.CUIMapFile, pkgdata.ConceptNamesFile},
	unitEdges:    {pkgdata.SnomedTreeFile},
}

// Store manages the SQLite index of the knowledge base.
type Store struct {
	db         *sql.DB
	dataDir    string
	indexDir   string
	maxResults int
}

// NewStore opens or creates the index database at cfg.IndexDir/cabinet.db.
// IndexDir defaults to DataDir/index.
func NewStore(cfg types.KnowledgeConfig) (*Store, error) {
	indexDir := cfg.IndexDir
	if indexDir == "" {
		indexDir = filepath.Join(cfg.DataDir, "index")
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(indexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		dataDir:    cfg.DataDir,
		indexDir:   indexDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS concepts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			cui TEXT NOT NULL UNIQUE,
			sctid TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_concepts_sctid ON concepts(sctid)`,
		`CREATE TABLE IF NOT EXISTS edges (
			child TEXT NOT NULL,
			parent TEXT NOT NULL,
			PRIMARY KEY (child, parent)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_parent ON edges(parent)`,
		`CREATE TABLE IF NOT EXISTS load_status (
			unit TEXT PRIMARY KEY,
			mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='concepts_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE concepts_fts USING fts5(name, content=concepts, content_rowid=rowid)`,
			`CREATE TRIGGER concepts_ai AFTER INSERT ON concepts BEGIN
				INSERT INTO concepts_fts(rowid, name) VALUES (new.rowid, new.name);
			END`,
			`CREATE TRIGGER concepts_ad AFTER DELETE ON concepts BEGIN
				INSERT INTO concepts_fts(concepts_fts, rowid, name) VALUES('delete', old.rowid, old.name);
			END`,
			`CREATE TRIGGER concepts_au AFTER UPDATE ON concepts BEGIN
				INSERT INTO concepts_fts(concepts_fts, rowid, name) VALUES('delete', old.rowid, old.name);
				INSERT INTO concepts_fts(rowid, name) VALUES (new.rowid, new.name);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IndexSummary holds counts from an indexing run.
type IndexSummary struct {
	Indexed int
	Skipped int
	Rows    int
}

// unitModTime joins the modification times of a unit's files. Missing
// optional files contribute "-".
func (s *Store) unitModTime(unit string) (string, error) {
	var parts []string
	for _, name := range unitFiles[unit] {
		info, err := os.Stat(filepath.Join(s.dataDir, name))
		if err != nil {
			if os.IsNotExist(err) && name == pkgdata.ConceptNamesFile {
				parts = append(parts, "-")
				continue
			}
			return "", fmt.Errorf("checking %s: %w", name, err)
		}
		parts = append(parts, info.ModTime().UTC().Format(time.RFC3339Nano))
	}
	return strings.Join(parts, ","), nil
}

// Index loads the package data in the store's data directory into the
// database. Units whose source files have not changed since the last run
// are skipped.
func (s *Store) Index(ctx context.Context, w io.Writer) (IndexSummary, error) {
	var summary IndexSummary
	var kb *Knowledge

	for _, unit := range []string{unitConcepts, unitEdges} {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		modTime, err := s.unitModTime(unit)
		if err != nil {
			return summary, err
		}

		var stored string
		err = s.db.QueryRowContext(ctx,
			`SELECT mod_time FROM load_status WHERE unit = ?`, unit,
		).Scan(&stored)
		if err == nil && stored == modTime {
			fmt.Fprintf(w, "skipped %s\n", unit)
			summary.Skipped++
			continue
		}

		if kb == nil {
			if kb, err = Load(s.dataDir); err != nil {
				return summary, err
			}
		}

		var rows int
		switch unit {
		case unitConcepts:
			rows, err = s.indexConcepts(ctx, kb, modTime)
		case unitEdges:
			rows, err = s.indexEdges(ctx, kb, modTime)
		}
		if err != nil {
			return summary, fmt.Errorf("indexing %s: %w", unit, err)
		}

		fmt.Fprintf(w, "indexed %s (%d rows)\n", unit, rows)
		summary.Indexed++
		summary.Rows += rows
	}

	fmt.Fprintf(w, "\nindexed: %d, skipped: %d\n", summary.Indexed, summary.Skipped)
	return summary, nil
}

func (s *Store) indexConcepts(ctx context.Context, kb *Knowledge, modTime string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM concepts`); err != nil {
		return 0, fmt.Errorf("deleting old concepts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO concepts (cui, sctid, name) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for cui, sctid := range kb.ConceptMap() {
		name, _ := kb.Name(cui)
		if _, err := stmt.ExecContext(ctx, cui, sctid, name); err != nil {
			return 0, fmt.Errorf("inserting concept %s: %w", cui, err)
		}
		n++
	}

	if err := setLoadStatus(ctx, tx, unitConcepts, modTime); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *Store) indexEdges(ctx context.Context, kb *Knowledge, modTime string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return 0, fmt.Errorf("deleting old edges: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO edges (child, parent) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for child, parents := range kb.Tree() {
		for parent := range parents {
			if _, err := stmt.ExecContext(ctx, child, parent); err != nil {
				return 0, fmt.Errorf("inserting edge %s -> %s: %w", child, parent, err)
			}
			n++
		}
	}

	if err := setLoadStatus(ctx, tx, unitEdges, modTime); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func setLoadStatus(ctx context.Context, tx *sql.Tx, unit, modTime string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO load_status (unit, mod_time) VALUES (?, ?)
		 ON CONFLICT(unit) DO UPDATE SET mod_time=excluded.mod_time`,
		unit, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating load status: %w", err)
	}
	return nil
}
