/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"

	"gocomicbubbles/internal/domain"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/version"
)

const (
	// HistoryDirName holds per-workspace derived data.
	HistoryDirName  = ".gcb"
	HistoryFileName = "history.sqlite"

	// schemaVersion of the history database. Bump it and add a step to
	// runMigrations for every schema change.
	schemaVersion = 2
)

// HistoryPath returns the history database path of a workspace.
func HistoryPath(root string) string {
	return filepath.Join(root, HistoryDirName, HistoryFileName)
}

// History is the autosave history of drafts in one workspace.
type History struct {
	db   *sql.DB
	path string
}

// Entry is one saved draft.
type Entry struct {
	ID      int64
	SceneID string
	TS      time.Time
	Bubbles int
	Draft   domain.Draft
}

// OpenHistory opens or creates .gcb/history.sqlite under root in WAL mode
// and brings its schema up to date. A file that is not a usable database
// is moved to .gcb/backups and replaced by a fresh one.
func OpenHistory(root string) (*History, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "history_open").With(slog.String("root", root))
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, HistoryDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", HistoryDirName, err)
	}
	path := HistoryPath(root)
	db, err := openHistoryDB(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, err
		}
		l.Warn("history unusable, starting a new one", slog.Any("err", err))
		if qerr := quarantine(path); qerr != nil {
			return nil, fmt.Errorf("%w (quarantine: %v)", err, qerr)
		}
		if db, err = openHistoryDB(path); err != nil {
			return nil, err
		}
	}
	l.Debug("history ready", slog.String("path", path))
	return &History{db: db, path: path}, nil
}

func openHistoryDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// embedded use: one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	steps := []func(context.Context, *sql.DB) error{
		func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
			return err
		},
		checkIntegrity,
		ensureMetaAndVersion,
		ensureHistorySchema,
		runMigrations,
	}
	for _, step := range steps {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init history: %w", err)
		}
	}
	return db, nil
}

func checkIntegrity(ctx context.Context, db *sql.DB) error {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return fmt.Errorf("quick_check: %s", chk)
	}
	return nil
}

// quarantine moves a broken database and its WAL files into .gcb/backups.
func quarantine(path string) error {
	bdir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if err := os.Rename(path, bak); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	return nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema so runMigrations can upgrade it
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureHistorySchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS drafts (
			id       INTEGER PRIMARY KEY,
			scene_id TEXT    NOT NULL,
			ts       TEXT    NOT NULL,
			body     BLOB    NOT NULL,
			bubbles  INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_scene_ts ON drafts(scene_id, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure history schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// v1 had no bubble count column
			if !hasColumn(ctx, db, "drafts", "bubbles") {
				stmts = append(stmts, `ALTER TABLE drafts ADD COLUMN bubbles INTEGER NOT NULL DEFAULT 0;`)
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) bool {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM pragma_table_info('%s')`, table))
	if err != nil {
		return false
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		if rows.Scan(&name) == nil && name == column {
			return true
		}
	}
	return false
}

func (h *History) Close() error { return h.db.Close() }

// Path returns the database file path.
func (h *History) Path() string { return h.path }

// language=SQL
// dialect=SQLite
const insertDraftSQL = `INSERT INTO drafts(scene_id, ts, body, bubbles) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listDraftsSQL = `SELECT id, scene_id, ts, body, bubbles FROM drafts WHERE scene_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneDraftsSQL = `DELETE FROM drafts WHERE scene_id = ? AND id NOT IN (
	SELECT id FROM drafts WHERE scene_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// SaveDraft appends d to the history of sceneID.
func (h *History) SaveDraft(ctx context.Context, sceneID string, d domain.Draft) error {
	body, err := MarshalDraft(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := h.db.ExecContext(ctx, insertDraftSQL, sceneID, ts, body, len(d.Bubbles)); err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// Latest returns the newest draft of sceneID; ok is false when there is none.
func (h *History) Latest(ctx context.Context, sceneID string) (Entry, bool, error) {
	es, err := h.List(ctx, sceneID, 1)
	if err != nil || len(es) == 0 {
		return Entry{}, false, err
	}
	return es[0], true, nil
}

// List returns up to limit drafts of sceneID, newest first.
func (h *History) List(ctx context.Context, sceneID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, listDraftsSQL, sceneID, limit)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			tsStr string
			body  []byte
		)
		if err := rows.Scan(&e.ID, &e.SceneID, &tsStr, &body, &e.Bubbles); err != nil {
			return nil, err
		}
		e.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		d, _, err := LoadDraftJSON(body)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", e.ID, err)
		}
		e.Draft = d
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep drafts of sceneID and deletes the rest.
func (h *History) Prune(ctx context.Context, sceneID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := h.db.ExecContext(ctx, pruneDraftsSQL, sceneID, sceneID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune drafts: %w", err)
	}
	return res.RowsAffected()
}

// Journal saves a draft into the workspace and records it in the history.
// A nil History only writes the workspace.
type Journal struct {
	Workspace *Workspace
	History   *History
	// Keep bounds the history per scene; zero keeps everything.
	Keep int
}

func (j Journal) SaveDraft(ctx context.Context, sceneID string, d domain.Draft) error {
	if err := j.Workspace.SaveDraft(ctx, sceneID, d); err != nil {
		return err
	}
	if j.History == nil {
		return nil
	}
	if err := j.History.SaveDraft(ctx, sceneID, d); err != nil {
		return err
	}
	_, err := j.History.Prune(ctx, sceneID, j.Keep)
	return err
}
