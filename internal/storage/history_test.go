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
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocomicbubbles/internal/domain"
)

func TestHistoryCRUD(t *testing.T) {
	root := t.TempDir()
	h, err := OpenHistory(root)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()
	ctx := context.Background()

	if _, ok, err := h.Latest(ctx, "scene-1"); err != nil || ok {
		t.Fatalf("empty history Latest ok=%v err=%v", ok, err)
	}
	d := domain.NewDraft("v0")
	for i := 0; i < 6; i++ {
		d.Utterances[0].Text = fmt.Sprintf("v%d", i)
		if err := h.SaveDraft(ctx, "scene-1", d); err != nil {
			t.Fatalf("SaveDraft %d: %v", i, err)
		}
	}
	if err := h.SaveDraft(ctx, "scene-2", d); err != nil {
		t.Fatalf("SaveDraft other scene: %v", err)
	}

	latest, ok, err := h.Latest(ctx, "scene-1")
	if err != nil || !ok {
		t.Fatalf("Latest ok=%v err=%v", ok, err)
	}
	if latest.Draft.Utterances[0].Text != "v5" || latest.SceneID != "scene-1" {
		t.Fatalf("Latest = %+v", latest)
	}
	list, err := h.List(ctx, "scene-1", 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("List got %d err %v", len(list), err)
	}

	n, err := h.Prune(ctx, "scene-1", 3)
	if err != nil || n != 3 {
		t.Fatalf("Prune deleted %d err %v", n, err)
	}
	list, _ = h.List(ctx, "scene-1", 10)
	if len(list) != 3 || list[2].Draft.Utterances[0].Text != "v3" {
		t.Fatalf("after prune: %d entries", len(list))
	}
	if other, _ := h.List(ctx, "scene-2", 10); len(other) != 1 {
		t.Fatalf("prune touched another scene: %d", len(other))
	}
}

func TestHistoryRecordsBubbleCount(t *testing.T) {
	h, err := OpenHistory(t.TempDir())
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()
	d := domain.NewDraft("x")
	_, _ = d.AddBubble(domain.Caption, d.Utterances[0].ID, domain.Point{})
	_, _ = d.AddBubble(domain.Telop, d.Utterances[0].ID, domain.Point{})
	if err := h.SaveDraft(context.Background(), "s", d); err != nil {
		t.Fatal(err)
	}
	e, _, _ := h.Latest(context.Background(), "s")
	if e.Bubbles != 2 || e.TS.IsZero() {
		t.Fatalf("entry = %+v", e)
	}
}

func TestHistoryMigratesV1(t *testing.T) {
	root := t.TempDir()
	path := HistoryPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mk .gcb: %v", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)", filepath.ToSlash(path)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE drafts (id INTEGER PRIMARY KEY, scene_id TEXT NOT NULL, ts TEXT NOT NULL, body BLOB NOT NULL);`,
		`INSERT INTO drafts(scene_id, ts, body) VALUES('s', '2020-01-01T00:00:00Z', '{"utterances":[{"id":"u","text":"old"}],"bubbles":[]}');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	h, err := OpenHistory(root)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()
	var schema int
	if err := h.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
	e, ok, err := h.Latest(ctx, "s")
	if err != nil || !ok || e.Draft.Utterances[0].Text != "old" || e.Bubbles != 0 {
		t.Fatalf("old row after migration: %+v ok=%v err=%v", e, ok, err)
	}
}

func TestHistoryReplacesCorruptFile(t *testing.T) {
	root := t.TempDir()
	path := HistoryPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE, JUST PADDING TO LOOK LIKE A HEADER......."), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	h, err := OpenHistory(root)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()
	if err := h.SaveDraft(context.Background(), "s", domain.NewDraft("fresh")); err != nil {
		t.Fatalf("SaveDraft after rebuild: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, HistoryDirName, "backups"))
	if len(entries) == 0 {
		t.Fatalf("corrupt file was not kept as a backup")
	}
}

func TestJournalWritesWorkspaceAndHistory(t *testing.T) {
	root := t.TempDir()
	ws, err := InitWorkspace(root, Scene{SceneID: "s", BaseImageRef: "page.png"})
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	h, err := OpenHistory(root)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()
	ctx := context.Background()
	j := Journal{Workspace: ws, History: h, Keep: 2}

	d := domain.NewDraft("first")
	for i := 0; i < 4; i++ {
		d.Utterances[0].Text = fmt.Sprintf("line %d", i)
		if err := j.SaveDraft(ctx, "s", d); err != nil {
			t.Fatalf("journal save %d: %v", i, err)
		}
	}
	reopened, err := OpenWorkspace(root)
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	if got := reopened.Scene.Draft.Utterances[0].Text; got != "line 3" {
		t.Fatalf("workspace draft text = %q", got)
	}
	list, err := h.List(ctx, "s", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("history kept %d err %v", len(list), err)
	}

	if err := (Journal{Workspace: ws}).SaveDraft(ctx, "s", d); err != nil {
		t.Fatalf("journal without history: %v", err)
	}
}
