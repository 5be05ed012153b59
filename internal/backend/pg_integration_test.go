/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"gocomicbubbles/internal/config"
	"gocomicbubbles/internal/storage"
)

func openPGForTest(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv(config.EnvDatabaseURL)
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		dsn = config.Defaults().Server.DatabaseURL
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("cannot open postgres: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Skipf("postgres not available: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func TestPGStore_DraftsAndPublications(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// migrations are idempotent
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("reapply migrations: %v", err)
	}

	s := NewPGStore(db)
	scene := "it-" + uuid.NewString()
	if _, err := s.GetDraft(ctx, scene); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	body, err := storage.MarshalDraft(testDraft(t))
	if err != nil {
		t.Fatal(err)
	}
	for want := int64(1); want <= 2; want++ {
		v, err := s.PutDraft(ctx, scene, body)
		if err != nil || v != want {
			t.Fatalf("put draft: v=%d err=%v", v, err)
		}
	}
	rec, err := s.GetDraft(ctx, scene)
	if err != nil || rec.Version != 2 {
		t.Fatalf("get draft: %+v %v", rec, err)
	}
	if _, _, err := storage.LoadDraftJSON(rec.Body); err != nil {
		t.Fatalf("stored draft does not load: %v", err)
	}

	if _, err := s.LatestPublication(ctx, scene); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	raster := testPNG(t)
	first := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	if err := s.AddPublication(ctx, Publication{SceneID: scene, BaseImageID: "a", PNG: raster, Draft: body, CreatedAt: first}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPublication(ctx, Publication{SceneID: scene, BaseImageID: "b", PNG: raster, Draft: body}); err != nil {
		t.Fatal(err)
	}
	p, err := s.LatestPublication(ctx, scene)
	if err != nil || p.BaseImageID != "b" || len(p.PNG) != len(raster) {
		t.Fatalf("latest publication: %+v %v", p.BaseImageID, err)
	}
}
