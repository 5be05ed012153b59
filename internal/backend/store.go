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
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when a scene has no stored draft or publication.
var ErrNotFound = errors.New("not found")

// DraftRecord is the stored draft of a scene. Body is the canonical draft JSON.
type DraftRecord struct {
	SceneID   string          `json:"scene_id"`
	Body      json.RawMessage `json:"draft"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Publication is one finished raster with the draft it was rendered from.
type Publication struct {
	SceneID     string
	BaseImageID string
	PNG         []byte
	Draft       json.RawMessage
	CreatedAt   time.Time
}

// Store persists drafts and publications.
type Store interface {
	Ping(ctx context.Context) error
	// PutDraft stores body and returns the new version.
	PutDraft(ctx context.Context, sceneID string, body []byte) (int64, error)
	GetDraft(ctx context.Context, sceneID string) (DraftRecord, error)
	AddPublication(ctx context.Context, p Publication) error
	// LatestPublication returns the most recent publication of a scene.
	LatestPublication(ctx context.Context, sceneID string) (Publication, error)
}

// MemoryStore keeps everything in process. Used in tests and by `serve --memory`.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]DraftRecord
	pubs   map[string][]Publication
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: map[string]DraftRecord{}, pubs: map[string][]Publication{}}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) PutDraft(_ context.Context, sceneID string, body []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.drafts[sceneID]
	rec.SceneID = sceneID
	rec.Body = append(json.RawMessage(nil), body...)
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	m.drafts[sceneID] = rec
	return rec.Version, nil
}

func (m *MemoryStore) GetDraft(_ context.Context, sceneID string) (DraftRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.drafts[sceneID]
	if !ok {
		return DraftRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) AddPublication(_ context.Context, p Publication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.pubs[p.SceneID] = append(m.pubs[p.SceneID], p)
	return nil
}

func (m *MemoryStore) LatestPublication(_ context.Context, sceneID string) (Publication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.pubs[sceneID]
	if len(list) == 0 {
		return Publication{}, ErrNotFound
	}
	return list[len(list)-1], nil
}

// PGStore stores drafts and publications in PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database with migrations applied.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) PutDraft(ctx context.Context, sceneID string, body []byte) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO drafts(scene_id, body) VALUES($1, $2)
		ON CONFLICT (scene_id) DO UPDATE SET body = EXCLUDED.body, version = drafts.version + 1, updated_at = now()
		RETURNING version`, sceneID, string(body)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("upsert draft: %w", err)
	}
	return version, nil
}

func (s *PGStore) GetDraft(ctx context.Context, sceneID string) (DraftRecord, error) {
	rec := DraftRecord{SceneID: sceneID}
	var body string
	row := s.db.QueryRowContext(ctx, `SELECT body, version, updated_at FROM drafts WHERE scene_id = $1`, sceneID)
	switch err := row.Scan(&body, &rec.Version, &rec.UpdatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return DraftRecord{}, ErrNotFound
	case err != nil:
		return DraftRecord{}, fmt.Errorf("select draft: %w", err)
	}
	rec.Body = json.RawMessage(body)
	return rec, nil
}

func (s *PGStore) AddPublication(ctx context.Context, p Publication) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO published(scene_id, base_image_id, raster, draft, created_at) VALUES($1,$2,$3,$4,$5)`,
		p.SceneID, p.BaseImageID, p.PNG, string(p.Draft), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

func (s *PGStore) LatestPublication(ctx context.Context, sceneID string) (Publication, error) {
	p := Publication{SceneID: sceneID}
	var draft string
	row := s.db.QueryRowContext(ctx, `SELECT base_image_id, raster, draft, created_at FROM published
		WHERE scene_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, sceneID)
	switch err := row.Scan(&p.BaseImageID, &p.PNG, &draft, &p.CreatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return Publication{}, ErrNotFound
	case err != nil:
		return Publication{}, fmt.Errorf("select publication: %w", err)
	}
	p.Draft = json.RawMessage(draft)
	return p, nil
}
