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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/export"
	applog "gocomicbubbles/internal/log"
)

const (
	ManifestFileName = "scene.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"
	// FinalImageName is the flattened raster written on publish.
	FinalImageName = "final.png"
	// MaxBackups bounds the manifest backups kept in backups/.
	MaxBackups = 20
)

var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
	HistoryDirName,
}

// Scene is the content of scene.json.
type Scene struct {
	SceneID     string `json:"scene_id"`
	BaseImageID string `json:"base_image_id"`
	// BaseImageRef is a path relative to the workspace, an absolute path or
	// an http(s) URL.
	BaseImageRef string       `json:"base_image_ref"`
	Draft        domain.Draft `json:"draft"`
	PublishedAt  *time.Time   `json:"published_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Workspace is an opened scene directory.
type Workspace struct {
	Root         string
	ManifestPath string
	Scene        Scene
	// Migrations lists what the loader changed when the scene was opened.
	Migrations []Migration
	// FromBackup is set when scene.json was unreadable and a backup was used.
	FromBackup bool

	// mu serializes the saving methods.
	mu sync.Mutex
}

// InitWorkspace scaffolds a scene directory at root and writes scene.json.
func InitWorkspace(root string, scene Scene) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	if scene.Draft.Utterances == nil {
		scene.Draft = domain.NewDraft("")
	}
	ws := &Workspace{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Scene:        scene,
	}
	if err := Save(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// OpenWorkspace loads scene.json from root. An unreadable manifest falls
// back to the latest backup.
func OpenWorkspace(root string) (*Workspace, error) {
	mpath := filepath.Join(root, ManifestFileName)
	ws := &Workspace{Root: root, ManifestPath: mpath}
	b, err := os.ReadFile(mpath)
	if err == nil {
		var migs []Migration
		ws.Scene, migs, err = decodeScene(b)
		if err == nil {
			ws.Migrations = migs
			logMigrations(root, migs)
			return ws, nil
		}
	}
	scene, migs, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
	}
	applog.WithComponent("storage").Warn("scene.json unreadable, opened latest backup", "root", root, "err", err)
	ws.Scene, ws.Migrations, ws.FromBackup = scene, migs, true
	logMigrations(root, migs)
	return ws, nil
}

func logMigrations(root string, migs []Migration) {
	if len(migs) == 0 {
		return
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "migrate")
	for _, m := range migs {
		l.Info("draft migrated", "root", root, "target", m.Target, "note", m.Note)
	}
}

// decodeScene parses a manifest, running the draft through LoadDraftJSON.
func decodeScene(b []byte) (Scene, []Migration, error) {
	var raw struct {
		Scene
		Draft json.RawMessage `json:"draft"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Scene{}, nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(raw.Draft) == 0 {
		return Scene{}, nil, fmt.Errorf("parse manifest: %w: missing draft", ErrInvalidDraft)
	}
	d, migs, err := LoadDraftJSON(raw.Draft)
	if err != nil {
		return Scene{}, nil, err
	}
	s := raw.Scene
	s.Draft = d
	return s, migs, nil
}

// Save writes ws.Scene to scene.json with transactional semantics, keeping
// a timestamped backup of the previous manifest.
func Save(ws *Workspace) error {
	if ws == nil {
		return errors.New("nil Workspace")
	}
	if ws.Root == "" || ws.ManifestPath == "" {
		return errors.New("invalid Workspace: missing paths")
	}
	ws.Scene.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(ws.Scene, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ws.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(ws.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
		pruneBackups(bdir, MaxBackups)
	}
	if err := replaceFile(ws.ManifestPath, data); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// replaceFile writes data to a temp file next to path and renames it over
// path.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return nil
}

// ResolveImageRef returns where the base image lives: URLs and absolute
// paths unchanged, relative paths joined to the workspace root.
func (ws *Workspace) ResolveImageRef() string {
	ref := ws.Scene.BaseImageRef
	if ref == "" || filepath.IsAbs(ref) || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return filepath.Join(ws.Root, ref)
}

func (ws *Workspace) ExportsDir() string { return filepath.Join(ws.Root, ExportsDirName) }

// SaveDraft replaces the workspace draft and saves scene.json.
func (ws *Workspace) SaveDraft(_ context.Context, sceneID string, d domain.Draft) error {
	if sceneID != "" && sceneID != ws.Scene.SceneID {
		return fmt.Errorf("save draft: scene %q is not %q", sceneID, ws.Scene.SceneID)
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.Scene.Draft = d.Clone()
	return Save(ws)
}

// SetBaseImageID records the id of the base image and saves scene.json.
func (ws *Workspace) SetBaseImageID(id string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.Scene.BaseImageID = id
	return Save(ws)
}

// Publish writes the finished raster to exports/final.png and stamps the
// scene as published.
func (ws *Workspace) Publish(_ context.Context, p export.PublishPayload) error {
	data, err := p.Raster()
	if err != nil {
		return err
	}
	if err := export.WriteFile(filepath.Join(ws.ExportsDir(), FinalImageName), data); err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	now := time.Now().UTC()
	ws.Scene.Draft = p.Draft.Clone()
	ws.Scene.PublishedAt = &now
	return Save(ws)
}

// AutosaveCrashSnapshot writes the in-memory scene to a crash file in
// backups/ without touching scene.json.
func AutosaveCrashSnapshot(ws *Workspace) (string, error) {
	if ws == nil || ws.Root == "" {
		return "", errors.New("nil Workspace")
	}
	data, err := json.MarshalIndent(ws.Scene, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal scene: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(ws.Root, BackupsDirName, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, stamp))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup loads the newest readable manifest backup.
func manifestBackups(bdir string) ([]string, error) {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func pruneBackups(bdir string, keep int) {
	list, err := manifestBackups(bdir)
	if err != nil || len(list) <= keep {
		return
	}
	for _, p := range list[:len(list)-keep] {
		if err := os.Remove(p); err != nil {
			applog.WithComponent("storage").Warn("remove old backup", "path", p, "err", err)
		}
	}
}

func openFromLatestBackup(root string) (Scene, []Migration, error) {
	candidates, err := manifestBackups(filepath.Join(root, BackupsDirName))
	if err != nil {
		return Scene{}, nil, fmt.Errorf("read backups dir: %w", err)
	}
	if len(candidates) == 0 {
		return Scene{}, nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = err
			continue
		}
		scene, migs, err := decodeScene(b)
		if err != nil {
			lastErr = err
			continue
		}
		return scene, migs, nil
	}
	return Scene{}, nil, fmt.Errorf("no readable backup: %w", lastErr)
}
