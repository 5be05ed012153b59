/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocomicbubbles/internal/assets"
	"gocomicbubbles/internal/config"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/editor"
	"gocomicbubbles/internal/export"
	"gocomicbubbles/internal/storage"
)

func initWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{A: 255})
	f, err := os.Create(filepath.Join(dir, "page.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	if _, err := storage.InitWorkspace(dir, storage.Scene{
		SceneID:      "scene-1",
		BaseImageRef: "page.png",
		Draft:        domain.NewDraft("Where are we?"),
	}); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	return dir
}

func openScene(t *testing.T, dir string, cfg config.AppConfig) *Scene {
	t.Helper()
	s, err := Open(dir, Options{Config: cfg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	if _, err := s.LoadImage(context.Background(), assets.NewLoader(time.Minute, nil)); err != nil {
		t.Fatalf("load image: %v", err)
	}
	return s
}

func TestOpenEditSaveReopen(t *testing.T) {
	dir := initWorkspace(t)
	cfg := config.Defaults()
	s := openScene(t, dir, cfg)

	info := s.Session.Info()
	if !strings.HasPrefix(info.BaseImageID, "sha256:") {
		t.Fatalf("base image id = %q", info.BaseImageID)
	}
	uid := s.Session.Draft().Utterances[0].ID
	b, err := s.Session.AddBubble(domain.Thought, uid)
	if err != nil {
		t.Fatalf("add bubble: %v", err)
	}
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	ws, err := storage.OpenWorkspace(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(ws.Scene.Draft.Bubbles) != 1 || ws.Scene.Draft.Bubbles[0].ID != b.ID {
		t.Fatalf("saved bubbles = %+v", ws.Scene.Draft.Bubbles)
	}
	if ws.Scene.BaseImageID != info.BaseImageID {
		t.Fatalf("base image id not persisted: %q", ws.Scene.BaseImageID)
	}
	if s.History == nil {
		t.Fatal("history not opened")
	}
	if _, ok, err := s.History.Latest(context.Background(), "scene-1"); err != nil || !ok {
		t.Fatalf("history latest ok=%v err=%v", ok, err)
	}
}

func TestPublishWritesFinalImage(t *testing.T) {
	dir := initWorkspace(t)
	s := openScene(t, dir, config.Defaults())
	uid := s.Session.Draft().Utterances[0].ID
	if _, err := s.Session.AddBubble(domain.SpeechOval, uid); err != nil {
		t.Fatal(err)
	}
	p, err := s.Publish(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.SceneID != "scene-1" || len(p.Draft.Bubbles) != 1 {
		t.Fatalf("payload = %+v", p.SceneID)
	}
	f, err := os.Open(filepath.Join(dir, storage.ExportsDirName, storage.FinalImageName))
	if err != nil {
		t.Fatalf("final image: %v", err)
	}
	defer func() { _ = f.Close() }()
	cfg, err := png.DecodeConfig(f)
	if err != nil || cfg.Width != 800 || cfg.Height != 600 {
		t.Fatalf("final image config %+v err %v", cfg, err)
	}
}

func TestOpenMissingWorkspace(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope"), Options{Config: config.Defaults()}); err == nil {
		t.Fatal("expected error for missing workspace")
	}
}

func TestLoadFontsBadPath(t *testing.T) {
	if _, err := LoadFonts(config.EditorConfig{FontRegular: filepath.Join(t.TempDir(), "missing.ttf")}); err == nil {
		t.Fatal("expected font load error")
	}
	lib, err := LoadFonts(config.EditorConfig{})
	if err != nil || lib == nil {
		t.Fatalf("default fonts: %v", err)
	}
}

type recordPublisher struct {
	calls *[]string
	name  string
	err   error
}

func (r recordPublisher) Publish(context.Context, export.PublishPayload) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestPublisherSelection(t *testing.T) {
	dir := initWorkspace(t)
	ws, err := storage.OpenWorkspace(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	if _, ok := NewPublisher(cfg, "", ws).(*storage.Workspace); !ok {
		t.Fatal("local publishing should use the workspace")
	}
	cfg.General.PublishRemote = true
	if _, ok := NewPublisher(cfg, "tok", ws).(fanout); !ok {
		t.Fatal("remote publishing should fan out")
	}

	var calls []string
	boom := errors.New("boom")
	f := fanout{
		recordPublisher{calls: &calls, name: "a"},
		recordPublisher{calls: &calls, name: "b", err: boom},
		recordPublisher{calls: &calls, name: "c"},
	}
	var _ editor.Publisher = f
	if err := f.Publish(context.Background(), export.PublishPayload{}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if strings.Join(calls, ",") != "a,b" {
		t.Fatalf("calls = %v", calls)
	}
}
