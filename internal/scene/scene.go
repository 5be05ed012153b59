/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene opens a scene workspace and wires it to an editing
// session: fonts, base image, autosave, history and the publisher chosen
// by configuration.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"gocomicbubbles/internal/assets"
	"gocomicbubbles/internal/backend"
	"gocomicbubbles/internal/config"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/editor"
	"gocomicbubbles/internal/export"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/storage"
	"gocomicbubbles/internal/textlayout"
)

// Options configures Open.
type Options struct {
	Config config.AppConfig
	// Token authenticates against the backend when publishing remotely.
	Token string
	// OnChange receives every session view. It may be called from any goroutine.
	OnChange func(editor.View)
}

// Scene is an open workspace with its editing session.
type Scene struct {
	Workspace *storage.Workspace
	// History is nil when the history database could not be opened.
	History   *storage.History
	Session   *editor.Session
	Autosaver *editor.Autosaver
	Fonts     *textlayout.FontLibrary
	Publisher editor.Publisher

	mu            sync.Mutex
	lastOffered   *domain.Draft
	autosaveEvery time.Duration
	log           *slog.Logger
}

// LoadFonts builds the font library, replacing the built-in faces with the
// configured files.
func LoadFonts(cfg config.EditorConfig) (*textlayout.FontLibrary, error) {
	lib := textlayout.NewFontLibrary()
	if cfg.FontRegular != "" {
		if err := lib.LoadTTF(textlayout.DefaultFamily, false, cfg.FontRegular); err != nil {
			return nil, err
		}
	}
	if cfg.FontBold != "" {
		if err := lib.LoadTTF(textlayout.DefaultFamily, true, cfg.FontBold); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// NewPublisher returns the local workspace publisher, fanned out to the
// backend when remote publishing is enabled.
func NewPublisher(cfg config.AppConfig, token string, ws *storage.Workspace) editor.Publisher {
	if !cfg.General.PublishRemote {
		return ws
	}
	return fanout{ws, backend.NewClientFromConfig(cfg.Backend, token)}
}

// fanout publishes to each target in order and stops at the first error.
type fanout []editor.Publisher

func (f fanout) Publish(ctx context.Context, p export.PublishPayload) error {
	for _, pub := range f {
		if err := pub.Publish(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Open opens the workspace at dir and starts a session on its draft. The
// base image is not loaded yet; call LoadImage.
func Open(dir string, opts Options) (*Scene, error) {
	ws, err := storage.OpenWorkspace(dir)
	if err != nil {
		return nil, err
	}
	fonts, err := LoadFonts(opts.Config.Editor)
	if err != nil {
		return nil, err
	}
	s := &Scene{
		Workspace:     ws,
		Fonts:         fonts,
		Publisher:     NewPublisher(opts.Config, opts.Token, ws),
		autosaveEvery: opts.Config.Editor.AutosaveInterval(),
		log:           applog.WithComponent("scene").With("scene", ws.Scene.SceneID),
	}
	if h, err := storage.OpenHistory(dir); err != nil {
		s.log.Warn("history unavailable", "err", err)
	} else {
		s.History = h
	}
	s.Autosaver = editor.NewAutosaver(
		storage.Journal{Workspace: ws, History: s.History, Keep: opts.Config.Editor.HistoryKeep},
		ws.Scene.SceneID, s.autosaveEvery)

	info := editor.SceneInfo{SceneID: ws.Scene.SceneID, BaseImageID: ws.Scene.BaseImageID}
	s.Session = editor.NewSession(info, ws.Scene.Draft, editor.Options{
		Fonts: fonts,
		OnChange: func(v editor.View) {
			s.offer(v.Draft)
			if opts.OnChange != nil {
				opts.OnChange(v)
			}
		},
	})
	for _, m := range ws.Migrations {
		s.log.Info("draft migrated", "note", m.String())
	}
	return s, nil
}

// offer hands changed drafts to the autosaver.
func (s *Scene) offer(d domain.Draft) {
	s.mu.Lock()
	if s.lastOffered != nil && reflect.DeepEqual(*s.lastOffered, d) {
		s.mu.Unlock()
		return
	}
	s.lastOffered = &d
	s.mu.Unlock()
	if _, err := s.Autosaver.Offer(context.Background(), d); err != nil {
		s.log.Error("autosave failed", "err", err)
	}
}

// StartAutosave flushes pending drafts in the background until ctx is done.
func (s *Scene) StartAutosave(ctx context.Context) {
	go func() {
		if err := s.Autosaver.Run(ctx, s.autosaveEvery); err != nil {
			s.log.Error("autosave loop stopped", "err", err)
		}
	}()
}

// LoadImage loads the base image and hands it to the session. A scene
// without a base image id takes the content hash of the image.
func (s *Scene) LoadImage(ctx context.Context, loader *assets.Loader) (*assets.Image, error) {
	ref := s.Workspace.ResolveImageRef()
	if ref == "" {
		return nil, errors.New("scene has no base image")
	}
	img, err := loader.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load base image: %w", err)
	}
	if err := s.Session.SetImage(img.Image); err != nil {
		return nil, err
	}
	if s.Session.Info().BaseImageID == "" {
		if err := s.Workspace.SetBaseImageID(img.ID); err != nil {
			return nil, err
		}
		s.Session.SetBaseImageID(img.ID)
	}
	return img, nil
}

// Publish saves pending edits and publishes the session.
func (s *Scene) Publish(ctx context.Context) (export.PublishPayload, error) {
	if err := s.Save(ctx); err != nil {
		return export.PublishPayload{}, err
	}
	return s.Session.Publish(ctx, s.Publisher)
}

// Save writes the current draft now.
func (s *Scene) Save(ctx context.Context) error {
	if _, err := s.Autosaver.Offer(ctx, s.Session.Draft()); err != nil {
		return err
	}
	return s.Autosaver.Flush(ctx)
}

// Close saves the draft and closes the history database.
func (s *Scene) Close(ctx context.Context) error {
	err := s.Save(ctx)
	if s.History != nil {
		err = errors.Join(err, s.History.Close())
	}
	return err
}
