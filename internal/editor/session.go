/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns one editing session: the draft, the image geometry
// it is edited against, the pointer controller and the latest validation.
// All mutations go through a Session so validation can never go stale.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"gocomicbubbles/internal/coords"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/export"
	"gocomicbubbles/internal/interact"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/render"
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/validate"
	"gocomicbubbles/internal/vector"
)

// ErrPublishing rejects edits while a publish is running.
var ErrPublishing = errors.New("editor: publish in progress")

// ErrNoImage is returned by operations that need the base image.
var ErrNoImage = errors.New("editor: base image not loaded")

// InvalidDraftError refuses a publish of a draft with validation errors.
type InvalidDraftError struct {
	Errors []validate.Error
}

func (e *InvalidDraftError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Message
	}
	return "draft is not publishable: " + strings.Join(msgs, "; ")
}

// DraftSaver persists drafts.
type DraftSaver interface {
	SaveDraft(ctx context.Context, sceneID string, d domain.Draft) error
}

// Publisher receives finished scenes.
type Publisher interface {
	Publish(ctx context.Context, p export.PublishPayload) error
}

// SceneInfo identifies what is being edited.
type SceneInfo struct {
	SceneID     string `json:"scene_id"`
	BaseImageID string `json:"base_image_id"`
}

// View is a consistent copy of the session state.
type View struct {
	Info       SceneInfo
	Draft      domain.Draft
	Rect       *coords.ContainedRect
	Natural    vector.Size
	Validation validate.Result
	Pointer    interact.State
	Active     string
	Publishing bool
}

// Options configures a Session. Zero values pick defaults.
type Options struct {
	Fonts    *textlayout.FontLibrary
	Measurer textlayout.Measurer
	// OnChange runs after every successful mutation, outside the lock.
	OnChange func(View)
}

type Session struct {
	mu sync.Mutex

	info       SceneInfo
	draft      domain.Draft
	base       image.Image
	natural    vector.Size
	container  vector.Size
	rect       *coords.ContainedRect
	ctl        *interact.Controller
	fonts      *textlayout.FontLibrary
	m          textlayout.Measurer
	last       validate.Result
	publishing bool
	onChange   func(View)
	log        *slog.Logger
}

// NewSession starts editing d. Rendering and validation wait for SetImage.
func NewSession(info SceneInfo, d domain.Draft, opts Options) *Session {
	if opts.Fonts == nil {
		opts.Fonts = textlayout.NewFontLibrary()
	}
	if opts.Measurer == nil {
		opts.Measurer = textlayout.NewOTMeasurer(opts.Fonts)
	}
	s := &Session{
		info:     info,
		draft:    d.Clone(),
		ctl:      interact.NewController(),
		fonts:    opts.Fonts,
		m:        opts.Measurer,
		onChange: opts.OnChange,
		log:      applog.WithComponent("editor").With("scene", info.SceneID),
	}
	s.revalidateLocked()
	return s
}

func (s *Session) revalidateLocked() {
	s.last = validate.Validate(&s.draft, s.natural, s.m)
}

func (s *Session) viewLocked() View {
	v := View{
		Info:       s.info,
		Draft:      s.draft.Clone(),
		Natural:    s.natural,
		Validation: s.last,
		Pointer:    s.ctl.State(),
		Active:     s.ctl.ActiveBubble(),
		Publishing: s.publishing,
	}
	if s.rect != nil {
		r := *s.rect
		v.Rect = &r
	}
	return v
}

// commit revalidates, releases the lock and notifies. Callers hold s.mu.
func (s *Session) commit() {
	s.revalidateLocked()
	v := s.viewLocked()
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

// edit runs fn against the draft under the session lock.
func (s *Session) edit(op string, fn func(d *domain.Draft) error) error {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return ErrPublishing
	}
	if err := fn(&s.draft); err != nil {
		s.mu.Unlock()
		s.log.Debug("edit rejected", "op", op, "err", err)
		return err
	}
	s.commit()
	return nil
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() domain.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Validation returns the result of the last revalidation.
func (s *Session) Validation() validate.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) Info() SceneInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SetBaseImageID records the id of a base image identified after the
// session started.
func (s *Session) SetBaseImageID(id string) {
	s.mu.Lock()
	s.info.BaseImageID = id
	s.mu.Unlock()
}

// SetImage sets the base image; its bounds become the natural size.
func (s *Session) SetImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("set image: %w", ErrNoImage)
	}
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return ErrPublishing
	}
	s.base = img
	s.natural = vector.Size{W: float64(img.Bounds().Dx()), H: float64(img.Bounds().Dy())}
	s.rect = coords.ComputeContainedRect(s.container, s.natural)
	s.commit()
	return nil
}

// Base returns the base image, or nil before SetImage.
func (s *Session) Base() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// SetContainer records the preview area size in display pixels.
func (s *Session) SetContainer(w, h float64) {
	s.mu.Lock()
	s.container = vector.Size{W: w, H: h}
	s.rect = coords.ComputeContainedRect(s.container, s.natural)
	s.commit()
}

// RenderPreview draws the draft onto a display-sized surface. It returns
// nil until both image and container are known.
func (s *Session) RenderPreview(surf render.Surface, showHandles bool) []render.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render.RenderPreview(surf, &s.draft, s.rect, showHandles)
}
