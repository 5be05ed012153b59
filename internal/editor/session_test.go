/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"gocomicbubbles/internal/coords"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/export"
	"gocomicbubbles/internal/interact"
	"gocomicbubbles/internal/validate"
)

func baseImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 90, G: 120, B: 160, A: 255}}, image.Point{}, draw.Src)
	return img
}

type publishFunc func(ctx context.Context, p export.PublishPayload) error

func (f publishFunc) Publish(ctx context.Context, p export.PublishPayload) error { return f(ctx, p) }

type memSaver struct {
	mu     sync.Mutex
	drafts []domain.Draft
	err    error
}

func (m *memSaver) SaveDraft(_ context.Context, _ string, d domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.drafts = append(m.drafts, d)
	return nil
}

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// readySession is a 1000x800 image shown in a 500x400 container.
func readySession(t *testing.T, text string) (*Session, *int) {
	t.Helper()
	changes := 0
	s := NewSession(SceneInfo{SceneID: "scene-1", BaseImageID: "img-1"}, domain.NewDraft(text), Options{
		OnChange: func(View) { changes++ },
	})
	s.SetContainer(500, 400)
	mustNil(t, s.SetImage(baseImage(1000, 800)))
	return s, &changes
}

func addBubble(t *testing.T, s *Session, typ domain.Archetype) domain.Bubble {
	t.Helper()
	b, err := s.AddBubble(typ, s.Draft().Utterances[0].ID)
	mustNil(t, err)
	return b
}

func bubbleOf(t *testing.T, s *Session, id string) domain.Bubble {
	t.Helper()
	d := s.Draft()
	b, ok := d.Bubble(id)
	if !ok {
		t.Fatalf("bubble %s not found", id)
	}
	return *b
}

func TestSessionWaitsForImage(t *testing.T) {
	s := NewSession(SceneInfo{SceneID: "s"}, domain.NewDraft("hi"), Options{})
	v := s.View()
	if v.Rect != nil || v.Validation.Ready || v.Validation.OK {
		t.Fatalf("a new session is not ready: %+v", v.Validation)
	}

	s.SetContainer(500, 400)
	if s.View().Rect != nil {
		t.Fatalf("no rect before the image is known")
	}
	mustNil(t, s.SetImage(baseImage(1000, 800)))
	v = s.View()
	if v.Rect == nil || math.Abs(v.Rect.Scale-0.5) > 1e-12 {
		t.Fatalf("unexpected rect %+v", v.Rect)
	}
	if !v.Validation.Ready || !v.Validation.OK {
		t.Fatalf("expected ready and ok: %+v", v.Validation)
	}

	if err := s.SetImage(nil); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestAddBubbleAvoidsOverlap(t *testing.T) {
	s, changes := readySession(t, "Hi")
	before := *changes
	a := addBubble(t, s, domain.SpeechRound)
	b := addBubble(t, s, domain.SpeechRound)
	if *changes != before+2 {
		t.Fatalf("expected two change notifications, got %d", *changes-before)
	}

	natural := s.View().Natural
	ra := coords.BubbleRectNatural(a, natural)
	rb := coords.BubbleRectNatural(b, natural)
	if ra.Intersects(rb) && ra.Intersection(rb).Area() >= 1e-3 {
		t.Fatalf("bubbles overlap: a=%v b=%v", ra, rb)
	}
	if res := s.Validation(); !res.OK {
		t.Fatalf("placed bubbles should validate: %+v", res.Errors)
	}
}

func TestCapacityErrorLeavesSessionUntouched(t *testing.T) {
	s, changes := readySession(t, "Hi")
	for i := 0; i < domain.MaxBubbles; i++ {
		addBubble(t, s, domain.Caption)
	}
	before := *changes
	_, err := s.AddBubble(domain.Caption, s.Draft().Utterances[0].ID)
	var ce *domain.CapacityError
	if !errors.As(err, &ce) || !errors.Is(err, domain.ErrTooManyBubbles) {
		t.Fatalf("expected a bubble CapacityError, got %v", err)
	}
	if *changes != before || len(s.Draft().Bubbles) != domain.MaxBubbles {
		t.Fatalf("rejected add changed the session")
	}
}

func TestEveryEditRevalidates(t *testing.T) {
	s, _ := readySession(t, "Hi")
	b := addBubble(t, s, domain.SpeechRound)
	if !s.Validation().OK {
		t.Fatalf("expected ok after add")
	}

	mustNil(t, s.SetBubblePosition(b.ID, domain.Point{X: 0.9, Y: 0.9}))
	res := s.Validation()
	if errs := res.ForBubble(b.ID); res.OK || len(errs) != 1 || errs[0].Type != validate.OutOfBounds {
		t.Fatalf("expected OUT_OF_BOUNDS, got %+v", res)
	}

	mustNil(t, s.SetBubblePosition(b.ID, domain.Point{X: 0.1, Y: 0.1}))
	if !s.Validation().OK {
		t.Fatalf("expected ok after moving back")
	}
}

func TestSizeChangesKeepBubbleInside(t *testing.T) {
	s, _ := readySession(t, "Hi")
	b := addBubble(t, s, domain.SpeechRound)
	// flush against the right edge at M
	edge := (1000 - coords.DragMarginPx - 360) / 1000
	mustNil(t, s.SetBubblePosition(b.ID, domain.Point{X: edge, Y: 0.1}))
	if !s.Validation().OK {
		t.Fatalf("expected ok at the edge: %+v", s.Validation().Errors)
	}

	mustNil(t, s.SetSizePreset(b.ID, domain.SizeL))
	got := bubbleOf(t, s, b.ID)
	if want := (1000 - coords.DragMarginPx - 450) / 1000; math.Abs(got.Position.X-want) > 1e-9 {
		t.Fatalf("larger preset not pulled back: x=%v want %v", got.Position.X, want)
	}
	if !s.Validation().OK {
		t.Fatalf("preset change left the bubble out of bounds: %+v", s.Validation().Errors)
	}

	mustNil(t, s.SetBubbleType(b.ID, domain.Telop))
	if !s.Validation().OK {
		t.Fatalf("type change left the bubble out of bounds: %+v", s.Validation().Errors)
	}

	mustNil(t, s.SetCustomSize(b.ID, domain.NormSize{W: 0.5, H: 0.1}))
	got = bubbleOf(t, s, b.ID)
	if got.Position.X*1000+500 > 1000-coords.DragMarginPx+1e-9 {
		t.Fatalf("custom size left the bubble past the edge: %+v", got.Position)
	}
}

func TestPointerDragAndDelete(t *testing.T) {
	s, _ := readySession(t, "Hi")
	b := addBubble(t, s, domain.SpeechRound)
	v := s.View()
	box := coords.BubbleRectDisplay(b, v.Rect)

	// drag the body 20px to the right
	grab := box.Center()
	h, err := s.PointerDown(grab.X, grab.Y-10)
	mustNil(t, err)
	if h.Target != interact.TargetBody || s.View().Pointer != interact.DraggingBody {
		t.Fatalf("expected a body drag, got %+v", h)
	}
	moved, err := s.PointerMove(grab.X+20, grab.Y-10)
	mustNil(t, err)
	if !moved {
		t.Fatalf("move reported no change")
	}
	mustNil(t, s.PointerUp())
	got := bubbleOf(t, s, b.ID)
	if math.Abs(got.Position.X-(b.Position.X+20.0/500)) > 1e-9 || s.View().Pointer != interact.Idle {
		t.Fatalf("unexpected drag result: %+v", got.Position)
	}

	// press on the delete glyph
	box = coords.BubbleRectDisplay(got, v.Rect)
	h, err = s.PointerDown(box.X+box.W-1, box.Y+1)
	mustNil(t, err)
	if h.Target != interact.TargetDelete || len(s.Draft().Bubbles) != 0 || s.View().Pointer != interact.Idle {
		t.Fatalf("delete glyph did not delete: %+v", h)
	}
}

func TestPublish(t *testing.T) {
	s, _ := readySession(t, "Hello there")
	addBubble(t, s, domain.SpeechOval)
	before := s.Draft()

	var got export.PublishPayload
	payload, err := s.Publish(context.Background(), publishFunc(func(_ context.Context, p export.PublishPayload) error {
		got = p
		return nil
	}))
	mustNil(t, err)
	if payload.FinishedRaster != got.FinishedRaster || got.SceneID != "scene-1" || got.BaseImageID != "img-1" {
		t.Fatalf("unexpected payload: scene=%q image=%q", got.SceneID, got.BaseImageID)
	}
	if !reflect.DeepEqual(before, got.Draft) {
		t.Fatalf("payload draft differs from the session draft")
	}

	raw, err := got.Raster()
	mustNil(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	mustNil(t, err)
	if img.Bounds() != image.Rect(0, 0, 1000, 800) {
		t.Fatalf("raster is %v", img.Bounds())
	}

	if s.View().Publishing || !reflect.DeepEqual(before, s.Draft()) {
		t.Fatalf("publish must leave the session as it was")
	}
}

func TestPublishRefusesInvalidDraft(t *testing.T) {
	s, _ := readySession(t, "Hi")
	b := addBubble(t, s, domain.Telop)
	mustNil(t, s.SetBubblePosition(b.ID, domain.Point{X: 0.5, Y: 0.95}))

	called := false
	_, err := s.Publish(context.Background(), publishFunc(func(context.Context, export.PublishPayload) error {
		called = true
		return nil
	}))
	var inv *InvalidDraftError
	if !errors.As(err, &inv) || len(inv.Errors) != 1 || inv.Errors[0].Type != validate.OutOfBounds {
		t.Fatalf("expected an InvalidDraftError with one OUT_OF_BOUNDS, got %v", err)
	}
	if called || s.View().Publishing {
		t.Fatalf("invalid draft reached the publisher")
	}
}

func TestEditsRejectedWhilePublishing(t *testing.T) {
	s, _ := readySession(t, "Hi")
	uid := s.Draft().Utterances[0].ID
	addBubble(t, s, domain.SpeechRound)

	_, err := s.Publish(context.Background(), publishFunc(func(context.Context, export.PublishPayload) error {
		if !s.View().Publishing {
			t.Errorf("view does not show publishing")
		}
		if err := s.UpdateUtteranceText(uid, "late edit"); !errors.Is(err, ErrPublishing) {
			t.Errorf("edit during publish: %v", err)
		}
		if _, err := s.PointerDown(10, 10); !errors.Is(err, ErrPublishing) {
			t.Errorf("pointer during publish: %v", err)
		}
		_, err := s.Publish(context.Background(), publishFunc(func(context.Context, export.PublishPayload) error { return nil }))
		if !errors.Is(err, ErrPublishing) {
			t.Errorf("second publish: %v", err)
		}
		return nil
	}))
	mustNil(t, err)
	if text := s.Draft().Utterances[0].Text; text != "Hi" {
		t.Fatalf("late edit leaked in: %q", text)
	}
	mustNil(t, s.UpdateUtteranceText(uid, "now allowed"))
}

func TestPublishFailureKeepsDraft(t *testing.T) {
	s, _ := readySession(t, "Hi")
	addBubble(t, s, domain.Thought)
	before := s.Draft()

	boom := errors.New("backend down")
	_, err := s.Publish(context.Background(), publishFunc(func(context.Context, export.PublishPayload) error { return boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("expected the publisher error, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Draft()) || s.View().Publishing {
		t.Fatalf("failed publish changed the session")
	}
}

func TestPublishWithoutImage(t *testing.T) {
	s := NewSession(SceneInfo{}, domain.NewDraft("x"), Options{})
	_, err := s.Publish(context.Background(), publishFunc(func(context.Context, export.PublishPayload) error { return nil }))
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestAutosaverCoalesces(t *testing.T) {
	saver := &memSaver{}
	a := NewAutosaver(saver, "scene-1", time.Hour)
	d := domain.NewDraft("one")

	saved, err := a.Offer(context.Background(), d)
	mustNil(t, err)
	if !saved {
		t.Fatalf("first offer should save")
	}

	d.Utterances[0].Text = "two"
	saved, err = a.Offer(context.Background(), d)
	mustNil(t, err)
	if saved {
		t.Fatalf("second offer inside the interval should wait")
	}
	d.Utterances[0].Text = "three"
	_, _ = a.Offer(context.Background(), d)
	if !a.Pending() {
		t.Fatalf("expected a pending draft")
	}

	mustNil(t, a.Flush(context.Background()))
	if a.Pending() || len(saver.drafts) != 2 || saver.drafts[1].Utterances[0].Text != "three" || a.Saves() != 2 {
		t.Fatalf("flush should save the latest draft once, saves=%d", a.Saves())
	}
	mustNil(t, a.Flush(context.Background()))
	if a.Saves() != 2 {
		t.Fatalf("empty flush saved again")
	}
}

func TestAutosaverKeepsDraftOnError(t *testing.T) {
	saver := &memSaver{err: errors.New("disk full")}
	a := NewAutosaver(saver, "scene-1", time.Hour)
	_, err := a.Offer(context.Background(), domain.NewDraft("x"))
	if err == nil || !strings.Contains(err.Error(), "scene-1") {
		t.Fatalf("expected an error naming the scene, got %v", err)
	}
	if !a.Pending() {
		t.Fatalf("failed save must stay pending")
	}
}

func TestAutosaverRunFlushesOnCancel(t *testing.T) {
	saver := &memSaver{}
	a := NewAutosaver(saver, "scene-1", time.Hour)
	_, _ = a.Offer(context.Background(), domain.NewDraft("first"))
	_, _ = a.Offer(context.Background(), domain.NewDraft("second"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mustNil(t, a.Run(ctx, time.Hour))
	if len(saver.drafts) != 2 || saver.drafts[1].Utterances[0].Text != "second" {
		t.Fatalf("cancel should flush the pending draft, got %d saves", len(saver.drafts))
	}
}
