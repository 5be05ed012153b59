/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"gocomicbubbles/internal/coords"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/vector"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func addBubble(t *testing.T, d *domain.Draft, typ domain.Archetype, uid string, pos domain.Point) {
	t.Helper()
	if _, err := d.AddBubble(typ, uid, pos); err != nil {
		t.Fatalf("add %s: %v", typ, err)
	}
}

func sampleDraft(t *testing.T) domain.Draft {
	t.Helper()
	d := domain.NewDraft("Hello world, this is a test.")
	uid := d.Utterances[0].ID
	u2, err := d.AddUtterance(domain.SpeakerNarration, "", "Meanwhile, far away...")
	if err != nil {
		t.Fatalf("add utterance: %v", err)
	}
	addBubble(t, &d, domain.SpeechRound, uid, domain.Point{X: 0.1, Y: 0.1})
	addBubble(t, &d, domain.SpeechOval, uid, domain.Point{X: 0.5, Y: 0.2})
	addBubble(t, &d, domain.Caption, u2.ID, domain.Point{X: 0.05, Y: 0.7})
	addBubble(t, &d, domain.Thought, uid, domain.Point{X: 0.6, Y: 0.6})
	addBubble(t, &d, domain.MonologueVertical, u2.ID, domain.Point{X: 0.85, Y: 0.05})
	return d
}

func TestPreviewMatchesExportGeometry(t *testing.T) {
	d := sampleDraft(t)
	natural := vector.Size{W: 1600, H: 900}
	rect := coords.ComputeContainedRect(vector.Size{W: 800, H: 800}, natural)
	if rect == nil {
		t.Fatalf("expected a contained rect")
	}

	exp := NewRecorder(nil)
	RenderExport(exp, &d, natural)
	pre := NewRecorder(nil)
	RenderPreview(pre, &d, rect, false)

	if len(exp.Ops) != len(pre.Ops) {
		t.Fatalf("export drew %d ops, preview %d", len(exp.Ops), len(pre.Ops))
	}
	toDisplay := func(p vector.Pt) vector.Pt {
		return vector.Pt{X: rect.OffsetX + p.X*rect.Scale, Y: rect.OffsetY + p.Y*rect.Scale}
	}
	for i := range exp.Ops {
		e, p := exp.Ops[i], pre.Ops[i]
		if e.Kind != p.Kind || e.Text != p.Text {
			t.Fatalf("op %d: export %s %q, preview %s %q", i, e.Kind, e.Text, p.Kind, p.Text)
		}
		ep, pp := e.Path.Points(), p.Path.Points()
		if len(ep) != len(pp) {
			t.Fatalf("op %d: %d points vs %d", i, len(ep), len(pp))
		}
		for j := range ep {
			want := toDisplay(ep[j])
			if !near(want.X, pp[j].X, 1e-6) || !near(want.Y, pp[j].Y, 1e-6) {
				t.Fatalf("op %d point %d: want %v got %v", i, j, want, pp[j])
			}
		}
		if e.Text != "" {
			want := toDisplay(e.At)
			if !near(want.X, p.At.X, 1e-6) || !near(want.Y, p.At.Y, 1e-6) || !near(e.FontPx*rect.Scale, p.FontPx, 1e-9) {
				t.Fatalf("op %d: text placed at %v size %v, want %v size %v", i, p.At, p.FontPx, want, e.FontPx*rect.Scale)
			}
		}
		if !near(e.Width*rect.Scale, p.Width, 1e-9) {
			t.Fatalf("op %d: width %v, want %v", i, p.Width, e.Width*rect.Scale)
		}
	}
	if exp.Depth() != 0 || pre.Depth() != 0 {
		t.Fatalf("unbalanced push/pop: %d %d", exp.Depth(), pre.Depth())
	}
}

func TestHandlesOnlyAddOps(t *testing.T) {
	d := sampleDraft(t)
	rect := coords.ComputeContainedRect(vector.Size{W: 500, H: 500}, vector.Size{W: 1000, H: 1000})
	plain := NewRecorder(nil)
	RenderPreview(plain, &d, rect, false)
	with := NewRecorder(nil)
	RenderPreview(with, &d, rect, true)
	if len(with.Ops) <= len(plain.Ops) {
		t.Fatalf("handles drew nothing")
	}
	if a, b := len(plain.Filter(OpFillText, OpStrokeText)), len(with.Filter(OpFillText, OpStrokeText)); a != b {
		t.Fatalf("handles changed text ops: %d vs %d", a, b)
	}
}

func TestHandleSizeIsConstantOnScreen(t *testing.T) {
	d := domain.NewDraft("x")
	addBubble(t, &d, domain.Caption, d.Utterances[0].ID, domain.Point{X: 0.1, Y: 0.1})
	for _, container := range []float64{300, 1200} {
		rect := coords.ComputeContainedRect(vector.Size{W: container, H: container}, vector.Size{W: 2000, H: 2000})
		rec := NewRecorder(nil)
		RenderPreview(rec, &d, rect, true)
		found := false
		for _, op := range rec.Filter(OpFillPath) {
			if op.Color == handleBlue {
				if w := op.Path.Bounds().W; !near(w, ResizeHandlePx, 1e-6) {
					t.Fatalf("container %v: handle is %vpx wide", container, w)
				}
				found = true
			}
		}
		if !found {
			t.Fatalf("container %v: resize handle not drawn", container)
		}
	}
}

func TestTwoShapeBubbleStrokesBeforeFilling(t *testing.T) {
	d := domain.NewDraft("hi")
	addBubble(t, &d, domain.SpeechOval, d.Utterances[0].ID, domain.Point{X: 0.2, Y: 0.2})
	rec := NewRecorder(nil)
	RenderExport(rec, &d, vector.Size{W: 1000, H: 1000})

	if len(rec.Ops) < 4 {
		t.Fatalf("expected at least 4 ops, got %d", len(rec.Ops))
	}
	kinds := []OpKind{rec.Ops[0].Kind, rec.Ops[1].Kind, rec.Ops[2].Kind, rec.Ops[3].Kind}
	if !reflect.DeepEqual(kinds, []OpKind{OpStrokePath, OpStrokePath, OpFillPath, OpFillPath}) {
		t.Fatalf("unexpected order: %v", kinds)
	}
	if !near(rec.Ops[0].Width, 6, 1e-9) {
		t.Fatalf("outline width %v", rec.Ops[0].Width)
	}
}

func TestThoughtBubbleDrawsPuffs(t *testing.T) {
	d := domain.NewDraft("hmm")
	addBubble(t, &d, domain.Thought, d.Utterances[0].ID, domain.Point{X: 0.2, Y: 0.2})
	rec := NewRecorder(nil)
	RenderExport(rec, &d, vector.Size{W: 1000, H: 1000})
	// body plus three puffs, each filled and stroked
	if f, s := len(rec.Filter(OpFillPath)), len(rec.Filter(OpStrokePath)); f != 4 || s != 4 {
		t.Fatalf("expected 4 fills and 4 strokes, got %d and %d", f, s)
	}
}

func TestNarrationTextIsOutlined(t *testing.T) {
	d := domain.NewDraft("Later that day")
	addBubble(t, &d, domain.Caption, d.Utterances[0].ID, domain.Point{X: 0.1, Y: 0.1})
	rec := NewRecorder(nil)
	res := RenderExport(rec, &d, vector.Size{W: 1000, H: 1000})
	if len(res) != 1 || !res[0].OK {
		t.Fatalf("unexpected results: %+v", res)
	}

	var order []OpKind
	for _, op := range rec.Filter(OpFillText, OpStrokeText) {
		order = append(order, op.Kind)
	}
	if !reflect.DeepEqual(order, []OpKind{OpStrokeText, OpFillText}) {
		t.Fatalf("outline must come before fill: %v", order)
	}

	// the shadow is the first fill, offset from the body
	fills := rec.Filter(OpFillPath)
	if len(fills) < 2 {
		t.Fatalf("expected shadow and body fills")
	}
	if !near(fills[1].Path.Bounds().X+4, fills[0].Path.Bounds().X, 1e-9) {
		t.Fatalf("shadow not offset: %v vs %v", fills[0].Path.Bounds(), fills[1].Path.Bounds())
	}
}

func TestVerticalColumnsRunRightToLeft(t *testing.T) {
	d := domain.NewDraft("あいう\nえお")
	addBubble(t, &d, domain.MonologueVertical, d.Utterances[0].ID, domain.Point{X: 0.1, Y: 0.1})
	rec := NewRecorder(nil)
	RenderExport(rec, &d, vector.Size{W: 1000, H: 1000})
	texts := rec.Filter(OpFillText)
	if len(texts) != 5 || texts[0].Text != "あ" {
		t.Fatalf("expected one op per rune starting at あ, got %+v", texts)
	}
	if texts[0].At.Y >= texts[1].At.Y {
		t.Fatalf("a column runs top to bottom")
	}
	if texts[0].At.X <= texts[3].At.X {
		t.Fatalf("the first column is the rightmost")
	}
}

func TestUnknownArchetypeStillRenders(t *testing.T) {
	b := domain.Bubble{ID: "b", Type: domain.Archetype(99), SizePreset: domain.SizeM}
	rec := NewRecorder(nil)
	res := DrawBubble(rec, b, "text", 1000, 1, Options{})
	if res.W != 360 || len(rec.Ops) == 0 {
		t.Fatalf("expected a speech_round fallback, got width %v and %d ops", res.W, len(rec.Ops))
	}
}

func TestMissingContainedRectSkipsPass(t *testing.T) {
	d := sampleDraft(t)
	rec := NewRecorder(nil)
	if res := RenderPreview(rec, &d, nil, true); res != nil || len(rec.Ops) != 0 {
		t.Fatalf("expected nothing drawn without a rect")
	}
}

func TestGGSurfaceExportPixels(t *testing.T) {
	d := domain.NewDraft("")
	addBubble(t, &d, domain.SpeechRound, d.Utterances[0].ID, domain.Point{X: 0.1, Y: 0.1})

	s := NewGGSurface(400, 300, nil)
	defer s.Close()
	res := RenderExport(s, &d, vector.Size{W: 400, H: 300})
	if len(res) != 1 || res[0].Err != nil {
		t.Fatalf("unexpected results: %+v", res)
	}

	img := s.Image()
	// bubble is 144x72 at (40,30)
	in := color.NRGBAModel.Convert(img.At(112, 66)).(color.NRGBA)
	if in.A != 255 || in.R <= 200 {
		t.Fatalf("expected opaque white inside the bubble, got %+v", in)
	}
	if out := color.NRGBAModel.Convert(img.At(5, 5)).(color.NRGBA); out.A != 0 {
		t.Fatalf("expected transparent outside, got %+v", out)
	}

	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("not a PNG")
	}
}

func TestGGSurfaceDrawsText(t *testing.T) {
	d := domain.NewDraft("WWWW")
	addBubble(t, &d, domain.Telop, d.Utterances[0].ID, domain.Point{X: 0.05, Y: 0.05})
	s := NewGGSurface(1000, 300, nil)
	defer s.Close()
	res := RenderExport(s, &d, vector.Size{W: 1000, H: 300})
	if len(res) != 1 || res[0].Err != nil || !res[0].OK {
		t.Fatalf("unexpected results: %+v", res)
	}
}

// paintedBounds returns the box of pixels with any alpha.
func paintedBounds(img image.Image) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestGGSurfaceStrokeTextFollowsGlyphs(t *testing.T) {
	s := NewGGSurface(200, 100, nil)
	defer s.Close()
	f := textlayout.FontSpec{SizePx: 60}
	st := vector.Stroke{Color: vector.Black, Width: 4, Join: vector.JoinRound}
	if err := s.StrokeText("H", 20, 70, f, st); err != nil {
		t.Fatalf("stroke text: %v", err)
	}
	got := paintedBounds(s.Image())
	if got.Empty() {
		t.Fatalf("nothing was stroked")
	}
	// the glyph sits on the baseline at y=70 and starts near x=20
	if got.Max.Y > 75 || got.Min.Y < 15 || got.Min.X < 15 || got.Max.X > 80 {
		t.Fatalf("outline drawn outside the glyph box: %v", got)
	}
	// an H is open in the middle of each counter
	if _, _, _, a := s.Image().At(got.Min.X+(got.Dx()/2), got.Min.Y+3).RGBA(); a != 0 {
		t.Fatalf("stroke filled the space between the stems")
	}
}
