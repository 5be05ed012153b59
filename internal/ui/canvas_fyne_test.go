//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests need the Fyne toolkit and cgo:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/editor"
)

var blue = color.RGBA{R: 20, G: 40, B: 200, A: 255}

func newCanvas(t *testing.T) (*BubbleCanvas, *editor.Session) {
	t.Helper()
	test.NewTempApp(t)
	d := domain.NewDraft("")
	if _, err := d.AddBubble(domain.SpeechRound, d.Utterances[0].ID, domain.Point{X: 0.1, Y: 0.1}); err != nil {
		t.Fatal(err)
	}
	s := editor.NewSession(editor.SceneInfo{SceneID: "s"}, d, editor.Options{})
	base := image.NewRGBA(image.Rect(0, 0, 1000, 1000))
	draw.Draw(base, base.Bounds(), &image.Uniform{C: blue}, image.Point{}, draw.Src)
	if err := s.SetImage(base); err != nil {
		t.Fatal(err)
	}
	c := NewBubbleCanvas(s, nil)
	size := fyne.NewSize(500, 500)
	c.Resize(size)
	c.resized(size)
	return c, s
}

func TestBubbleCanvas_DragMovesBubble(t *testing.T) {
	c, s := newCanvas(t)
	var selected string
	c.OnSelect = func(id string) { selected = id }

	// 360x180 natural at (100,100) shows as 180x90 at (50,50)
	c.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(140, 95)}, Button: desktop.MouseButtonPrimary})
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(190, 95)}, Dragged: fyne.NewDelta(50, 0)})
	c.DragEnd()
	c.MouseUp(&desktop.MouseEvent{})

	b := s.Draft().Bubbles[0]
	if selected != b.ID {
		t.Fatalf("selected = %q, want %q", selected, b.ID)
	}
	if math.Abs(b.Position.X-0.2) > 1e-6 || math.Abs(b.Position.Y-0.1) > 1e-6 {
		t.Fatalf("position = %+v", b.Position)
	}
}

func TestBubbleCanvas_SecondaryButtonIgnored(t *testing.T) {
	c, s := newCanvas(t)
	c.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(140, 95)}, Button: desktop.MouseButtonSecondary})
	c.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(300, 300)}})
	c.DragEnd()
	if p := s.Draft().Bubbles[0].Position; p.X != 0.1 || p.Y != 0.1 {
		t.Fatalf("bubble moved without a primary press: %+v", p)
	}
}

func TestBubbleCanvas_DrawsImageAndBubble(t *testing.T) {
	c, _ := newCanvas(t)
	img := c.draw(500, 500).(*image.RGBA)
	if img.Bounds().Dx() != 500 || img.Bounds().Dy() != 500 {
		t.Fatalf("frame size = %v", img.Bounds())
	}
	if px := img.RGBAAt(400, 400); px.B < 150 || px.R > 60 {
		t.Fatalf("base image not drawn: %v", px)
	}
	if px := img.RGBAAt(140, 95); px.R < 230 || px.G < 230 || px.B < 230 {
		t.Fatalf("bubble body not white: %v", px)
	}
	if empty := c.draw(0, 0); !empty.Bounds().Empty() {
		t.Fatalf("zero frame = %v", empty.Bounds())
	}
}
