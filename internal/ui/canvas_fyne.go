//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"image/draw"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gocomicbubbles/internal/editor"
	"gocomicbubbles/internal/interact"
	"gocomicbubbles/internal/render"
	"gocomicbubbles/internal/textlayout"
)

// BubbleCanvas shows the base image with the draft's bubbles and feeds
// pointer input to the session.
type BubbleCanvas struct {
	widget.BaseWidget

	session *editor.Session
	fonts   *textlayout.FontLibrary

	// ShowHandles draws resize, tail and delete handles.
	ShowHandles bool
	// OnSelect is called with the bubble pressed on; empty clears.
	OnSelect func(bubbleID string)
	// OnError receives errors from pointer handling.
	OnError func(error)

	container fyne.Size
}

var (
	_ desktop.Mouseable = (*BubbleCanvas)(nil)
	_ fyne.Draggable    = (*BubbleCanvas)(nil)
)

func NewBubbleCanvas(s *editor.Session, fonts *textlayout.FontLibrary) *BubbleCanvas {
	c := &BubbleCanvas{session: s, fonts: fonts, ShowHandles: true}
	c.ExtendBaseWidget(c)
	return c
}

func (c *BubbleCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	raster := canvas.NewRaster(c.draw)
	return &bubbleCanvasRenderer{c: c, bg: bg, raster: raster, objects: []fyne.CanvasObject{bg, raster}}
}

// draw renders a w×h pixel frame; the widget size is in device-independent
// units, so the surface is scaled by w/size.
func (c *BubbleCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	size := c.Size()
	if w <= 0 || h <= 0 || size.Width <= 0 {
		return out
	}
	v := c.session.View()
	if v.Rect == nil {
		return out
	}
	surf := render.NewGGSurface(w, h, c.fonts)
	defer func() { _ = surf.Close() }()
	scale := float64(w) / float64(size.Width)
	surf.Push()
	surf.Scale(scale, scale)
	if base := c.session.Base(); base != nil {
		surf.DrawImage(base, v.Rect.OffsetX, v.Rect.OffsetY, v.Rect.DisplayWidth, v.Rect.DisplayHeight)
	}
	c.session.RenderPreview(surf, c.ShowHandles)
	surf.Pop()
	draw.Draw(out, out.Bounds(), surf.Image(), image.Point{}, draw.Src)
	return out
}

func (c *BubbleCanvas) resized(size fyne.Size) {
	if size == c.container {
		return
	}
	c.container = size
	c.session.SetContainer(float64(size.Width), float64(size.Height))
}

func (c *BubbleCanvas) report(err error) {
	if err != nil && c.OnError != nil {
		c.OnError(err)
	}
}

func (c *BubbleCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	hit, err := c.session.PointerDown(float64(e.Position.X), float64(e.Position.Y))
	if err != nil {
		c.report(err)
		return
	}
	if c.OnSelect != nil {
		switch hit.Target {
		case interact.TargetDelete, interact.TargetNone:
			c.OnSelect("")
		default:
			c.OnSelect(hit.BubbleID)
		}
	}
	c.Refresh()
}

func (c *BubbleCanvas) MouseUp(*desktop.MouseEvent) { c.release() }

func (c *BubbleCanvas) Dragged(e *fyne.DragEvent) {
	changed, err := c.session.PointerMove(float64(e.Position.X), float64(e.Position.Y))
	if err != nil {
		c.report(err)
		return
	}
	if changed {
		c.Refresh()
	}
}

func (c *BubbleCanvas) DragEnd() { c.release() }

func (c *BubbleCanvas) release() {
	c.report(c.session.PointerUp())
	c.Refresh()
}

type bubbleCanvasRenderer struct {
	c       *BubbleCanvas
	bg      *canvas.Rectangle
	raster  *canvas.Raster
	objects []fyne.CanvasObject
}

func (r *bubbleCanvasRenderer) Destroy()                     {}
func (r *bubbleCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *bubbleCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 240) }
func (r *bubbleCanvasRenderer) Refresh()                     { r.raster.Refresh() }

func (r *bubbleCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.raster.Resize(size)
	r.c.resized(size)
}
