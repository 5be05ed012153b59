/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package coords converts between the three spaces a bubble lives in:
// normalized image fractions (persisted), natural image pixels (export) and
// display pixels (the letterboxed preview).
package coords

import (
	"math"

	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/vector"
)

const (
	// DragMarginPx keeps dragged bubbles this far inside the image edge.
	DragMarginPx = 4.0
	// MinBubblePx is the smallest size a resize can produce.
	MinBubblePx = 48.0
)

// ContainedRect is where an image lands inside a container under
// object-fit: contain.
type ContainedRect struct {
	OffsetX, OffsetY            float64
	DisplayWidth, DisplayHeight float64
	NaturalWidth, NaturalHeight float64
	Scale                       float64
}

// Natural returns the image size in natural pixels.
func (r *ContainedRect) Natural() vector.Size {
	return vector.Size{W: r.NaturalWidth, H: r.NaturalHeight}
}

// Display returns the covered area in container pixels.
func (r *ContainedRect) Display() vector.Rect {
	return vector.R(r.OffsetX, r.OffsetY, r.DisplayWidth, r.DisplayHeight)
}

// ComputeContainedRect fits natural into container preserving aspect ratio
// and centering the spare axis. It returns nil while either size is unknown.
func ComputeContainedRect(container, natural vector.Size) *ContainedRect {
	if container.Empty() || natural.Empty() {
		return nil
	}
	r := &ContainedRect{NaturalWidth: natural.W, NaturalHeight: natural.H}
	if container.W/container.H > natural.W/natural.H {
		// height binds, letterbox left and right
		r.DisplayHeight = container.H
		r.DisplayWidth = container.H * natural.W / natural.H
		r.OffsetX = (container.W - r.DisplayWidth) / 2
	} else {
		r.DisplayWidth = container.W
		r.DisplayHeight = container.W * natural.H / natural.W
		r.OffsetY = (container.H - r.DisplayHeight) / 2
	}
	r.Scale = r.DisplayWidth / r.NaturalWidth
	return r
}

// NormalizedToDisplay maps a normalized point to container pixels.
func NormalizedToDisplay(p domain.Point, r *ContainedRect) vector.Pt {
	return vector.Pt{X: r.OffsetX + p.X*r.DisplayWidth, Y: r.OffsetY + p.Y*r.DisplayHeight}
}

// DisplayToNormalized is the inverse of NormalizedToDisplay. No clamping.
func DisplayToNormalized(p vector.Pt, r *ContainedRect) domain.Point {
	return domain.Point{X: (p.X - r.OffsetX) / r.DisplayWidth, Y: (p.Y - r.OffsetY) / r.DisplayHeight}
}

func NormalizedToNatural(p domain.Point, natural vector.Size) vector.Pt {
	return vector.Pt{X: p.X * natural.W, Y: p.Y * natural.H}
}

func NaturalToNormalized(p vector.Pt, natural vector.Size) domain.Point {
	return domain.Point{X: p.X / natural.W, Y: p.Y / natural.H}
}

// DisplayToNatural maps container pixels to natural pixels.
func DisplayToNatural(p vector.Pt, r *ContainedRect) vector.Pt {
	return vector.Pt{X: (p.X - r.OffsetX) / r.Scale, Y: (p.Y - r.OffsetY) / r.Scale}
}

// ClampPosition keeps a bubble of sizePx fully inside the image with
// marginPx to spare, working in natural pixels. A bubble that does not fit
// (see FitsInside) pins to the margin and still sticks out.
func ClampPosition(pos domain.Point, sizePx vector.Size, natural vector.Size, marginPx float64) domain.Point {
	x := pos.X * natural.W
	y := pos.Y * natural.H
	x = vector.Clamp(x, marginPx, natural.W-marginPx-sizePx.W)
	y = vector.Clamp(y, marginPx, natural.H-marginPx-sizePx.H)
	return domain.Point{X: x / natural.W, Y: y / natural.H}
}

// FitsInside reports whether a box of sizePx can sit inside the image with
// marginPx to spare on every side.
func FitsInside(sizePx, natural vector.Size, marginPx float64) bool {
	const tol = 1e-6
	return sizePx.W <= natural.W-2*marginPx+tol && sizePx.H <= natural.H-2*marginPx+tol
}

// ClampResize bounds a resize of a bubble whose top-left is at topLeftPx:
// at least minPx, at most up to the image edge minus marginPx. The edge
// wins when the two disagree.
func ClampResize(w, h float64, topLeftPx vector.Pt, natural vector.Size, minPx, marginPx float64) vector.Size {
	maxW := math.Max(0, natural.W-marginPx-topLeftPx.X)
	maxH := math.Max(0, natural.H-marginPx-topLeftPx.Y)
	return vector.Size{
		W: math.Min(math.Max(minPx, w), maxW),
		H: math.Min(math.Max(minPx, h), maxH),
	}
}

// BubbleRectNatural returns a bubble's box in natural pixels.
func BubbleRectNatural(b domain.Bubble, natural vector.Size) vector.Rect {
	sz := domain.ResolveBubbleSizePx(b, natural.W)
	p := NormalizedToNatural(b.Position, natural)
	return vector.R(p.X, p.Y, sz.W, sz.H)
}

// BubbleRectDisplay returns a bubble's box in container pixels.
func BubbleRectDisplay(b domain.Bubble, r *ContainedRect) vector.Rect {
	sz := domain.ResolveBubbleSizePx(b, r.NaturalWidth).Scale(r.Scale)
	p := NormalizedToDisplay(b.Position, r)
	return vector.R(p.X, p.Y, sz.W, sz.H)
}
