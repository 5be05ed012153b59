/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interact turns pointer events on the preview into draft edits.
// The controller only remembers which bubble is being dragged, by id, so a
// bubble deleted mid-drag cannot leave it holding stale state.
package interact

import (
	"gocomicbubbles/internal/coords"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/render"
	"gocomicbubbles/internal/vector"
)

type State uint8

const (
	Idle State = iota
	DraggingBody
	DraggingTail
	Resizing
)

func (s State) String() string {
	switch s {
	case DraggingBody:
		return "dragging-body"
	case DraggingTail:
		return "dragging-tail"
	case Resizing:
		return "resizing"
	}
	return "idle"
}

// Target is the part of a bubble under the pointer.
type Target uint8

const (
	TargetNone Target = iota
	TargetResize
	TargetTail
	TargetDelete
	TargetBody
)

// Tail tips may leave the bubble box by this much in unit space.
const (
	TailMinX, TailMaxX = -0.3, 1.3
	TailMinY, TailMaxY = -0.3, 1.5
)

// Hit is the outcome of a hit test.
type Hit struct {
	BubbleID string
	Target   Target
}

// HitTest finds what lies under display point p. Targets are tried in
// priority order (resize, tail, delete, body); within one target the
// topmost bubble wins.
func HitTest(d *domain.Draft, rect *coords.ContainedRect, p vector.Pt) Hit {
	if d == nil || rect == nil {
		return Hit{}
	}
	type geom struct {
		box vector.Rect
		h   render.Handles
	}
	gs := make([]geom, len(d.Bubbles))
	for i, b := range d.Bubbles {
		box := coords.BubbleRectDisplay(b, rect)
		tip, hasTail := b.TailTip()
		gs[i] = geom{
			box: box,
			h:   render.HandleLayout(box.Size(), vector.Pt{X: tip.X * box.W, Y: tip.Y * box.H}, hasTail),
		}
	}
	for _, target := range []Target{TargetResize, TargetTail, TargetDelete, TargetBody} {
		for i := len(d.Bubbles) - 1; i >= 0; i-- {
			g := gs[i]
			local := p.Sub(g.box.Min())
			var hit bool
			switch target {
			case TargetResize:
				hit = g.h.Resize.Contains(local)
			case TargetTail:
				hit = g.h.HasTail && local.Dist(g.h.Tail) <= render.TailHandleRadius
			case TargetDelete:
				hit = local.Dist(g.h.Delete) <= render.DeleteRadiusPx
			case TargetBody:
				hit = g.box.Contains(p)
			}
			if hit {
				return Hit{BubbleID: d.Bubbles[i].ID, Target: target}
			}
		}
	}
	return Hit{}
}

// Controller is the pointer state machine.
type Controller struct {
	state    State
	bubbleID string
	// grab is the display offset from the pointer to the dragged anchor:
	// the top-left corner for body drags, the bottom-right for resizes.
	grab vector.Pt
}

func NewController() *Controller { return &Controller{} }

func (c *Controller) State() State { return c.state }

// ActiveBubble returns the id of the bubble being dragged.
func (c *Controller) ActiveBubble() string { return c.bubbleID }

func (c *Controller) reset() {
	c.state = Idle
	c.bubbleID = ""
	c.grab = vector.Pt{}
}

// PointerDown starts a drag when a handle or body is hit. A hit on the
// delete glyph is returned without changing state so the caller can delete
// the bubble. A nil rect means the image is not laid out and nothing is hit.
func (c *Controller) PointerDown(d *domain.Draft, rect *coords.ContainedRect, p vector.Pt) Hit {
	c.reset()
	h := HitTest(d, rect, p)
	b, ok := d.Bubble(h.BubbleID)
	if !ok {
		return Hit{}
	}
	box := coords.BubbleRectDisplay(*b, rect)
	switch h.Target {
	case TargetResize:
		c.state = Resizing
		c.grab = box.Max().Sub(p)
	case TargetTail:
		c.state = DraggingTail
	case TargetBody:
		c.state = DraggingBody
		c.grab = box.Min().Sub(p)
	default:
		return h
	}
	c.bubbleID = b.ID
	return h
}

// PointerMove applies the active drag to the draft and reports whether it
// changed. If the dragged bubble is gone the controller returns to idle.
func (c *Controller) PointerMove(d *domain.Draft, rect *coords.ContainedRect, p vector.Pt) bool {
	if c.state == Idle || rect == nil {
		return false
	}
	b, ok := d.Bubble(c.bubbleID)
	if !ok {
		c.reset()
		return false
	}
	natural := rect.Natural()
	switch c.state {
	case DraggingBody:
		target := coords.DisplayToNormalized(p.Add(c.grab), rect)
		sz := domain.ResolveBubbleSizePx(*b, natural.W)
		pos := coords.ClampPosition(target, sz, natural, coords.DragMarginPx)
		if pos == b.Position {
			return false
		}
		b.Position = pos
		return true

	case DraggingTail:
		box := coords.BubbleRectDisplay(*b, rect)
		if box.Size().Empty() {
			return false
		}
		tip := domain.Point{
			X: vector.Clamp((p.X-box.X)/box.W, TailMinX, TailMaxX),
			Y: vector.Clamp((p.Y-box.Y)/box.H, TailMinY, TailMaxY),
		}
		return d.SetTail(b.ID, domain.Tail{Enabled: true, Tip: tip}) == nil

	case Resizing:
		topLeft := coords.NormalizedToNatural(b.Position, natural)
		corner := coords.DisplayToNatural(p.Add(c.grab), rect)
		sz := coords.ClampResize(corner.X-topLeft.X, corner.Y-topLeft.Y, topLeft, natural, coords.MinBubblePx, coords.DragMarginPx)
		return d.SetCustomSize(b.ID, domain.NormSize{W: sz.W / natural.W, H: sz.H / natural.W}) == nil
	}
	return false
}

// PointerUp ends any drag. The last computed state stays committed.
func (c *Controller) PointerUp() (was State) {
	was = c.state
	c.reset()
	return was
}
