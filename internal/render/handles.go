/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import "gocomicbubbles/internal/vector"

// Handle sizes in display pixels. They do not scale with zoom.
const (
	ResizeHandlePx   = 16.0
	TailHandleRadius = 12.0
	DeleteRadiusPx   = 10.0
	tailDotRadiusPx  = 6.0
)

// Handles is where the interaction affordances of one bubble sit, in
// display pixels relative to the bubble's top-left corner. Drawing and hit
// testing both use it.
type Handles struct {
	Resize  vector.Rect
	Delete  vector.Pt
	Tail    vector.Pt
	HasTail bool
}

// HandleLayout places handles for a bubble of display size sz. tip is the
// tail apex in the same space.
func HandleLayout(sz vector.Size, tip vector.Pt, hasTail bool) Handles {
	return Handles{
		Resize:  vector.R(sz.W-ResizeHandlePx, sz.H-ResizeHandlePx, ResizeHandlePx, ResizeHandlePx),
		Delete:  vector.Pt{X: sz.W, Y: 0},
		Tail:    tip,
		HasTail: hasTail,
	}
}

var (
	handleBlue   = vector.RGBA8(33, 150, 243, 255)
	handleRed    = vector.RGBA8(229, 57, 53, 255)
	handleOrange = vector.RGBA8(255, 152, 0, 255)
)

// drawHandles paints the overlay in bubble-local natural pixels; k converts
// display pixels into that space.
func drawHandles(s Surface, h Handles, k float64) error {
	thin := vector.Stroke{Color: vector.White, Width: 1.5 * k}

	r := h.Resize
	box := vector.RoundedRect(r.X*k, r.Y*k, r.W*k, r.H*k, 2*k)
	if err := s.FillPath(box, handleBlue); err != nil {
		return err
	}
	if err := s.StrokePath(box, thin); err != nil {
		return err
	}

	if h.HasTail {
		dot := vector.Circle{C: h.Tail.Mul(k), R: tailDotRadiusPx * k}.Path()
		if err := s.FillPath(dot, handleOrange); err != nil {
			return err
		}
		if err := s.StrokePath(dot, thin); err != nil {
			return err
		}
	}

	c := h.Delete.Mul(k)
	disc := vector.Circle{C: c, R: DeleteRadiusPx * k}.Path()
	if err := s.FillPath(disc, handleRed); err != nil {
		return err
	}
	arm := DeleteRadiusPx * 0.45 * k
	var cross vector.Path
	cross.MoveTo(c.X-arm, c.Y-arm)
	cross.LineTo(c.X+arm, c.Y+arm)
	cross.MoveTo(c.X+arm, c.Y-arm)
	cross.LineTo(c.X-arm, c.Y+arm)
	return s.StrokePath(cross, vector.Stroke{Color: vector.White, Width: 2 * k, Cap: vector.CapRound})
}
