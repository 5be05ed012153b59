/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"gocomicbubbles/internal/coords"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/vector"
)

// RenderDraft draws every bubble in insertion order. origin is where the
// image's top-left corner sits on the surface and pixelScale maps natural
// pixels to surface pixels.
func RenderDraft(s Surface, d *domain.Draft, natural vector.Size, origin vector.Pt, pixelScale float64, opts Options) []Result {
	if d == nil || natural.Empty() {
		return nil
	}
	out := make([]Result, 0, len(d.Bubbles))
	for _, b := range d.Bubbles {
		p := coords.NormalizedToNatural(b.Position, natural).Mul(pixelScale)
		s.Push()
		s.Translate(origin.X+p.X, origin.Y+p.Y)
		out = append(out, DrawBubble(s, b, d.TextFor(b), natural.W, pixelScale, opts))
		s.Pop()
	}
	return out
}

// RenderPreview draws the draft onto a display surface. A nil rect means the
// image is not measured yet and the pass is skipped.
func RenderPreview(s Surface, d *domain.Draft, rect *coords.ContainedRect, showHandles bool) []Result {
	if rect == nil {
		return nil
	}
	return RenderDraft(s, d, rect.Natural(), vector.Pt{X: rect.OffsetX, Y: rect.OffsetY}, rect.Scale, Options{ShowHandles: showHandles})
}

// RenderExport draws the draft at natural resolution without handles.
func RenderExport(s Surface, d *domain.Draft, natural vector.Size) []Result {
	return RenderDraft(s, d, natural, vector.Pt{}, 1, Options{})
}
