/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"errors"

	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/vector"
)

// Options controls the overlay.
type Options struct {
	ShowHandles bool
}

// Result reports what DrawBubble drew. OK is false when the text had to be
// shrunk below the floor or cut; W and H are the bubble size in natural
// pixels.
type Result struct {
	BubbleID string
	OK       bool
	W, H     float64
	Text     textlayout.Result
	Err      error
}

// DrawBubble draws one bubble with its top-left corner at the current
// origin. Geometry is built in natural pixels and scaled by pixelScale, so
// the preview (display scale) and the export (scale 1) differ only in
// resolution and the optional handles.
func DrawBubble(s Surface, b domain.Bubble, text string, naturalWidth, pixelScale float64, opts Options) Result {
	spec := domain.Catalog(b.Type)
	unit := domain.UnitScale(naturalWidth)
	sz := domain.ResolveBubbleSizePx(b, naturalWidth)
	res := Result{BubbleID: b.ID, W: sz.W, H: sz.H}
	if sz.Empty() || pixelScale <= 0 {
		return res
	}

	tip, hasTail := b.TailTip()
	apex := vector.Pt{X: tip.X * sz.W, Y: tip.Y * sz.H}
	shapes := vector.BuildBubbleShapes(spec.ShapeSpec(unit), sz, apex, hasTail)

	s.Push()
	defer s.Pop()
	s.Scale(pixelScale, pixelScale)

	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if spec.Shadow.Enabled() {
		s.Push()
		s.Translate(spec.Shadow.Offset.X*unit, spec.Shadow.Offset.Y*unit)
		keep(s.FillPath(shapes.Body, spec.Shadow.Color))
		s.Pop()
	}

	stroke := spec.Stroke.Scaled(unit)
	if shapes.TwoShape() {
		// stroke both at double width, then fill both: the inner halves
		// of the outlines vanish and the silhouettes merge
		wide := stroke
		wide.Width *= 2
		if wide.Enabled() {
			keep(s.StrokePath(shapes.Body, wide))
			keep(s.StrokePath(shapes.Wedge.Path, wide))
		}
		keep(s.FillPath(shapes.Body, spec.Fill))
		keep(s.FillPath(shapes.Wedge.Path, spec.Fill))
	} else {
		keep(s.FillPath(shapes.Body, spec.Fill))
		if stroke.Enabled() {
			keep(s.StrokePath(shapes.Body, stroke))
		}
	}
	for _, p := range shapes.Puffs {
		path := p.Path()
		keep(s.FillPath(path, spec.Fill))
		if stroke.Enabled() {
			keep(s.StrokePath(path, stroke))
		}
	}

	typo := domain.ResolveTypography(b, naturalWidth)
	box := domain.TextBox(sz, typo.Padding)
	fit := textlayout.Fit(s, text, textlayout.Params{
		BoxW:       box.W,
		BoxH:       box.H,
		FontPx:     typo.FontPx,
		LineHeight: typo.LineHeight,
		Unit:       typo.Unit,
		FloorPx:    typo.MinFontPx,
		Family:     typo.Family,
		Bold:       typo.Bold,
		Vertical:   typo.Mode == domain.Vertical,
	})
	res.Text = fit
	res.OK = fit.OK
	var outline *vector.Stroke
	if spec.Narration() {
		outline = &vector.Stroke{Color: spec.Outline.Color, Width: spec.Outline.Width * unit, Join: vector.JoinRound}
	}
	keep(drawText(s, fit, box, spec.TextColor, outline))

	if opts.ShowHandles {
		k := 1 / pixelScale
		h := HandleLayout(sz.Scale(pixelScale), apex.Mul(pixelScale), hasTail)
		keep(drawHandles(s, h, k))
	}
	res.Err = errors.Join(errs...)
	return res
}

func drawText(s Surface, fit textlayout.Result, box vector.Rect, col vector.Color, outline *vector.Stroke) error {
	if fit.Count() == 0 {
		return nil
	}
	asc, desc := s.Metrics(fit.Font)
	glyph := func(str string, x, y float64) error {
		if outline != nil && outline.Enabled() {
			if err := s.StrokeText(str, x, y, fit.Font, *outline); err != nil {
				return err
			}
		}
		return s.FillText(str, x, y, fit.Font, col)
	}

	if len(fit.Columns) > 0 {
		colW := fit.LineHeight
		right := box.X + (box.W+float64(len(fit.Columns))*colW)/2
		em := fit.FontPx
		for i, c := range fit.Columns {
			cx := right - (float64(i)+0.5)*colW
			j := 0
			for _, r := range c {
				str := string(r)
				w := s.MeasureWidth(str, fit.Font)
				y := box.Y + float64(j)*em + asc + (em-(asc+desc))/2
				if err := glyph(str, cx-w/2, y); err != nil {
					return err
				}
				j++
			}
		}
		return nil
	}

	lh := fit.LineHeight
	top := box.Y + (box.H-float64(len(fit.Lines))*lh)/2
	for i, line := range fit.Lines {
		if line == "" {
			continue
		}
		w := s.MeasureWidth(line, fit.Font)
		x := box.X + (box.W-w)/2
		y := top + float64(i)*lh + (lh-(asc+desc))/2 + asc
		if err := glyph(line, x, y); err != nil {
			return err
		}
	}
	return nil
}
