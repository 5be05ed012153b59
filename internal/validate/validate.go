/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package validate decides whether a draft may be published. It never
// mutates the draft and is cheap enough to run after every edit.
package validate

import (
	"fmt"
	"math"

	"gocomicbubbles/internal/coords"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/vector"
)

// ErrorType classifies a validation problem.
type ErrorType string

const (
	OutOfBounds  ErrorType = "OUT_OF_BOUNDS"
	TextOverflow ErrorType = "TEXT_OVERFLOW"
)

// Epsilon is the tolerated difference between a stored and a clamped
// position, in normalized units.
const Epsilon = 1e-4

type Error struct {
	Type     ErrorType `json:"type"`
	BubbleID string    `json:"bubbleId"`
	Message  string    `json:"message"`
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Type, e.Message) }

type Result struct {
	OK     bool    `json:"ok"`
	Ready  bool    `json:"ready"`
	Errors []Error `json:"errors"`
}

// ForBubble returns the errors of one bubble.
func (r Result) ForBubble(id string) []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.BubbleID == id {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks every bubble of d against an image of natural size. A
// bubble is out of bounds when it is too big for the image or when the drag
// clamp would move it; its text overflows when it does not fit at the
// archetype's base size.
func Validate(d *domain.Draft, natural vector.Size, m textlayout.Measurer) Result {
	if natural.Empty() {
		return Result{Errors: []Error{}}
	}
	res := Result{Ready: true, Errors: []Error{}}
	for i, b := range d.Bubbles {
		label := fmt.Sprintf("Bubble %d (%s)", i+1, domain.Catalog(b.Type).Name)
		sz := domain.ResolveBubbleSizePx(b, natural.W)

		clamped := coords.ClampPosition(b.Position, sz, natural, coords.DragMarginPx)
		switch {
		case !coords.FitsInside(sz, natural, coords.DragMarginPx):
			res.Errors = append(res.Errors, Error{
				Type:     OutOfBounds,
				BubbleID: b.ID,
				Message:  label + " is larger than the image. Make it smaller.",
			})
		case math.Abs(clamped.X-b.Position.X) > Epsilon || math.Abs(clamped.Y-b.Position.Y) > Epsilon:
			res.Errors = append(res.Errors, Error{
				Type:     OutOfBounds,
				BubbleID: b.ID,
				Message:  label + " extends past the edge of the image. Move it or make it smaller.",
			})
		}

		text := d.TextFor(b)
		if text == "" {
			continue
		}
		typo := domain.ResolveTypography(b, natural.W)
		box := domain.TextBox(sz, typo.Padding)
		fit := textlayout.FitAt(m, text, textlayout.Params{
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
		if !fit.OK {
			res.Errors = append(res.Errors, Error{
				Type:     TextOverflow,
				BubbleID: b.ID,
				Message:  label + " has more text than fits. Shorten the text or enlarge the bubble.",
			})
		}
	}
	res.OK = len(res.Errors) == 0
	return res
}

// ValidateRect validates against a contained rect. A nil rect means the
// image is not measured yet; the result is not ready and not OK.
func ValidateRect(d *domain.Draft, rect *coords.ContainedRect, m textlayout.Measurer) Result {
	if rect == nil {
		return Result{Errors: []Error{}}
	}
	return Validate(d, rect.Natural(), m)
}
