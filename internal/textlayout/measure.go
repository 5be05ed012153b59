/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout wraps bubble text into lines or columns and finds the
// largest font size that fits a box. Measurement sits behind Measurer so the
// fitter runs headless.
package textlayout

// FontSpec describes a requested face. SizePx is in pixels.
type FontSpec struct {
	Family string
	SizePx float64
	Bold   bool
}

// WithSize returns a copy of f at size px.
func (f FontSpec) WithSize(px float64) FontSpec {
	f.SizePx = px
	return f
}

// Measurer reports text advances and vertical metrics in pixels.
type Measurer interface {
	MeasureWidth(text string, f FontSpec) float64
	Metrics(f FontSpec) (ascent, descent float64)
}

// MonoMeasurer is a deterministic measurer: half an em for ASCII and
// half-width forms, a full em for everything else.
type MonoMeasurer struct{}

func (MonoMeasurer) MeasureWidth(text string, f FontSpec) float64 {
	var w float64
	for _, r := range text {
		w += runeEm(r) * f.SizePx
	}
	return w
}

func (MonoMeasurer) Metrics(f FontSpec) (ascent, descent float64) {
	return 0.8 * f.SizePx, 0.2 * f.SizePx
}

func runeEm(r rune) float64 {
	switch {
	case r < 0x80:
		return 0.5
	case r >= 0xFF61 && r <= 0xFFDC: // halfwidth katakana and hangul
		return 0.5
	}
	return 1
}
