/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strings"

	"gocomicbubbles/internal/vector"
)

// ReferenceWidth is the image width catalog lengths are expressed in.
const ReferenceWidth = 1000.0

// MinFontPx is the smallest font size text shrinks to, in reference units.
const MinFontPx = 12.0

// SizePreset scales an archetype's default size.
type SizePreset string

const (
	SizeS      SizePreset = "S"
	SizeM      SizePreset = "M"
	SizeL      SizePreset = "L"
	SizeCustom SizePreset = "custom"
)

var presetMultipliers = map[SizePreset]float64{SizeS: 0.8, SizeM: 1.0, SizeL: 1.25}

// Multiplier returns the scale of a fixed preset. Custom and unknown presets
// report ok=false.
func (p SizePreset) Multiplier() (m float64, ok bool) {
	m, ok = presetMultipliers[p]
	return m, ok
}

// ParseSizePreset accepts S, M, L and custom in any case.
func ParseSizePreset(s string) (SizePreset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "small":
		return SizeS, nil
	case "m", "medium":
		return SizeM, nil
	case "l", "large":
		return SizeL, nil
	case "custom":
		return SizeCustom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPreset, s)
}

// UnitScale converts reference units to natural pixels.
func UnitScale(naturalWidth float64) float64 { return naturalWidth / ReferenceWidth }

// ResolveBubbleSizePx is the one place a bubble's pixel size comes from.
// A custom rect is stored as fractions of the image width on both axes, so
// the dragged aspect ratio survives on any image shape. Without one the
// archetype default is scaled by the image width and the preset.
func ResolveBubbleSizePx(b Bubble, naturalWidth float64) vector.Size {
	if b.CustomSizeRect != nil {
		return vector.Size{W: b.CustomSizeRect.W * naturalWidth, H: b.CustomSizeRect.H * naturalWidth}
	}
	m, ok := b.SizePreset.Multiplier()
	if !ok {
		m = 1
	}
	return Catalog(b.Type).DefaultSize.Scale(UnitScale(naturalWidth) * m)
}

// Typography is the resolved text setup of one bubble in natural pixels.
// Unit is one reference pixel at this image width.
type Typography struct {
	FontPx     float64
	MinFontPx  float64
	LineHeight float64
	Padding    float64
	Unit       float64
	Bold       bool
	Family     string
	Mode       WritingMode
}

// ResolveTypography applies the archetype style and any override at the
// given image width.
func ResolveTypography(b Bubble, naturalWidth float64) Typography {
	spec := Catalog(b.Type)
	unit := UnitScale(naturalWidth)
	t := Typography{
		FontPx:     spec.FontPx * unit,
		MinFontPx:  MinFontPx * unit,
		LineHeight: spec.LineHeight * unit,
		Padding:    spec.Padding * unit,
		Unit:       unit,
		Bold:       spec.Bold,
		Mode:       spec.Mode,
	}
	if o := b.TextStyleOverride; o != nil {
		if o.FontScale > 0 {
			t.FontPx *= o.FontScale
			t.MinFontPx *= o.FontScale
			t.LineHeight *= o.FontScale
		}
		switch strings.ToLower(o.FontWeight) {
		case "bold", "700", "800", "900":
			t.Bold = true
		case "normal", "regular", "400":
			t.Bold = false
		}
		if o.FontFamily != "" {
			t.Family = o.FontFamily
		}
		if o.WritingMode == Horizontal || o.WritingMode == Vertical {
			t.Mode = o.WritingMode
		}
	}
	return t
}

// TextBox returns the padded inner box of a bubble of size sz, in the
// bubble's local pixels. Padding never makes the box negative.
func TextBox(sz vector.Size, padding float64) vector.Rect {
	px := min(padding, sz.W/2)
	py := min(padding, sz.H/2)
	return vector.R(px, py, sz.W-2*px, sz.H-2*py)
}
