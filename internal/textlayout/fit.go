/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// MinFontPx is the default shrink floor, in units of Params.Unit.
	MinFontPx = 12.0
	// MaxLines caps lines (or columns); extra text is dropped.
	MaxLines = 6

	eps = 1e-6
)

// Params describes a fit request. FontPx and LineHeight are the base sizes
// the search starts from; BoxW and BoxH bound the text in pixels.
//
// Unit is the shrink step, one reference pixel at the target resolution
// (zero means 1). FloorPx is the smallest size tried; zero means MinFontPx
// units.
type Params struct {
	BoxW, BoxH float64
	FontPx     float64
	LineHeight float64
	Unit       float64
	FloorPx    float64
	Family     string
	Bold       bool
	Vertical   bool
}

// Result is a wrapped layout. Lines is used in horizontal mode; Columns in
// vertical mode, in reading order (Columns[0] is the rightmost). A column is
// read top to bottom one rune at a time.
type Result struct {
	OK         bool
	FontPx     float64
	LineHeight float64
	Font       FontSpec
	Lines      []string
	Columns    []string
	Truncated  bool
}

// Count returns the number of lines or columns.
func (r Result) Count() int { return len(r.Lines) + len(r.Columns) }

// Fit tries sizes from p.FontPx down to the floor one unit at a time and returns
// the first layout that fits. Nothing fits when a line is wider than the
// box, the block is taller than the box, or text had to be dropped; then
// OK is false and the smallest layout, cut to the rows the box can hold, is
// returned so callers never draw outside the box.
func Fit(m Measurer, text string, p Params) Result {
	if text == "" || p.FontPx <= 0 {
		return Result{OK: true, FontPx: p.FontPx, LineHeight: p.LineHeight, Font: fontFor(p, p.FontPx)}
	}
	unit, floor := p.steps()
	var last Result
	for i := 0; p.FontPx-float64(i)*unit >= floor-eps; i++ {
		last = FitAt(m, text, p.withSize(p.FontPx-float64(i)*unit))
		if last.OK {
			return last
		}
	}
	if last.FontPx > floor+eps {
		last = FitAt(m, text, p.withSize(floor))
		if last.OK {
			return last
		}
	}
	return last.trimmed(p)
}

// FitAt lays text out at exactly p.FontPx without shrinking.
func FitAt(m Measurer, text string, p Params) Result {
	f := fontFor(p, p.FontPx)
	r := Result{FontPx: p.FontPx, LineHeight: p.LineHeight, Font: f}
	if text == "" || p.FontPx <= 0 {
		r.OK = true
		return r
	}
	if p.Vertical {
		r.Columns, r.Truncated = wrapColumns(text, p.BoxH, p.FontPx)
		r.OK = !r.Truncated && float64(len(r.Columns))*p.LineHeight <= p.BoxW+eps
		for _, c := range r.Columns {
			if float64(utf8.RuneCountInString(c))*p.FontPx > p.BoxH+eps {
				r.OK = false
			}
		}
		return r
	}
	r.Lines, r.Truncated = wrapLines(m, text, p.BoxW, f)
	r.OK = !r.Truncated && float64(len(r.Lines))*p.LineHeight <= p.BoxH+eps
	for _, l := range r.Lines {
		if m.MeasureWidth(l, f) > p.BoxW+eps {
			r.OK = false
		}
	}
	return r
}

// steps returns the shrink step and the floor, never above the base size.
func (p Params) steps() (unit, floor float64) {
	unit = p.Unit
	if unit <= 0 {
		unit = 1
	}
	floor = p.FloorPx
	if floor <= 0 {
		floor = MinFontPx * unit
	}
	return unit, math.Min(floor, p.FontPx)
}

func (p Params) withSize(size float64) Params {
	if p.FontPx > 0 {
		p.LineHeight = p.LineHeight * size / p.FontPx
	}
	p.FontPx = size
	return p
}

func fontFor(p Params, size float64) FontSpec {
	return FontSpec{Family: p.Family, SizePx: size, Bold: p.Bold}
}

// trimmed keeps the rows that fit the box.
func (r Result) trimmed(p Params) Result {
	if r.LineHeight <= 0 {
		return r
	}
	if p.Vertical {
		n := int(math.Floor((p.BoxW + eps) / r.LineHeight))
		perCol := int(math.Floor((p.BoxH + eps) / r.FontPx))
		if n < len(r.Columns) {
			r.Columns = r.Columns[:max(n, 0)]
			r.Truncated = true
		}
		for i, c := range r.Columns {
			if rs := []rune(c); len(rs) > perCol {
				r.Columns[i] = string(rs[:max(perCol, 0)])
				r.Truncated = true
			}
		}
		return r
	}
	n := int(math.Floor((p.BoxH + eps) / r.LineHeight))
	if n < len(r.Lines) {
		r.Lines = r.Lines[:max(n, 0)]
		r.Truncated = true
	}
	return r
}

// wrapLines breaks text greedily by rune. A rune wider than the box sits on
// its own line. Soft-wrapped lines lose their leading spaces and every line
// loses trailing ones.
func wrapLines(m Measurer, text string, boxW float64, f FontSpec) (lines []string, truncated bool) {
	widths := map[rune]float64{}
	advance := func(r rune) float64 {
		w, ok := widths[r]
		if !ok {
			w = m.MeasureWidth(string(r), f)
			widths[r] = w
		}
		return w
	}
	push := func(s string) bool {
		if len(lines) == MaxLines {
			truncated = true
			return false
		}
		lines = append(lines, strings.TrimRight(s, " \t"))
		return true
	}

	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		var curW float64
		soft := false
		for _, r := range para {
			if r == '\r' {
				continue
			}
			if soft && cur.Len() == 0 && (r == ' ' || r == '\t') {
				continue
			}
			w := advance(r)
			if cur.Len() > 0 && curW+w > boxW+eps {
				if !push(cur.String()) {
					return lines, truncated
				}
				cur.Reset()
				curW = 0
				soft = true
				if r == ' ' || r == '\t' {
					continue
				}
			}
			cur.WriteRune(r)
			curW += w
		}
		if !push(cur.String()) {
			return lines, truncated
		}
	}
	return lines, truncated
}

// wrapColumns stacks runes one em apart; a column ends when the next rune
// would pass boxH or at a newline.
func wrapColumns(text string, boxH, em float64) (cols []string, truncated bool) {
	push := func(s string) bool {
		if len(cols) == MaxLines {
			truncated = true
			return false
		}
		cols = append(cols, strings.TrimRight(s, " \t　"))
		return true
	}
	for _, para := range strings.Split(text, "\n") {
		var cur []rune
		soft := false
		for _, r := range para {
			if r == '\r' {
				continue
			}
			if soft && len(cur) == 0 && (r == ' ' || r == '\t' || r == '　') {
				continue
			}
			if len(cur) > 0 && float64(len(cur)+1)*em > boxH+eps {
				if !push(string(cur)) {
					return cols, truncated
				}
				cur = cur[:0]
				soft = true
				if r == ' ' || r == '\t' || r == '　' {
					continue
				}
			}
			cur = append(cur, r)
		}
		if !push(string(cur)) {
			return cols, truncated
		}
	}
	return cols, truncated
}
