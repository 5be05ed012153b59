/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/vector"
)

// OpKind names a recorded drawing call.
type OpKind string

const (
	OpFillPath   OpKind = "fill"
	OpStrokePath OpKind = "stroke"
	OpFillText   OpKind = "fill_text"
	OpStrokeText OpKind = "stroke_text"
)

// Op is one drawing call with its geometry already mapped to device space.
type Op struct {
	Kind   OpKind
	Path   vector.Path
	Color  vector.Color
	Width  float64 // device stroke width
	Text   string
	At     vector.Pt
	FontPx float64 // device font size
}

// Recorder is an in-memory Surface that keeps every call. It measures with
// M (MonoMeasurer when nil).
type Recorder struct {
	M   textlayout.Measurer
	Ops []Op

	cur   vector.Affine2D
	stack []vector.Affine2D
}

func NewRecorder(m textlayout.Measurer) *Recorder {
	if m == nil {
		m = textlayout.MonoMeasurer{}
	}
	return &Recorder{M: m, cur: vector.Identity}
}

func (r *Recorder) MeasureWidth(text string, f textlayout.FontSpec) float64 {
	return r.M.MeasureWidth(text, f)
}

func (r *Recorder) Metrics(f textlayout.FontSpec) (float64, float64) { return r.M.Metrics(f) }

func (r *Recorder) Push() { r.stack = append(r.stack, r.cur) }

func (r *Recorder) Pop() {
	if n := len(r.stack); n > 0 {
		r.cur = r.stack[n-1]
		r.stack = r.stack[:n-1]
	}
}

// Depth reports unbalanced pushes.
func (r *Recorder) Depth() int { return len(r.stack) }

func (r *Recorder) Translate(x, y float64) { r.cur = r.cur.Mul(vector.Translate(x, y)) }
func (r *Recorder) Scale(sx, sy float64)   { r.cur = r.cur.Mul(vector.Scale(sx, sy)) }

func (r *Recorder) scale() float64 {
	return r.cur.Apply(vector.Pt{X: 1}).Dist(r.cur.Apply(vector.Pt{}))
}

func (r *Recorder) FillPath(p vector.Path, c vector.Color) error {
	r.Ops = append(r.Ops, Op{Kind: OpFillPath, Path: p.Transform(r.cur), Color: c})
	return nil
}

func (r *Recorder) StrokePath(p vector.Path, s vector.Stroke) error {
	r.Ops = append(r.Ops, Op{Kind: OpStrokePath, Path: p.Transform(r.cur), Color: s.Color, Width: s.Width * r.scale()})
	return nil
}

func (r *Recorder) FillText(text string, x, y float64, f textlayout.FontSpec, c vector.Color) error {
	r.Ops = append(r.Ops, Op{Kind: OpFillText, Text: text, At: r.cur.Apply(vector.Pt{X: x, Y: y}), Color: c, FontPx: f.SizePx * r.scale()})
	return nil
}

func (r *Recorder) StrokeText(text string, x, y float64, f textlayout.FontSpec, s vector.Stroke) error {
	r.Ops = append(r.Ops, Op{Kind: OpStrokeText, Text: text, At: r.cur.Apply(vector.Pt{X: x, Y: y}), Color: s.Color, Width: s.Width * r.scale(), FontPx: f.SizePx * r.scale()})
	return nil
}

// Filter returns the ops of the given kinds.
func (r *Recorder) Filter(kinds ...OpKind) []Op {
	var out []Op
	for _, op := range r.Ops {
		for _, k := range kinds {
			if op.Kind == k {
				out = append(out, op)
				break
			}
		}
	}
	return out
}
