/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// BodyKind selects the outline of a bubble body.
type BodyKind uint8

const (
	BodyRoundRect BodyKind = iota
	BodyEllipse
)

// TailKind selects how a bubble points at its speaker.
type TailKind uint8

const (
	TailNone TailKind = iota
	// TailNotch cuts a triangle into the bottom edge of a rounded rect.
	TailNotch
	// TailWedge is a tapered quadratic wedge drawn as a second shape.
	TailWedge
	// TailPuffs is a trail of shrinking circles.
	TailPuffs
)

// ShapeSpec is the resolved geometry recipe for one bubble, in pixels.
type ShapeSpec struct {
	Body          BodyKind
	Radius        float64
	Tail          TailKind
	TailBaseWidth float64
	// TailInset pushes the wedge base inside the ellipse so its closing
	// edge is hidden under the body fill.
	TailInset float64
	PuffRadii []float64
}

// TailGeometry describes a generated tail.
type TailGeometry struct {
	BaseLeft   Pt
	BaseRight  Pt
	BaseCenter Pt
	Tip        Pt
	Side       string // left/right/top/bottom, from base towards tip
	Path       Path
}

// Shapes is everything the renderer strokes and fills for one bubble,
// in the bubble's local pixel space with the top-left corner at the origin.
type Shapes struct {
	Body  Path
	Wedge *TailGeometry
	Puffs []Circle
}

// TwoShape reports whether the body and a separate tail shape must be
// composited so that their outlines merge.
func (s Shapes) TwoShape() bool { return s.Wedge != nil }

// RoundedRectWithTail returns a w×h rounded rect whose bottom edge is
// interrupted by a triangular notch centered horizontally and converging at
// apex. The base points are kept between the bottom corners; apex is used
// as given.
func RoundedRectWithTail(w, h, r, baseWidth float64, apex Pt) (Path, TailGeometry) {
	r = cornerRadius(w, h, r)
	half := math.Max(baseWidth, 0) / 2
	cx := w / 2
	bl := Clamp(cx-half, r, w-r)
	br := Clamp(cx+half, r, w-r)
	if br < bl {
		bl, br = cx, cx
	}
	k := kappa * r

	var p Path
	p.MoveTo(r, 0)
	p.LineTo(w-r, 0)
	p.CubicTo(w-r+k, 0, w, r-k, w, r)
	p.LineTo(w, h-r)
	p.CubicTo(w, h-r+k, w-r+k, h, w-r, h)
	p.LineTo(br, h)
	p.LineTo(apex.X, apex.Y)
	p.LineTo(bl, h)
	p.LineTo(r, h)
	p.CubicTo(r-k, h, 0, h-r+k, 0, h-r)
	p.LineTo(0, r)
	p.CubicTo(0, r-k, r-k, 0, r, 0)
	p.Close()

	var tri Path
	tri.MoveTo(bl, h)
	tri.LineTo(apex.X, apex.Y)
	tri.LineTo(br, h)
	tri.Close()
	bc := Pt{(bl + br) / 2, h}
	return p, TailGeometry{
		BaseLeft:   Pt{bl, h},
		BaseRight:  Pt{br, h},
		BaseCenter: bc,
		Tip:        apex,
		Side:       classifySide(apex.Sub(bc)),
		Path:       tri,
	}
}

// EllipseTailWedge builds the tail for an ellipse inscribed in a w×h box. The
// base sits on the lower half of the ellipse below the apex, with its center
// kept inside the middle 60% of the width and pulled inwards by inset. The
// sides are quadratic curves tapering into apex.
func EllipseTailWedge(w, h, baseWidth, inset float64, apex Pt) TailGeometry {
	cx, cy := w/2, h/2
	rx, ry := w/2, h/2
	if baseWidth <= 0 {
		baseWidth = math.Max(8, math.Min(w, h)*0.1)
	}
	half := baseWidth / 2

	bcx := Clamp(apex.X, cx-0.3*w, cx+0.3*w)
	lowerY := func(x float64) float64 {
		if rx <= 0 {
			return cy
		}
		t := (x - cx) / rx
		return cy + ry*math.Sqrt(math.Max(0, 1-t*t)) - inset
	}
	blx := Clamp(bcx-half, cx-0.8*rx, cx+0.8*rx)
	brx := Clamp(bcx+half, cx-0.8*rx, cx+0.8*rx)
	bl := Pt{blx, lowerY(blx)}
	br := Pt{brx, lowerY(brx)}
	bc := Pt{bcx, lowerY(bcx)}

	// Controls sit halfway to the apex, pulled towards each base point so
	// the wedge bulges slightly before tapering.
	mid := bc.Lerp(apex, 0.5)
	c1 := mid.Add(bl.Sub(bc).Mul(0.35))
	c2 := mid.Add(br.Sub(bc).Mul(0.35))

	var p Path
	p.MoveTo(bl.X, bl.Y)
	p.QuadTo(c1.X, c1.Y, apex.X, apex.Y)
	p.QuadTo(c2.X, c2.Y, br.X, br.Y)
	p.Close()
	return TailGeometry{
		BaseLeft:   bl,
		BaseRight:  br,
		BaseCenter: bc,
		Tip:        apex,
		Side:       classifySide(apex.Sub(bc)),
		Path:       p,
	}
}

// puffStops are the fractions along base→apex where thought puffs sit.
var puffStops = [...]float64{0.25, 0.55, 0.85}

// ThoughtPuffs places one circle per radius along the straight line from
// base to apex. Radii beyond the known stops are ignored.
func ThoughtPuffs(base, apex Pt, radii []float64) []Circle {
	n := min(len(radii), len(puffStops))
	out := make([]Circle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Circle{C: base.Lerp(apex, puffStops[i]), R: radii[i]})
	}
	return out
}

// BuildBubbleShapes builds the body and tail shapes for a bubble of size sz.
// apex is in local pixels; it is ignored when hasTail is false or the spec
// has no tail.
func BuildBubbleShapes(spec ShapeSpec, sz Size, apex Pt, hasTail bool) Shapes {
	w, h := sz.W, sz.H
	if !hasTail {
		spec.Tail = TailNone
	}
	switch spec.Body {
	case BodyEllipse:
		out := Shapes{Body: Ellipse(w/2, h/2, w/2, h/2)}
		switch spec.Tail {
		case TailWedge, TailNotch:
			g := EllipseTailWedge(w, h, spec.TailBaseWidth, spec.TailInset, apex)
			out.Wedge = &g
		case TailPuffs:
			out.Puffs = ThoughtPuffs(Pt{w / 2, h}, apex, spec.PuffRadii)
		}
		return out
	default:
		if spec.Tail == TailNone {
			return Shapes{Body: RoundedRect(0, 0, w, h, spec.Radius)}
		}
		if spec.Tail == TailPuffs {
			return Shapes{
				Body:  RoundedRect(0, 0, w, h, spec.Radius),
				Puffs: ThoughtPuffs(Pt{w / 2, h}, apex, spec.PuffRadii),
			}
		}
		body, _ := RoundedRectWithTail(w, h, spec.Radius, spec.TailBaseWidth, apex)
		return Shapes{Body: body}
	}
}

func classifySide(v Pt) string {
	if math.Abs(v.X) >= math.Abs(v.Y) {
		if v.X >= 0 {
			return "right"
		}
		return "left"
	}
	if v.Y >= 0 {
		return "bottom"
	}
	return "top"
}
