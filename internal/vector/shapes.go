/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// kappa is the cubic control distance for a quarter circle of radius 1.
const kappa = 0.5522847498307936

// Circle is a filled disc used for thought-bubble puffs.
type Circle struct {
	C Pt
	R float64
}

// Path returns the circle outline.
func (c Circle) Path() Path { return Ellipse(c.C.X, c.C.Y, c.R, c.R) }

// RoundedRect returns the outline of a w×h rectangle at (x,y) with corner
// radius r. The radius is limited to half of the shorter side.
func RoundedRect(x, y, w, h, r float64) Path {
	var p Path
	r = cornerRadius(w, h, r)
	if r == 0 {
		p.MoveTo(x, y)
		p.LineTo(x+w, y)
		p.LineTo(x+w, y+h)
		p.LineTo(x, y+h)
		p.Close()
		return p
	}
	k := kappa * r
	p.MoveTo(x+r, y)
	p.LineTo(x+w-r, y)
	p.CubicTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	p.LineTo(x+w, y+h-r)
	p.CubicTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	p.LineTo(x+r, y+h)
	p.CubicTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	p.LineTo(x, y+r)
	p.CubicTo(x, y+r-k, x+r-k, y, x+r, y)
	p.Close()
	return p
}

// Ellipse returns an ellipse outline built from four cubic arcs, starting at
// the rightmost point and running clockwise in y-down coordinates.
func Ellipse(cx, cy, rx, ry float64) Path {
	var p Path
	kx, ky := kappa*rx, kappa*ry
	p.MoveTo(cx+rx, cy)
	p.CubicTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CubicTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CubicTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CubicTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	p.Close()
	return p
}

func cornerRadius(w, h, r float64) float64 {
	if r <= 0 {
		return 0
	}
	return math.Min(r, math.Min(w, h)/2)
}
