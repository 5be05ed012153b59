/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"sort"
)

// PlacementOptions controls SuggestPlacement. All lengths share the
// coordinate space of the bounds.
//
// RTL flips the scan so the first free slot is found from the right, which
// suits right-to-left reading pages. Anchor, when HasAnchor is set, orders
// candidates by distance of their center to the anchor.
type PlacementOptions struct {
	Margin    float64
	GridStep  float64
	RTL       bool
	Anchor    Pt
	HasAnchor bool
}

// SuggestPlacement proposes where a box of the given size should go inside
// bounds so that it overlaps the obstacles as little as possible. The first
// collision-free candidate in scan order wins; otherwise the cheapest
// overlapping one. The result always lies within bounds inset by Margin
// (shrunk if it cannot fit). The second return value is the number of
// candidates evaluated.
func SuggestPlacement(bounds Rect, size Size, obstacles []Rect, opts PlacementOptions) (Rect, int) {
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	if opts.GridStep <= 0 {
		opts.GridStep = 8
	}

	inner := bounds.Inset(opts.Margin, opts.Margin)
	bw := Clamp(size.W, 0, math.Max(inner.W, 0))
	bh := Clamp(size.H, 0, math.Max(inner.H, 0))

	x0, y0 := inner.X, inner.Y
	x1 := math.Max(inner.X+inner.W-bw, x0)
	y1 := math.Max(inner.Y+inner.H-bh, y0)

	var candidates []Rect
	for y := y0; ; y += opts.GridStep {
		y = math.Min(y, y1)
		if opts.RTL {
			for x := x1; ; x -= opts.GridStep {
				x = math.Max(x, x0)
				candidates = append(candidates, R(FloatRound(x, 3), FloatRound(y, 3), bw, bh))
				if x == x0 {
					break
				}
			}
		} else {
			for x := x0; ; x += opts.GridStep {
				x = math.Min(x, x1)
				candidates = append(candidates, R(FloatRound(x, 3), FloatRound(y, 3), bw, bh))
				if x == x1 {
					break
				}
			}
		}
		if y == y1 {
			break
		}
	}

	if opts.HasAnchor {
		sort.SliceStable(candidates, func(i, j int) bool {
			di := candidates[i].Center().Dist(opts.Anchor)
			dj := candidates[j].Center().Dist(opts.Anchor)
			if di == dj {
				if candidates[i].Y == candidates[j].Y {
					return candidates[i].X < candidates[j].X
				}
				return candidates[i].Y < candidates[j].Y
			}
			return di < dj
		})
	}

	best := candidates[0]
	bestCost := math.Inf(1)
	attempts := 0
	for _, c := range candidates {
		attempts++
		ov := overlapArea(c, obstacles)
		if ov <= 1e-4 {
			best = c
			break
		}
		cost := ov * 10_000
		if opts.HasAnchor {
			cost += c.Center().Dist(opts.Anchor)
		}
		// prefer higher, then towards the reading start
		cost += c.Y * 0.01
		if opts.RTL {
			cost += (inner.X + inner.W - (c.X + c.W)) * 0.001
		} else {
			cost += c.X * 0.001
		}
		if cost < bestCost {
			bestCost = cost
			best = c
		}
	}
	return clampRectTo(best, inner), attempts
}

func clampRectTo(r Rect, b Rect) Rect {
	r.X = Clamp(r.X, b.X, b.X+b.W-r.W)
	r.Y = Clamp(r.Y, b.Y, b.Y+b.H-r.H)
	return r
}

func overlapArea(r Rect, obstacles []Rect) float64 {
	var sum float64
	for _, o := range obstacles {
		if r.Intersects(o) {
			sum += r.Intersection(o).Area()
		}
	}
	return sum
}
