/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestPath_QuadAndCubic_Bounds(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.QuadTo(10, 10, 20, 0)
	p.CubicTo(30, -10, 40, 10, 50, 0)
	p.Close()

	b := p.Bounds()
	// control points are part of the box
	if b.X != 0 || b.Y != -10 || b.W != 50 || b.H != 20 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestPath_TransformMovesEveryPoint(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.LineTo(0, 10)
	p.Close()

	q := p.Transform(Translate(5, 5))
	bb := q.Bounds()
	if bb.X != 5 || bb.Y != 5 || bb.W != 10 || bb.H != 10 {
		t.Fatalf("unexpected transformed bounds: %+v", bb)
	}
	// the source path is untouched
	if p.Bounds().X != 0 {
		t.Fatalf("transform mutated the receiver")
	}
	if q.Cmds[len(q.Cmds)-1].Op != Close {
		t.Fatalf("expected close to survive transform")
	}
}

func TestRoundedRect_Bounds(t *testing.T) {
	p := RoundedRect(1, 2, 100, 50, 10)
	b := p.Bounds()
	if b.X != 1 || b.Y != 2 || b.W != 100 || b.H != 50 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestRoundedRect_RadiusLimitedToHalfSide(t *testing.T) {
	p := RoundedRect(0, 0, 40, 20, 100)
	// first point sits one radius in from the left edge
	if p.Cmds[0].Data[0] != 10 {
		t.Fatalf("expected radius clamped to 10, got start x=%v", p.Cmds[0].Data[0])
	}
	sq := RoundedRect(0, 0, 40, 20, 0)
	for _, c := range sq.Cmds {
		if c.Op == CubicTo {
			t.Fatalf("zero radius should not produce curves")
		}
	}
}

func TestEllipse_Bounds(t *testing.T) {
	p := Ellipse(50, 40, 30, 20)
	b := p.Bounds()
	if b.X != 20 || b.Y != 20 || b.W != 60 || b.H != 40 {
		t.Fatalf("unexpected ellipse bounds: %+v", b)
	}
}
