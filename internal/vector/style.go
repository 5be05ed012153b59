/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"fmt"
	"image/color"
)

// Styles and paint definitions.

type Color struct{ R, G, B, A uint8 }

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{0, 0, 0, 0}
)

// RGBA8 builds a colour from 8-bit channels.
func RGBA8(r, g, b, a uint8) Color { return Color{r, g, b, a} }

// NRGBA converts to the standard library's non-premultiplied colour.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// Floats returns the channels in [0,1].
func (c Color) Floats() (r, g, b, a float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, float64(c.A) / 255
}

// Visible reports whether drawing with c has any effect.
func (c Color) Visible() bool { return c.A > 0 }

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A) }

type LineCap uint8

const (
	CapButt LineCap = iota
	CapRound
	CapSquare
)

type LineJoin uint8

const (
	JoinMiter LineJoin = iota
	JoinRound
	JoinBevel
)

// Stroke describes an outline. A zero Width disables it.
type Stroke struct {
	Color Color
	Width float64
	Dash  []float64
	Cap   LineCap
	Join  LineJoin
}

// Enabled reports whether the stroke draws anything.
func (s Stroke) Enabled() bool { return s.Width > 0 && s.Color.Visible() }

// Scaled returns a copy with width and dash lengths multiplied by k.
func (s Stroke) Scaled(k float64) Stroke {
	out := s
	out.Width = s.Width * k
	if len(s.Dash) > 0 {
		out.Dash = make([]float64, len(s.Dash))
		for i, d := range s.Dash {
			out.Dash[i] = d * k
		}
	}
	return out
}

// Shadow is a hard drop shadow drawn under a shape.
type Shadow struct {
	Offset Pt
	Color  Color
}

// Enabled reports whether the shadow draws anything.
func (s Shadow) Enabled() bool { return s.Color.Visible() && (s.Offset.X != 0 || s.Offset.Y != 0) }
