/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render draws bubbles onto a Surface. The same code paints the
// interactive preview and the flattened export; only the target surface,
// the pixel scale and the handle overlay differ.
package render

import (
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/vector"
)

// Surface is an immediate-mode 2D target. Coordinates are user space under
// the current transform; text is positioned by its baseline. Measurements
// are in user space as well.
type Surface interface {
	textlayout.Measurer

	Push()
	Pop()
	Translate(x, y float64)
	Scale(sx, sy float64)

	FillPath(p vector.Path, c vector.Color) error
	StrokePath(p vector.Path, s vector.Stroke) error
	FillText(text string, x, y float64, f textlayout.FontSpec, c vector.Color) error
	StrokeText(text string, x, y float64, f textlayout.FontSpec, s vector.Stroke) error
}
