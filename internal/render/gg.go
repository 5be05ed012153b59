/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/vector"
)

// GGSurface rasterizes onto a gg context. gg draws text in device space, so
// glyph positions and sizes are mapped through the current transform here.
// Measurement uses an OpenType measurer over the same font bytes.
type GGSurface struct {
	ctx *gg.Context
	lib *textlayout.FontLibrary
	*textlayout.OTMeasurer

	mu      sync.Mutex
	sources map[string]*text.FontSource
	faces   map[faceKey]text.Face
}

type faceKey struct {
	src  string
	size float64
}

// NewGGSurface returns a transparent w×h surface.
func NewGGSurface(w, h int, lib *textlayout.FontLibrary) *GGSurface {
	return newGGSurface(gg.NewContext(w, h), lib)
}

// NewGGSurfaceForImage draws on top of a copy of img.
func NewGGSurfaceForImage(img image.Image, lib *textlayout.FontLibrary) *GGSurface {
	return newGGSurface(gg.NewContextForImage(img), lib)
}

func newGGSurface(ctx *gg.Context, lib *textlayout.FontLibrary) *GGSurface {
	if lib == nil {
		lib = textlayout.NewFontLibrary()
	}
	return &GGSurface{
		ctx:        ctx,
		lib:        lib,
		OTMeasurer: textlayout.NewOTMeasurer(lib),
		sources:    map[string]*text.FontSource{},
		faces:      map[faceKey]text.Face{},
	}
}

// Context exposes the underlying gg context.
func (g *GGSurface) Context() *gg.Context { return g.ctx }

// Image returns the current raster.
func (g *GGSurface) Image() image.Image {
	_ = g.ctx.FlushGPU()
	return g.ctx.Image()
}

// EncodePNG writes the raster as PNG.
func (g *GGSurface) EncodePNG(w io.Writer) error { return g.ctx.EncodePNG(w) }

// Close releases the context.
func (g *GGSurface) Close() error { return g.ctx.Close() }

// DrawImage paints img scaled into the rectangle at (x,y) of size w×h in
// user space.
func (g *GGSurface) DrawImage(img image.Image, x, y, w, h float64) {
	g.ctx.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             x,
		Y:             y,
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
	})
}

// Clear fills the whole surface with c, ignoring the transform.
func (g *GGSurface) Clear(c vector.Color) {
	r, gr, b, a := c.Floats()
	g.ctx.ClearWithColor(gg.RGBA{R: r, G: gr, B: b, A: a})
}

func (g *GGSurface) Push()                  { g.ctx.Push() }
func (g *GGSurface) Pop()                   { g.ctx.Pop() }
func (g *GGSurface) Translate(x, y float64) { g.ctx.Translate(x, y) }
func (g *GGSurface) Scale(sx, sy float64)   { g.ctx.Scale(sx, sy) }

func (g *GGSurface) setPath(p vector.Path) {
	g.ctx.ClearPath()
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			g.ctx.MoveTo(d[0], d[1])
		case vector.LineTo:
			g.ctx.LineTo(d[0], d[1])
		case vector.QuadTo:
			g.ctx.QuadraticTo(d[0], d[1], d[2], d[3])
		case vector.CubicTo:
			g.ctx.CubicTo(d[0], d[1], d[2], d[3], d[4], d[5])
		case vector.Close:
			g.ctx.ClosePath()
		}
	}
}

func (g *GGSurface) setColor(c vector.Color) {
	r, gr, b, a := c.Floats()
	g.ctx.SetRGBA(r, gr, b, a)
}

func (g *GGSurface) FillPath(p vector.Path, c vector.Color) error {
	if p.Empty() || !c.Visible() {
		return nil
	}
	g.setPath(p)
	g.setColor(c)
	return g.ctx.Fill()
}

func (g *GGSurface) StrokePath(p vector.Path, s vector.Stroke) error {
	if p.Empty() || !s.Enabled() {
		return nil
	}
	g.setPath(p)
	g.setColor(s.Color)
	g.ctx.SetLineWidth(s.Width)
	g.ctx.SetLineCap(ggCap(s.Cap))
	g.ctx.SetLineJoin(ggJoin(s.Join))
	if len(s.Dash) > 0 {
		g.ctx.SetDash(s.Dash...)
		defer g.ctx.ClearDash()
	}
	return g.ctx.Stroke()
}

// deviceScale is the uniform scale of the current transform.
func (g *GGSurface) deviceScale() float64 {
	x0, y0 := g.ctx.TransformPoint(0, 0)
	x1, y1 := g.ctx.TransformPoint(1, 0)
	return math.Hypot(x1-x0, y1-y0)
}

func (g *GGSurface) face(f textlayout.FontSpec, devicePx float64) (text.Face, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	src := fmt.Sprintf("%s/%t", f.Family, f.Bold)
	key := faceKey{src: src, size: math.Round(devicePx*64) / 64}
	if face, ok := g.faces[key]; ok {
		return face, nil
	}
	fs, ok := g.sources[src]
	if !ok {
		data := g.lib.Data(f)
		if data == nil {
			return nil, fmt.Errorf("no font for %q", f.Family)
		}
		var err error
		fs, err = text.NewFontSource(data)
		if err != nil {
			return nil, fmt.Errorf("load font %q: %w", f.Family, err)
		}
		g.sources[src] = fs
	}
	face := fs.Face(key.size)
	g.faces[key] = face
	return face, nil
}

func (g *GGSurface) FillText(s string, x, y float64, f textlayout.FontSpec, c vector.Color) error {
	if s == "" || !c.Visible() {
		return nil
	}
	k := g.deviceScale()
	face, err := g.face(f, f.SizePx*k)
	if err != nil {
		return err
	}
	dx, dy := g.ctx.TransformPoint(x, y)
	g.ctx.SetFont(face)
	g.setColor(c)
	g.ctx.DrawString(s, dx, dy)
	return nil
}

// StrokeText strokes the real glyph outlines of s. Glyphs are laid out by
// advance and extracted in device pixels, then stroked with the transform
// reset. sfnt outlines are already y-down.
func (g *GGSurface) StrokeText(s string, x, y float64, f textlayout.FontSpec, st vector.Stroke) error {
	if s == "" || !st.Enabled() {
		return nil
	}
	k := g.deviceScale()
	face, err := g.face(f, f.SizePx*k)
	if err != nil {
		return err
	}
	parsed := face.Source().Parsed()
	if parsed == nil {
		return fmt.Errorf("no outlines for %q", f.Family)
	}
	dx, dy := g.ctx.TransformPoint(x, y)
	ex := text.NewOutlineExtractor()

	g.ctx.Push()
	defer g.ctx.Pop()
	g.ctx.Identity()
	g.ctx.ClearPath()
	size := face.Size()
	drawn := false
	pen := dx
	for _, r := range s {
		gid := parsed.GlyphIndex(r)
		o, err := ex.ExtractOutline(parsed, text.GlyphID(gid), size)
		if err == nil && o != nil && !o.IsEmpty() {
			traceOutline(g.ctx, o, pen, dy)
			drawn = true
		}
		pen += parsed.GlyphAdvance(gid, size)
	}
	if !drawn {
		return nil
	}
	g.setColor(st.Color)
	g.ctx.SetLineWidth(st.Width * k)
	g.ctx.SetLineCap(ggCap(st.Cap))
	g.ctx.SetLineJoin(ggJoin(st.Join))
	return g.ctx.Stroke()
}

// traceOutline appends the contours of o at origin (ox,oy) to the current
// path, closing each one.
func traceOutline(ctx *gg.Context, o *text.GlyphOutline, ox, oy float64) {
	pt := func(p text.OutlinePoint) (float64, float64) {
		return ox + float64(p.X), oy + float64(p.Y)
	}
	open := false
	for _, seg := range o.Segments {
		switch seg.Op {
		case text.OutlineOpMoveTo:
			if open {
				ctx.ClosePath()
			}
			ctx.MoveTo(pt(seg.Points[0]))
			open = true
		case text.OutlineOpLineTo:
			ctx.LineTo(pt(seg.Points[0]))
		case text.OutlineOpQuadTo:
			cx, cy := pt(seg.Points[0])
			px, py := pt(seg.Points[1])
			ctx.QuadraticTo(cx, cy, px, py)
		case text.OutlineOpCubicTo:
			c1x, c1y := pt(seg.Points[0])
			c2x, c2y := pt(seg.Points[1])
			px, py := pt(seg.Points[2])
			ctx.CubicTo(c1x, c1y, c2x, c2y, px, py)
		}
	}
	if open {
		ctx.ClosePath()
	}
}

func ggCap(c vector.LineCap) gg.LineCap {
	switch c {
	case vector.CapRound:
		return gg.LineCapRound
	case vector.CapSquare:
		return gg.LineCapSquare
	}
	return gg.LineCapButt
}

func ggJoin(j vector.LineJoin) gg.LineJoin {
	switch j {
	case vector.JoinRound:
		return gg.LineJoinRound
	case vector.JoinBevel:
		return gg.LineJoinBevel
	}
	return gg.LineJoinMiter
}
