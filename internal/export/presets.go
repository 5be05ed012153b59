/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"gocomicbubbles/internal/domain"
)

// PresetName names an export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Preset bundles the outputs of one export target.
type Preset struct {
	Name PresetName
	// MaxEdge caps the longer side of the PNG in pixels; 0 keeps the
	// natural size.
	MaxEdge int
	PDF     bool
}

var presets = map[PresetName]Preset{
	PresetWeb:   {Name: PresetWeb, MaxEdge: 1600},
	PresetPrint: {Name: PresetPrint, PDF: true},
}

// LookupPreset resolves a preset name in any case.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[PresetName(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown export preset %q (web, print)", name)
	}
	return p, nil
}

// Job builds a batch job writing <outDir>/<preset>/<name>.png, and the
// proof PDF when the preset has one.
func (p Preset) Job(name string, base image.Image, d domain.Draft, outDir string, proof ProofMeta) Job {
	dir := filepath.Join(outDir, string(p.Name))
	j := Job{
		Name:    name,
		Base:    base,
		Draft:   d,
		PNGPath: filepath.Join(dir, name+".png"),
		Proof:   proof,
		MaxEdge: p.MaxEdge,
	}
	if p.PDF {
		j.PDFPath = filepath.Join(dir, name+".pdf")
	}
	return j
}

// Downscale shrinks img so its longer side is at most maxEdge. Smaller
// images are returned unchanged.
func Downscale(img *image.RGBA, maxEdge int) *image.RGBA {
	b := img.Bounds()
	long := max(b.Dx(), b.Dy())
	if maxEdge <= 0 || long <= maxEdge {
		return img
	}
	w := max(1, b.Dx()*maxEdge/long)
	h := max(1, b.Dy()*maxEdge/long)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
