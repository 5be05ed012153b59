/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultFamily is the built-in family every library starts with.
const DefaultFamily = "Go"

// FontLibrary stores parsed OpenType fonts by family and weight, together
// with their raw bytes so a rasterizer can build faces from the same data
// the measurer uses.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]fontEntry
}

type fontKey struct {
	family string
	bold   bool
}

type fontEntry struct {
	font *opentype.Font
	data []byte
}

// NewFontLibrary returns a library holding the Go regular and bold fonts.
func NewFontLibrary() *FontLibrary {
	fl := &FontLibrary{fonts: make(map[fontKey]fontEntry)}
	// the embedded fonts are known good
	_ = fl.LoadBytes(DefaultFamily, false, goregular.TTF)
	_ = fl.LoadBytes(DefaultFamily, true, gobold.TTF)
	return fl
}

// LoadBytes parses and registers font data.
func (fl *FontLibrary) LoadBytes(family string, bold bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]fontEntry)
	}
	fl.fonts[fontKey{family: family, bold: bold}] = fontEntry{font: f, data: data}
	return nil
}

// LoadTTF loads a font file into the library.
func (fl *FontLibrary) LoadTTF(family string, bold bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadBytes(family, bold, data)
}

// Data returns the font bytes for spec, falling back to the other weight of
// the family and then to the default family.
func (fl *FontLibrary) Data(spec FontSpec) []byte {
	e, ok := fl.find(spec)
	if !ok {
		return nil
	}
	return e.data
}

func (fl *FontLibrary) find(spec FontSpec) (fontEntry, bool) {
	if fl == nil {
		return fontEntry{}, false
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	family := spec.Family
	if family == "" {
		family = DefaultFamily
	}
	for _, k := range []fontKey{
		{family, spec.Bold},
		{family, !spec.Bold},
		{DefaultFamily, spec.Bold},
		{DefaultFamily, !spec.Bold},
	} {
		if e, ok := fl.fonts[k]; ok {
			return e, true
		}
	}
	return fontEntry{}, false
}

// OTMeasurer measures with OpenType faces from a FontLibrary. Faces are
// cached per family, weight and size; it is safe for concurrent use.
type OTMeasurer struct {
	Lib *FontLibrary

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	fontKey
	size fixed.Int26_6
}

func NewOTMeasurer(lib *FontLibrary) *OTMeasurer {
	if lib == nil {
		lib = NewFontLibrary()
	}
	return &OTMeasurer{Lib: lib, faces: make(map[faceKey]font.Face)}
}

func (m *OTMeasurer) face(spec FontSpec) font.Face {
	size := spec.SizePx
	if size <= 0 {
		size = 12
	}
	key := faceKey{fontKey{spec.Family, spec.Bold}, fixed.Int26_6(size * 64)}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.faces[key]; ok {
		return f
	}
	e, ok := m.Lib.find(spec)
	if !ok {
		return nil
	}
	// 72 dpi makes points and pixels the same unit
	f, err := opentype.NewFace(e.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil
	}
	if m.faces == nil {
		m.faces = make(map[faceKey]font.Face)
	}
	m.faces[key] = f
	return f
}

func (m *OTMeasurer) MeasureWidth(text string, spec FontSpec) float64 {
	f := m.face(spec)
	if f == nil {
		return MonoMeasurer{}.MeasureWidth(text, spec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fixedToFloat(font.MeasureString(f, text))
}

func (m *OTMeasurer) Metrics(spec FontSpec) (ascent, descent float64) {
	f := m.face(spec)
	if f == nil {
		return MonoMeasurer{}.Metrics(spec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	met := f.Metrics()
	return fixedToFloat(met.Ascent), fixedToFloat(met.Descent)
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
