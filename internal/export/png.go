/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns a draft into its published forms: the flattened
// raster, the publish payload and a printable proof.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"gocomicbubbles/internal/domain"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/render"
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/vector"
)

// ErrNoImage is returned when there is no base image to flatten onto.
var ErrNoImage = errors.New("export: base image is empty")

// Flatten draws the draft's bubbles over base at its natural resolution,
// without handles. base itself is not modified.
func Flatten(base image.Image, d *domain.Draft, fonts *textlayout.FontLibrary) (*image.RGBA, error) {
	if base == nil || base.Bounds().Empty() {
		return nil, ErrNoImage
	}
	b := base.Bounds()
	natural := vector.Size{W: float64(b.Dx()), H: float64(b.Dy())}

	s := render.NewGGSurfaceForImage(base, fonts)
	defer func() { _ = s.Close() }()

	var errs []error
	for _, r := range render.RenderExport(s, d, natural) {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("bubble %s: %w", r.BubbleID, r.Err))
		}
		if !r.OK && r.Text.Count() > 0 {
			applog.WithComponent("export").Warn("text shrunk to floor or cut", "bubble", r.BubbleID, "font_px", r.Text.FontPx)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	return toRGBA(s.Image()), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path, creating parent directories. The file is
// written next to its destination first and renamed into place.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
