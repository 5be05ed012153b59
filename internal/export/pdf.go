/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// ProofMeta is printed under the raster on a proof page.
type ProofMeta struct {
	SceneID string
	// Status is a short validation summary such as "ready" or "2 problems".
	Status string
	Title  string
}

// captionPt is the height of the caption band below the raster.
const captionPt = 28.0

// WriteProofPDF writes a one-page PDF with the flattened PNG at 72 dpi, so
// one image pixel is one point, and a caption line below it.
func WriteProofPDF(w io.Writer, pngData []byte, meta ProofMeta) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(pngData))
	if err != nil {
		return fmt.Errorf("read raster size: %w", err)
	}
	imgW, imgH := float64(cfg.Width), float64(cfg.Height)
	page := gofpdf.SizeType{Wd: imgW, Ht: imgH + captionPt}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    page,
	})
	title := meta.Title
	if title == "" {
		title = "Scene " + meta.SceneID
	}
	pdf.SetTitle(title+" proof", true)
	pdf.SetAuthor("Go Comic Bubbles", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("", page)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("raster", opts, bytes.NewReader(pngData))
	pdf.ImageOptions("raster", 0, 0, imgW, imgH, false, opts, 0, "")

	// caption band
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(0, imgH, imgW, imgH)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	caption := fmt.Sprintf("%s  |  %dx%d px  |  %s", title, cfg.Width, cfg.Height, meta.Status)
	pdf.Text(6, imgH+captionPt/2+3.5, caption)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
