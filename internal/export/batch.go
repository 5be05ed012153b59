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
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/sync/errgroup"

	"gocomicbubbles/internal/domain"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/textlayout"
)

// Job is one scene to export. Empty paths skip that output.
type Job struct {
	Name    string
	Base    image.Image
	Draft   domain.Draft
	PNGPath string
	PDFPath string
	Proof   ProofMeta
	// MaxEdge downscales the flattened raster; 0 keeps the natural size.
	MaxEdge int
}

// Output describes what a job produced.
type Output struct {
	Name     string
	PNG      []byte
	Duration time.Duration
}

// Batch exports jobs concurrently, at most limit at a time (limit <= 0
// means no limit). Each job renders on its own surface. The first failure
// cancels the jobs that have not started.
func Batch(ctx context.Context, jobs []Job, limit int, fonts *textlayout.FontLibrary) ([]Output, error) {
	if fonts == nil {
		fonts = textlayout.NewFontLibrary()
	}
	l := applog.WithOperation(applog.WithComponent("export"), "batch")
	out := make([]Output, len(jobs))

	eg, egCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, job := range jobs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			data, err := runJob(job, fonts)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			out[i] = Output{Name: job.Name, PNG: data, Duration: time.Since(start)}
			l.Debug("exported", "job", job.Name, "bytes", len(data), "took", out[i].Duration)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func runJob(job Job, fonts *textlayout.FontLibrary) ([]byte, error) {
	img, err := Flatten(job.Base, &job.Draft, fonts)
	if err != nil {
		return nil, err
	}
	data, err := EncodePNG(Downscale(img, job.MaxEdge))
	if err != nil {
		return nil, err
	}
	if job.PNGPath != "" {
		if err := WriteFile(job.PNGPath, data); err != nil {
			return nil, err
		}
	}
	if job.PDFPath != "" {
		var buf bytes.Buffer
		if err := WriteProofPDF(&buf, data, job.Proof); err != nil {
			return nil, err
		}
		if err := WriteFile(job.PDFPath, buf.Bytes()); err != nil {
			return nil, err
		}
	}
	return data, nil
}
