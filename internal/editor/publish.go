/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"fmt"
	"time"

	"gocomicbubbles/internal/export"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/validate"
)

// Publish validates the draft, flattens it at natural resolution and hands
// the payload to pub. Edits are rejected until it returns. On failure the
// draft is left exactly as it was.
func (s *Session) Publish(ctx context.Context, pub Publisher) (export.PublishPayload, error) {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return export.PublishPayload{}, ErrPublishing
	}
	if s.base == nil {
		s.mu.Unlock()
		return export.PublishPayload{}, ErrNoImage
	}
	s.revalidateLocked()
	if !s.last.OK {
		errs := append([]validate.Error(nil), s.last.Errors...)
		s.mu.Unlock()
		return export.PublishPayload{}, &InvalidDraftError{Errors: errs}
	}
	s.publishing = true
	d := s.draft.Clone()
	base, info, fonts := s.base, s.info, s.fonts
	s.commit()

	defer func() {
		s.mu.Lock()
		s.publishing = false
		s.commit()
	}()

	l := applog.WithOperation(s.log, "publish")
	ctx = applog.ContextWithScene(ctx, info.SceneID)
	start := time.Now()

	img, err := export.Flatten(base, &d, fonts)
	if err != nil {
		l.Error("flatten failed", "err", err)
		return export.PublishPayload{}, fmt.Errorf("publish: %w", err)
	}
	data, err := export.EncodePNG(img)
	if err != nil {
		return export.PublishPayload{}, fmt.Errorf("publish: %w", err)
	}
	payload := export.BuildPayload(info.SceneID, info.BaseImageID, data, d)
	if err := pub.Publish(ctx, payload); err != nil {
		l.ErrorContext(ctx, "publisher rejected scene", "err", err)
		return export.PublishPayload{}, fmt.Errorf("publish: %w", err)
	}
	l.InfoContext(ctx, "published", "bytes", len(data), "bubbles", len(d.Bubbles), "took", time.Since(start))
	return payload, nil
}
