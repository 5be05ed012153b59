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
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gocomicbubbles/internal/domain"
)

// Autosaver throttles draft saves. Offers that arrive faster than the
// interval are coalesced: only the newest draft is kept and written by the
// next allowed offer or by Flush.
type Autosaver struct {
	saver   DraftSaver
	sceneID string
	lim     *rate.Limiter

	mu      sync.Mutex
	pending *domain.Draft
	saves   int
}

// NewAutosaver saves at most once per interval.
func NewAutosaver(saver DraftSaver, sceneID string, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Autosaver{
		saver:   saver,
		sceneID: sceneID,
		lim:     rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Offer records d and saves it now if the limiter allows. It reports whether
// a save happened.
func (a *Autosaver) Offer(ctx context.Context, d domain.Draft) (bool, error) {
	a.mu.Lock()
	c := d.Clone()
	a.pending = &c
	if !a.lim.Allow() {
		a.mu.Unlock()
		return false, nil
	}
	a.mu.Unlock()
	return true, a.Flush(ctx)
}

// Flush writes the pending draft, if any.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return nil
	}
	if err := a.saver.SaveDraft(ctx, a.sceneID, *a.pending); err != nil {
		return fmt.Errorf("autosave %s: %w", a.sceneID, err)
	}
	a.pending = nil
	a.saves++
	return nil
}

// Pending reports whether an offered draft has not been saved yet.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Saves returns how many saves have completed.
func (a *Autosaver) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}

// Run flushes pending drafts every interval until ctx is done, then flushes
// once more.
func (a *Autosaver) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return a.Flush(context.WithoutCancel(ctx))
		case <-t.C:
			if err := a.Flush(ctx); err != nil {
				return err
			}
		}
	}
}
