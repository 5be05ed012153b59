/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gojsonschema "github.com/xeipuuv/gojsonschema"

	"gocomicbubbles/internal/domain"
)

//go:embed schema/draft.schema.json
var draftSchema []byte

var draftSchemaLoader = gojsonschema.NewBytesLoader(draftSchema)

// ErrInvalidDraft wraps schema and structure violations of a stored draft.
var ErrInvalidDraft = errors.New("invalid draft")

// Migration records one change the loader made to stored data.
type Migration struct {
	Target string `json:"target"`
	Note   string `json:"note"`
}

func (m Migration) String() string { return m.Target + ": " + m.Note }

// LoadDraftJSON validates data against the draft schema, upgrades legacy
// values and decodes it. Every upgrade is reported. Bubbles pointing at
// missing utterances are dropped.
func LoadDraftJSON(data []byte) (domain.Draft, []Migration, error) {
	res, err := gojsonschema.Validate(draftSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.Draft{}, nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Draft{}, nil, fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(msgs, "; "))
	}

	var raw rawDraft
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Draft{}, nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	var migs []Migration
	note := func(target, format string, args ...any) {
		migs = append(migs, Migration{Target: target, Note: fmt.Sprintf(format, args...)})
	}

	d := domain.Draft{Utterances: []domain.Utterance{}, Bubbles: []domain.Bubble{}}
	seen := map[string]bool{}
	for _, u := range raw.Utterances {
		target := "utterance " + u.ID
		if seen[u.ID] {
			old := u.ID
			u.ID = uuid.NewString()
			note(target, "duplicate id %s replaced by %s", old, u.ID)
		}
		seen[u.ID] = true
		if u.SpeakerType == "" {
			u.SpeakerType = domain.SpeakerNarration
			note(target, "missing speaker_type set to narration")
		}
		d.Utterances = append(d.Utterances, u)
	}
	if len(d.Utterances) > domain.MaxUtterances {
		return domain.Draft{}, migs, fmt.Errorf("%w: %d utterances, at most %d allowed: %w",
			ErrInvalidDraft, len(d.Utterances), domain.MaxUtterances, domain.ErrTooManyUtterances)
	}

	live := map[string]bool{}
	for _, u := range d.Utterances {
		live[u.ID] = true
	}
	seenBubble := map[string]bool{}
	for _, rb := range raw.Bubbles {
		target := "bubble " + rb.ID
		if !live[rb.UtteranceID] {
			note(target, "dropped, utterance %q does not exist", rb.UtteranceID)
			continue
		}
		b := domain.Bubble{
			ID:                rb.ID,
			UtteranceID:       rb.UtteranceID,
			Position:          rb.Position,
			CustomSizeRect:    rb.CustomSizeRect,
			TextStyleOverride: rb.TextStyleOverride,
		}
		if seenBubble[b.ID] {
			b.ID = uuid.NewString()
			note(target, "duplicate id replaced by %s", b.ID)
		}
		seenBubble[b.ID] = true

		typ, migrated := domain.MigrateArchetypeID(rb.Type)
		if migrated {
			note(target, "type %q migrated to %s", rb.Type, typ)
		}
		b.Type = typ

		b.SizePreset = migratePreset(rb.SizePreset, b.CustomSizeRect != nil, func(msg string) { note(target, "%s", msg) })
		if b.SizePreset != domain.SizeCustom && b.CustomSizeRect != nil {
			b.CustomSizeRect = nil
			note(target, "custom size discarded for preset %s", b.SizePreset)
		}

		spec := domain.Catalog(typ)
		switch {
		case rb.Tail == nil:
		case !spec.HasTail:
			note(target, "tail removed, %s has no tail", typ)
		default:
			t := domain.Tail{Enabled: true, Tip: spec.DefaultTip}
			if rb.Tail.Enabled != nil {
				t.Enabled = *rb.Tail.Enabled
			}
			if rb.Tail.Tip != nil {
				t.Tip = *rb.Tail.Tip
			} else {
				note(target, "missing tail tip set to the %s default", typ)
			}
			b.Tail = &t
		}
		d.Bubbles = append(d.Bubbles, b)
	}
	if len(d.Bubbles) > domain.MaxBubbles {
		return domain.Draft{}, migs, fmt.Errorf("%w: %d bubbles, at most %d allowed: %w",
			ErrInvalidDraft, len(d.Bubbles), domain.MaxBubbles, domain.ErrTooManyBubbles)
	}
	return d, migs, nil
}

func migratePreset(stored string, hasRect bool, note func(string)) domain.SizePreset {
	if stored == "" {
		note("missing sizePreset set to M")
		return domain.SizeM
	}
	p, err := domain.ParseSizePreset(stored)
	if err != nil {
		note(fmt.Sprintf("unknown sizePreset %q set to M", stored))
		return domain.SizeM
	}
	if p == domain.SizeCustom && !hasRect {
		note("custom sizePreset without customSizeRect set to M")
		return domain.SizeM
	}
	if string(p) != stored {
		note(fmt.Sprintf("sizePreset %q normalized to %s", stored, p))
	}
	return p
}

// rawDraft mirrors the stored form before migration.
type rawDraft struct {
	Utterances []domain.Utterance `json:"utterances"`
	Bubbles    []rawBubble        `json:"bubbles"`
}

type rawBubble struct {
	ID                string                    `json:"id"`
	UtteranceID       string                    `json:"utterance_id"`
	Type              string                    `json:"type"`
	Position          domain.Point              `json:"position"`
	SizePreset        string                    `json:"sizePreset"`
	CustomSizeRect    *domain.NormSize          `json:"customSizeRect"`
	Tail              *rawTail                  `json:"tail"`
	TextStyleOverride *domain.TextStyleOverride `json:"textStyleOverride"`
}

type rawTail struct {
	Enabled *bool         `json:"enabled"`
	Tip     *domain.Point `json:"tip"`
}

// MarshalDraft is the canonical stored form of a draft.
func MarshalDraft(d domain.Draft) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
