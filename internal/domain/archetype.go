/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain holds the bubble catalog and the editable draft: the
// utterances a scene speaks and the bubbles that show them.
package domain

import (
	"fmt"
	"strings"

	"gocomicbubbles/internal/vector"
)

// Archetype is one of the fixed bubble kinds. The zero value is SpeechRound.
type Archetype uint8

const (
	SpeechRound Archetype = iota
	SpeechOval
	Thought
	MonologueVertical
	Caption
	Telop
	archetypeCount
)

var archetypeIDs = [archetypeCount]string{
	SpeechRound:       "speech_round",
	SpeechOval:        "speech_oval",
	Thought:           "thought",
	MonologueVertical: "monologue_vertical",
	Caption:           "caption",
	Telop:             "telop",
}

// Valid reports whether a is a known archetype.
func (a Archetype) Valid() bool { return a < archetypeCount }

// String returns the persisted id.
func (a Archetype) String() string {
	if !a.Valid() {
		return fmt.Sprintf("archetype(%d)", uint8(a))
	}
	return archetypeIDs[a]
}

func (a Archetype) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid archetype %d", uint8(a))
	}
	return []byte(archetypeIDs[a]), nil
}

// UnmarshalText is strict; legacy ids must go through MigrateArchetypeID first.
func (a *Archetype) UnmarshalText(b []byte) error {
	v, err := ParseArchetype(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Archetypes lists every archetype in catalog order.
func Archetypes() []Archetype {
	out := make([]Archetype, 0, archetypeCount)
	for a := Archetype(0); a < archetypeCount; a++ {
		out = append(out, a)
	}
	return out
}

// ParseArchetype resolves a canonical id.
func ParseArchetype(id string) (Archetype, error) {
	for a, s := range archetypeIDs {
		if s == id {
			return Archetype(a), nil
		}
	}
	return SpeechRound, fmt.Errorf("unknown archetype %q", id)
}

var legacyArchetypeIDs = map[string]Archetype{
	"speech":         SpeechRound,
	"round":          SpeechRound,
	"bubble":         SpeechRound,
	"speech_rect":    SpeechRound,
	"rounded":        SpeechRound,
	"oval":           SpeechOval,
	"ellipse":        SpeechOval,
	"speech_ellipse": SpeechOval,
	"shout":          SpeechOval,
	"cloud":          Thought,
	"think":          Thought,
	"thought_bubble": Thought,
	"vertical":       MonologueVertical,
	"monologue":      MonologueVertical,
	"tategaki":       MonologueVertical,
	"box":            Caption,
	"narration":      Caption,
	"caption_box":    Caption,
	"bar":            Telop,
	"banner":         Telop,
	"subtitle":       Telop,
}

// MigrateArchetypeID maps a persisted id, including renamed legacy ids, to an
// archetype. Unknown ids become SpeechRound; migrated reports whether the
// input was not already canonical.
func MigrateArchetypeID(id string) (a Archetype, migrated bool) {
	if v, err := ParseArchetype(id); err == nil {
		return v, false
	}
	norm := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(id, "-", "_")))
	if v, err := ParseArchetype(norm); err == nil {
		return v, true
	}
	if v, ok := legacyArchetypeIDs[norm]; ok {
		return v, true
	}
	return SpeechRound, true
}

// WritingMode is the text direction inside a bubble.
type WritingMode string

const (
	Horizontal WritingMode = "horizontal"
	Vertical   WritingMode = "vertical"
)

// TextOutline draws a contour around glyphs. A zero Width disables it.
type TextOutline struct {
	Color vector.Color
	Width float64
}

// ArchetypeSpec is a catalog entry. Lengths are reference units for a
// 1000 unit wide image; multiply by UnitScale for pixels.
type ArchetypeSpec struct {
	ID          Archetype
	Name        string
	Icon        string
	HasTail     bool
	Mode        WritingMode
	DefaultSize vector.Size

	Body          vector.BodyKind
	Tail          vector.TailKind
	DefaultTip    Point
	TailBaseWidth float64
	PuffRadii     []float64

	Fill       vector.Color
	Stroke     vector.Stroke
	Radius     float64
	Shadow     vector.Shadow
	FontPx     float64
	LineHeight float64
	Padding    float64
	Bold       bool
	TextColor  vector.Color
	Outline    TextOutline
}

// Narration reports whether text is drawn with an outline.
func (s ArchetypeSpec) Narration() bool { return s.Outline.Width > 0 }

// ShapeSpec resolves the path recipe at the given unit scale.
func (s ArchetypeSpec) ShapeSpec(unit float64) vector.ShapeSpec {
	radii := make([]float64, len(s.PuffRadii))
	for i, r := range s.PuffRadii {
		radii[i] = r * unit
	}
	return vector.ShapeSpec{
		Body:          s.Body,
		Radius:        s.Radius * unit,
		Tail:          s.Tail,
		TailBaseWidth: s.TailBaseWidth * unit,
		TailInset:     (s.Stroke.Width + 2) * unit,
		PuffRadii:     radii,
	}
}

var catalog = [archetypeCount]ArchetypeSpec{
	SpeechRound: {
		ID: SpeechRound, Name: "Speech", Icon: "💬", HasTail: true, Mode: Horizontal,
		DefaultSize: vector.Size{W: 360, H: 180},
		Body:        vector.BodyRoundRect, Tail: vector.TailNotch,
		DefaultTip: Point{X: 0.3, Y: 1.35}, TailBaseWidth: 36,
		Fill: vector.White, Stroke: vector.Stroke{Color: vector.Black, Width: 3, Join: vector.JoinRound},
		Radius: 24, FontPx: 18, LineHeight: 26, Padding: 16, TextColor: vector.Black,
	},
	SpeechOval: {
		ID: SpeechOval, Name: "Oval speech", Icon: "🗨", HasTail: true, Mode: Horizontal,
		DefaultSize: vector.Size{W: 380, H: 220},
		Body:        vector.BodyEllipse, Tail: vector.TailWedge,
		DefaultTip: Point{X: 0.25, Y: 1.3}, TailBaseWidth: 40,
		Fill: vector.White, Stroke: vector.Stroke{Color: vector.Black, Width: 3, Join: vector.JoinRound},
		FontPx: 18, LineHeight: 26, Padding: 36, TextColor: vector.Black,
	},
	Thought: {
		ID: Thought, Name: "Thought", Icon: "💭", HasTail: true, Mode: Horizontal,
		DefaultSize: vector.Size{W: 360, H: 220},
		Body:        vector.BodyEllipse, Tail: vector.TailPuffs,
		DefaultTip: Point{X: 0.15, Y: 1.45}, PuffRadii: []float64{8, 6, 4},
		Fill: vector.White, Stroke: vector.Stroke{Color: vector.Black, Width: 3, Join: vector.JoinRound},
		FontPx: 17, LineHeight: 24, Padding: 36, TextColor: vector.Black,
	},
	MonologueVertical: {
		ID: MonologueVertical, Name: "Vertical monologue", Icon: "📜", Mode: Vertical,
		DefaultSize: vector.Size{W: 150, H: 380},
		Body:        vector.BodyRoundRect,
		Fill:        vector.RGBA8(255, 255, 255, 235),
		Stroke:      vector.Stroke{Color: vector.Black, Width: 2, Dash: []float64{8, 5}},
		Radius:      12, FontPx: 20, LineHeight: 28, Padding: 16, TextColor: vector.Black,
	},
	Caption: {
		ID: Caption, Name: "Caption", Icon: "📝", Mode: Horizontal,
		DefaultSize: vector.Size{W: 420, H: 110},
		Body:        vector.BodyRoundRect,
		Fill:        vector.RGBA8(255, 250, 230, 255),
		Stroke:      vector.Stroke{Color: vector.Black, Width: 2},
		Shadow:      vector.Shadow{Offset: vector.Pt{X: 4, Y: 4}, Color: vector.RGBA8(0, 0, 0, 90)},
		Radius:      4, FontPx: 17, LineHeight: 24, Padding: 14, TextColor: vector.Black,
		Outline: TextOutline{Color: vector.White, Width: 2},
	},
	Telop: {
		ID: Telop, Name: "Telop", Icon: "📺", Mode: Horizontal,
		DefaultSize: vector.Size{W: 760, H: 90},
		Body:        vector.BodyRoundRect,
		Fill:        vector.RGBA8(0, 0, 0, 160),
		FontPx:      24, LineHeight: 32, Padding: 12, Bold: true, TextColor: vector.White,
		Outline: TextOutline{Color: vector.Black, Width: 3},
	},
}

// Catalog returns the entry for a. Every archetype has one; out-of-range
// values resolve to SpeechRound.
func Catalog(a Archetype) ArchetypeSpec {
	if !a.Valid() {
		a = SpeechRound
	}
	return catalog[a]
}
