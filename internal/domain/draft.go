/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

const (
	MinUtterances = 1
	MaxUtterances = 3
	MaxBubbles    = 5
)

var (
	ErrTooManyUtterances = errors.New("too many utterances")
	ErrTooManyBubbles    = errors.New("too many bubbles")
	ErrLastUtterance     = errors.New("cannot delete the last utterance")
	ErrUtteranceNotFound = errors.New("utterance not found")
	ErrBubbleNotFound    = errors.New("bubble not found")
	ErrInvalidPreset     = errors.New("invalid size preset")
	ErrTailUnsupported   = errors.New("archetype has no tail")
)

// CapacityError is returned when an edit would break a draft limit. The
// draft is left untouched. Message is meant for the user.
type CapacityError struct {
	Limit   int
	Message string
	Err     error
}

func (e *CapacityError) Error() string { return e.Message }
func (e *CapacityError) Unwrap() error { return e.Err }

// SpeakerType tells narration apart from character lines.
type SpeakerType string

const (
	SpeakerNarration SpeakerType = "narration"
	SpeakerCharacter SpeakerType = "character"
)

// Point is a 2D value with persisted field names.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormSize is a width/height pair in normalized units.
type NormSize struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type Utterance struct {
	ID                  string      `json:"id"`
	SpeakerType         SpeakerType `json:"speaker_type"`
	SpeakerCharacterKey string      `json:"speaker_character_key,omitempty"`
	VoicePresetID       string      `json:"voice_preset_id,omitempty"`
	Text                string      `json:"text"`
}

// Tail holds the apex in the bubble's own unit space: (0,0) is the top-left
// corner, (1,1) the bottom-right.
type Tail struct {
	Enabled bool  `json:"enabled"`
	Tip     Point `json:"tip"`
}

type TextStyleOverride struct {
	WritingMode WritingMode `json:"writingMode,omitempty"`
	FontFamily  string      `json:"fontFamily,omitempty"`
	FontWeight  string      `json:"fontWeight,omitempty"`
	FontScale   float64     `json:"fontScale,omitempty"`
}

// Bubble places one utterance on the image. Position is the normalized
// top-left corner.
type Bubble struct {
	ID                string             `json:"id"`
	UtteranceID       string             `json:"utterance_id"`
	Type              Archetype          `json:"type"`
	Position          Point              `json:"position"`
	SizePreset        SizePreset         `json:"sizePreset"`
	CustomSizeRect    *NormSize          `json:"customSizeRect,omitempty"`
	Tail              *Tail              `json:"tail,omitempty"`
	TextStyleOverride *TextStyleOverride `json:"textStyleOverride,omitempty"`
}

// TailTip returns the apex in unit space when the bubble draws a tail. A
// tailed archetype without stored tail state uses the catalog default.
func (b Bubble) TailTip() (Point, bool) {
	spec := Catalog(b.Type)
	if !spec.HasTail {
		return Point{}, false
	}
	if b.Tail == nil {
		return spec.DefaultTip, true
	}
	return b.Tail.Tip, b.Tail.Enabled
}

// Draft is the editable state of one scene.
type Draft struct {
	Utterances []Utterance `json:"utterances"`
	Bubbles    []Bubble    `json:"bubbles"`
}

func newID() string { return uuid.NewString() }

// NewDraft seeds a draft with one narration utterance and no bubbles.
func NewDraft(seedText string) Draft {
	return Draft{
		Utterances: []Utterance{{ID: newID(), SpeakerType: SpeakerNarration, Text: seedText}},
		Bubbles:    []Bubble{},
	}
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	out := Draft{
		Utterances: slices.Clone(d.Utterances),
		Bubbles:    make([]Bubble, len(d.Bubbles)),
	}
	if out.Utterances == nil {
		out.Utterances = []Utterance{}
	}
	for i, b := range d.Bubbles {
		if b.CustomSizeRect != nil {
			c := *b.CustomSizeRect
			b.CustomSizeRect = &c
		}
		if b.Tail != nil {
			t := *b.Tail
			b.Tail = &t
		}
		if b.TextStyleOverride != nil {
			o := *b.TextStyleOverride
			b.TextStyleOverride = &o
		}
		out.Bubbles[i] = b
	}
	return out
}

func (d *Draft) utteranceIndex(id string) int {
	return slices.IndexFunc(d.Utterances, func(u Utterance) bool { return u.ID == id })
}

func (d *Draft) bubbleIndex(id string) int {
	return slices.IndexFunc(d.Bubbles, func(b Bubble) bool { return b.ID == id })
}

// Utterance returns a pointer into the draft, valid until the next edit.
func (d *Draft) Utterance(id string) (*Utterance, bool) {
	i := d.utteranceIndex(id)
	if i < 0 {
		return nil, false
	}
	return &d.Utterances[i], true
}

// Bubble returns a pointer into the draft, valid until the next edit.
func (d *Draft) Bubble(id string) (*Bubble, bool) {
	i := d.bubbleIndex(id)
	if i < 0 {
		return nil, false
	}
	return &d.Bubbles[i], true
}

// TextFor returns the text a bubble shows; a dangling link shows nothing.
func (d *Draft) TextFor(b Bubble) string {
	if u, ok := d.Utterance(b.UtteranceID); ok {
		return u.Text
	}
	return ""
}

func (d *Draft) AddUtterance(speaker SpeakerType, characterKey, text string) (Utterance, error) {
	if len(d.Utterances) >= MaxUtterances {
		return Utterance{}, &CapacityError{
			Limit:   MaxUtterances,
			Message: fmt.Sprintf("A scene can have at most %d lines of dialogue.", MaxUtterances),
			Err:     ErrTooManyUtterances,
		}
	}
	if speaker == "" {
		speaker = SpeakerNarration
	}
	u := Utterance{ID: newID(), SpeakerType: speaker, Text: text}
	if speaker == SpeakerCharacter {
		u.SpeakerCharacterKey = characterKey
	}
	d.Utterances = append(d.Utterances, u)
	return u, nil
}

func (d *Draft) UpdateUtteranceText(id, text string) error {
	u, ok := d.Utterance(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUtteranceNotFound, id)
	}
	u.Text = text
	return nil
}

// SetSpeaker changes who says an utterance. Narration drops the character key.
func (d *Draft) SetSpeaker(id string, speaker SpeakerType, characterKey, voicePresetID string) error {
	u, ok := d.Utterance(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUtteranceNotFound, id)
	}
	u.SpeakerType = speaker
	u.SpeakerCharacterKey = ""
	if speaker == SpeakerCharacter {
		u.SpeakerCharacterKey = characterKey
	}
	u.VoicePresetID = voicePresetID
	return nil
}

// DeleteUtterance removes an utterance and every bubble linked to it.
func (d *Draft) DeleteUtterance(id string) error {
	i := d.utteranceIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUtteranceNotFound, id)
	}
	if len(d.Utterances) <= MinUtterances {
		return &CapacityError{
			Limit:   MinUtterances,
			Message: "A scene needs at least one line of dialogue.",
			Err:     ErrLastUtterance,
		}
	}
	d.Utterances = slices.Delete(d.Utterances, i, i+1)
	d.Bubbles = slices.DeleteFunc(d.Bubbles, func(b Bubble) bool { return b.UtteranceID == id })
	return nil
}

// MoveUtterance changes read order; to is clamped to the list.
func (d *Draft) MoveUtterance(id string, to int) error {
	i := d.utteranceIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUtteranceNotFound, id)
	}
	to = max(0, min(to, len(d.Utterances)-1))
	u := d.Utterances[i]
	d.Utterances = slices.Insert(slices.Delete(d.Utterances, i, i+1), to, u)
	return nil
}

// AddBubble appends a bubble at the M preset with the archetype's default
// tail.
func (d *Draft) AddBubble(typ Archetype, utteranceID string, pos Point) (Bubble, error) {
	if len(d.Bubbles) >= MaxBubbles {
		return Bubble{}, &CapacityError{
			Limit:   MaxBubbles,
			Message: fmt.Sprintf("A scene can have at most %d bubbles.", MaxBubbles),
			Err:     ErrTooManyBubbles,
		}
	}
	if d.utteranceIndex(utteranceID) < 0 {
		return Bubble{}, fmt.Errorf("%w: %s", ErrUtteranceNotFound, utteranceID)
	}
	if !typ.Valid() {
		typ = SpeechRound
	}
	b := Bubble{
		ID:          newID(),
		UtteranceID: utteranceID,
		Type:        typ,
		Position:    pos,
		SizePreset:  SizeM,
		Tail:        defaultTail(typ),
	}
	d.Bubbles = append(d.Bubbles, b)
	return b, nil
}

func defaultTail(typ Archetype) *Tail {
	spec := Catalog(typ)
	if !spec.HasTail {
		return nil
	}
	return &Tail{Enabled: true, Tip: spec.DefaultTip}
}

func (d *Draft) DeleteBubble(id string) error {
	i := d.bubbleIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBubbleNotFound, id)
	}
	d.Bubbles = slices.Delete(d.Bubbles, i, i+1)
	return nil
}

func (d *Draft) bubble(id string) (*Bubble, error) {
	b, ok := d.Bubble(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBubbleNotFound, id)
	}
	return b, nil
}

// SetBubbleType switches the archetype. Switching to a tailed archetype
// resets the tail to its default; tail-less archetypes drop it.
func (d *Draft) SetBubbleType(id string, typ Archetype) error {
	b, err := d.bubble(id)
	if err != nil {
		return err
	}
	if !typ.Valid() {
		typ = SpeechRound
	}
	if b.Type == typ {
		return nil
	}
	b.Type = typ
	b.Tail = defaultTail(typ)
	return nil
}

func (d *Draft) SetBubblePosition(id string, pos Point) error {
	b, err := d.bubble(id)
	if err != nil {
		return err
	}
	b.Position = pos
	return nil
}

// SetSizePreset selects S, M or L and discards any custom size.
func (d *Draft) SetSizePreset(id string, p SizePreset) error {
	if _, ok := p.Multiplier(); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPreset, p)
	}
	b, err := d.bubble(id)
	if err != nil {
		return err
	}
	b.SizePreset = p
	b.CustomSizeRect = nil
	return nil
}

// SetCustomSize stores a dragged size and switches the preset to custom.
func (d *Draft) SetCustomSize(id string, sz NormSize) error {
	b, err := d.bubble(id)
	if err != nil {
		return err
	}
	b.SizePreset = SizeCustom
	b.CustomSizeRect = &sz
	return nil
}

func (d *Draft) SetTail(id string, t Tail) error {
	b, err := d.bubble(id)
	if err != nil {
		return err
	}
	if !Catalog(b.Type).HasTail {
		return fmt.Errorf("%w: %s", ErrTailUnsupported, b.Type)
	}
	b.Tail = &t
	return nil
}

// SetTextStyleOverride replaces the override; nil clears it.
func (d *Draft) SetTextStyleOverride(id string, o *TextStyleOverride) error {
	b, err := d.bubble(id)
	if err != nil {
		return err
	}
	if o != nil {
		c := *o
		o = &c
	}
	b.TextStyleOverride = o
	return nil
}

// LinkBubble points a bubble at another utterance.
func (d *Draft) LinkBubble(bubbleID, utteranceID string) error {
	if d.utteranceIndex(utteranceID) < 0 {
		return fmt.Errorf("%w: %s", ErrUtteranceNotFound, utteranceID)
	}
	b, err := d.bubble(bubbleID)
	if err != nil {
		return err
	}
	b.UtteranceID = utteranceID
	return nil
}
