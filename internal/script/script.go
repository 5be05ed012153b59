/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script reads plain-text lettering scripts into panel drafts.
//
// A script is a list of panels. Each panel holds the lines lettered on it:
//
//	PANEL 1
//	CAPTION: Meanwhile, at the harbor...
//	MIRA: Did you hear that?
//	  It came from the water. @whisper
//	; notes start with a semicolon and are skipped
//
// CAPTION and NARRATION lines become narration; any other NAME becomes a
// character line keyed by the lower-cased name. Lines indented by two or
// more spaces continue the previous line. The first @tag on a line names
// its voice preset. Lines before the first PANEL marker form panel 1.
package script

import (
	"fmt"

	"gocomicbubbles/internal/domain"
)

type Script struct {
	Panels []Panel
}

type Panel struct {
	Label string
	Lines []Line
}

// Line is one utterance of a panel.
type Line struct {
	Speaker      domain.SpeakerType
	CharacterKey string
	VoicePreset  string
	Text         string
	// LineNo is the 1-based line the utterance starts on.
	LineNo int
}

// Error is a parse problem with its position.
type Error struct {
	Line    int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }

// Panel returns the panel at a 1-based index.
func (s Script) Panel(n int) (Panel, error) {
	if n < 1 || n > len(s.Panels) {
		return Panel{}, fmt.Errorf("panel %d out of range 1..%d", n, len(s.Panels))
	}
	return s.Panels[n-1], nil
}

// Draft converts the panel into a draft with one utterance per line and no
// bubbles. Panels with more lines than a draft holds are rejected.
func (p Panel) Draft() (domain.Draft, error) {
	if len(p.Lines) == 0 {
		return domain.Draft{}, fmt.Errorf("panel %q has no lines", p.Label)
	}
	if len(p.Lines) > domain.MaxUtterances {
		return domain.Draft{}, fmt.Errorf("panel %q has %d lines; at most %d fit one panel: %w",
			p.Label, len(p.Lines), domain.MaxUtterances, domain.ErrTooManyUtterances)
	}
	first := p.Lines[0]
	d := domain.NewDraft(first.Text)
	if err := d.SetSpeaker(d.Utterances[0].ID, first.Speaker, first.CharacterKey, first.VoicePreset); err != nil {
		return domain.Draft{}, err
	}
	for _, l := range p.Lines[1:] {
		u, err := d.AddUtterance(l.Speaker, l.CharacterKey, l.Text)
		if err != nil {
			return domain.Draft{}, err
		}
		if l.VoicePreset != "" {
			if err := d.SetSpeaker(u.ID, l.Speaker, l.CharacterKey, l.VoicePreset); err != nil {
				return domain.Draft{}, err
			}
		}
	}
	return d, nil
}
