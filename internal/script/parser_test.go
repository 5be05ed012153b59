/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"testing"

	"gocomicbubbles/internal/domain"
)

func TestParsePanelsAndSpeakers(t *testing.T) {
	input := `PANEL 1
CAPTION: Meanwhile, at the harbor...
Mira Vale: Did you hear that?
  It came from the water. @whisper

; the gull is off panel
Panel 2
GULL: Skree!`

	s, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(s.Panels) != 2 {
		t.Fatalf("expected 2 panels, got %d", len(s.Panels))
	}
	p1 := s.Panels[0]
	if p1.Label != "1" || len(p1.Lines) != 2 {
		t.Fatalf("unexpected panel 1: %+v", p1)
	}
	if p1.Lines[0].Speaker != domain.SpeakerNarration || p1.Lines[0].CharacterKey != "" {
		t.Fatalf("caption should be narration: %+v", p1.Lines[0])
	}
	mira := p1.Lines[1]
	if mira.Speaker != domain.SpeakerCharacter || mira.CharacterKey != "mira_vale" {
		t.Fatalf("unexpected speaker: %+v", mira)
	}
	if mira.Text != "Did you hear that?\nIt came from the water." {
		t.Fatalf("unexpected text: %q", mira.Text)
	}
	if mira.VoicePreset != "whisper" || mira.LineNo != 3 {
		t.Fatalf("unexpected voice/line: %+v", mira)
	}
	if s.Panels[1].Label != "2" || s.Panels[1].Lines[0].CharacterKey != "gull" {
		t.Fatalf("unexpected panel 2: %+v", s.Panels[1])
	}
}

func TestParseImplicitPanelAndErrors(t *testing.T) {
	s, errs := Parse("NARRATION: Night.\nthis line has no speaker\nBOB: Hi.")
	if len(errs) != 1 || errs[0].Line != 2 {
		t.Fatalf("expected one error on line 2, got %+v", errs)
	}
	if len(s.Panels) != 1 || len(s.Panels[0].Lines) != 2 {
		t.Fatalf("unexpected panels: %+v", s.Panels)
	}
	if _, err := s.Panel(2); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestPanelDraft(t *testing.T) {
	s, _ := Parse("CAPTION: Dawn.\nMIRA: Up already? @sleepy\nBOB: Always.")
	p, err := s.Panel(1)
	if err != nil {
		t.Fatal(err)
	}
	d, err := p.Draft()
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Utterances) != 3 || len(d.Bubbles) != 0 {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if u := d.Utterances[1]; u.SpeakerCharacterKey != "mira" || u.VoicePresetID != "sleepy" || u.Text != "Up already?" {
		t.Fatalf("unexpected utterance: %+v", u)
	}
	if d.Utterances[0].SpeakerType != domain.SpeakerNarration {
		t.Fatalf("first line should be narration: %+v", d.Utterances[0])
	}

	s, _ = Parse("A: 1\nB: 2\nC: 3\nD: 4")
	_, err = s.Panels[0].Draft()
	if !errors.Is(err, domain.ErrTooManyUtterances) {
		t.Fatalf("expected too many utterances, got %v", err)
	}
	if _, err := (Panel{Label: "empty"}).Draft(); err == nil {
		t.Fatal("expected error for empty panel")
	}
}
