/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"gocomicbubbles/internal/domain"
)

var (
	rePanel = regexp.MustCompile(`^(?i)panel\s*(\d*)\b\s*(.*)$`)
	reName  = regexp.MustCompile(`^([A-Za-z0-9_\- ]{1,64})\s*:\s*(.*)$`)
	reTag   = regexp.MustCompile(`(?i)@([a-z0-9_\-]+)`)
)

// Parse reads a lettering script. Problems are collected per line and the
// rest of the script is still parsed.
func Parse(input string) (Script, []Error) {
	var (
		s       Script
		errs    []Error
		current *Panel
		last    *Line
	)
	panel := func() *Panel {
		if current == nil {
			s.Panels = append(s.Panels, Panel{Label: "1"})
			current = &s.Panels[len(s.Panels)-1]
		}
		return current
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.HasPrefix(line, "  ") && last != nil {
			if cont := strings.TrimSpace(line); cont != "" {
				text, voice := takeVoice(cont)
				last.Text += "\n" + text
				if last.VoicePreset == "" {
					last.VoicePreset = voice
				}
			}
			continue
		}

		trim := strings.TrimSpace(line)
		switch {
		case trim == "":
			last = nil
		case strings.HasPrefix(trim, ";"):
			last = nil
		case rePanel.MatchString(trim):
			m := rePanel.FindStringSubmatch(trim)
			label := m[1]
			if label == "" {
				label = strconv.Itoa(len(s.Panels) + 1)
			}
			s.Panels = append(s.Panels, Panel{Label: label})
			current = &s.Panels[len(s.Panels)-1]
			last = nil
		case reName.MatchString(trim):
			m := reName.FindStringSubmatch(trim)
			name := strings.TrimSpace(m[1])
			text, voice := takeVoice(strings.TrimSpace(m[2]))
			l := Line{Speaker: domain.SpeakerCharacter, CharacterKey: characterKey(name), VoicePreset: voice, Text: text, LineNo: lineNo}
			if up := strings.ToUpper(name); up == "CAPTION" || up == "NARRATION" {
				l.Speaker, l.CharacterKey = domain.SpeakerNarration, ""
			}
			p := panel()
			p.Lines = append(p.Lines, l)
			last = &p.Lines[len(p.Lines)-1]
		default:
			errs = append(errs, Error{Line: lineNo, Message: "expected NAME: text, PANEL or ; note"})
			last = nil
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Message: err.Error()})
	}
	return s, errs
}

// takeVoice strips @tags from text and returns the first one.
func takeVoice(text string) (string, string) {
	m := reTag.FindStringSubmatch(text)
	if m == nil {
		return text, ""
	}
	clean := strings.Join(strings.Fields(reTag.ReplaceAllString(text, "")), " ")
	return clean, strings.ToLower(m[1])
}

func characterKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.Join(strings.Fields(name), " ")), " ", "_")
}
