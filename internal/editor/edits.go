/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"gocomicbubbles/internal/coords"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/interact"
	"gocomicbubbles/internal/vector"
)

func (s *Session) AddUtterance(speaker domain.SpeakerType, characterKey, text string) (domain.Utterance, error) {
	var u domain.Utterance
	err := s.edit("add_utterance", func(d *domain.Draft) (err error) {
		u, err = d.AddUtterance(speaker, characterKey, text)
		return err
	})
	return u, err
}

func (s *Session) UpdateUtteranceText(id, text string) error {
	return s.edit("update_text", func(d *domain.Draft) error { return d.UpdateUtteranceText(id, text) })
}

func (s *Session) SetSpeaker(id string, speaker domain.SpeakerType, characterKey, voicePresetID string) error {
	return s.edit("set_speaker", func(d *domain.Draft) error {
		return d.SetSpeaker(id, speaker, characterKey, voicePresetID)
	})
}

// DeleteUtterance removes an utterance and the bubbles linked to it.
func (s *Session) DeleteUtterance(id string) error {
	return s.edit("delete_utterance", func(d *domain.Draft) error { return d.DeleteUtterance(id) })
}

func (s *Session) MoveUtterance(id string, to int) error {
	return s.edit("move_utterance", func(d *domain.Draft) error { return d.MoveUtterance(id, to) })
}

// AddBubble places a new bubble of typ where it overlaps the existing ones
// the least. Vertical archetypes are placed scanning from the right.
func (s *Session) AddBubble(typ domain.Archetype, utteranceID string) (domain.Bubble, error) {
	var b domain.Bubble
	err := s.edit("add_bubble", func(d *domain.Draft) (err error) {
		b, err = d.AddBubble(typ, utteranceID, s.suggestPositionLocked(d, typ))
		return err
	})
	return b, err
}

func (s *Session) suggestPositionLocked(d *domain.Draft, typ domain.Archetype) domain.Point {
	if s.natural.Empty() {
		return domain.Point{X: 0.1, Y: 0.1}
	}
	sz := domain.ResolveBubbleSizePx(domain.Bubble{Type: typ, SizePreset: domain.SizeM}, s.natural.W)
	obstacles := make([]vector.Rect, 0, len(d.Bubbles))
	for _, b := range d.Bubbles {
		obstacles = append(obstacles, coords.BubbleRectNatural(b, s.natural))
	}
	r, _ := vector.SuggestPlacement(vector.R(0, 0, s.natural.W, s.natural.H), sz, obstacles, vector.PlacementOptions{
		Margin:   coords.DragMarginPx,
		GridStep: s.natural.W / 50,
		RTL:      domain.Catalog(typ).Mode == domain.Vertical,
	})
	return coords.ClampPosition(coords.NaturalToNormalized(r.Min(), s.natural), sz, s.natural, coords.DragMarginPx)
}

func (s *Session) DeleteBubble(id string) error {
	return s.edit("delete_bubble", func(d *domain.Draft) error { return d.DeleteBubble(id) })
}

func (s *Session) SetBubbleType(id string, typ domain.Archetype) error {
	return s.edit("set_type", func(d *domain.Draft) error {
		if err := d.SetBubbleType(id, typ); err != nil {
			return err
		}
		return s.reclampLocked(d, id)
	})
}

func (s *Session) SetBubblePosition(id string, pos domain.Point) error {
	return s.edit("set_position", func(d *domain.Draft) error { return d.SetBubblePosition(id, pos) })
}

func (s *Session) SetSizePreset(id string, p domain.SizePreset) error {
	return s.edit("set_preset", func(d *domain.Draft) error {
		if err := d.SetSizePreset(id, p); err != nil {
			return err
		}
		return s.reclampLocked(d, id)
	})
}

func (s *Session) SetCustomSize(id string, sz domain.NormSize) error {
	return s.edit("set_custom_size", func(d *domain.Draft) error {
		if err := d.SetCustomSize(id, sz); err != nil {
			return err
		}
		return s.reclampLocked(d, id)
	})
}

// reclampLocked pulls a bubble back inside the image after its size
// changed. Without a measured image there is nothing to clamp against.
func (s *Session) reclampLocked(d *domain.Draft, id string) error {
	if s.natural.Empty() {
		return nil
	}
	b, ok := d.Bubble(id)
	if !ok {
		return domain.ErrBubbleNotFound
	}
	sz := domain.ResolveBubbleSizePx(*b, s.natural.W)
	b.Position = coords.ClampPosition(b.Position, sz, s.natural, coords.DragMarginPx)
	return nil
}

func (s *Session) SetTail(id string, t domain.Tail) error {
	return s.edit("set_tail", func(d *domain.Draft) error { return d.SetTail(id, t) })
}

// SetTailEnabled toggles the tail and keeps its tip.
func (s *Session) SetTailEnabled(id string, enabled bool) error {
	return s.edit("toggle_tail", func(d *domain.Draft) error {
		b, ok := d.Bubble(id)
		if !ok {
			return domain.ErrBubbleNotFound
		}
		tip := domain.Catalog(b.Type).DefaultTip
		if b.Tail != nil {
			tip = b.Tail.Tip
		}
		return d.SetTail(id, domain.Tail{Enabled: enabled, Tip: tip})
	})
}

func (s *Session) SetTextStyleOverride(id string, o *domain.TextStyleOverride) error {
	return s.edit("set_text_style", func(d *domain.Draft) error { return d.SetTextStyleOverride(id, o) })
}

func (s *Session) LinkBubble(bubbleID, utteranceID string) error {
	return s.edit("link_bubble", func(d *domain.Draft) error { return d.LinkBubble(bubbleID, utteranceID) })
}

// PointerDown forwards a press at display point (x,y). A press on a delete
// glyph deletes that bubble.
func (s *Session) PointerDown(x, y float64) (interact.Hit, error) {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return interact.Hit{}, ErrPublishing
	}
	h := s.ctl.PointerDown(&s.draft, s.rect, vector.Pt{X: x, Y: y})
	if h.Target == interact.TargetDelete {
		if err := s.draft.DeleteBubble(h.BubbleID); err != nil {
			s.mu.Unlock()
			return h, err
		}
		s.log.Debug("bubble deleted from canvas", "bubble", h.BubbleID)
	}
	s.commit()
	return h, nil
}

// PointerMove reports whether the draft changed.
func (s *Session) PointerMove(x, y float64) (bool, error) {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return false, ErrPublishing
	}
	if !s.ctl.PointerMove(&s.draft, s.rect, vector.Pt{X: x, Y: y}) {
		s.mu.Unlock()
		return false, nil
	}
	s.commit()
	return true, nil
}

func (s *Session) PointerUp() error {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return ErrPublishing
	}
	if s.ctl.PointerUp() == interact.Idle {
		s.mu.Unlock()
		return nil
	}
	s.commit()
	return nil
}
