/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/export"
	"gocomicbubbles/internal/scene"
	"gocomicbubbles/internal/script"
	"gocomicbubbles/internal/storage"
	"gocomicbubbles/internal/textlayout"
	"gocomicbubbles/internal/validate"
	"gocomicbubbles/internal/vector"
)

func newInitCommand(a *cli) *cobra.Command {
	var (
		sceneID    string
		image      string
		texts      []string
		scriptPath string
		panel      int
	)
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a scene workspace over a base image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sceneID == "" {
				sceneID = uuid.NewString()
			}
			d, err := initialDraft(texts, scriptPath, panel)
			if err != nil {
				return err
			}
			ws, err := storage.InitWorkspace(args[0], storage.Scene{
				SceneID:      sceneID,
				BaseImageRef: image,
				Draft:        d,
			})
			if err != nil {
				return err
			}
			img, err := a.loader.Load(cmd.Context(), ws.ResolveImageRef())
			if err != nil {
				return fmt.Errorf("base image: %w", err)
			}
			if err := ws.SetBaseImageID(img.ID); err != nil {
				return err
			}
			b := img.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized scene %s at %s (%s %dx%d)\n",
				sceneID, ws.Root, img.Format, b.Dx(), b.Dy())
			return nil
		},
	}
	cmd.Flags().StringVar(&sceneID, "scene", "", "scene id (default: a new UUID)")
	cmd.Flags().StringVar(&image, "image", "", "base image path or http(s) URL")
	cmd.Flags().StringArrayVar(&texts, "text", nil, "utterance text; repeat for more lines")
	cmd.Flags().StringVar(&scriptPath, "script", "", "lettering script to take the utterances from")
	cmd.Flags().IntVar(&panel, "panel", 1, "panel of --script to use")
	cmd.MarkFlagsMutuallyExclusive("text", "script")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func initialDraft(texts []string, scriptPath string, panel int) (domain.Draft, error) {
	if scriptPath != "" {
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return domain.Draft{}, err
		}
		sc, errs := script.Parse(string(data))
		if len(errs) > 0 {
			return domain.Draft{}, fmt.Errorf("%s: %w", scriptPath, errs[0])
		}
		p, err := sc.Panel(panel)
		if err != nil {
			return domain.Draft{}, err
		}
		return p.Draft()
	}
	if len(texts) == 0 {
		return domain.NewDraft(""), nil
	}
	d := domain.NewDraft(texts[0])
	for _, t := range texts[1:] {
		if _, err := d.AddUtterance(domain.SpeakerCharacter, "", t); err != nil {
			return domain.Draft{}, err
		}
	}
	return d, nil
}

// openScene opens dir with its base image loaded.
func (a *cli) openScene(cmd *cobra.Command, dir string) (*scene.Scene, error) {
	s, err := scene.Open(dir, scene.Options{Config: a.cfg, Token: a.token})
	if err != nil {
		return nil, err
	}
	if _, err := s.LoadImage(cmd.Context(), a.loader); err != nil {
		_ = s.Close(cmd.Context())
		return nil, err
	}
	return s, nil
}

func newBubbleCommand(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bubble",
		Short: "Add, list or delete bubbles",
	}
	cmd.AddCommand(newBubbleAddCommand(a), newBubbleListCommand(), newBubbleDeleteCommand(a))
	return cmd
}

// resolveUtterance accepts an utterance id or its 1-based position.
func resolveUtterance(d domain.Draft, ref string) (string, error) {
	if ref == "" {
		if len(d.Utterances) == 0 {
			return "", errors.New("scene has no utterances")
		}
		return d.Utterances[0].ID, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(d.Utterances) {
			return "", fmt.Errorf("utterance %d out of range 1..%d", n, len(d.Utterances))
		}
		return d.Utterances[n-1].ID, nil
	}
	if _, ok := d.Utterance(ref); !ok {
		return "", fmt.Errorf("unknown utterance %q", ref)
	}
	return ref, nil
}

func newBubbleAddCommand(a *cli) *cobra.Command {
	var (
		typ       string
		utterance string
		size      string
	)
	cmd := &cobra.Command{
		Use:   "add <dir>",
		Short: "Add a bubble linked to an utterance",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.ParseArchetype(typ); err != nil {
				return fmt.Errorf("%w (one of: %s)", err, archetypeList())
			}
			if size != "" {
				if _, err := domain.ParseSizePreset(size); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.openScene(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close(cmd.Context())) }()

			uid, err := resolveUtterance(s.Session.Draft(), utterance)
			if err != nil {
				return err
			}
			arch, _ := domain.ParseArchetype(typ)
			b, err := s.Session.AddBubble(arch, uid)
			if err != nil {
				return err
			}
			if size != "" {
				p, _ := domain.ParseSizePreset(size)
				if err := s.Session.SetSizePreset(b.ID, p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", domain.SpeechRound.String(), "bubble archetype")
	cmd.Flags().StringVar(&utterance, "utterance", "", "utterance id or 1-based index (default: first)")
	cmd.Flags().StringVar(&size, "size", "", "size preset (S, M or L)")
	return cmd
}

func archetypeList() string {
	var ids []string
	for _, t := range domain.Archetypes() {
		ids = append(ids, t.String())
	}
	return strings.Join(ids, ", ")
}

func newBubbleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <dir>",
		Short: "List the bubbles of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := storage.OpenWorkspace(args[0])
			if err != nil {
				return err
			}
			d := ws.Scene.Draft
			out := cmd.OutOrStdout()
			if len(d.Bubbles) == 0 {
				fmt.Fprintln(out, "No bubbles.")
				return nil
			}
			for _, b := range d.Bubbles {
				text := d.TextFor(b)
				if len(text) > 40 {
					text = text[:37] + "..."
				}
				fmt.Fprintf(out, "%s  %-18s  (%.3f, %.3f)  %q\n", b.ID, b.Type, b.Position.X, b.Position.Y, text)
			}
			return nil
		},
	}
}

func newBubbleDeleteCommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dir> <bubble-id>",
		Short: "Delete a bubble",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := scene.Open(args[0], scene.Options{Config: a.cfg, Token: a.token})
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close(cmd.Context())) }()
			return s.Session.DeleteBubble(args[1])
		},
	}
}

func newValidateCommand(a *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check that every bubble is inside the image and its text fits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.openScene(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close(cmd.Context())) }()

			res := s.Session.Validation()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				for _, e := range res.Errors {
					fmt.Fprintf(out, "%s  %s\n", e.BubbleID, e)
				}
				fmt.Fprintln(out, statusLine(res))
			}
			if !res.OK {
				return fmt.Errorf("scene has %d problem(s)", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func statusLine(res validate.Result) string {
	switch {
	case !res.Ready:
		return "not ready"
	case res.OK:
		return "ready"
	default:
		return fmt.Sprintf("%d problem(s)", len(res.Errors))
	}
}

func newRenderCommand(a *cli) *cobra.Command {
	var (
		outDir string
		pdf    bool
		jobs   int
		preset string
	)
	cmd := &cobra.Command{
		Use:   "render <dir>...",
		Short: "Flatten scenes into PNG files, optionally with proof PDFs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fonts, err := scene.LoadFonts(a.cfg.Editor)
			if err != nil {
				return err
			}
			m := textlayout.NewOTMeasurer(fonts)
			batch := make([]export.Job, 0, len(args))
			for _, dir := range args {
				ws, err := storage.OpenWorkspace(dir)
				if err != nil {
					return err
				}
				img, err := a.loader.Load(cmd.Context(), ws.ResolveImageRef())
				if err != nil {
					return fmt.Errorf("%s: %w", dir, err)
				}
				d := ws.Scene.Draft
				bounds := img.Bounds()
				res := validate.Validate(&d, vector.Size{W: float64(bounds.Dx()), H: float64(bounds.Dy())}, m)

				target := ws.ExportsDir()
				name := "render"
				if outDir != "" {
					target, name = outDir, ws.Scene.SceneID
				}
				proof := export.ProofMeta{SceneID: ws.Scene.SceneID, Status: statusLine(res)}
				job := export.Job{
					Base:    img.Image,
					Draft:   d,
					PNGPath: filepath.Join(target, name+".png"),
					Proof:   proof,
				}
				if preset != "" {
					pr, err := export.LookupPreset(preset)
					if err != nil {
						return err
					}
					job = pr.Job(name, img.Image, d, target, proof)
				}
				if pdf && job.PDFPath == "" {
					job.PDFPath = strings.TrimSuffix(job.PNGPath, ".png") + ".pdf"
				}
				job.Name = dir
				batch = append(batch, job)
			}
			outs, err := export.Batch(cmd.Context(), batch, jobs, fonts)
			if err != nil {
				return err
			}
			for i, o := range outs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d bytes, %s)\n", o.Name, batch[i].PNGPath, len(o.PNG), o.Duration.Round(1e6))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "write <scene-id>.png here instead of each workspace's exports/")
	cmd.Flags().BoolVar(&pdf, "pdf", false, "also write a proof PDF")
	cmd.Flags().IntVar(&jobs, "jobs", 4, "scenes rendered at once")
	cmd.Flags().StringVar(&preset, "preset", "", "export preset (web, print); outputs go to a subfolder named after it")
	return cmd
}

func newPublishCommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <dir>",
		Short: "Validate, flatten and publish a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.openScene(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close(cmd.Context())) }()

			p, err := s.Publish(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published scene %s (%d bubbles)\n", p.SceneID, len(p.Draft.Bubbles))
			return nil
		},
	}
}

func newHistoryCommand(a *cli) *cobra.Command {
	var (
		limit   int
		restore int64
	)
	cmd := &cobra.Command{
		Use:   "history <dir>",
		Short: "List autosaved drafts or restore one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := storage.OpenWorkspace(args[0])
			if err != nil {
				return err
			}
			h, err := storage.OpenHistory(ws.Root)
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			sceneID := ws.Scene.SceneID
			if restore == 0 {
				entries, err := h.List(cmd.Context(), sceneID, limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s  %d bubbles\n", e.ID, e.TS.Local().Format("2006-01-02 15:04:05"), e.Bubbles)
				}
				return nil
			}
			entries, err := h.List(cmd.Context(), sceneID, a.cfg.Editor.HistoryKeep)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.ID == restore {
					j := storage.Journal{Workspace: ws, History: h, Keep: a.cfg.Editor.HistoryKeep}
					if err := j.SaveDraft(cmd.Context(), sceneID, e.Draft); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Restored draft %d\n", e.ID)
					return nil
				}
			}
			return fmt.Errorf("no history entry %d for scene %s", restore, sceneID)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "entries to list")
	cmd.Flags().Int64Var(&restore, "restore", 0, "restore the draft with this id")
	return cmd
}
