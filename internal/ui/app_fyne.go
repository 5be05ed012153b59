//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gocomicbubbles/internal/assets"
	"gocomicbubbles/internal/config"
	"gocomicbubbles/internal/crash"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/editor"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/scene"
	"gocomicbubbles/internal/storage"
	"gocomicbubbles/internal/validate"
	"gocomicbubbles/internal/version"
)

// Run starts the desktop editor, opening workspaceDir when given.
func Run(workspaceDir string) error {
	cfg, token, cfgErr := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("ui")
	if cfgErr != nil {
		l.Warn("config not loaded; using defaults", slog.Any("err", cfgErr))
	}
	l.Info("starting UI", slog.String("version", version.String()))

	var current *sceneEditor
	defer crash.RecoverWith(func() *storage.Workspace {
		if current == nil {
			return nil
		}
		return current.sc.Workspace
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loader := assets.NewLoader(cfg.Editor.ImageCacheTTL(), nil)

	fyneApp := app.NewWithID("gocomicbubbles")
	w := fyneApp.NewWindow("Go Comic Bubbles")
	prefs := fyneApp.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1280), 900)),
		float32(max(prefs.IntWithFallback("window.height", 820), 600))))

	status := widget.NewLabel("Open a scene workspace to start.")
	root := container.NewStack()

	closeCurrent := func() {
		if current == nil {
			return
		}
		if err := current.sc.Close(context.Background()); err != nil {
			l.Error("close scene", slog.Any("err", err))
		}
		current = nil
	}

	var showStart func()
	openDir := func(dir string) {
		closeCurrent()
		ed, err := openEditor(ctx, dir, cfg, token, loader, w, status)
		if err != nil {
			l.Error("open workspace failed", slog.String("dir", dir), slog.Any("err", err))
			dialog.ShowError(err, w)
			showStart()
			return
		}
		current = ed
		addRecentWorkspace(prefs, dir)
		w.SetTitle(fmt.Sprintf("Go Comic Bubbles - %s", ed.sc.Workspace.Scene.SceneID))
		root.Objects = []fyne.CanvasObject{ed.content}
		root.Refresh()
	}
	pickDir := func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			openDir(uri.Path())
		}, w)
	}
	showStart = func() {
		w.SetTitle("Go Comic Bubbles")
		title := widget.NewLabelWithStyle("Go Comic Bubbles", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
		items := []fyne.CanvasObject{title, widget.NewButton("Open Workspace…", pickDir)}
		recent := loadRecentWorkspaces(prefs)
		if len(recent) > 0 {
			items = append(items, widget.NewLabel("Recent workspaces"))
			for _, dir := range recent {
				dir := dir
				items = append(items, widget.NewButton(dir, func() { openDir(dir) }))
			}
		}
		root.Objects = []fyne.CanvasObject{container.NewCenter(container.NewVBox(items...))}
		root.Refresh()
	}

	openItem := fyne.NewMenuItem("Open Workspace…", pickDir)
	saveItem := fyne.NewMenuItem("Save", func() {
		if current != nil {
			current.save()
		}
	})
	closeItem := fyne.NewMenuItem("Close Workspace", func() {
		closeCurrent()
		showStart()
	})
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		saveItem.Action()
	})
	w.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		if current != nil && (e.Name == fyne.KeyDelete || e.Name == fyne.KeyBackspace) {
			current.deleteSelectedBubble()
		}
	})
	aboutItem := fyne.NewMenuItem("About Go Comic Bubbles", func() {
		info := fmt.Sprintf("Go Comic Bubbles\nVersion: %s\nOS: %s\nArch: %s\nGo: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version())
		dialog.ShowInformation("About", info, w)
	})
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", openItem, saveItem, closeItem),
		fyne.NewMenu("Help", aboutItem),
	))

	w.SetContent(container.NewBorder(nil, status, nil, nil, root))
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		closeCurrent()
		w.Close()
	})

	if workspaceDir != "" {
		openDir(workspaceDir)
	} else {
		showStart()
	}
	w.ShowAndRun()
	return nil
}

// sceneEditor is the editing view of one open workspace.
type sceneEditor struct {
	sc     *scene.Scene
	w      fyne.Window
	status *widget.Label
	log    *slog.Logger

	content fyne.CanvasObject
	canvas  *BubbleCanvas

	uttList     *widget.List
	textEntry   *widget.Entry
	speaker     *widget.RadioGroup
	charKey     *widget.Entry
	typeSelect  *widget.Select
	sizeRadio   *widget.RadioGroup
	tailCheck   *widget.Check
	bubbleLabel *widget.Label
	issuesList  *widget.List
	publishBtn  *widget.Button

	view        editor.View
	selUtt      int
	selBubble   string
	issues      []validate.Error
	typeNames   []string
	typeByName  map[string]domain.Archetype
	syncingForm bool
}

const (
	speakerNarration = "Narration"
	speakerCharacter = "Character"
)

func openEditor(ctx context.Context, dir string, cfg config.AppConfig, token string, loader *assets.Loader, w fyne.Window, status *widget.Label) (*sceneEditor, error) {
	ed := &sceneEditor{w: w, status: status, log: applog.WithComponent("ui"), typeByName: map[string]domain.Archetype{}}
	sc, err := scene.Open(dir, scene.Options{
		Config: cfg,
		Token:  token,
		OnChange: func(v editor.View) {
			fyne.Do(func() { ed.refresh(v) })
		},
	})
	if err != nil {
		return nil, err
	}
	ed.sc = sc
	ed.build()
	ed.refresh(sc.Session.View())
	sc.StartAutosave(ctx)

	status.SetText("Loading base image…")
	go func() {
		img, err := sc.LoadImage(ctx, loader)
		fyne.Do(func() {
			if err != nil {
				ed.log.Error("base image load failed", slog.Any("err", err))
				status.SetText("Base image could not be loaded.")
				dialog.ShowError(err, w)
				return
			}
			status.SetText(fmt.Sprintf("Loaded %s (%dx%d).", filepath.Base(img.Ref), img.Bounds().Dx(), img.Bounds().Dy()))
		})
	}()
	return ed, nil
}

func (ed *sceneEditor) build() {
	s := ed.sc.Session
	ed.canvas = NewBubbleCanvas(s, ed.sc.Fonts)
	ed.canvas.OnSelect = func(id string) {
		ed.selBubble = id
		if b, ok := ed.findBubble(id); ok {
			ed.selectUtterance(b.UtteranceID)
		}
		ed.syncForm()
	}
	ed.canvas.OnError = ed.showErr

	// utterances
	ed.uttList = widget.NewList(
		func() int { return len(ed.view.Draft.Utterances) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			utts := ed.view.Draft.Utterances
			if i < 0 || i >= len(utts) {
				o.(*widget.Label).SetText("")
				return
			}
			o.(*widget.Label).SetText(utteranceLabel(i, utts[i], ed.view.Draft))
		},
	)
	ed.uttList.OnSelected = func(id widget.ListItemID) {
		ed.selUtt = id
		ed.syncForm()
	}
	ed.textEntry = widget.NewMultiLineEntry()
	ed.textEntry.SetPlaceHolder("Utterance text")
	ed.textEntry.Wrapping = fyne.TextWrapWord
	ed.textEntry.OnChanged = func(text string) {
		if u, ok := ed.currentUtterance(); ok && !ed.syncingForm {
			ed.showErr(s.UpdateUtteranceText(u.ID, text))
		}
	}
	ed.charKey = widget.NewEntry()
	ed.charKey.SetPlaceHolder("character key")
	ed.speaker = widget.NewRadioGroup([]string{speakerNarration, speakerCharacter}, func(string) { ed.applySpeaker() })
	ed.speaker.Horizontal = true
	ed.charKey.OnSubmitted = func(string) { ed.applySpeaker() }

	addUtt := widget.NewButton("Add", func() {
		u, err := s.AddUtterance(domain.SpeakerCharacter, "", "")
		if ed.showErr(err) {
			return
		}
		ed.selectUtterance(u.ID)
	})
	delUtt := widget.NewButton("Delete", func() {
		if u, ok := ed.currentUtterance(); ok {
			ed.showErr(s.DeleteUtterance(u.ID))
		}
	})
	upUtt := widget.NewButton("Up", func() { ed.moveUtterance(-1) })
	downUtt := widget.NewButton("Down", func() { ed.moveUtterance(1) })

	left := container.NewBorder(
		widget.NewLabelWithStyle("Utterances", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewVBox(
			container.NewGridWithColumns(4, addUtt, delUtt, upUtt, downUtt),
			ed.speaker, ed.charKey,
			container.NewGridWrap(fyne.NewSize(260, 120), ed.textEntry),
		),
		nil, nil, ed.uttList)

	// bubbles
	for _, a := range domain.Archetypes() {
		spec := domain.Catalog(a)
		name := strings.TrimSpace(spec.Icon + " " + spec.Name)
		ed.typeNames = append(ed.typeNames, name)
		ed.typeByName[name] = a
	}
	ed.typeSelect = widget.NewSelect(ed.typeNames, func(name string) {
		if ed.syncingForm || ed.selBubble == "" {
			return
		}
		ed.showErr(s.SetBubbleType(ed.selBubble, ed.typeByName[name]))
	})
	ed.typeSelect.SetSelected(ed.typeNames[0])
	ed.sizeRadio = widget.NewRadioGroup([]string{string(domain.SizeS), string(domain.SizeM), string(domain.SizeL)}, func(v string) {
		if ed.syncingForm || ed.selBubble == "" || v == "" {
			return
		}
		ed.showErr(s.SetSizePreset(ed.selBubble, domain.SizePreset(v)))
	})
	ed.sizeRadio.Horizontal = true
	ed.tailCheck = widget.NewCheck("Tail", func(on bool) {
		if ed.syncingForm || ed.selBubble == "" {
			return
		}
		ed.showErr(s.SetTailEnabled(ed.selBubble, on))
	})
	ed.bubbleLabel = widget.NewLabel("No bubble selected")
	addBubble := widget.NewButton("Add bubble", func() {
		u, ok := ed.currentUtterance()
		if !ok {
			dialog.ShowInformation("Add bubble", "Select an utterance first.", ed.w)
			return
		}
		b, err := s.AddBubble(ed.typeByName[ed.typeSelect.Selected], u.ID)
		if ed.showErr(err) {
			return
		}
		ed.selBubble = b.ID
		ed.syncForm()
	})
	delBubble := widget.NewButton("Delete bubble", ed.deleteSelectedBubble)
	linkBubble := widget.NewButton("Link to utterance", func() {
		u, ok := ed.currentUtterance()
		if ok && ed.selBubble != "" {
			ed.showErr(s.LinkBubble(ed.selBubble, u.ID))
		}
	})

	// validation and publish
	ed.issuesList = widget.NewList(
		func() int { return len(ed.issues) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && i < len(ed.issues) {
				o.(*widget.Label).SetText(fmt.Sprintf("%s: %s", ed.issues[i].Type, ed.issues[i].Message))
			}
		},
	)
	ed.issuesList.OnSelected = func(i widget.ListItemID) {
		if i >= 0 && i < len(ed.issues) {
			ed.selBubble = ed.issues[i].BubbleID
			ed.syncForm()
		}
		ed.issuesList.UnselectAll()
	}
	ed.publishBtn = widget.NewButton("Publish", ed.publish)
	ed.publishBtn.Importance = widget.HighImportance

	right := container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Bubble", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			ed.bubbleLabel, ed.typeSelect, ed.sizeRadio, ed.tailCheck,
			container.NewGridWithColumns(2, addBubble, delBubble), linkBubble,
			widget.NewSeparator(),
			widget.NewLabelWithStyle("Issues", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		),
		ed.publishBtn, nil, nil, ed.issuesList)

	split := container.NewHSplit(left, container.NewHSplit(ed.canvas, right))
	split.Offset = 0.22
	split.Trailing.(*container.Split).Offset = 0.75
	ed.content = split
}

func utteranceLabel(i int, u domain.Utterance, d domain.Draft) string {
	n := 0
	for _, b := range d.Bubbles {
		if b.UtteranceID == u.ID {
			n++
		}
	}
	who := string(u.SpeakerType)
	if u.SpeakerCharacterKey != "" {
		who = u.SpeakerCharacterKey
	}
	text := strings.ReplaceAll(u.Text, "\n", " ")
	if r := []rune(text); len(r) > 32 {
		text = string(r[:32]) + "…"
	}
	return fmt.Sprintf("%d. [%s] %s (%d)", i+1, who, text, n)
}

// refresh applies a session view to every widget.
func (ed *sceneEditor) refresh(v editor.View) {
	ed.view = v
	if _, ok := ed.findBubble(ed.selBubble); !ok {
		ed.selBubble = ""
	}
	if ed.selUtt >= len(v.Draft.Utterances) {
		ed.selUtt = len(v.Draft.Utterances) - 1
	}
	ed.issues = v.Validation.Errors
	ed.uttList.Refresh()
	ed.issuesList.Refresh()
	ed.syncForm()
	ed.canvas.Refresh()

	if v.Validation.Ready && v.Validation.OK && !v.Publishing {
		ed.publishBtn.Enable()
	} else {
		ed.publishBtn.Disable()
	}
	switch {
	case v.Publishing:
		ed.publishBtn.SetText("Publishing…")
	default:
		ed.publishBtn.SetText("Publish")
	}
}

// syncForm copies the selection into the form controls without feeding
// the changes back into the session.
func (ed *sceneEditor) syncForm() {
	ed.syncingForm = true
	defer func() { ed.syncingForm = false }()

	if u, ok := ed.currentUtterance(); ok {
		if ed.textEntry.Text != u.Text {
			ed.textEntry.SetText(u.Text)
		}
		if u.SpeakerType == domain.SpeakerNarration {
			ed.speaker.SetSelected(speakerNarration)
		} else {
			ed.speaker.SetSelected(speakerCharacter)
		}
		if ed.charKey.Text != u.SpeakerCharacterKey {
			ed.charKey.SetText(u.SpeakerCharacterKey)
		}
		ed.textEntry.Enable()
	} else {
		ed.textEntry.SetText("")
		ed.textEntry.Disable()
	}

	b, ok := ed.findBubble(ed.selBubble)
	if !ok {
		ed.bubbleLabel.SetText("No bubble selected")
		ed.sizeRadio.SetSelected("")
		ed.tailCheck.SetChecked(false)
		ed.tailCheck.Disable()
		return
	}
	spec := domain.Catalog(b.Type)
	ed.typeSelect.SetSelected(ed.typeNames[b.Type])
	size := string(b.SizePreset)
	label := spec.Name
	if b.SizePreset == domain.SizeCustom {
		size = ""
		label += " (custom size)"
	}
	ed.bubbleLabel.SetText(label)
	ed.sizeRadio.SetSelected(size)
	if spec.HasTail {
		ed.tailCheck.Enable()
		ed.tailCheck.SetChecked(b.Tail != nil && b.Tail.Enabled)
	} else {
		ed.tailCheck.SetChecked(false)
		ed.tailCheck.Disable()
	}
}

func (ed *sceneEditor) findBubble(id string) (domain.Bubble, bool) {
	if id == "" {
		return domain.Bubble{}, false
	}
	for _, b := range ed.view.Draft.Bubbles {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Bubble{}, false
}

func (ed *sceneEditor) currentUtterance() (domain.Utterance, bool) {
	utts := ed.view.Draft.Utterances
	if ed.selUtt < 0 || ed.selUtt >= len(utts) {
		return domain.Utterance{}, false
	}
	return utts[ed.selUtt], true
}

func (ed *sceneEditor) selectUtterance(id string) {
	for i, u := range ed.view.Draft.Utterances {
		if u.ID == id {
			ed.selUtt = i
			ed.uttList.Select(i)
			return
		}
	}
}

func (ed *sceneEditor) applySpeaker() {
	u, ok := ed.currentUtterance()
	if !ok || ed.syncingForm {
		return
	}
	sp := domain.SpeakerCharacter
	key := strings.TrimSpace(ed.charKey.Text)
	if ed.speaker.Selected == speakerNarration {
		sp = domain.SpeakerNarration
		key = ""
	}
	ed.showErr(ed.sc.Session.SetSpeaker(u.ID, sp, key, u.VoicePresetID))
}

func (ed *sceneEditor) moveUtterance(delta int) {
	u, ok := ed.currentUtterance()
	if !ok {
		return
	}
	to := ed.selUtt + delta
	if to < 0 || to >= len(ed.view.Draft.Utterances) {
		return
	}
	if ed.showErr(ed.sc.Session.MoveUtterance(u.ID, to)) {
		return
	}
	ed.selUtt = to
	ed.uttList.Select(to)
}

func (ed *sceneEditor) deleteSelectedBubble() {
	if ed.selBubble == "" {
		return
	}
	if !ed.showErr(ed.sc.Session.DeleteBubble(ed.selBubble)) {
		ed.selBubble = ""
		ed.syncForm()
	}
}

func (ed *sceneEditor) save() {
	if err := ed.sc.Save(context.Background()); err != nil {
		ed.showErr(err)
		return
	}
	ed.status.SetText(fmt.Sprintf("Saved %s.", ed.sc.Workspace.ManifestPath))
}

func (ed *sceneEditor) publish() {
	ed.status.SetText("Publishing…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		p, err := ed.sc.Publish(ctx)
		fyne.Do(func() {
			var invalid *editor.InvalidDraftError
			switch {
			case errors.As(err, &invalid):
				ed.status.SetText(fmt.Sprintf("Not published: %d issue(s).", len(invalid.Errors)))
			case err != nil:
				ed.log.Error("publish failed", slog.Any("err", err))
				ed.status.SetText("Publish failed.")
				dialog.ShowError(err, ed.w)
			default:
				ed.status.SetText(fmt.Sprintf("Published %s at %s.", p.SceneID, p.CreatedAt.Local().Format(time.Kitchen)))
			}
		})
	}()
}

// showErr reports err and tells whether there was one.
func (ed *sceneEditor) showErr(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, editor.ErrPublishing):
		ed.status.SetText("Edits are paused while publishing.")
	default:
		ed.log.Warn("edit rejected", slog.Any("err", err))
		dialog.ShowError(err, ed.w)
	}
	return true
}

const (
	recentPrefsKey = "recent.workspaces"
	recentMax      = 10
)

func loadRecentWorkspaces(p fyne.Preferences) []string {
	var items []string
	if raw := p.StringWithFallback(recentPrefsKey, ""); strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, storage.ManifestFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentWorkspace(p fyne.Preferences, dir string) {
	if strings.TrimSpace(dir) == "" {
		return
	}
	abs, _ := filepath.Abs(dir)
	out := []string{abs}
	for _, s := range loadRecentWorkspaces(p) {
		if !strings.EqualFold(s, abs) {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
