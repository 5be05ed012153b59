/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/storage"
)

func TestWriteReport_TempWithoutWorkspace(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Go Comic Bubbles Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func openWorkspace(t *testing.T) *storage.Workspace {
	t.Helper()
	ws, err := storage.InitWorkspace(t.TempDir(), storage.Scene{
		SceneID:      "scene-7",
		BaseImageRef: "page.png",
		Draft:        domain.NewDraft("Wait!"),
	})
	if err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	return ws
}

func TestWriteReport_WorkspaceBackups(t *testing.T) {
	ws := openWorkspace(t)
	path, err := writeReport(ws, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(ws.Root, storage.BackupsDirName) {
		t.Fatalf("expected report under backups, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("Scene: scene-7 (1 utterances, 0 bubbles)")) {
		t.Fatalf("scene line missing: %s", b)
	}
}

func TestRecover_WritesReportAndSnapshot(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	ws := openWorkspace(t)
	func() {
		defer Recover(ws)
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	files, err := os.ReadDir(filepath.Join(ws.Root, storage.BackupsDirName))
	if err != nil {
		t.Fatal(err)
	}
	var report, snapshot bool
	for _, f := range files {
		name := f.Name()
		report = report || (strings.HasPrefix(name, "crash-") && strings.HasSuffix(name, ".log"))
		snapshot = snapshot || strings.Contains(name, ".crash-")
	}
	if !report || !snapshot {
		t.Fatalf("report=%v snapshot=%v in %v", report, snapshot, files)
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	oldExit := exitFn
	exitFn = func(int) { t.Fatal("exit called without a panic") }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
}

func TestRecoverWith_LateWorkspace(t *testing.T) {
	oldStderr := os.Stderr
	_, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
	}()
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	var ws *storage.Workspace
	func() {
		defer RecoverWith(func() *storage.Workspace { return ws })
		ws = openWorkspace(t)
		panic("late")
	}()
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	files, _ := os.ReadDir(filepath.Join(ws.Root, storage.BackupsDirName))
	found := false
	for _, f := range files {
		found = found || strings.HasPrefix(f.Name(), "crash-")
	}
	if !found {
		t.Fatalf("no crash report in %v", files)
	}
}
