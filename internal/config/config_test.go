/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config file and keyring at test-local stand-ins.
func isolate(t *testing.T) (string, memTokens) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	toks := memTokens{}
	old := tokenStore
	tokenStore = toks
	t.Cleanup(func() { tokenStore = old })
	return path, toks
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
}

func TestEnvOverridesPublishRemote(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPublishRemote, "yes")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.PublishRemote {
		t.Fatalf("General.PublishRemote expected true from env override")
	}
}

func TestMergeIncludesEnableServer(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.General.EnableServer = true
	mergeInto(&dst, &src)
	if !dst.General.EnableServer {
		t.Fatalf("EnableServer was not merged from file config")
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Editor.FontBold = "/fonts/bold.ttf"
	mergeInto(&dst, &src)
	if dst.Editor.AutosaveMs != 2000 || dst.Editor.HistoryKeep != 50 {
		t.Fatalf("zero values overwrote defaults: %#v", dst.Editor)
	}
	if dst.Editor.FontBold != "/fonts/bold.ttf" {
		t.Fatalf("font path not merged: %q", dst.Editor.FontBold)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/gcb.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/gcb.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	opts := dst.Logging.LogOptions()
	if opts.Level != "debug" || !opts.AddSource || opts.File != "C:/tmp/gcb.log" {
		t.Fatalf("LogOptions mismatch: %#v", opts)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/gcb.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/gcb.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	path, toks := isolate(t)
	cfg := Defaults()
	cfg.Editor.AutosaveMs = 750
	cfg.Server.Addr = ":9090"
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "secret-token" {
		t.Fatalf("token = %q", tok)
	}
	if got.Editor.AutosaveInterval() != 750*time.Millisecond || got.Server.Addr != ":9090" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if err := DeleteToken(); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if len(toks) != 0 {
		t.Fatalf("token not deleted: %v", toks)
	}
}

func TestLoadReportsMalformedFile(t *testing.T) {
	path, _ := isolate(t)
	if err := os.WriteFile(path, []byte("editor: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Backend.BaseURL != Defaults().Backend.BaseURL {
		t.Fatalf("defaults not returned alongside error")
	}
}

func TestEnvOverrideFor(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://x")
	if env, ok := EnvOverrideFor("server.database_url"); !ok || env != EnvDatabaseURL {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("editor.history_keep"); ok {
		t.Fatalf("history_keep has no env override")
	}
}

func TestDurationsFallBackToDefaults(t *testing.T) {
	var b BackendConfig
	if b.Timeout() != 15*time.Second {
		t.Fatalf("Timeout default = %v", b.Timeout())
	}
	var e EditorConfig
	if e.ImageCacheTTL() != 30*time.Minute {
		t.Fatalf("ImageCacheTTL default = %v", e.ImageCacheTTL())
	}
}
