/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/storage"
	"gocomicbubbles/internal/version"
)

const (
	maxDraftBody   = 4 << 20
	maxPublishBody = 96 << 20
	maxSceneID     = 128
)

// ScenePayload is the wire form of a publication, both accepted by the
// publish endpoint and returned by the published endpoint.
type ScenePayload struct {
	SceneID        string          `json:"scene_id"`
	BaseImageID    string          `json:"base_image_id"`
	FinishedRaster string          `json:"finished_raster"`
	Draft          json.RawMessage `json:"draft"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SaveResult answers a draft PUT.
type SaveResult struct {
	SceneID    string   `json:"scene_id"`
	Version    int64    `json:"version"`
	Migrations []string `json:"migrations,omitempty"`
}

type server struct {
	store  Store
	secret string
	log    *slog.Logger
}

// NewServer returns the HTTP API over store. Tokens are HMAC-signed with secret.
func NewServer(store Store, secret string) http.Handler {
	s := &server{store: store, secret: secret, log: applog.WithComponent("backend")}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.ready)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("gcbserver " + version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.issueToken)
	mux.HandleFunc("PUT /api/scenes/{scene}/draft", withAuth(secret, s.putDraft))
	mux.HandleFunc("GET /api/scenes/{scene}/draft", withAuth(secret, s.getDraft))
	mux.HandleFunc("POST /api/scenes/{scene}/publish", withAuth(secret, s.publish))
	mux.HandleFunc("GET /api/scenes/{scene}/published", withAuth(secret, s.published))
	return s.logRequests(mux)
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store not ready"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// issueToken answers { token, expires_at }. Body is optional:
// { "subject": "name", "ttl_seconds": 3600 }.
func (s *server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func sceneParam(r *http.Request) (string, error) {
	id := r.PathValue("scene")
	if id == "" || len(id) > maxSceneID {
		return "", errors.New("invalid scene id")
	}
	return id, nil
}

// canonicalDraft validates a draft document and returns its canonical form.
func canonicalDraft(raw []byte) ([]byte, []storage.Migration, error) {
	d, migs, err := storage.LoadDraftJSON(raw)
	if err != nil {
		return nil, nil, err
	}
	out, err := storage.MarshalDraft(d)
	if err != nil {
		return nil, nil, err
	}
	return out, migs, nil
}

func (s *server) putDraft(w http.ResponseWriter, r *http.Request, sub string) {
	scene, err := sceneParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDraftBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	body, migs, err := canonicalDraft(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ver, err := s.store.PutDraft(r.Context(), scene, body)
	if err != nil {
		s.log.Error("put draft", "scene", scene, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	res := SaveResult{SceneID: scene, Version: ver}
	for _, m := range migs {
		res.Migrations = append(res.Migrations, m.String())
	}
	s.log.Info("draft saved", "scene", scene, "version", ver, "subject", sub)
	writeJSON(w, http.StatusOK, res)
}

func (s *server) getDraft(w http.ResponseWriter, r *http.Request, _ string) {
	scene, err := sceneParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := s.store.GetDraft(r.Context(), scene)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no draft for scene %s", scene))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) publish(w http.ResponseWriter, r *http.Request, sub string) {
	scene, err := sceneParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req ScenePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode payload: %w", err))
		return
	}
	if req.SceneID != "" && req.SceneID != scene {
		writeError(w, http.StatusBadRequest, fmt.Errorf("scene id mismatch: %q in body, %q in path", req.SceneID, scene))
		return
	}
	raster, err := base64.StdEncoding.DecodeString(req.FinishedRaster)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("finished_raster: %w", err))
		return
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raster))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		writeError(w, http.StatusUnsupportedMediaType, errors.New("finished_raster is not a PNG image"))
		return
	}
	draft, _, err := canonicalDraft(req.Draft)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	pub := Publication{SceneID: scene, BaseImageID: req.BaseImageID, PNG: raster, Draft: draft, CreatedAt: created}
	if err := s.store.AddPublication(r.Context(), pub); err != nil {
		s.log.Error("publish", "scene", scene, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("scene published", "scene", scene, "w", cfg.Width, "h", cfg.Height, "bytes", len(raster), "subject", sub)
	writeJSON(w, http.StatusCreated, map[string]any{
		"scene_id":   scene,
		"width":      cfg.Width,
		"height":     cfg.Height,
		"created_at": created.UTC().Format(time.RFC3339),
	})
}

func (s *server) published(w http.ResponseWriter, r *http.Request, _ string) {
	scene, err := sceneParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.store.LatestPublication(r.Context(), scene)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("scene %s not published", scene))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ScenePayload{
		SceneID:        p.SceneID,
		BaseImageID:    p.BaseImageID,
		FinishedRaster: base64.StdEncoding.EncodeToString(p.PNG),
		Draft:          p.Draft,
		CreatedAt:      p.CreatedAt,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", time.Since(start))
	})
}
