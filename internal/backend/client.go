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
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gocomicbubbles/internal/config"
	"gocomicbubbles/internal/domain"
	"gocomicbubbles/internal/export"
	"gocomicbubbles/internal/storage"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Code)
}

// Is makes a 404 match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Client talks to the scene service. It satisfies the editor's draft saver
// and publisher.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a backend client. baseURL may include a trailing slash.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewClientFromConfig applies the backend section of the app config.
func NewClientFromConfig(cfg config.BackendConfig, token string) *Client {
	c := NewClient(cfg.BaseURL, token, cfg.Timeout())
	if cfg.TLSInsecure {
		c.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed dev servers
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode}
		var msg struct {
			Error string `json:"error"`
		}
		if b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); json.Unmarshal(b, &msg) == nil {
			se.Message = msg.Error
		}
		return se
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func scenePath(sceneID, leaf string) string {
	return "/api/scenes/" + url.PathEscape(sceneID) + "/" + leaf
}

// RequestToken asks the server for a bearer token and keeps it on the client.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", req, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("server returned an empty token")
	}
	c.Token = out.Token
	return out.Token, nil
}

// SaveDraft uploads the draft of a scene.
func (c *Client) SaveDraft(ctx context.Context, sceneID string, d domain.Draft) error {
	_, err := c.SaveDraftVersion(ctx, sceneID, d)
	return err
}

// SaveDraftVersion uploads the draft and returns what the server recorded.
func (c *Client) SaveDraftVersion(ctx context.Context, sceneID string, d domain.Draft) (SaveResult, error) {
	body, err := storage.MarshalDraft(d)
	if err != nil {
		return SaveResult{}, err
	}
	var res SaveResult
	if err := c.do(ctx, http.MethodPut, scenePath(sceneID, "draft"), json.RawMessage(body), &res); err != nil {
		return SaveResult{}, err
	}
	return res, nil
}

// LoadDraft fetches the stored draft of a scene.
func (c *Client) LoadDraft(ctx context.Context, sceneID string) (domain.Draft, error) {
	var rec DraftRecord
	if err := c.do(ctx, http.MethodGet, scenePath(sceneID, "draft"), nil, &rec); err != nil {
		return domain.Draft{}, err
	}
	d, _, err := storage.LoadDraftJSON(rec.Body)
	return d, err
}

// Publish uploads a finished raster with its draft.
func (c *Client) Publish(ctx context.Context, p export.PublishPayload) error {
	draft, err := storage.MarshalDraft(p.Draft)
	if err != nil {
		return err
	}
	body := ScenePayload{
		SceneID:        p.SceneID,
		BaseImageID:    p.BaseImageID,
		FinishedRaster: p.FinishedRaster,
		Draft:          draft,
		CreatedAt:      p.CreatedAt,
	}
	return c.do(ctx, http.MethodPost, scenePath(p.SceneID, "publish"), body, nil)
}

// Published fetches the latest publication of a scene.
func (c *Client) Published(ctx context.Context, sceneID string) (export.PublishPayload, error) {
	var sp ScenePayload
	if err := c.do(ctx, http.MethodGet, scenePath(sceneID, "published"), nil, &sp); err != nil {
		return export.PublishPayload{}, err
	}
	d, _, err := storage.LoadDraftJSON(sp.Draft)
	if err != nil {
		return export.PublishPayload{}, err
	}
	return export.PublishPayload{
		SceneID:        sp.SceneID,
		BaseImageID:    sp.BaseImageID,
		FinishedRaster: sp.FinishedRaster,
		Draft:          d,
		CreatedAt:      sp.CreatedAt,
	}, nil
}
