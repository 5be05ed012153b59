/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocomicbubbles/internal/config"
	"gocomicbubbles/internal/editor"
	"gocomicbubbles/internal/export"
)

var (
	_ editor.DraftSaver = (*Client)(nil)
	_ editor.Publisher  = (*Client)(nil)
)

func TestClient_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL+"/", "", time.Second)

	if err := c.SaveDraft(ctx, "s1", testDraft(t)); err == nil {
		t.Fatal("save without token should fail")
	}
	if _, err := c.RequestToken(ctx, "editor", time.Hour); err != nil {
		t.Fatalf("token: %v", err)
	}
	if c.Token == "" {
		t.Fatal("token not kept on client")
	}

	if _, err := c.LoadDraft(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	d := testDraft(t)
	if err := c.SaveDraft(ctx, "s1", d); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := c.SaveDraftVersion(ctx, "s1", d)
	if err != nil || res.Version != 2 {
		t.Fatalf("second save: %+v %v", res, err)
	}
	got, err := c.LoadDraft(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Bubbles) != 1 || got.Bubbles[0].ID != d.Bubbles[0].ID || got.Utterances[0].Text != "Hello there" {
		t.Fatalf("loaded draft differs: %+v", got)
	}

	p := export.BuildPayload("s1", "img-9", testPNG(t), d)
	if err := c.Publish(ctx, p); err != nil {
		t.Fatalf("publish: %v", err)
	}
	pub, err := c.Published(ctx, "s1")
	if err != nil {
		t.Fatalf("published: %v", err)
	}
	if pub.BaseImageID != "img-9" || pub.FinishedRaster != p.FinishedRaster || len(pub.Draft.Bubbles) != 1 {
		t.Fatalf("unexpected publication: %+v", pub.BaseImageID)
	}
	raster, err := pub.Raster()
	if err != nil || len(raster) == 0 {
		t.Fatalf("raster: %v", err)
	}
}

func TestClient_StatusErrorMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClientFromConfig(config.BackendConfig{BaseURL: srv.URL, TimeoutMs: 2000}, "bogus")
	err := c.SaveDraft(context.Background(), "s1", testDraft(t))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *StatusError, got %T %v", err, err)
	}
	if se.Code != 401 || se.Message != "invalid token" {
		t.Fatalf("status error = %+v", se)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("401 must not match ErrNotFound")
	}
}

func TestClient_PublishNonPNGRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.RequestToken(context.Background(), "", 0); err != nil {
		t.Fatal(err)
	}
	p := export.BuildPayload("s1", "img", []byte("not a png"), testDraft(t))
	var se *StatusError
	if err := c.Publish(context.Background(), p); !errors.As(err, &se) || se.Code != 415 {
		t.Fatalf("want 415, got %v", err)
	}
}
