/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets loads base images from disk or over HTTP, decoded and
// cached by reference.
package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	applog "gocomicbubbles/internal/log"
)

// MaxImageBytes caps how much of a single image is read.
const MaxImageBytes = 64 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image exceeds size limit")
)

// Image is a decoded base image with what is known about its source.
type Image struct {
	image.Image
	Ref    string
	Format string
	// ID is a content hash, stable across machines.
	ID string
}

// Loader loads and caches base images. It is safe for concurrent use;
// concurrent loads of one ref share a single read and decode.
type Loader struct {
	cache  *cache.Cache
	group  singleflight.Group
	client *http.Client
	reads  atomic.Int64
	log    *slog.Logger
}

// NewLoader caches decoded images for ttl. A nil client uses a client with
// a 30s timeout.
func NewLoader(ttl time.Duration, client *http.Client) *Loader {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{
		cache:  cache.New(ttl, 2*ttl),
		client: client,
		log:    applog.WithComponent("assets"),
	}
}

// Load returns the image at ref, a file path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, ref string) (*Image, error) {
	if ref == "" {
		return nil, errors.New("empty image reference")
	}
	if v, ok := l.cache.Get(ref); ok {
		if img, ok := v.(*Image); ok {
			return img, nil
		}
	}
	v, err, shared := l.group.Do(ref, func() (any, error) {
		if v, ok := l.cache.Get(ref); ok {
			return v, nil
		}
		img, err := l.fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		l.cache.SetDefault(ref, img)
		return img, nil
	})
	if err != nil {
		l.log.Error("image load failed", "ref", ref, "err", err)
		return nil, err
	}
	img, ok := v.(*Image)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", v)
	}
	if shared {
		l.log.Debug("image load shared", "ref", ref)
	}
	return img, nil
}

// Reads reports how many times a source was actually read.
func (l *Loader) Reads() int64 { return l.reads.Load() }

// Forget drops ref from the cache.
func (l *Loader) Forget(ref string) { l.cache.Delete(ref) }

func (l *Loader) fetch(ctx context.Context, ref string) (*Image, error) {
	l.reads.Add(1)
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err = l.fetchHTTP(ctx, ref)
	} else {
		data, err = readFile(ref)
	}
	if err != nil {
		return nil, err
	}
	img, format, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	l.log.Info("image loaded", "ref", ref, "format", format, "w", img.Bounds().Dx(), "h", img.Bounds().Dy())
	return &Image{Image: img, Ref: ref, Format: format, ID: ContentID(data)}, nil
}

func (l *Loader) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Decode decodes PNG, JPEG or WebP data.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, "", ErrUnsupportedFormat
	}
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// ContentID hashes image bytes into a stable id.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
