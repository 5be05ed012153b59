/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/base64"
	"fmt"
	"time"

	"gocomicbubbles/internal/domain"
)

// PublishPayload is what the publish collaborator receives.
type PublishPayload struct {
	SceneID        string       `json:"scene_id"`
	BaseImageID    string       `json:"base_image_id"`
	FinishedRaster string       `json:"finished_raster"`
	Draft          domain.Draft `json:"draft"`
	CreatedAt      time.Time    `json:"created_at"`
}

// BuildPayload wraps a flattened PNG and the draft it was made from.
func BuildPayload(sceneID, baseImageID string, pngData []byte, d domain.Draft) PublishPayload {
	return PublishPayload{
		SceneID:        sceneID,
		BaseImageID:    baseImageID,
		FinishedRaster: base64.StdEncoding.EncodeToString(pngData),
		Draft:          d.Clone(),
		CreatedAt:      time.Now().UTC(),
	}
}

// Raster decodes the finished raster back into PNG bytes.
func (p PublishPayload) Raster() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(p.FinishedRaster)
	if err != nil {
		return nil, fmt.Errorf("decode finished raster: %w", err)
	}
	return data, nil
}
