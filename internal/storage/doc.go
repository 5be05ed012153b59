/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage keeps a scene workspace on disk.
// scene.json is written transactionally with timestamped backups, and an
// unreadable manifest falls back to the latest backup. Drafts are loaded
// through a JSON schema check and a legacy migration pass.
// Autosaves go to an embedded SQLite history at <workspace>/.gcb/history.sqlite,
// which is disposable and recreated when corrupt.
package storage
