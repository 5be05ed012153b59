/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command gcbserver serves scene drafts and publications from PostgreSQL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gocomicbubbles/internal/backend"
	"gocomicbubbles/internal/config"
	applog "gocomicbubbles/internal/log"
)

func main() {
	cfg, _, err := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	if err != nil {
		applog.WithComponent("gcbserver").Warn("config not loaded; using defaults", slog.Any("err", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := backend.Start(ctx, cfg.Server); err != nil {
		fmt.Fprintf(os.Stderr, "gcbserver: %v\n", err)
		os.Exit(1)
	}
}
