/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"gocomicbubbles/internal/assets"
	"gocomicbubbles/internal/config"
	applog "gocomicbubbles/internal/log"
	"gocomicbubbles/internal/version"
)

// cli carries what every command needs once flags and config are parsed.
type cli struct {
	cfg      config.AppConfig
	token    string
	logLevel string
	loader   *assets.Loader
}

func newRootCommand() *cobra.Command {
	a := &cli{}
	root := &cobra.Command{
		Use:           "gocomicbubbles",
		Short:         "Place, validate and render speech bubbles over comic panels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, token, err := config.Load()
			if a.logLevel != "" {
				cfg.Logging.Level = a.logLevel
			}
			applog.Init(cfg.Logging.LogOptions())
			if err != nil {
				applog.WithComponent("cli").Warn("config not loaded; using defaults", slog.Any("err", err))
			}
			a.cfg, a.token = cfg, token
			a.loader = assets.NewLoader(cfg.Editor.ImageCacheTTL(), nil)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCommand(),
		newInitCommand(a),
		newBubbleCommand(a),
		newValidateCommand(a),
		newRenderCommand(a),
		newPublishCommand(a),
		newHistoryCommand(a),
		newUICommand(),
		newServeCommand(a),
		newLoginCommand(a),
		newLogoutCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gocomicbubbles %s\n", version.String())
		},
	}
}
