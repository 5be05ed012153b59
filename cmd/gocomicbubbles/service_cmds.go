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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gocomicbubbles/internal/backend"
	"gocomicbubbles/internal/config"
	"gocomicbubbles/internal/ui"
)

func newUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [dir]",
		Short: "Open the bubble editor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return ui.Run(dir)
		},
	}
}

func newServeCommand(a *cli) *cobra.Command {
	var (
		addr   string
		memory bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the draft and publication backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if memory || cfg.DatabaseURL == "" {
				return backend.StartMemory(ctx, cfg)
			}
			return backend.Start(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep everything in memory instead of PostgreSQL")
	return cmd
}

func newLoginCommand(a *cli) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request a backend token and store it in the OS keyring",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Backend.BaseURL == "" {
				path, _ := config.ConfigPath()
				return fmt.Errorf("backend.base_url is not configured in %s", path)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := backend.NewClientFromConfig(a.cfg.Backend, "")
			token, err := c.RequestToken(cmd.Context(), subject, ttl)
			if err != nil {
				return err
			}
			if err := config.Save(a.cfg, token); err != nil {
				return err
			}
			a.token = token
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", a.cfg.Backend.BaseURL, subject)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "editor", "name the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored backend token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token removed")
			return nil
		},
	}
}
