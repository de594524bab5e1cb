// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package cli defines the cobra commands of liftctl, the offline tool for
// stored sessions and recorded traces.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/liftheat/internal/config"
	"github.com/relabs-tech/liftheat/internal/store"
)

var version = "dev" // set via ldflags at build time

type options struct {
	configPath string
	dbPath     string
}

// NewRootCmd builds the liftctl command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "liftctl",
		Short: "Inspect elevator heat map sessions",
		Long: `liftctl reads completed maintenance sessions from the session store
and replays recorded accelerometer traces through the heat map engine.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "path to configuration file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&o.dbPath, "db", "", "session database (overrides DB_PATH)")

	root.AddCommand(newSessionsCmd(o))
	root.AddCommand(newReplayCmd(o))
	return root
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) config() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

func (o *options) openStore() (*store.Store, error) {
	path := o.dbPath
	if path == "" {
		cfg, err := o.config()
		if err != nil {
			return nil, err
		}
		path = cfg.DBPath
	}
	return store.Open(path)
}
