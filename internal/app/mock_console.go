// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"os"
	"time"

	"github.com/relabs-tech/liftheat/internal/accel"
	"github.com/relabs-tech/liftheat/internal/config"
	"github.com/relabs-tech/liftheat/internal/heatmap"
	"github.com/relabs-tech/liftheat/internal/session"
)

// RunMockConsole drives a local recorder from the mock ride source and
// prints its status every tick, without MQTT.
func RunMockConsole() error {
	cfg := config.Get()

	engine, err := heatmap.NewEngine(cfg.Heatmap(), cfg.FloorNames())
	if err != nil {
		return err
	}
	rec := session.NewRecorder(engine, cfg.FloorNames(), session.DefaultFleet())
	if _, err := rec.Start(rec.Elevators()[0].ID, "console"); err != nil {
		return err
	}

	src := accel.NewMockSource()
	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		s, err := src.Next()
		if err != nil {
			return err
		}
		rec.Feed(s)
		printStatus(os.Stdout, rec.Status())
	}
	return nil
}
