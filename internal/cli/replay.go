// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/liftheat/internal/accel"
	"github.com/relabs-tech/liftheat/internal/heatmap"
	"github.com/relabs-tech/liftheat/internal/session"
)

func newReplayCmd(o *options) *cobra.Command {
	var (
		asJSON     bool
		save       bool
		elevatorID string
		technician string
	)

	cmd := &cobra.Command{
		Use:   "replay <trace.csv>",
		Short: "Feed a recorded trace through the heat map engine",
		Long: `replay reads "timestamp_ms,x,y,z" rows (g-units) and prints the summary,
workflow analysis and path the engine derives from them. With --save the
result is stored as a completed session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open trace: %w", err)
			}
			samples, err := accel.ReadTrace(f)
			f.Close()
			if err != nil {
				return err
			}

			engine, err := heatmap.NewEngine(cfg.Heatmap(), cfg.FloorNames())
			if err != nil {
				return err
			}
			rec := session.NewRecorder(engine, cfg.FloorNames(), session.DefaultFleet())
			if _, err := rec.Start(elevatorID, technician); err != nil {
				return err
			}
			for _, s := range samples {
				rec.Feed(s)
			}
			stats := engine.Stats()
			sess, err := rec.Finish()
			if err != nil {
				return err
			}

			if save {
				st, err := o.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.Save(&sess); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(sess.Heatmap)
			}

			fmt.Fprintf(w, "Replayed %d samples: %d accepted, %d invalid, %d out of order\n",
				len(samples), stats.Accepted, stats.DroppedInvalid, stats.DroppedOutOfOrder)
			printSnapshot(w, *sess.Heatmap)
			if save {
				fmt.Fprintf(w, "\nSaved as session %s\n", sess.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "store the result as a completed session")
	cmd.Flags().StringVar(&elevatorID, "elevator", "1", "elevator ID the trace was recorded in")
	cmd.Flags().StringVar(&technician, "technician", "", "technician name")
	return cmd
}
