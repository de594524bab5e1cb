// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/liftheat/internal/heatmap"
	"github.com/relabs-tech/liftheat/internal/session"
)

func newSessionsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and show stored sessions",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := o.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.List(limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(w, "no sessions stored")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintf(w, "%-36s  %-8s  %-10s  %-20s  %8.1fs  %2d floors  %s\n",
					s.ID, s.Elevator.Code, s.Status, s.StartedAt.Format(time.RFC3339),
					s.Summary.Duration, s.Summary.FloorsVisited, s.Technician)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions")

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session with its heat map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := o.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sess, err := st.Get(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(sess)
			}
			printSession(w, sess)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")

	cmd.AddCommand(list, show)
	return cmd
}

func printSession(w io.Writer, sess *session.Session) {
	fmt.Fprintf(w, "Session %s\n", sess.ID)
	fmt.Fprintf(w, "Elevator: %s %s (%s)\n", sess.Elevator.Code, sess.Elevator.Name, sess.Elevator.Location)
	fmt.Fprintf(w, "Technician: %s\n", sess.Technician)
	fmt.Fprintf(w, "Started: %s\n", sess.StartedAt.Format(time.RFC3339))
	if sess.EndedAt != nil {
		fmt.Fprintf(w, "Ended: %s\n", sess.EndedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Status: %s\n", sess.Status)
	if sess.Heatmap != nil {
		fmt.Fprintln(w)
		printSnapshot(w, *sess.Heatmap)
	}
}

func printSnapshot(w io.Writer, snap heatmap.Snapshot) {
	fmt.Fprintf(w, "Duration: %.1fs  Floors visited: %d  Points: %d\n",
		snap.Summary.Duration, snap.Summary.FloorsVisited, snap.Summary.TotalPoints)

	fmt.Fprintln(w, "\nWorkflow analysis:")
	for _, d := range snap.Analysis {
		fmt.Fprintf(w, "  %-12s %8.1fs  %4d points\n", d.FloorName, d.Duration, len(snap.Horizontal[d.Floor]))
	}

	fmt.Fprintln(w, "\nPath:")
	for _, p := range snap.Path {
		fmt.Fprintf(w, "  %3d. %-12s %s  %8.1fs\n", p.Order, p.FloorName, p.Time, p.Duration)
	}
}
