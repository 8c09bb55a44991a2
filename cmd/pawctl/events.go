package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pawboard/internal/app"
	"github.com/dukerupert/pawboard/internal/backup"
	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/model"
)

func checkEventsCmd() *cobra.Command {
	var (
		limit     int
		household string
	)
	cmd := &cobra.Command{
		Use:   "check-events",
		Short: "Show recent events and today's totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			st, err := e.open()
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := st.AllEvents()
			if err != nil {
				return err
			}
			if household != "" {
				events = filterHousehold(events, household)
			}
			writeEventReport(cmd.OutOrStdout(), e.cal, events, limit)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent events to show")
	cmd.Flags().StringVar(&household, "household", "", "Only show events for this household id")
	return cmd
}

func filterHousehold(events []model.Event, householdID string) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.HouseholdID == householdID {
			out = append(out, e)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

func writeEventReport(w io.Writer, cal *calendar.Calendar, events []model.Event, limit int) {
	now := cal.Now()
	fmt.Fprintf(w, "Current time: %s\n", now.Format(time.DateTime+" MST"))
	fmt.Fprintf(w, "Today start:  %s (%d)\n", cal.StartOfToday().Format(time.DateTime+" MST"), cal.StartOfToday().Unix())
	fmt.Fprintf(w, "Total events: %d\n", len(events))

	recent := make([]model.Event, len(events))
	copy(recent, events)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Timestamp > recent[j].Timestamp })
	if limit >= 0 && len(recent) > limit {
		recent = recent[:limit]
	}

	fmt.Fprintf(w, "\n%d most recent events:\n", len(recent))
	for _, e := range recent {
		marker := ""
		if cal.IsToday(e.Timestamp) {
			marker = "  <-- today"
		}
		fmt.Fprintf(w, "%s  %-15s by %s%s\n",
			e.Time().In(cal.Location()).Format(time.DateTime), e.Type, shortID(e.UserID), marker)
	}

	todayDate := cal.Today()
	counts := make(map[string]int)
	total := 0
	for _, e := range events {
		if cal.DateOf(e.Timestamp) == todayDate {
			counts[e.Type]++
			total++
		}
	}
	fmt.Fprintf(w, "\nEvents today: %d\n", total)

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d\n", t, counts[t])
	}
}

func clearEventsCmd() *cobra.Command {
	var (
		household string
		yes       bool
		noBackup  bool
	)
	cmd := &cobra.Command{
		Use:   "clear-events",
		Short: "Delete events, after writing a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			scope := "all households"
			if household != "" {
				scope = "household " + household
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete every event for %s in %s?", scope, e.cfg.DataPath)) {
				return fmt.Errorf("aborted")
			}

			st, db, err := app.OpenStore(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer st.Close()
			out := cmd.OutOrStdout()

			if !noBackup {
				res, err := backup.NewManager(e.cfg.Backup(), db, e.logger).Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("backup before clearing: %w", err)
				}
				fmt.Fprintf(out, "Backup saved to %s\n", res.Path)
			}

			var n int
			if household != "" {
				n, err = st.DeleteEventsForHousehold(household)
			} else {
				n, err = st.DeleteAllEvents()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d events for %s\n", n, scope)
			return nil
		},
	}
	cmd.Flags().StringVar(&household, "household", "", "Only clear events for this household id")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the backup")
	return cmd
}
