package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rollcall/rollcall/internal/domain/model"
	"github.com/rollcall/rollcall/internal/domain/report"
)

func newReportCommand() *cobra.Command {
	var (
		startFlag string
		endFlag   string
		statsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print attendance records and statistics for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if closer, ok := st.(interface{ Close() error }); ok {
					_ = closer.Close()
				}
			}()

			today := model.DateOf(time.Now())
			start, end := today, today
			if startFlag != "" {
				if start, err = model.ParseDate(startFlag); err != nil {
					return err
				}
			}
			if endFlag != "" {
				if end, err = model.ParseDate(endFlag); err != nil {
					return err
				}
			}

			agg := report.New(st, report.WithTopN(cfg.TopN))

			if !statsOnly {
				records, err := agg.Range(ctx, start, end)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRecords(records))
			}

			stats, err := agg.Statistics(ctx, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
			return nil
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "range start (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&endFlag, "end", "", "range end (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&statsOnly, "stats-only", false, "print statistics without the record list")
	return cmd
}

func renderRecords(records []model.AttendanceRecord) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Label,
			string(rec.Date),
			rec.Time,
			rec.Weekday,
			string(rec.Status),
			string(rec.Kind),
		})
	}
	return renderTable(
		[]string{"Label", "Date", "Time", "Weekday", "Status", "Kind"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func renderStats(stats report.Stats) string {
	rows := [][]string{
		{"Range", fmt.Sprintf("%s to %s", stats.StartDate, stats.EndDate)},
		{"Total records", fmt.Sprintf("%d", stats.TotalRecords)},
		{"Unique identities", fmt.Sprintf("%d", stats.UniqueIdentities)},
		{"Days with activity", fmt.Sprintf("%d", stats.NumberOfDays)},
		{"Avg daily attendance", fmt.Sprintf("%.2f", stats.AverageDailyAttendance)},
	}
	for i, top := range stats.TopIdentities {
		rows = append(rows, []string{
			fmt.Sprintf("Top %d", i+1),
			fmt.Sprintf("%s (%d)", top.Label, top.Count),
		})
	}
	for _, day := range sortedDates(stats.DailyCounts) {
		rows = append(rows, []string{string(day), fmt.Sprintf("%d", stats.DailyCounts[day])})
	}
	return renderTable(
		[]string{"Statistic", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}

func sortedDates(counts map[model.Date]int) []model.Date {
	out := make([]model.Date, 0, len(counts))
	for d := range counts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
