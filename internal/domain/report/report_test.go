package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/domain/model"
	"github.com/rollcall/rollcall/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func seed(ctx context.Context, st store.Store, label string, date model.Date, timeOfDay string) {
	base, _ := date.Time()
	parsed, _ := time.Parse(model.TimeLayout, timeOfDay)
	rec := model.AttendanceRecord{
		ID:        label + "-" + string(date) + "-" + timeOfDay,
		Label:     label,
		Date:      date,
		Time:      timeOfDay,
		Timestamp: base.Add(time.Duration(parsed.Hour()) * time.Hour),
		Weekday:   date.Weekday(),
		Status:    model.StatusPresent,
		Kind:      model.KindAutomatic,
	}
	if err := st.AppendRecord(ctx, date, rec); err != nil {
		panic(err)
	}
}

func TestRange(t *testing.T) {
	Convey("Given a store with records on two of three days", t, func() {
		ctx := context.Background()
		st := store.NewMemory()
		seed(ctx, st, "alice", "2024-03-11", "09:00:00")
		seed(ctx, st, "bob", "2024-03-11", "09:30:00")
		seed(ctx, st, "alice", "2024-03-13", "08:45:00")
		agg := report.New(st)

		Convey("Range returns records in date then insertion order", func() {
			records, err := agg.Range(ctx, "2024-03-11", "2024-03-13")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 3)
			So(records[0].Label, ShouldEqual, "alice")
			So(records[0].Date, ShouldEqual, model.Date("2024-03-11"))
			So(records[1].Label, ShouldEqual, "bob")
			So(records[2].Date, ShouldEqual, model.Date("2024-03-13"))
		})

		Convey("Days without activity contribute nothing", func() {
			records, err := agg.Range(ctx, "2024-03-12", "2024-03-12")
			So(err, ShouldBeNil)
			So(records, ShouldBeEmpty)
		})

		Convey("A single-day range covers just that day", func() {
			records, err := agg.Range(ctx, "2024-03-11", "2024-03-11")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
		})

		Convey("Malformed bounds are rejected", func() {
			_, err := agg.Range(ctx, "11-03-2024", "2024-03-13")
			So(err, ShouldWrap, report.ErrInvalidRange)
		})

		Convey("An inverted range is rejected", func() {
			_, err := agg.Range(ctx, "2024-03-13", "2024-03-11")
			So(err, ShouldWrap, report.ErrInvalidRange)
		})
	})
}

func TestStatistics(t *testing.T) {
	Convey("Given two days of attendance", t, func() {
		ctx := context.Background()
		st := store.NewMemory()
		// Monday: alice, bob. Tuesday: alice.
		seed(ctx, st, "alice", "2024-03-11", "09:00:00")
		seed(ctx, st, "bob", "2024-03-11", "09:30:00")
		seed(ctx, st, "alice", "2024-03-12", "08:45:00")
		agg := report.New(st)

		Convey("Statistics summarize the range", func() {
			stats, err := agg.Statistics(ctx, "2024-03-11", "2024-03-12")
			So(err, ShouldBeNil)
			So(stats.TotalRecords, ShouldEqual, 3)
			So(stats.UniqueIdentities, ShouldEqual, 2)
			So(stats.NumberOfDays, ShouldEqual, 2)
			So(stats.AverageDailyAttendance, ShouldEqual, 1.5)
			So(stats.DailyCounts[model.Date("2024-03-11")], ShouldEqual, 2)
			So(stats.DailyCounts[model.Date("2024-03-12")], ShouldEqual, 1)
			So(stats.WeekdayDistribution["Monday"], ShouldEqual, 2)
			So(stats.WeekdayDistribution["Tuesday"], ShouldEqual, 1)
		})

		Convey("Top identities rank by count, ties by first appearance", func() {
			seed(ctx, st, "carol", "2024-03-12", "09:10:00")

			stats, err := agg.Statistics(ctx, "2024-03-11", "2024-03-12")
			So(err, ShouldBeNil)
			So(stats.TopIdentities[0], ShouldResemble, report.IdentityCount{Label: "alice", Count: 2})
			So(stats.TopIdentities[1].Label, ShouldEqual, "bob")
			So(stats.TopIdentities[2].Label, ShouldEqual, "carol")
		})

		Convey("The ranking is truncated to the configured bound", func() {
			agg := report.New(st, report.WithTopN(1))
			stats, err := agg.Statistics(ctx, "2024-03-11", "2024-03-12")
			So(err, ShouldBeNil)
			So(stats.TopIdentities, ShouldHaveLength, 1)
			So(stats.TopIdentities[0].Label, ShouldEqual, "alice")
		})

		Convey("An empty range yields zeroed stats without dividing by zero", func() {
			stats, err := agg.Statistics(ctx, "2023-01-01", "2023-01-05")
			So(err, ShouldBeNil)
			So(stats.TotalRecords, ShouldEqual, 0)
			So(stats.UniqueIdentities, ShouldEqual, 0)
			So(stats.NumberOfDays, ShouldEqual, 0)
			So(stats.AverageDailyAttendance, ShouldEqual, 0.0)
			So(stats.TopIdentities, ShouldBeEmpty)
		})
	})
}
