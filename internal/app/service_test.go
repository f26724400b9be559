package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rollcall/rollcall/internal/adapters/store"
	service "github.com/rollcall/rollcall/internal/app"
	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/ledger"
	"github.com/rollcall/rollcall/internal/domain/match"
	"github.com/rollcall/rollcall/internal/domain/model"
	"github.com/rollcall/rollcall/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

var morning = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func newService(ctx context.Context, st store.Store) *service.Service {
	svc := service.New(
		service.WithStore(st),
		service.WithDimension(4),
		service.WithClock(func() time.Time { return morning }),
	)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	return svc
}

func emb(fill float64) model.Embedding {
	return model.Embedding{fill, fill, fill, fill}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service over an in-memory store", t, func() {
		ctx := context.Background()
		st := store.NewMemory()
		svc := newService(ctx, st)

		Convey("Starting twice is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("Stop persists the gallery snapshot", func() {
			_, err := svc.AddIdentity(ctx, "alice", []model.Embedding{emb(0.1)})
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			snap, err := st.LoadGallery(ctx)
			So(err, ShouldBeNil)
			So(snap.Entries, ShouldHaveLength, 1)
		})

		Convey("A restarted service restores the snapshot and mark set", func() {
			_, err := svc.AddIdentity(ctx, "alice", []model.Embedding{emb(0.1)})
			So(err, ShouldBeNil)
			_, err = svc.MarkAttendance(ctx, "alice", time.Time{})
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			fresh := newService(ctx, st)
			res, err := fresh.Recognize(ctx, emb(0.1), 0.4)
			So(err, ShouldBeNil)
			So(res.Label, ShouldEqual, "alice")

			mark, err := fresh.MarkAttendance(ctx, "alice", time.Time{})
			So(err, ShouldBeNil)
			So(mark.Status, ShouldEqual, model.MarkAlreadyMarked)
		})
	})
}

func TestServiceIdentities(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		st := store.NewMemory()
		svc := newService(ctx, st)

		Convey("AddIdentity enrolls and persists immediately", func() {
			added, err := svc.AddIdentity(ctx, "alice", []model.Embedding{emb(0.1), emb(0.11)})
			So(err, ShouldBeNil)
			So(added, ShouldEqual, 2)

			snap, err := st.LoadGallery(ctx)
			So(err, ShouldBeNil)
			So(snap.Entries, ShouldHaveLength, 2)
		})

		Convey("AddIdentity rejects an empty label", func() {
			_, err := svc.AddIdentity(ctx, "", []model.Embedding{emb(0.1)})
			So(err, ShouldWrap, service.ErrEmptyLabel)
		})

		Convey("AddIdentity rejects mismatched dimensions", func() {
			_, err := svc.AddIdentity(ctx, "alice", []model.Embedding{{1, 2}})
			So(err, ShouldWrap, gallery.ErrDimensionMismatch)
		})

		Convey("RemoveIdentity deletes and persists; unknown labels are a no-op", func() {
			_, err := svc.AddIdentity(ctx, "alice", []model.Embedding{emb(0.1)})
			So(err, ShouldBeNil)

			removed, err := svc.RemoveIdentity(ctx, "alice")
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 1)

			snap, err := st.LoadGallery(ctx)
			So(err, ShouldBeNil)
			So(snap.Entries, ShouldBeEmpty)

			removed, err = svc.RemoveIdentity(ctx, "nobody")
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 0)
		})
	})
}

func TestServiceRecognition(t *testing.T) {
	Convey("Given a service with an enrolled identity", t, func() {
		ctx := context.Background()
		svc := newService(ctx, store.NewMemory())
		_, err := svc.AddIdentity(ctx, "alice", []model.Embedding{emb(0.1)})
		So(err, ShouldBeNil)

		Convey("Recognize finds the identity within tolerance", func() {
			res, err := svc.Recognize(ctx, emb(0.1), 0)
			So(err, ShouldBeNil)
			So(res.Label, ShouldEqual, "alice")
			So(res.Confidence, ShouldEqual, 1.0)
		})

		Convey("RecognizeBatch preserves order", func() {
			results, err := svc.RecognizeBatch(ctx, []model.Embedding{emb(9), emb(0.1)}, 0)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 2)
			So(results[0].Label, ShouldEqual, match.Unknown)
			So(results[1].Label, ShouldEqual, "alice")
		})
	})
}

func TestServiceAttendance(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(ctx, store.NewMemory())

		Convey("Marking succeeds once, then reports already marked", func() {
			first, err := svc.MarkAttendance(ctx, "alice", time.Time{})
			So(err, ShouldBeNil)
			So(first.Status, ShouldEqual, model.MarkSuccess)

			second, err := svc.MarkAttendance(ctx, "alice", time.Time{})
			So(err, ShouldBeNil)
			So(second.Status, ShouldEqual, model.MarkAlreadyMarked)
			So(second.FirstCheckIn, ShouldEqual, "09:00:00")
		})

		Convey("Marking Unknown or an empty label is refused", func() {
			_, err := svc.MarkAttendance(ctx, match.Unknown, time.Time{})
			So(err, ShouldWrap, service.ErrEmptyLabel)

			_, err = svc.MarkAttendance(ctx, "", time.Time{})
			So(err, ShouldWrap, service.ErrEmptyLabel)
		})

		Convey("Manual entries join today's records without blocking marks", func() {
			_, err := svc.ManualAttendance(ctx, "bob", model.DateOf(morning), "08:00:00", model.StatusLate)
			So(err, ShouldBeNil)

			res, err := svc.MarkAttendance(ctx, "bob", time.Time{})
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, model.MarkSuccess)

			records, err := svc.TodayAttendance(ctx)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
		})

		Convey("Manual entries validate their inputs", func() {
			_, err := svc.ManualAttendance(ctx, "bob", "not-a-date", "08:00:00", "")
			So(err, ShouldWrap, ledger.ErrInvalidDate)

			_, err = svc.ManualAttendance(ctx, "", model.DateOf(morning), "08:00:00", "")
			So(err, ShouldWrap, service.ErrEmptyLabel)
		})

		Convey("History reads across days case-insensitively", func() {
			_, err := svc.MarkAttendance(ctx, "Alice", morning.AddDate(0, 0, -1))
			So(err, ShouldBeNil)
			_, err = svc.MarkAttendance(ctx, "alice", time.Time{})
			So(err, ShouldBeNil)

			records, err := svc.History(ctx, "ALICE", 7)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
		})
	})
}

func TestServiceReports(t *testing.T) {
	Convey("Given marks across two days", t, func() {
		ctx := context.Background()
		svc := newService(ctx, store.NewMemory())

		_, err := svc.MarkAttendance(ctx, "alice", morning.AddDate(0, 0, -1))
		So(err, ShouldBeNil)
		_, err = svc.MarkAttendance(ctx, "bob", morning.AddDate(0, 0, -1).Add(time.Minute))
		So(err, ShouldBeNil)
		_, err = svc.MarkAttendance(ctx, "alice", morning)
		So(err, ShouldBeNil)

		start := model.DateOf(morning.AddDate(0, 0, -1))
		end := model.DateOf(morning)

		Convey("Report returns the raw records in order", func() {
			records, err := svc.Report(ctx, start, end)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 3)
			So(records[0].Label, ShouldEqual, "alice")
			So(records[1].Label, ShouldEqual, "bob")
		})

		Convey("Statistics summarize the range", func() {
			stats, err := svc.Statistics(ctx, start, end)
			So(err, ShouldBeNil)
			So(stats.TotalRecords, ShouldEqual, 3)
			So(stats.UniqueIdentities, ShouldEqual, 2)
			So(stats.TopIdentities[0].Label, ShouldEqual, "alice")
		})
	})
}

func TestServiceGalleryMaintenance(t *testing.T) {
	Convey("Given a service with a bloated identity", t, func() {
		ctx := context.Background()
		st := store.NewMemory()
		svc := newService(ctx, st)
		for i := 0; i < 5; i++ {
			_, err := svc.AddIdentity(ctx, "alice", []model.Embedding{emb(float64(i))})
			So(err, ShouldBeNil)
		}

		Convey("OptimizeGallery trims and persists", func() {
			dropped, err := svc.OptimizeGallery(ctx, 2)
			So(err, ShouldBeNil)
			So(dropped, ShouldEqual, 3)

			snap, err := st.LoadGallery(ctx)
			So(err, ShouldBeNil)
			So(snap.Entries, ShouldHaveLength, 2)
		})

		Convey("ValidateGallery reports integrity", func() {
			rep := svc.ValidateGallery(ctx)
			So(rep.Valid, ShouldBeTrue)
			So(rep.TotalEmbeddings, ShouldEqual, 5)
		})

		Convey("GetStats exposes the component views", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["dimension"], ShouldEqual, 4)
			So(stats, ShouldContainKey, "gallery")
			So(stats, ShouldContainKey, "recognition")
			So(stats, ShouldContainKey, "session")
		})
	})
}

// counterValue sums a counter family from the global metrics registry.
func counterValue(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		panic(err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	return 0
}

func TestServiceEmptyGalleryMetrics(t *testing.T) {
	Convey("Given a service with an empty gallery", t, func() {
		ctx := context.Background()
		svc := newService(ctx, store.NewMemory())

		matchedBefore := counterValue("rollcall_recognitions_matched_total")
		unknownBefore := counterValue("rollcall_recognitions_unknown_total")

		Convey("Empty-gallery lookups leave the recognition counters alone", func() {
			res, err := svc.Recognize(ctx, emb(0.1), 0)
			So(err, ShouldBeNil)
			So(res.Label, ShouldEqual, match.Unknown)

			_, err = svc.RecognizeBatch(ctx, []model.Embedding{emb(0.2), emb(0.3)}, 0)
			So(err, ShouldBeNil)

			So(counterValue("rollcall_recognitions_matched_total"), ShouldEqual, matchedBefore)
			So(counterValue("rollcall_recognitions_unknown_total"), ShouldEqual, unknownBefore)
		})

		Convey("Once something is enrolled, outcomes are counted again", func() {
			_, err := svc.AddIdentity(ctx, "alice", []model.Embedding{emb(0.1)})
			So(err, ShouldBeNil)

			_, err = svc.Recognize(ctx, emb(9), 0)
			So(err, ShouldBeNil)
			So(counterValue("rollcall_recognitions_unknown_total"), ShouldEqual, unknownBefore+1)

			_, err = svc.Recognize(ctx, emb(0.1), 0)
			So(err, ShouldBeNil)
			So(counterValue("rollcall_recognitions_matched_total"), ShouldEqual, matchedBefore+1)
		})
	})
}

func TestServiceHistoryWindow(t *testing.T) {
	Convey("Given a service with a one-day history window", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithStore(store.NewMemory()),
			service.WithDimension(4),
			service.WithHistoryDays(1),
			service.WithClock(func() time.Time { return morning }),
		)
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.MarkAttendance(ctx, "alice", morning.AddDate(0, 0, -3))
		So(err, ShouldBeNil)
		_, err = svc.MarkAttendance(ctx, "alice", time.Time{})
		So(err, ShouldBeNil)

		Convey("A non-positive daysBack uses the configured window", func() {
			records, err := svc.History(ctx, "alice", 0)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].Date, ShouldEqual, model.DateOf(morning))
		})

		Convey("An explicit daysBack still widens the lookup", func() {
			records, err := svc.History(ctx, "alice", 7)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
		})
	})
}
