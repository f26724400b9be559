package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given manager creation", t, func() {
		Convey("When creating with default options", func() {
			m := NewManager(WithRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(m, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithRegistry(prometheus.NewRegistry()),
			)

			Convey("Then it should be created successfully", func() {
				So(m, ShouldNotBeNil)
			})
		})
	})
}

func TestRecordingHelpers(t *testing.T) {
	Convey("Given the package-level helpers", t, func() {
		Convey("Recognition outcomes should record without panicking", func() {
			So(func() {
				RecordRecognition(true, 0.12)
				RecordRecognition(false, 0.95)
			}, ShouldNotPanic)
		})

		Convey("Attendance counters should record without panicking", func() {
			So(func() {
				RecordMark()
				RecordDuplicateMark()
				RecordManualEntry()
				UpdateAttendanceToday(5)
			}, ShouldNotPanic)
		})

		Convey("Gallery and store metrics should record without panicking", func() {
			So(func() {
				UpdateGallerySize(3, 12)
				RecordStoreError()
			}, ShouldNotPanic)
		})

		Convey("HTTP metrics should record without panicking", func() {
			So(func() {
				RecordHTTPRequest("recognize", "POST", "200")
				RecordHTTPRequestDuration("recognize", "POST", 12.5)
			}, ShouldNotPanic)
		})
	})
}

func TestRegistryExposure(t *testing.T) {
	Convey("Given the global registry", t, func() {
		RecordMark()

		Convey("Gathering should include our collectors", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() == "rollcall_attendance_marks_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
