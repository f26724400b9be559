package gallery_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rollcall/rollcall/internal/domain/gallery"
	"github.com/rollcall/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func vec(dim int, fill float64) model.Embedding {
	out := make(model.Embedding, dim)
	for i := range out {
		out[i] = fill
	}
	return out
}

func TestGalleryAdd(t *testing.T) {
	Convey("Given an empty gallery with dimension 4", t, func() {
		g := gallery.New(gallery.WithDimension(4))

		Convey("Adding well-formed vectors grows the gallery", func() {
			added, err := g.Add("alice", []model.Embedding{vec(4, 0.1), vec(4, 0.2)})
			So(err, ShouldBeNil)
			So(added, ShouldEqual, 2)
			So(g.Size(), ShouldEqual, 2)
		})

		Convey("The same label may receive more vectors over multiple calls", func() {
			_, err := g.Add("alice", []model.Embedding{vec(4, 0.1)})
			So(err, ShouldBeNil)
			_, err = g.Add("alice", []model.Embedding{vec(4, 0.2)})
			So(err, ShouldBeNil)
			So(g.Stats().PerIdentity["alice"], ShouldEqual, 2)
		})

		Convey("A wrong-dimension vector rejects the whole batch", func() {
			_, err := g.Add("alice", []model.Embedding{vec(4, 0.1), vec(3, 0.2)})
			So(err, ShouldWrap, gallery.ErrDimensionMismatch)
			So(g.Size(), ShouldEqual, 0)
		})

		Convey("Stored vectors are copies of the caller's slices", func() {
			v := vec(4, 0.5)
			_, err := g.Add("alice", []model.Embedding{v})
			So(err, ShouldBeNil)
			v[0] = 99

			snap := g.Snapshot()
			So(snap.Entries[0].Vector[0], ShouldEqual, 0.5)
		})
	})
}

func TestGalleryRemove(t *testing.T) {
	Convey("Given a gallery with two identities", t, func() {
		g := gallery.New(gallery.WithDimension(4))
		_, err := g.Add("alice", []model.Embedding{vec(4, 0.1), vec(4, 0.2)})
		So(err, ShouldBeNil)
		_, err = g.Add("bob", []model.Embedding{vec(4, 0.9)})
		So(err, ShouldBeNil)

		Convey("Remove deletes every embedding owned by the label", func() {
			So(g.Remove("alice"), ShouldEqual, 2)
			So(g.Size(), ShouldEqual, 1)
			So(g.Stats().PerIdentity, ShouldNotContainKey, "alice")
		})

		Convey("Removing an absent label is a no-op", func() {
			So(g.Remove("carol"), ShouldEqual, 0)
			So(g.Size(), ShouldEqual, 3)
		})

		Convey("Remove preserves the order of the survivors", func() {
			g.Remove("alice")

			var labels []string
			g.ForEach(func(label string, _ model.Embedding) bool {
				labels = append(labels, label)
				return true
			})
			So(labels, ShouldResemble, []string{"bob"})
		})
	})
}

func TestGalleryOptimize(t *testing.T) {
	Convey("Given a gallery with uneven identity sizes", t, func() {
		g := gallery.New(gallery.WithDimension(2))
		for i := 0; i < 5; i++ {
			_, err := g.Add("alice", []model.Embedding{{float64(i), 0}})
			So(err, ShouldBeNil)
		}
		_, err := g.Add("bob", []model.Embedding{{9, 9}})
		So(err, ShouldBeNil)

		Convey("Optimize keeps the earliest-inserted vectors per identity", func() {
			dropped := g.Optimize(2)
			So(dropped, ShouldEqual, 3)
			So(g.Stats().PerIdentity["alice"], ShouldEqual, 2)
			So(g.Stats().PerIdentity["bob"], ShouldEqual, 1)

			var kept []float64
			g.ForEach(func(label string, v model.Embedding) bool {
				if label == "alice" {
					kept = append(kept, v[0])
				}
				return true
			})
			So(kept, ShouldResemble, []float64{0, 1})
		})

		Convey("Re-running with the same bound is a no-op", func() {
			g.Optimize(2)
			So(g.Optimize(2), ShouldEqual, 0)
			So(g.Size(), ShouldEqual, 3)
		})

		Convey("A non-positive bound does nothing", func() {
			So(g.Optimize(0), ShouldEqual, 0)
			So(g.Size(), ShouldEqual, 6)
		})
	})
}

func TestGalleryValidate(t *testing.T) {
	Convey("Given a consistent gallery", t, func() {
		g := gallery.New(gallery.WithDimension(3))
		_, err := g.Add("alice", []model.Embedding{{1, 2, 3}})
		So(err, ShouldBeNil)

		Convey("Validate reports a clean bill", func() {
			rep := g.Validate()
			So(rep.Valid, ShouldBeTrue)
			So(rep.Errors, ShouldBeEmpty)
			So(rep.TotalEmbeddings, ShouldEqual, 1)
			So(rep.UniqueIdentities, ShouldEqual, 1)
		})

		Convey("Exact duplicate vectors are a warning, not an error", func() {
			_, err := g.Add("bob", []model.Embedding{{1, 2, 3}})
			So(err, ShouldBeNil)

			rep := g.Validate()
			So(rep.Valid, ShouldBeTrue)
			So(rep.Warnings, ShouldNotBeEmpty)
		})

		Convey("Validate never mutates state", func() {
			before := g.Snapshot()
			_ = g.Validate()
			So(g.Snapshot(), ShouldResemble, before)
		})
	})
}

func TestGallerySnapshotRestore(t *testing.T) {
	Convey("Given a populated gallery", t, func() {
		g := gallery.New(gallery.WithDimension(2))
		_, err := g.Add("alice", []model.Embedding{{1, 1}})
		So(err, ShouldBeNil)
		_, err = g.Add("bob", []model.Embedding{{2, 2}})
		So(err, ShouldBeNil)

		Convey("A snapshot round-trips through restore", func() {
			snap := g.Snapshot()

			fresh := gallery.New(gallery.WithDimension(2))
			So(fresh.Restore(snap), ShouldBeNil)
			So(fresh.Size(), ShouldEqual, 2)
			So(fresh.Snapshot(), ShouldResemble, snap)
		})

		Convey("Restore rejects a snapshot of mismatched dimension", func() {
			fresh := gallery.New(gallery.WithDimension(3))
			err := fresh.Restore(g.Snapshot())
			So(err, ShouldWrap, gallery.ErrDimensionMismatch)
			So(fresh.Size(), ShouldEqual, 0)
		})

		Convey("Restore replaces prior contents entirely", func() {
			snap := g.Snapshot()
			_, err := g.Add("carol", []model.Embedding{{3, 3}})
			So(err, ShouldBeNil)

			So(g.Restore(snap), ShouldBeNil)
			So(g.Size(), ShouldEqual, 2)
			So(g.Stats().PerIdentity, ShouldNotContainKey, "carol")
		})
	})
}

func TestGalleryConcurrentReads(t *testing.T) {
	Convey("Given a gallery under concurrent readers and writers", t, func() {
		g := gallery.New(gallery.WithDimension(2))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				_, _ = g.Add(fmt.Sprintf("id-%d", i), []model.Embedding{{float64(i), 0}})
			}(i)
			go func() {
				defer wg.Done()
				g.ForEach(func(_ string, v model.Embedding) bool {
					return len(v) == 2
				})
			}()
		}
		wg.Wait()

		Convey("All writes landed and bookkeeping is consistent", func() {
			So(g.Size(), ShouldEqual, 8)
			So(g.Validate().Valid, ShouldBeTrue)
		})
	})
}
