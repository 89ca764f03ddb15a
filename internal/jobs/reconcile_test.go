package jobs_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memcardhq/memcard/internal/jobs"
	"github.com/memcardhq/memcard/internal/store"
	"github.com/memcardhq/memcard/pkg/models"
)

var _ = Describe("Reconciler", func() {
	var base time.Time

	entry := func(id string, minutesAgo int, status models.JobStatus) jobs.Entry {
		return jobs.Entry{
			ID:          id,
			PDFName:     id + ".pdf",
			Status:      status,
			SubmittedAt: base.Add(-time.Duration(minutesAgo) * time.Minute),
			CardsReady:  status == models.StatusFinished,
		}
	}

	ids := func(list []jobs.Entry) []string {
		out := make([]string, len(list))
		for i, e := range list {
			out[i] = e.ID
		}
		return out
	}

	sortedDesc := func(list []jobs.Entry) bool {
		for i := 1; i < len(list); i++ {
			if list[i-1].SubmittedAt.Before(list[i].SubmittedAt) {
				return false
			}
		}
		return true
	}

	BeforeEach(func() {
		base = time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	})

	Context("create events", func() {
		It("prepends a new record and keeps the list sorted newest first", func() {
			list := []jobs.Entry{entry("b", 10, models.StatusQueued), entry("c", 20, models.StatusQueued)}

			next := jobs.Apply(list, jobs.Event{Action: store.ActionCreate, Job: entry("a", 0, models.StatusQueued)})

			Expect(ids(next)).To(Equal([]string{"a", "b", "c"}))
			Expect(sortedDesc(next)).To(BeTrue())
		})

		It("re-sorts when the created record is older than the head", func() {
			list := []jobs.Entry{entry("a", 0, models.StatusQueued), entry("c", 20, models.StatusQueued)}

			next := jobs.Apply(list, jobs.Event{Action: store.ActionCreate, Job: entry("b", 10, models.StatusQueued)})

			Expect(ids(next)).To(Equal([]string{"a", "b", "c"}))
		})

		It("replaces in place on duplicate delivery instead of duplicating the id", func() {
			list := []jobs.Entry{entry("a", 0, models.StatusQueued), entry("b", 10, models.StatusQueued)}

			next := jobs.Apply(list, jobs.Event{Action: store.ActionCreate, Job: entry("a", 0, models.StatusFinished)})

			Expect(ids(next)).To(Equal([]string{"a", "b"}))
			Expect(next[0].Status).To(Equal(models.StatusFinished))
		})

		It("is equivalent to an update when the id is already present", func() {
			list := []jobs.Entry{entry("a", 0, models.StatusQueued), entry("b", 10, models.StatusQueued)}
			changed := entry("a", 0, models.StatusError)

			viaCreate := jobs.Apply(list, jobs.Event{Action: store.ActionCreate, Job: changed})
			viaUpdate := jobs.Apply(list, jobs.Event{Action: store.ActionUpdate, Job: changed})

			Expect(viaCreate).To(Equal(viaUpdate))
		})
	})

	Context("update events", func() {
		It("replaces the matching record in place", func() {
			list := []jobs.Entry{entry("a", 0, models.StatusQueued), entry("b", 10, models.StatusQueued)}

			next := jobs.Apply(list, jobs.Event{Action: store.ActionUpdate, Job: entry("b", 10, models.StatusFinished)})

			Expect(ids(next)).To(Equal([]string{"a", "b"}))
			Expect(next[1].Status).To(Equal(models.StatusFinished))
			Expect(next[1].CardsReady).To(BeTrue())
		})

		It("ignores updates for unknown ids", func() {
			list := []jobs.Entry{entry("a", 0, models.StatusQueued)}

			next := jobs.Apply(list, jobs.Event{Action: store.ActionUpdate, Job: entry("ghost", 5, models.StatusFinished)})

			Expect(next).To(Equal(list))
		})
	})

	Context("delete events", func() {
		It("removes the matching record", func() {
			list := []jobs.Entry{entry("a", 0, models.StatusQueued), entry("b", 10, models.StatusQueued)}

			next := jobs.Apply(list, jobs.Event{Action: store.ActionDelete, Job: jobs.Entry{ID: "a"}})

			Expect(ids(next)).To(Equal([]string{"b"}))
		})

		It("leaves the list alone when the id is unknown", func() {
			list := []jobs.Entry{entry("a", 0, models.StatusQueued)}

			next := jobs.Apply(list, jobs.Event{Action: store.ActionDelete, Job: jobs.Entry{ID: "ghost"}})

			Expect(ids(next)).To(Equal([]string{"a"}))
		})
	})

	It("never mutates its input", func() {
		list := []jobs.Entry{entry("a", 0, models.StatusQueued), entry("b", 10, models.StatusQueued)}
		snapshot := make([]jobs.Entry, len(list))
		copy(snapshot, list)

		jobs.Apply(list, jobs.Event{Action: store.ActionCreate, Job: entry("c", 5, models.StatusQueued)})
		jobs.Apply(list, jobs.Event{Action: store.ActionUpdate, Job: entry("a", 0, models.StatusError)})
		jobs.Apply(list, jobs.Event{Action: store.ActionDelete, Job: jobs.Entry{ID: "b"}})

		Expect(list).To(Equal(snapshot))
	})

	It("holds the invariants for arbitrary event sequences", func() {
		var list []jobs.Entry
		events := []jobs.Event{
			{Action: store.ActionCreate, Job: entry("a", 30, models.StatusQueued)},
			{Action: store.ActionCreate, Job: entry("b", 10, models.StatusQueued)},
			{Action: store.ActionCreate, Job: entry("a", 30, models.StatusHighlightExtraction)},
			{Action: store.ActionUpdate, Job: entry("b", 10, models.StatusFinished)},
			{Action: store.ActionCreate, Job: entry("c", 20, models.StatusQueued)},
			{Action: store.ActionDelete, Job: jobs.Entry{ID: "a"}},
			{Action: store.ActionUpdate, Job: entry("ghost", 1, models.StatusError)},
		}

		for _, ev := range events {
			list = jobs.Apply(list, ev)

			seen := map[string]bool{}
			for _, e := range list {
				Expect(seen[e.ID]).To(BeFalse(), "duplicate id %s", e.ID)
				seen[e.ID] = true
			}
			Expect(sortedDesc(list)).To(BeTrue())
		}

		Expect(ids(list)).To(Equal([]string{"b", "c"}))
	})
})
