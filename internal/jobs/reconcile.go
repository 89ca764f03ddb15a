package jobs

import (
	"sort"
	"time"

	"github.com/memcardhq/memcard/internal/store"
	"github.com/memcardhq/memcard/pkg/models"
)

// Entry is one row of the job list view.
type Entry struct {
	ID          string
	PDFName     string
	Status      models.JobStatus
	SubmittedAt time.Time
	CardsReady  bool
}

// EntryFromJob shapes a job record for display.
func EntryFromJob(j models.Job) Entry {
	status := j.Status
	if status == "" {
		status = "Unknown"
	}
	return Entry{
		ID:          j.ID,
		PDFName:     j.PDFName(),
		Status:      status,
		SubmittedAt: j.Created.Time,
		CardsReady:  j.CardsReady(),
	}
}

// Event is one live change to reconcile into the list. For deletes only
// Job.ID is meaningful.
type Event struct {
	Action store.Action
	Job    Entry
}

// Apply merges one event into the list and returns the result. It never
// mutates its input, keeps ids unique, and leaves the list sorted by
// submission time descending:
//
//   - create: replace in place when the id already exists (duplicate
//     delivery), otherwise prepend and re-sort;
//   - update: replace in place by id; an unknown id is ignored;
//   - delete: remove by id.
func Apply(list []Entry, ev Event) []Entry {
	switch ev.Action {
	case store.ActionCreate:
		if indexOf(list, ev.Job.ID) >= 0 {
			return replace(list, ev.Job)
		}
		next := make([]Entry, 0, len(list)+1)
		next = append(next, ev.Job)
		next = append(next, list...)
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].SubmittedAt.After(next[j].SubmittedAt)
		})
		return next

	case store.ActionUpdate:
		if indexOf(list, ev.Job.ID) < 0 {
			return list
		}
		return replace(list, ev.Job)

	case store.ActionDelete:
		next := make([]Entry, 0, len(list))
		for _, e := range list {
			if e.ID != ev.Job.ID {
				next = append(next, e)
			}
		}
		return next
	}

	return list
}

func indexOf(list []Entry, id string) int {
	for i, e := range list {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func replace(list []Entry, job Entry) []Entry {
	next := make([]Entry, len(list))
	copy(next, list)
	next[indexOf(next, job.ID)] = job
	return next
}
