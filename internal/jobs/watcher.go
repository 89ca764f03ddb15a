package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/memcardhq/memcard/internal/session"
	"github.com/memcardhq/memcard/internal/store"
	"github.com/memcardhq/memcard/pkg/logger"
	"github.com/memcardhq/memcard/pkg/models"
)

// FetchAll performs the scoped initial read of the job list: every job
// owned by the session user, newest first, with the source document
// joined so its filename can be shown.
func FetchAll(ctx context.Context, client *store.Client, sess *session.Session) ([]Entry, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}

	items, err := client.FullList(ctx, sess, store.CollectionJobs, store.ListParams{
		Filter: fmt.Sprintf("user = %q", sess.UserID),
		Sort:   "-created",
		Expand: "source_pdf",
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var job models.Job
		if err := json.Unmarshal(item, &job); err != nil {
			return nil, fmt.Errorf("failed to parse job record: %w", err)
		}
		entries = append(entries, EntryFromJob(job))
	}
	return entries, nil
}

// Watcher keeps a live job list: one initial fetch merged with the
// realtime feed via the pure reconciler in reconcile.go. Snapshot()
// returns the current list; Changed() signals that it moved.
type Watcher struct {
	client *store.Client
	log    *logger.Logger

	mu      sync.Mutex
	list    []Entry
	changed chan struct{}
}

func NewWatcher(client *store.Client, log *logger.Logger) *Watcher {
	return &Watcher{
		client:  client,
		log:     log,
		changed: make(chan struct{}, 1),
	}
}

// Snapshot returns a copy of the current list.
func (w *Watcher) Snapshot() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entry, len(w.list))
	copy(out, w.list)
	return out
}

// Changed signals (coalesced) whenever the list content moves.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Run blocks, maintaining the list until ctx is cancelled. The
// subscription opens before the initial fetch so no event can slip
// between them; the reconciler's duplicate handling absorbs any event
// that races the fetch. The feed is released on every exit path.
func (w *Watcher) Run(ctx context.Context, sess *session.Session) error {
	if err := sess.Require(); err != nil {
		return err
	}

	sub, err := w.client.Subscribe(ctx, sess, store.CollectionJobs)
	if err != nil {
		return fmt.Errorf("failed to open job subscription: %w", err)
	}
	defer sub.Close()

	list, err := FetchAll(ctx, w.client, sess)
	if err != nil {
		return err
	}
	w.setList(list)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				if err := sub.Err(); err != nil {
					return err
				}
				return nil
			}
			w.handleEvent(ctx, sess, ev)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, sess *session.Session, ev store.Event) {
	var job models.Job
	if err := json.Unmarshal(ev.Record, &job); err != nil {
		w.log.Warn("dropping malformed job event: %v", err)
		return
	}

	// Events for other users' records are discarded.
	if job.User != sess.UserID {
		return
	}

	// Create/update payloads usually arrive without the joined source
	// document; fetch the complete record before merging. If that read
	// fails the event is dropped, which leaves the visible list behind
	// the store until the next full reload.
	if (ev.Action == store.ActionCreate || ev.Action == store.ActionUpdate) && !job.HasExpandedPDF() {
		full, err := w.client.GetOne(ctx, sess, store.CollectionJobs, job.ID, "source_pdf")
		if err != nil {
			w.log.Warn("job list may be out of date: failed to fetch full record %s: %v", job.ID, err)
			return
		}
		if err := json.Unmarshal(full, &job); err != nil {
			w.log.Warn("job list may be out of date: bad record %s: %v", job.ID, err)
			return
		}
	}

	w.mu.Lock()
	w.list = Apply(w.list, Event{Action: ev.Action, Job: EntryFromJob(job)})
	w.mu.Unlock()
	w.notify()
}

func (w *Watcher) setList(list []Entry) {
	w.mu.Lock()
	w.list = list
	w.mu.Unlock()
	w.notify()
}

func (w *Watcher) notify() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
