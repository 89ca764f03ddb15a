package cards

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/memcardhq/memcard/internal/session"
	"github.com/memcardhq/memcard/internal/store"
	"github.com/memcardhq/memcard/pkg/logger"
	"github.com/memcardhq/memcard/pkg/models"
)

// Card is a flashcard plus its view state: the cluster display color
// and the export-selection flag (on by default, never persisted).
type Card struct {
	models.Flashcard
	Color    string
	Selected bool
}

// Deck holds the cards of one finished job for rating and export.
type Deck struct {
	client *store.Client
	log    *logger.Logger
	jobID  string
	cards  []Card
}

// Load fetches the flashcards of a job, sorted by cluster label, and
// assigns each card its cluster color.
func Load(ctx context.Context, client *store.Client, sess *session.Session, jobID string, log *logger.Logger) (*Deck, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}

	items, err := client.FullList(ctx, sess, store.CollectionCards, store.ListParams{
		Filter: fmt.Sprintf("source_job = %q && user_id = %q", jobID, sess.UserID),
		Sort:   "cluster_label",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load flashcards: %w", err)
	}

	deck := &Deck{
		client: client,
		log:    log,
		jobID:  jobID,
		cards:  make([]Card, 0, len(items)),
	}

	labels := make([]int, 0, len(items))
	for _, item := range items {
		var fc models.Flashcard
		if err := json.Unmarshal(item, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse flashcard record: %w", err)
		}
		labels = append(labels, fc.ClusterLabel)
		deck.cards = append(deck.cards, Card{Flashcard: fc, Selected: true})
	}

	hues := ClusterHues(labels)
	for i := range deck.cards {
		deck.cards[i].Color = hueColor(hues[deck.cards[i].ClusterLabel])
	}

	log.Debug("Loaded %d flashcards for job %s across %d clusters", len(deck.cards), jobID, len(hues))
	return deck, nil
}

func (d *Deck) JobID() string {
	return d.jobID
}

func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards returns a copy of the deck's cards in display order.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Card returns the card at display position i.
func (d *Deck) Card(i int) Card {
	return d.cards[i]
}

// SetSelected flips the export-selection flag of one card.
func (d *Deck) SetSelected(cardID string, selected bool) error {
	i := d.indexOf(cardID)
	if i < 0 {
		return fmt.Errorf("no card %s in deck", cardID)
	}
	d.cards[i].Selected = selected
	return nil
}

// SelectedCards returns the cards currently marked for export.
func (d *Deck) SelectedCards() []models.Flashcard {
	var out []models.Flashcard
	for _, c := range d.cards {
		if c.Selected {
			out = append(out, c.Flashcard)
		}
	}
	return out
}

// Rate applies a rating locally first, then persists it; on a failed
// write the local value is rolled back to what it was before the
// attempt and the failure returned. RatingNone clears the rating.
// Overlapping rates of the same card are not serialized; each write's
// outcome is handled on its own.
func (d *Deck) Rate(ctx context.Context, sess *session.Session, cardID string, rating models.Rating) error {
	if !rating.Valid() {
		return fmt.Errorf("rating %d out of range", rating)
	}

	i := d.indexOf(cardID)
	if i < 0 {
		return fmt.Errorf("no card %s in deck", cardID)
	}

	prev := d.cards[i].Rating
	d.cards[i].Rating = rating

	_, err := d.client.Update(ctx, sess, store.CollectionCards, cardID, map[string]interface{}{
		"rating": rating.StoreValue(),
	})
	if err != nil {
		d.cards[i].Rating = prev
		return fmt.Errorf("failed to save rating: %w", err)
	}

	d.log.Debug("Card %s rated %s", cardID, rating.Label())
	return nil
}

func (d *Deck) indexOf(cardID string) int {
	for i, c := range d.cards {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}
