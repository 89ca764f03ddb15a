package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Rating is the user's quality grade for a generated card, on a fixed
// 1-7 scale. The store serializes it as a decimal string; RatingNone
// (absent) round-trips as null/"".
type Rating int

const (
	RatingNone       Rating = 0
	RatingTerrible   Rating = 1
	RatingOkay       Rating = 4
	RatingPerfect    Rating = 5
	RatingConfusing  Rating = 6
	RatingInaccurate Rating = 7
)

var ratingLabels = map[Rating]string{
	RatingTerrible:   "Terrible",
	RatingOkay:       "Okay",
	RatingPerfect:    "Perfect",
	RatingConfusing:  "Confusing",
	RatingInaccurate: "Inaccurate",
}

func (r Rating) Valid() bool {
	return r >= RatingNone && r <= 7
}

func (r Rating) Label() string {
	if label, ok := ratingLabels[r]; ok {
		return label
	}
	if r == RatingNone {
		return "Unrated"
	}
	return strconv.Itoa(int(r))
}

func (r Rating) String() string {
	if r == RatingNone {
		return ""
	}
	return strconv.Itoa(int(r))
}

// StoreValue is the value written to the rating field: the decimal
// string, or nil to clear.
func (r Rating) StoreValue() interface{} {
	if r == RatingNone {
		return nil
	}
	return strconv.Itoa(int(r))
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*r = RatingNone
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid rating %q: %w", s, err)
	}
	rating := Rating(n)
	if !rating.Valid() {
		return fmt.Errorf("rating %d out of range", n)
	}
	*r = rating
	return nil
}

func (r Rating) MarshalJSON() ([]byte, error) {
	if r == RatingNone {
		return []byte("null"), nil
	}
	return []byte(`"` + strconv.Itoa(int(r)) + `"`), nil
}

// Flashcard is one generated question/answer pair. ClusterLabel groups
// related cards; the generation pipeline assigns it.
type Flashcard struct {
	ID           string   `json:"id"`
	Front        string   `json:"front"`
	Back         string   `json:"back"`
	UserID       string   `json:"user_id"`
	SourceJob    string   `json:"source_job"`
	ClusterLabel int      `json:"cluster_label"`
	Rating       Rating   `json:"rating"`
	Created      DateTime `json:"created"`
}
