package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/memcardhq/memcard/pkg/models"
)

// Format selects an export target.
type Format string

const (
	// FormatObsidian is the spaced-repetition pairing format:
	// "front::back", one blank line between cards.
	FormatObsidian Format = "obsidian"
	// FormatAnki is a CSV importable by Anki: a front,back header and
	// one quoted-as-needed row per card.
	FormatAnki Format = "anki"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatObsidian:
		return FormatObsidian, nil
	case FormatAnki:
		return FormatAnki, nil
	}
	return "", fmt.Errorf("unknown export format %q (want obsidian or anki)", s)
}

// Render formats the given cards. The caller decides which cards are
// in scope (normally the deck's selected ones); rendering itself is
// pure and touches no network.
func Render(format Format, cards []models.Flashcard) (string, error) {
	switch format {
	case FormatObsidian:
		return renderObsidian(cards), nil
	case FormatAnki:
		return renderAnki(cards)
	}
	return "", fmt.Errorf("unknown export format %q", format)
}

func renderObsidian(cards []models.Flashcard) string {
	pairs := make([]string, 0, len(cards))
	for _, c := range cards {
		pairs = append(pairs, c.Front+"::"+c.Back)
	}
	return strings.Join(pairs, "\n\n")
}

func renderAnki(cards []models.Flashcard) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"front", "back"}); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range cards {
		if err := w.Write([]string{c.Front, c.Back}); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to render CSV: %w", err)
	}
	return sb.String(), nil
}

// FileName is the deterministic output name for a job's export.
func FileName(jobID string, format Format) string {
	switch format {
	case FormatAnki:
		return fmt.Sprintf("memcard_%s_anki.csv", jobID)
	default:
		return fmt.Sprintf("memcard_%s_obsidian.md", jobID)
	}
}

// WriteFile renders the export and writes it under dir, returning the
// full path written.
func WriteFile(dir, jobID string, format Format, cards []models.Flashcard) (string, error) {
	content, err := Render(format, cards)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(jobID, format))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
