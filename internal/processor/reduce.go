package processor

import (
	"strings"

	"github.com/clobrano/briefbot/internal/models"
)

// Reduce trims each fragment, drops the empty ones and joins the rest with a
// single newline, keeping their order.
func Reduce(fragments []models.Fragment) models.Document {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return models.Document{
		Text:      strings.Join(parts, "\n"),
		Fragments: len(parts),
	}
}
