// Package thread groups a flat batch of fetched items into ordered logical
// units sharing a conversation identifier.
package thread

import (
	"sort"

	"crosspost/internal/source"
)

// Reconstruct builds the logical unit containing seed from the batch fetched
// for the same account. The result is never empty: a standalone item (or one
// whose conversation peers fall outside the fetch window) comes back as a
// unit of length 1. Items are ordered by creation time ascending, with ties
// broken by ascending id so reconstruction is deterministic.
//
// Conversation peers posted before the fetch window are not recovered; the
// unit never extends past the batch.
func Reconstruct(seed source.Item, batch []source.Item) []source.Item {
	if seed.Standalone() {
		return []source.Item{seed}
	}

	var unit []source.Item
	seen := false
	for _, item := range batch {
		if item.ConversationID != seed.ConversationID {
			continue
		}
		if item.ID == seed.ID {
			seen = true
		}
		unit = append(unit, item)
	}
	if !seen {
		unit = append(unit, seed)
	}
	if len(unit) == 1 {
		return unit
	}

	sort.Slice(unit, func(i, j int) bool {
		if unit[i].CreatedAt.Equal(unit[j].CreatedAt) {
			return unit[i].ID < unit[j].ID
		}
		return unit[i].CreatedAt.Before(unit[j].CreatedAt)
	})
	return unit
}
