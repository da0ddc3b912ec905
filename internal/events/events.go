// Package events carries the feed-refreshed notification between the
// submission flow and whatever is listening: connected pages via the
// in-process bus, and external consumers via RabbitMQ.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/lite-tech/briefings/internal/content"
)

const TypeFeedRefreshed = "feed.refreshed"

// RelatedPostRef is the slimmed-down view of a related post that rides
// along with the refresh event so subscribers can repaint without a
// round trip.
type RelatedPostRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

type FeedRefreshed struct {
	ID        uuid.UUID        `json:"id"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Related   []RelatedPostRef `json:"related"`
}

func NewFeedRefreshed(posts []content.RelatedPost) FeedRefreshed {
	refs := make([]RelatedPostRef, 0, len(posts))
	for _, p := range posts {
		refs = append(refs, RelatedPostRef{
			ID:       p.ID,
			Title:    p.Title,
			ImageURL: p.ImageURL,
		})
	}
	return FeedRefreshed{
		ID:        uuid.New(),
		Type:      TypeFeedRefreshed,
		Timestamp: time.Now().UTC(),
		Related:   refs,
	}
}
