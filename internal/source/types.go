package source

import "time"

// Attachment references one media object attached to an item, with its
// download URL already resolved from the timeline expansion payload.
type Attachment struct {
	MediaKey string
	Type     string
	URL      string
}

// Item is a single fetched unit of content. Items are transient: only their
// fingerprints outlive a run.
type Item struct {
	ID             string
	Text           string
	CreatedAt      time.Time
	ConversationID string
	AuthorID       string
	Attachments    []Attachment
}

// Standalone reports whether the item starts its own conversation rather
// than continuing one.
func (i Item) Standalone() bool {
	return i.ConversationID == "" || i.ConversationID == i.ID
}
