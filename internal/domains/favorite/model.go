package favorite

import (
	"time"

	"github.com/lib/pq"
)

// FavoriteBook is a book card enriched with the hearts count, as shown
// on the favorites page and in catalog listings.
type FavoriteBook struct {
	BookID      string         `json:"book_id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Authors     pq.StringArray `json:"authors"`
	CoverURL    *string        `json:"cover_url,omitempty"`
	Status      string         `json:"status"`
	HeartsCount int            `json:"hearts_count"`
	HeartedAt   time.Time      `json:"hearted_at"`
}
