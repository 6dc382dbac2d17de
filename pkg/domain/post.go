package domain

import (
	"strings"
	"time"
)

// Post is a single status fetched from the monitored account.
type Post struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
	Content   string    `json:"content"`

	// Text is Content with markup removed. Sources fill it in.
	Text string `json:"-"`
}

// ComparePostIDs orders two post ids. Numeric ids are compared by
// magnitude so ids of different lengths order correctly; anything else
// falls back to plain string order.
func ComparePostIDs(a, b string) int {
	if isDigits(a) && isDigits(b) {
		a = strings.TrimLeft(a, "0")
		b = strings.TrimLeft(b, "0")

		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
	}

	return strings.Compare(a, b)
}

// IsProcessed reports whether id is at or before the checkpoint.
// An empty checkpoint means nothing has been processed yet.
func IsProcessed(id, checkpoint string) bool {
	if checkpoint == "" {
		return false
	}

	return ComparePostIDs(id, checkpoint) <= 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
