package models

import (
	"time"

	"github.com/mmcdole/gofeed"
)

// NewsSnapshot is the retained head of the news feed. Items are passed
// through from the feed parser without reshaping.
type NewsSnapshot struct {
	Items     []*gofeed.Item `json:"items"`
	FetchedAt time.Time      `json:"fetchedAt"`
}
