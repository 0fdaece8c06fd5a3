package models

import (
	"fmt"
	"time"
)

// Cursor is the last processed position of a feed.
type Cursor struct {
	FeedId    string    `dynamodbav:"feed_id"`
	Position  uint64    `dynamodbav:"position"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

func CursorPK(feedId string) string {
	return fmt.Sprintf("CURSOR#%s", feedId)
}

func MetaSK() string {
	return "META"
}
