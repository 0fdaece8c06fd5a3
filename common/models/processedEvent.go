package models

import (
	"fmt"
	"time"
)

// Outcome is the final decision taken for a feed event.
type Outcome string

const (
	OutcomeRewarded        Outcome = "REWARDED"
	OutcomeLimitReached    Outcome = "LIMIT_REACHED"
	OutcomeDailyLimit      Outcome = "DAILY_LIMIT"
	OutcomeDrained         Outcome = "DRAINED"
	OutcomeDuplicate       Outcome = "DUPLICATE"
	OutcomeRejectedReply   Outcome = "REJECTED_REPLY"
	OutcomeRejectedHashtag Outcome = "REJECTED_HASHTAG"
	OutcomeRejectedAddress Outcome = "REJECTED_ADDRESS"
	OutcomeRejectedUser    Outcome = "REJECTED_USER"
	OutcomeRejectedLength  Outcome = "REJECTED_LENGTH"
)

// ProcessedEvent marks a (user, post) pair as handled. Written once, never mutated.
type ProcessedEvent struct {
	UserId    string    `dynamodbav:"user_id"`
	PostId    string    `dynamodbav:"post_id"`
	Outcome   Outcome   `dynamodbav:"outcome"`
	CreatedAt time.Time `dynamodbav:"created_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

func PostSK(postId string) string {
	return fmt.Sprintf("POST#%s", postId)
}
