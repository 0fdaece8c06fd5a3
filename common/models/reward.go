package models

import (
	"fmt"
	"time"
)

// RewardRecord is the per-user lifetime reward ledger entry.
type RewardRecord struct {
	UserId                string    `dynamodbav:"user_id"`
	FollowersAtLastReward int       `dynamodbav:"followers_at_last_reward"`
	WithdrawalCount       int       `dynamodbav:"withdrawal_count"`
	LastRewardDate        time.Time `dynamodbav:"last_reward_date"`
	Version               int64     `dynamodbav:"version"`
	CreatedAt             time.Time `dynamodbav:"created_at"`
	UpdatedAt             time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

type RewardClass int

const (
	Tag RewardClass = iota
	FriendMention
)

var rewardClassNames = map[RewardClass]string{
	Tag:           "tag",
	FriendMention: "friend_mention",
}

func (c RewardClass) String() string {
	return rewardClassNames[c]
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextMidnight returns the start of the UTC day after t.
func NextMidnight(t time.Time) time.Time {
	return DateOf(t).AddDate(0, 0, 1)
}

// Key handlers
func RewardPK(userId string) string {
	return fmt.Sprintf("REWARD#%s", userId)
}

func RecordSK() string {
	return "RECORD"
}
