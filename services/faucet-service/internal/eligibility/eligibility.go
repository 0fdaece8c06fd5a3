package eligibility

import (
	"time"

	"github.com/burakmert236/xsgfaucet/common/models"
)

type Status int

const (
	NewUser Status = iota
	LimitReached
	DailyLimit
	Eligible
)

var statusNames = map[Status]string{
	NewUser:      "NEW_USER",
	LimitReached: "LIMIT_REACHED",
	DailyLimit:   "DAILY_LIMIT",
	Eligible:     "ELIGIBLE",
}

func (s Status) String() string {
	return statusNames[s]
}

// Decision is the verdict for one poster. Next is the record to persist: the rewarded state
// for NewUser and Eligible (only after a successful payout), the refreshed record for
// LimitReached, and nil for DailyLimit.
type Decision struct {
	Status    Status
	Class     models.RewardClass
	Next      *models.RewardRecord
	Remaining time.Duration
}

// Payable reports whether the decision may proceed to the payout gate.
func (d Decision) Payable() bool {
	return d.Status == NewUser || d.Status == Eligible
}

// Evaluate applies the rules in order, first match wins. record is not modified.
func Evaluate(record *models.RewardRecord, followers int, class models.RewardClass, now time.Time) Decision {
	today := models.DateOf(now)

	if record == nil {
		return Decision{
			Status: NewUser,
			Class:  class,
			Next: &models.RewardRecord{
				FollowersAtLastReward: followers,
				WithdrawalCount:       1,
				LastRewardDate:        today,
			},
		}
	}

	next := *record

	if record.WithdrawalCount >= followers {
		next.FollowersAtLastReward = followers
		return Decision{Status: LimitReached, Class: class, Next: &next}
	}

	if models.DateOf(record.LastRewardDate).Equal(today) {
		return Decision{
			Status:    DailyLimit,
			Class:     class,
			Remaining: models.NextMidnight(now).Sub(now.UTC()),
		}
	}

	next.WithdrawalCount++
	next.LastRewardDate = today
	next.FollowersAtLastReward = followers
	return Decision{Status: Eligible, Class: class, Next: &next}
}
