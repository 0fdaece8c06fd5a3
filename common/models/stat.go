package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Granularity string

const (
	Day   Granularity = "DAY"
	Month Granularity = "MONTH"
	Year  Granularity = "YEAR"
)

// PeriodKey addresses one statistic bucket.
type PeriodKey struct {
	Granularity Granularity
	Key         string
}

func (k PeriodKey) String() string {
	return fmt.Sprintf("%s#%s", k.Granularity, k.Key)
}

func DayKey(t time.Time) PeriodKey {
	return PeriodKey{Granularity: Day, Key: t.UTC().Format("2006-01-02")}
}

func MonthKey(t time.Time) PeriodKey {
	return PeriodKey{Granularity: Month, Key: t.UTC().Format("2006-01")}
}

func YearKey(t time.Time) PeriodKey {
	return PeriodKey{Granularity: Year, Key: t.UTC().Format("2006")}
}

// PeriodKeys returns the day, month and year buckets that date contributes to.
func PeriodKeys(date time.Time) []PeriodKey {
	return []PeriodKey{DayKey(date), MonthKey(date), YearKey(date)}
}

// StatBucket aggregates payouts for one period. Absent until the first contribution.
type StatBucket struct {
	Period           PeriodKey
	NewUsers         int64
	TotalWithdrawals int64
	WithdrawalAmount decimal.Decimal
}

// StatDelta is one contribution to every bucket of a date.
type StatDelta struct {
	Amount    decimal.Decimal
	IsNewUser bool
}

// Apply adds d to b, creating the bucket when b is nil.
func (d StatDelta) Apply(period PeriodKey, b *StatBucket) *StatBucket {
	next := &StatBucket{Period: period, WithdrawalAmount: decimal.Zero}
	if b != nil {
		*next = *b
	}
	next.TotalWithdrawals++
	next.WithdrawalAmount = next.WithdrawalAmount.Add(d.Amount)
	if d.IsNewUser {
		next.NewUsers++
	}
	return next
}

func StatPK(g Granularity) string {
	return fmt.Sprintf("STAT#%s", g)
}
