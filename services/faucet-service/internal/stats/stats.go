package stats

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burakmert236/xsgfaucet/common/config"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/messages"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/repository"
)

// Broadcaster posts a public status message. msgId makes a repeated broadcast a no-op.
type Broadcaster interface {
	Broadcast(ctx context.Context, msgId, text string) error
}

type Aggregator interface {
	AddStat(ctx context.Context, date time.Time, amount decimal.Decimal, isNewUser bool) error
	PreviousDay(ctx context.Context, now time.Time) (*models.StatBucket, error)
	Publish(ctx context.Context, now time.Time) error
}

type periodTemplate struct {
	key      models.PeriodKey
	template string
}

type aggregator struct {
	repo        repository.StatRepository
	broadcaster Broadcaster
	templates   config.StatsConfig
	precision   int32
	logger      *logger.Logger
}

func NewAggregator(
	repo repository.StatRepository,
	broadcaster Broadcaster,
	templates config.StatsConfig,
	precision int32,
	log *logger.Logger,
) Aggregator {
	return &aggregator{
		repo:        repo,
		broadcaster: broadcaster,
		templates:   templates,
		precision:   precision,
		logger:      log.With("component", "stats"),
	}
}

// AddStat counts one payout in the day, month and year buckets of date.
func (a *aggregator) AddStat(ctx context.Context, date time.Time, amount decimal.Decimal, isNewUser bool) error {
	return a.repo.Add(ctx, date, models.StatDelta{Amount: amount, IsNewUser: isNewUser})
}

func (a *aggregator) PreviousDay(ctx context.Context, now time.Time) (*models.StatBucket, error) {
	return a.repo.Get(ctx, models.DayKey(yesterday(now)))
}

// Publish broadcasts yesterday's summary, plus last month's on the 1st and last year's on Jan 1st.
// Absent buckets are skipped.
func (a *aggregator) Publish(ctx context.Context, now time.Time) error {
	day := yesterday(now)
	today := models.DateOf(now)

	periods := []periodTemplate{{models.DayKey(day), a.templates.DailyMessage}}
	if today.Day() == 1 {
		periods = append(periods, periodTemplate{models.MonthKey(day), a.templates.MonthlyMessage})
	}
	if today.Day() == 1 && today.Month() == time.January {
		periods = append(periods, periodTemplate{models.YearKey(day), a.templates.YearlyMessage})
	}

	for _, p := range periods {
		bucket, err := a.repo.Get(ctx, p.key)
		if err != nil {
			return err
		}
		if bucket == nil || p.template == "" {
			a.logger.Debug("Skipping stat broadcast", "period", p.key.String())
			continue
		}

		text := messages.Render(p.template,
			messages.Period, p.key.Key,
			messages.NewUsers, strconv.FormatInt(bucket.NewUsers, 10),
			messages.Amount, bucket.WithdrawalAmount.StringFixedBank(a.precision),
			messages.Withdrawals, strconv.FormatInt(bucket.TotalWithdrawals, 10),
		)
		if err := a.broadcaster.Broadcast(ctx, "stats:"+p.key.String(), text); err != nil {
			return err
		}
		a.logger.Info("Stat broadcast published", "period", p.key.String())
	}

	return nil
}

func yesterday(now time.Time) time.Time {
	return models.DateOf(now).AddDate(0, 0, -1)
}
