package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burakmert236/xsgfaucet/common/config"
	"github.com/burakmert236/xsgfaucet/common/models"
	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
)

var tagDivisor = decimal.NewFromInt(4)

// PreviousDayReader yields yesterday's daily bucket, nil when nothing was paid that day.
type PreviousDayReader interface {
	PreviousDay(ctx context.Context, now time.Time) (*models.StatBucket, error)
}

type Engine interface {
	GetAmount(ctx context.Context, class models.RewardClass) (decimal.Decimal, error)
}

type Config struct {
	DailyBudget      decimal.Decimal
	FriendMentionCap decimal.Decimal
	TagCap           decimal.Decimal
	Precision        int32
}

func ConfigFromBot(cfg config.BotConfig) Config {
	return Config{
		DailyBudget:      decimal.NewFromFloat(cfg.DailyBudget),
		FriendMentionCap: decimal.NewFromFloat(cfg.FriendMentionCap),
		TagCap:           decimal.NewFromFloat(cfg.TagCap),
		Precision:        cfg.CurrencyPrecision,
	}
}

type engine struct {
	cfg   Config
	stats PreviousDayReader
	now   func() time.Time
}

func NewEngine(cfg Config, stats PreviousDayReader, now func() time.Time) Engine {
	if now == nil {
		now = time.Now
	}
	return &engine{cfg: cfg, stats: stats, now: now}
}

// GetAmount spreads the daily budget over yesterday's withdrawal count and caps it per class.
// A cold start (no bucket for yesterday) pays the flat cap.
func (e *engine) GetAmount(ctx context.Context, class models.RewardClass) (decimal.Decimal, error) {
	flat := e.flatCap(class)

	bucket, err := e.stats.PreviousDay(ctx, e.now())
	if err != nil {
		return decimal.Zero, faucetErrors.WrapPricingError(err)
	}
	if bucket == nil || bucket.TotalWithdrawals <= 0 {
		return flat.RoundBank(e.cfg.Precision), nil
	}

	dynamic := e.cfg.DailyBudget.Div(decimal.NewFromInt(bucket.TotalWithdrawals))
	if class == models.Tag {
		dynamic = dynamic.Div(tagDivisor)
	}

	return decimal.Min(dynamic, flat).RoundBank(e.cfg.Precision), nil
}

func (e *engine) flatCap(class models.RewardClass) decimal.Decimal {
	if class == models.FriendMention {
		return e.cfg.FriendMentionCap
	}
	return e.cfg.TagCap
}
