package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burakmert236/xsgfaucet/common/config"
	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/node"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/parser"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/payout"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/pricing"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/repository"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/stats"
)

const payoutAddr = "s1PayoutAddressPayoutAddress123456"

type fakeWallet struct {
	mu      sync.Mutex
	balance decimal.Decimal
	sendErr error
	sent    []decimal.Decimal
}

func (w *fakeWallet) GetBalance(context.Context) (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance, nil
}

func (w *fakeWallet) SendToAddress(_ context.Context, _ string, amount decimal.Decimal) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sendErr != nil {
		return "", w.sendErr
	}
	w.sent = append(w.sent, amount)
	w.balance = w.balance.Sub(amount)
	return "tx-" + amount.String(), nil
}

func (w *fakeWallet) ListAddressGroupings(context.Context) ([]node.AddressBalance, error) {
	return nil, nil
}

func (w *fakeWallet) payouts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sent)
}

type acceptAll struct{}

func (acceptAll) ValidateAddress(context.Context, string) (bool, error) { return true, nil }

type fakeGraph struct {
	friends map[string]bool
}

func (g fakeGraph) AnyFriend(_ context.Context, _ string, candidates []string) (bool, error) {
	for _, c := range candidates {
		if g.friends[c] {
			return true, nil
		}
	}
	return false, nil
}

type sentMessage struct {
	kind   string
	postId string
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *fakeNotifier) Reply(_ context.Context, postId, _, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{"reply", postId, text})
	return nil
}

func (n *fakeNotifier) DirectMessage(_ context.Context, postId, _, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{"dm", postId, text})
	return nil
}

func (n *fakeNotifier) Broadcast(context.Context, string, string) error { return nil }

func (n *fakeNotifier) last() sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentMessage{}
	}
	return n.sent[len(n.sent)-1]
}

type harness struct {
	pipeline *Pipeline
	store    *repository.Store
	stats    stats.Aggregator
	wallet   *fakeWallet
	notifier *fakeNotifier
	now      time.Time
}

func botConfig() config.BotConfig {
	return config.BotConfig{
		TrackHashtags:          []string{"#xsg"},
		AddressPrefixes:        []string{"s1", "s3"},
		AddressMinLength:       30,
		DailyBudget:            1440,
		FriendMentionCap:       7.5,
		TagCap:                 1.25,
		CurrencyPrecision:      2,
		MinTextLength:          4,
		LegitimacyFilter:       true,
		MinFollowers:           1,
		MaxFriendFollowerRatio: 5,
		Messages: config.MessagesConfig{
			Rewarded:       "Sent {amount} XSG",
			RewardedDM:     "tx {txid}",
			ReachedLimit:   "limit reached",
			DailyLimit:     "come back in {remaining}",
			FaucetDrained:  "faucet drained",
			MissingAddress: "no address",
			NotLegitimate:  "not legit",
		},
	}
}

func newHarness(t *testing.T, mutate func(*config.BotConfig)) *harness {
	t.Helper()
	cfg := botConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		store:    repository.NewMemoryStore(),
		wallet:   &fakeWallet{balance: decimal.NewFromInt(1000)},
		notifier: &fakeNotifier{},
		now:      time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }

	h.stats = stats.NewAggregator(h.store.Stats, h.notifier, config.StatsConfig{}, 2, logger.Nop())
	engine := pricing.NewEngine(pricing.ConfigFromBot(cfg), h.stats, clock)
	gate := payout.NewGate(h.wallet, engine, logger.Nop())

	h.pipeline = NewPipeline(PipelineDeps{
		Store:    h.store,
		Stats:    h.stats,
		Gate:     gate,
		Parser:   parser.NewParser(acceptAll{}, cfg),
		Graph:    fakeGraph{friends: map[string]bool{"friend": true}},
		Notifier: h.notifier,
		Config:   cfg,
		Logger:   logger.Nop(),
		Now:      clock,
	})
	return h
}

func post(id, author string, followers int) models.Post {
	return models.Post{
		PostId:         id,
		AuthorId:       author,
		Text:           "love #xsg " + payoutAddr,
		FollowersCount: followers,
		FriendsCount:   1,
	}
}

func (h *harness) process(t *testing.T, p models.Post) *Result {
	t.Helper()
	result, err := h.pipeline.Process(context.Background(), p)
	require.NoError(t, err)
	return result
}

func TestNewUserIsRewarded(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	result := h.process(t, post("p1", "u1", 10))

	assert.Equal(t, models.OutcomeRewarded, result.Outcome)
	assert.Equal(t, models.Tag, result.Class)
	assert.Equal(t, "1.25", result.Receipt.Amount.String())

	record, err := h.store.Rewards.GetById(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 1, record.WithdrawalCount)
	assert.Equal(t, 10, record.FollowersAtLastReward)
	assert.Equal(t, models.DateOf(h.now), record.LastRewardDate)

	marked, _ := h.store.Processed.Exists(ctx, "u1", "p1")
	assert.True(t, marked)

	day, _ := h.store.Stats.Get(ctx, models.DayKey(h.now))
	require.NotNil(t, day)
	assert.Equal(t, int64(1), day.NewUsers)
	assert.Equal(t, int64(1), day.TotalWithdrawals)

	assert.Equal(t, "Sent 1.25 XSG", h.notifier.sent[0].text)
	assert.Equal(t, sentMessage{"dm", "p1", "tx tx-1.25"}, h.notifier.last())
}

func TestFriendMentionPaysFriendRate(t *testing.T) {
	h := newHarness(t, nil)
	p := post("p1", "u1", 10)
	p.Mentions = []string{"stranger", "friend"}

	result := h.process(t, p)

	assert.Equal(t, models.FriendMention, result.Class)
	assert.Equal(t, "7.5", result.Receipt.Amount.String())
}

func TestBusyPreviousDayScalesAmount(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	yesterday := h.now.AddDate(0, 0, -1)
	for i := 0; i < 333; i++ {
		require.NoError(t, h.stats.AddStat(ctx, yesterday, decimal.NewFromInt(1), false))
	}

	friendPost := post("p1", "u1", 10)
	friendPost.Mentions = []string{"friend"}
	assert.Equal(t, "4.32", h.process(t, friendPost).Receipt.Amount.String())
	assert.Equal(t, "1.08", h.process(t, post("p2", "u2", 10)).Receipt.Amount.String())
}

func TestReprocessingIsNoOp(t *testing.T) {
	h := newHarness(t, nil)

	first := h.process(t, post("p1", "u1", 10))
	second := h.process(t, post("p1", "u1", 10))

	assert.Equal(t, models.OutcomeRewarded, first.Outcome)
	assert.Equal(t, models.OutcomeDuplicate, second.Outcome)
	assert.Equal(t, 1, h.wallet.payouts())

	record, _ := h.store.Rewards.GetById(context.Background(), "u1")
	assert.Equal(t, 1, record.WithdrawalCount)
}

func TestDailyLimitSameDay(t *testing.T) {
	h := newHarness(t, nil)

	h.process(t, post("p1", "u1", 10))
	result := h.process(t, post("p2", "u1", 10))

	assert.Equal(t, models.OutcomeDailyLimit, result.Outcome)
	assert.Equal(t, 1, h.wallet.payouts())
	assert.Equal(t, "come back in 12h 00m", h.notifier.last().text)

	marked, _ := h.store.Processed.Exists(context.Background(), "u1", "p2")
	assert.True(t, marked)
}

func TestEligibleNextDayIncrements(t *testing.T) {
	h := newHarness(t, nil)

	h.process(t, post("p1", "u1", 10))
	h.now = h.now.AddDate(0, 0, 1)
	result := h.process(t, post("p2", "u1", 12))

	assert.Equal(t, models.OutcomeRewarded, result.Outcome)
	record, _ := h.store.Rewards.GetById(context.Background(), "u1")
	assert.Equal(t, 2, record.WithdrawalCount)
	assert.Equal(t, 12, record.FollowersAtLastReward)

	day, _ := h.store.Stats.Get(context.Background(), models.DayKey(h.now))
	assert.Equal(t, int64(0), day.NewUsers)
}

func TestLimitReachedAfterDayBoundary(t *testing.T) {
	h := newHarness(t, nil)

	h.process(t, post("p1", "u1", 1))
	h.now = h.now.AddDate(0, 0, 3)
	result := h.process(t, post("p2", "u1", 1))

	assert.Equal(t, models.OutcomeLimitReached, result.Outcome)
	assert.Equal(t, 1, h.wallet.payouts())
	assert.Equal(t, "limit reached", h.notifier.last().text)
}

func TestDrainedWhenBalanceEqualsAmount(t *testing.T) {
	h := newHarness(t, nil)
	h.wallet.balance = decimal.RequireFromString("1.25")

	result := h.process(t, post("p1", "u1", 10))

	assert.Equal(t, models.OutcomeDrained, result.Outcome)
	assert.Equal(t, 0, h.wallet.payouts())
	assert.Equal(t, "faucet drained", h.notifier.last().text)

	record, _ := h.store.Rewards.GetById(context.Background(), "u1")
	assert.Nil(t, record)
	marked, _ := h.store.Processed.Exists(context.Background(), "u1", "p1")
	assert.True(t, marked)
}

func TestDrainedWhenAmountRoundsToZero(t *testing.T) {
	h := newHarness(t, func(cfg *config.BotConfig) { cfg.DailyBudget = 0.01 })
	ctx := context.Background()
	require.NoError(t, h.stats.AddStat(ctx, h.now.AddDate(0, 0, -1), decimal.NewFromInt(1), true))

	result := h.process(t, post("p1", "u1", 10))

	assert.Equal(t, models.OutcomeDrained, result.Outcome)
	assert.Equal(t, 0, h.wallet.payouts())
	marked, _ := h.store.Processed.Exists(ctx, "u1", "p1")
	assert.True(t, marked)
}

func TestTransientPayoutFailureLeavesNoTrace(t *testing.T) {
	h := newHarness(t, nil)
	h.wallet.sendErr = apperrors.Transient(errors.New("node timeout"), "send")
	ctx := context.Background()

	_, err := h.pipeline.Process(ctx, post("p1", "u1", 10))

	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	marked, _ := h.store.Processed.Exists(ctx, "u1", "p1")
	assert.False(t, marked)
	record, _ := h.store.Rewards.GetById(ctx, "u1")
	assert.Nil(t, record)
	day, _ := h.store.Stats.Get(ctx, models.DayKey(h.now))
	assert.Nil(t, day)
	assert.Empty(t, h.notifier.sent)

	h.wallet.sendErr = nil
	assert.Equal(t, models.OutcomeRewarded, h.process(t, post("p1", "u1", 10)).Outcome)
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Post)
		outcome models.Outcome
		reply   string
	}{
		{"reply to another post", func(p *models.Post) { p.InReplyTo = "other" }, models.OutcomeRejectedReply, ""},
		{"missing hashtag", func(p *models.Post) { p.Text = "hi " + payoutAddr }, models.OutcomeRejectedHashtag, ""},
		{"missing address", func(p *models.Post) { p.Text = "love #xsg" }, models.OutcomeRejectedAddress, "no address"},
		{"zero followers", func(p *models.Post) { p.FollowersCount = 0 }, models.OutcomeRejectedUser, "not legit"},
		{"friend ratio too high", func(p *models.Post) { p.FriendsCount = 100 }, models.OutcomeRejectedUser, "not legit"},
		{"too short", func(p *models.Post) { p.Text = "#xsg " + payoutAddr }, models.OutcomeRejectedLength, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(c *config.BotConfig) { c.MinTextLength = 6 })
			p := post("p1", "u1", 10)
			tt.mutate(&p)

			result := h.process(t, p)

			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, 0, h.wallet.payouts())
			marked, _ := h.store.Processed.Exists(context.Background(), "u1", "p1")
			assert.True(t, marked)
			if tt.reply == "" {
				assert.Empty(t, h.notifier.sent, "empty template must stay silent")
			} else {
				assert.Equal(t, tt.reply, h.notifier.last().text)
			}
		})
	}
}

func TestLegitimacyFilterDisabledStillRejectsZeroFollowers(t *testing.T) {
	h := newHarness(t, func(c *config.BotConfig) { c.LegitimacyFilter = false })

	p := post("p1", "u1", 2)
	p.FriendsCount = 1000
	assert.Equal(t, models.OutcomeRewarded, h.process(t, p).Outcome)

	assert.Equal(t, models.OutcomeRejectedUser, h.process(t, post("p2", "u2", 0)).Outcome)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "5h 30m", formatRemaining(5*time.Hour+30*time.Minute+10*time.Second))
	assert.Equal(t, "0h 01m", formatRemaining(50*time.Second))
}
