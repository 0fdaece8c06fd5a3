package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/burakmert236/xsgfaucet/common/config"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/eligibility"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/messages"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/metrics"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/parser"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/payout"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/repository"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/stats"
)

type AddressExtractor interface {
	ExtractAddress(ctx context.Context, text string) (string, error)
	HasHashtag(text string) bool
}

type SocialGraph interface {
	AnyFriend(ctx context.Context, userId string, candidates []string) (bool, error)
}

type Notifier interface {
	Reply(ctx context.Context, postId, userId, text string) error
	DirectMessage(ctx context.Context, postId, userId, text string) error
}

// Result is the final state of one processed post.
type Result struct {
	Outcome models.Outcome
	Class   models.RewardClass
	Receipt *payout.Receipt
}

// Pipeline runs one post through dedup, filters, eligibility, payout and ledger commit.
// A returned error means the event was aborted before any ledger mutation and is safe to retry.
type Pipeline struct {
	rewards   repository.RewardRepository
	processed repository.ProcessedEventRepository
	stats     stats.Aggregator
	gate      payout.Gate
	parser    AddressExtractor
	graph     SocialGraph
	notifier  Notifier
	cfg       config.BotConfig
	metrics   *metrics.FaucetMetrics
	logger    *logger.Logger
	now       func() time.Time
}

type PipelineDeps struct {
	Store    *repository.Store
	Stats    stats.Aggregator
	Gate     payout.Gate
	Parser   AddressExtractor
	Graph    SocialGraph
	Notifier Notifier
	Config   config.BotConfig
	Metrics  *metrics.FaucetMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		rewards:   deps.Store.Rewards,
		processed: deps.Store.Processed,
		stats:     deps.Stats,
		gate:      deps.Gate,
		parser:    deps.Parser,
		graph:     deps.Graph,
		notifier:  deps.Notifier,
		cfg:       deps.Config,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With("component", "pipeline"),
		now:       now,
	}
}

func (p *Pipeline) Process(ctx context.Context, post models.Post) (*Result, error) {
	seen, err := p.processed.Exists(ctx, post.AuthorId, post.PostId)
	if err != nil {
		return nil, err
	}
	if seen {
		return &Result{Outcome: models.OutcomeDuplicate}, nil
	}

	msgs := p.cfg.Messages

	if post.IsReply() {
		return p.reject(ctx, post, models.OutcomeRejectedReply, msgs.Reply)
	}

	if !p.parser.HasHashtag(post.Text) {
		return p.reject(ctx, post, models.OutcomeRejectedHashtag, msgs.MissingHashtag)
	}

	address, err := p.parser.ExtractAddress(ctx, post.Text)
	if err != nil {
		return nil, err
	}
	if address == "" {
		return p.reject(ctx, post, models.OutcomeRejectedAddress, msgs.MissingAddress)
	}

	if !p.legitimate(post) {
		return p.reject(ctx, post, models.OutcomeRejectedUser, msgs.NotLegitimate)
	}

	if p.cfg.MinTextLength > 0 && parser.ContentLength(post.Text, address) < p.cfg.MinTextLength {
		return p.reject(ctx, post, models.OutcomeRejectedLength, msgs.TooShort)
	}

	class, err := p.classify(ctx, post)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	record, err := p.rewards.GetById(ctx, post.AuthorId)
	if err != nil {
		return nil, err
	}

	decision := eligibility.Evaluate(record, post.FollowersCount, class, now)
	switch decision.Status {
	case eligibility.LimitReached:
		if err := p.rewards.Update(ctx, decision.Next); err != nil {
			return nil, err
		}
		return p.finish(ctx, post, &Result{Outcome: models.OutcomeLimitReached, Class: class}, msgs.ReachedLimit)

	case eligibility.DailyLimit:
		p.say(ctx, post, msgs.DailyLimit, messages.Remaining, formatRemaining(decision.Remaining))
		return p.mark(ctx, post, &Result{Outcome: models.OutcomeDailyLimit, Class: class})
	}

	quote, ok, err := p.gate.CanExecute(ctx, class)
	if err != nil {
		return nil, err
	}
	if !ok {
		return p.finish(ctx, post, &Result{Outcome: models.OutcomeDrained, Class: class}, msgs.FaucetDrained)
	}

	receipt, err := p.gate.Execute(ctx, quote, address)
	if err != nil {
		return nil, err
	}

	result := &Result{Outcome: models.OutcomeRewarded, Class: class, Receipt: receipt}
	p.commit(ctx, post, decision, now, result)
	p.metrics.ObservePayout(class.String(), receipt.Amount)

	amount := receipt.Amount.StringFixedBank(p.cfg.CurrencyPrecision)
	p.say(ctx, post, msgs.Rewarded, messages.Amount, amount, messages.TxId, receipt.TxId)
	if msgs.RewardedDM != "" {
		text := messages.Render(msgs.RewardedDM, messages.Amount, amount, messages.TxId, receipt.TxId)
		if err := p.notifier.DirectMessage(ctx, post.PostId, post.AuthorId, text); err != nil {
			p.logger.Warn("Failed to send direct message", "post_id", post.PostId, "error", err)
		}
	}

	p.logger.Info("Reward paid",
		"user_id", post.AuthorId,
		"post_id", post.PostId,
		"class", class.String(),
		"amount", amount,
		"txid", receipt.TxId,
	)
	return result, nil
}

// commit runs after the money left the wallet. The marker goes first so a crash before the
// record write can never lead to a second payout. Failures here are logged, not returned:
// returning would make the event retryable after a completed payout.
func (p *Pipeline) commit(ctx context.Context, post models.Post, decision eligibility.Decision, now time.Time, result *Result) {
	marker := &models.ProcessedEvent{UserId: post.AuthorId, PostId: post.PostId, Outcome: result.Outcome, CreatedAt: now}
	if err := p.processed.Mark(ctx, marker); err != nil {
		p.logger.Error("Failed to mark rewarded post", "user_id", post.AuthorId, "post_id", post.PostId, "error", err)
	}

	next := decision.Next
	next.UserId = post.AuthorId

	var err error
	if decision.Status == eligibility.NewUser {
		err = p.rewards.Create(ctx, next)
	} else {
		err = p.rewards.Update(ctx, next)
	}
	if err != nil {
		p.logger.Error("Failed to write reward record", "user_id", post.AuthorId, "status", decision.Status.String(), "error", err)
	}

	if err := p.stats.AddStat(ctx, now, result.Receipt.Amount, decision.Status == eligibility.NewUser); err != nil {
		p.logger.Error("Failed to add stat", "user_id", post.AuthorId, "error", err)
	}
}

func (p *Pipeline) reject(ctx context.Context, post models.Post, outcome models.Outcome, template string) (*Result, error) {
	p.logger.Debug("Post rejected", "post_id", post.PostId, "outcome", string(outcome))
	return p.finish(ctx, post, &Result{Outcome: outcome}, template)
}

func (p *Pipeline) finish(ctx context.Context, post models.Post, result *Result, template string) (*Result, error) {
	p.say(ctx, post, template)
	return p.mark(ctx, post, result)
}

func (p *Pipeline) mark(ctx context.Context, post models.Post, result *Result) (*Result, error) {
	marker := &models.ProcessedEvent{
		UserId:    post.AuthorId,
		PostId:    post.PostId,
		Outcome:   result.Outcome,
		CreatedAt: p.now().UTC(),
	}
	if err := p.processed.Mark(ctx, marker); err != nil {
		return nil, err
	}
	return result, nil
}

// say replies to the post; an empty template keeps the bot silent.
func (p *Pipeline) say(ctx context.Context, post models.Post, template string, pairs ...string) {
	if template == "" {
		return
	}
	text := messages.Render(template, pairs...)
	if err := p.notifier.Reply(ctx, post.PostId, post.AuthorId, text); err != nil {
		p.logger.Warn("Failed to reply", "post_id", post.PostId, "error", err)
	}
}

// legitimate rejects posters without followers, then applies the optional anti-abuse thresholds.
func (p *Pipeline) legitimate(post models.Post) bool {
	if post.FollowersCount <= 0 {
		return false
	}
	if !p.cfg.LegitimacyFilter {
		return true
	}
	if post.FollowersCount < p.cfg.MinFollowers {
		return false
	}
	if p.cfg.MaxFriendFollowerRatio > 0 {
		ratio := float64(post.FriendsCount) / float64(post.FollowersCount)
		if ratio > p.cfg.MaxFriendFollowerRatio {
			return false
		}
	}
	return true
}

func (p *Pipeline) classify(ctx context.Context, post models.Post) (models.RewardClass, error) {
	if p.graph == nil || len(post.Mentions) == 0 {
		return models.Tag, nil
	}
	friend, err := p.graph.AnyFriend(ctx, post.AuthorId, post.Mentions)
	if err != nil {
		return models.Tag, err
	}
	if friend {
		return models.FriendMention, nil
	}
	return models.Tag, nil
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}
