package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/burakmert236/xsgfaucet/common/cache"
	"github.com/burakmert236/xsgfaucet/common/config"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/common/natsjetstream"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/feed"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/social"
)

// line is one JSON object per stdin line. Friends are stored for the author before the post is published.
type line struct {
	PostId         string   `json:"post_id"`
	Text           string   `json:"text"`
	AuthorId       string   `json:"author_id"`
	AuthorName     string   `json:"author_name"`
	FollowersCount int      `json:"followers_count"`
	FriendsCount   int      `json:"friends_count"`
	InReplyTo      string   `json:"in_reply_to"`
	Mentions       []string `json:"mentions"`
	URLs           []string `json:"urls"`
	Friends        []string `json:"friends"`
}

func main() {
	env := config.NewEnvLoader("FAUCET")

	cfg, err := config.Load(env.GetString("CONFIG_PATH", "../config"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg := logger.Development("faucet-ingest")

	ctx := context.Background()

	client, err := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           cfg.NATS.URL,
		MaxReconnect:  cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(cfg.NATS.TimeoutSeconds) * time.Second,
	}, lg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer client.Close()

	var graph *social.Graph
	if cfg.Redis.Address != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rc.Close()
		graph = social.NewGraph(rc.GetClient())
	}

	ingester := feed.NewIngester(natsjetstream.NewPublisher(client), cfg.NATS.FeedSubject)

	count := 0
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var in line
		if err := json.Unmarshal(scanner.Bytes(), &in); err != nil {
			lg.Warn("Skipping malformed line", "error", err)
			continue
		}

		if graph != nil && len(in.Friends) > 0 {
			if err := graph.AddFriends(ctx, in.AuthorId, in.Friends...); err != nil {
				log.Fatalf("Failed to store friends of %s: %v", in.AuthorId, err)
			}
		}

		if err := ingester.Ingest(ctx, models.Post{
			PostId:         in.PostId,
			Text:           in.Text,
			AuthorId:       in.AuthorId,
			AuthorName:     in.AuthorName,
			FollowersCount: in.FollowersCount,
			FriendsCount:   in.FriendsCount,
			InReplyTo:      in.InReplyTo,
			Mentions:       in.Mentions,
			URLs:           in.URLs,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			log.Fatalf("Failed to ingest post %s: %v", in.PostId, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	lg.Info("Ingest finished", "posts", count)
}
