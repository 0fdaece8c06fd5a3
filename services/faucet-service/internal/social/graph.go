package social

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
)

// Graph answers friendship questions from Redis sets maintained by the feed ingester.
type Graph struct {
	client *redis.Client
}

func NewGraph(client *redis.Client) *Graph {
	return &Graph{client: client}
}

func FriendsKey(userId string) string {
	return fmt.Sprintf("social:friends:%s", userId)
}

func (g *Graph) IsFriend(ctx context.Context, userId, otherId string) (bool, error) {
	ok, err := g.client.SIsMember(ctx, FriendsKey(userId), otherId).Result()
	if err != nil {
		return false, faucetErrors.WrapSocialGraphError(err)
	}
	return ok, nil
}

// AnyFriend reports whether any of candidates is a friend of userId, in one round trip.
func (g *Graph) AnyFriend(ctx context.Context, userId string, candidates []string) (bool, error) {
	if len(candidates) == 0 {
		return false, nil
	}

	members := make([]interface{}, len(candidates))
	for i, c := range candidates {
		members[i] = c
	}

	found, err := g.client.SMIsMember(ctx, FriendsKey(userId), members...).Result()
	if err != nil {
		return false, faucetErrors.WrapSocialGraphError(err)
	}
	for _, ok := range found {
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// AddFriends records friendships for userId.
func (g *Graph) AddFriends(ctx context.Context, userId string, friendIds ...string) error {
	if len(friendIds) == 0 {
		return nil
	}
	members := make([]interface{}, len(friendIds))
	for i, f := range friendIds {
		members[i] = f
	}
	if err := g.client.SAdd(ctx, FriendsKey(userId), members...).Err(); err != nil {
		return faucetErrors.WrapSocialGraphError(err)
	}
	return nil
}
