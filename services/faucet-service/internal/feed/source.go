package feed

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/common/natsjetstream"
	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
)

type StreamReader interface {
	ReadAfter(ctx context.Context, after uint64, limit int) ([]natsjetstream.StreamMsg, error)
}

// Batch is one page of the feed. Last is the highest position read, including
// messages that could not be decoded, so the cursor can move past them.
type Batch struct {
	Posts []models.Post
	Last  uint64
}

type Source interface {
	Fetch(ctx context.Context, after uint64, limit int) (*Batch, error)
}

type source struct {
	reader StreamReader
	logger *logger.Logger
}

func NewSource(reader StreamReader, log *logger.Logger) Source {
	return &source{reader: reader, logger: log.With("component", "feed")}
}

func (s *source) Fetch(ctx context.Context, after uint64, limit int) (*Batch, error) {
	msgs, err := s.reader.ReadAfter(ctx, after, limit)
	if err != nil {
		return nil, faucetErrors.WrapFeedError(err)
	}

	batch := &Batch{Posts: make([]models.Post, 0, len(msgs)), Last: after}
	for _, msg := range msgs {
		batch.Last = msg.Sequence

		var wire structpb.Struct
		if err := natsjetstream.UnmarshalProto(msg, &wire); err != nil {
			s.logger.Warn("Skipping undecodable feed message", "sequence", msg.Sequence, "error", err)
			continue
		}

		post, err := DecodePost(&wire, msg.Sequence)
		if err != nil {
			s.logger.Warn("Skipping invalid feed post", "sequence", msg.Sequence, "error", err)
			continue
		}
		batch.Posts = append(batch.Posts, post)
	}

	return batch, nil
}
