package feed

import (
	"context"

	"google.golang.org/protobuf/proto"

	"github.com/burakmert236/xsgfaucet/common/models"
)

type ProtoPublisher interface {
	PublishProto(ctx context.Context, subject, msgID string, msg proto.Message) error
}

// Ingester appends posts to the feed stream. The post id is the dedup key.
type Ingester struct {
	publisher ProtoPublisher
	subject   string
}

func NewIngester(publisher ProtoPublisher, subject string) *Ingester {
	return &Ingester{publisher: publisher, subject: subject}
}

func (i *Ingester) Ingest(ctx context.Context, post models.Post) error {
	wire, err := EncodePost(post)
	if err != nil {
		return err
	}
	return i.publisher.PublishProto(ctx, i.subject, "post:"+post.PostId, wire)
}
