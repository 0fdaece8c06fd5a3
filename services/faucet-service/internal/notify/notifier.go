package notify

import (
	"context"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/burakmert236/xsgfaucet/common/events"
	"github.com/burakmert236/xsgfaucet/common/logger"
	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
)

type ProtoPublisher interface {
	PublishProto(ctx context.Context, subject, msgID string, msg proto.Message) error
}

// Notifier turns bot messages into notification commands on the notification stream.
// Message ids are derived from the post so a replayed event does not post twice.
type Notifier struct {
	publisher ProtoPublisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewNotifier(publisher ProtoPublisher, log *logger.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		logger:    log.With("component", "notify"),
		now:       time.Now,
	}
}

func (n *Notifier) Reply(ctx context.Context, postId, userId, text string) error {
	return n.publish(ctx, events.NotificationReply, "reply:"+postId, "reply", map[string]interface{}{
		"in_reply_to": postId,
		"user_id":     userId,
		"text":        text,
	})
}

func (n *Notifier) DirectMessage(ctx context.Context, postId, userId, text string) error {
	return n.publish(ctx, events.NotificationDirectMessage, "dm:"+postId, "direct message", map[string]interface{}{
		"user_id": userId,
		"text":    text,
	})
}

func (n *Notifier) Broadcast(ctx context.Context, msgId, text string) error {
	return n.publish(ctx, events.NotificationBroadcast, msgId, "broadcast", map[string]interface{}{
		"text": text,
	})
}

func (n *Notifier) publish(ctx context.Context, subject, msgId, kind string, fields map[string]interface{}) error {
	fields["sent_at"] = n.now().UTC().Format(time.RFC3339)

	cmd, err := structpb.NewStruct(fields)
	if err != nil {
		return faucetErrors.WrapNotificationError(err, kind)
	}

	if err := n.publisher.PublishProto(ctx, subject, msgId, cmd); err != nil {
		return faucetErrors.WrapNotificationError(err, kind)
	}

	n.logger.Debug("Notification published", "subject", subject, "msg_id", msgId)
	return nil
}
