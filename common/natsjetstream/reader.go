package natsjetstream

import (
	"context"
	"errors"

	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/nats-io/nats.go/jetstream"
	"google.golang.org/protobuf/proto"
)

// StreamMsg is one stored stream message.
type StreamMsg struct {
	Sequence uint64
	Subject  string
	Data     []byte
}

// Reader reads a stream by sequence number so callers can resume from their own cursor
// instead of relying on a server-side consumer position.
type Reader struct {
	js      jetstream.JetStream
	stream  string
	subject string
}

func NewReader(client *Client, stream, subject string) *Reader {
	return &Reader{js: client.js, stream: stream, subject: subject}
}

// ReadAfter returns up to limit messages on the reader's subject with sequence > after, in order.
func (r *Reader) ReadAfter(ctx context.Context, after uint64, limit int) ([]StreamMsg, error) {
	stream, err := r.js.Stream(ctx, r.stream)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEventFetchError, "failed to look up stream "+r.stream)
	}

	msgs := make([]StreamMsg, 0, limit)
	next := after + 1
	for len(msgs) < limit {
		raw, err := stream.GetMsg(ctx, next, jetstream.WithGetMsgSubject(r.subject))
		if errors.Is(err, jetstream.ErrMsgNotFound) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeEventFetchError, "failed to read stream message")
		}

		msgs = append(msgs, StreamMsg{Sequence: raw.Sequence, Subject: raw.Subject, Data: raw.Data})
		next = raw.Sequence + 1
	}

	return msgs, nil
}

func UnmarshalProto(msg StreamMsg, pb proto.Message) error {
	return proto.Unmarshal(msg.Data, pb)
}
