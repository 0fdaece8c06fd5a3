package feed

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/models"
)

const (
	fieldPostId     = "post_id"
	fieldText       = "text"
	fieldAuthorId   = "author_id"
	fieldAuthorName = "author_name"
	fieldFollowers  = "followers_count"
	fieldFriends    = "friends_count"
	fieldInReplyTo  = "in_reply_to"
	fieldMentions   = "mentions"
	fieldURLs       = "urls"
	fieldCreatedAt  = "created_at"
)

// EncodePost converts a post to its wire form.
func EncodePost(p models.Post) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		fieldPostId:     p.PostId,
		fieldText:       p.Text,
		fieldAuthorId:   p.AuthorId,
		fieldAuthorName: p.AuthorName,
		fieldFollowers:  p.FollowersCount,
		fieldFriends:    p.FriendsCount,
		fieldInReplyTo:  p.InReplyTo,
		fieldMentions:   toAnySlice(p.Mentions),
		fieldURLs:       toAnySlice(p.URLs),
		fieldCreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeObjectMarshalError, "failed to encode post")
	}
	return s, nil
}

// DecodePost reads a wire post. post_id and author_id are required.
func DecodePost(s *structpb.Struct, position uint64) (models.Post, error) {
	fields := s.GetFields()
	post := models.Post{
		Position:       position,
		PostId:         fields[fieldPostId].GetStringValue(),
		Text:           fields[fieldText].GetStringValue(),
		AuthorId:       fields[fieldAuthorId].GetStringValue(),
		AuthorName:     fields[fieldAuthorName].GetStringValue(),
		FollowersCount: int(fields[fieldFollowers].GetNumberValue()),
		FriendsCount:   int(fields[fieldFriends].GetNumberValue()),
		InReplyTo:      fields[fieldInReplyTo].GetStringValue(),
		Mentions:       toStrings(fields[fieldMentions].GetListValue()),
		URLs:           toStrings(fields[fieldURLs].GetListValue()),
	}

	if post.PostId == "" || post.AuthorId == "" {
		return post, errors.New(errors.CodeInvalidInput, "post without post_id or author_id")
	}

	if raw := fields[fieldCreatedAt].GetStringValue(); raw != "" {
		createdAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return post, errors.Wrap(err, errors.CodeObjectUnmarshalError, "invalid created_at")
		}
		post.CreatedAt = createdAt
	}

	return post, nil
}

func toAnySlice(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func toStrings(list *structpb.ListValue) []string {
	values := list.GetValues()
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := v.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
