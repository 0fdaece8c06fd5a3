package models

import "time"

// Post is a candidate feed item.
type Post struct {
	Position       uint64
	PostId         string
	Text           string
	AuthorId       string
	AuthorName     string
	FollowersCount int
	FriendsCount   int
	InReplyTo      string
	Mentions       []string
	URLs           []string
	CreatedAt      time.Time
}

func (p Post) IsReply() bool {
	return p.InReplyTo != ""
}
