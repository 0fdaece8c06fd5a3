package events

const (
	// Subjects
	FeedPosts = "feed.posts"

	NotificationReply         = "notifications.reply"
	NotificationDirectMessage = "notifications.dm"
	NotificationBroadcast     = "notifications.broadcast"

	// Subject Wildcards
	FeedWildcard          = "feed.*"
	NotificationsWildcard = "notifications.*"
)
