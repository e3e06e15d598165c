package models

// Push event tags delivered over the socket.
const (
	EventFeedNewPost     = "feed:new-post"
	EventFeedUpdatePost  = "feed:update-post"
	EventPollUpdate      = "poll:update"
	EventMatchUpdate     = "match:update"
	EventTimelineUpdate  = "timeline:update"
	EventNotificationNew = "notification:new"
)

// Lifecycle tags emitted by a push connection itself.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventReconnect       = "reconnect"
	EventReconnectFailed = "reconnect_failed"
)

// EventJoin is emitted with the user id to join the private channel.
const EventJoin = "join"
