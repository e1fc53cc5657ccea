package types

import (
	"time"
)

// ARCHITECTURAL DISCOVERY: Action strings defined exactly as the wire protocol
// specifies to ensure compatibility with all dispatch logic across the system
const (
	ActionJoinLive     = "joinLive"
	ActionLeaveLive    = "leaveLive"
	ActionLiveComment  = "liveComment"
	ActionLiveReaction = "liveReaction"
)

// Broadcast event types pushed to the other viewers of a channel
const (
	EventViewerJoined = "viewerJoined"
	EventViewerLeft   = "viewerLeft"
	EventCommentSent  = "commentSent"
	EventReactionSent = "reactionSent"
)

// Direct acknowledgment types returned to the acting connection
const (
	AckJoinedLive   = "joinedLive"
	AckLeftLive     = "leftLive"
	AckCommentSent  = "commentSent"
	AckReactionSent = "reactionSent"
)

// ModerationStatus classifies an account for per-message authorization.
// FUNCTIONAL DISCOVERY: Status is read on every message, not only at connect
// time, because it can change mid-session (suspension during a broadcast).
type ModerationStatus string

const (
	StatusActive    ModerationStatus = "active"
	StatusSuspended ModerationStatus = "suspended"
	StatusBanned    ModerationStatus = "banned"
)

// Restricted reports whether the status bars the account from channel actions.
func (s ModerationStatus) Restricted() bool {
	return s == StatusSuspended || s == StatusBanned
}

// UserProfile is the public identity attached to broadcasts and acks.
type UserProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Identity is the resolved view of one connection handle: who it is bound to
// and whether that account may act right now.
type Identity struct {
	UserID  string
	Profile UserProfile
	Status  ModerationStatus
}

// ClientMessage is the inbound wire format, one per client transmission.
// ARCHITECTURAL DISCOVERY: Closed action set dispatched with an exhaustive
// switch rather than a string-keyed handler table so adding or removing an
// action is a compiler-checked change.
type ClientMessage struct {
	Action      string `json:"action"`
	ChannelName string `json:"channelName"`
	Content     string `json:"content,omitempty"`
	Emoji       string `json:"emoji,omitempty"`
}

// ChannelViewer represents one connection currently viewing one channel.
// Uniqueness invariant: at most one row per (channel_name, connection_handle);
// a duplicate join is insert-or-ignore. Lifecycle is session-scoped - no
// viewer row may outlive its connection.
type ChannelViewer struct {
	ChannelName      string    `json:"channel_name"`
	ConnectionHandle string    `json:"connection_handle"`
	UserID           string    `json:"user_id"`
	JoinedAt         time.Time `json:"joined_at"`
}

// CommentPayload carries a moderated, sanitized comment with its server-side id.
type CommentPayload struct {
	ID      string      `json:"id"`
	Content string      `json:"content"`
	Author  UserProfile `json:"author"`
}

// ReactionPayload carries an allow-listed emoji reaction with its server-side id.
type ReactionPayload struct {
	ID     string      `json:"id"`
	Emoji  string      `json:"emoji"`
	Author UserProfile `json:"author"`
}

// InteractionEvent is the transient payload broadcast to a channel's viewers.
// Never persisted; exists only for the duration of one fanout call.
// FUNCTIONAL DISCOVERY: Typed pointers for the per-event fields keep a single
// JSON shape on the wire while making the union explicit in code.
type InteractionEvent struct {
	Type        string           `json:"type"`
	ChannelName string           `json:"channelName"`
	User        UserProfile      `json:"user"`
	ViewerCount int              `json:"viewerCount,omitempty"`
	Comment     *CommentPayload  `json:"comment,omitempty"`
	Reaction    *ReactionPayload `json:"reaction,omitempty"`
}

// Ack is the direct response to the originating connection.
type Ack struct {
	Type        string           `json:"type"`
	ChannelName string           `json:"channelName,omitempty"`
	ViewerCount int              `json:"viewerCount,omitempty"`
	Comment     *CommentPayload  `json:"comment,omitempty"`
	Reaction    *ReactionPayload `json:"reaction,omitempty"`
}

// ErrorAck is the direct error response to the originating connection.
// The body carries only a client-safe message; no internal detail (matched
// keyword, classifier score, SQL text) is ever echoed.
type ErrorAck struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ChannelStat is the operational view of one active channel.
type ChannelStat struct {
	ChannelName string `json:"channel_name"`
	ViewerCount int    `json:"viewer_count"`
}
