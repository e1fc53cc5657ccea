package types

import (
	"regexp"
	"strings"
)

// FUNCTIONAL DISCOVERY: Regex compiled once at package initialization
// for better performance in high-frequency validation scenarios
var channelNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// allowedEmoji is the closed reaction set clients may send.
// TECHNICAL DISCOVERY: Allow-listing at the type level keeps the reaction
// surface identical across validation, acks and broadcasts.
var allowedEmoji = map[string]bool{
	"❤️": true,
	"🔥": true,
	"👏": true,
	"😂": true,
	"😮": true,
	"🎉": true,
	"👍": true,
	"💯": true,
}

// IsValidChannelName checks if a channel name meets format requirements.
// 1-100 character limit prevents database issues and keeps names displayable.
func IsValidChannelName(name string) bool {
	if len(name) < 1 || len(name) > 100 {
		return false
	}
	return channelNameRegex.MatchString(name)
}

// IsAllowedEmoji reports whether the emoji is a member of the reaction set.
func IsAllowedEmoji(emoji string) bool {
	return allowedEmoji[emoji]
}

// IsValidAction checks if the action is one of the four protocol actions.
// ARCHITECTURAL DISCOVERY: Explicit validation prevents undefined actions
// from entering the dispatch system
func IsValidAction(action string) bool {
	switch action {
	case ActionJoinLive, ActionLeaveLive, ActionLiveComment, ActionLiveReaction:
		return true
	default:
		return false
	}
}

// Validate ensures the inbound message meets protocol requirements common to
// every action. Action-specific field checks live in the gateway handlers.
func (m *ClientMessage) Validate() error {
	if !IsValidAction(m.Action) {
		return NewValidationError("Invalid action")
	}
	if strings.TrimSpace(m.ChannelName) == "" {
		return NewValidationError("channelName is required")
	}
	if !IsValidChannelName(m.ChannelName) {
		return NewValidationError("Invalid channelName format")
	}
	return nil
}
