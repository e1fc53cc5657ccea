package types

import (
	"errors"
	"strings"
	"testing"
)

var errTransient = errors.New("disk I/O error")

func TestIsValidChannelName(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		valid   bool
	}{
		{"simple", "gaming", true},
		{"mixed case and digits", "Channel42", true},
		{"underscore and hyphen", "late_night-show", true},
		{"empty", "", false},
		{"space", "game night", false},
		{"unicode", "游戏", false},
		{"slash", "a/b", false},
		{"max length", strings.Repeat("a", 100), true},
		{"over max length", strings.Repeat("a", 101), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidChannelName(tt.channel); got != tt.valid {
				t.Errorf("IsValidChannelName(%q) = %v, want %v", tt.channel, got, tt.valid)
			}
		})
	}
}

func TestIsAllowedEmoji(t *testing.T) {
	for _, emoji := range []string{"❤️", "🔥", "👏", "😂", "😮", "🎉", "👍", "💯"} {
		if !IsAllowedEmoji(emoji) {
			t.Errorf("Expected %q to be allowed", emoji)
		}
	}
	for _, emoji := range []string{"💀", "🙃", "", "fire", ":fire:"} {
		if IsAllowedEmoji(emoji) {
			t.Errorf("Expected %q to be rejected", emoji)
		}
	}
}

func TestClientMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ClientMessage
		wantErr string
	}{
		{"valid join", ClientMessage{Action: ActionJoinLive, ChannelName: "gaming"}, ""},
		{"valid reaction", ClientMessage{Action: ActionLiveReaction, ChannelName: "gaming", Emoji: "🔥"}, ""},
		{"unknown action", ClientMessage{Action: "shoutout", ChannelName: "gaming"}, "Invalid action"},
		{"empty action", ClientMessage{ChannelName: "gaming"}, "Invalid action"},
		{"missing channel", ClientMessage{Action: ActionLiveComment}, "channelName is required"},
		{"bad channel format", ClientMessage{Action: ActionJoinLive, ChannelName: "no spaces"}, "Invalid channelName format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid message, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if MessageFor(err) != tt.wantErr {
				t.Errorf("Expected message %q, got %q", tt.wantErr, MessageFor(err))
			}
			if StatusFor(err) != 400 {
				t.Errorf("Expected status 400, got %d", StatusFor(err))
			}
		})
	}
}

func TestModerationStatus_Restricted(t *testing.T) {
	if StatusActive.Restricted() {
		t.Error("Active accounts should not be restricted")
	}
	if !StatusSuspended.Restricted() || !StatusBanned.Restricted() {
		t.Error("Suspended and banned accounts should be restricted")
	}
}

func TestClientError_Taxonomy(t *testing.T) {
	if StatusFor(ErrRateLimited) != 429 {
		t.Errorf("Expected 429, got %d", StatusFor(ErrRateLimited))
	}
	if StatusFor(ErrRestricted) != 403 {
		t.Errorf("Expected 403, got %d", StatusFor(ErrRestricted))
	}

	// Unknown errors collapse to an opaque internal failure.
	opaque := StatusFor(errTransient)
	if opaque != 500 {
		t.Errorf("Expected 500 for unclassified errors, got %d", opaque)
	}
	if MessageFor(errTransient) != "Internal server error" {
		t.Errorf("Internal detail leaked: %q", MessageFor(errTransient))
	}
}
