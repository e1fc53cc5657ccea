package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"livegate/internal/fanout"
	"livegate/internal/identity"
	"livegate/internal/moderation"
	"livegate/internal/observability"
	"livegate/internal/registry"
	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

// Router is the action-dispatch protocol state machine. It is stateless per
// message; the state that matters lives in the viewer registry, not here.
// ARCHITECTURAL DISCOVERY: Strict per-message pipeline - identity, rate
// limit, validation, moderation, state mutation, fanout, ack - where each
// step can abort all later steps.
type Router struct {
	resolver    *identity.Resolver
	limiter     interfaces.Limiter
	gate        *moderation.Gate
	viewers     *registry.Viewers
	broadcaster *fanout.Broadcaster
	metrics     *observability.Metrics

	// clock is injectable so rate-limit behavior is testable without sleeping
	clock func() time.Time
}

// NewRouter creates an action router with dependency injection.
func NewRouter(
	resolver *identity.Resolver,
	limiter interfaces.Limiter,
	gate *moderation.Gate,
	viewers *registry.Viewers,
	broadcaster *fanout.Broadcaster,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		resolver:    resolver,
		limiter:     limiter,
		gate:        gate,
		viewers:     viewers,
		broadcaster: broadcaster,
		metrics:     metrics,
		clock:       time.Now,
	}
}

// Dispatch processes one inbound message bound to one connection handle and
// returns the direct acknowledgment for the originating connection.
func (r *Router) Dispatch(ctx context.Context, handle string, raw []byte) (*types.Ack, error) {
	ack, err := r.dispatch(ctx, handle, raw)
	r.metrics.Action(actionLabel(raw), outcomeLabel(err))
	return ack, err
}

func (r *Router) dispatch(ctx context.Context, handle string, raw []byte) (*types.Ack, error) {
	// STEP 1: Identity - resolve the handle before anything else so
	// unauthenticated traffic never reaches validation or moderation.
	actor, err := r.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	if actor.Status.Restricted() {
		return nil, types.ErrRestricted
	}

	// STEP 2: Rate limit - after identity, before validation, so invalid
	// actions still consume budget and a validation-failure retry loop
	// cannot bypass the limiter.
	if !r.limiter.Admit(handle, r.clock()) {
		return nil, types.ErrRateLimited
	}

	// STEP 3: Parse and validate
	var msg types.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, types.NewValidationError("Invalid request body")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	// STEP 4: Exhaustive dispatch over the closed action set
	switch msg.Action {
	case types.ActionJoinLive:
		return r.handleJoin(ctx, handle, actor, &msg)
	case types.ActionLeaveLive:
		return r.handleLeave(ctx, handle, actor, &msg)
	case types.ActionLiveComment:
		return r.handleComment(ctx, handle, actor, &msg)
	case types.ActionLiveReaction:
		return r.handleReaction(ctx, handle, actor, &msg)
	default:
		// Validate already rejects unknown actions; kept for exhaustiveness.
		return nil, types.NewValidationError("Invalid action")
	}
}

// handleJoin inserts the viewer row (insert-or-ignore), broadcasts
// viewerJoined to the channel's other viewers and acks with a fresh count.
func (r *Router) handleJoin(ctx context.Context, handle string, actor *types.Identity, msg *types.ClientMessage) (*types.Ack, error) {
	if err := r.viewers.Add(ctx, msg.ChannelName, handle, actor.UserID); err != nil {
		return nil, fmt.Errorf("join failed: %w", err)
	}

	// FUNCTIONAL DISCOVERY: Count is always a fresh post-commit read so two
	// concurrent joins can never echo a drifted number.
	count, err := r.viewers.Count(ctx, msg.ChannelName)
	if err != nil {
		return nil, fmt.Errorf("viewer count failed: %w", err)
	}

	r.broadcast(ctx, msg.ChannelName, handle, &types.InteractionEvent{
		Type:        types.EventViewerJoined,
		ChannelName: msg.ChannelName,
		User:        actor.Profile,
		ViewerCount: count,
	})

	return &types.Ack{
		Type:        types.AckJoinedLive,
		ChannelName: msg.ChannelName,
		ViewerCount: count,
	}, nil
}

// handleLeave deletes the viewer row if present (no-op otherwise), broadcasts
// viewerLeft and acks.
func (r *Router) handleLeave(ctx context.Context, handle string, actor *types.Identity, msg *types.ClientMessage) (*types.Ack, error) {
	if err := r.viewers.Remove(ctx, msg.ChannelName, handle); err != nil {
		return nil, fmt.Errorf("leave failed: %w", err)
	}

	count, err := r.viewers.Count(ctx, msg.ChannelName)
	if err != nil {
		return nil, fmt.Errorf("viewer count failed: %w", err)
	}

	r.broadcast(ctx, msg.ChannelName, handle, &types.InteractionEvent{
		Type:        types.EventViewerLeft,
		ChannelName: msg.ChannelName,
		User:        actor.Profile,
		ViewerCount: count,
	})

	return &types.Ack{
		Type:        types.AckLeftLive,
		ChannelName: msg.ChannelName,
	}, nil
}

// handleComment runs the moderation gate on the raw text, then broadcasts the
// sanitized comment with a server-generated id.
func (r *Router) handleComment(ctx context.Context, handle string, actor *types.Identity, msg *types.ClientMessage) (*types.Ack, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return nil, types.NewValidationError("content is required")
	}

	sanitized, err := r.gate.Review(msg.Content)
	if err != nil {
		return nil, err
	}
	if sanitized == "" {
		// Markup-only content survives moderation but has nothing to show.
		return nil, types.NewValidationError("content is required")
	}

	// ARCHITECTURAL DISCOVERY: Server-side id generation prevents client
	// tampering and keeps ack and broadcast referring to the same comment.
	comment := &types.CommentPayload{
		ID:      uuid.New().String(),
		Content: sanitized,
		Author:  actor.Profile,
	}

	r.broadcast(ctx, msg.ChannelName, handle, &types.InteractionEvent{
		Type:        types.EventCommentSent,
		ChannelName: msg.ChannelName,
		User:        actor.Profile,
		Comment:     comment,
	})

	return &types.Ack{
		Type:        types.AckCommentSent,
		ChannelName: msg.ChannelName,
		Comment:     comment,
	}, nil
}

// handleReaction validates the emoji against the allow-list and broadcasts
// the reaction with a server-generated id.
func (r *Router) handleReaction(ctx context.Context, handle string, actor *types.Identity, msg *types.ClientMessage) (*types.Ack, error) {
	if msg.Emoji == "" {
		return nil, types.NewValidationError("emoji is required")
	}
	if !types.IsAllowedEmoji(msg.Emoji) {
		return nil, types.NewValidationError("Invalid emoji")
	}

	reaction := &types.ReactionPayload{
		ID:     uuid.New().String(),
		Emoji:  msg.Emoji,
		Author: actor.Profile,
	}

	r.broadcast(ctx, msg.ChannelName, handle, &types.InteractionEvent{
		Type:        types.EventReactionSent,
		ChannelName: msg.ChannelName,
		User:        actor.Profile,
		Reaction:    reaction,
	})

	return &types.Ack{
		Type:        types.AckReactionSent,
		ChannelName: msg.ChannelName,
		Reaction:    reaction,
	}, nil
}

// broadcast fans the event out to the channel's other viewers. Best-effort by
// contract: failures here never abort the triggering request.
func (r *Router) broadcast(ctx context.Context, channelName, actorHandle string, event *types.InteractionEvent) {
	start := time.Now()
	result := r.broadcaster.Broadcast(ctx, channelName, event, actorHandle)
	r.metrics.Fanout(event.Type, time.Since(start), len(result.Delivered), len(result.Pruned), len(result.Failed))

	if len(result.Pruned) > 0 || len(result.Failed) > 0 {
		log.Printf("Broadcast %s to %s: delivered=%d pruned=%d failed=%d",
			event.Type, channelName, len(result.Delivered), len(result.Pruned), len(result.Failed))
	}
}

// actionLabel extracts the action for metrics without trusting the payload.
func actionLabel(raw []byte) string {
	var probe struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || !types.IsValidAction(probe.Action) {
		return "unknown"
	}
	return probe.Action
}

// outcomeLabel maps a dispatch error to its metrics outcome.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrUnauthenticated), errors.Is(err, types.ErrNoConnectionHandle):
		return "unauthenticated"
	case errors.Is(err, types.ErrRestricted):
		return "restricted"
	case errors.Is(err, types.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, types.ErrModerationRejected):
		return "moderation"
	case types.IsClientError(err):
		return "validation"
	default:
		return "error"
	}
}
