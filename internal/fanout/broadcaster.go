package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"livegate/internal/registry"
	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

const (
	// DefaultWidth bounds concurrent pushes so one broadcast cannot exhaust
	// the scheduler on a popular channel.
	DefaultWidth = 16

	// DefaultPushTimeout caps how long one slow peer can hold a fanout slot.
	DefaultPushTimeout = 2 * time.Second
)

// Result names the outcome of one fanout call explicitly so the cleanup
// behavior is unit-testable without mocking a logger.
type Result struct {
	Delivered []string // handles that received the event
	Pruned    []string // handles removed from the registry after a gone error
	Failed    []string // handles skipped after a transient delivery error
}

// Broadcaster pushes one event to every other viewer of a channel.
// ARCHITECTURAL DISCOVERY: Fanout is best-effort by contract - it never fails
// the triggering request. Gone handles are pruned as an implicit leave;
// transient failures are logged and skipped so one bad peer cannot abort
// delivery to the rest.
type Broadcaster struct {
	deliverer   interfaces.Deliverer
	viewers     *registry.Viewers
	width       int
	pushTimeout time.Duration
}

// NewBroadcaster creates a broadcaster with the given fanout width and
// per-push timeout, falling back to defaults when inputs are invalid.
func NewBroadcaster(deliverer interfaces.Deliverer, viewers *registry.Viewers, width int, pushTimeout time.Duration) *Broadcaster {
	if width <= 0 {
		width = DefaultWidth
	}
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	return &Broadcaster{
		deliverer:   deliverer,
		viewers:     viewers,
		width:       width,
		pushTimeout: pushTimeout,
	}
}

// Broadcast delivers event to every viewer of the channel except
// excludeHandle (the actor, which gets a direct ack instead so it is never
// double-notified of its own action).
func (b *Broadcaster) Broadcast(ctx context.Context, channelName string, event *types.InteractionEvent, excludeHandle string) Result {
	var result Result

	handles, err := b.viewers.Handles(ctx, channelName)
	if err != nil {
		// Enumeration failure degrades to an empty fanout; the triggering
		// request already committed its state change and must still ack.
		log.Printf("Fanout enumeration failed for channel %s: %v", channelName, err)
		return result
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Fanout payload marshal failed for channel %s: %v", channelName, err)
		return result
	}

	// FUNCTIONAL DISCOVERY: Pushes run concurrently under a width bound since
	// sequential fanout is dominated by the slowest peer.
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, b.width)
	)

	for _, handle := range handles {
		if handle == excludeHandle {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(handle string) {
			defer wg.Done()
			defer func() { <-sem }()

			pushCtx, cancel := context.WithTimeout(ctx, b.pushTimeout)
			defer cancel()

			err := b.deliverer.Push(pushCtx, handle, payload)
			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				result.Delivered = append(result.Delivered, handle)
			case errors.Is(err, interfaces.ErrConnectionGone):
				// Implicit leave: the handle no longer maps to a live client.
				b.viewers.Prune(ctx, channelName, handle)
				result.Pruned = append(result.Pruned, handle)
			default:
				log.Printf("Fanout push to %s failed, skipping: %v", handle, err)
				result.Failed = append(result.Failed, handle)
			}
		}(handle)
	}

	wg.Wait()
	return result
}
