package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
)

var _ driving.ActionStream = (*StreamHandle)(nil)

// StreamHandle is a running streamed action.
// Events are queued without blocking the producer, so Wait resolves even
// when nobody reads Events. Once the stream is cancelled, through Cancel or
// the parent context, pending events are dropped and only the terminal event
// is still delivered; the handle never waits for a reader after that.
type StreamHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan domain.StreamEvent

	mu    sync.Mutex
	queue []domain.StreamEvent
	ready chan struct{}

	once     sync.Once
	done     chan struct{}
	proposal *domain.Proposal
	err      error
}

func newStreamHandle(ctx context.Context) *StreamHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &StreamHandle{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan domain.StreamEvent, 1),
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go h.pump()
	return h
}

// Events returns the event sequence. It is closed after the terminal event.
func (h *StreamHandle) Events() <-chan domain.StreamEvent {
	return h.events
}

// Wait blocks until the stream resolves or ctx is done
func (h *StreamHandle) Wait(ctx context.Context) (*domain.Proposal, error) {
	select {
	case <-h.done:
		return h.proposal, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the stream resolved
func (h *StreamHandle) Done() <-chan struct{} {
	return h.done
}

// Cancel stops the stream and releases the handle. A stream still running
// resolves with no proposal and context.Canceled.
func (h *StreamHandle) Cancel() {
	h.cancel()
}

// resolve sets the completion slot; only the first call counts
func (h *StreamHandle) resolve(p *domain.Proposal, err error) {
	h.once.Do(func() {
		h.proposal, h.err = p, err
		close(h.done)
	})
}

func (h *StreamHandle) push(ev domain.StreamEvent) {
	h.mu.Lock()
	h.queue = append(h.queue, ev)
	h.mu.Unlock()
	select {
	case h.ready <- struct{}{}:
	default:
	}
}

// finish resolves the completion, then queues the terminal event
func (h *StreamHandle) finish(ev domain.StreamEvent, p *domain.Proposal, err error) {
	h.resolve(p, err)
	h.push(ev)
}

// pump delivers queued events in order until the terminal event, or until
// the stream is cancelled.
func (h *StreamHandle) pump() {
	defer close(h.events)
	defer h.cancel()
	for {
		batch := h.take()
		if len(batch) == 0 {
			select {
			case <-h.ready:
			case <-h.ctx.Done():
				h.abandon(nil)
				return
			}
			continue
		}
		for i, ev := range batch {
			if h.ctx.Err() != nil {
				h.abandon(batch[i:])
				return
			}
			select {
			case h.events <- ev:
			case <-h.ctx.Done():
				h.abandon(batch[i:])
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}
}

func (h *StreamHandle) take() []domain.StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	batch := h.queue
	h.queue = nil
	return batch
}

// abandon waits for the terminal event and leaves it in the events buffer,
// replacing anything a reader has not picked up yet. The pump is the only
// sender, so the final send cannot block.
func (h *StreamHandle) abandon(pending []domain.StreamEvent) {
	for {
		for _, ev := range pending {
			if !ev.Terminal() {
				continue
			}
			select {
			case <-h.events:
			default:
			}
			h.events <- ev
			return
		}
		<-h.ready
		pending = h.take()
	}
}
