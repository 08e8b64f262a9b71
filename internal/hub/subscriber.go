package hub

import (
	"github.com/rs/zerolog"

	"github.com/brianly1003/lfsdesk/internal/domain"
	"github.com/brianly1003/lfsdesk/internal/domain/events"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// ChannelSubscriber buffers events on a channel. A full buffer counts as a
// failed send, which makes the hub drop the subscriber.
type ChannelSubscriber struct {
	id     string
	send   chan events.Event
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewChannelSubscriber creates a new channel-based subscriber.
func NewChannelSubscriber(id string, bufferSize int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:   id,
		send: make(chan events.Event, bufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Send queues an event.
func (s *ChannelSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSubscriberClosed
	}

	select {
	case s.send <- event:
		return nil
	default:
		return domain.ErrSubscriberClosed
	}
}

// Close closes the subscriber and its event channel.
func (s *ChannelSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.send)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Events returns the channel to receive events from.
func (s *ChannelSubscriber) Events() <-chan events.Event {
	return s.send
}

// LogSubscriber writes every event to a zerolog logger.
type LogSubscriber struct {
	id     string
	logger zerolog.Logger
	level  zerolog.Level
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewLogSubscriber creates a subscriber that logs events at level.
func NewLogSubscriber(id string, logger zerolog.Logger, level zerolog.Level) *LogSubscriber {
	return &LogSubscriber{
		id:     id,
		logger: logger,
		level:  level,
		done:   make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *LogSubscriber) ID() string {
	return s.id
}

// Send logs the event.
func (s *LogSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSubscriberClosed
	}

	data, err := event.ToJSON()
	if err != nil {
		return err
	}
	s.logger.WithLevel(s.level).
		Str("event_type", string(event.Type())).
		Str("repository", event.GetRepository()).
		RawJSON("event", data).
		Msg("event")
	return nil
}

// Close closes the subscriber.
func (s *LogSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *LogSubscriber) Done() <-chan struct{} {
	return s.done
}
