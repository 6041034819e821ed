package notifications

import (
	"log/slog"
	"sync"
	"time"

	"splicer/internal/logging"
)

// Event identifies the kind of notification.
type Event string

const (
	EventDurationChanged  Event = "duration_changed"
	EventClipInvalid      Event = "clip_invalid"
	EventRefreshRequested Event = "refresh_requested"
	EventFramePosition    Event = "frame_position"
	EventConsumerStopped  Event = "consumer_stopped"
)

// Message is one delivered notification. Frame carries the duration for
// EventDurationChanged and the playhead for playback events.
type Message struct {
	Event  Event
	Frame  int
	ClipID string
}

// Service defines the notification surface used by the render engine.
type Service interface {
	NotifyDurationChanged(frames int)
	NotifyClipInvalid(clipID string)
	NotifyRefresh()
	NotifyFramePosition(frame int)
	NotifyConsumerStopped(frame int)
}

// DefaultBuffer is the channel capacity given to subscribers that do not
// request one.
const DefaultBuffer = 64

// Hub publishes messages to channel subscribers.
type Hub struct {
	mu       sync.Mutex
	subs     map[int]chan Message
	nextID   int
	closed   bool
	coalesce time.Duration
	pending  bool
	timer    *time.Timer
	logger   *slog.Logger
}

// NewHub returns a hub that merges refresh requests arriving within
// coalesce of the first one. A zero window delivers every request.
func NewHub(coalesce time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		subs:     make(map[int]chan Message),
		coalesce: coalesce,
		logger:   logging.NewComponentLogger(logger, "notifications"),
	}
}

// Subscribe registers a listener and returns its channel together with a
// function that cancels the subscription.
func (h *Hub) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Message, buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// NotifyDurationChanged reports the new composed duration in frames.
func (h *Hub) NotifyDurationChanged(frames int) {
	h.publish(Message{Event: EventDurationChanged, Frame: frames})
}

// NotifyClipInvalid reports a clip whose source cannot be resolved.
func (h *Hub) NotifyClipInvalid(clipID string) {
	h.publish(Message{Event: EventClipInvalid, ClipID: clipID})
}

// NotifyRefresh requests a redraw of the current frame. Requests arriving
// while one is pending are merged into it.
func (h *Hub) NotifyRefresh() {
	if h.coalesce <= 0 {
		h.publish(Message{Event: EventRefreshRequested})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.pending {
		return
	}
	h.pending = true
	h.timer = time.AfterFunc(h.coalesce, func() {
		h.mu.Lock()
		h.pending = false
		h.mu.Unlock()
		h.publish(Message{Event: EventRefreshRequested})
	})
}

// NotifyFramePosition reports the frame shown by the consumer.
func (h *Hub) NotifyFramePosition(frame int) {
	h.publish(Message{Event: EventFramePosition, Frame: frame})
}

// NotifyConsumerStopped reports that playback stopped at frame.
func (h *Hub) NotifyConsumerStopped(frame int) {
	h.publish(Message{Event: EventConsumerStopped, Frame: frame})
}

// Close stops pending deliveries and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
	}
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.logger.Debug("notification dropped",
				logging.String("event", string(msg.Event)),
				logging.Int("subscriber", id),
			)
		}
	}
}

// Noop returns a Service that discards every notification.
func Noop() Service {
	return noopService{}
}

type noopService struct{}

func (noopService) NotifyDurationChanged(int) {}
func (noopService) NotifyClipInvalid(string)  {}
func (noopService) NotifyRefresh()            {}
func (noopService) NotifyFramePosition(int)   {}
func (noopService) NotifyConsumerStopped(int) {}
