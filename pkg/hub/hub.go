package hub

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/pkg/telemetry"
)

// Hub errors.
var (
	ErrUnexpectedKind = errors.New("hub: unexpected message kind")
	ErrStopped        = errors.New("hub: stopped")
)

const (
	broadcastBuffer = 256
	clientBuffer    = 64
)

// Hub tracks connected clients and broadcasts messages to them. A client
// whose buffer is full is dropped rather than slowing the loop.
type Hub struct {
	name   string
	logger zerolog.Logger

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	count   int
	dropped int
}

// New returns a hub; call Run to start it.
func New(name string, logger zerolog.Logger) *Hub {
	return &Hub{
		name:       name,
		logger:     logger.With().Str("hub", name).Logger(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until Stop. Call it in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
			h.logger.Info().Int("clients", len(h.clients)).Msg("client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount()
			h.logger.Info().Int("clients", len(h.clients)).Msg("client disconnected")

		case m := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- m:
				default:
					delete(h.clients, c)
					close(c.send)
					h.mu.Lock()
					h.dropped++
					h.mu.Unlock()
					h.logger.Warn().Msg("dropped slow client")
				}
			}
			h.setCount()

		case <-h.stop:
			for c := range h.clients {
				close(c.send)
			}
			h.clients = map[*Client]struct{}{}
			h.setCount()
			return
		}
	}
}

// Stop ends Run and closes every client's queue.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Broadcast queues m for every client. It never blocks: when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(m Message) {
	select {
	case h.broadcast <- m:
	default:
		h.logger.Warn().Msg("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v as an envelope of the given kind and
// broadcasts it.
func (h *Hub) BroadcastJSON(kind Kind, v any) error {
	m, err := Encode(kind, v)
	if err != nil {
		return err
	}
	h.Broadcast(m)
	return nil
}

// Publish implements telemetry.Publisher.
func (h *Hub) Publish(f telemetry.Frame) error {
	select {
	case <-h.stop:
		return ErrStopped
	default:
	}
	return h.BroadcastJSON(KindFrame, f)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Dropped returns how many slow clients have been dropped.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Name returns the hub name.
func (h *Hub) Name() string { return h.name }
