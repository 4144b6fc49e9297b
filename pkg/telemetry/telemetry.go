// Package telemetry collects the lines an opmode reports each tick and
// publishes them as one frame per Update.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/pkg/timer"
)

// Item is one telemetry line. Lines added with AddLine have no caption.
type Item struct {
	Caption string `json:"caption,omitempty"`
	Value   string `json:"value"`
}

func (i Item) String() string {
	if i.Caption == "" {
		return i.Value
	}
	return i.Caption + ": " + i.Value
}

// Frame is everything reported between two calls to Update.
type Frame struct {
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Items []Item    `json:"items"`
}

// Value returns the value of the first item with the given caption.
func (f Frame) Value(caption string) (string, bool) {
	for _, it := range f.Items {
		if it.Caption == caption {
			return it.Value, true
		}
	}
	return "", false
}

// Fields returns the captioned items as a map, for structured logs.
func (f Frame) Fields() map[string]any {
	m := make(map[string]any, len(f.Items))
	for _, it := range f.Items {
		if it.Caption != "" {
			m[it.Caption] = it.Value
		}
	}
	return m
}

func (f Frame) String() string {
	lines := make([]string, len(f.Items))
	for i, it := range f.Items {
		lines[i] = it.String()
	}
	return strings.Join(lines, "\n")
}

// Publisher receives every frame. Publish is called on the loop
// goroutine and must not block.
type Publisher interface {
	Publish(f Frame) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Frame) error

// Publish calls p.
func (p PublisherFunc) Publish(f Frame) error { return p(f) }

// Telemetry buffers items until Update and fans the frame out to every
// publisher. AddData, AddLine and Update belong to the loop goroutine;
// Last may be called from anywhere.
type Telemetry struct {
	clock  timer.Clock
	logger zerolog.Logger
	pubs   []Publisher

	items []Item
	seq   uint64

	mu   sync.RWMutex
	last Frame
}

// New returns a Telemetry publishing to pubs. A nil clock selects
// timer.RealClock.
func New(clock timer.Clock, logger zerolog.Logger, pubs ...Publisher) *Telemetry {
	if clock == nil {
		clock = timer.RealClock{}
	}
	return &Telemetry{clock: clock, logger: logger, pubs: pubs}
}

// AddPublisher adds a publisher for subsequent frames.
func (t *Telemetry) AddPublisher(p Publisher) {
	t.pubs = append(t.pubs, p)
}

// AddData reports a captioned value. Floats are formatted to three
// decimals.
func (t *Telemetry) AddData(caption string, value any) {
	t.items = append(t.items, Item{Caption: caption, Value: format(value)})
}

// AddLine reports a free text line.
func (t *Telemetry) AddLine(line string) {
	t.items = append(t.items, Item{Value: line})
}

// Update closes the current frame, publishes it and starts a new one.
// A failing publisher is logged and does not stop the others.
func (t *Telemetry) Update() Frame {
	t.seq++
	f := Frame{Seq: t.seq, Time: t.clock.Now(), Items: t.items}
	t.items = nil

	t.mu.Lock()
	t.last = f
	t.mu.Unlock()

	for _, p := range t.pubs {
		if err := p.Publish(f); err != nil {
			t.logger.Warn().Err(err).Uint64("seq", f.Seq).Msg("telemetry publish failed")
		}
	}
	return f
}

// Last returns the most recently published frame.
func (t *Telemetry) Last() Frame {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', 3, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 3, 32)
	case time.Duration:
		return strconv.FormatFloat(x.Seconds(), 'f', 3, 64) + "s"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
