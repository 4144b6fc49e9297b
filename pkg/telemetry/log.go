package telemetry

import "github.com/rs/zerolog"

// DefaultLogEvery is the heartbeat interval of LogPublisher, in frames.
// At the 20 ms loop period this is one line every two seconds.
const DefaultLogEvery = 100

// LogPublisher writes every Nth frame to a logger as a heartbeat line.
type LogPublisher struct {
	logger zerolog.Logger
	every  uint64
	frames uint64
}

// NewLogPublisher logs one frame out of every. every <= 0 selects
// DefaultLogEvery.
func NewLogPublisher(logger zerolog.Logger, every int) *LogPublisher {
	if every <= 0 {
		every = DefaultLogEvery
	}
	return &LogPublisher{logger: logger, every: uint64(every)}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(f Frame) error {
	p.frames++
	if p.frames%p.every != 0 {
		return nil
	}
	ev := p.logger.Info().Uint64("seq", f.Seq).Fields(f.Fields())
	for _, it := range f.Items {
		if it.Caption == "" {
			ev = ev.Str("line", it.Value)
			break
		}
	}
	ev.Msg("telemetry")
	return nil
}

// Frames returns how many frames the publisher has seen.
func (p *LogPublisher) Frames() uint64 { return p.frames }
