// Package hub fans telemetry frames out to websocket clients.
//
// One goroutine owns the client set; registration, removal and broadcast
// all go through channels to it.
package hub

import (
	"encoding/json"

	"github.com/apexftc/go-auton/pkg/telemetry"
)

// Kind tells clients what a message carries.
type Kind string

const (
	// KindFrame carries a telemetry.Frame.
	KindFrame Kind = "frame"
	// KindStatus carries a sequencer or alignment status snapshot.
	KindStatus Kind = "status"
)

// Envelope is the JSON document sent for every message.
type Envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Message is an encoded envelope ready for the wire.
type Message []byte

// Encode wraps v in an envelope of the given kind.
func Encode(kind Kind, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: kind, Data: data})
}

// DecodeFrame extracts a frame from an encoded envelope.
func DecodeFrame(m []byte) (telemetry.Frame, error) {
	var env Envelope
	var f telemetry.Frame
	if err := json.Unmarshal(m, &env); err != nil {
		return f, err
	}
	if env.Kind != KindFrame {
		return f, ErrUnexpectedKind
	}
	err := json.Unmarshal(env.Data, &f)
	return f, err
}
