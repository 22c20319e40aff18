package eventstore

import (
	"encoding/json"
	"fmt"

	"github.com/amirasaad/payproc/pkg/domain/events"
)

// Encode serializes an event to its stable wire form: the type
// discriminator plus a JSON payload. New optional fields stay decodable
// against historical payloads that lack them.
func Encode(e events.Event) (eventType string, payload []byte, err error) {
	payload, err = json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("%w: encode %s: %v", ErrSerialization, e.Type(), err)
	}
	return e.Type(), payload, nil
}

// Decode reconstructs an event from its discriminator and payload using
// the events.EventTypes registry. An unknown discriminator is a hard
// ErrSerialization, never a silently skipped event.
func Decode(eventType string, payload []byte) (events.Event, error) {
	constructor, ok := events.EventTypes[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrSerialization, eventType)
	}
	e := constructor()
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrSerialization, eventType, err)
	}
	return e, nil
}
