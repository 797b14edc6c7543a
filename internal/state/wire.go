package state

import "encoding/json"

// EventStateUpdate is the push-channel event carrying a full snapshot.
// Broadcast to every connected viewer whenever the authority's state
// changes, including changes the authority made on a viewer's behalf.
const EventStateUpdate = "state-update"

// Envelope frames one push-channel message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewStateUpdate frames s as a state-update envelope.
func NewStateUpdate(s *Snapshot) (*Envelope, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: EventStateUpdate, Data: raw}, nil
}
