package broker

import (
	"encoding/json"
	"time"

	"github.com/zllovesuki/launchpad/boot"

	extErrors "github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event is the wire form of a boot transition
type Event struct {
	SequenceID string    `json:"sequenceId"`
	InstanceID string    `json:"instanceId"`
	Phase      int       `json:"phase"`
	PhaseName  string    `json:"phaseName"`
	Previous   int       `json:"previous"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// NewEvent converts a transition into an Event
func NewEvent(t boot.Transition) Event {
	e := Event{
		SequenceID: t.SequenceID,
		InstanceID: t.InstanceID,
		Phase:      int(t.To),
		PhaseName:  t.To.String(),
		Previous:   int(t.From),
		Time:       t.At.UTC(),
	}
	if t.Err != nil {
		e.Error = t.Err.Error()
	}
	return e
}

// JSON encodes the event for text transports
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Proto encodes the event as a google.protobuf.Struct
func (e Event) Proto() ([]byte, error) {
	fields := map[string]interface{}{
		"sequenceId": e.SequenceID,
		"instanceId": e.InstanceID,
		"phase":      e.Phase,
		"phaseName":  e.PhaseName,
		"previous":   e.Previous,
		"time":       e.Time.Format(time.RFC3339Nano),
	}
	if e.Error != "" {
		fields["error"] = e.Error
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot convert event into struct")
	}
	return proto.Marshal(s)
}

// EventFromProto decodes a body produced by Event.Proto
func EventFromProto(b []byte) (Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return Event{}, extErrors.Wrap(err, "Cannot decode event")
	}
	m := s.AsMap()
	e := Event{}
	e.SequenceID, _ = m["sequenceId"].(string)
	e.InstanceID, _ = m["instanceId"].(string)
	e.PhaseName, _ = m["phaseName"].(string)
	e.Error, _ = m["error"].(string)
	if v, ok := m["phase"].(float64); ok {
		e.Phase = int(v)
	}
	if v, ok := m["previous"].(float64); ok {
		e.Previous = int(v)
	}
	if v, ok := m["time"].(string); ok {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Event{}, extErrors.Wrap(err, "Cannot parse event time")
		}
		e.Time = ts
	}
	return e, nil
}
