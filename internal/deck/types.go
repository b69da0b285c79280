package deck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Transport indexes address sub-decks within one physical unit.
const (
	MinTransportIndex = 0
	MaxTransportIndex = 7
)

// MaxShuttleRate bounds the shuttle rate the device accepts, in either
// direction. 1.0 is normal playback speed.
const MaxShuttleRate = 30.0

// Action is a transport command verb.
type Action string

const (
	ActionPlay    Action = "play"
	ActionStop    Action = "stop"
	ActionRecord  Action = "record"
	ActionShuttle Action = "shuttle"
)

// CommandRequest describes one mutating transport operation. Rate is only
// meaningful for ActionShuttle.
type CommandRequest struct {
	Action Action
	Index  int
	Rate   float64
}

// Validate rejects malformed requests before any network traffic happens.
func (r CommandRequest) Validate() error {
	switch r.Action {
	case ActionPlay, ActionStop, ActionRecord:
	case ActionShuttle:
		if r.Rate < -MaxShuttleRate || r.Rate > MaxShuttleRate {
			return fmt.Errorf("%w: shuttle rate %.2f outside [%.0f, %.0f]",
				ErrValidation, r.Rate, -MaxShuttleRate, MaxShuttleRate)
		}
	case "":
		return fmt.Errorf("%w: command action required", ErrValidation)
	default:
		return fmt.Errorf("%w: unknown command action %q", ErrValidation, r.Action)
	}
	if r.Index < MinTransportIndex || r.Index > MaxTransportIndex {
		return fmt.Errorf("%w: transport index %d outside [%d, %d]",
			ErrValidation, r.Index, MinTransportIndex, MaxTransportIndex)
	}
	return nil
}

// DeviceStatus is the overall device snapshot from GET status.
type DeviceStatus struct {
	Raw    json.RawMessage
	Fields map[string]any
}

// TransportStatus is one immutable snapshot of a transport's state. A new
// poll produces a new snapshot; snapshots are never mutated in place.
type TransportStatus struct {
	Index    int
	State    string
	Timecode string
	ClipName string
	Raw      json.RawMessage
}

// Deck firmware revisions disagree on field names, so snapshots are derived
// by probing the known spellings in order.

var stateKeys = []string{"status", "state", "transport", "transportState", "transportMode", "mode", "playbackStatus"}

var timecodeKeys = []string{"position", "timecode", "time", "tc", "currentTimecode"}

var clipNameKeys = []string{"name", "clipName", "title", "filename"}

func deriveState(fields map[string]any) string {
	for _, key := range stateKeys {
		if value, ok := fields[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	if truthy(fields["isRecording"]) || truthy(fields["recording"]) {
		return "Recording"
	}
	if truthy(fields["isPlaying"]) || truthy(fields["playing"]) {
		return "Playing"
	}
	if truthy(fields["isStopped"]) || truthy(fields["stopped"]) {
		return "Stopped"
	}
	return "Unknown"
}

func deriveTimecode(fields map[string]any) string {
	for _, key := range timecodeKeys {
		switch value := fields[key].(type) {
		case string:
			if strings.TrimSpace(value) != "" {
				return value
			}
		case float64:
			seconds := int(value)
			return fmt.Sprintf("%02d:%02d:%02d:00", seconds/3600, seconds%3600/60, seconds%60)
		}
	}
	return "00:00:00:00"
}

func deriveClipName(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	for _, key := range clipNameKeys {
		if value, ok := fields[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return "unnamed"
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
	case float64:
		return v != 0
	}
	return false
}

func parseTransportStatus(index int, body []byte) (TransportStatus, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return TransportStatus{}, fmt.Errorf("%w: decode transport %d payload: %w", ErrProtocol, index, err)
	}
	return TransportStatus{
		Index:    index,
		State:    deriveState(fields),
		Timecode: deriveTimecode(fields),
		Raw:      json.RawMessage(body),
	}, nil
}
