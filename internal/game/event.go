package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeShoot
	EventTypeHit
	EventTypeKill
	EventTypePlayerDamaged
	EventTypeShieldAbsorb
	EventTypePickup
	EventTypeExplosionLarge
	EventTypeExplosionSmall
	EventTypeBossSpawn
	EventTypeWave
	EventTypeFuelLow
	EventTypeRunStart
	EventTypeGameOver
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure. Consumers must not block on it.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Assigned by the EventLog
	TickNum   uint64          `json:"tickNum"`
	RunID     string          `json:"runId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeShoot:
		return "shoot"
	case EventTypeHit:
		return "hit"
	case EventTypeKill:
		return "kill"
	case EventTypePlayerDamaged:
		return "playerDamaged"
	case EventTypeShieldAbsorb:
		return "shieldAbsorb"
	case EventTypePickup:
		return "pickup"
	case EventTypeExplosionLarge:
		return "explosionLarge"
	case EventTypeExplosionSmall:
		return "explosionSmall"
	case EventTypeBossSpawn:
		return "bossSpawn"
	case EventTypeWave:
		return "wave"
	case EventTypeFuelLow:
		return "fuelLow"
	case EventTypeRunStart:
		return "runStart"
	case EventTypeGameOver:
		return "gameOver"
	default:
		return "unknown"
	}
}

// MarshalText lets the type travel as its name in JSON and msgpack.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses an event name; unknown names map to EventTypeUnknown.
func (t *EventType) UnmarshalText(text []byte) error {
	name := string(text)
	for c := EventTypeShoot; c <= EventTypeGameOver; c++ {
		if c.String() == name {
			*t = c
			return nil
		}
	}
	*t = EventTypeUnknown
	return nil
}

// Typed payloads for different event types

// ShootPayload is emitted for every volley the player fires.
type ShootPayload struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Bullets int     `json:"bullets"`
}

// HitPayload is a non-lethal hit on an enemy or obstacle.
type HitPayload struct {
	Target string  `json:"target"`
	HP     int     `json:"hp"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// KillPayload is a destroyed enemy or obstacle.
type KillPayload struct {
	Target     string  `json:"target"`
	Reward     int     `json:"reward"`
	Multiplier int     `json:"multiplier"`
	Combo      int     `json:"combo"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// DamagePayload describes a hit on the player.
type DamagePayload struct {
	Cause string `json:"cause"`
	HP    int    `json:"hp"`
}

// PickupPayload describes a consumed pickup.
type PickupPayload struct {
	Kind string  `json:"kind"`
	Fuel float64 `json:"fuel"`
}

// ExplosionPayload marks where debris was spawned.
type ExplosionPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WavePayload announces a new wave.
type WavePayload struct {
	Wave int `json:"wave"`
}

// FuelLowPayload is the periodic fuel alarm.
type FuelLowPayload struct {
	Fuel float64 `json:"fuel"`
}

// RunPayload describes run start and game over.
type RunPayload struct {
	Seed    int64   `json:"seed"`
	Score   int     `json:"score"`
	Elapsed float64 `json:"elapsed"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, runID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		RunID:     runID,
		Payload:   EncodePayload(payload),
	}
}

// EventSink receives simulation events synchronously. Implementations must
// return quickly and never call back into the session.
type EventSink func(Event)
