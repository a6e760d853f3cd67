// Package events publishes session progress over a watermill pub/sub so
// external displays can follow a deliberation without touching its state.
package events

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StageTopic is the watermill topic carrying StageEvents.
const StageTopic = "gekko.session.stage"

// StageStatus describes what just happened to a stage.
type StageStatus string

const (
	StageStarted   StageStatus = "started"
	StageCompleted StageStatus = "completed"
	// StagePartial means the stage finished but with degraded output, e.g.
	// an analyst that failed terminally while the others produced reports.
	StagePartial   StageStatus = "partial"
	StageFailed    StageStatus = "failed"
	StageCancelled StageStatus = "cancelled"
)

// StageEvent is one progress notification for one session.
type StageEvent struct {
	SessionID string      `json:"session_id"`
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	At        time.Time   `json:"at"`
}

func (e StageEvent) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("session_id", e.SessionID)
	ev.Str("stage", e.Stage)
	ev.Str("status", string(e.Status))
}

// PublishStage marshals the event and publishes it on StageTopic.
func PublishStage(pub message.Publisher, ev StageEvent) error {
	if pub == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return pub.Publish(StageTopic, message.NewMessage(uuid.NewString(), b))
}

// ParseStageEvent decodes a message published with PublishStage.
func ParseStageEvent(msg *message.Message) (*StageEvent, error) {
	var ev StageEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
