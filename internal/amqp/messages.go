package amqp

import (
	"encoding/json"
	"time"
)

// Export request reasons.
const (
	ReasonMutation  = "mutation"
	ReasonManual    = "manual"
	ReasonScheduled = "scheduled"
)

// ExportRequestMessage asks the worker to rewrite the report exports.
// It carries no ledger data; the worker reads the current snapshot.
type ExportRequestMessage struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewExportRequestMessage(reason string) *ExportRequestMessage {
	return &ExportRequestMessage{
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON decodes a message body.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
