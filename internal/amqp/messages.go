package amqp

import (
	"encoding/json"
	"time"
)

// SyncCompletedMessage announces that an ingestion pass finished. Scope is
// "products" or "transactions"; consumers use it to decide which caches to
// drop.
type SyncCompletedMessage struct {
	Scope     string    `json:"scope"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncCompletedMessage(scope string, count int) *SyncCompletedMessage {
	return &SyncCompletedMessage{
		Scope:     scope,
		Count:     count,
		Timestamp: time.Now(),
	}
}

func (m *SyncCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncCompletedMessageFromJSON(data []byte) (*SyncCompletedMessage, error) {
	var msg SyncCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
