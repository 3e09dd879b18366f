package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// StateChangedMessage announces that a named record was rewritten. It carries
// only the record name and version; consumers load the payload from storage.
type StateChangedMessage struct {
	Store     string    `json:"store"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStateChangedMessage(store string, version int64) *StateChangedMessage {
	return &StateChangedMessage{
		Store:     store,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *StateChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StateChangedMessageFromJSON decodes a message and rejects ones without a store name.
func StateChangedMessageFromJSON(data []byte) (*StateChangedMessage, error) {
	var msg StateChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Store == "" {
		return nil, fmt.Errorf("message has no store name")
	}
	return &msg, nil
}
