package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RoutingTransactionCreated is the event name carried in the message type
// header of every transaction.created publishing.
const RoutingTransactionCreated = "transaction.created"

// TransactionCreatedMessage announces a stored transaction. It only carries
// identifiers; consumers read the row back from the Record Store.
type TransactionCreatedMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionCreatedMessage stamps a message with the current time.
func NewTransactionCreatedMessage(id, userID string) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes and checks a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.UserID == "" {
		return nil, errors.New("transaction.created message missing id or userId")
	}
	return &msg, nil
}
