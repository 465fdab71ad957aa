package amqp

import (
	"encoding/json"
	"time"

	"contas/internal/core"
)

// SuggestionLearnMessage carries one successful transaction save to the
// suggestion worker. Learning is fire-and-forget: the save never waits on it.
type SuggestionLearnMessage struct {
	UserID        string             `json:"user_id"`
	Description   string             `json:"description"`
	CategoryID    string             `json:"category_id"`
	AccountID     string             `json:"account_id,omitempty"`
	CreditCardID  string             `json:"credit_card_id,omitempty"`
	PaymentMethod core.PaymentMethod `json:"payment_method,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

func NewSuggestionLearnMessage(userID, description, categoryID, accountID, creditCardID string, method core.PaymentMethod) *SuggestionLearnMessage {
	return &SuggestionLearnMessage{
		UserID:        userID,
		Description:   description,
		CategoryID:    categoryID,
		AccountID:     accountID,
		CreditCardID:  creditCardID,
		PaymentMethod: method,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SuggestionLearnMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SuggestionLearnMessageFromJSON creates a message from JSON bytes.
func SuggestionLearnMessageFromJSON(data []byte) (*SuggestionLearnMessage, error) {
	var msg SuggestionLearnMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
