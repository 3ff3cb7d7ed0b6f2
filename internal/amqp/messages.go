package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conti/internal/bot"
	"conti/internal/core"
	"conti/internal/ledger"
)

// ChatEventMessage carries one inbound chat event from the transport.
type ChatEventMessage struct {
	ID        string    `json:"id"`
	Event     bot.Event `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatEventMessage wraps ev with a fresh message id.
func NewChatEventMessage(ev bot.Event) *ChatEventMessage {
	return &ChatEventMessage{
		ID:        uuid.NewString(),
		Event:     ev,
		Timestamp: time.Now(),
	}
}

func ChatEventMessageFromJSON(data []byte) (*ChatEventMessage, error) {
	var msg ChatEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Event.Validate(); err != nil {
		return nil, fmt.Errorf("chat event %s: %w", msg.ID, err)
	}
	return &msg, nil
}

// ReplyMessage is the answer to a chat event, correlated by its id.
type ReplyMessage struct {
	ID            string       `json:"id"`
	CorrelationID string       `json:"correlation_id"`
	UserID        int64        `json:"user_id"`
	Response      bot.Response `json:"response"`
	Timestamp     time.Time    `json:"timestamp"`
}

func NewReplyMessage(event *ChatEventMessage, resp bot.Response) *ReplyMessage {
	return &ReplyMessage{
		ID:            uuid.NewString(),
		CorrelationID: event.ID,
		UserID:        event.Event.UserID,
		Response:      resp,
		Timestamp:     time.Now(),
	}
}

// RecordEventMessage announces a committed ledger mutation. The consumer
// re-reads the record by id; the payload is the state at publish time.
type RecordEventMessage struct {
	ID          string    `json:"id"`
	Op          ledger.Op `json:"op"`
	RecordID    int64     `json:"record_id"`
	UserID      int64     `json:"user_id"`
	Kind        core.Kind `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	OccurredOn  string    `json:"occurred_on"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRecordEventMessage(op ledger.Op, r core.Record) *RecordEventMessage {
	return &RecordEventMessage{
		ID:          uuid.NewString(),
		Op:          op,
		RecordID:    r.ID,
		UserID:      r.UserID,
		Kind:        r.Kind,
		AmountCents: r.Amount.Cents,
		Category:    r.Category,
		OccurredOn:  r.OccurredOn.String(),
		Timestamp:   time.Now(),
	}
}

// Record rebuilds the record carried by the event.
func (m *RecordEventMessage) Record() (core.Record, error) {
	d, err := core.ParseDate(m.OccurredOn)
	if err != nil {
		return core.Record{}, err
	}
	return core.Record{
		ID:         m.RecordID,
		UserID:     m.UserID,
		Kind:       m.Kind,
		Amount:     core.Money{Cents: m.AmountCents},
		Category:   m.Category,
		OccurredOn: d,
	}, nil
}

func RecordEventMessageFromJSON(data []byte) (*RecordEventMessage, error) {
	var msg RecordEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case ledger.OpCreated, ledger.OpUpdated, ledger.OpDeleted:
	default:
		return nil, fmt.Errorf("record event %s: unknown op %q", msg.ID, msg.Op)
	}
	if msg.RecordID <= 0 {
		return nil, fmt.Errorf("record event %s: missing record id", msg.ID)
	}
	return &msg, nil
}

// ToJSON converts any message to JSON bytes
func ToJSON(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
