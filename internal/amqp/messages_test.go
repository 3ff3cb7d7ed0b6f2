package amqp

import (
	"testing"
	"time"

	"conti/internal/bot"
	"conti/internal/core"
	"conti/internal/ledger"
)

func TestNewRecordEventMessage(t *testing.T) {
	r := core.Record{ID: 12345, UserID: 9, Kind: core.Income, Amount: core.Money{Cents: 250}, Category: "tip", OccurredOn: core.NewDate(2024, 5, 31)}

	msg := NewRecordEventMessage(ledger.OpUpdated, r)

	if msg.ID == "" {
		t.Error("message id should be set")
	}
	if msg.RecordID != r.ID || msg.Op != ledger.OpUpdated || msg.OccurredOn != "2024-05-31" {
		t.Errorf("unexpected message %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}

	body, err := ToJSON(msg)
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := RecordEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("RecordEventMessageFromJSON() error = %v", err)
	}
	got, err := parsed.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got.ID != r.ID || got.UserID != r.UserID || got.Kind != r.Kind || got.Amount != r.Amount ||
		got.Category != r.Category || got.OccurredOn.String() != "2024-05-31" {
		t.Errorf("Record() = %+v, want %+v", got, r)
	}
}

func TestRecordEventMessage_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad json":   `{"record_id": "nope"}`,
		"unknown op": `{"id":"a","op":"renamed","record_id":1}`,
		"missing id": `{"id":"a","op":"created"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := RecordEventMessageFromJSON([]byte(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestChatEventMessage(t *testing.T) {
	msg := NewChatEventMessage(bot.Event{UserID: 3, Type: bot.EventCallback, Data: "del_4"})
	body, err := ToJSON(msg)
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ChatEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("ChatEventMessageFromJSON() error = %v", err)
	}
	if parsed.ID != msg.ID || parsed.Event != msg.Event {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}

	reply := NewReplyMessage(parsed, bot.Response{Text: "ok"})
	if reply.CorrelationID != msg.ID || reply.UserID != 3 || reply.ID == msg.ID {
		t.Errorf("unexpected reply %+v", reply)
	}

	if _, err := ChatEventMessageFromJSON([]byte(`{"id":"x","event":{"type":"text"}}`)); err == nil {
		t.Error("event without user should be rejected")
	}
}
