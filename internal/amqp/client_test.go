package amqp

import (
	"context"
	"errors"
	"testing"

	"ledgerlens/internal/log"
)

type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func testClient() *Client {
	return &Client{logger: log.Discard()}
}

func TestDispatch(t *testing.T) {
	valid := []byte(`{"id":"tx-1","userId":"user-1","timestamp":"2024-05-01T10:00:00Z"}`)

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantCalled  bool
		wantAck     bool
		wantRequeue bool
	}{
		{name: "success acks", body: valid, wantCalled: true, wantAck: true},
		{name: "handler failure requeues", body: valid, handlerErr: errors.New("sheets down"), wantCalled: true, wantRequeue: true},
		{name: "bad json is dropped", body: []byte(`{not json`)},
		{name: "missing ids are dropped", body: []byte(`{"id":""}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			called := false
			handler := func(_ context.Context, msg *TransactionCreatedMessage) error {
				called = true
				if msg.ID != "tx-1" || msg.UserID != "user-1" {
					t.Errorf("unexpected message %+v", msg)
				}
				return tt.handlerErr
			}

			testClient().dispatch(context.Background(), tt.body, ack, handler)

			if called != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if ack.acked != tt.wantAck {
				t.Fatalf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Fatal("expected nack")
			}
			if ack.requeued != tt.wantRequeue {
				t.Fatalf("requeued = %v, want %v", ack.requeued, tt.wantRequeue)
			}
		})
	}
}

func TestTransactionCreatedMessageJSON(t *testing.T) {
	msg := NewTransactionCreatedMessage("tx-9", "user-3")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	got, err := TransactionCreatedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "tx-9" || got.UserID != "user-3" {
		t.Fatalf("unexpected message %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("timestamp %v != %v", got.Timestamp, msg.Timestamp)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on unconnected client: %v", err)
	}
}
