package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"stockbotv1/internal/model"
)

// addTestClient registers a client with a readable send channel, bypassing
// the WebSocket upgrade.
func addTestClient(h *Hub, buf int) *Client {
	c := &Client{send: make(chan []byte, buf), hub: h}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

type envelope struct {
	Type   string       `json:"type"`
	Signal model.Signal `json:"signal"`
	TS     string       `json:"ts"`
	Seq    int64        `json:"seq"`
}

func testSignal() model.Signal {
	return model.Signal{
		Symbol: "AAPL",
		TS:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Type:   model.SignalBuy,
		Reason: model.ReasonRSIOversold,
		Values: map[string]float64{"rsi": 25},
	}
}

func TestBroadcast_EnvelopeFormat(t *testing.T) {
	h := NewHub(nil)
	c := addTestClient(h, 4)

	h.Broadcast(testSignal())

	var raw []byte
	select {
	case raw = <-c.send:
	default:
		t.Fatal("client received nothing")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, raw)
	}
	if env.Type != "signal" {
		t.Errorf("type = %q, want signal", env.Type)
	}
	if env.Signal.Symbol != "AAPL" || env.Signal.Reason != model.ReasonRSIOversold {
		t.Errorf("signal payload = %+v", env.Signal)
	}
	if env.Seq != 1 {
		t.Errorf("seq = %d, want 1", env.Seq)
	}
	if _, err := time.Parse(time.RFC3339Nano, env.TS); err != nil {
		t.Errorf("ts is not RFC3339Nano: %v", err)
	}
}

func TestBroadcast_SeqMonotonic(t *testing.T) {
	h := NewHub(nil)
	c := addTestClient(h, 16)

	for i := 0; i < 3; i++ {
		h.Broadcast(testSignal())
	}
	for want := int64(1); want <= 3; want++ {
		var env envelope
		if err := json.Unmarshal(<-c.send, &env); err != nil {
			t.Fatal(err)
		}
		if env.Seq != want {
			t.Errorf("seq = %d, want %d", env.Seq, want)
		}
	}
}

func TestBroadcast_SkipsSlowClient(t *testing.T) {
	h := NewHub(nil)
	slow := addTestClient(h, 1)
	fast := addTestClient(h, 4)

	// Fill the slow client's buffer.
	h.Broadcast(testSignal())
	// Second broadcast must not block on the full slow channel.
	done := make(chan struct{})
	go func() {
		h.Broadcast(testSignal())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on slow client")
	}

	if len(fast.send) != 2 {
		t.Errorf("fast client queued = %d, want 2", len(fast.send))
	}
	if len(slow.send) != 1 {
		t.Errorf("slow client queued = %d, want 1 (overflow dropped)", len(slow.send))
	}
}

func TestRemoveClient(t *testing.T) {
	h := NewHub(nil)
	c := addTestClient(h, 1)

	h.removeClient(c)
	if n := h.ClientCount(); n != 0 {
		t.Errorf("ClientCount = %d, want 0", n)
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel must be closed on removal")
	}
}
