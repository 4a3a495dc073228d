package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := CoachChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventCheckinDelivered, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventCheckinRunFinished, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventCheckinDelivered {
		t.Fatalf("first event: want=%s got=%s", SSEEventCheckinDelivered, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventCheckinRunFinished {
		t.Fatalf("second event: want=%s got=%s", SSEEventCheckinRunFinished, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", n)
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventCheckinDelivered, Data: map[string]any{"seq": 3}})
	got := recvMessage(t, clientB.Outbound, time.Second)
	if got.Event != SSEEventCheckinDelivered {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventCheckinDelivered, got.Event)
	}
}

func TestSSEHubOnlyDeliversToSubscribedChannel(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	coach := hub.NewSSEClient(uuid.New())
	other := hub.NewSSEClient(uuid.New())
	hub.AddChannel(coach, CoachChannel(uuid.New()))
	hub.AddChannel(other, AdminChannel)

	hub.Broadcast(SSEMessage{Channel: AdminChannel, Event: SSEEventCheckinRunFinished})

	recvMessage(t, other.Outbound, time.Second)
	select {
	case m := <-coach.Outbound:
		t.Fatalf("coach received message for another channel: %+v", m)
	default:
	}
}

func TestSSEHubBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, AdminChannel)

	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: AdminChannel, Event: SSEEventCheckinDelivered, Data: i})
	}
	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Fatalf("buffered: want=%d got=%d", cap(client.Outbound), got)
	}
}

func TestSSEHubServeHTTPStreamsEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, AdminChannel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r, client)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: want=text/event-stream got=%s", ct)
	}

	hub.Broadcast(SSEMessage{Channel: AdminChannel, Event: SSEEventCheckinDelivered, Data: map[string]any{"week_start": "2026-10-19"}})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(line) != "event: "+string(SSEEventCheckinDelivered) {
		t.Fatalf("event line: got=%q", line)
	}
	line, _ = reader.ReadString('\n')
	if !strings.HasPrefix(line, "data: ") || !strings.Contains(line, "2026-10-19") {
		t.Fatalf("data line: got=%q", line)
	}
}
