package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxnight/tally/internal/adapters/broadcast"
	"github.com/rxnight/tally/internal/adapters/repository"
	"github.com/rxnight/tally/internal/adapters/ws"
	service "github.com/rxnight/tally/internal/app"
	"github.com/rxnight/tally/internal/domain/model"
	"github.com/rxnight/tally/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// feedFixture wires a service, a websocket server, and one connected
// display.
type feedFixture struct {
	svc        *service.Service
	event      model.Event
	contestant model.Contestant
	server     *httptest.Server
	conn       *websocket.Conn
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	ctx := context.Background()

	svc := service.New(service.WithStore(repository.NewMemoryStore()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("service start failed: %v", err)
	}
	t.Cleanup(svc.Stop)

	ev, err := svc.CreateEvent(ctx, model.Event{Name: "Retro Dance Contest", Type: model.EventTypeDance})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	c, err := svc.CreateContestant(ctx, model.Contestant{EventID: ev.ID, Number: 1, Name: "The Originals"})
	if err != nil {
		t.Fatalf("create contestant failed: %v", err)
	}

	server := httptest.NewServer(ws.NewHandler(svc))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &feedFixture{svc: svc, event: ev, contestant: c, server: server, conn: conn}
}

func (f *feedFixture) send(t *testing.T, action, eventID string) {
	t.Helper()
	frame := map[string]string{"action": action, "eventId": eventID}
	if err := f.conn.WriteJSON(frame); err != nil {
		t.Fatalf("write %s failed: %v", action, err)
	}
}

func (f *feedFixture) readFrame(t *testing.T) map[string]json.RawMessage {
	t.Helper()
	_ = f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]json.RawMessage
	if err := f.conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return frame
}

// waitJoined blocks until the server has registered the subscription, so
// a following mutation is guaranteed to be delivered.
func (f *feedFixture) waitJoined(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.svc.GetStats()["subscriberCount"] == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("subscription was not registered in time")
}

func TestFeed_JoinAndReceive(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	f.send(t, "join-event", f.event.ID)
	f.waitJoined(t, 1)

	if _, _, err := f.svc.SubmitScore(ctx, f.contestant.ID, 1, 91.5); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	frame := f.readFrame(t)
	var kind broadcast.Kind
	if err := json.Unmarshal(frame["kind"], &kind); err != nil {
		t.Fatalf("frame has no kind: %v", err)
	}
	if kind != broadcast.KindScoreUpdated {
		t.Errorf("expected %s, got %s", broadcast.KindScoreUpdated, kind)
	}

	var rankings []model.RankingRow
	if err := json.Unmarshal(frame["rankings"], &rankings); err != nil {
		t.Fatalf("frame has no rankings: %v", err)
	}
	if len(rankings) != 1 {
		t.Errorf("expected 1 ranking row, got %d", len(rankings))
	}
}

func TestFeed_LeaveStopsDelivery(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	f.send(t, "join-event", f.event.ID)
	f.waitJoined(t, 1)
	f.send(t, "leave-event", f.event.ID)
	f.waitJoined(t, 0)

	if _, _, err := f.svc.SubmitScore(ctx, f.contestant.ID, 1, 80); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	_ = f.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var frame map[string]json.RawMessage
	if err := f.conn.ReadJSON(&frame); err == nil {
		t.Errorf("expected no frame after leave, got %v", frame)
	}
}

func TestFeed_JoinUnknownEvent(t *testing.T) {
	f := newFeedFixture(t)

	f.send(t, "join-event", "no-such-event")

	frame := f.readFrame(t)
	var msg string
	if err := json.Unmarshal(frame["error"], &msg); err != nil {
		t.Fatalf("expected an error frame, got %v", frame)
	}
	if !strings.Contains(msg, "unknown event") {
		t.Errorf("unexpected error message: %s", msg)
	}
}

func TestFeed_MalformedCommand(t *testing.T) {
	f := newFeedFixture(t)

	if err := f.conn.WriteMessage(websocket.TextMessage, []byte("not-json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	frame := f.readFrame(t)
	if _, ok := frame["error"]; !ok {
		t.Errorf("expected an error frame, got %v", frame)
	}
}

func TestFeed_DisconnectUnsubscribes(t *testing.T) {
	f := newFeedFixture(t)

	f.send(t, "join-event", f.event.ID)
	f.waitJoined(t, 1)

	_ = f.conn.Close()
	f.waitJoined(t, 0)
}
