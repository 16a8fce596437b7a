package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-campus-sos/internal/broadcast"
	"github.com/mr1hm/go-campus-sos/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dialTestHub(t *testing.T, b *broadcast.Broadcaster) (*websocket.Conn, func()) {
	t.Helper()

	hub := NewHub(b)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.SubscriberCount() != 1 {
		conn.Close()
		srv.Close()
		t.Fatal("observer never subscribed")
	}

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHub_DeliversEventFrames(t *testing.T) {
	b := broadcast.NewBroadcaster()
	defer b.Close()

	conn, cleanup := dialTestHub(t, b)
	defer cleanup()

	b.Notify(models.CreatedEvent(&models.Alert{
		ID:       "a1",
		Location: models.Location{Lat: 1, Lng: 2},
		Category: models.CategoryEmergency,
		Status:   models.StatusActive,
	}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	// Wire shape: "event" discriminator, record under "data"
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("frame is not a JSON object: %v", err)
	}
	if string(frame["event"]) != `"created"` {
		t.Errorf("expected event \"created\", got %s", frame["event"])
	}
	var alert models.Alert
	if err := json.Unmarshal(frame["data"], &alert); err != nil {
		t.Fatalf("data is not a record: %v", err)
	}
	if alert.ID != "a1" || alert.Status != models.StatusActive {
		t.Errorf("unexpected record: %+v", alert)
	}
}

func TestHub_DeletedFrameCarriesBareID(t *testing.T) {
	b := broadcast.NewBroadcaster()
	defer b.Close()

	conn, cleanup := dialTestHub(t, b)
	defer cleanup()

	b.Notify(models.DeletedEvent("gone"))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev models.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ev.Kind != models.EventDeleted || ev.ID != "gone" || ev.Alert != nil {
		t.Errorf("unexpected frame: %+v", ev)
	}
}

func TestHub_BroadcasterCloseDisconnectsObserver(t *testing.T) {
	b := broadcast.NewBroadcaster()

	conn, cleanup := dialTestHub(t, b)
	defer cleanup()

	b.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to close after broadcaster shutdown")
	}
}

func TestHub_ClientDisconnectUnsubscribes(t *testing.T) {
	b := broadcast.NewBroadcaster()
	defer b.Close()

	conn, cleanup := dialTestHub(t, b)
	defer cleanup()

	conn.Close()

	deadline := time.Now().Add(time.Second)
	for b.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected observer to unsubscribe on disconnect, got %d", b.SubscriberCount())
	}
}
