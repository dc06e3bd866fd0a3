package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/fitpoint/fitpoint/pkg/types"
	"github.com/fitpoint/fitpoint/server/internal/session"
	wsHub "github.com/fitpoint/fitpoint/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func fitRows() []types.RawRow {
	p := []float64{0, 100, 250, 350, 400}
	ts := []string{"10/27/24 8:00 AM", "10/27/24 8:01 AM", "10/27/24 8:02 AM", "10/27/24 8:03 AM", "10/27/24 8:04 AM"}
	rows := make([]types.RawRow, len(p))
	for i := range p {
		rows[i] = types.RawRow{Time: ts[i], Pressure: types.Float(p[i])}
	}
	return rows
}

// startHub starts a test HTTP server routing /ws/sessions/{id} to the hub.
// The hub observes st and its Run loop is started with a cancellable context.
// Returns the ws:// base URL, the hub, and a cancel function.
func startHub(t *testing.T, st *session.Store, interval time.Duration) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, interval)
	st.Subscribe(hub.Observe)
	ctx, cancelFn := context.WithCancel(context.Background())

	r := mux.NewRouter()
	r.Handle("/ws/sessions/{id}", hub)
	srv := httptest.NewServer(r)
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/"
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to the session and returns the connection.
func dial(t *testing.T, wsURL, id string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+id, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL+id, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one message from conn with a short deadline and decodes it.
func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func data(t *testing.T, m map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data: missing or wrong type in %v", m)
	}
	return d
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateAnalysis(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	st.ReplaceRows(id, fitRows())
	wsURL, _, _ := startHub(t, st, time.Hour)

	m := readMessage(t, dial(t, wsURL, id))
	if m["event"] != wsHub.EventAnalysis {
		t.Errorf("event: got %v, want analysis", m["event"])
	}
	d := data(t, m)
	if d["session_id"] != id {
		t.Errorf("session_id: got %v, want %s", d["session_id"], id)
	}
	if d["fit_pressure"] != 250.0 {
		t.Errorf("fit_pressure: got %v, want 250", d["fit_pressure"])
	}
}

func TestHub_UnknownSession_Returns404(t *testing.T) {
	wsURL, _, _ := startHub(t, session.New(time.Hour), testInterval)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"missing", nil)
	if err == nil {
		t.Fatal("dial unknown session: expected error")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %v, want 404", resp)
	}
}

func TestHub_PushesOnEdit(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, _, _ := startHub(t, st, time.Hour) // no ticks during the test

	conn := dial(t, wsURL, id)
	first := data(t, readMessage(t, conn))
	if first["status"] != "insufficient" {
		t.Errorf("initial status: got %v, want insufficient", first["status"])
	}

	time.Sleep(10 * time.Millisecond) // let the hub register the client
	st.ReplaceRows(id, fitRows())

	next := data(t, readMessage(t, conn))
	if next["status"] != "ok" {
		t.Errorf("status after edit: got %v, want ok", next["status"])
	}
	if next["version"] != 1.0 {
		t.Errorf("version after edit: got %v, want 1", next["version"])
	}
}

func TestHub_EditDuringConnectIsNotLost(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, hub, _ := startHub(t, st, time.Hour) // no ticks during the test

	// The edit lands after the existence check and before registration.
	wsHub.SetUpgradedHook(hub, func(sid string) {
		st.ReplaceRows(sid, fitRows())
	})

	d := data(t, readMessage(t, dial(t, wsURL, id)))
	if d["version"] != 1.0 {
		t.Errorf("first version: got %v, want 1", d["version"])
	}
	if d["status"] != "ok" {
		t.Errorf("first status: got %v, want ok", d["status"])
	}
}

func TestHub_DeleteDuringConnectSendsClosed(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, hub, _ := startHub(t, st, time.Hour)

	wsHub.SetUpgradedHook(hub, func(sid string) { st.Delete(sid) })

	if m := readMessage(t, dial(t, wsURL, id)); m["event"] != wsHub.EventClosed {
		t.Errorf("event: got %v, want closed", m["event"])
	}
	time.Sleep(20 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count: got %d, want 0", n)
	}
}

func TestHub_OnlySubscribedSessionPushed(t *testing.T) {
	st := session.New(time.Hour)
	a := st.Create("a").ID
	b := st.Create("b").ID
	wsURL, _, _ := startHub(t, st, time.Hour)

	conn := dial(t, wsURL, a)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	st.ReplaceRows(b, fitRows())
	st.SetWell(a, types.WellInputs{TVD: "1000"})

	d := data(t, readMessage(t, conn))
	if d["session_id"] != a {
		t.Errorf("pushed session: got %v, want %s", d["session_id"], a)
	}
}

func TestHub_ReceivesRefreshOnTick(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, _, _ := startHub(t, st, testInterval)

	conn := dial(t, wsURL, id)
	readMessage(t, conn)
	if m := readMessage(t, conn); m["event"] != wsHub.EventAnalysis {
		t.Errorf("tick event: got %v, want analysis", m["event"])
	}
}

func TestHub_DeleteClosesClients(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, hub, _ := startHub(t, st, time.Hour)

	conn := dial(t, wsURL, id)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	st.Delete(id)

	if m := readMessage(t, conn); m["event"] != wsHub.EventClosed {
		t.Errorf("event: got %v, want closed", m["event"])
	}
	time.Sleep(20 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after delete: got %d, want 0", n)
	}
}

func TestHub_CountClients(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, hub, _ := startHub(t, st, time.Hour)

	var last atomic.Int64
	hub.OnCount = func(n int) { last.Store(int64(n)) }

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL, id)
		readMessage(t, conns[i])
	}
	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}

	conns[0].Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close
	if n := hub.Count(); n != 2 {
		t.Errorf("Count after disconnect: got %d, want 2", n)
	}
	if n := last.Load(); n != 2 {
		t.Errorf("OnCount: got %d, want 2", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, hub, cancel := startHub(t, st, testInterval)

	conn := dial(t, wsURL, id)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	st := session.New(time.Hour)
	id := st.Create("").ID
	wsURL, _, _ := startHub(t, st, testInterval)

	// Plain HTTP GET without WebSocket upgrade headers.
	resp, err := http.Get("http" + strings.TrimPrefix(wsURL, "ws") + id)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
