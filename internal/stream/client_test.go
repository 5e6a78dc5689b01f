package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/mexc-futures/internal/auth"
	"github.com/rickgao/mexc-futures/internal/sdkerr"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// replyServer forwards every received text frame to received and answers
// methods found in replies.
func replyServer(t *testing.T, received chan<- string, replies map[string]string) *httptest.Server {
	return mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case received <- string(msg):
			default:
			}

			var m struct {
				Method string `json:"method"`
			}
			json.Unmarshal(msg, &m)
			if reply, ok := replies[m.Method]; ok {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
					return
				}
			}
		}
	})
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.APIKey = "mx0vglTestKey"
	cfg.SecretKey = "testSecret"
	cfg.PingInterval = time.Hour
	cfg.ReconnectInterval = 50 * time.Millisecond
	cfg.AutoReconnect = false
	return cfg
}

// eventRecorder collects emitted events by name.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func recordEvents(c *Client, names ...string) *eventRecorder {
	r := &eventRecorder{ch: make(chan Event, 64)}
	for _, name := range names {
		c.On(name, func(ev Event) error {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			select {
			case r.ch <- ev:
			default:
			}
			return nil
		})
	}
	return r
}

func (r *eventRecorder) wait(t *testing.T, name string, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-r.ch:
			if ev.Name == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %q event", name)
			return Event{}
		}
	}
}

func (r *eventRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func waitMessage(t *testing.T, received <-chan string, timeout time.Duration) string {
	t.Helper()
	select {
	case msg := <-received:
		return msg
	case <-time.After(timeout):
		t.Fatal("timeout waiting for client message")
		return ""
	}
}

func TestClient_ConnectDisconnect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	rec := recordEvents(client, EventConnected, EventDisconnected)

	if got := client.State(); got != StateDisconnected {
		t.Errorf("initial State = %v, want disconnected", got)
	}

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if !client.IsConnected() {
		t.Error("expected IsConnected to return true")
	}
	if got := client.State(); got != StateConnected {
		t.Errorf("State = %v, want connected", got)
	}
	if got := rec.count(EventConnected); got != 1 {
		t.Errorf("connected events = %d, want 1", got)
	}

	// Connecting again keeps the existing socket.
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}
	if got := rec.count(EventConnected); got != 1 {
		t.Errorf("connected events after second Connect = %d, want 1", got)
	}

	if err := client.Disconnect(); err != nil {
		t.Errorf("Disconnect failed: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Errorf("second Disconnect failed: %v", err)
	}

	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Disconnect")
	}
	if got := client.State(); got != StateDisconnected {
		t.Errorf("State after Disconnect = %v, want disconnected", got)
	}
	if got := rec.count(EventDisconnected); got != 0 {
		t.Errorf("disconnected events after explicit Disconnect = %d, want 0", got)
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	client := NewClient(testConfig(url), nil)

	err := client.Connect(context.Background())
	if !errors.Is(err, sdkerr.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if got := client.State(); got != StateDisconnected {
		t.Errorf("State = %v, want disconnected", got)
	}
}

func TestClient_LoginNotConnected(t *testing.T) {
	var upgrades atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		upgrades.Add(1)
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)

	err := client.Login(context.Background(), true)
	if !errors.Is(err, sdkerr.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if upgrades.Load() != 0 {
		t.Error("expected no connection to the server")
	}
}

func TestClient_LoginMessage(t *testing.T) {
	received := make(chan string, 10)
	server := replyServer(t, received, nil)
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	client.now = func() time.Time { return time.UnixMilli(1700000000000) }

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	if err := client.Login(context.Background(), false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	var msg struct {
		Method    string           `json:"method"`
		Subscribe *bool            `json:"subscribe"`
		Param     auth.LoginParams `json:"param"`
	}
	if err := json.Unmarshal([]byte(waitMessage(t, received, time.Second)), &msg); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}

	if msg.Method != "login" {
		t.Errorf("method = %q, want login", msg.Method)
	}
	if msg.Subscribe == nil || *msg.Subscribe {
		t.Errorf("subscribe = %v, want false", msg.Subscribe)
	}
	if msg.Param.APIKey != "mx0vglTestKey" {
		t.Errorf("apiKey = %q", msg.Param.APIKey)
	}
	if msg.Param.ReqTime != "1700000000000" {
		t.Errorf("reqTime = %q, want 1700000000000", msg.Param.ReqTime)
	}

	want := "2b11d49577fe4beff33175a654c49d3dffb868645045c234c15ec84506b9641a"
	if msg.Param.Signature != want {
		t.Errorf("signature = %q, want %q", msg.Param.Signature, want)
	}
	if again := auth.LoginSignature("mx0vglTestKey", "testSecret", "1700000000000"); again != want {
		t.Errorf("signature not deterministic: %q", again)
	}
}

func TestClient_LoginWithoutCredentials(t *testing.T) {
	received := make(chan string, 10)
	server := replyServer(t, received, nil)
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.APIKey, cfg.SecretKey = "", ""
	client := NewClient(cfg, nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	err := client.Login(context.Background(), true)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestClient_LoginAcknowledgement(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantEvent  string
		wantLogged bool
	}{
		{
			name:       "success literal",
			reply:      `{"channel":"rs.login","data":"success","ts":1700000000000}`,
			wantEvent:  EventLogin,
			wantLogged: true,
		},
		{
			name:       "zero code",
			reply:      `{"channel":"rs.login","data":{"code":0}}`,
			wantEvent:  EventLogin,
			wantLogged: true,
		},
		{
			name:       "non-zero code",
			reply:      `{"channel":"rs.login","data":{"code":1}}`,
			wantEvent:  EventLoginFailed,
			wantLogged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan string, 10)
			server := replyServer(t, received, map[string]string{"login": tt.reply})
			defer server.Close()

			client := NewClient(testConfig(wsURL(server)), nil)
			rec := recordEvents(client, EventLogin, EventLoginFailed)

			if err := client.Connect(context.Background()); err != nil {
				t.Fatalf("Connect failed: %v", err)
			}
			defer client.Disconnect()

			if err := client.Login(context.Background(), true); err != nil {
				t.Fatalf("Login failed: %v", err)
			}

			ev := rec.wait(t, tt.wantEvent, time.Second)
			if ev.Channel != "rs.login" {
				t.Errorf("Channel = %q, want rs.login", ev.Channel)
			}
			if client.IsLoggedIn() != tt.wantLogged {
				t.Errorf("IsLoggedIn = %v, want %v", client.IsLoggedIn(), tt.wantLogged)
			}

			wantState := StateConnected
			if tt.wantLogged {
				wantState = StateAuthenticated
			}
			if got := client.State(); got != wantState {
				t.Errorf("State = %v, want %v", got, wantState)
			}
		})
	}
}

func TestClient_SetPersonalFilter(t *testing.T) {
	received := make(chan string, 10)
	server := replyServer(t, received, map[string]string{
		"login":           `{"channel":"rs.login","data":"success"}`,
		"personal.filter": `{"channel":"rs.personal.filter","data":"success"}`,
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	rec := recordEvents(client, EventLogin, EventFilterSet)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	err := client.SetPersonalFilter(context.Background(), nil)
	if !errors.Is(err, sdkerr.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired before login, got %v", err)
	}

	if err := client.Login(context.Background(), false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	waitMessage(t, received, time.Second)
	rec.wait(t, EventLogin, time.Second)

	if err := client.SetPersonalFilter(context.Background(), nil); err != nil {
		t.Fatalf("SetPersonalFilter failed: %v", err)
	}
	if got := waitMessage(t, received, time.Second); got != `{"method":"personal.filter","param":{"filters":[]}}` {
		t.Errorf("filter message = %s", got)
	}
	rec.wait(t, EventFilterSet, time.Second)

	if err := client.SubscribeOrders(context.Background(), "BTC_USDT"); err != nil {
		t.Fatalf("SubscribeOrders failed: %v", err)
	}
	if got := waitMessage(t, received, time.Second); got != `{"method":"personal.filter","param":{"filters":[{"filter":"order","rules":["BTC_USDT"]}]}}` {
		t.Errorf("order filter message = %s", got)
	}
}

func TestClient_AbruptCloseReconnects(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if conns.Add(1) == 1 {
			// Drop the first connection without a close frame.
			conn.UnderlyingConn().Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.AutoReconnect = true
	client := NewClient(cfg, nil)
	rec := recordEvents(client, EventConnected, EventDisconnected)

	var stateOnDisconnect atomic.Bool
	client.On(EventDisconnected, func(Event) error {
		stateOnDisconnect.Store(client.IsConnected() || client.IsLoggedIn())
		return nil
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	ev := rec.wait(t, EventDisconnected, 2*time.Second)
	if ev.CloseCode != websocket.CloseAbnormalClosure {
		t.Errorf("CloseCode = %d, want %d", ev.CloseCode, websocket.CloseAbnormalClosure)
	}
	if !errors.Is(ev.Err, sdkerr.ErrConnection) {
		t.Errorf("Err = %v, want ErrConnection", ev.Err)
	}
	if stateOnDisconnect.Load() {
		t.Error("expected connected and logged-in flags cleared before disconnected event")
	}

	// Initial connected plus one from the reconnect.
	deadline := time.Now().Add(2 * time.Second)
	for rec.count(EventConnected) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := rec.count(EventConnected); got != 2 {
		t.Fatalf("connected events = %d, want 2", got)
	}

	time.Sleep(3 * cfg.ReconnectInterval)

	if got := conns.Load(); got != 2 {
		t.Errorf("server connections = %d, want 2", got)
	}
	if got := rec.count(EventDisconnected); got != 1 {
		t.Errorf("disconnected events = %d, want 1", got)
	}
	if got := client.State(); got != StateConnected {
		t.Errorf("State = %v, want connected", got)
	}
}

func TestClient_DisconnectedEmittedBeforeReconnect(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if conns.Add(1) == 1 {
			conn.UnderlyingConn().Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.AutoReconnect = true
	cfg.ReconnectInterval = time.Millisecond
	client := NewClient(cfg, nil)

	var mu sync.Mutex
	var order []string
	var connectedDuringCallback atomic.Bool
	client.On(EventConnected, func(Event) error {
		mu.Lock()
		order = append(order, EventConnected)
		mu.Unlock()
		return nil
	})
	client.On(EventDisconnected, func(Event) error {
		time.Sleep(100 * time.Millisecond)
		connectedDuringCallback.Store(client.IsConnected())
		mu.Lock()
		order = append(order, EventDisconnected)
		mu.Unlock()
		return nil
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	got := strings.Join(order, ",")
	mu.Unlock()
	if got != "connected,disconnected,connected" {
		t.Errorf("event order = %s, want connected,disconnected,connected", got)
	}
	if connectedDuringCallback.Load() {
		t.Error("reconnected while disconnected callback was still running")
	}
}

func TestClient_DisconnectFromDisconnectedCallback(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.UnderlyingConn().Close()
	})
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.AutoReconnect = true
	cfg.ReconnectInterval = time.Millisecond
	client := NewClient(cfg, nil)

	returned := make(chan struct{})
	client.On(EventDisconnected, func(Event) error {
		client.Disconnect()
		close(returned)
		return nil
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect inside disconnected callback did not return")
	}
	if got := client.State(); got != StateDisconnected {
		t.Errorf("State = %v, want disconnected", got)
	}
}

func TestClient_ZeroWriteTimeout(t *testing.T) {
	received := make(chan string, 4)
	server := replyServer(t, received, nil)
	defer server.Close()

	client := NewClient(Config{
		URL:       wsURL(server),
		APIKey:    "mx0vglTestKey",
		SecretKey: "testSecret",
	}, nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	if err := client.Login(context.Background(), true); err != nil {
		t.Fatalf("Login with zero WriteTimeout failed: %v", err)
	}

	select {
	case msg := <-received:
		if !strings.Contains(msg, `"method":"login"`) {
			t.Errorf("received %s, want login", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive login")
	}
}

func TestClient_NoReconnectWhenDisabled(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	rec := recordEvents(client, EventDisconnected)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	ev := rec.wait(t, EventDisconnected, 2*time.Second)
	if ev.CloseCode != websocket.CloseGoingAway || ev.CloseReason != "bye" {
		t.Errorf("close = %d %q, want 1001 bye", ev.CloseCode, ev.CloseReason)
	}

	time.Sleep(150 * time.Millisecond)
	if got := conns.Load(); got != 1 {
		t.Errorf("server connections = %d, want 1", got)
	}
	if got := client.State(); got != StateDisconnected {
		t.Errorf("State = %v, want disconnected", got)
	}
}

func TestClient_DisconnectStopsReconnect(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		conn.UnderlyingConn().Close()
	})
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.AutoReconnect = true
	cfg.ReconnectInterval = 200 * time.Millisecond
	client := NewClient(cfg, nil)
	rec := recordEvents(client, EventDisconnected)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	rec.wait(t, EventDisconnected, 2*time.Second)
	if got := client.State(); got != StateReconnecting {
		t.Errorf("State = %v, want reconnecting", got)
	}

	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	time.Sleep(2 * cfg.ReconnectInterval)
	if got := conns.Load(); got != 1 {
		t.Errorf("server connections = %d, want 1", got)
	}
	if got := client.State(); got != StateDisconnected {
		t.Errorf("State = %v, want disconnected", got)
	}
}

func TestClient_PingLoop(t *testing.T) {
	received := make(chan string, 10)
	server := replyServer(t, received, map[string]string{
		"ping": `{"channel":"pong","data":1700000000000}`,
	})
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	client := NewClient(cfg, nil)
	rec := recordEvents(client, EventPong)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	if got := waitMessage(t, received, time.Second); got != `{"method":"ping"}` {
		t.Errorf("ping message = %s", got)
	}

	ev := rec.wait(t, EventPong, time.Second)
	if string(ev.Data) != "1700000000000" {
		t.Errorf("pong data = %s", ev.Data)
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testConfig("ws://127.0.0.1:1"), nil)

	err := client.SubscribeTicker(context.Background(), "BTC_USDT")
	if !errors.Is(err, sdkerr.ErrConnection) || !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected connection error wrapping ErrNotConnected, got %v", err)
	}
}

func TestClient_SendRateLimited(t *testing.T) {
	received := make(chan string, 10)
	server := replyServer(t, received, nil)
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.SendRate = 1
	cfg.SendBurst = 1
	client := NewClient(cfg, nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	if err := client.SubscribeTicker(context.Background(), "BTC_USDT"); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := client.SubscribeTicker(ctx, "ETH_USDT"); err == nil {
		t.Error("expected second send to be held back by the rate limiter")
	}
}
