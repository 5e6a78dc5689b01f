package stream

import (
	"bytes"
	"compress/gzip"
	"errors"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/rickgao/mexc-futures/internal/sdkerr"
)

var allEvents = []string{
	EventConnected, EventDisconnected, EventError, EventPong, EventLogin,
	EventLoginFailed, EventFilterSet, EventFilterFailed, EventSubscribed,
	EventUnsubscribed, EventMessage, EventTickers, EventTicker, EventDeal,
	EventDepth, EventKline, EventFundingRate, EventIndexPrice, EventFairPrice,
	EventOrderUpdate, EventOrderDeal, EventPositionUpdate, EventAssetUpdate,
	EventStopOrder, EventStopPlanOrder, EventLiquidateRisk, EventADLLevel,
	EventRiskLimit, EventPlanOrder,
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name        string
		frame       string
		wantEvent   string
		wantChannel string
		wantData    string
	}{
		{
			name:        "ticker push",
			frame:       `{"channel":"push.ticker","data":{"lastPrice":100},"symbol":"BTC_USDT"}`,
			wantEvent:   EventTicker,
			wantChannel: "push.ticker",
			wantData:    `{"lastPrice":100}`,
		},
		{
			name:        "unknown channel",
			frame:       `{"channel":"push.unknown","data":{"x":1}}`,
			wantEvent:   EventMessage,
			wantChannel: "push.unknown",
			wantData:    `{"channel":"push.unknown","data":{"x":1}}`,
		},
		{
			name:        "pong",
			frame:       `{"channel":"pong","data":1700000000000}`,
			wantEvent:   EventPong,
			wantChannel: "pong",
			wantData:    `1700000000000`,
		},
		{
			name:        "subscribe ack",
			frame:       `{"channel":"rs.sub.ticker","data":"success"}`,
			wantEvent:   EventSubscribed,
			wantChannel: "ticker",
			wantData:    `"success"`,
		},
		{
			name:        "unsubscribe ack",
			frame:       `{"channel":"rs.unsub.depth.full","data":"success"}`,
			wantEvent:   EventUnsubscribed,
			wantChannel: "depth.full",
			wantData:    `"success"`,
		},
		{
			name:        "filter ok",
			frame:       `{"channel":"rs.personal.filter","data":{"code":0}}`,
			wantEvent:   EventFilterSet,
			wantChannel: "rs.personal.filter",
			wantData:    `{"code":0}`,
		},
		{
			name:        "filter failed",
			frame:       `{"channel":"rs.personal.filter","data":"invalid filter"}`,
			wantEvent:   EventFilterFailed,
			wantChannel: "rs.personal.filter",
			wantData:    `"invalid filter"`,
		},
		{
			name:        "full depth",
			frame:       `{"channel":"push.depth.full","data":{"asks":[],"bids":[]}}`,
			wantEvent:   EventDepth,
			wantChannel: "push.depth.full",
			wantData:    `{"asks":[],"bids":[]}`,
		},
		{
			name:        "private order",
			frame:       `{"channel":"push.personal.order","data":{"orderId":"1"}}`,
			wantEvent:   EventOrderUpdate,
			wantChannel: "push.personal.order",
			wantData:    `{"orderId":"1"}`,
		},
		{
			name:        "adl level",
			frame:       `{"channel":"push.personal.adl.level","data":{"adlLevel":3}}`,
			wantEvent:   EventADLLevel,
			wantChannel: "push.personal.adl.level",
			wantData:    `{"adlLevel":3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(DefaultConfig(), nil)
			rec := recordEvents(client, allEvents...)

			client.handleFrame(websocket.TextMessage, []byte(tt.frame))

			if len(rec.events) != 1 {
				t.Fatalf("emitted %d events, want 1", len(rec.events))
			}
			ev := rec.events[0]
			if ev.Name != tt.wantEvent {
				t.Errorf("Name = %q, want %q", ev.Name, tt.wantEvent)
			}
			if ev.Channel != tt.wantChannel {
				t.Errorf("Channel = %q, want %q", ev.Channel, tt.wantChannel)
			}
			if string(ev.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", ev.Data, tt.wantData)
			}
			if string(ev.Raw) != tt.frame {
				t.Errorf("Raw = %s, want %s", ev.Raw, tt.frame)
			}
		})
	}
}

func TestDispatch_ServerError(t *testing.T) {
	client := NewClient(DefaultConfig(), nil)
	rec := recordEvents(client, allEvents...)

	client.handleFrame(websocket.TextMessage, []byte(`{"channel":"rs.error","data":"contract not exists"}`))

	if len(rec.events) != 1 || rec.events[0].Name != EventError {
		t.Fatalf("events = %+v, want one error event", rec.events)
	}

	var se *ServerError
	if !errors.As(rec.events[0].Err, &se) {
		t.Fatalf("Err = %v, want *ServerError", rec.events[0].Err)
	}
	if se.Error() != `server error: "contract not exists"` {
		t.Errorf("Error() = %q", se.Error())
	}
}

func TestDispatch_LoginUpdatesState(t *testing.T) {
	client := NewClient(DefaultConfig(), nil)
	rec := recordEvents(client, EventLogin, EventLoginFailed)

	client.handleFrame(websocket.TextMessage, []byte(`{"channel":"rs.login","data":"success"}`))
	if !client.IsLoggedIn() {
		t.Error("expected logged in after success ack")
	}

	client.handleFrame(websocket.TextMessage, []byte(`{"channel":"rs.login","data":{"code":1}}`))
	if client.IsLoggedIn() {
		t.Error("expected logged out after failed ack")
	}

	if rec.count(EventLogin) != 1 || rec.count(EventLoginFailed) != 1 {
		t.Errorf("login=%d login_failed=%d, want 1 each", rec.count(EventLogin), rec.count(EventLoginFailed))
	}
}

func TestDispatch_MalformedJSON(t *testing.T) {
	client := NewClient(DefaultConfig(), nil)
	rec := recordEvents(client, allEvents...)

	client.handleFrame(websocket.TextMessage, []byte(`{"channel":`))
	client.handleFrame(websocket.TextMessage, []byte(`not json`))

	if len(rec.events) != 0 {
		t.Errorf("emitted %d events for malformed frames, want 0", len(rec.events))
	}

	// The loop keeps working afterwards.
	client.handleFrame(websocket.TextMessage, []byte(`{"channel":"push.deal","data":[]}`))
	if rec.count(EventDeal) != 1 {
		t.Error("expected deal event after malformed frames")
	}
}

func TestDispatch_GzipFrames(t *testing.T) {
	client := NewClient(DefaultConfig(), nil)
	rec := recordEvents(client, allEvents...)

	frame := `{"channel":"push.tickers","data":[{"symbol":"BTC_USDT"}]}`
	client.handleFrame(websocket.BinaryMessage, gzipBytes(t, frame))

	if rec.count(EventTickers) != 1 {
		t.Fatalf("tickers events = %d, want 1", rec.count(EventTickers))
	}
	if string(rec.events[0].Data) != `[{"symbol":"BTC_USDT"}]` {
		t.Errorf("Data = %s", rec.events[0].Data)
	}

	client.handleFrame(websocket.BinaryMessage, []byte("not gzip"))

	if rec.count(EventError) != 1 {
		t.Fatalf("error events = %d, want 1", rec.count(EventError))
	}
	last := rec.events[len(rec.events)-1]
	if !errors.Is(last.Err, sdkerr.ErrProtocol) {
		t.Errorf("Err = %v, want ErrProtocol", last.Err)
	}
}

func TestIsSuccess(t *testing.T) {
	tests := []struct {
		data string
		want bool
	}{
		{`"success"`, true},
		{`{"code":0}`, true},
		{`{"code":0,"msg":"ok"}`, true},
		{`{"code":401}`, false},
		{`"failed"`, false},
		{`{}`, false},
		{``, false},
		{`null`, false},
	}

	for _, tt := range tests {
		if got := isSuccess([]byte(tt.data)); got != tt.want {
			t.Errorf("isSuccess(%s) = %v, want %v", tt.data, got, tt.want)
		}
	}
}

func TestEventForChannel(t *testing.T) {
	if name, ok := EventForChannel("push.funding.rate"); !ok || name != EventFundingRate {
		t.Errorf("EventForChannel(push.funding.rate) = %q, %v", name, ok)
	}
	if _, ok := EventForChannel("push.unknown"); ok {
		t.Error("expected unknown channel to be unmapped")
	}
}
