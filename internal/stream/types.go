package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrNotConnected      = errors.New("not connected")
	ErrInvalidDepthLimit = errors.New("depth limit must be 5, 10 or 20")
	ErrInvalidInterval   = errors.New("invalid kline interval")
	ErrNoCredentials     = errors.New("api key and secret key are not configured")
)

// DefaultURL is the futures WebSocket endpoint.
const DefaultURL = "wss://contract.mexc.com/edge"

// Event names emitted by the client.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventError        = "error"
	EventPong         = "pong"
	EventLogin        = "login"
	EventLoginFailed  = "login_failed"
	EventFilterSet    = "filter_set"
	EventFilterFailed = "filter_failed"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventMessage      = "message"

	EventTickers        = "tickers"
	EventTicker         = "ticker"
	EventDeal           = "deal"
	EventDepth          = "depth"
	EventKline          = "kline"
	EventFundingRate    = "funding_rate"
	EventIndexPrice     = "index_price"
	EventFairPrice      = "fair_price"
	EventOrderUpdate    = "order_update"
	EventOrderDeal      = "order_deal"
	EventPositionUpdate = "position_update"
	EventAssetUpdate    = "asset_update"
	EventStopOrder      = "stop_order"
	EventStopPlanOrder  = "stop_plan_order"
	EventLiquidateRisk  = "liquidate_risk"
	EventADLLevel       = "adl_level"
	EventRiskLimit      = "risk_limit"
	EventPlanOrder      = "plan_order"
)

// Response channels.
const (
	channelPong        = "pong"
	channelLogin       = "rs.login"
	channelFilter      = "rs.personal.filter"
	channelError       = "rs.error"
	channelSubPrefix   = "rs.sub."
	channelUnsubPrefix = "rs.unsub."
)

// channelEvents maps push channels to the event emitted for them.
var channelEvents = map[string]string{
	"push.tickers":                 EventTickers,
	"push.ticker":                  EventTicker,
	"push.deal":                    EventDeal,
	"push.depth":                   EventDepth,
	"push.depth.full":              EventDepth,
	"push.kline":                   EventKline,
	"push.funding.rate":            EventFundingRate,
	"push.index.price":             EventIndexPrice,
	"push.fair.price":              EventFairPrice,
	"push.personal.order":          EventOrderUpdate,
	"push.personal.order.deal":     EventOrderDeal,
	"push.personal.position":       EventPositionUpdate,
	"push.personal.asset":          EventAssetUpdate,
	"push.personal.stop.order":     EventStopOrder,
	"push.personal.stop.planorder": EventStopPlanOrder,
	"push.personal.liquidate.risk": EventLiquidateRisk,
	"push.personal.adl.level":      EventADLLevel,
	"push.personal.risk.limit":     EventRiskLimit,
	"push.personal.plan.order":     EventPlanOrder,
}

// EventForChannel returns the event name a push channel is dispatched as.
func EventForChannel(channel string) (string, bool) {
	name, ok := channelEvents[channel]
	return name, ok
}

// Message is an outbound control message.
type Message struct {
	Method    string `json:"method"`
	Param     any    `json:"param,omitempty"`
	Subscribe *bool  `json:"subscribe,omitempty"`
	Gzip      *bool  `json:"gzip,omitempty"`
}

// Envelope is an inbound push or response message.
type Envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
	Symbol  string          `json:"symbol,omitempty"`
	TS      int64           `json:"ts,omitempty"`
}

// Event is delivered to callbacks.
//
// Data holds the channel payload, except for EventMessage where it holds the
// whole envelope. Raw always holds the decoded frame.
type Event struct {
	Name    string
	Channel string
	Symbol  string
	Data    json.RawMessage
	Raw     json.RawMessage
	Err     error

	// Set on EventDisconnected.
	CloseCode   int
	CloseReason string

	ReceivedAt time.Time
}

// ServerError is reported by the server on the rs.error channel.
type ServerError struct {
	Payload json.RawMessage
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Payload)
}

// FilterType selects a private data stream.
type FilterType string

const (
	FilterOrder         FilterType = "order"
	FilterOrderDeal     FilterType = "order.deal"
	FilterPosition      FilterType = "position"
	FilterPlanOrder     FilterType = "plan.order"
	FilterStopOrder     FilterType = "stop.order"
	FilterStopPlanOrder FilterType = "stop.planorder"
	FilterRiskLimit     FilterType = "risk.limit"
	FilterADLLevel      FilterType = "adl.level"
	FilterAsset         FilterType = "asset"
)

// Filter is a private channel subscription descriptor.
type Filter struct {
	Filter FilterType `json:"filter"`
	Rules  []string   `json:"rules,omitempty"` // Symbols; empty means all
}

// KlineInterval is a candlestick period.
type KlineInterval string

const (
	Min1   KlineInterval = "Min1"
	Min5   KlineInterval = "Min5"
	Min15  KlineInterval = "Min15"
	Min30  KlineInterval = "Min30"
	Min60  KlineInterval = "Min60"
	Hour4  KlineInterval = "Hour4"
	Hour8  KlineInterval = "Hour8"
	Day1   KlineInterval = "Day1"
	Week1  KlineInterval = "Week1"
	Month1 KlineInterval = "Month1"
)

// Valid reports whether i is an interval the server accepts.
func (i KlineInterval) Valid() bool {
	switch i {
	case Min1, Min5, Min15, Min30, Min60, Hour4, Hour8, Day1, Week1, Month1:
		return true
	}
	return false
}

// State is the connection state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config configures a Client.
type Config struct {
	URL       string
	APIKey    string
	SecretKey string

	PingInterval      time.Duration // Application-level ping period
	ReconnectInterval time.Duration // Fixed delay between reconnect attempts
	AutoReconnect     bool

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration // Write deadline for sends

	SendRate  float64 // Outbound messages per second; 0 disables limiting
	SendBurst int

	Proxy string // Optional proxy URL (http, https, socks5)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:               DefaultURL,
		PingInterval:      15 * time.Second,
		ReconnectInterval: 5 * time.Second,
		AutoReconnect:     true,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		SendBurst:         10,
	}
}
