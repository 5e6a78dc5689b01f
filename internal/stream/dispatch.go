package stream

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rickgao/mexc-futures/internal/metrics"
	"github.com/rickgao/mexc-futures/internal/sdkerr"
)

// handleFrame decodes one frame and dispatches it. Binary frames carry
// gzip-compressed JSON.
func (c *Client) handleFrame(messageType int, data []byte) {
	receivedAt := c.now()

	if messageType == websocket.BinaryMessage {
		plain, err := gunzip(data)
		if err != nil {
			metrics.StreamErrorsTotal.WithLabelValues("decompress").Inc()
			c.logger.Error("receive error", "error", err)
			c.emit(Event{
				Name:       EventError,
				Err:        sdkerr.Protocol("decompress", err),
				Raw:        data,
				ReceivedAt: receivedAt,
			})
			return
		}
		data = plain
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.StreamErrorsTotal.WithLabelValues("decode").Inc()
		c.logger.Error("json decode error", "error", sdkerr.Protocol("decode", err))
		return
	}

	c.logger.Debug("received", "channel", env.Channel, "bytes", len(data))

	ev := Event{
		Channel:    env.Channel,
		Symbol:     env.Symbol,
		Data:       env.Data,
		Raw:        json.RawMessage(data),
		ReceivedAt: receivedAt,
	}
	c.dispatch(env, ev)
}

func (c *Client) dispatch(env Envelope, ev Event) {
	switch {
	case env.Channel == channelPong:
		ev.Name = EventPong

	case env.Channel == channelLogin:
		ok := isSuccess(env.Data)
		c.mu.Lock()
		c.loggedIn = ok
		c.mu.Unlock()
		if ok {
			c.logger.Info("login successful")
			ev.Name = EventLogin
		} else {
			c.logger.Error("login failed", "data", string(env.Data))
			ev.Name = EventLoginFailed
		}

	case env.Channel == channelFilter:
		if isSuccess(env.Data) {
			c.logger.Info("filter set successfully")
			ev.Name = EventFilterSet
		} else {
			c.logger.Error("filter set failed", "data", string(env.Data))
			ev.Name = EventFilterFailed
		}

	case strings.HasPrefix(env.Channel, channelSubPrefix):
		ev.Name = EventSubscribed
		ev.Channel = strings.TrimPrefix(env.Channel, channelSubPrefix)
		c.logger.Info("subscribed", "channel", ev.Channel)

	case strings.HasPrefix(env.Channel, channelUnsubPrefix):
		ev.Name = EventUnsubscribed
		ev.Channel = strings.TrimPrefix(env.Channel, channelUnsubPrefix)
		c.logger.Info("unsubscribed", "channel", ev.Channel)

	case env.Channel == channelError:
		ev.Name = EventError
		ev.Err = &ServerError{Payload: env.Data}
		c.logger.Error("websocket error", "data", string(env.Data))

	default:
		if name, ok := channelEvents[env.Channel]; ok {
			ev.Name = name
		} else {
			ev.Name = EventMessage
			ev.Data = ev.Raw
		}
	}

	metrics.StreamMessagesTotal.WithLabelValues(ev.Name).Inc()
	c.emit(ev)
}

// isSuccess accepts the literal "success" or an object with code 0.
func isSuccess(data json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s == "success"
	}

	var obj struct {
		Code *int `json:"code"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Code != nil {
		return *obj.Code == 0
	}
	return false
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
